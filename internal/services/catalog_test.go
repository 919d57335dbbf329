package services

import "testing"

func TestSeedDefaultCatalogIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(db)

	for i := 0; i < 2; i++ {
		if err := svc.SeedDefaultCatalog(); err != nil {
			t.Fatalf("seed %d failed: %v", i, err)
		}
	}

	items, err := svc.ListItems()
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("catalog seeded no items")
	}

	categories, err := svc.ListCategories()
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(categories) != 5 {
		t.Errorf("got %d categories, want 5", len(categories))
	}

	var questionCount int
	if err := db.Get(&questionCount, `SELECT COUNT(*) FROM questions`); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if questionCount != 7 {
		t.Errorf("double seed left %d questions, want 7", questionCount)
	}
}

func TestGetUserBadgesView(t *testing.T) {
	db := newTestDB(t)
	catalog := NewCatalogService(db)
	badges := NewBadgeService(db, NopNotifier{})
	if err := badges.SeedDefaultBadges(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	userID := seedUser(t, db, 0, 0)

	view, err := catalog.GetUserBadges(userID)
	if err != nil {
		t.Fatalf("GetUserBadges failed: %v", err)
	}
	if len(view) != 6 {
		t.Fatalf("got %d badges, want 6", len(view))
	}
	for _, b := range view {
		if b.Unlocked || b.Claimed {
			t.Errorf("badge %q shows progress for a fresh user", b.Name)
		}
	}

	if err := badges.AwardBadgeIfEligible(userID, BadgeFirstSteps, true); err != nil {
		t.Fatalf("award failed: %v", err)
	}

	view, err = catalog.GetUserBadges(userID)
	if err != nil {
		t.Fatalf("GetUserBadges failed: %v", err)
	}
	found := false
	for _, b := range view {
		if b.ID == BadgeFirstSteps {
			found = true
			if !b.Unlocked {
				t.Error("unlocked badge shows locked in the view")
			}
		}
	}
	if !found {
		t.Error("first-steps badge missing from view")
	}
}

func TestGetUserLessonsView(t *testing.T) {
	db := newTestDB(t)
	catalog := NewCatalogService(db)
	lessons := NewLessonService(db)

	seedCategory(t, db, 1, "Weather")
	seedLesson(t, db, 1, 1, nil)
	seedLesson(t, db, 2, 1, nil)
	userID := seedUser(t, db, 0, 0)

	if err := lessons.MarkLessonAsCompleted(userID, 1); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	view, err := catalog.GetUserLessons(userID)
	if err != nil {
		t.Fatalf("GetUserLessons failed: %v", err)
	}
	if len(view) != 2 {
		t.Fatalf("got %d lessons, want 2", len(view))
	}

	for _, l := range view {
		switch l.ID {
		case 1:
			if !l.Unlocked || !l.Completed {
				t.Errorf("lesson 1: unlocked=%v completed=%v, want both true", l.Unlocked, l.Completed)
			}
		case 2:
			if l.Unlocked || l.Completed {
				t.Errorf("lesson 2 shows progress without any")
			}
		}
	}
}
