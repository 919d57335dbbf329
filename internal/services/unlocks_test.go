package services

import "testing"

func TestCanUnlockLesson(t *testing.T) {
	db := newTestDB(t)
	seedCategory(t, db, 1, "Weather")
	seedItem(t, db, 7, "Collectible", 30, 0)
	required := 7
	seedLesson(t, db, 3, 1, nil)       // no requirement
	seedLesson(t, db, 4, 1, &required) // requires item 7
	userID := seedUser(t, db, 0, 0)
	svc := NewLessonService(db)

	tests := []struct {
		name     string
		lessonID int
		owned    int
		want     bool
	}{
		{"no requirement", 3, 0, true},
		{"required item not owned", 4, 0, false},
		{"required item owned", 4, 1, true},
		{"unknown lesson", 99, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grantItemRow(t, db, userID, 7, tt.owned)

			got, err := svc.CanUnlockLesson(userID, tt.lessonID)
			if err != nil {
				t.Fatalf("CanUnlockLesson failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("CanUnlockLesson(%d) = %v, want %v", tt.lessonID, got, tt.want)
			}
		})
	}
}

func TestCheckAndUnlockLessonIdempotent(t *testing.T) {
	db := newTestDB(t)
	seedCategory(t, db, 1, "Weather")
	seedLesson(t, db, 1, 1, nil)
	userID := seedUser(t, db, 0, 0)
	svc := NewLessonService(db)

	for i := 0; i < 2; i++ {
		if err := svc.CheckAndUnlockLesson(userID, 1); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}

	unlocked, completed, exists := lessonUnlockRow(t, db, userID, 1)
	if !exists || !unlocked {
		t.Errorf("lesson not unlocked after two calls")
	}
	if completed {
		t.Errorf("unlock must not mark the lesson completed")
	}
}

func TestCheckAndUnlockLessonPredicateFails(t *testing.T) {
	db := newTestDB(t)
	seedCategory(t, db, 1, "Weather")
	seedItem(t, db, 7, "Collectible", 30, 0)
	required := 7
	seedLesson(t, db, 4, 1, &required)
	userID := seedUser(t, db, 0, 0)
	svc := NewLessonService(db)

	if err := svc.CheckAndUnlockLesson(userID, 4); err != nil {
		t.Fatalf("CheckAndUnlockLesson failed: %v", err)
	}

	if _, _, exists := lessonUnlockRow(t, db, userID, 4); exists {
		t.Error("predicate-failing unlock created a row")
	}
}

// Item 7 gates lesson 4: granting it and re-evaluating unlocks the lesson.
func TestItemGrantUnlocksLesson(t *testing.T) {
	db := newTestDB(t)
	seedCategory(t, db, 1, "Weather")
	seedItem(t, db, 7, "Collectible", 30, 0)
	required := 7
	seedLesson(t, db, 4, 1, &required)
	seedLesson(t, db, 5, 1, &required) // one grant can satisfy several lessons
	userID := seedUser(t, db, 0, 0)

	lessons := NewLessonService(db)
	users := NewUserService(db, NopNotifier{})

	ok, err := lessons.CanUnlockLesson(userID, 4)
	if err != nil {
		t.Fatalf("CanUnlockLesson failed: %v", err)
	}
	if ok {
		t.Fatal("lesson unlockable before the item grant")
	}

	if err := users.GrantItem(userID, 7, 1); err != nil {
		t.Fatalf("GrantItem failed: %v", err)
	}
	if err := lessons.CheckAndUnlockAllLessons(userID); err != nil {
		t.Fatalf("CheckAndUnlockAllLessons failed: %v", err)
	}

	for _, lessonID := range []int{4, 5} {
		unlocked, _, _ := lessonUnlockRow(t, db, userID, lessonID)
		if !unlocked {
			t.Errorf("lesson %d not unlocked after item grant", lessonID)
		}
	}
}

func TestLessonUnlockMonotonic(t *testing.T) {
	db := newTestDB(t)
	seedCategory(t, db, 1, "Weather")
	seedItem(t, db, 7, "Collectible", 30, 0)
	required := 7
	seedLesson(t, db, 4, 1, &required)
	userID := seedUser(t, db, 0, 0)
	svc := NewLessonService(db)

	grantItemRow(t, db, userID, 7, 1)
	if err := svc.CheckAndUnlockLesson(userID, 4); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}

	// Losing the item later must not revoke the unlock
	grantItemRow(t, db, userID, 7, 0)
	if err := svc.CheckAndUnlockLesson(userID, 4); err != nil {
		t.Fatalf("re-check failed: %v", err)
	}

	unlocked, _, _ := lessonUnlockRow(t, db, userID, 4)
	if !unlocked {
		t.Error("unlock flag was reset after the item was lost")
	}
}

func TestMarkLessonAsCompleted(t *testing.T) {
	db := newTestDB(t)
	seedCategory(t, db, 1, "Weather")
	seedLesson(t, db, 1, 1, nil)
	seedLesson(t, db, 2, 1, nil)
	userID := seedUser(t, db, 0, 0)
	svc := NewLessonService(db)

	// Insert path: no prior unlock row exists, completing also unlocks
	if err := svc.MarkLessonAsCompleted(userID, 1); err != nil {
		t.Fatalf("MarkLessonAsCompleted failed: %v", err)
	}
	unlocked, completed, _ := lessonUnlockRow(t, db, userID, 1)
	if !unlocked || !completed {
		t.Errorf("fresh completion: unlocked=%v completed=%v, want both true", unlocked, completed)
	}

	// Update path: completion upgrades an existing unlock row
	if err := svc.CheckAndUnlockLesson(userID, 2); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	if err := svc.MarkLessonAsCompleted(userID, 2); err != nil {
		t.Fatalf("MarkLessonAsCompleted failed: %v", err)
	}
	unlocked, completed, _ = lessonUnlockRow(t, db, userID, 2)
	if !unlocked || !completed {
		t.Errorf("upgrade completion: unlocked=%v completed=%v, want both true", unlocked, completed)
	}
}

func TestUnlockCategoryForUser(t *testing.T) {
	db := newTestDB(t)
	seedCategory(t, db, 2, "Energy")
	userID := seedUser(t, db, 0, 0)
	svc := NewLessonService(db)

	for i := 0; i < 2; i++ {
		if err := svc.UnlockCategoryForUser(userID, 2); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}

	var unlocked bool
	err := db.Get(&unlocked,
		`SELECT unlocked FROM category_unlocks WHERE user_id = ? AND category_id = ?`, userID, 2)
	if err != nil {
		t.Fatalf("category unlock row missing: %v", err)
	}
	if !unlocked {
		t.Error("category not unlocked")
	}
}
