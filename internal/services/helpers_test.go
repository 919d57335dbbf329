package services

import (
	"fmt"
	"testing"

	"github.com/tahcohcat/learnquest/internal/database"
	"github.com/tahcohcat/learnquest/internal/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// Every sqlite :memory: connection is a separate database; pin the
	// pool to one connection so all queries see the same schema
	db.SetMaxOpenConns(1)

	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *database.DB, coins, energy int) int {
	t.Helper()

	res, err := db.Exec(`INSERT INTO users (name, coins, energy) VALUES ('test', ?, ?)`, coins, energy)
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to get user id: %v", err)
	}
	return int(id)
}

func getUser(t *testing.T, db *database.DB, id int) models.User {
	t.Helper()

	var user models.User
	if err := db.Get(&user, `SELECT id, name, coins, energy, created_at FROM users WHERE id = ?`, id); err != nil {
		t.Fatalf("failed to get user %d: %v", id, err)
	}
	return user
}

func seedQuestions(t *testing.T, db *database.DB, quizID int, qType string, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		_, err := db.Exec(
			`INSERT INTO questions (quiz_id, type, text, options, correct_index) VALUES (?, ?, ?, ?, 0)`,
			quizID, qType, fmt.Sprintf("question %d", i),
			models.OptionList{"a", "b", "c", "d"})
		if err != nil {
			t.Fatalf("failed to seed question: %v", err)
		}
	}
}

func seedItem(t *testing.T, db *database.DB, id int, itemType string, price, energyValue int) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO items (id, name, type, price, energy_value) VALUES (?, ?, ?, ?, ?)`,
		id, fmt.Sprintf("item %d", id), itemType, price, energyValue)
	if err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}
}

func seedCategory(t *testing.T, db *database.DB, id int, name string) {
	t.Helper()

	if _, err := db.Exec(`INSERT INTO categories (id, name) VALUES (?, ?)`, id, name); err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}
}

func seedLesson(t *testing.T, db *database.DB, id, categoryID int, requiredItemID *int) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO lessons (id, category_id, title, required_item_id) VALUES (?, ?, ?, ?)`,
		id, categoryID, fmt.Sprintf("lesson %d", id), requiredItemID)
	if err != nil {
		t.Fatalf("failed to seed lesson: %v", err)
	}
}

func seedBadgeRow(t *testing.T, db *database.DB, id int, name string, goldReward int) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO badges (id, name, description, gold_reward) VALUES (?, ?, '', ?)`,
		id, name, goldReward)
	if err != nil {
		t.Fatalf("failed to seed badge: %v", err)
	}
}

func grantItemRow(t *testing.T, db *database.DB, userID, itemID, quantity int) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO user_items (user_id, item_id, quantity) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, item_id) DO UPDATE SET quantity = excluded.quantity`,
		userID, itemID, quantity)
	if err != nil {
		t.Fatalf("failed to grant item: %v", err)
	}
}

func countEvents(t *testing.T, db *database.DB, userID int, eventType string) int {
	t.Helper()

	var count int
	err := db.Get(&count,
		`SELECT COUNT(*) FROM progress_events WHERE user_id = ? AND type = ?`,
		userID, eventType)
	if err != nil {
		t.Fatalf("failed to count events: %v", err)
	}
	return count
}

func lessonUnlockRow(t *testing.T, db *database.DB, userID, lessonID int) (unlocked, completed, exists bool) {
	t.Helper()

	var row models.LessonUnlock
	err := db.Get(&row,
		`SELECT user_id, lesson_id, unlocked, completed FROM lesson_unlocks WHERE user_id = ? AND lesson_id = ?`,
		userID, lessonID)
	if err != nil {
		return false, false, false
	}
	return row.Unlocked, row.Completed, true
}

func badgeRow(t *testing.T, db *database.DB, userID, badgeID int) (unlocked, claimed, exists bool) {
	t.Helper()

	var row models.UserBadge
	err := db.Get(&row,
		`SELECT user_id, badge_id, unlocked, claimed FROM user_badges WHERE user_id = ? AND badge_id = ?`,
		userID, badgeID)
	if err != nil {
		return false, false, false
	}
	return row.Unlocked, row.Claimed, true
}

// recordingNotifier counts notifications for assertions.
type recordingNotifier struct {
	calls []int
}

func (n *recordingNotifier) NotifyUserDataChanged(userID int) {
	n.calls = append(n.calls, userID)
}
