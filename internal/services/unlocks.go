package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/tahcohcat/learnquest/internal/database"
	"github.com/tahcohcat/learnquest/internal/models"
)

// LessonService resolves lesson and category unlock state against the
// user's accumulated progress. Lessons unlock from an item-ownership
// predicate; categories unlock unconditionally on caller request (the
// triggering rule lives in the minigame layer, not here). All unlock
// flags are monotonic: once set they are never cleared.
type LessonService struct {
	db *database.DB
}

func NewLessonService(db *database.DB) *LessonService {
	return &LessonService{db: db}
}

// CanUnlockLesson reports whether the lesson is eligible to unlock: it has
// no required item, or the user owns at least one of it. Pure predicate, no
// side effects. Unknown lesson ids report false rather than an error.
func (s *LessonService) CanUnlockLesson(userID, lessonID int) (bool, error) {
	var lesson models.Lesson
	query := `SELECT id, category_id, title, required_item_id FROM lessons WHERE id = ?`

	err := s.db.Get(&lesson, query, lessonID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to get lesson %d: %w", lessonID, err)
	}

	if lesson.RequiredItemID == nil {
		return true, nil
	}

	var quantity int
	err = s.db.Get(&quantity,
		`SELECT quantity FROM user_items WHERE user_id = ? AND item_id = ?`,
		userID, *lesson.RequiredItemID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to check item ownership: %w", err)
	}

	return quantity > 0, nil
}

// CheckAndUnlockLesson unlocks the lesson if its predicate passes and does
// nothing otherwise. Re-running against an already-unlocked lesson leaves
// state unchanged.
func (s *LessonService) CheckAndUnlockLesson(userID, lessonID int) error {
	ok, err := s.CanUnlockLesson(userID, lessonID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	query := `
		INSERT INTO lesson_unlocks (user_id, lesson_id, unlocked, completed)
		VALUES (?, ?, TRUE, FALSE)
		ON CONFLICT(user_id, lesson_id) DO UPDATE SET unlocked = TRUE
	`
	if _, err := s.db.Exec(query, userID, lessonID); err != nil {
		return fmt.Errorf("failed to unlock lesson %d: %w", lessonID, err)
	}
	return nil
}

// CheckAndUnlockAllLessons re-evaluates the unlock predicate for every
// lesson. Called after item grants, since one item may satisfy several
// lessons' requirements at once.
func (s *LessonService) CheckAndUnlockAllLessons(userID int) error {
	var lessonIDs []int
	if err := s.db.Select(&lessonIDs, `SELECT id FROM lessons`); err != nil {
		return fmt.Errorf("failed to list lessons: %w", err)
	}

	for _, lessonID := range lessonIDs {
		if err := s.CheckAndUnlockLesson(userID, lessonID); err != nil {
			return err
		}
	}
	return nil
}

// UnlockCategoryForUser unconditionally unlocks a category. Categories
// carry no ownership predicate; the caller decides when one is earned.
func (s *LessonService) UnlockCategoryForUser(userID, categoryID int) error {
	query := `
		INSERT INTO category_unlocks (user_id, category_id, unlocked)
		VALUES (?, ?, TRUE)
		ON CONFLICT(user_id, category_id) DO UPDATE SET unlocked = TRUE
	`
	if _, err := s.db.Exec(query, userID, categoryID); err != nil {
		return fmt.Errorf("failed to unlock category %d: %w", categoryID, err)
	}
	return nil
}

// MarkLessonAsCompleted records a completed lesson. Completing a lesson the
// user never explicitly unlocked also unlocks it: the insert path carries
// unlocked=TRUE so a fresh row satisfies the completed-implies-unlocked
// invariant in a single upsert.
func (s *LessonService) MarkLessonAsCompleted(userID, lessonID int) error {
	query := `
		INSERT INTO lesson_unlocks (user_id, lesson_id, unlocked, completed)
		VALUES (?, ?, TRUE, TRUE)
		ON CONFLICT(user_id, lesson_id) DO UPDATE SET unlocked = TRUE, completed = TRUE
	`
	if _, err := s.db.Exec(query, userID, lessonID); err != nil {
		return fmt.Errorf("failed to mark lesson %d completed: %w", lessonID, err)
	}
	return nil
}
