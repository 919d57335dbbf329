package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tahcohcat/learnquest/internal/database"
	"github.com/tahcohcat/learnquest/internal/logger"
	"github.com/tahcohcat/learnquest/internal/models"
)

// Badge ids are fixed catalog data, seeded by SeedDefaultBadges.
const (
	BadgeFirstSteps     = 1 // complete your first lesson
	BadgeExplorer       = 2 // complete lessons in 4 different categories
	BadgePointCollector = 3 // earn 100 total quiz points
	BadgePerfectionist  = 4 // score a perfect quiz
	BadgeDedicated      = 5 // finish 10 quizzes
	BadgeWeatherMaster  = 6 // complete every Weather lesson
)

// Quiz scores are percentages; a perfect run scores exactly 100.
const perfectScore = 100

// weatherCategoryID matches the seeded Weather category.
const weatherCategoryID = 1

// BadgeService scans aggregate progress against a fixed set of independent
// predicates and unlocks or claims badges. Unlock and claim are separate
// states: unlocking is automatic, claiming is a player action that grants
// gold exactly once.
type BadgeService struct {
	db       *database.DB
	notifier Notifier
	log      *logger.Log
}

func NewBadgeService(db *database.DB, notifier Notifier) *BadgeService {
	return &BadgeService{db: db, notifier: notifier, log: logger.New()}
}

// CheckAndUnlockBadges evaluates every badge predicate for the user and
// unlocks the ones that pass. Predicates are independent; one failing
// query does not block the rest.
func (s *BadgeService) CheckAndUnlockBadges(userID int) error {
	completedLessons := s.getCompletedLessonCount(userID)
	s.AwardBadgeIfEligible(userID, BadgeFirstSteps, completedLessons >= 1)

	completedCategories := s.getCompletedCategoryCount(userID)
	s.AwardBadgeIfEligible(userID, BadgeExplorer, completedCategories >= 4)

	totalScore := s.getTotalQuizScore(userID)
	s.AwardBadgeIfEligible(userID, BadgePointCollector, totalScore >= 100)

	bestScore := s.getBestQuizScore(userID)
	s.AwardBadgeIfEligible(userID, BadgePerfectionist, bestScore >= perfectScore)

	attempts := s.getQuizAttemptCount(userID)
	s.AwardBadgeIfEligible(userID, BadgeDedicated, attempts >= 10)

	remaining := s.getIncompleteLessonCount(userID, weatherCategoryID)
	total := s.getLessonCount(weatherCategoryID)
	s.AwardBadgeIfEligible(userID, BadgeWeatherMaster, total > 0 && remaining == 0)

	return nil
}

// AwardBadgeIfEligible unlocks the badge when conditionTrue holds. An
// already-unlocked badge is left untouched so repeated evaluation never
// produces a second unlock event. The read and the upsert share one
// transaction.
func (s *BadgeService) AwardBadgeIfEligible(userID, badgeID int, conditionTrue bool) error {
	if !conditionTrue {
		return nil
	}

	return s.db.WithTx(func(tx *sqlx.Tx) error {
		var badge models.Badge
		err := tx.Get(&badge, `SELECT id, name, description, icon, gold_reward FROM badges WHERE id = ?`, badgeID)
		if errors.Is(err, sql.ErrNoRows) {
			// Unknown badge id: silent no-op
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to get badge %d: %w", badgeID, err)
		}

		var unlocked bool
		err = tx.Get(&unlocked,
			`SELECT unlocked FROM user_badges WHERE user_id = ? AND badge_id = ?`,
			userID, badgeID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read badge state: %w", err)
		}
		if unlocked {
			return nil
		}

		upsert := `
			INSERT INTO user_badges (user_id, badge_id, unlocked, claimed)
			VALUES (?, ?, TRUE, FALSE)
			ON CONFLICT(user_id, badge_id) DO UPDATE SET unlocked = TRUE
		`
		if _, err := tx.Exec(upsert, userID, badgeID); err != nil {
			return fmt.Errorf("failed to unlock badge %d: %w", badgeID, err)
		}

		event := `INSERT INTO progress_events (user_id, type, details) VALUES (?, 'badge_unlocked', ?)`
		if _, err := tx.Exec(event, userID, badge.Name); err != nil {
			return fmt.Errorf("failed to record badge unlock: %w", err)
		}

		s.log.Info(fmt.Sprintf("user %d unlocked badge %q", userID, badge.Name))
		return nil
	})
}

// ClaimBadge marks an unlocked badge as claimed and grants its gold reward.
// Both writes commit together or not at all; claiming a badge that is not
// unlocked, or already claimed, does nothing and grants nothing.
func (s *BadgeService) ClaimBadge(userID, badgeID, goldReward int) error {
	claimed := false
	err := s.db.WithTx(func(tx *sqlx.Tx) error {
		res, err := tx.Exec(
			`UPDATE user_badges SET claimed = TRUE
			 WHERE user_id = ? AND badge_id = ? AND unlocked = TRUE AND claimed = FALSE`,
			userID, badgeID)
		if err != nil {
			return fmt.Errorf("failed to claim badge %d: %w", badgeID, err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			// Not unlocked yet, already claimed, or no such row
			return nil
		}

		if _, err := tx.Exec(
			`UPDATE users SET coins = coins + ? WHERE id = ?`,
			goldReward, userID); err != nil {
			return fmt.Errorf("failed to grant badge gold: %w", err)
		}

		event := `INSERT INTO progress_events (user_id, type, details) VALUES (?, 'badge_claimed', ?)`
		if _, err := tx.Exec(event, userID, fmt.Sprintf("badge %d (+%d gold)", badgeID, goldReward)); err != nil {
			return fmt.Errorf("failed to record badge claim: %w", err)
		}

		claimed = true
		return nil
	})
	if err != nil {
		return err
	}

	if claimed {
		s.notifier.NotifyUserDataChanged(userID)
	}
	return nil
}

// GetRecentEvents returns the user's latest progress events, newest first.
func (s *BadgeService) GetRecentEvents(userID, limit int) ([]models.ProgressEvent, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, user_id, type, details, created_at
		FROM progress_events
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	var events []models.ProgressEvent
	err := s.db.Select(&events, query, userID, limit)
	return events, err
}

// Aggregate helpers. Query failures report zero progress rather than
// blocking the other predicates, matching the recover-or-no-op policy.

func (s *BadgeService) getCompletedLessonCount(userID int) int {
	var count int
	query := `SELECT COUNT(*) FROM lesson_unlocks WHERE user_id = ? AND completed = TRUE`
	if err := s.db.Get(&count, query, userID); err != nil {
		return 0
	}
	return count
}

func (s *BadgeService) getCompletedCategoryCount(userID int) int {
	var count int
	query := `
		SELECT COUNT(DISTINCT l.category_id)
		FROM lesson_unlocks lu
		JOIN lessons l ON l.id = lu.lesson_id
		WHERE lu.user_id = ? AND lu.completed = TRUE
	`
	if err := s.db.Get(&count, query, userID); err != nil {
		return 0
	}
	return count
}

func (s *BadgeService) getTotalQuizScore(userID int) int {
	var total int
	query := `SELECT COALESCE(SUM(score), 0) FROM user_quiz_scores WHERE user_id = ?`
	if err := s.db.Get(&total, query, userID); err != nil {
		return 0
	}
	return total
}

func (s *BadgeService) getBestQuizScore(userID int) int {
	var best int
	query := `SELECT COALESCE(MAX(score), 0) FROM user_quiz_scores WHERE user_id = ?`
	if err := s.db.Get(&best, query, userID); err != nil {
		return 0
	}
	return best
}

func (s *BadgeService) getQuizAttemptCount(userID int) int {
	var count int
	query := `SELECT COUNT(*) FROM user_quiz_scores WHERE user_id = ?`
	if err := s.db.Get(&count, query, userID); err != nil {
		return 0
	}
	return count
}

func (s *BadgeService) getLessonCount(categoryID int) int {
	var count int
	query := `SELECT COUNT(*) FROM lessons WHERE category_id = ?`
	if err := s.db.Get(&count, query, categoryID); err != nil {
		return 0
	}
	return count
}

func (s *BadgeService) getIncompleteLessonCount(userID, categoryID int) int {
	var count int
	query := `
		SELECT COUNT(*)
		FROM lessons l
		LEFT JOIN lesson_unlocks lu ON lu.lesson_id = l.id AND lu.user_id = ?
		WHERE l.category_id = ? AND COALESCE(lu.completed, FALSE) = FALSE
	`
	if err := s.db.Get(&count, query, userID, categoryID); err != nil {
		return 0
	}
	return count
}

// SeedDefaultBadges inserts the badge catalog if it is not present yet.
func (s *BadgeService) SeedDefaultBadges() error {
	badges := []models.Badge{
		{ID: BadgeFirstSteps, Icon: "🎯", Name: "First Steps", Description: "Complete your first lesson", GoldReward: 10},
		{ID: BadgeExplorer, Icon: "🧭", Name: "Explorer", Description: "Complete lessons in 4 different categories", GoldReward: 50},
		{ID: BadgePointCollector, Icon: "💰", Name: "Point Collector", Description: "Earn 100 total quiz points", GoldReward: 25},
		{ID: BadgePerfectionist, Icon: "💯", Name: "Perfectionist", Description: "Score a perfect quiz", GoldReward: 30},
		{ID: BadgeDedicated, Icon: "📚", Name: "Dedicated", Description: "Finish 10 quizzes", GoldReward: 40},
		{ID: BadgeWeatherMaster, Icon: "🌦️", Name: "Weather Master", Description: "Complete every Weather lesson", GoldReward: 60},
	}

	for _, badge := range badges {
		query := `
			INSERT OR IGNORE INTO badges (id, name, description, icon, gold_reward)
			VALUES (?, ?, ?, ?, ?)
		`
		if _, err := s.db.Exec(query, badge.ID, badge.Name, badge.Description, badge.Icon, badge.GoldReward); err != nil {
			return fmt.Errorf("failed to seed badge %s: %w", badge.Name, err)
		}
	}

	return nil
}
