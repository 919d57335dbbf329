package models

import "time"

// User holds the single local player's balance record. Coins and energy
// never go negative; energy spends clamp at zero.
type User struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Coins     int       `json:"coins" db:"coins"`
	Energy    int       `json:"energy" db:"energy"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserItem is an ownership row. Quantity 0 means "not owned";
// Collectibles never exceed quantity 1.
type UserItem struct {
	UserID   int `json:"user_id" db:"user_id"`
	ItemID   int `json:"item_id" db:"item_id"`
	Quantity int `json:"quantity" db:"quantity"`
}

// LessonUnlock tracks per-user lesson state. Both flags are monotonic:
// once true they are never reset, and completed implies unlocked.
type LessonUnlock struct {
	UserID    int  `json:"user_id" db:"user_id"`
	LessonID  int  `json:"lesson_id" db:"lesson_id"`
	Unlocked  bool `json:"unlocked" db:"unlocked"`
	Completed bool `json:"completed" db:"completed"`
}

type CategoryUnlock struct {
	UserID     int  `json:"user_id" db:"user_id"`
	CategoryID int  `json:"category_id" db:"category_id"`
	Unlocked   bool `json:"unlocked" db:"unlocked"`
}

// UserBadge tracks unlock and claim state independently; claimed implies
// unlocked, and claiming is a one-time coin grant.
type UserBadge struct {
	UserID   int  `json:"user_id" db:"user_id"`
	BadgeID  int  `json:"badge_id" db:"badge_id"`
	Unlocked bool `json:"unlocked" db:"unlocked"`
	Claimed  bool `json:"claimed" db:"claimed"`
}

// QuizScore is an append-only attempt record. StatsGiven guards the
// one-time stat bonus for a quiz.
type QuizScore struct {
	ID          int       `json:"id" db:"id"`
	UserID      int       `json:"user_id" db:"user_id"`
	QuizID      int       `json:"quiz_id" db:"quiz_id"`
	Score       int       `json:"score" db:"score"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
	StatsGiven  bool      `json:"stats_given" db:"stats_given"`
}

// ProgressEvent is an activity-feed row (badge unlocks and similar
// one-time milestones).
type ProgressEvent struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Type      string    `json:"type" db:"type"` // badge_unlocked, badge_claimed, ...
	Details   string    `json:"details" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
