package models

// Catalog entities are immutable once seeded; user progress lives in the
// per-user rows in progress.go.

const (
	ItemTypeCollectible = "Collectible"
	ItemTypeFood        = "Food"
)

// Item is a shop catalog entry. Food restores energy when consumed;
// Collectibles gate lesson unlocks and cap at one per user.
type Item struct {
	ID          int    `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Type        string `json:"type" db:"type"`
	Price       int    `json:"price" db:"price"`
	EnergyValue int    `json:"energy_value" db:"energy_value"`
}

// Lesson belongs to a category and may require owning an item to unlock.
type Lesson struct {
	ID             int    `json:"id" db:"id"`
	CategoryID     int    `json:"category_id" db:"category_id"`
	Title          string `json:"title" db:"title"`
	RequiredItemID *int   `json:"required_item_id" db:"required_item_id"` // nil = no requirement
}

type Category struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Badge is an achievement definition. GoldReward is granted once, on claim.
type Badge struct {
	ID          int    `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	Icon        string `json:"icon" db:"icon"`
	GoldReward  int    `json:"gold_reward" db:"gold_reward"`
}

// UserBadgeView joins a badge definition with one user's unlock state.
type UserBadgeView struct {
	Badge
	Unlocked bool `json:"unlocked" db:"unlocked"`
	Claimed  bool `json:"claimed" db:"claimed"`
}

// UserLessonView joins a lesson definition with one user's unlock state.
type UserLessonView struct {
	Lesson
	Unlocked  bool `json:"unlocked" db:"unlocked"`
	Completed bool `json:"completed" db:"completed"`
}
