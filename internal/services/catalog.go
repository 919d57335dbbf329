package services

import (
	"fmt"

	"github.com/tahcohcat/learnquest/internal/database"
	"github.com/tahcohcat/learnquest/internal/models"
)

// CatalogService reads the immutable content catalog and joins it against
// one user's progress for the presentation layer.
type CatalogService struct {
	db *database.DB
}

func NewCatalogService(db *database.DB) *CatalogService {
	return &CatalogService{db: db}
}

// GetUserBadges returns every badge with the user's unlock/claim state.
func (s *CatalogService) GetUserBadges(userID int) ([]models.UserBadgeView, error) {
	query := `
		SELECT
			b.id, b.name, b.description, b.icon, b.gold_reward,
			COALESCE(ub.unlocked, FALSE) as unlocked,
			COALESCE(ub.claimed, FALSE) as claimed
		FROM badges b
		LEFT JOIN user_badges ub ON b.id = ub.badge_id AND ub.user_id = ?
		ORDER BY ub.unlocked DESC, b.id
	`

	var badges []models.UserBadgeView
	if err := s.db.Select(&badges, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user badges: %w", err)
	}
	return badges, nil
}

// GetUserLessons returns every lesson with the user's unlock state.
func (s *CatalogService) GetUserLessons(userID int) ([]models.UserLessonView, error) {
	query := `
		SELECT
			l.id, l.category_id, l.title, l.required_item_id,
			COALESCE(lu.unlocked, FALSE) as unlocked,
			COALESCE(lu.completed, FALSE) as completed
		FROM lessons l
		LEFT JOIN lesson_unlocks lu ON l.id = lu.lesson_id AND lu.user_id = ?
		ORDER BY l.category_id, l.id
	`

	var lessons []models.UserLessonView
	if err := s.db.Select(&lessons, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user lessons: %w", err)
	}
	return lessons, nil
}

// ListItems returns the shop catalog.
func (s *CatalogService) ListItems() ([]models.Item, error) {
	var items []models.Item
	query := `SELECT id, name, type, price, energy_value FROM items ORDER BY id`
	if err := s.db.Select(&items, query); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// ListCategories returns the lesson categories.
func (s *CatalogService) ListCategories() ([]models.Category, error) {
	var categories []models.Category
	query := `SELECT id, name FROM categories ORDER BY id`
	if err := s.db.Select(&categories, query); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// SeedDefaultCatalog inserts the demo content catalog (categories, items,
// lessons, questions) if absent. Question rows are seeded once; only their
// used flag changes afterwards.
func (s *CatalogService) SeedDefaultCatalog() error {
	categories := []models.Category{
		{ID: 1, Name: "Weather"},
		{ID: 2, Name: "Energy"},
		{ID: 3, Name: "Water"},
		{ID: 4, Name: "Space"},
		{ID: 5, Name: "Plants"},
	}

	items := []models.Item{
		{ID: 1, Name: "Apple", Type: models.ItemTypeFood, Price: 5, EnergyValue: 10},
		{ID: 2, Name: "Sandwich", Type: models.ItemTypeFood, Price: 12, EnergyValue: 25},
		{ID: 3, Name: "Thermometer", Type: models.ItemTypeCollectible, Price: 30},
		{ID: 4, Name: "Magnet", Type: models.ItemTypeCollectible, Price: 40},
		{ID: 5, Name: "Prism", Type: models.ItemTypeCollectible, Price: 50},
		{ID: 6, Name: "Telescope", Type: models.ItemTypeCollectible, Price: 80},
		{ID: 7, Name: "Magnifying Glass", Type: models.ItemTypeCollectible, Price: 35},
	}

	thermometer, magnet, prism, telescope := 3, 4, 5, 6
	lessons := []models.Lesson{
		{ID: 1, CategoryID: 1, Title: "What Makes Wind?"},
		{ID: 2, CategoryID: 1, Title: "Reading the Temperature", RequiredItemID: &thermometer},
		{ID: 3, CategoryID: 2, Title: "Push and Pull", RequiredItemID: &magnet},
		{ID: 4, CategoryID: 2, Title: "Splitting Light", RequiredItemID: &prism},
		{ID: 5, CategoryID: 3, Title: "The Water Cycle"},
		{ID: 6, CategoryID: 4, Title: "Watching the Night Sky", RequiredItemID: &telescope},
		{ID: 7, CategoryID: 5, Title: "How Seeds Grow"},
	}

	for _, c := range categories {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO categories (id, name) VALUES (?, ?)`,
			c.ID, c.Name); err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.Name, err)
		}
	}

	for _, item := range items {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO items (id, name, type, price, energy_value) VALUES (?, ?, ?, ?, ?)`,
			item.ID, item.Name, item.Type, item.Price, item.EnergyValue); err != nil {
			return fmt.Errorf("failed to seed item %s: %w", item.Name, err)
		}
	}

	for _, lesson := range lessons {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO lessons (id, category_id, title, required_item_id) VALUES (?, ?, ?, ?)`,
			lesson.ID, lesson.CategoryID, lesson.Title, lesson.RequiredItemID); err != nil {
			return fmt.Errorf("failed to seed lesson %s: %w", lesson.Title, err)
		}
	}

	return s.seedDemoQuestions()
}

func (s *CatalogService) seedDemoQuestions() error {
	questions := []models.Question{
		{ID: 1, QuizID: 1, Type: "Convection", Text: "Warm air near the ground tends to...",
			Options: models.OptionList{"Sink", "Rise", "Stay still", "Freeze"}, CorrectIndex: 1},
		{ID: 2, QuizID: 1, Type: "Convection", Text: "Sea breezes blow from the sea to the land because...",
			Options: models.OptionList{"Land heats faster", "The sea is deeper", "Fish push the air", "The moon pulls it"}, CorrectIndex: 0},
		{ID: 3, QuizID: 1, Type: "Radiation", Text: "The Sun's heat reaches Earth by...",
			Options: models.OptionList{"Conduction", "Convection", "Radiation", "Wind"}, CorrectIndex: 2},
		{ID: 4, QuizID: 1, Type: "Radiation", Text: "Dark surfaces in sunlight get...",
			Options: models.OptionList{"Colder", "Warmer", "Wetter", "Lighter"}, CorrectIndex: 1},
		{ID: 5, QuizID: 2, Text: "Water turning into vapour is called...",
			Options: models.OptionList{"Melting", "Evaporation", "Freezing", "Condensation"}, CorrectIndex: 1},
		{ID: 6, QuizID: 2, Text: "Clouds form when water vapour...",
			Options: models.OptionList{"Evaporates", "Condenses", "Boils", "Disappears"}, CorrectIndex: 1},
		{ID: 7, QuizID: 2, Text: "Rain, snow and hail are all forms of...",
			Options: models.OptionList{"Evaporation", "Erosion", "Precipitation", "Pollination"}, CorrectIndex: 2},
	}

	for _, q := range questions {
		query := `
			INSERT OR IGNORE INTO questions (id, quiz_id, type, text, options, correct_index, used)
			VALUES (?, ?, ?, ?, ?, ?, FALSE)
		`
		if _, err := s.db.Exec(query, q.ID, q.QuizID, q.Type, q.Text, q.Options, q.CorrectIndex); err != nil {
			return fmt.Errorf("failed to seed question %d: %w", q.ID, err)
		}
	}

	return nil
}
