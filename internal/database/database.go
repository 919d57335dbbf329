package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sqlx.DB
}

// NewDB creates a new database connection
func NewDB(databaseURL string) (*DB, error) {
	if databaseURL == "" {
		databaseURL = "learnquest.db" // Default SQLite file
	}

	db, err := sqlx.Connect("sqlite3", databaseURL+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dbWrapper := &DB{DB: db}

	// Initialize database schema
	if err := dbWrapper.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return dbWrapper, nil
}

// WithTx runs fn inside a transaction. The transaction commits only if fn
// returns nil; any error (or panic) rolls every write back, so multi-step
// engine sequences are all-or-nothing.
func (db *DB) WithTx(fn func(tx *sqlx.Tx) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// createTables creates the necessary database tables
func (db *DB) createTables() error {
	usersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT '',
		coins INTEGER NOT NULL DEFAULT 0,
		energy INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	itemsTable := `
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		price INTEGER NOT NULL DEFAULT 0,
		energy_value INTEGER NOT NULL DEFAULT 0
	);`

	userItemsTable := `
	CREATE TABLE IF NOT EXISTS user_items (
		user_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, item_id),
		FOREIGN KEY (item_id) REFERENCES items(id)
	);`

	questionsTable := `
	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY,
		quiz_id INTEGER NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		options TEXT NOT NULL,
		correct_index INTEGER NOT NULL,
		used BOOLEAN NOT NULL DEFAULT FALSE
	);`

	categoriesTable := `
	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	);`

	lessonsTable := `
	CREATE TABLE IF NOT EXISTS lessons (
		id INTEGER PRIMARY KEY,
		category_id INTEGER NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		required_item_id INTEGER,
		FOREIGN KEY (category_id) REFERENCES categories(id)
	);`

	lessonUnlocksTable := `
	CREATE TABLE IF NOT EXISTS lesson_unlocks (
		user_id INTEGER NOT NULL,
		lesson_id INTEGER NOT NULL,
		unlocked BOOLEAN NOT NULL DEFAULT FALSE,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (user_id, lesson_id)
	);`

	categoryUnlocksTable := `
	CREATE TABLE IF NOT EXISTS category_unlocks (
		user_id INTEGER NOT NULL,
		category_id INTEGER NOT NULL,
		unlocked BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (user_id, category_id)
	);`

	badgesTable := `
	CREATE TABLE IF NOT EXISTS badges (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		gold_reward INTEGER NOT NULL DEFAULT 0
	);`

	userBadgesTable := `
	CREATE TABLE IF NOT EXISTS user_badges (
		user_id INTEGER NOT NULL,
		badge_id INTEGER NOT NULL,
		unlocked BOOLEAN NOT NULL DEFAULT FALSE,
		claimed BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (user_id, badge_id)
	);`

	quizScoresTable := `
	CREATE TABLE IF NOT EXISTS user_quiz_scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		quiz_id INTEGER NOT NULL,
		score INTEGER NOT NULL,
		completed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		stats_given BOOLEAN NOT NULL DEFAULT FALSE
	);`

	progressEventsTable := `
	CREATE TABLE IF NOT EXISTS progress_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	tables := []string{
		usersTable, itemsTable, userItemsTable, questionsTable,
		categoriesTable, lessonsTable, lessonUnlocksTable,
		categoryUnlocksTable, badgesTable, userBadgesTable,
		quizScoresTable, progressEventsTable,
	}

	// Create indexes for better performance
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_questions_pool ON questions(quiz_id, type, used);`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_scores_user ON user_quiz_scores(user_id, quiz_id);`,
		`CREATE INDEX IF NOT EXISTS idx_lessons_category ON lessons(category_id);`,
		`CREATE INDEX IF NOT EXISTS idx_progress_events_user ON progress_events(user_id, created_at);`,
	}

	// Execute table creation
	for _, query := range tables {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Create indexes
	for _, index := range indexes {
		if _, err := db.Exec(index); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
