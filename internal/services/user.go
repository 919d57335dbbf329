// internal/services/user.go
package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tahcohcat/learnquest/internal/database"
	"github.com/tahcohcat/learnquest/internal/models"
)

// UserService owns the player's balance record, item inventory and quiz
// score history. Every balance mutation is a relative delta applied in a
// single statement (never read-modify-write across calls), and spends
// clamp at zero.
type UserService struct {
	db       *database.DB
	notifier Notifier
}

func NewUserService(db *database.DB, notifier Notifier) *UserService {
	return &UserService{db: db, notifier: notifier}
}

// CreateUser creates a new player record with an empty balance.
func (s *UserService) CreateUser(name string) (*models.User, error) {
	user := &models.User{Name: name, CreatedAt: time.Now()}

	query := `INSERT INTO users (name, coins, energy, created_at) VALUES (?, 0, 0, ?)`
	result, err := s.db.Exec(query, user.Name, user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user ID: %w", err)
	}

	user.ID = int(id)
	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *UserService) GetUserByID(id int) (*models.User, error) {
	var user models.User
	query := `SELECT id, name, coins, energy, created_at FROM users WHERE id = ?`

	err := s.db.Get(&user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user not found")
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// AddCoin credits coins to the user's balance. Negative amounts debit, and
// the balance never drops below zero.
func (s *UserService) AddCoin(userID, amount int) error {
	query := `UPDATE users SET coins = MAX(coins + ?, 0) WHERE id = ?`
	if _, err := s.db.Exec(query, amount, userID); err != nil {
		return fmt.Errorf("failed to update coins: %w", err)
	}

	s.notifier.NotifyUserDataChanged(userID)
	return nil
}

// AddEnergy credits energy to the user's balance.
func (s *UserService) AddEnergy(userID, amount int) error {
	query := `UPDATE users SET energy = MAX(energy + ?, 0) WHERE id = ?`
	if _, err := s.db.Exec(query, amount, userID); err != nil {
		return fmt.Errorf("failed to update energy: %w", err)
	}

	s.notifier.NotifyUserDataChanged(userID)
	return nil
}

// SpendEnergy deducts energy, clamping the result at zero. Spending more
// than the user has empties the balance rather than failing.
func (s *UserService) SpendEnergy(userID, amount int) error {
	query := `UPDATE users SET energy = MAX(energy - ?, 0) WHERE id = ?`
	if _, err := s.db.Exec(query, amount, userID); err != nil {
		return fmt.Errorf("failed to spend energy: %w", err)
	}

	s.notifier.NotifyUserDataChanged(userID)
	return nil
}

// SaveQuizAndScore appends an attempt to the user's quiz history. History
// rows are never updated or deleted, except for the one-time stats_given
// flag.
func (s *UserService) SaveQuizAndScore(userID, quizID, score int) error {
	query := `
		INSERT INTO user_quiz_scores (user_id, quiz_id, score, completed_at, stats_given)
		VALUES (?, ?, ?, ?, FALSE)
	`
	if _, err := s.db.Exec(query, userID, quizID, score, time.Now()); err != nil {
		return fmt.Errorf("failed to save quiz score: %w", err)
	}
	return nil
}

// HasReceivedStatBonus reports whether the one-time stat bonus for the quiz
// was already granted on any attempt.
func (s *UserService) HasReceivedStatBonus(userID, quizID int) (bool, error) {
	var received bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM user_quiz_scores
			WHERE user_id = ? AND quiz_id = ? AND stats_given = TRUE
		)
	`
	if err := s.db.Get(&received, query, userID, quizID); err != nil {
		return false, fmt.Errorf("failed to check stat bonus: %w", err)
	}
	return received, nil
}

// MarkStatBonusAsGiven flags the latest attempt for the quiz so the bonus
// is never granted twice. No attempt on record is a silent no-op.
func (s *UserService) MarkStatBonusAsGiven(userID, quizID int) error {
	query := `
		UPDATE user_quiz_scores SET stats_given = TRUE
		WHERE id = (
			SELECT id FROM user_quiz_scores
			WHERE user_id = ? AND quiz_id = ?
			ORDER BY completed_at DESC, id DESC
			LIMIT 1
		)
	`
	if _, err := s.db.Exec(query, userID, quizID); err != nil {
		return fmt.Errorf("failed to mark stat bonus: %w", err)
	}
	return nil
}

// GetUserItems returns the user's owned items (quantity > 0).
func (s *UserService) GetUserItems(userID int) ([]models.UserItem, error) {
	var items []models.UserItem
	query := `SELECT user_id, item_id, quantity FROM user_items WHERE user_id = ? AND quantity > 0`
	if err := s.db.Select(&items, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user items: %w", err)
	}
	return items, nil
}

// GrantItem adds qty of an item to the user's inventory. Collectibles cap
// at quantity 1. Unknown item ids are a silent no-op. Callers should
// re-evaluate lesson unlocks afterwards, as one grant may satisfy several
// lessons' requirements.
func (s *UserService) GrantItem(userID, itemID, qty int) error {
	if qty <= 0 {
		return nil
	}

	granted := false
	err := s.db.WithTx(func(tx *sqlx.Tx) error {
		item, err := getItem(tx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return nil
		}

		if err := grantItemTx(tx, userID, item, qty); err != nil {
			return err
		}
		granted = true
		return nil
	})
	if err != nil {
		return err
	}

	if granted {
		s.notifier.NotifyUserDataChanged(userID)
	}
	return nil
}

// ConsumeItem removes one of an item from the inventory. Consuming Food
// credits its energy value in the same transaction. Returns false without
// error when the user owns none.
func (s *UserService) ConsumeItem(userID, itemID int) (bool, error) {
	consumed := false
	err := s.db.WithTx(func(tx *sqlx.Tx) error {
		res, err := tx.Exec(
			`UPDATE user_items SET quantity = quantity - 1
			 WHERE user_id = ? AND item_id = ? AND quantity > 0`,
			userID, itemID)
		if err != nil {
			return fmt.Errorf("failed to consume item %d: %w", itemID, err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}

		item, err := getItem(tx, itemID)
		if err != nil {
			return err
		}
		if item != nil && item.Type == models.ItemTypeFood && item.EnergyValue > 0 {
			if _, err := tx.Exec(
				`UPDATE users SET energy = energy + ? WHERE id = ?`,
				item.EnergyValue, userID); err != nil {
				return fmt.Errorf("failed to credit energy: %w", err)
			}
		}

		consumed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if consumed {
		s.notifier.NotifyUserDataChanged(userID)
	}
	return consumed, nil
}

// PurchaseItem deducts the item's price and grants one of it, atomically.
// Returns false without error when the user cannot afford it or the item
// does not exist.
func (s *UserService) PurchaseItem(userID, itemID int) (bool, error) {
	purchased := false
	err := s.db.WithTx(func(tx *sqlx.Tx) error {
		item, err := getItem(tx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return nil
		}

		res, err := tx.Exec(
			`UPDATE users SET coins = coins - ? WHERE id = ? AND coins >= ?`,
			item.Price, userID, item.Price)
		if err != nil {
			return fmt.Errorf("failed to charge purchase: %w", err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			// Insufficient coins or no such user
			return nil
		}

		if err := grantItemTx(tx, userID, item, 1); err != nil {
			return err
		}
		purchased = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if purchased {
		s.notifier.NotifyUserDataChanged(userID)
	}
	return purchased, nil
}

func getItem(tx *sqlx.Tx, itemID int) (*models.Item, error) {
	var item models.Item
	err := tx.Get(&item, `SELECT id, name, type, price, energy_value FROM items WHERE id = ?`, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", itemID, err)
	}
	return &item, nil
}

func grantItemTx(tx *sqlx.Tx, userID int, item *models.Item, qty int) error {
	upsert := `
		INSERT INTO user_items (user_id, item_id, quantity)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, item_id) DO UPDATE SET quantity = quantity + excluded.quantity
	`
	if _, err := tx.Exec(upsert, userID, item.ID, qty); err != nil {
		return fmt.Errorf("failed to grant item %d: %w", item.ID, err)
	}

	if item.Type == models.ItemTypeCollectible {
		if _, err := tx.Exec(
			`UPDATE user_items SET quantity = MIN(quantity, 1) WHERE user_id = ? AND item_id = ?`,
			userID, item.ID); err != nil {
			return fmt.Errorf("failed to cap collectible %d: %w", item.ID, err)
		}
	}
	return nil
}
