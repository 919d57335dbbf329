package services

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/tahcohcat/learnquest/internal/database"
	"github.com/tahcohcat/learnquest/internal/models"
)

// QuestionService serves quiz questions without repetition until a pool is
// exhausted. A pool is the set of question rows sharing a quiz id (and
// optionally a type tag); once the pool cannot satisfy a request its
// used-flags are reset wholesale and rotation starts over.
type QuestionService struct {
	db *database.DB
}

func NewQuestionService(db *database.DB) *QuestionService {
	return &QuestionService{db: db}
}

// SelectRandom returns up to limit unused questions for the given quiz,
// optionally filtered by type (qType "" means no filter), marking them used.
// When fewer than limit unused questions remain, the whole matching pool is
// reset first, so a question served seconds ago may legally reappear in the
// next draw. A catalog smaller than limit yields a short result, not an
// error. Count, reset, select and mark run in one transaction.
func (s *QuestionService) SelectRandom(quizID int, qType string, limit int) ([]models.Question, error) {
	if limit <= 0 {
		return []models.Question{}, nil
	}

	var selected []models.Question
	err := s.db.WithTx(func(tx *sqlx.Tx) error {
		unused, err := countUnused(tx, quizID, qType)
		if err != nil {
			return err
		}

		if unused < limit {
			if err := resetPool(tx, quizID, qType); err != nil {
				return err
			}
		}

		selected, err = selectUnused(tx, quizID, qType, limit)
		if err != nil {
			return err
		}

		return markUsed(tx, selected)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select questions for quiz %d: %w", quizID, err)
	}

	return selected, nil
}

// SelectSingle returns one unused question for the given quiz, resetting the
// pool when every question has been served. Returns nil (not an error) when
// the quiz has no questions at all.
func (s *QuestionService) SelectSingle(quizID int) (*models.Question, error) {
	var selected []models.Question
	err := s.db.WithTx(func(tx *sqlx.Tx) error {
		unused, err := countUnused(tx, quizID, "")
		if err != nil {
			return err
		}

		if unused == 0 {
			if err := resetPool(tx, quizID, ""); err != nil {
				return err
			}
		}

		selected, err = selectUnused(tx, quizID, "", 1)
		if err != nil {
			return err
		}

		return markUsed(tx, selected)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select question for quiz %d: %w", quizID, err)
	}

	if len(selected) == 0 {
		return nil, nil
	}
	return &selected[0], nil
}

func countUnused(tx *sqlx.Tx, quizID int, qType string) (int, error) {
	query := `SELECT COUNT(*) FROM questions WHERE quiz_id = ? AND used = FALSE`
	args := []interface{}{quizID}
	if qType != "" {
		query += ` AND type = ?`
		args = append(args, qType)
	}

	var count int
	err := tx.Get(&count, query, args...)
	return count, err
}

// resetPool clears the used-flags of every question matching the filter.
// This is a full-pool reshuffle, not a partial top-up.
func resetPool(tx *sqlx.Tx, quizID int, qType string) error {
	query := `UPDATE questions SET used = FALSE WHERE quiz_id = ?`
	args := []interface{}{quizID}
	if qType != "" {
		query += ` AND type = ?`
		args = append(args, qType)
	}

	_, err := tx.Exec(query, args...)
	return err
}

func selectUnused(tx *sqlx.Tx, quizID int, qType string, limit int) ([]models.Question, error) {
	query := `SELECT id, quiz_id, type, text, options, correct_index, used
			  FROM questions WHERE quiz_id = ? AND used = FALSE`
	args := []interface{}{quizID}
	if qType != "" {
		query += ` AND type = ?`
		args = append(args, qType)
	}
	query += ` ORDER BY RANDOM() LIMIT ?`
	args = append(args, limit)

	var questions []models.Question
	err := tx.Select(&questions, query, args...)
	return questions, err
}

func markUsed(tx *sqlx.Tx, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	ids := lo.Map(questions, func(q models.Question, _ int) int { return q.ID })
	query, args, err := sqlx.In(`UPDATE questions SET used = TRUE WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	for i := range questions {
		questions[i].Used = true
	}
	return nil
}
