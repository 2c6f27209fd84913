package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/lingbot/pkg/models"
)

// ErrItemNotFound is returned when a vocabulary item does not exist.
var ErrItemNotFound = errors.New("vocabulary item not found")

// VocabularyRepository handles database operations for flashcards
type VocabularyRepository struct{}

// NewVocabularyRepository creates a new repository instance
func NewVocabularyRepository() *VocabularyRepository {
	return &VocabularyRepository{}
}

// GetByID returns a single vocabulary item
func (r *VocabularyRepository) GetByID(ctx context.Context, id int64) (*models.VocabularyItem, error) {
	var item models.VocabularyItem
	err := DB.GetContext(ctx, &item, "SELECT * FROM vocabulary WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vocabulary item: %v", err)
	}
	return &item, nil
}

// GetDueForUser returns cards due for review right now: next_review in the
// past or never scheduled, most overdue first.
func (r *VocabularyRepository) GetDueForUser(ctx context.Context, userID int64, limit int) ([]models.VocabularyItem, error) {
	var items []models.VocabularyItem
	err := DB.SelectContext(ctx, &items, `
		SELECT * FROM vocabulary
		WHERE user_id = $1 AND (next_review IS NULL OR next_review <= CURRENT_TIMESTAMP)
		ORDER BY (next_review IS NULL) DESC, next_review ASC
		LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get due cards: %v", err)
	}
	return items, nil
}

// Create inserts a new flashcard with fresh SM-2 state.
func (r *VocabularyRepository) Create(ctx context.Context, item *models.VocabularyItem) error {
	if item.EaseFactor == 0 {
		item.EaseFactor = 2.5
	}
	query := `
		INSERT INTO vocabulary (user_id, word_de, word_ru, example, times_seen, learned, interval, ease_factor, next_review)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if DB.DriverName() == "postgres" {
		return DB.QueryRowContext(ctx, query+" RETURNING id",
			item.UserID, item.WordDE, item.WordRU, item.Example,
			item.TimesSeen, item.Learned, item.Interval, item.EaseFactor, item.NextReview,
		).Scan(&item.ID)
	}

	result, err := DB.ExecContext(ctx, query,
		item.UserID, item.WordDE, item.WordRU, item.Example,
		item.TimesSeen, item.Learned, item.Interval, item.EaseFactor, item.NextReview)
	if err != nil {
		return fmt.Errorf("failed to create vocabulary item: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get vocabulary item id: %v", err)
	}
	item.ID = id
	return nil
}

// Update writes back the scheduling fields after a review.
func (r *VocabularyRepository) Update(ctx context.Context, item *models.VocabularyItem) error {
	_, err := DB.ExecContext(ctx, `
		UPDATE vocabulary SET
			word_de = $1,
			word_ru = $2,
			example = $3,
			times_seen = $4,
			learned = $5,
			interval = $6,
			ease_factor = $7,
			next_review = $8,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $9`,
		item.WordDE, item.WordRU, item.Example,
		item.TimesSeen, item.Learned, item.Interval, item.EaseFactor, item.NextReview,
		item.ID)
	if err != nil {
		return fmt.Errorf("failed to update vocabulary item: %v", err)
	}
	return nil
}

// ExistsForUser reports whether the user already has this German word.
func (r *VocabularyRepository) ExistsForUser(ctx context.Context, userID int64, wordDE string) (bool, error) {
	var count int
	err := DB.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM vocabulary WHERE user_id = $1 AND word_de = $2", userID, wordDE)
	if err != nil {
		return false, fmt.Errorf("failed to check vocabulary item: %v", err)
	}
	return count > 0, nil
}

// GetRandomForUser returns up to n random cards for quiz generation.
func (r *VocabularyRepository) GetRandomForUser(ctx context.Context, userID int64, n int) ([]models.VocabularyItem, error) {
	var items []models.VocabularyItem
	err := DB.SelectContext(ctx, &items,
		"SELECT * FROM vocabulary WHERE user_id = $1 ORDER BY RANDOM() LIMIT $2", userID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get random cards: %v", err)
	}
	return items, nil
}

// Stats returns per-user card counts.
func (r *VocabularyRepository) Stats(ctx context.Context, userID int64) (total, learned, due int, err error) {
	if err = DB.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM vocabulary WHERE user_id = $1", userID); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count cards: %v", err)
	}
	if err = DB.GetContext(ctx, &learned,
		"SELECT COUNT(*) FROM vocabulary WHERE user_id = $1 AND learned = $2", userID, true); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count learned cards: %v", err)
	}
	if err = DB.GetContext(ctx, &due, `
		SELECT COUNT(*) FROM vocabulary
		WHERE user_id = $1 AND (next_review IS NULL OR next_review <= CURRENT_TIMESTAMP)`, userID); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count due cards: %v", err)
	}
	return total, learned, due, nil
}
