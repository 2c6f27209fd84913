package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/lingbot/pkg/models"
)

// ErrChallengeNotFound is returned when no challenge matches.
var ErrChallengeNotFound = errors.New("challenge not found")

// ChallengeRepository handles database operations for daily challenges
type ChallengeRepository struct{}

// NewChallengeRepository creates a new repository instance
func NewChallengeRepository() *ChallengeRepository {
	return &ChallengeRepository{}
}

// Create inserts a new challenge
func (r *ChallengeRepository) Create(ctx context.Context, c *models.Challenge) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO challenges (id, user_id, date, format, topic, difficulty, text)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.UserID, c.Date, c.Format, c.Topic, c.Difficulty, c.Text)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %v", err)
	}
	return nil
}

// GetByID returns a challenge by its UUID
func (r *ChallengeRepository) GetByID(ctx context.Context, id string) (*models.Challenge, error) {
	var c models.Challenge
	err := DB.GetContext(ctx, &c, "SELECT * FROM challenges WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %v", err)
	}
	return &c, nil
}

// GetForDay returns the user's challenge for one calendar day, if any.
func (r *ChallengeRepository) GetForDay(ctx context.Context, userID int64, day time.Time) (*models.Challenge, error) {
	var c models.Challenge
	err := DB.GetContext(ctx, &c, `
		SELECT * FROM challenges
		WHERE user_id = $1 AND date >= $2 AND date < $3
		ORDER BY created_at DESC LIMIT 1`,
		userID, day, day.AddDate(0, 0, 1))
	if err == sql.ErrNoRows {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge for day: %v", err)
	}
	return &c, nil
}

// MarkCompleted stores the evaluation outcome
func (r *ChallengeRepository) MarkCompleted(ctx context.Context, c *models.Challenge) error {
	_, err := DB.ExecContext(ctx, `
		UPDATE challenges SET
			completed = $1,
			score = $2,
			xp_earned = $3,
			completed_at = $4
		WHERE id = $5`,
		c.Completed, c.Score, c.XPEarned, c.CompletedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to complete challenge: %v", err)
	}
	return nil
}

// CountCompletedByFormat counts the user's completed challenges of one format.
func (r *ChallengeRepository) CountCompletedByFormat(ctx context.Context, userID int64, format string) (int, error) {
	var count int
	err := DB.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM challenges
		WHERE user_id = $1 AND format = $2 AND completed = $3`,
		userID, format, true)
	if err != nil {
		return 0, fmt.Errorf("failed to count challenges by format: %v", err)
	}
	return count, nil
}

// CountPerfect counts completed challenges with a perfect 10/10 score.
func (r *ChallengeRepository) CountPerfect(ctx context.Context, userID int64) (int, error) {
	var count int
	err := DB.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM challenges
		WHERE user_id = $1 AND completed = $2 AND score = 10`,
		userID, true)
	if err != nil {
		return 0, fmt.Errorf("failed to count perfect challenges: %v", err)
	}
	return count, nil
}

// History returns the user's most recent completed challenges.
func (r *ChallengeRepository) History(ctx context.Context, userID int64, limit int) ([]models.Challenge, error) {
	var out []models.Challenge
	err := DB.SelectContext(ctx, &out, `
		SELECT * FROM challenges
		WHERE user_id = $1 AND completed = $2
		ORDER BY completed_at DESC LIMIT $3`,
		userID, true, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge history: %v", err)
	}
	return out, nil
}
