package database

import (
	"context"
	"fmt"

	"github.com/example/lingbot/pkg/models"
)

// QuizResultRepository handles database operations for quiz results
type QuizResultRepository struct{}

// NewQuizResultRepository creates a new repository instance
func NewQuizResultRepository() *QuizResultRepository {
	return &QuizResultRepository{}
}

// Create inserts a new quiz result
func (r *QuizResultRepository) Create(ctx context.Context, result *models.QuizResult) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO quiz_results (user_id, quiz_type, total_words, correct_words, duration)
		VALUES ($1, $2, $3, $4, $5)`,
		result.UserID, result.QuizType, result.TotalWords, result.CorrectWords, result.Duration)
	if err != nil {
		return fmt.Errorf("failed to create quiz result: %v", err)
	}
	return nil
}

// GetByUserID returns all quiz results for a user, newest first
func (r *QuizResultRepository) GetByUserID(ctx context.Context, userID int64) ([]models.QuizResult, error) {
	var results []models.QuizResult
	err := DB.SelectContext(ctx, &results,
		"SELECT * FROM quiz_results WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz results: %v", err)
	}
	return results, nil
}
