package database

import (
	"context"
	"fmt"

	"github.com/example/lingbot/pkg/models"
)

// PlacementResultRepository handles database operations for placement tests
type PlacementResultRepository struct{}

// NewPlacementResultRepository creates a new repository instance
func NewPlacementResultRepository() *PlacementResultRepository {
	return &PlacementResultRepository{}
}

// Create stores one finished placement test.
func (r *PlacementResultRepository) Create(ctx context.Context, result *models.PlacementResult) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO placement_results (user_id, level_result, questions_total, correct_total)
		VALUES ($1, $2, $3, $4)`,
		result.UserID, result.LevelResult, result.QuestionsTotal, result.CorrectTotal)
	if err != nil {
		return fmt.Errorf("failed to create placement result: %v", err)
	}
	return nil
}

// GetByUserID returns the user's placement history, newest first.
func (r *PlacementResultRepository) GetByUserID(ctx context.Context, userID int64) ([]models.PlacementResult, error) {
	var results []models.PlacementResult
	err := DB.SelectContext(ctx, &results,
		"SELECT * FROM placement_results WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get placement results: %v", err)
	}
	return results, nil
}
