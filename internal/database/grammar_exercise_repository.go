package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/lingbot/pkg/models"
)

// ErrExerciseNotFound is returned when a grammar exercise does not exist.
var ErrExerciseNotFound = errors.New("grammar exercise not found")

// GrammarExerciseRepository handles database operations for grammar drills
type GrammarExerciseRepository struct{}

// NewGrammarExerciseRepository creates a new repository instance
func NewGrammarExerciseRepository() *GrammarExerciseRepository {
	return &GrammarExerciseRepository{}
}

// Create inserts a freshly generated exercise and fills in its ID.
func (r *GrammarExerciseRepository) Create(ctx context.Context, ex *models.GrammarExercise) error {
	if DB.DriverName() == "postgres" {
		err := DB.GetContext(ctx, &ex.ID, `
			INSERT INTO grammar_exercises (user_id, topic, question, option_a, option_b, option_c, correct_answer, rule, follow_up)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			ex.UserID, ex.Topic, ex.Question, ex.OptionA, ex.OptionB, ex.OptionC, ex.CorrectAnswer, ex.Rule, ex.FollowUp)
		if err != nil {
			return fmt.Errorf("failed to create grammar exercise: %v", err)
		}
		return nil
	}

	res, err := DB.ExecContext(ctx, `
		INSERT INTO grammar_exercises (user_id, topic, question, option_a, option_b, option_c, correct_answer, rule, follow_up)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ex.UserID, ex.Topic, ex.Question, ex.OptionA, ex.OptionB, ex.OptionC, ex.CorrectAnswer, ex.Rule, ex.FollowUp)
	if err != nil {
		return fmt.Errorf("failed to create grammar exercise: %v", err)
	}
	ex.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get grammar exercise id: %v", err)
	}
	return nil
}

// GetByID returns one exercise.
func (r *GrammarExerciseRepository) GetByID(ctx context.Context, id int64) (*models.GrammarExercise, error) {
	var ex models.GrammarExercise
	err := DB.GetContext(ctx, &ex, "SELECT * FROM grammar_exercises WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrExerciseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grammar exercise: %v", err)
	}
	return &ex, nil
}

// SaveAnswer records the user's answer on an exercise.
func (r *GrammarExerciseRepository) SaveAnswer(ctx context.Context, ex *models.GrammarExercise, answeredAt time.Time) error {
	_, err := DB.ExecContext(ctx, `
		UPDATE grammar_exercises SET
			user_answer = $1,
			is_correct = $2,
			answered_at = $3
		WHERE id = $4`,
		ex.UserAnswer, ex.IsCorrect, answeredAt, ex.ID)
	if err != nil {
		return fmt.Errorf("failed to save grammar answer: %v", err)
	}
	return nil
}

// TopicStat aggregates one topic's answered exercises.
type TopicStat struct {
	Topic   string `db:"topic"`
	Total   int    `db:"total"`
	Correct int    `db:"correct"`
}

// StatsByTopic returns per-topic totals over answered exercises.
func (r *GrammarExerciseRepository) StatsByTopic(ctx context.Context, userID int64) ([]TopicStat, error) {
	var stats []TopicStat
	err := DB.SelectContext(ctx, &stats, `
		SELECT topic,
			COUNT(*) AS total,
			SUM(CASE WHEN is_correct THEN 1 ELSE 0 END) AS correct
		FROM grammar_exercises
		WHERE user_id = $1 AND user_answer IS NOT NULL
		GROUP BY topic`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get grammar stats: %v", err)
	}
	return stats, nil
}

// Totals returns the user's overall answered/correct counts.
func (r *GrammarExerciseRepository) Totals(ctx context.Context, userID int64) (total, correct int, err error) {
	err = DB.QueryRowxContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)
		FROM grammar_exercises
		WHERE user_id = $1 AND user_answer IS NOT NULL`,
		userID).Scan(&total, &correct)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get grammar totals: %v", err)
	}
	return total, correct, nil
}
