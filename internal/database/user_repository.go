package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/lingbot/pkg/models"
)

// UserRepository handles database operations for users
type UserRepository struct{}

// NewUserRepository creates a new repository instance
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// GetByID returns a user by Telegram ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := DB.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %v", err)
	}
	return &user, nil
}

// GetOrCreate returns an existing user or registers a new one with a zeroed
// engagement profile.
func (r *UserRepository) GetOrCreate(ctx context.Context, id int64, username, firstName, lastName string) (*models.User, error) {
	user, err := r.GetByID(ctx, id)
	if err == nil {
		return user, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	_, err = DB.ExecContext(ctx, `
		INSERT INTO users (id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)`,
		id, username, firstName, lastName)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %v", err)
	}
	return r.GetByID(ctx, id)
}

// UpdateSettings persists the user-editable fields.
func (r *UserRepository) UpdateSettings(ctx context.Context, user *models.User) error {
	_, err := DB.ExecContext(ctx, `
		UPDATE users SET
			level = $1,
			reminder_enabled = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3`,
		user.Level, user.ReminderEnabled, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user settings: %v", err)
	}
	return nil
}

// UpdateLevel sets the user's CEFR level after a placement test.
func (r *UserRepository) UpdateLevel(ctx context.Context, userID int64, level string) error {
	_, err := DB.ExecContext(ctx, `
		UPDATE users SET level = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		level, userID)
	if err != nil {
		return fmt.Errorf("failed to update user level: %v", err)
	}
	return nil
}

// UpdateGrammarState persists the inline-drill cadence fields.
func (r *UserRepository) UpdateGrammarState(ctx context.Context, user *models.User) error {
	_, err := DB.ExecContext(ctx, `
		UPDATE users SET
			grammar_enabled = $1,
			grammar_frequency = $2,
			grammar_counter = $3,
			last_grammar_at = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $5`,
		user.GrammarEnabled, user.GrammarFrequency, user.GrammarCounter, user.LastGrammarAt, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update grammar state: %v", err)
	}
	return nil
}

// GetAll returns all registered users
func (r *UserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := DB.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %v", err)
	}
	return users, nil
}

// GetReminderCandidates returns users with reminders enabled whose daily goal
// is still open today: the daily counter either belongs to a previous day or
// has not reached the goal yet. today is the start of the current calendar day.
func (r *UserRepository) GetReminderCandidates(ctx context.Context, dailyGoal int, today time.Time) ([]models.User, error) {
	var users []models.User
	err := DB.SelectContext(ctx, &users, `
		SELECT * FROM users
		WHERE reminder_enabled = $1
		AND (last_daily_reset IS NULL OR last_daily_reset < $2 OR daily_messages < $3)`,
		true, today, dailyGoal)
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder candidates: %v", err)
	}
	return users, nil
}

// Leaderboard returns the top users by weekly XP.
func (r *UserRepository) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	err := DB.SelectContext(ctx, &users,
		"SELECT * FROM users ORDER BY weekly_xp DESC, total_xp DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %v", err)
	}
	return users, nil
}
