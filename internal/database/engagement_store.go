package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/lingbot/internal/engagement"
	"github.com/example/lingbot/pkg/models"
)

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx, so the same store code
// runs inside and outside a transaction.
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// EngagementStore implements engagement.Store on top of sqlx.
type EngagementStore struct {
	q      queryer
	driver string
	inTx   bool
}

// NewEngagementStore creates a store over the global connection.
func NewEngagementStore() *EngagementStore {
	return &EngagementStore{q: DB, driver: DB.DriverName()}
}

// Transact runs fn in a transaction. On postgres the profile read takes a row
// lock, so concurrent activity events for the same user serialize here;
// SQLite has a single writer anyway.
func (s *EngagementStore) Transact(ctx context.Context, fn func(engagement.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	if err := fn(&EngagementStore{q: tx, driver: s.driver, inTx: true}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetProfile loads a user row. Inside a postgres transaction the row is
// locked until commit.
func (s *EngagementStore) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	query := "SELECT * FROM users WHERE id = $1"
	if s.inTx && s.driver == "postgres" {
		query += " FOR UPDATE"
	}
	var user models.User
	err := s.q.GetContext(ctx, &user, query, userID)
	if err == sql.ErrNoRows {
		return nil, engagement.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %v", userID, err)
	}
	return &user, nil
}

// SaveProfile writes back every engagement field of the user row.
func (s *EngagementStore) SaveProfile(ctx context.Context, user *models.User) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE users SET
			username = $1,
			first_name = $2,
			last_name = $3,
			level = $4,
			streak_days = $5,
			best_streak = $6,
			streak_start_date = $7,
			last_activity_date = $8,
			daily_messages = $9,
			last_daily_reset = $10,
			freeze_available = $11,
			freeze_used_at = $12,
			freeze_week_start = $13,
			last_milestone_day = $14,
			total_xp = $15,
			weekly_xp = $16,
			monthly_xp = $17,
			xp_week_start = $18,
			xp_month_start = $19,
			challenge_streak = $20,
			best_challenge_streak = $21,
			premium_until = $22,
			reminder_enabled = $23,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $24`,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Level,
		user.StreakDays,
		user.BestStreak,
		user.StreakStartDate,
		user.LastActivityDate,
		user.DailyMessages,
		user.LastDailyReset,
		user.FreezeAvailable,
		user.FreezeUsedAt,
		user.FreezeWeekStart,
		user.LastMilestoneDay,
		user.TotalXP,
		user.WeeklyXP,
		user.MonthlyXP,
		user.XPWeekStart,
		user.XPMonthStart,
		user.ChallengeStreak,
		user.BestChallengeStreak,
		user.PremiumUntil,
		user.ReminderEnabled,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save user %d: %v", user.ID, err)
	}
	return nil
}

// RewardExists checks for an existing milestone reward record.
func (s *EngagementStore) RewardExists(ctx context.Context, userID int64, milestoneDay int) (bool, error) {
	var count int
	err := s.q.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM streak_rewards WHERE user_id = $1 AND milestone_day = $2",
		userID, milestoneDay)
	if err != nil {
		return false, fmt.Errorf("failed to check reward: %v", err)
	}
	return count > 0, nil
}

// CreateReward inserts a milestone reward record. The unique
// (user_id, milestone_day) index rejects duplicates.
func (s *EngagementStore) CreateReward(ctx context.Context, reward *models.StreakReward) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO streak_rewards (user_id, milestone_day, badge_id, xp_earned, freeze_earned, premium_days)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		reward.UserID,
		reward.MilestoneDay,
		reward.BadgeID,
		reward.XPEarned,
		reward.FreezeEarned,
		reward.PremiumDays,
	)
	if err != nil {
		return fmt.Errorf("failed to create reward: %v", err)
	}
	return nil
}

// ListRewards returns a user's milestone rewards ordered by threshold.
func (s *EngagementStore) ListRewards(ctx context.Context, userID int64) ([]models.StreakReward, error) {
	var rewards []models.StreakReward
	err := s.q.SelectContext(ctx, &rewards,
		"SELECT * FROM streak_rewards WHERE user_id = $1 ORDER BY milestone_day ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %v", err)
	}
	return rewards, nil
}

// BadgeExists checks the generic badge namespace.
func (s *EngagementStore) BadgeExists(ctx context.Context, userID int64, badgeID string) (bool, error) {
	var count int
	err := s.q.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM user_badges WHERE user_id = $1 AND badge_id = $2",
		userID, badgeID)
	if err != nil {
		return false, fmt.Errorf("failed to check badge: %v", err)
	}
	return count > 0, nil
}

// CreateBadge inserts a badge grant marker.
func (s *EngagementStore) CreateBadge(ctx context.Context, badge *models.UserBadge) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO user_badges (user_id, badge_id) VALUES ($1, $2)",
		badge.UserID, badge.BadgeID)
	if err != nil {
		return fmt.Errorf("failed to create badge: %v", err)
	}
	return nil
}
