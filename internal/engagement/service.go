package engagement

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/example/lingbot/pkg/models"
)

// Config controls the engagement rules for a deployment.
type Config struct {
	// DailyGoal is how many qualifying messages count a day towards the streak.
	DailyGoal int
	// WeeklyFreezeTokens is the number of freeze tokens restored each week.
	WeeklyFreezeTokens int
	// Location defines the deployment-wide calendar day.
	Location *time.Location
}

// DefaultConfig returns the engagement configuration, with env overrides
// DAILY_GOAL and WEEKLY_FREEZE_TOKENS.
func DefaultConfig() Config {
	cfg := Config{
		DailyGoal:          1,
		WeeklyFreezeTokens: 1,
		Location:           time.UTC,
	}
	if v := os.Getenv("DAILY_GOAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DailyGoal = n
		}
	}
	if v := os.Getenv("WEEKLY_FREEZE_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.WeeklyFreezeTokens = n
		}
	}
	return cfg
}

// Service owns per-user streak continuity, the freeze-token economy and
// milestone reward issuance.
type Service struct {
	store Store
	clock Clock
	cfg   Config
}

// New creates an engagement service over the given store and clock.
func New(store Store, clock Clock, cfg Config) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.DailyGoal <= 0 {
		cfg.DailyGoal = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{store: store, clock: clock, cfg: cfg}
}

// ActivityResult describes what a single qualifying activity changed.
type ActivityResult struct {
	DailyGoalReached bool
	DailyMessages    int
	StreakChanged    bool
	StreakReset      bool
	StreakDays       int
	FreezeUsed       bool
	// Milestone is non-nil when this call crossed a new threshold.
	Milestone *Milestone
}

// RecordActivity registers one qualifying user action. The whole transition
// runs inside a single store transaction so a milestone grant and the profile
// mutation commit as one unit; the reward-record existence check additionally
// keeps the grant idempotent if the call is retried after a crash.
func (s *Service) RecordActivity(ctx context.Context, userID int64) (*ActivityResult, error) {
	now := s.clock.Now()
	res := &ActivityResult{}

	err := s.store.Transact(ctx, func(tx Store) error {
		user, err := tx.GetProfile(ctx, userID)
		if err != nil {
			return err
		}

		today := s.dateOf(now)

		// New calendar day: reset the daily counter before counting
		if user.LastDailyReset == nil || !user.LastDailyReset.Equal(today) {
			user.DailyMessages = 0
			user.LastDailyReset = &today
		}
		user.DailyMessages++
		res.DailyMessages = user.DailyMessages
		res.StreakDays = user.StreakDays

		if user.DailyMessages < s.cfg.DailyGoal {
			// Goal not met yet: streak fields stay untouched
			return tx.SaveProfile(ctx, user)
		}
		res.DailyGoalReached = true

		yesterday := today.AddDate(0, 0, -1)
		switch {
		case user.LastActivityDate == nil:
			// First qualifying day ever
			user.StreakDays = 1
			user.StreakStartDate = &today
			res.StreakChanged = true

		case user.LastActivityDate.Equal(today):
			// Already counted today: idempotent re-entry, milestone check still runs

		case user.LastActivityDate.Equal(yesterday):
			user.StreakDays++
			res.StreakChanged = true

		default:
			// Gap of two or more days: a freeze can bridge exactly one miss
			if s.tryConsumeFreeze(user, today) {
				user.StreakDays++
				res.StreakChanged = true
				res.FreezeUsed = true
			} else {
				user.StreakDays = 1
				user.StreakStartDate = &today
				res.StreakChanged = true
				res.StreakReset = true
			}
		}

		if user.StreakDays > user.BestStreak {
			user.BestStreak = user.StreakDays
		}
		user.LastActivityDate = &today
		res.StreakDays = user.StreakDays

		milestone, err := s.checkMilestones(ctx, tx, user, now)
		if err != nil {
			return err
		}
		res.Milestone = milestone

		return tx.SaveProfile(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// tryConsumeFreeze spends one freeze token unless one was already used today.
func (s *Service) tryConsumeFreeze(user *models.User, today time.Time) bool {
	if user.FreezeAvailable <= 0 {
		return false
	}
	if user.FreezeUsedAt != nil && s.dateOf(*user.FreezeUsedAt).Equal(today) {
		return false
	}
	user.FreezeAvailable--
	used := s.clock.Now()
	user.FreezeUsedAt = &used
	return true
}

// checkMilestones grants at most one newly crossed threshold. The reward
// record is the authoritative idempotency guard: the high-water mark alone is
// not crash-safe across a partial write, so an existing record only advances
// the mark without re-granting.
func (s *Service) checkMilestones(ctx context.Context, tx Store, user *models.User, now time.Time) (*Milestone, error) {
	var m *Milestone
	for i := range Milestones {
		if user.StreakDays >= Milestones[i].Days && user.LastMilestoneDay < Milestones[i].Days {
			m = &Milestones[i]
			break
		}
	}
	if m == nil {
		return nil, nil
	}

	exists, err := tx.RewardExists(ctx, user.ID, m.Days)
	if err != nil {
		return nil, fmt.Errorf("failed to check milestone reward: %w", err)
	}
	if exists {
		// Granted by an earlier call whose mark update was lost
		user.LastMilestoneDay = m.Days
		return nil, nil
	}

	if err := tx.CreateReward(ctx, &models.StreakReward{
		UserID:       user.ID,
		MilestoneDay: m.Days,
		BadgeID:      m.BadgeID,
		XPEarned:     m.XP,
		FreezeEarned: m.FreezeBonus,
		PremiumDays:  m.PremiumDays,
	}); err != nil {
		return nil, fmt.Errorf("failed to create milestone reward: %w", err)
	}
	if err := tx.CreateBadge(ctx, &models.UserBadge{
		UserID:  user.ID,
		BadgeID: m.BadgeID,
	}); err != nil {
		return nil, fmt.Errorf("failed to create milestone badge: %w", err)
	}

	user.TotalXP += m.XP
	user.WeeklyXP += m.XP
	user.MonthlyXP += m.XP
	user.FreezeAvailable += m.FreezeBonus
	if m.PremiumDays > 0 {
		from := now
		if user.PremiumUntil != nil && user.PremiumUntil.After(now) {
			from = *user.PremiumUntil
		}
		until := from.AddDate(0, 0, m.PremiumDays)
		user.PremiumUntil = &until
	}
	user.LastMilestoneDay = m.Days

	return m, nil
}

// UseFreeze arms a freeze token manually, ahead of an anticipated missed day.
// Same one-per-day constraint as automatic consumption.
func (s *Service) UseFreeze(ctx context.Context, userID int64) (remaining int, err error) {
	now := s.clock.Now()
	err = s.store.Transact(ctx, func(tx Store) error {
		user, err := tx.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		if user.FreezeAvailable <= 0 {
			return ErrNoFreezeAvailable
		}
		today := s.dateOf(now)
		if user.FreezeUsedAt != nil && s.dateOf(*user.FreezeUsedAt).Equal(today) {
			remaining = user.FreezeAvailable
			return ErrFreezeAlreadyUsed
		}
		user.FreezeAvailable--
		user.FreezeUsedAt = &now
		remaining = user.FreezeAvailable
		return tx.SaveProfile(ctx, user)
	})
	return remaining, err
}

// AddXP credits XP earned outside of milestones (flashcard reviews, challenges)
// to all three accumulators.
func (s *Service) AddXP(ctx context.Context, userID int64, xp int) error {
	return s.store.Transact(ctx, func(tx Store) error {
		user, err := tx.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		user.TotalXP += xp
		user.WeeklyXP += xp
		user.MonthlyXP += xp
		return tx.SaveProfile(ctx, user)
	})
}

// ResetWeeklyFreeze tops the user's freeze tokens back up once a week.
// Called by the scheduler; a no-op until seven days have passed.
func (s *Service) ResetWeeklyFreeze(ctx context.Context, userID int64) error {
	now := s.clock.Now()
	return s.store.Transact(ctx, func(tx Store) error {
		user, err := tx.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		today := s.dateOf(now)
		if user.FreezeWeekStart != nil && today.Sub(*user.FreezeWeekStart) < 7*24*time.Hour {
			return nil
		}
		user.FreezeAvailable = s.cfg.WeeklyFreezeTokens
		user.FreezeWeekStart = &today
		return tx.SaveProfile(ctx, user)
	})
}

// RolloverXPWindows zeroes the weekly and monthly XP accumulators when their
// windows lapse. Called daily by the scheduler.
func (s *Service) RolloverXPWindows(ctx context.Context, userID int64) error {
	now := s.clock.Now()
	return s.store.Transact(ctx, func(tx Store) error {
		user, err := tx.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		today := s.dateOf(now)
		changed := false

		if user.XPWeekStart == nil || today.Sub(*user.XPWeekStart) >= 7*24*time.Hour {
			user.WeeklyXP = 0
			user.XPWeekStart = &today
			changed = true
		}
		monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.cfg.Location)
		if user.XPMonthStart == nil || user.XPMonthStart.Before(monthStart) {
			user.MonthlyXP = 0
			user.XPMonthStart = &monthStart
			changed = true
		}

		if !changed {
			return nil
		}
		return tx.SaveProfile(ctx, user)
	})
}

// dateOf truncates a timestamp to its calendar day in the configured location.
func (s *Service) dateOf(t time.Time) time.Time {
	y, m, d := t.In(s.cfg.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.cfg.Location)
}
