package models

import "time"

// User represents a Telegram user learning German with the bot.
// The streak/XP/freeze fields together form the user's engagement profile;
// they are owned by the engagement service and must not be mutated elsewhere.
type User struct {
	ID        int64  `json:"id" db:"id"` // Telegram User ID
	Username  string `json:"username" db:"username"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	IsAdmin   bool   `json:"is_admin" db:"is_admin"`
	Level     string `json:"level" db:"level"` // CEFR level: A1, A2, B1

	// Streak bookkeeping
	StreakDays       int        `json:"streak_days" db:"streak_days"`
	BestStreak       int        `json:"best_streak" db:"best_streak"`
	StreakStartDate  *time.Time `json:"streak_start_date" db:"streak_start_date"`
	LastActivityDate *time.Time `json:"last_activity_date" db:"last_activity_date"`

	// Daily goal progress, reset every calendar day
	DailyMessages  int        `json:"daily_messages" db:"daily_messages"`
	LastDailyReset *time.Time `json:"last_daily_reset" db:"last_daily_reset"`

	// Freeze token economy
	FreezeAvailable int        `json:"freeze_available" db:"freeze_available"`
	FreezeUsedAt    *time.Time `json:"freeze_used_at" db:"freeze_used_at"`
	FreezeWeekStart *time.Time `json:"freeze_week_start" db:"freeze_week_start"`

	// High-water mark of milestone thresholds already processed; only ever grows
	LastMilestoneDay int `json:"last_milestone_day" db:"last_milestone_day"`

	// XP accumulators
	TotalXP      int        `json:"total_xp" db:"total_xp"`
	WeeklyXP     int        `json:"weekly_xp" db:"weekly_xp"`
	MonthlyXP    int        `json:"monthly_xp" db:"monthly_xp"`
	XPWeekStart  *time.Time `json:"xp_week_start" db:"xp_week_start"`
	XPMonthStart *time.Time `json:"xp_month_start" db:"xp_month_start"`

	// Daily challenge chain, tracked separately from the message streak
	ChallengeStreak     int `json:"challenge_streak" db:"challenge_streak"`
	BestChallengeStreak int `json:"best_challenge_streak" db:"best_challenge_streak"`

	PremiumUntil    *time.Time `json:"premium_until" db:"premium_until"`
	ReminderEnabled bool       `json:"reminder_enabled" db:"reminder_enabled"`

	// Inline grammar drill cadence
	GrammarEnabled   bool       `json:"grammar_enabled" db:"grammar_enabled"`
	GrammarFrequency string     `json:"grammar_frequency" db:"grammar_frequency"` // rare, medium, often
	GrammarCounter   int        `json:"grammar_counter" db:"grammar_counter"`     // messages since the last drill
	LastGrammarAt    *time.Time `json:"last_grammar_at" db:"last_grammar_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
