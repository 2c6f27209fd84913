package models

import "time"

// StreakReward is the immutable record of a streak milestone crossing.
// At most one record exists per (user, milestone day); this uniqueness is the
// idempotency guarantee for milestone grants.
type StreakReward struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	MilestoneDay int       `json:"milestone_day" db:"milestone_day"`
	BadgeID      string    `json:"badge_id" db:"badge_id"`
	XPEarned     int       `json:"xp_earned" db:"xp_earned"`
	FreezeEarned int       `json:"freeze_earned" db:"freeze_earned"`
	PremiumDays  int       `json:"premium_days" db:"premium_days"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// UserBadge marks a badge grant in the generic achievement namespace.
// Same at-most-once-per-(user, badge) rule as StreakReward.
type UserBadge struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	BadgeID   string    `json:"badge_id" db:"badge_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
