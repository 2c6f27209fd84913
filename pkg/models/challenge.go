package models

import "time"

// Challenge is a daily practice task generated for a user.
type Challenge struct {
	ID          string     `json:"id" db:"id"` // UUID
	UserID      int64      `json:"user_id" db:"user_id"`
	Date        time.Time  `json:"date" db:"date"` // calendar day the challenge belongs to
	Format      string     `json:"format" db:"format"` // text, grammar, vocabulary, roleplay, creative
	Topic       string     `json:"topic" db:"topic"`
	Difficulty  string     `json:"difficulty" db:"difficulty"` // CEFR level the task targets
	Text        string     `json:"text" db:"text"`
	Completed   bool       `json:"completed" db:"completed"`
	Score       int        `json:"score" db:"score"` // 0-10, set on completion
	XPEarned    int        `json:"xp_earned" db:"xp_earned"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
