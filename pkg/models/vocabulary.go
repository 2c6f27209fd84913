package models

import "time"

// VocabularyItem is a flashcard-like unit of vocabulary owned by a single user.
// Interval and EaseFactor are mutated exclusively by the SM-2 scheduler after
// each review. A nil NextReview means the card is due now.
type VocabularyItem struct {
	ID          int64      `json:"id" db:"id"`
	UserID      int64      `json:"user_id" db:"user_id"`
	WordDE      string     `json:"word_de" db:"word_de"`
	WordRU      string     `json:"word_ru" db:"word_ru"`
	Example     string     `json:"example" db:"example"`
	TimesSeen   int        `json:"times_seen" db:"times_seen"`
	Learned     bool       `json:"learned" db:"learned"`
	Interval    float64    `json:"interval" db:"interval"`       // days until next exposure, 0 = new
	EaseFactor  float64    `json:"ease_factor" db:"ease_factor"` // SM-2 EF, never below 1.3
	NextReview  *time.Time `json:"next_review" db:"next_review"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
