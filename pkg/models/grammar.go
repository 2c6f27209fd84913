package models

import "time"

// GrammarExercise is one inline multiple-choice grammar task shown during
// conversation practice. UserAnswer stays nil until the user picks an option.
type GrammarExercise struct {
	ID            int64      `json:"id" db:"id"`
	UserID        int64      `json:"user_id" db:"user_id"`
	Topic         string     `json:"topic" db:"topic"` // articles, cases, perfekt, word_order, prepositions, adjectives
	Question      string     `json:"question" db:"question"`
	OptionA       string     `json:"option_a" db:"option_a"`
	OptionB       string     `json:"option_b" db:"option_b"`
	OptionC       string     `json:"option_c" db:"option_c"`
	CorrectAnswer string     `json:"correct_answer" db:"correct_answer"` // "A", "B" or "C"
	Rule          string     `json:"rule" db:"rule"`
	FollowUp      string     `json:"follow_up" db:"follow_up"`
	UserAnswer    *string    `json:"user_answer" db:"user_answer"`
	IsCorrect     *bool      `json:"is_correct" db:"is_correct"`
	AnsweredAt    *time.Time `json:"answered_at" db:"answered_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
