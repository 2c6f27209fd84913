package models

import "time"

// PlacementResult records one finished level placement test.
type PlacementResult struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	LevelResult    string    `json:"level_result" db:"level_result"` // assigned CEFR level
	QuestionsTotal int       `json:"questions_total" db:"questions_total"`
	CorrectTotal   int       `json:"correct_total" db:"correct_total"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
