package placement

import (
	"context"
	"fmt"

	"github.com/example/lingbot/internal/database"
	"github.com/example/lingbot/pkg/models"
)

// Levels is the CEFR ladder the test walks, easiest first. It stops at B1,
// the highest level the tutoring content targets.
var Levels = []string{"A1", "A2", "B1"}

// Question is one multiple-choice placement question.
type Question struct {
	Level        string
	Text         string
	Options      []string
	CorrectIndex int
}

// Session tracks one user's test in progress. The test is adaptive: a block
// of questions per level, promotion on a strong score, stop otherwise.
type Session struct {
	LevelIdx     int
	BlockIdx     int
	LevelScore   int
	TotalAsked   int
	TotalCorrect int
}

// Outcome is the finished test verdict.
type Outcome struct {
	Level        string
	Reason       string
	TotalAsked   int
	TotalCorrect int
}

// blockQuestions returns the question pool for one level.
func blockQuestions(level string) []Question {
	var pool []Question
	for _, q := range Bank {
		if q.Level == level {
			pool = append(pool, q)
		}
	}
	return pool
}

// CurrentQuestion returns the question the session is waiting on, or nil when
// the pool is exhausted.
func (s *Session) CurrentQuestion() *Question {
	pool := blockQuestions(Levels[s.LevelIdx])
	if s.BlockIdx >= len(pool) {
		return nil
	}
	q := pool[s.BlockIdx]
	return &q
}

// Advance consumes one answer. It returns a non-nil Outcome when the test is
// over; otherwise the session has moved to the next question or level.
//
// Block verdicts: 70%+ correct promotes to the next level, 50%+ assigns the
// current level, anything less falls back to the previous one.
func (s *Session) Advance(correct bool) *Outcome {
	s.TotalAsked++
	if correct {
		s.LevelScore++
		s.TotalCorrect++
	}
	s.BlockIdx++

	pool := blockQuestions(Levels[s.LevelIdx])
	if s.BlockIdx < len(pool) {
		return nil
	}

	level := Levels[s.LevelIdx]
	score, total := s.LevelScore, len(pool)

	switch {
	case score*10 >= total*7:
		if s.LevelIdx < len(Levels)-1 {
			s.LevelIdx++
			s.BlockIdx = 0
			s.LevelScore = 0
			return nil
		}
		return s.finish(level, "Ты прошёл все уровни до конца! 🏆")

	case score*10 >= total*5:
		return s.finish(level, fmt.Sprintf("Ты неплохо знаешь %s, но для следующего уровня нужно чуть больше практики. 📚", level))

	default:
		final := "A1"
		if s.LevelIdx > 0 {
			final = Levels[s.LevelIdx-1]
		}
		return s.finish(final, fmt.Sprintf("Уровень %s пока сложноват. Начнём с более комфортного %s. 💪", level, final))
	}
}

func (s *Session) finish(level, reason string) *Outcome {
	return &Outcome{
		Level:        level,
		Reason:       reason,
		TotalAsked:   s.TotalAsked,
		TotalCorrect: s.TotalCorrect,
	}
}

// Service persists finished tests and updates the user's level.
type Service struct {
	users   *database.UserRepository
	results *database.PlacementResultRepository
}

// New creates a placement service.
func New() *Service {
	return &Service{
		users:   database.NewUserRepository(),
		results: database.NewPlacementResultRepository(),
	}
}

// Finish writes the outcome: one history row plus the user's new level.
func (s *Service) Finish(ctx context.Context, userID int64, outcome *Outcome) error {
	if err := s.results.Create(ctx, &models.PlacementResult{
		UserID:         userID,
		LevelResult:    outcome.Level,
		QuestionsTotal: outcome.TotalAsked,
		CorrectTotal:   outcome.TotalCorrect,
	}); err != nil {
		return err
	}
	return s.users.UpdateLevel(ctx, userID, outcome.Level)
}
