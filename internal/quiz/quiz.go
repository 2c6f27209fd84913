package quiz

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/example/lingbot/internal/database"
	"github.com/example/lingbot/internal/engagement"
	"github.com/example/lingbot/pkg/models"
)

// QuizType represents different types of vocabulary quizzes
type QuizType string

const (
	// MultipleChoice represents a quiz where the user picks the translation
	MultipleChoice QuizType = "multiple_choice"
	// TextInput represents a quiz where the user types the translation
	TextInput QuizType = "text_input"
)

// XPPerCorrectAnswer is credited for every correctly answered question.
const XPPerCorrectAnswer = 5

// Question is a single quiz question built from one vocabulary card.
type Question struct {
	Item         models.VocabularyItem // the card being tested
	Options      []string              // possible answers (multiple choice only)
	CorrectIndex int                   // index of the correct answer in Options
	QuizType     QuizType
}

// Module builds quizzes from the user's vocabulary and records results.
type Module struct {
	vocab      *database.VocabularyRepository
	results    *database.QuizResultRepository
	engagement *engagement.Service
}

// New creates a quiz module.
func New(engagementSvc *engagement.Service) *Module {
	return &Module{
		vocab:      database.NewVocabularyRepository(),
		results:    database.NewQuizResultRepository(),
		engagement: engagementSvc,
	}
}

// CreateQuiz generates up to questionCount questions from the user's cards.
// Multiple-choice distractors are drawn from the same sample so small
// vocabularies still produce answerable questions.
func (m *Module) CreateQuiz(ctx context.Context, userID int64, questionCount int, quizType QuizType) ([]Question, error) {
	// Oversample so there are enough cards for distractors
	items, err := m.vocab.GetRandomForUser(ctx, userID, questionCount*4)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	rnd.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})

	n := questionCount
	if n > len(items) {
		n = len(items)
	}

	questions := make([]Question, 0, n)
	for _, item := range items[:n] {
		q := Question{
			Item:     item,
			QuizType: quizType,
		}
		if quizType == MultipleChoice {
			options, correctIndex := buildOptions(rnd, item, items, 3)
			q.Options = options
			q.CorrectIndex = correctIndex
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// CheckTextAnswer compares the typed answer against the Russian translation,
// ignoring case and surrounding whitespace.
func CheckTextAnswer(q Question, answer string) bool {
	want := strings.ToLower(strings.TrimSpace(q.Item.WordRU))
	got := strings.ToLower(strings.TrimSpace(answer))
	if want == got {
		return true
	}
	// Cards may list several translations separated by commas
	for _, variant := range strings.Split(want, ",") {
		if strings.TrimSpace(variant) == got {
			return true
		}
	}
	return false
}

// SaveResult records the quiz outcome and credits XP for correct answers.
func (m *Module) SaveResult(ctx context.Context, userID int64, quizType QuizType, total, correct, durationSec int) error {
	result := &models.QuizResult{
		UserID:       userID,
		QuizType:     string(quizType),
		TotalWords:   total,
		CorrectWords: correct,
		Duration:     durationSec,
	}
	if err := m.results.Create(ctx, result); err != nil {
		return err
	}
	if correct > 0 {
		return m.engagement.AddXP(ctx, userID, correct*XPPerCorrectAnswer)
	}
	return nil
}

// History returns the user's past quiz results.
func (m *Module) History(ctx context.Context, userID int64) ([]models.QuizResult, error) {
	return m.results.GetByUserID(ctx, userID)
}

// buildOptions picks count distractor translations from pool and mixes in the
// correct one, returning the shuffled options and the correct index.
func buildOptions(rnd *rand.Rand, item models.VocabularyItem, pool []models.VocabularyItem, count int) ([]string, int) {
	options := make([]string, 0, count+1)
	seen := map[string]bool{item.WordRU: true}
	for _, w := range pool {
		if len(options) == count {
			break
		}
		if w.ID == item.ID || seen[w.WordRU] {
			continue
		}
		seen[w.WordRU] = true
		options = append(options, w.WordRU)
	}

	options = append(options, item.WordRU)
	correctIndex := len(options) - 1
	rnd.Shuffle(len(options), func(i, j int) {
		if i == correctIndex {
			correctIndex = j
		} else if j == correctIndex {
			correctIndex = i
		}
		options[i], options[j] = options[j], options[i]
	})
	return options, correctIndex
}
