package grammar

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/example/lingbot/internal/ai"
	"github.com/example/lingbot/internal/database"
	"github.com/example/lingbot/internal/engagement"
	"github.com/example/lingbot/pkg/models"
)

// XPPerCorrectAnswer is credited for a correctly solved drill.
const XPPerCorrectAnswer = 10

// ErrAlreadyAnswered means the exercise was solved before.
var ErrAlreadyAnswered = errors.New("grammar exercise already answered")

// Topic describes one drillable grammar area.
type Topic struct {
	ID          string
	Name        string // Russian display name
	NameDE      string
	Description string
	Premium     bool
	Prompt      string // what to ask the model for
}

// Topics is the fixed drill catalogue; premium areas unlock with a
// subscription.
var Topics = []Topic{
	{ID: "articles", Name: "Артикли", NameDE: "Artikel", Description: "der/die/das", Prompt: "der/die/das артикль для существительного"},
	{ID: "cases", Name: "Падежи", NameDE: "Fälle", Description: "Nominativ/Akkusativ/Dativ", Prompt: "правильный падеж (Nominativ/Akkusativ/Dativ/Genitiv)"},
	{ID: "perfekt", Name: "Perfekt vs Präteritum", NameDE: "Perfekt/Präteritum", Description: "Выбор времени", Premium: true, Prompt: "правильная форма Perfekt или Präteritum"},
	{ID: "word_order", Name: "Порядок слов", NameDE: "Wortstellung", Description: "Структура предложения", Premium: true, Prompt: "правильный порядок слов в предложении"},
	{ID: "prepositions", Name: "Предлоги", NameDE: "Präpositionen", Description: "Предлоги + падежи", Premium: true, Prompt: "правильный предлог и/или падеж после предлога"},
	{ID: "adjectives", Name: "Склонение прилагательных", NameDE: "Adjektivdeklination", Description: "Окончания прилагательных", Premium: true, Prompt: "правильное окончание прилагательного"},
}

// TopicByID returns the catalogue entry, or nil.
func TopicByID(id string) *Topic {
	for i := range Topics {
		if Topics[i].ID == id {
			return &Topics[i]
		}
	}
	return nil
}

// Frequency controls how often a drill interrupts the conversation.
type Frequency struct {
	MinMessages int
	MaxMessages int
	Cooldown    time.Duration
}

// FrequencySettings maps the user preference to a cadence.
var FrequencySettings = map[string]Frequency{
	"rare":   {MinMessages: 8, MaxMessages: 12, Cooldown: 10 * time.Minute},
	"medium": {MinMessages: 5, MaxMessages: 7, Cooldown: 5 * time.Minute},
	"often":  {MinMessages: 3, MaxMessages: 5, Cooldown: 3 * time.Minute},
}

// ShouldTrigger decides whether the user's next message gets a drill.
// Questions are never interrupted; between MinMessages and MaxMessages the
// probability ramps up linearly, at MaxMessages it fires for sure.
func ShouldTrigger(user *models.User, isQuestion bool, now time.Time, roll float64) bool {
	if !user.GrammarEnabled {
		return false
	}
	if isQuestion {
		return false
	}

	freq, ok := FrequencySettings[user.GrammarFrequency]
	if !ok {
		freq = FrequencySettings["medium"]
	}

	if user.LastGrammarAt != nil && now.Sub(*user.LastGrammarAt) < freq.Cooldown {
		return false
	}
	if user.GrammarCounter < freq.MinMessages {
		return false
	}
	if user.GrammarCounter >= freq.MaxMessages {
		return true
	}

	probability := float64(user.GrammarCounter-freq.MinMessages+1) / float64(freq.MaxMessages-freq.MinMessages+1)
	return roll < probability
}

// IsQuestion reports whether the text looks like a question that should not
// be interrupted by a drill.
func IsQuestion(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if strings.HasSuffix(text, "?") {
		return true
	}

	questionWords := []string{
		"was", "wie", "wo", "wann", "warum", "wer", "welche", "welcher", "welches",
		"woher", "wohin", "weshalb", "wieso",
		"что", "как", "где", "когда", "почему", "кто", "какой", "сколько",
	}
	for _, word := range questionWords {
		if strings.HasPrefix(text, word+" ") || strings.HasPrefix(text, word+",") {
			return true
		}
	}
	return false
}

// AvailableTopics returns the drillable topic ids for the user's plan.
func AvailableTopics(premium bool) []string {
	ids := make([]string, 0, len(Topics))
	for _, t := range Topics {
		if !t.Premium || premium {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// DetectTopic picks a topic matching the conversation phrase. Articles is the
// default because it is the most universal drill.
func DetectTopic(text string) string {
	words := strings.Fields(strings.ToLower(text))
	has := func(candidates ...string) bool {
		for _, w := range words {
			for _, c := range candidates {
				if w == c {
					return true
				}
			}
		}
		return false
	}

	if has("der", "die", "das", "ein", "eine", "einen", "einem", "einer") {
		return "articles"
	}
	if has("habe", "hat", "haben", "bin", "ist", "sind", "gewesen", "gemacht", "gegangen") {
		return "perfekt"
	}
	if has("in", "an", "auf", "mit", "bei", "nach", "zu", "von", "aus", "für", "durch", "gegen", "ohne") {
		return "prepositions"
	}
	return "articles"
}

// ChooseTopic blends weak topics, conversation context and chance:
// weak topic 50%, context topic 30%, random 20%.
func ChooseTopic(weakTopics []string, contextPhrase string, premium bool, roll float64) string {
	available := AvailableTopics(premium)

	allowed := func(id string) bool {
		for _, a := range available {
			if a == id {
				return true
			}
		}
		return false
	}

	if roll < 0.5 {
		for _, id := range weakTopics {
			if allowed(id) {
				return id
			}
		}
	}
	if roll < 0.8 {
		if t := DetectTopic(contextPhrase); allowed(t) {
			return t
		}
	}
	return available[int(roll*1000)%len(available)]
}

// AnswerResult is what a solved drill yields.
type AnswerResult struct {
	IsCorrect     bool
	CorrectAnswer string
	CorrectOption string
	Rule          string
	FollowUp      string
	XPEarned      int
}

// Stats is the user's drill history summary.
type Stats struct {
	Total      int
	Correct    int
	Accuracy   float64
	WeakTopics []WeakTopic
}

// WeakTopic is a topic with under 70% accuracy over enough attempts.
type WeakTopic struct {
	TopicID  string
	Name     string
	Accuracy float64
	Total    int
}

// Service owns inline grammar drills: triggering, generation, answers, stats.
type Service struct {
	users      *database.UserRepository
	exercises  *database.GrammarExerciseRepository
	engagement *engagement.Service
	gemini     *ai.Gemini
	clock      engagement.Clock
}

// New creates a drill service. gemini may be nil; generation then uses a
// canned articles task.
func New(eng *engagement.Service, gemini *ai.Gemini, clock engagement.Clock) *Service {
	if clock == nil {
		clock = engagement.SystemClock{}
	}
	return &Service{
		users:      database.NewUserRepository(),
		exercises:  database.NewGrammarExerciseRepository(),
		engagement: eng,
		gemini:     gemini,
		clock:      clock,
	}
}

// MaybeGenerate bumps the user's message counter and, when the cadence says
// so, produces a drill from the current conversation phrase. Returns nil when
// no drill is due.
func (s *Service) MaybeGenerate(ctx context.Context, user *models.User, phrase string) (*models.GrammarExercise, error) {
	now := s.clock.Now()
	user.GrammarCounter++

	if !ShouldTrigger(user, IsQuestion(phrase), now, rand.Float64()) {
		return nil, s.users.UpdateGrammarState(ctx, user)
	}

	premium := user.PremiumUntil != nil && user.PremiumUntil.After(now)

	weak, err := s.WeakTopics(ctx, user.ID, 2)
	if err != nil {
		log.Printf("Error getting weak topics for user %d: %v", user.ID, err)
		weak = nil
	}
	weakIDs := make([]string, 0, len(weak))
	for _, w := range weak {
		weakIDs = append(weakIDs, w.TopicID)
	}

	topicID := ChooseTopic(weakIDs, phrase, premium, rand.Float64())
	topic := TopicByID(topicID)

	ex := s.generateExercise(user.Level, topic, phrase)
	ex.UserID = user.ID
	if err := s.exercises.Create(ctx, ex); err != nil {
		return nil, err
	}

	user.GrammarCounter = 0
	user.LastGrammarAt = &now
	if err := s.users.UpdateGrammarState(ctx, user); err != nil {
		return nil, err
	}
	return ex, nil
}

// generateExercise asks the model for a task, falling back to a canned
// articles drill when the model is unavailable or returns garbage.
func (s *Service) generateExercise(level string, topic *Topic, phrase string) *models.GrammarExercise {
	if s.gemini != nil {
		generated, err := s.gemini.GenerateGrammarExercise(level, topic.Prompt, phrase)
		if err == nil {
			return &models.GrammarExercise{
				Topic:         topic.ID,
				Question:      generated.Question,
				OptionA:       generated.OptionA,
				OptionB:       generated.OptionB,
				OptionC:       generated.OptionC,
				CorrectAnswer: generated.Correct,
				Rule:          generated.Rule,
				FollowUp:      generated.FollowUp,
			}
		}
		log.Printf("Error generating grammar exercise: %v", err)
	}

	return &models.GrammarExercise{
		Topic:         "articles",
		Question:      "Haus — какой артикль?",
		OptionA:       "der Haus",
		OptionB:       "die Haus",
		OptionC:       "das Haus",
		CorrectAnswer: "C",
		Rule:          "Haus — среднего рода: das Haus.",
		FollowUp:      "Und wie sieht dein Haus aus? 🏠",
	}
}

// Answer checks one picked option, records it and credits XP when correct.
func (s *Service) Answer(ctx context.Context, userID int64, exerciseID int64, answer string) (*AnswerResult, error) {
	ex, err := s.exercises.GetByID(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if ex.UserID != userID {
		return nil, database.ErrExerciseNotFound
	}
	if ex.UserAnswer != nil {
		return nil, ErrAlreadyAnswered
	}

	answer = strings.ToUpper(strings.TrimSpace(answer))
	correct := answer == ex.CorrectAnswer

	ex.UserAnswer = &answer
	ex.IsCorrect = &correct
	if err := s.exercises.SaveAnswer(ctx, ex, s.clock.Now()); err != nil {
		return nil, err
	}

	res := &AnswerResult{
		IsCorrect:     correct,
		CorrectAnswer: ex.CorrectAnswer,
		CorrectOption: optionText(ex, ex.CorrectAnswer),
		Rule:          ex.Rule,
		FollowUp:      ex.FollowUp,
	}
	if correct {
		res.XPEarned = XPPerCorrectAnswer
		if err := s.engagement.AddXP(ctx, userID, XPPerCorrectAnswer); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// optionText resolves a letter to the option it labels.
func optionText(ex *models.GrammarExercise, letter string) string {
	switch letter {
	case "A":
		return ex.OptionA
	case "B":
		return ex.OptionB
	case "C":
		return ex.OptionC
	}
	return ""
}

// SetEnabled flips the drill toggle.
func (s *Service) SetEnabled(ctx context.Context, user *models.User, enabled bool) error {
	user.GrammarEnabled = enabled
	return s.users.UpdateGrammarState(ctx, user)
}

// WeakTopics returns topics with under 70% accuracy over at least
// minExercises answered drills, weakest first.
func (s *Service) WeakTopics(ctx context.Context, userID int64, minExercises int) ([]WeakTopic, error) {
	stats, err := s.exercises.StatsByTopic(ctx, userID)
	if err != nil {
		return nil, err
	}
	return weakFromStats(stats, minExercises), nil
}

// weakFromStats filters and sorts topic stats into weak topics.
func weakFromStats(stats []database.TopicStat, minExercises int) []WeakTopic {
	var weak []WeakTopic
	for _, st := range stats {
		if st.Total < minExercises {
			continue
		}
		accuracy := float64(st.Correct) / float64(st.Total) * 100
		if accuracy >= 70 {
			continue
		}
		name := st.Topic
		if t := TopicByID(st.Topic); t != nil {
			name = t.Name
		}
		weak = append(weak, WeakTopic{TopicID: st.Topic, Name: name, Accuracy: accuracy, Total: st.Total})
	}
	for i := 1; i < len(weak); i++ {
		for j := i; j > 0 && weak[j].Accuracy < weak[j-1].Accuracy; j-- {
			weak[j], weak[j-1] = weak[j-1], weak[j]
		}
	}
	return weak
}

// GetStats assembles the drill summary shown by the bot.
func (s *Service) GetStats(ctx context.Context, userID int64) (*Stats, error) {
	total, correct, err := s.exercises.Totals(ctx, userID)
	if err != nil {
		return nil, err
	}
	weak, err := s.WeakTopics(ctx, userID, 3)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Total: total, Correct: correct, WeakTopics: weak}
	if total > 0 {
		stats.Accuracy = float64(correct) / float64(total) * 100
	}
	return stats, nil
}

// FormatQuestion renders an exercise for the chat.
func FormatQuestion(ex *models.GrammarExercise) string {
	t := TopicByID(ex.Topic)
	name := ex.Topic
	if t != nil {
		name = t.Name
	}
	return fmt.Sprintf("✏️ Минутка грамматики (%s):\n\n%s", name, ex.Question)
}
