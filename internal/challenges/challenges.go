package challenges

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/lingbot/internal/ai"
	"github.com/example/lingbot/internal/database"
	"github.com/example/lingbot/internal/engagement"
	"github.com/example/lingbot/pkg/models"
)

// XPRewards maps challenge difficulty to its base XP.
var XPRewards = map[string]int{
	"A1": 30,
	"A2": 50,
	"B1": 100,
}

// StreakBonusXP is granted per day of the challenge chain.
const StreakBonusXP = 10

// Formats lists the supported challenge formats. All of them are answered in
// text; voice challenges would need a transcription transport.
var Formats = []string{"text", "grammar", "vocabulary", "roleplay", "creative"}

// Topics is the rotating topic pool for generated challenges.
var Topics = []string{
	"Alltag", "Reisen", "Essen", "Arbeit", "Freizeit", "Familie", "Wetter", "Einkaufen",
}

// Service owns the daily-challenge flow: generation, evaluation, XP and badges.
type Service struct {
	users      *database.UserRepository
	challenges *database.ChallengeRepository
	engagement *engagement.Service
	gemini     *ai.Gemini
	clock      engagement.Clock
}

// New creates a challenge service. gemini may be nil; generation then uses a
// canned fallback task.
func New(eng *engagement.Service, gemini *ai.Gemini, clock engagement.Clock) *Service {
	if clock == nil {
		clock = engagement.SystemClock{}
	}
	return &Service{
		users:      database.NewUserRepository(),
		challenges: database.NewChallengeRepository(),
		engagement: eng,
		gemini:     gemini,
		clock:      clock,
	}
}

// TodaysChallenge returns the user's challenge for today, generating one on
// first request.
func (s *Service) TodaysChallenge(ctx context.Context, userID int64) (*models.Challenge, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %v", err)
	}

	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	existing, err := s.challenges.GetForDay(ctx, userID, today)
	if err == nil {
		return existing, nil
	}
	if err != database.ErrChallengeNotFound {
		return nil, err
	}

	format := Formats[int(now.Unix()/86400)%len(Formats)]
	topic := Topics[int(userID+now.Unix()/86400)%len(Topics)]

	text := s.generateText(user.Level, topic, format)
	c := &models.Challenge{
		ID:         uuid.NewString(),
		UserID:     userID,
		Date:       today,
		Format:     format,
		Topic:      topic,
		Difficulty: user.Level,
		Text:       text,
	}
	if err := s.challenges.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) generateText(level, topic, format string) string {
	if s.gemini != nil {
		text, err := s.gemini.GenerateChallenge(level, topic, format)
		if err == nil {
			return text
		}
		log.Printf("Error generating challenge: %v", err)
	}
	return fmt.Sprintf(
		"Напиши 3-5 предложений на немецком на тему «%s». Используй конструкции уровня %s.",
		topic, level,
	)
}

// CompletionResult describes what a completed challenge earned.
type CompletionResult struct {
	Score           int
	Feedback        string
	XPEarned        int
	BaseXP          int
	StreakBonus     int
	ChallengeStreak int
	NewBadges       []Badge
}

// Complete evaluates an answer, credits XP, advances the challenge chain and
// awards any newly earned badges.
func (s *Service) Complete(ctx context.Context, challengeID string, answer string) (*CompletionResult, error) {
	c, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if c.Completed {
		return nil, fmt.Errorf("challenge %s is already completed", c.ID)
	}

	user, err := s.users.GetByID(ctx, c.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %v", err)
	}

	score, feedback := 7, ""
	if s.gemini != nil {
		score, feedback, err = s.gemini.EvaluateResponse(c.Text, answer)
		if err != nil {
			log.Printf("Error evaluating challenge %s: %v", c.ID, err)
			score, feedback = 7, "Ответ принят."
		}
	}

	now := s.clock.Now()

	// Advance the challenge chain: contiguous day extends, anything else restarts
	streak := nextChainLength(user.ChallengeStreak, lastCompletionDay(ctx, s.challenges, user.ID, now), now)
	user.ChallengeStreak = streak
	if streak > user.BestChallengeStreak {
		user.BestChallengeStreak = streak
	}

	baseXP := XPRewards[c.Difficulty]
	if baseXP == 0 {
		baseXP = 50
	}
	bonus := StreakBonusXP * streak
	totalXP := baseXP + bonus

	c.Completed = true
	c.Score = score
	c.XPEarned = totalXP
	c.CompletedAt = &now
	if err := s.challenges.MarkCompleted(ctx, c); err != nil {
		return nil, err
	}
	if err := s.engagement.AddXP(ctx, user.ID, totalXP); err != nil {
		return nil, err
	}
	if err := s.saveChainCounters(ctx, user); err != nil {
		return nil, err
	}

	newBadges, err := s.awardBadges(ctx, user, c, now)
	if err != nil {
		return nil, err
	}

	log.Printf("Challenge %s completed: score=%d, xp=%d, streak=%d, badges=%d",
		c.ID, score, totalXP, streak, len(newBadges))

	return &CompletionResult{
		Score:           score,
		Feedback:        feedback,
		XPEarned:        totalXP,
		BaseXP:          baseXP,
		StreakBonus:     bonus,
		ChallengeStreak: streak,
		NewBadges:       newBadges,
	}, nil
}

// awardBadges evaluates the achievement conditions after a completion.
func (s *Service) awardBadges(ctx context.Context, user *models.User, c *models.Challenge, now time.Time) ([]Badge, error) {
	formatCount, err := s.challenges.CountCompletedByFormat(ctx, user.ID, c.Format)
	if err != nil {
		return nil, err
	}
	perfect, err := s.challenges.CountPerfect(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	stats := BadgeStats{
		ChallengeStreak: user.ChallengeStreak,
		FormatCounts:    map[string]int{c.Format: formatCount},
		PerfectCount:    perfect,
		CompletedAt:     now,
	}

	var granted []Badge
	for _, b := range EligibleBadges(nil, stats) {
		newly, err := s.engagement.GrantBadge(ctx, user.ID, b.ID)
		if err != nil {
			return nil, err
		}
		if newly {
			granted = append(granted, b)
			log.Printf("User %d earned badge: %s", user.ID, b.ID)
		}
	}
	return granted, nil
}

// nextChainLength computes the challenge-chain length after a completion now.
func nextChainLength(current int, lastDay *time.Time, now time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if lastDay == nil {
		return 1
	}
	switch {
	case lastDay.Equal(today):
		if current == 0 {
			return 1
		}
		return current
	case lastDay.Equal(today.AddDate(0, 0, -1)):
		return current + 1
	default:
		return 1
	}
}

func lastCompletionDay(ctx context.Context, repo *database.ChallengeRepository, userID int64, now time.Time) *time.Time {
	history, err := repo.History(ctx, userID, 1)
	if err != nil || len(history) == 0 || history[0].CompletedAt == nil {
		return nil
	}
	t := history[0].CompletedAt
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
	return &day
}

func (s *Service) saveChainCounters(ctx context.Context, user *models.User) error {
	_, err := database.DB.ExecContext(ctx, `
		UPDATE users SET
			challenge_streak = $1,
			best_challenge_streak = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3`,
		user.ChallengeStreak, user.BestChallengeStreak, user.ID)
	if err != nil {
		return fmt.Errorf("failed to save challenge streak: %v", err)
	}
	return nil
}
