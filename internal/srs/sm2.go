package srs

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/example/lingbot/pkg/models"
)

// Quality is one of the four review buttons shown to the user.
type Quality int

const (
	Again Quality = 1
	Hard  Quality = 2
	Good  Quality = 3
	Easy  Quality = 4
)

// ErrInvalidQuality is returned by ParseQuality for anything outside the four buttons.
var ErrInvalidQuality = errors.New("quality must be one of 1=Again, 2=Hard, 3=Good, 4=Easy")

const (
	// MinEaseFactor is the SM-2 floor for the easiness factor.
	MinEaseFactor = 1.3
	// InitialEaseFactor is assigned to newly created cards.
	InitialEaseFactor = 2.5
	// LearnedThresholdDays: once the interval grows past three weeks the card
	// counts as learned.
	LearnedThresholdDays = 21.0
)

// Valid reports whether q is one of the four accepted buttons.
func (q Quality) Valid() bool {
	return q >= Again && q <= Easy
}

// ParseQuality validates a raw button value coming from the transport layer.
func ParseQuality(v int) (Quality, error) {
	q := Quality(v)
	if !q.Valid() {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidQuality, v)
	}
	return q, nil
}

// sm2Grade maps the four buttons onto the classical 0-5 SM-2 scale:
// Again -> 0, Hard -> 3, Good -> 4, Easy -> 5.
func (q Quality) sm2Grade() int {
	switch q {
	case Again:
		return 0
	case Hard:
		return 3
	case Good:
		return 4
	default:
		return 5
	}
}

// Review holds the scheduling parameters computed after a single review.
type Review struct {
	IntervalDays float64
	EaseFactor   float64
	NextReview   time.Time
}

// ScheduleNextReview runs one SM-2 step. Pure function: the caller persists the
// result, bumps the exposure count and applies the learned-flag transition.
//
// Interval and ease factor are rounded to 2 decimal places before returning;
// the rounding slightly changes long-run interval growth and is part of the
// documented behavior, not cosmetics.
func ScheduleNextReview(q Quality, intervalDays, easeFactor float64, now time.Time) Review {
	grade := q.sm2Grade()

	newInterval := 1.0
	newEase := easeFactor

	if grade >= 3 {
		// Successful recall
		switch intervalDays {
		case 0:
			newInterval = 1
		case 1:
			newInterval = 6
		default:
			newInterval = intervalDays * easeFactor
		}
		// EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02))
		g := float64(grade)
		newEase = easeFactor + (0.1 - (5-g)*(0.08+(5-g)*0.02))
	}
	// Again: interval back to 1 day, ease factor untouched

	if newEase < MinEaseFactor {
		newEase = MinEaseFactor
	}

	newInterval = round2(newInterval)
	newEase = round2(newEase)

	return Review{
		IntervalDays: newInterval,
		EaseFactor:   newEase,
		NextReview:   now.Add(time.Duration(newInterval * 24 * float64(time.Hour))),
	}
}

// IsLearned reports whether an interval length means the card is mastered.
func IsLearned(intervalDays float64) bool {
	return intervalDays > LearnedThresholdDays
}

// Apply runs one SM-2 step against a vocabulary item and mutates its
// scheduling fields in place. The owner check belongs to the caller.
func Apply(item *models.VocabularyItem, q Quality, now time.Time) Review {
	rev := ScheduleNextReview(q, item.Interval, item.EaseFactor, now)
	item.Interval = rev.IntervalDays
	item.EaseFactor = rev.EaseFactor
	next := rev.NextReview
	item.NextReview = &next
	item.TimesSeen++
	if IsLearned(item.Interval) {
		item.Learned = true
	}
	return rev
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
