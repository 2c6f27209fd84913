package srs

import (
	"math"
	"testing"
	"time"

	"github.com/example/lingbot/pkg/models"
)

const epsilon = 1e-9

func assertFloat(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > epsilon {
		t.Errorf("%s = %.4f, want %.4f", name, got, want)
	}
}

func TestParseQuality(t *testing.T) {
	for v := 1; v <= 4; v++ {
		if _, err := ParseQuality(v); err != nil {
			t.Errorf("ParseQuality(%d) returned error: %v", v, err)
		}
	}
	for _, v := range []int{0, 5, -1, 100} {
		if _, err := ParseQuality(v); err == nil {
			t.Errorf("ParseQuality(%d) expected error", v)
		}
	}
}

func TestAgainResetsIntervalKeepsEase(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, ef := range []float64{1.3, 2.0, 2.5, 3.1} {
		for _, ivl := range []float64{0, 1, 6, 15, 120} {
			rev := ScheduleNextReview(Again, ivl, ef, now)
			assertFloat(t, "interval after Again", rev.IntervalDays, 1)
			assertFloat(t, "ease after Again", rev.EaseFactor, ef)
		}
	}
}

func TestFirstIntervals(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	rev := ScheduleNextReview(Good, 0, 2.5, now)
	assertFloat(t, "interval for new card", rev.IntervalDays, 1)

	rev = ScheduleNextReview(Good, 1, 2.5, now)
	assertFloat(t, "second interval", rev.IntervalDays, 6)
}

func TestIntervalGrowth(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// 6 * 2.5 = 15; Good leaves a 2.5 ease factor unchanged:
	// 2.5 + (0.1 - 1*(0.08 + 1*0.02)) = 2.5
	rev := ScheduleNextReview(Good, 6, 2.5, now)
	assertFloat(t, "interval", rev.IntervalDays, 15)
	assertFloat(t, "ease", rev.EaseFactor, 2.5)

	wantNext := now.Add(time.Duration(15 * 24 * float64(time.Hour)))
	if !rev.NextReview.Equal(wantNext) {
		t.Errorf("next review = %v, want %v", rev.NextReview, wantNext)
	}
}

func TestEaseAdjustments(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		q        Quality
		ef       float64
		wantEase float64
	}{
		{Easy, 2.5, 2.6},  // q=5: +0.1
		{Good, 2.5, 2.5},  // q=4: +0
		{Hard, 2.5, 2.36}, // q=3: -0.14
		{Hard, 1.4, 1.3},  // clamped at the floor
		{Hard, 1.3, 1.3},
	}
	for _, tt := range tests {
		rev := ScheduleNextReview(tt.q, 6, tt.ef, now)
		assertFloat(t, "ease", rev.EaseFactor, tt.wantEase)
	}
}

func TestEaseNeverBelowFloor(t *testing.T) {
	now := time.Now()
	for _, q := range []Quality{Again, Hard, Good, Easy} {
		for ef := 1.3; ef < 3.0; ef += 0.07 {
			for _, ivl := range []float64{0, 1, 3, 10, 50} {
				rev := ScheduleNextReview(q, ivl, ef, now)
				if rev.EaseFactor < MinEaseFactor {
					t.Fatalf("ScheduleNextReview(%d, %v, %v) ease = %v, below floor", q, ivl, ef, rev.EaseFactor)
				}
				if rev.IntervalDays < 0 {
					t.Fatalf("negative interval %v", rev.IntervalDays)
				}
			}
		}
	}
}

func TestRounding(t *testing.T) {
	now := time.Now()
	// 7 * 2.33 = 16.31, already two decimals; 7 * 2.333 would not be, but ease
	// factors are themselves rounded so feed an awkward interval instead.
	rev := ScheduleNextReview(Good, 6.67, 2.36, now)
	assertFloat(t, "interval", rev.IntervalDays, 15.74) // 6.67 * 2.36 = 15.7412
	assertFloat(t, "ease", rev.EaseFactor, 2.36)
}

func TestApplyLearnedTransition(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	item := &models.VocabularyItem{
		UserID:     1,
		WordDE:     "der Hund",
		WordRU:     "собака",
		Interval:   10,
		EaseFactor: 2.5,
	}

	Apply(item, Good, now)

	if item.Interval != 25 {
		t.Fatalf("interval = %v, want 25", item.Interval)
	}
	if !item.Learned {
		t.Error("interval > 21 should mark the card learned")
	}
	if item.TimesSeen != 1 {
		t.Errorf("times seen = %d, want 1", item.TimesSeen)
	}
	if item.NextReview == nil {
		t.Fatal("next review not set")
	}
}

func TestApplyNotLearnedYet(t *testing.T) {
	now := time.Now()
	item := &models.VocabularyItem{Interval: 1, EaseFactor: 2.5}
	Apply(item, Good, now)
	if item.Learned {
		t.Error("6-day interval should not be learned")
	}
}

func TestSortDue(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	overdue := now.AddDate(0, 0, -3)
	lessOverdue := now.AddDate(0, 0, -1)

	items := []models.VocabularyItem{
		{ID: 1, TimesSeen: 4, EaseFactor: 2.5, NextReview: &lessOverdue},
		{ID: 2, TimesSeen: 0, EaseFactor: 2.5},
		{ID: 3, TimesSeen: 2, EaseFactor: 1.4, NextReview: &lessOverdue},
		{ID: 4, TimesSeen: 4, EaseFactor: 2.5, NextReview: &overdue},
	}

	got := SortDue(items)

	wantOrder := []int64{2, 3, 4, 1}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Fatalf("position %d: got card %d, want %d", i, got[i].ID, want)
		}
	}
}
