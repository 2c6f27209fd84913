package grammar

import (
	"testing"
	"time"

	"github.com/example/lingbot/internal/database"
	"github.com/example/lingbot/pkg/models"
)

func drillUser(counter int, freq string) *models.User {
	return &models.User{
		ID:               1,
		GrammarEnabled:   true,
		GrammarFrequency: freq,
		GrammarCounter:   counter,
	}
}

func TestShouldTriggerDisabled(t *testing.T) {
	u := drillUser(20, "medium")
	u.GrammarEnabled = false
	if ShouldTrigger(u, false, time.Now(), 0.0) {
		t.Error("disabled drills must never trigger")
	}
}

func TestShouldTriggerNeverInterruptsQuestions(t *testing.T) {
	u := drillUser(20, "medium")
	if ShouldTrigger(u, true, time.Now(), 0.0) {
		t.Error("a question must not be interrupted by a drill")
	}
}

func TestShouldTriggerBelowMinimum(t *testing.T) {
	// medium cadence needs at least 5 messages
	u := drillUser(4, "medium")
	if ShouldTrigger(u, false, time.Now(), 0.0) {
		t.Error("expected no drill below the minimum message count")
	}
}

func TestShouldTriggerAtMaximum(t *testing.T) {
	// at 7 messages the medium cadence always fires
	u := drillUser(7, "medium")
	if !ShouldTrigger(u, false, time.Now(), 0.99) {
		t.Error("expected a guaranteed drill at the maximum message count")
	}
}

func TestShouldTriggerProbabilityRamp(t *testing.T) {
	// at 5 messages the medium cadence fires with probability 1/3
	u := drillUser(5, "medium")
	if !ShouldTrigger(u, false, time.Now(), 0.1) {
		t.Error("expected a drill for a roll below the ramp probability")
	}
	if ShouldTrigger(u, false, time.Now(), 0.9) {
		t.Error("expected no drill for a roll above the ramp probability")
	}
}

func TestShouldTriggerCooldown(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-2 * time.Minute)

	u := drillUser(10, "medium")
	u.LastGrammarAt = &recent
	if ShouldTrigger(u, false, now, 0.0) {
		t.Error("expected the 5-minute cooldown to suppress the drill")
	}

	old := now.Add(-10 * time.Minute)
	u.LastGrammarAt = &old
	if !ShouldTrigger(u, false, now, 0.0) {
		t.Error("expected a drill once the cooldown has passed")
	}
}

func TestShouldTriggerUnknownFrequencyFallsBack(t *testing.T) {
	u := drillUser(7, "sometimes")
	if !ShouldTrigger(u, false, time.Now(), 0.99) {
		t.Error("unknown frequency should use the medium cadence")
	}
}

func TestIsQuestion(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Wie geht es dir", true},
		{"was bedeutet das Wort", true},
		{"Ich habe heute gearbeitet?", true},
		{"почему так", true},
		{"Ich gehe ins Kino", false},
		{"Das Wetter ist schön", false},
	}
	for _, c := range cases {
		if got := IsQuestion(c.text); got != c.want {
			t.Errorf("IsQuestion(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestDetectTopic(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Ich sehe der Hund", "articles"},
		{"Ich habe gestern gearbeitet", "perfekt"},
		{"Wir fahren mit dem Bus", "prepositions"},
		{"Schönes Wetter heute", "articles"},
	}
	for _, c := range cases {
		if got := DetectTopic(c.text); got != c.want {
			t.Errorf("DetectTopic(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestAvailableTopicsByPlan(t *testing.T) {
	free := AvailableTopics(false)
	if len(free) != 2 {
		t.Fatalf("expected 2 free topics, got %d (%v)", len(free), free)
	}
	premium := AvailableTopics(true)
	if len(premium) != len(Topics) {
		t.Fatalf("expected all %d topics for premium, got %d", len(Topics), len(premium))
	}
}

func TestChooseTopicPrefersWeakTopics(t *testing.T) {
	got := ChooseTopic([]string{"cases"}, "Ich gehe ins Kino", false, 0.1)
	if got != "cases" {
		t.Errorf("expected the weak topic, got %q", got)
	}
}

func TestChooseTopicSkipsLockedWeakTopics(t *testing.T) {
	// perfekt is premium; a free user must not be drilled on it
	got := ChooseTopic([]string{"perfekt"}, "Ich habe gegessen", false, 0.1)
	if got == "perfekt" {
		t.Error("a free user must not get a premium topic")
	}
}

func TestChooseTopicFromContext(t *testing.T) {
	got := ChooseTopic(nil, "Ich sehe der Hund", false, 0.6)
	if got != "articles" {
		t.Errorf("expected the context topic, got %q", got)
	}
}

func TestWeakFromStats(t *testing.T) {
	stats := []database.TopicStat{
		{Topic: "articles", Total: 10, Correct: 9},  // 90%, strong
		{Topic: "cases", Total: 10, Correct: 4},     // 40%, weak
		{Topic: "perfekt", Total: 2, Correct: 0},    // too few attempts
		{Topic: "word_order", Total: 5, Correct: 3}, // 60%, weak
	}

	weak := weakFromStats(stats, 3)
	if len(weak) != 2 {
		t.Fatalf("expected 2 weak topics, got %d", len(weak))
	}
	if weak[0].TopicID != "cases" {
		t.Errorf("expected the weakest topic first, got %q", weak[0].TopicID)
	}
	if weak[1].TopicID != "word_order" {
		t.Errorf("expected word_order second, got %q", weak[1].TopicID)
	}
}
