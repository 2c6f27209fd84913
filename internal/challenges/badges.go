package challenges

import "time"

// Badge condition kinds in the generic achievement namespace.
const (
	condStreak      = "streak"
	condFormatCount = "format_count"
	condPerfect     = "perfect_count"
	condTimeBefore  = "time_before"
	condTimeAfter   = "time_after"
)

// Badge describes one achievement and its earning condition.
type Badge struct {
	ID            string
	Name          string
	Emoji         string
	ConditionType string
	Format        string // only for format_count
	Value         int
}

// Badges is the fixed achievement table.
var Badges = []Badge{
	{ID: "7_day_warrior", Name: "7-Day Warrior", Emoji: "🔥", ConditionType: condStreak, Value: 7},
	{ID: "30_day_legend", Name: "30-Day Legend", Emoji: "🏆", ConditionType: condStreak, Value: 30},
	{ID: "grammar_master", Name: "Grammar Master", Emoji: "📚", ConditionType: condFormatCount, Format: "grammar", Value: 10},
	{ID: "perfectionist", Name: "Perfectionist", Emoji: "⭐", ConditionType: condPerfect, Value: 10},
	{ID: "early_bird", Name: "Early Bird", Emoji: "🌅", ConditionType: condTimeBefore, Value: 12},
	{ID: "night_owl", Name: "Night Owl", Emoji: "🦉", ConditionType: condTimeAfter, Value: 20},
}

// BadgeStats is the snapshot the conditions are evaluated against.
type BadgeStats struct {
	ChallengeStreak int
	FormatCounts    map[string]int
	PerfectCount    int
	CompletedAt     time.Time
}

// EligibleBadges returns the badges newly earned by this completion, skipping
// ones already held.
func EligibleBadges(earned map[string]bool, st BadgeStats) []Badge {
	var out []Badge
	for _, b := range Badges {
		if earned[b.ID] {
			continue
		}
		ok := false
		switch b.ConditionType {
		case condStreak:
			ok = st.ChallengeStreak >= b.Value
		case condFormatCount:
			ok = st.FormatCounts[b.Format] >= b.Value
		case condPerfect:
			ok = st.PerfectCount >= b.Value
		case condTimeBefore:
			ok = st.CompletedAt.Hour() < b.Value
		case condTimeAfter:
			ok = st.CompletedAt.Hour() >= b.Value
		}
		if ok {
			out = append(out, b)
		}
	}
	return out
}

// BadgeByID returns a badge definition, or nil.
func BadgeByID(id string) *Badge {
	for i := range Badges {
		if Badges[i].ID == id {
			b := Badges[i]
			return &b
		}
	}
	return nil
}
