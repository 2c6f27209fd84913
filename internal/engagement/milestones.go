package engagement

// Milestone describes one streak threshold and its one-time reward payload.
type Milestone struct {
	Days        int
	BadgeID     string
	Name        string
	Emoji       string
	XP          int
	FreezeBonus int
	PremiumDays int
}

// Milestones is the fixed reward table, sorted ascending by Days.
// checkMilestones relies on the ordering to grant thresholds one at a time.
var Milestones = []Milestone{
	{Days: 3, BadgeID: "streak_starter", Name: "Starter", Emoji: "🌱", XP: 50},
	{Days: 7, BadgeID: "streak_week_warrior", Name: "Week Warrior", Emoji: "⚔️", XP: 100, FreezeBonus: 1},
	{Days: 14, BadgeID: "streak_two_weeks", Name: "Two Weeks", Emoji: "🔥", XP: 200, FreezeBonus: 1},
	{Days: 30, BadgeID: "streak_monthly", Name: "Monthly Master", Emoji: "🏆", XP: 500, PremiumDays: 3},
	{Days: 50, BadgeID: "streak_dedicated", Name: "Dedicated", Emoji: "💎", XP: 1000, PremiumDays: 7},
	{Days: 100, BadgeID: "streak_legend", Name: "Legend", Emoji: "👑", XP: 2000, PremiumDays: 30},
}

// NextMilestone returns the first threshold above the given streak, or nil
// when every milestone is already behind the user.
func NextMilestone(streakDays int) *Milestone {
	for i := range Milestones {
		if streakDays < Milestones[i].Days {
			m := Milestones[i]
			return &m
		}
	}
	return nil
}

// MilestoneByDay returns the milestone for an exact threshold, or nil.
func MilestoneByDay(day int) *Milestone {
	for i := range Milestones {
		if Milestones[i].Days == day {
			m := Milestones[i]
			return &m
		}
	}
	return nil
}
