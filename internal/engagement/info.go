package engagement

import (
	"context"

	"github.com/example/lingbot/pkg/models"
)

// BadgeStatus pairs a milestone with whether the user has earned it.
type BadgeStatus struct {
	Milestone Milestone
	Earned    bool
}

// StreakInfo is the read model behind /streak and the profile views.
type StreakInfo struct {
	StreakDays       int
	BestStreak       int
	DailyMessages    int
	DailyGoal        int
	DailyGoalReached bool
	NextMilestone    *Milestone
	FreezeAvailable  int
	FreezeUsedToday  bool
	TotalXP          int
	WeeklyXP         int
	MonthlyXP        int
	Badges           []BadgeStatus
}

// GetStreakInfo assembles the full streak view for one user.
func (s *Service) GetStreakInfo(ctx context.Context, userID int64) (*StreakInfo, error) {
	var info *StreakInfo
	err := s.store.Transact(ctx, func(tx Store) error {
		user, err := tx.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		rewards, err := tx.ListRewards(ctx, userID)
		if err != nil {
			return err
		}

		earned := make(map[int]bool, len(rewards))
		for _, r := range rewards {
			earned[r.MilestoneDay] = true
		}
		badges := make([]BadgeStatus, 0, len(Milestones))
		for _, m := range Milestones {
			badges = append(badges, BadgeStatus{Milestone: m, Earned: earned[m.Days]})
		}

		today := s.dateOf(s.clock.Now())
		dailyMessages := user.DailyMessages
		if user.LastDailyReset == nil || !user.LastDailyReset.Equal(today) {
			dailyMessages = 0 // counter belongs to a previous day
		}

		info = &StreakInfo{
			StreakDays:       user.StreakDays,
			BestStreak:       user.BestStreak,
			DailyMessages:    dailyMessages,
			DailyGoal:        s.cfg.DailyGoal,
			DailyGoalReached: dailyMessages >= s.cfg.DailyGoal,
			NextMilestone:    NextMilestone(user.StreakDays),
			FreezeAvailable:  user.FreezeAvailable,
			FreezeUsedToday:  user.FreezeUsedAt != nil && s.dateOf(*user.FreezeUsedAt).Equal(today),
			TotalXP:          user.TotalXP,
			WeeklyXP:         user.WeeklyXP,
			MonthlyXP:        user.MonthlyXP,
			Badges:           badges,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// GrantBadge records a badge in the generic achievement namespace if the user
// does not already have it. Returns true when newly granted.
func (s *Service) GrantBadge(ctx context.Context, userID int64, badgeID string) (bool, error) {
	granted := false
	err := s.store.Transact(ctx, func(tx Store) error {
		exists, err := tx.BadgeExists(ctx, userID, badgeID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		if err := tx.CreateBadge(ctx, &models.UserBadge{UserID: userID, BadgeID: badgeID}); err != nil {
			return err
		}
		granted = true
		return nil
	})
	return granted, err
}
