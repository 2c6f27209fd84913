package engagement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/lingbot/pkg/models"
)

// memStore is an in-memory Store. Transact holds the mutex for the whole unit
// of work, mirroring the per-user serialization a SQL store gets from row locks.
type memStore struct {
	mu      sync.Mutex
	users   map[int64]models.User
	rewards []models.StreakReward
	badges  []models.UserBadge
}

func newMemStore(users ...models.User) *memStore {
	s := &memStore{users: make(map[int64]models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memStore) GetProfile(_ context.Context, userID int64) (*models.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	copy := u
	return &copy, nil
}

func (s *memStore) SaveProfile(_ context.Context, user *models.User) error {
	s.users[user.ID] = *user
	return nil
}

func (s *memStore) RewardExists(_ context.Context, userID int64, milestoneDay int) (bool, error) {
	for _, r := range s.rewards {
		if r.UserID == userID && r.MilestoneDay == milestoneDay {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateReward(_ context.Context, reward *models.StreakReward) error {
	for _, r := range s.rewards {
		if r.UserID == reward.UserID && r.MilestoneDay == reward.MilestoneDay {
			return errors.New("duplicate streak reward")
		}
	}
	s.rewards = append(s.rewards, *reward)
	return nil
}

func (s *memStore) ListRewards(_ context.Context, userID int64) ([]models.StreakReward, error) {
	var out []models.StreakReward
	for _, r := range s.rewards {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) BadgeExists(_ context.Context, userID int64, badgeID string) (bool, error) {
	for _, b := range s.badges {
		if b.UserID == userID && b.BadgeID == badgeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateBadge(_ context.Context, badge *models.UserBadge) error {
	s.badges = append(s.badges, *badge)
	return nil
}

func (s *memStore) Transact(ctx context.Context, fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

func (s *memStore) rewardCount(userID int64, day int) int {
	n := 0
	for _, r := range s.rewards {
		if r.UserID == userID && r.MilestoneDay == day {
			n++
		}
	}
	return n
}

// fakeClock returns a settable time.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func newService(store Store, clock Clock) *Service {
	return New(store, clock, Config{DailyGoal: 1, WeeklyFreezeTokens: 1, Location: time.UTC})
}

func TestFirstActivityStartsStreak(t *testing.T) {
	store := newMemStore(models.User{ID: 1})
	clock := &fakeClock{t: at(2024, 6, 1, 10)}
	svc := newService(store, clock)

	res, err := svc.RecordActivity(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !res.DailyGoalReached || !res.StreakChanged || res.StreakDays != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	u := store.users[1]
	if u.StreakDays != 1 || u.BestStreak != 1 {
		t.Errorf("streak = %d, best = %d, want 1/1", u.StreakDays, u.BestStreak)
	}
	if u.StreakStartDate == nil || !u.StreakStartDate.Equal(date(2024, 6, 1)) {
		t.Errorf("streak start = %v, want 2024-06-01", u.StreakStartDate)
	}
}

func TestUnknownUser(t *testing.T) {
	svc := newService(newMemStore(), &fakeClock{t: at(2024, 6, 1, 10)})
	if _, err := svc.RecordActivity(context.Background(), 42); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestSameDayIdempotent(t *testing.T) {
	store := newMemStore(models.User{ID: 1})
	clock := &fakeClock{t: at(2024, 6, 1, 10)}
	svc := newService(store, clock)
	ctx := context.Background()

	if _, err := svc.RecordActivity(ctx, 1); err != nil {
		t.Fatal(err)
	}
	before := store.users[1]

	clock.Set(at(2024, 6, 1, 18))
	res, err := svc.RecordActivity(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	after := store.users[1]

	if res.StreakChanged {
		t.Error("second call on the same day must not change the streak")
	}
	if after.StreakDays != before.StreakDays || after.BestStreak != before.BestStreak {
		t.Errorf("streak mutated: %d/%d -> %d/%d", before.StreakDays, before.BestStreak, after.StreakDays, after.BestStreak)
	}
	if after.TotalXP != before.TotalXP || after.WeeklyXP != before.WeeklyXP || after.MonthlyXP != before.MonthlyXP {
		t.Error("XP accumulators mutated by idempotent re-entry")
	}
	if after.DailyMessages != 2 {
		t.Errorf("daily messages = %d, want 2", after.DailyMessages)
	}
}

func TestConsecutiveDaysExtendStreak(t *testing.T) {
	store := newMemStore(models.User{ID: 1})
	clock := &fakeClock{}
	svc := newService(store, clock)
	ctx := context.Background()

	for day := 1; day <= 2; day++ {
		clock.Set(at(2024, 6, day, 9))
		res, err := svc.RecordActivity(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if res.StreakDays != day {
			t.Fatalf("day %d: streak = %d", day, res.StreakDays)
		}
	}
}

func TestGapWithoutFreezeResets(t *testing.T) {
	// Day 1 and 2 active, day 3 missed, day 4 active with no freeze.
	store := newMemStore(models.User{ID: 1})
	clock := &fakeClock{}
	svc := newService(store, clock)
	ctx := context.Background()

	clock.Set(at(2024, 6, 1, 9))
	if _, err := svc.RecordActivity(ctx, 1); err != nil {
		t.Fatal(err)
	}
	clock.Set(at(2024, 6, 2, 9))
	if _, err := svc.RecordActivity(ctx, 1); err != nil {
		t.Fatal(err)
	}

	clock.Set(at(2024, 6, 4, 9))
	res, err := svc.RecordActivity(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !res.StreakReset || res.StreakDays != 1 {
		t.Fatalf("expected reset to 1, got %+v", res)
	}
	u := store.users[1]
	if u.BestStreak != 2 {
		t.Errorf("best streak = %d, want 2", u.BestStreak)
	}
	if u.StreakStartDate == nil || !u.StreakStartDate.Equal(date(2024, 6, 4)) {
		t.Errorf("streak start = %v, want 2024-06-04", u.StreakStartDate)
	}
}

func TestFreezeBridgesGap(t *testing.T) {
	twoDaysAgo := date(2024, 6, 8)
	store := newMemStore(models.User{
		ID:               1,
		StreakDays:       5,
		BestStreak:       5,
		LastActivityDate: &twoDaysAgo,
		FreezeAvailable:  1,
	})
	clock := &fakeClock{t: at(2024, 6, 10, 9)}
	svc := newService(store, clock)

	res, err := svc.RecordActivity(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !res.FreezeUsed {
		t.Fatal("freeze not consumed")
	}
	if res.StreakDays != 6 || res.StreakReset {
		t.Fatalf("streak = %d (reset=%v), want 6 without reset", res.StreakDays, res.StreakReset)
	}
	u := store.users[1]
	if u.FreezeAvailable != 0 {
		t.Errorf("freeze available = %d, want 0", u.FreezeAvailable)
	}
	if u.FreezeUsedAt == nil || !u.FreezeUsedAt.Equal(at(2024, 6, 10, 9)) {
		t.Errorf("freeze used at = %v", u.FreezeUsedAt)
	}
}

func TestFreezeExhaustedResets(t *testing.T) {
	twoDaysAgo := date(2024, 6, 8)
	store := newMemStore(models.User{
		ID:               1,
		StreakDays:       5,
		BestStreak:       5,
		LastActivityDate: &twoDaysAgo,
		FreezeAvailable:  0,
	})
	clock := &fakeClock{t: at(2024, 6, 10, 9)}
	svc := newService(store, clock)

	res, err := svc.RecordActivity(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !res.StreakReset || res.StreakDays != 1 {
		t.Fatalf("expected reset, got %+v", res)
	}
	u := store.users[1]
	if u.StreakStartDate == nil || !u.StreakStartDate.Equal(date(2024, 6, 10)) {
		t.Errorf("streak start = %v, want today", u.StreakStartDate)
	}
}

func TestFreezeOncePerDay(t *testing.T) {
	// Freeze already consumed today cannot bridge another gap.
	twoDaysAgo := date(2024, 6, 8)
	usedToday := at(2024, 6, 10, 1)
	store := newMemStore(models.User{
		ID:               1,
		StreakDays:       5,
		LastActivityDate: &twoDaysAgo,
		FreezeAvailable:  2,
		FreezeUsedAt:     &usedToday,
	})
	clock := &fakeClock{t: at(2024, 6, 10, 9)}
	svc := newService(store, clock)

	res, err := svc.RecordActivity(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.FreezeUsed {
		t.Error("freeze consumed twice in one day")
	}
	if !res.StreakReset {
		t.Error("expected streak reset")
	}
	if store.users[1].FreezeAvailable != 2 {
		t.Errorf("freeze tokens spent: %d", store.users[1].FreezeAvailable)
	}
}

func TestMilestoneGrantedOnce(t *testing.T) {
	yesterday := date(2024, 6, 9)
	store := newMemStore(models.User{
		ID:               1,
		StreakDays:       2,
		BestStreak:       2,
		LastActivityDate: &yesterday,
	})
	clock := &fakeClock{t: at(2024, 6, 10, 9)}
	svc := newService(store, clock)
	ctx := context.Background()

	res, err := svc.RecordActivity(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Milestone == nil || res.Milestone.Days != 3 {
		t.Fatalf("expected 3-day milestone, got %+v", res.Milestone)
	}
	u := store.users[1]
	if u.TotalXP != 50 || u.LastMilestoneDay != 3 {
		t.Errorf("xp = %d, mark = %d, want 50/3", u.TotalXP, u.LastMilestoneDay)
	}
	if store.rewardCount(1, 3) != 1 {
		t.Fatalf("reward count = %d", store.rewardCount(1, 3))
	}

	// A later call on the same day must not re-grant
	clock.Set(at(2024, 6, 10, 20))
	res, err = svc.RecordActivity(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Milestone != nil {
		t.Error("milestone re-granted")
	}
	if store.users[1].TotalXP != 50 || store.rewardCount(1, 3) != 1 {
		t.Error("milestone payload applied twice")
	}
}

func TestMilestonePayloadApplied(t *testing.T) {
	yesterday := date(2024, 6, 9)
	store := newMemStore(models.User{
		ID:               1,
		StreakDays:       6,
		BestStreak:       6,
		LastActivityDate: &yesterday,
		LastMilestoneDay: 3,
	})
	clock := &fakeClock{t: at(2024, 6, 10, 9)}
	svc := newService(store, clock)

	res, err := svc.RecordActivity(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Milestone == nil || res.Milestone.Days != 7 {
		t.Fatalf("expected 7-day milestone, got %+v", res.Milestone)
	}
	u := store.users[1]
	if u.TotalXP != 100 || u.WeeklyXP != 100 || u.MonthlyXP != 100 {
		t.Errorf("xp = %d/%d/%d, want 100 in each accumulator", u.TotalXP, u.WeeklyXP, u.MonthlyXP)
	}
	if u.FreezeAvailable != 1 {
		t.Errorf("freeze bonus not applied: %d", u.FreezeAvailable)
	}
	if len(store.badges) != 1 || store.badges[0].BadgeID != "streak_week_warrior" {
		t.Errorf("badge not recorded: %+v", store.badges)
	}
}

func TestMilestoneOneThresholdPerCall(t *testing.T) {
	// A user whose mark lags several thresholds advances one at a time.
	yesterday := date(2024, 6, 9)
	store := newMemStore(models.User{
		ID:               1,
		StreakDays:       14,
		BestStreak:       14,
		LastActivityDate: &yesterday,
	})
	clock := &fakeClock{t: at(2024, 6, 10, 9)}
	svc := newService(store, clock)
	ctx := context.Background()

	res, err := svc.RecordActivity(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Milestone == nil || res.Milestone.Days != 3 {
		t.Fatalf("first call should grant the smallest skipped threshold, got %+v", res.Milestone)
	}

	clock.Set(at(2024, 6, 10, 10))
	res, err = svc.RecordActivity(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Milestone == nil || res.Milestone.Days != 7 {
		t.Fatalf("second call should grant the next threshold, got %+v", res.Milestone)
	}
}

func TestMilestoneCrashReconciliation(t *testing.T) {
	// Reward record exists but the high-water mark was never advanced
	// (crash between the two writes). The grant must not repeat.
	yesterday := date(2024, 6, 9)
	store := newMemStore(models.User{
		ID:               1,
		StreakDays:       3,
		BestStreak:       3,
		LastActivityDate: &yesterday,
		TotalXP:          50,
	})
	store.rewards = append(store.rewards, models.StreakReward{UserID: 1, MilestoneDay: 3, BadgeID: "streak_starter", XPEarned: 50})
	clock := &fakeClock{t: at(2024, 6, 10, 9)}
	svc := newService(store, clock)

	res, err := svc.RecordActivity(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Milestone != nil {
		t.Error("existing reward re-granted")
	}
	u := store.users[1]
	if u.LastMilestoneDay != 3 {
		t.Errorf("high-water mark not repaired: %d", u.LastMilestoneDay)
	}
	if u.TotalXP != 50 || store.rewardCount(1, 3) != 1 {
		t.Error("payload applied twice")
	}
}

func TestDuplicateDeliverySingleGrant(t *testing.T) {
	// Two near-simultaneous deliveries of the same activity event: exactly one
	// reward for (user, 7) and one XP grant.
	yesterday := date(2024, 6, 9)
	store := newMemStore(models.User{
		ID:               1,
		StreakDays:       6,
		BestStreak:       6,
		LastActivityDate: &yesterday,
		LastMilestoneDay: 3,
	})
	clock := &fakeClock{t: at(2024, 6, 10, 9)}
	svc := newService(store, clock)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RecordActivity(context.Background(), 1)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	u := store.users[1]
	if u.StreakDays != 7 {
		t.Errorf("streak = %d, want 7", u.StreakDays)
	}
	if store.rewardCount(1, 7) != 1 {
		t.Fatalf("reward count = %d, want exactly one", store.rewardCount(1, 7))
	}
	if u.TotalXP != 100 {
		t.Errorf("total xp = %d, want one 100 XP grant", u.TotalXP)
	}
}

func TestDailyGoalGate(t *testing.T) {
	store := newMemStore(models.User{ID: 1})
	clock := &fakeClock{t: at(2024, 6, 1, 10)}
	svc := New(store, clock, Config{DailyGoal: 3, WeeklyFreezeTokens: 1, Location: time.UTC})
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		res, err := svc.RecordActivity(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if res.DailyGoalReached || res.StreakChanged {
			t.Fatalf("message %d: goal reached too early: %+v", i, res)
		}
		if store.users[1].StreakDays != 0 {
			t.Fatal("streak fields touched before the goal")
		}
	}

	res, err := svc.RecordActivity(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !res.DailyGoalReached || res.StreakDays != 1 {
		t.Fatalf("third message should meet the goal: %+v", res)
	}
}

func TestUseFreezeManually(t *testing.T) {
	store := newMemStore(models.User{ID: 1, FreezeAvailable: 2})
	clock := &fakeClock{t: at(2024, 6, 1, 10)}
	svc := newService(store, clock)
	ctx := context.Background()

	remaining, err := svc.UseFreeze(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}

	// Same day again
	if _, err := svc.UseFreeze(ctx, 1); !errors.Is(err, ErrFreezeAlreadyUsed) {
		t.Fatalf("expected ErrFreezeAlreadyUsed, got %v", err)
	}

	// Next day works
	clock.Set(at(2024, 6, 2, 10))
	if _, err := svc.UseFreeze(ctx, 1); err != nil {
		t.Fatal(err)
	}

	// Tokens exhausted
	clock.Set(at(2024, 6, 3, 10))
	if _, err := svc.UseFreeze(ctx, 1); !errors.Is(err, ErrNoFreezeAvailable) {
		t.Fatalf("expected ErrNoFreezeAvailable, got %v", err)
	}
}

func TestArmedFreezeSpendsToken(t *testing.T) {
	// Arming a freeze consumes the token immediately.
	store := newMemStore(models.User{ID: 1, FreezeAvailable: 1})
	clock := &fakeClock{}
	svc := newService(store, clock)
	ctx := context.Background()

	clock.Set(at(2024, 6, 5, 9))
	if _, err := svc.RecordActivity(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UseFreeze(ctx, 1); err != nil {
		t.Fatal(err)
	}

	clock.Set(at(2024, 6, 7, 9))
	res, err := svc.RecordActivity(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	// The single token was spent on day 5; with none left the day-7 gap
	// cannot be bridged and the streak resets.
	if !res.StreakReset {
		t.Fatalf("expected reset after token was pre-spent: %+v", res)
	}
}

func TestResetWeeklyFreeze(t *testing.T) {
	weekAgo := date(2024, 6, 1)
	store := newMemStore(models.User{ID: 1, FreezeAvailable: 0, FreezeWeekStart: &weekAgo})
	clock := &fakeClock{t: at(2024, 6, 8, 5)}
	svc := newService(store, clock)
	ctx := context.Background()

	if err := svc.ResetWeeklyFreeze(ctx, 1); err != nil {
		t.Fatal(err)
	}
	u := store.users[1]
	if u.FreezeAvailable != 1 {
		t.Errorf("freeze = %d, want 1", u.FreezeAvailable)
	}
	if u.FreezeWeekStart == nil || !u.FreezeWeekStart.Equal(date(2024, 6, 8)) {
		t.Errorf("week start = %v", u.FreezeWeekStart)
	}

	// Mid-week call is a no-op
	u.FreezeAvailable = 0
	store.users[1] = u
	clock.Set(at(2024, 6, 10, 5))
	if err := svc.ResetWeeklyFreeze(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if store.users[1].FreezeAvailable != 0 {
		t.Error("freeze refilled before the week elapsed")
	}
}

func TestRolloverXPWindows(t *testing.T) {
	weekAgo := date(2024, 5, 25)
	mayStart := date(2024, 5, 1)
	store := newMemStore(models.User{
		ID:           1,
		TotalXP:      500,
		WeeklyXP:     120,
		MonthlyXP:    340,
		XPWeekStart:  &weekAgo,
		XPMonthStart: &mayStart,
	})
	clock := &fakeClock{t: at(2024, 6, 3, 4)}
	svc := newService(store, clock)

	if err := svc.RolloverXPWindows(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	u := store.users[1]
	if u.WeeklyXP != 0 || u.MonthlyXP != 0 {
		t.Errorf("weekly/monthly = %d/%d, want 0/0", u.WeeklyXP, u.MonthlyXP)
	}
	if u.TotalXP != 500 {
		t.Errorf("total XP must survive rollover, got %d", u.TotalXP)
	}
	if u.XPMonthStart == nil || !u.XPMonthStart.Equal(date(2024, 6, 1)) {
		t.Errorf("month start = %v, want 2024-06-01", u.XPMonthStart)
	}
}

func TestAddXP(t *testing.T) {
	store := newMemStore(models.User{ID: 1})
	svc := newService(store, &fakeClock{t: at(2024, 6, 1, 10)})

	if err := svc.AddXP(context.Background(), 1, 2); err != nil {
		t.Fatal(err)
	}
	u := store.users[1]
	if u.TotalXP != 2 || u.WeeklyXP != 2 || u.MonthlyXP != 2 {
		t.Errorf("xp = %d/%d/%d, want 2 everywhere", u.TotalXP, u.WeeklyXP, u.MonthlyXP)
	}
}

func TestGetStreakInfo(t *testing.T) {
	yesterday := date(2024, 6, 9)
	today := date(2024, 6, 10)
	store := newMemStore(models.User{
		ID:               1,
		StreakDays:       7,
		BestStreak:       9,
		DailyMessages:    2,
		LastDailyReset:   &today,
		LastActivityDate: &yesterday,
		FreezeAvailable:  1,
		TotalXP:          150,
	})
	store.rewards = append(store.rewards,
		models.StreakReward{UserID: 1, MilestoneDay: 3, BadgeID: "streak_starter"},
		models.StreakReward{UserID: 1, MilestoneDay: 7, BadgeID: "streak_week_warrior"},
	)
	clock := &fakeClock{t: at(2024, 6, 10, 12)}
	svc := newService(store, clock)

	info, err := svc.GetStreakInfo(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if info.StreakDays != 7 || info.BestStreak != 9 {
		t.Errorf("streak = %d/%d", info.StreakDays, info.BestStreak)
	}
	if !info.DailyGoalReached {
		t.Error("daily goal should be reached")
	}
	if info.NextMilestone == nil || info.NextMilestone.Days != 14 {
		t.Errorf("next milestone = %+v, want 14", info.NextMilestone)
	}
	earned := 0
	for _, b := range info.Badges {
		if b.Earned {
			earned++
		}
	}
	if earned != 2 {
		t.Errorf("earned badges = %d, want 2", earned)
	}
}

func TestGrantBadgeOnce(t *testing.T) {
	store := newMemStore(models.User{ID: 1})
	svc := newService(store, &fakeClock{t: at(2024, 6, 1, 10)})
	ctx := context.Background()

	granted, err := svc.GrantBadge(ctx, 1, "early_bird")
	if err != nil || !granted {
		t.Fatalf("granted=%v err=%v", granted, err)
	}
	granted, err = svc.GrantBadge(ctx, 1, "early_bird")
	if err != nil || granted {
		t.Fatalf("second grant: granted=%v err=%v", granted, err)
	}
	if len(store.badges) != 1 {
		t.Errorf("badge rows = %d, want 1", len(store.badges))
	}
}
