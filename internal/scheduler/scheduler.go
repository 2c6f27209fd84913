package scheduler

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/lingbot/internal/database"
	"github.com/example/lingbot/internal/engagement"
)

// Константы для настроек уведомлений по умолчанию
const (
	DefaultNotificationStartHour = 8  // Время начала уведомлений (8:00)
	DefaultNotificationEndHour   = 22 // Время окончания уведомлений (22:00)

	// SoftReminderHour is when a gentle streak reminder goes out.
	SoftReminderHour = 18
	// UrgentReminderHour is the last call before the streak day is lost.
	UrgentReminderHour = 22

	// DefaultDueReminderHour is when the once-a-day due-card reminder fires.
	DefaultDueReminderHour = 10
)

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler  *gocron.Scheduler
	notifier   Notifier
	engagement *engagement.Service
	dailyGoal  int
}

// Notifier interface for sending notifications
type Notifier interface {
	// SendStreakReminder warns a user their streak day is not yet secured.
	// urgent is set for the late-evening last call.
	SendStreakReminder(userID int64, streakDays int, urgent bool) error
	// SendDueCardsReminder tells a user how many flashcards are waiting.
	SendDueCardsReminder(userID int64, count int) error
}

// New creates a new scheduler instance
func New(notifier Notifier, engagementSvc *engagement.Service, dailyGoal int) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler:  s,
		notifier:   notifier,
		engagement: engagementSvc,
		dailyGoal:  dailyGoal,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() {
	// Hourly check for users whose streak day is still unsecured
	s.scheduler.Every(1).Hour().Do(s.checkAndSendStreakReminders)

	// Hourly tick; actual due-card reminders go out once a day
	s.scheduler.Every(1).Hour().Do(s.checkAndSendDueCardReminders)

	// Weekly freeze token refill, Monday morning
	s.scheduler.Every(1).Week().Monday().At("00:05").Do(s.refillFreezeTokens)

	// Daily XP window rollover
	s.scheduler.Every(1).Day().At("00:10").Do(s.rolloverXPWindows)

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// notificationWindow returns the hours between which reminders may be sent,
// overridable via NOTIFICATION_START_HOUR / NOTIFICATION_END_HOUR.
func notificationWindow() (int, int) {
	startHour := DefaultNotificationStartHour
	endHour := DefaultNotificationEndHour

	if startHourStr := os.Getenv("NOTIFICATION_START_HOUR"); startHourStr != "" {
		if h, err := strconv.Atoi(startHourStr); err == nil && h >= 0 && h <= 23 {
			startHour = h
		}
	}
	if endHourStr := os.Getenv("NOTIFICATION_END_HOUR"); endHourStr != "" {
		if h, err := strconv.Atoi(endHourStr); err == nil && h >= 0 && h <= 23 {
			endHour = h
		}
	}
	return startHour, endHour
}

// dueReminderHour reads the hour for the daily due-card reminder,
// overridable via DUE_REMINDER_HOUR.
func dueReminderHour() int {
	if hourStr := os.Getenv("DUE_REMINDER_HOUR"); hourStr != "" {
		if h, err := strconv.Atoi(hourStr); err == nil && h >= 0 && h <= 23 {
			return h
		}
	}
	return DefaultDueReminderHour
}

// shouldSendDueReminders gates the hourly tick so each user hears about due
// cards at most once a day.
func shouldSendDueReminders(currentHour, startHour, endHour, reminderHour int) bool {
	if currentHour < startHour || currentHour > endHour {
		return false
	}
	return currentHour == reminderHour
}

// checkAndSendStreakReminders warns users who have not reached their daily
// goal yet. A soft reminder goes out in the early evening and an urgent one
// shortly before midnight.
func (s *Scheduler) checkAndSendStreakReminders() {
	now := time.Now().UTC()
	currentHour := now.Hour()

	startHour, endHour := notificationWindow()
	if currentHour < startHour || currentHour > endHour {
		return
	}
	// Напоминания о серии отправляем только вечером
	if currentHour != SoftReminderHour && currentHour != UrgentReminderHour {
		return
	}
	urgent := currentHour == UrgentReminderHour

	ctx := context.Background()
	userRepo := database.NewUserRepository()

	users, err := userRepo.GetReminderCandidates(ctx, s.dailyGoal, now)
	if err != nil {
		log.Printf("Error getting reminder candidates: %v", err)
		return
	}

	for _, user := range users {
		if err := s.notifier.SendStreakReminder(user.ID, user.StreakDays, urgent); err != nil {
			log.Printf("Error sending streak reminder to user %d: %v", user.ID, err)
		}
	}
}

// checkAndSendDueCardReminders notifies users who have flashcards waiting
// for review. The job ticks hourly but only fires on the daily reminder hour.
func (s *Scheduler) checkAndSendDueCardReminders() {
	currentHour := time.Now().UTC().Hour()

	startHour, endHour := notificationWindow()
	if !shouldSendDueReminders(currentHour, startHour, endHour, dueReminderHour()) {
		return
	}

	ctx := context.Background()
	userRepo := database.NewUserRepository()
	vocabRepo := database.NewVocabularyRepository()

	users, err := userRepo.GetAll(ctx)
	if err != nil {
		log.Printf("Error getting users: %v", err)
		return
	}

	for _, user := range users {
		if !user.ReminderEnabled {
			continue
		}
		_, _, due, err := vocabRepo.Stats(ctx, user.ID)
		if err != nil {
			log.Printf("Error getting card stats for user %d: %v", user.ID, err)
			continue
		}
		if due == 0 {
			continue
		}
		if err := s.notifier.SendDueCardsReminder(user.ID, due); err != nil {
			log.Printf("Error sending due cards reminder to user %d: %v", user.ID, err)
		}
	}
}

// refillFreezeTokens tops every user's weekly freeze allowance back up.
func (s *Scheduler) refillFreezeTokens() {
	ctx := context.Background()
	userRepo := database.NewUserRepository()

	users, err := userRepo.GetAll(ctx)
	if err != nil {
		log.Printf("Error getting users for freeze refill: %v", err)
		return
	}

	for _, user := range users {
		if err := s.engagement.ResetWeeklyFreeze(ctx, user.ID); err != nil {
			log.Printf("Error refilling freeze tokens for user %d: %v", user.ID, err)
		}
	}
}

// rolloverXPWindows resets expired weekly and monthly XP counters.
func (s *Scheduler) rolloverXPWindows() {
	ctx := context.Background()
	userRepo := database.NewUserRepository()

	users, err := userRepo.GetAll(ctx)
	if err != nil {
		log.Printf("Error getting users for XP rollover: %v", err)
		return
	}

	for _, user := range users {
		if err := s.engagement.RolloverXPWindows(ctx, user.ID); err != nil {
			log.Printf("Error rolling over XP windows for user %d: %v", user.ID, err)
		}
	}
}

// RunManualCheck forces a due-card reminder for a specific user.
func (s *Scheduler) RunManualCheck(userID int64) error {
	ctx := context.Background()
	vocabRepo := database.NewVocabularyRepository()

	_, _, due, err := vocabRepo.Stats(ctx, userID)
	if err != nil {
		return err
	}
	if due > 0 {
		return s.notifier.SendDueCardsReminder(userID, due)
	}
	return nil
}
