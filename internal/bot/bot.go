package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/lingbot/internal/ai"
	"github.com/example/lingbot/internal/challenges"
	"github.com/example/lingbot/internal/database"
	"github.com/example/lingbot/internal/engagement"
	"github.com/example/lingbot/internal/grammar"
	"github.com/example/lingbot/internal/placement"
	"github.com/example/lingbot/internal/quiz"
	"github.com/example/lingbot/internal/scheduler"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// UserState represents the current state of a user in conversation with the bot
type UserState struct {
	State     string
	Timestamp time.Time
	Data      map[string]interface{}
}

// quizSession holds one user's quiz in progress
type quizSession struct {
	Questions  []quiz.Question
	CurrentIdx int
	Correct    int
	StartedAt  time.Time
}

// Bot represents the Telegram bot application
type Bot struct {
	api              *tgbotapi.BotAPI
	token            string
	users            *database.UserRepository
	vocab            *database.VocabularyRepository
	engagement       *engagement.Service
	challenges       *challenges.Service
	quizzes          *quiz.Module
	grammar          *grammar.Service
	placement        *placement.Service
	gemini           *ai.Gemini
	geminiEnabled    bool
	schedulerEnabled bool
	scheduler        *scheduler.Scheduler
	config           *BotConfig
	userStates       map[int64]UserState
	quizSessions     map[int64]*quizSession
	placements       map[int64]*placement.Session
	adminUserIDs     map[int64]bool
}

// New creates a new bot instance
func New() (*Bot, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	if database.DB == nil {
		return nil, fmt.Errorf("database connection is not established")
	}

	geminiEnabled := os.Getenv("GEMINI_API_KEY") != ""
	var gemini *ai.Gemini
	if geminiEnabled {
		var err error
		gemini, err = ai.New()
		if err != nil {
			log.Printf("Warning: Unable to initialize Gemini client: %v", err)
			geminiEnabled = false
		}
	}

	engagementSvc := engagement.New(database.NewEngagementStore(), engagement.SystemClock{}, engagement.DefaultConfig())
	challengeSvc := challenges.New(engagementSvc, gemini, engagement.SystemClock{})

	bot := &Bot{
		token:            token,
		users:            database.NewUserRepository(),
		vocab:            database.NewVocabularyRepository(),
		engagement:       engagementSvc,
		challenges:       challengeSvc,
		quizzes:          quiz.New(engagementSvc),
		grammar:          grammar.New(engagementSvc, gemini, engagement.SystemClock{}),
		placement:        placement.New(),
		gemini:           gemini,
		geminiEnabled:    geminiEnabled,
		schedulerEnabled: os.Getenv("ENABLE_SCHEDULER") != "false",
		config:           DefaultBotConfig(),
		userStates:       make(map[int64]UserState),
		quizSessions:     make(map[int64]*quizSession),
		placements:       make(map[int64]*placement.Session),
		adminUserIDs:     make(map[int64]bool),
	}

	adminIDs := os.Getenv("ADMIN_USER_IDS")
	if adminIDs != "" {
		for _, idStr := range strings.Split(adminIDs, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
			if err != nil {
				log.Printf("Warning: Invalid admin user ID: %s", idStr)
				continue
			}
			bot.adminUserIDs[id] = true
		}
	}

	return bot, nil
}

// Start initializes the Telegram API client and runs the update loop until
// the context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	botAPI, err := tgbotapi.NewBotAPI(b.token)
	if err != nil {
		return fmt.Errorf("unable to create bot: %v", err)
	}

	b.api = botAPI
	log.Printf("Authorized on account %s", botAPI.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	if b.schedulerEnabled {
		b.scheduler = scheduler.New(b, b.engagement, engagement.DefaultConfig().DailyGoal)
		b.scheduler.Start()
		log.Println("Reminder scheduler started")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// Stop gracefully stops the bot
func (b *Bot) Stop(ctx context.Context) error {
	if b.scheduler != nil {
		b.scheduler.Stop()
	}
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}
	log.Println("Bot stopped")
	return nil
}

// isAdmin checks if a user is an admin
func (b *Bot) isAdmin(userID int64) bool {
	return b.adminUserIDs[userID]
}

// SendStreakReminder implements the scheduler.Notifier interface
func (b *Bot) SendStreakReminder(userID int64, streakDays int, urgent bool) error {
	var text string
	if urgent {
		text = fmt.Sprintf("🚨 Осталось меньше двух часов! Серия из %d %s сгорит в полночь. Напишите пару сообщений, чтобы её сохранить!",
			streakDays, dayForm(streakDays))
	} else {
		text = fmt.Sprintf("🔥 Ваша серия — %d %s. Сегодня вы ещё не занимались, не теряйте её!",
			streakDays, dayForm(streakDays))
	}

	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending streak reminder to user %d: %v", userID, err)
		return err
	}
	return nil
}

// SendDueCardsReminder implements the scheduler.Notifier interface
func (b *Bot) SendDueCardsReminder(userID int64, count int) error {
	msg := tgbotapi.NewMessage(userID, fmt.Sprintf(
		"📚 У вас %d %s для повторения! Отправьте /review, чтобы начать.",
		count, wordForm(count)))
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending due cards reminder to user %d: %v", userID, err)
		return err
	}
	return nil
}

// dayForm returns the Russian plural form for a day count
func dayForm(n int) string {
	n = n % 100
	if n >= 11 && n <= 14 {
		return "дней"
	}
	switch n % 10 {
	case 1:
		return "день"
	case 2, 3, 4:
		return "дня"
	}
	return "дней"
}

// wordForm returns the Russian plural form for a word count
func wordForm(n int) string {
	n = n % 100
	if n >= 11 && n <= 14 {
		return "слов"
	}
	switch n % 10 {
	case 1:
		return "слово"
	case 2, 3, 4:
		return "слова"
	}
	return "слов"
}
