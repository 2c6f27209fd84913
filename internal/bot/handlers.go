package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/lingbot/internal/database"
	"github.com/example/lingbot/internal/engagement"
	"github.com/example/lingbot/internal/excel"
	"github.com/example/lingbot/internal/grammar"
	"github.com/example/lingbot/internal/placement"
	"github.com/example/lingbot/internal/quiz"
	"github.com/example/lingbot/internal/srs"
	"github.com/example/lingbot/pkg/models"
)

// Conversation states
const (
	stateChallengeAnswer = "waiting_for_challenge_answer"
	stateWordPair        = "waiting_for_word_pair"
	stateImportFile      = "waiting_for_import_file"
)

// xpPerReview is credited for every graded flashcard
const xpPerReview = 2

// handleUpdate dispatches one incoming Telegram update
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}
	message := update.Message

	// Every update makes sure the user profile exists
	user, err := b.users.GetOrCreate(ctx, message.From.ID, message.From.UserName,
		message.From.FirstName, message.From.LastName)
	if err != nil {
		log.Printf("Error loading user %d: %v", message.From.ID, err)
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, user, message)
		return
	}

	state, hasState := b.userStates[user.ID]
	if hasState {
		switch state.State {
		case stateChallengeAnswer:
			b.handleChallengeAnswer(ctx, user, message, state)
			return
		case stateWordPair:
			b.handleWordPairInput(ctx, user, message)
			return
		case stateImportFile:
			if message.Document != nil {
				b.handleImportFile(ctx, user, message)
				return
			}
			b.send(message.Chat.ID, "Пришлите файл .xlsx или .csv со словами, либо /cancel для отмены.")
			return
		}
	}

	b.handleFreeText(ctx, user, message)
}

// handleCommand routes bot commands
func (b *Bot) handleCommand(ctx context.Context, user *models.User, message *tgbotapi.Message) {
	// Any pending dialog is dropped when a new command arrives
	if message.Command() != "cancel" {
		delete(b.userStates, user.ID)
	}

	switch message.Command() {
	case "start":
		b.handleStart(user, message)
	case "help":
		b.handleHelp(message)
	case "review":
		b.handleReview(ctx, user, message.Chat.ID)
	case "streak":
		b.handleStreak(ctx, user, message.Chat.ID)
	case "freeze":
		b.handleFreeze(ctx, user, message.Chat.ID)
	case "challenge":
		b.handleChallenge(ctx, user, message.Chat.ID)
	case "quiz":
		b.handleQuiz(ctx, user, message.Chat.ID)
	case "grammar":
		b.handleGrammar(ctx, user, message.Chat.ID)
	case "level":
		b.handleLevel(user, message.Chat.ID)
	case "add":
		b.handleAddWord(user, message.Chat.ID)
	case "stats":
		b.handleStats(ctx, user, message.Chat.ID)
	case "leaderboard":
		b.handleLeaderboard(ctx, message.Chat.ID)
	case "remind":
		b.handleRemindToggle(ctx, user, message.Chat.ID)
	case "import":
		b.userStates[user.ID] = UserState{State: stateImportFile, Timestamp: time.Now()}
		b.send(message.Chat.ID, "Пришлите файл .xlsx или .csv: первая колонка — немецкое слово, вторая — перевод, третья (необязательно) — пример.")
	case "cancel":
		delete(b.userStates, user.ID)
		delete(b.quizSessions, user.ID)
		delete(b.placements, user.ID)
		b.send(message.Chat.ID, "Действие отменено.")
	default:
		b.send(message.Chat.ID, "Неизвестная команда. Отправьте /help, чтобы посмотреть список команд.")
	}
}

// handleStart handles the /start command
func (b *Bot) handleStart(user *models.User, message *tgbotapi.Message) {
	welcomeText := fmt.Sprintf(`Привет, %s! 👋

Я помогу тебе учить немецкий язык:

📚 /review — повторение слов по интервальной системе
🎯 /challenge — задание дня
📝 /quiz — проверка словарного запаса
🔥 /streak — твоя серия занятий
❄️ /freeze — заморозить серию на день
➕ /add — добавить слово
📊 /stats — статистика

Просто пиши мне на немецком — я отвечу и помогу с ошибками. Каждое сообщение засчитывается в дневную цель!`, user.FirstName)

	msg := tgbotapi.NewMessage(message.Chat.ID, welcomeText)
	msg.ReplyMarkup = createKeyboard(b.mainMenuButtons())
	b.api.Send(msg)
}

// handleHelp handles the /help command
func (b *Bot) handleHelp(message *tgbotapi.Message) {
	helpText := `Команды:

/review — повторить слова, которые пора вспомнить
/challenge — получить задание дня
/quiz — пройти проверку словарного запаса
/grammar — статистика и настройки минуток грамматики
/level — пройти тест на уровень языка
/add — добавить новое слово
/import — загрузить слова из файла
/streak — серия занятий и награды
/freeze — использовать заморозку серии
/stats — статистика обучения
/leaderboard — рейтинг недели
/remind — включить или выключить напоминания
/cancel — отменить текущее действие`

	b.send(message.Chat.ID, helpText)
}

// mainMenuButtons returns the persistent inline menu
func (b *Bot) mainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "📚 Повторение", CallbackData: "menu:review"},
			{Text: "🎯 Задание дня", CallbackData: "menu:challenge"},
		},
		{
			{Text: "🔥 Серия", CallbackData: "menu:streak"},
			{Text: "📊 Статистика", CallbackData: "menu:stats"},
		},
	}
}

// handleFreeText treats a plain message as conversation practice: it counts
// towards the daily goal and gets an AI reply when Gemini is configured.
func (b *Bot) handleFreeText(ctx context.Context, user *models.User, message *tgbotapi.Message) {
	res, err := b.engagement.RecordActivity(ctx, user.ID)
	if err != nil {
		log.Printf("Error recording activity for user %d: %v", user.ID, err)
	}

	if b.geminiEnabled {
		reply, err := b.gemini.ChatReply(message.Text, user.Level)
		if err != nil {
			log.Printf("Error getting AI reply for user %d: %v", user.ID, err)
			b.send(message.Chat.ID, "Не получилось придумать ответ, попробуйте ещё раз. 🤖")
		} else {
			b.send(message.Chat.ID, reply)
		}
	} else {
		b.send(message.Chat.ID, "Сообщение засчитано! Отправьте /review или /challenge, чтобы продолжить занятие.")
	}

	b.announceActivity(message.Chat.ID, res)

	// Once in a while the conversation is interrupted by a grammar drill
	ex, err := b.grammar.MaybeGenerate(ctx, user, message.Text)
	if err != nil {
		log.Printf("Error generating grammar drill for user %d: %v", user.ID, err)
	} else if ex != nil {
		b.sendGrammarExercise(message.Chat.ID, ex)
	}
}

// sendGrammarExercise shows one drill with its three option buttons
func (b *Bot) sendGrammarExercise(chatID int64, ex *models.GrammarExercise) {
	buttons := [][]MenuButton{
		{{Text: "A) " + ex.OptionA, CallbackData: fmt.Sprintf("gram:%d:A", ex.ID)}},
		{{Text: "B) " + ex.OptionB, CallbackData: fmt.Sprintf("gram:%d:B", ex.ID)}},
		{{Text: "C) " + ex.OptionC, CallbackData: fmt.Sprintf("gram:%d:C", ex.ID)}},
	}
	msg := tgbotapi.NewMessage(chatID, grammar.FormatQuestion(ex))
	msg.ReplyMarkup = createKeyboard(buttons)
	b.api.Send(msg)
}

// handleGrammarCallback checks a picked drill option
func (b *Bot) handleGrammarCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, parts []string) {
	if len(parts) != 3 {
		return
	}
	exerciseID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return
	}

	chatID := callback.Message.Chat.ID
	result, err := b.grammar.Answer(ctx, callback.From.ID, exerciseID, parts[2])
	switch {
	case errors.Is(err, grammar.ErrAlreadyAnswered):
		b.api.Request(tgbotapi.NewCallback(callback.ID, "Это упражнение уже решено."))
		return
	case errors.Is(err, database.ErrExerciseNotFound):
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
		return
	case err != nil:
		log.Printf("Error answering grammar drill %d: %v", exerciseID, err)
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
		return
	}

	b.api.Request(tgbotapi.NewCallback(callback.ID, ""))

	var sb strings.Builder
	if result.IsCorrect {
		fmt.Fprintf(&sb, "✅ Верно! ⭐ +%d XP\n", result.XPEarned)
	} else {
		fmt.Fprintf(&sb, "❌ Правильный ответ: %s) %s\n", result.CorrectAnswer, result.CorrectOption)
	}
	if result.Rule != "" {
		fmt.Fprintf(&sb, "\n📖 %s\n", result.Rule)
	}
	if result.FollowUp != "" {
		fmt.Fprintf(&sb, "\n%s", result.FollowUp)
	}
	b.send(chatID, sb.String())
}

// handleGrammar shows drill stats and the settings buttons
func (b *Bot) handleGrammar(ctx context.Context, user *models.User, chatID int64) {
	stats, err := b.grammar.GetStats(ctx, user.ID)
	if err != nil {
		log.Printf("Error getting grammar stats for user %d: %v", user.ID, err)
		b.send(chatID, "Не удалось загрузить статистику грамматики.")
		return
	}

	var sb strings.Builder
	sb.WriteString("✏️ Минутки грамматики\n\n")
	if stats.Total == 0 {
		sb.WriteString("Вы ещё не решали упражнений. Они появляются сами во время переписки.\n")
	} else {
		fmt.Fprintf(&sb, "Решено: %d, верно: %d (%.0f%%)\n", stats.Total, stats.Correct, stats.Accuracy)
	}
	if len(stats.WeakTopics) > 0 {
		sb.WriteString("\nСтоит подтянуть:\n")
		for _, w := range stats.WeakTopics {
			fmt.Fprintf(&sb, "• %s — %.0f%% из %d\n", w.Name, w.Accuracy, w.Total)
		}
	}
	if user.GrammarEnabled {
		fmt.Fprintf(&sb, "\nУпражнения включены, частота: %s.", frequencyName(user.GrammarFrequency))
	} else {
		sb.WriteString("\nУпражнения выключены.")
	}

	toggle := MenuButton{Text: "🔕 Выключить", CallbackData: "gramset:off"}
	if !user.GrammarEnabled {
		toggle = MenuButton{Text: "🔔 Включить", CallbackData: "gramset:on"}
	}
	buttons := [][]MenuButton{
		{toggle},
		{
			{Text: "Редко", CallbackData: "gramfreq:rare"},
			{Text: "Иногда", CallbackData: "gramfreq:medium"},
			{Text: "Часто", CallbackData: "gramfreq:often"},
		},
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = createKeyboard(buttons)
	b.api.Send(msg)
}

// frequencyName localizes a drill frequency id
func frequencyName(id string) string {
	switch id {
	case "rare":
		return "редко"
	case "often":
		return "часто"
	}
	return "иногда"
}

// handleGrammarSettingCallback flips the drill toggle or frequency
func (b *Bot) handleGrammarSettingCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, user *models.User, parts []string) {
	if len(parts) != 2 {
		return
	}
	chatID := callback.Message.Chat.ID

	var err error
	var answer string
	switch parts[0] {
	case "gramset":
		enabled := parts[1] == "on"
		err = b.grammar.SetEnabled(ctx, user, enabled)
		if enabled {
			answer = "🔔 Минутки грамматики включены."
		} else {
			answer = "🔕 Минутки грамматики выключены."
		}
	case "gramfreq":
		if _, ok := grammar.FrequencySettings[parts[1]]; !ok {
			return
		}
		user.GrammarFrequency = parts[1]
		err = b.users.UpdateGrammarState(ctx, user)
		answer = fmt.Sprintf("Частота упражнений: %s.", frequencyName(parts[1]))
	}
	if err != nil {
		log.Printf("Error updating grammar settings for user %d: %v", user.ID, err)
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
		return
	}
	b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
	b.send(chatID, answer)
}

// announceActivity reports streak events that a qualifying activity caused
func (b *Bot) announceActivity(chatID int64, res *engagement.ActivityResult) {
	if res == nil {
		return
	}
	if res.FreezeUsed {
		b.send(chatID, "❄️ Заморозка спасла вашу серию! Пропущенный день не считается.")
	}
	if res.StreakReset {
		b.send(chatID, "Серия началась заново. Сегодня день 1, вперёд! 🔥")
	} else if res.StreakChanged {
		b.send(chatID, fmt.Sprintf("🔥 Серия: %d %s подряд!", res.StreakDays, dayForm(res.StreakDays)))
	}
	if m := res.Milestone; m != nil {
		text := fmt.Sprintf("%s Новая награда: «%s»! +%d XP", m.Emoji, m.Name, m.XP)
		if m.FreezeBonus > 0 {
			text += fmt.Sprintf(", +%d заморозка", m.FreezeBonus)
		}
		if m.PremiumDays > 0 {
			text += fmt.Sprintf(", премиум на %d %s", m.PremiumDays, dayForm(m.PremiumDays))
		}
		b.send(chatID, text)
	}
}

// handleReview starts or continues a spaced-repetition session
func (b *Bot) handleReview(ctx context.Context, user *models.User, chatID int64) {
	items, err := b.vocab.GetDueForUser(ctx, user.ID, 1)
	if err != nil {
		log.Printf("Error getting due cards for user %d: %v", user.ID, err)
		b.send(chatID, "Не удалось загрузить карточки, попробуйте позже.")
		return
	}
	if len(items) == 0 {
		b.send(chatID, "🎉 Все карточки повторены! Возвращайтесь позже или добавьте новые слова через /add.")
		return
	}
	b.sendReviewCard(chatID, &items[0])
}

// sendReviewCard shows one card with the four grading buttons
func (b *Bot) sendReviewCard(chatID int64, item *models.VocabularyItem) {
	text := fmt.Sprintf("🇩🇪 %s", item.WordDE)
	if item.Example != "" {
		text += fmt.Sprintf("\n\n%s", item.Example)
	}
	text += "\n\nВспомните перевод и оцените себя:"

	buttons := [][]MenuButton{
		{
			{Text: "👀 Перевод", CallbackData: fmt.Sprintf("show:%d", item.ID)},
		},
		{
			{Text: "❌ Снова", CallbackData: fmt.Sprintf("grade:%d:%d", srs.Again, item.ID)},
			{Text: "😓 Трудно", CallbackData: fmt.Sprintf("grade:%d:%d", srs.Hard, item.ID)},
		},
		{
			{Text: "🙂 Хорошо", CallbackData: fmt.Sprintf("grade:%d:%d", srs.Good, item.ID)},
			{Text: "😎 Легко", CallbackData: fmt.Sprintf("grade:%d:%d", srs.Easy, item.ID)},
		},
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(buttons)
	b.api.Send(msg)
}

// handleShowCallback reveals a card's translation in a popup
func (b *Bot) handleShowCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, parts []string) {
	if len(parts) != 2 {
		return
	}
	itemID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return
	}

	item, err := b.vocab.GetByID(ctx, itemID)
	if err != nil || item.UserID != callback.From.ID {
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
		return
	}
	b.api.Request(tgbotapi.NewCallbackWithAlert(callback.ID, fmt.Sprintf("%s — %s", item.WordDE, item.WordRU)))
}

// handleGradeCallback applies one review grade and serves the next card
func (b *Bot) handleGradeCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, parts []string) {
	if len(parts) != 3 {
		return
	}
	qualityVal, err1 := strconv.Atoi(parts[1])
	itemID, err2 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil {
		return
	}
	quality, err := srs.ParseQuality(qualityVal)
	if err != nil {
		log.Printf("Invalid grade in callback %q: %v", callback.Data, err)
		return
	}

	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	item, err := b.vocab.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			b.send(chatID, "Эта карточка уже удалена.")
		} else {
			log.Printf("Error loading card %d: %v", itemID, err)
		}
		return
	}
	if item.UserID != userID {
		return
	}

	wasLearned := item.Learned
	review := srs.Apply(item, quality, time.Now().UTC())
	if err := b.vocab.Update(ctx, item); err != nil {
		log.Printf("Error saving card %d: %v", itemID, err)
		b.send(chatID, "Не удалось сохранить результат, попробуйте ещё раз.")
		return
	}

	// A graded card is a qualifying activity and earns review XP
	res, err := b.engagement.RecordActivity(ctx, userID)
	if err != nil {
		log.Printf("Error recording activity for user %d: %v", userID, err)
	}
	if err := b.engagement.AddXP(ctx, userID, xpPerReview); err != nil {
		log.Printf("Error crediting review XP for user %d: %v", userID, err)
	}

	answer := fmt.Sprintf("Следующий показ через %s", intervalText(review.IntervalDays))
	if !wasLearned && item.Learned {
		answer = "🌟 Слово выучено!"
	}
	b.api.Request(tgbotapi.NewCallback(callback.ID, answer))

	b.announceActivity(chatID, res)

	// Serve the next due card, if any
	items, err := b.vocab.GetDueForUser(ctx, userID, 1)
	if err != nil {
		log.Printf("Error getting due cards for user %d: %v", userID, err)
		return
	}
	if len(items) == 0 {
		b.send(chatID, "🎉 Все карточки на сегодня повторены!")
		return
	}
	b.sendReviewCard(chatID, &items[0])
}

// intervalText formats a review interval for humans
func intervalText(days float64) string {
	if days < 1.5 {
		return "1 день"
	}
	n := int(days + 0.5)
	return fmt.Sprintf("%d %s", n, dayForm(n))
}

// handleStreak handles the /streak command
func (b *Bot) handleStreak(ctx context.Context, user *models.User, chatID int64) {
	info, err := b.engagement.GetStreakInfo(ctx, user.ID)
	if err != nil {
		log.Printf("Error getting streak info for user %d: %v", user.ID, err)
		b.send(chatID, "Не удалось загрузить данные о серии.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔥 Серия: %d %s (рекорд — %d)\n", info.StreakDays, dayForm(info.StreakDays), info.BestStreak)
	fmt.Fprintf(&sb, "📨 Сегодня: %d из %d сообщений", info.DailyMessages, info.DailyGoal)
	if info.DailyGoalReached {
		sb.WriteString(" ✅\n")
	} else {
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "❄️ Заморозки: %d\n", info.FreezeAvailable)
	fmt.Fprintf(&sb, "⭐ XP: %d всего, %d за неделю, %d за месяц\n", info.TotalXP, info.WeeklyXP, info.MonthlyXP)

	if nm := info.NextMilestone; nm != nil {
		left := nm.Days - info.StreakDays
		fmt.Fprintf(&sb, "\nДо награды «%s» %s осталось %d %s!\n", nm.Name, nm.Emoji, left, dayForm(left))
	}

	sb.WriteString("\nНаграды:\n")
	for _, badge := range info.Badges {
		mark := "▫️"
		if badge.Earned {
			mark = badge.Milestone.Emoji
		}
		fmt.Fprintf(&sb, "%s %s — %d %s\n", mark, badge.Milestone.Name, badge.Milestone.Days, dayForm(badge.Milestone.Days))
	}

	b.send(chatID, sb.String())
}

// handleFreeze handles the /freeze command
func (b *Bot) handleFreeze(ctx context.Context, user *models.User, chatID int64) {
	remaining, err := b.engagement.UseFreeze(ctx, user.ID)
	switch {
	case errors.Is(err, engagement.ErrNoFreezeAvailable):
		b.send(chatID, "У вас не осталось заморозок. Новые выдаются каждый понедельник и за награды серии.")
	case errors.Is(err, engagement.ErrFreezeAlreadyUsed):
		b.send(chatID, "Заморозка на сегодня уже активирована.")
	case err != nil:
		log.Printf("Error using freeze for user %d: %v", user.ID, err)
		b.send(chatID, "Не удалось активировать заморозку, попробуйте позже.")
	default:
		b.send(chatID, fmt.Sprintf("❄️ Заморозка активирована! Осталось заморозок: %d.", remaining))
	}
}

// handleChallenge handles the /challenge command
func (b *Bot) handleChallenge(ctx context.Context, user *models.User, chatID int64) {
	c, err := b.challenges.TodaysChallenge(ctx, user.ID)
	if err != nil {
		log.Printf("Error getting challenge for user %d: %v", user.ID, err)
		b.send(chatID, "Не удалось получить задание дня, попробуйте позже.")
		return
	}
	if c.Completed {
		b.send(chatID, fmt.Sprintf("Задание дня уже выполнено (оценка %d/10, +%d XP). Новое появится завтра!", c.Score, c.XPEarned))
		return
	}

	b.userStates[user.ID] = UserState{
		State:     stateChallengeAnswer,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"challenge_id": c.ID},
	}

	b.send(chatID, fmt.Sprintf("🎯 Задание дня (%s, %s):\n\n%s\n\nОтправьте ответ одним сообщением. /cancel — отложить.",
		c.Difficulty, c.Topic, c.Text))
}

// handleChallengeAnswer evaluates the user's answer to the daily challenge
func (b *Bot) handleChallengeAnswer(ctx context.Context, user *models.User, message *tgbotapi.Message, state UserState) {
	challengeID, _ := state.Data["challenge_id"].(string)
	delete(b.userStates, user.ID)
	if challengeID == "" {
		b.send(message.Chat.ID, "Задание не найдено, отправьте /challenge ещё раз.")
		return
	}

	result, err := b.challenges.Complete(ctx, challengeID, message.Text)
	if err != nil {
		log.Printf("Error completing challenge %s: %v", challengeID, err)
		b.send(message.Chat.ID, "Не удалось проверить ответ, попробуйте позже.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Оценка: %d/10\n", result.Score)
	if result.Feedback != "" {
		fmt.Fprintf(&sb, "%s\n", result.Feedback)
	}
	fmt.Fprintf(&sb, "\n⭐ +%d XP (%d за задание + %d за цепочку из %d)",
		result.XPEarned, result.BaseXP, result.StreakBonus, result.ChallengeStreak)
	for _, badge := range result.NewBadges {
		fmt.Fprintf(&sb, "\n%s Новое достижение: «%s»!", badge.Emoji, badge.Name)
	}
	b.send(message.Chat.ID, sb.String())

	// Completing the daily challenge also counts towards the streak
	res, err := b.engagement.RecordActivity(ctx, user.ID)
	if err != nil {
		log.Printf("Error recording activity for user %d: %v", user.ID, err)
	}
	b.announceActivity(message.Chat.ID, res)
}

// handleQuiz starts a multiple-choice vocabulary quiz
func (b *Bot) handleQuiz(ctx context.Context, user *models.User, chatID int64) {
	questions, err := b.quizzes.CreateQuiz(ctx, user.ID, b.config.QuizQuestionCount, quiz.MultipleChoice)
	if err != nil {
		log.Printf("Error creating quiz for user %d: %v", user.ID, err)
		b.send(chatID, "Не удалось собрать вопросы, попробуйте позже.")
		return
	}
	if len(questions) < 2 {
		b.send(chatID, "Для викторины нужно хотя бы два слова в словаре. Добавьте слова через /add или /import.")
		return
	}

	b.quizSessions[user.ID] = &quizSession{
		Questions: questions,
		StartedAt: time.Now(),
	}
	b.sendQuizQuestion(chatID, user.ID)
}

// sendQuizQuestion shows the current question of an active quiz
func (b *Bot) sendQuizQuestion(chatID int64, userID int64) {
	session, exists := b.quizSessions[userID]
	if !exists {
		return
	}
	q := session.Questions[session.CurrentIdx]

	buttons := make([][]MenuButton, 0, len(q.Options))
	for i, option := range q.Options {
		buttons = append(buttons, []MenuButton{{
			Text:         option,
			CallbackData: fmt.Sprintf("quiz:%d:%d", session.CurrentIdx, i),
		}})
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Вопрос %d из %d:\n\nКак переводится «%s»?",
		session.CurrentIdx+1, len(session.Questions), q.Item.WordDE))
	msg.ReplyMarkup = createKeyboard(buttons)
	b.api.Send(msg)
}

// handleQuizCallback processes one quiz answer
func (b *Bot) handleQuizCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, parts []string) {
	if len(parts) != 3 {
		return
	}
	questionIdx, err1 := strconv.Atoi(parts[1])
	answerIdx, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		return
	}

	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	session, exists := b.quizSessions[userID]
	if !exists || questionIdx != session.CurrentIdx {
		// Stale button from a finished or restarted quiz
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
		return
	}

	q := session.Questions[questionIdx]
	if answerIdx == q.CorrectIndex {
		session.Correct++
		b.api.Request(tgbotapi.NewCallback(callback.ID, "✅ Верно!"))
	} else {
		b.api.Request(tgbotapi.NewCallback(callback.ID, fmt.Sprintf("❌ Правильный ответ: %s", q.Item.WordRU)))
	}

	session.CurrentIdx++
	if session.CurrentIdx < len(session.Questions) {
		b.sendQuizQuestion(chatID, userID)
		return
	}

	// Quiz finished
	delete(b.quizSessions, userID)
	duration := int(time.Since(session.StartedAt).Seconds())
	total := len(session.Questions)

	if err := b.quizzes.SaveResult(ctx, userID, quiz.MultipleChoice, total, session.Correct, duration); err != nil {
		log.Printf("Error saving quiz result for user %d: %v", userID, err)
	}

	b.send(chatID, fmt.Sprintf("Викторина завершена! Результат: %d из %d. ⭐ +%d XP",
		session.Correct, total, session.Correct*quiz.XPPerCorrectAnswer))

	res, err := b.engagement.RecordActivity(ctx, userID)
	if err != nil {
		log.Printf("Error recording activity for user %d: %v", userID, err)
	}
	b.announceActivity(chatID, res)
}

// handleLevel starts the adaptive placement test
func (b *Bot) handleLevel(user *models.User, chatID int64) {
	b.placements[user.ID] = &placement.Session{}
	b.send(chatID, fmt.Sprintf("Сейчас ваш уровень — %s. Пройдём короткий тест и уточним его!", user.Level))
	b.sendPlacementQuestion(chatID, user.ID)
}

// sendPlacementQuestion shows the current question of an active test
func (b *Bot) sendPlacementQuestion(chatID int64, userID int64) {
	session, exists := b.placements[userID]
	if !exists {
		return
	}
	q := session.CurrentQuestion()
	if q == nil {
		return
	}

	buttons := make([][]MenuButton, 0, len(q.Options))
	for i, option := range q.Options {
		buttons = append(buttons, []MenuButton{{
			Text:         option,
			CallbackData: fmt.Sprintf("place:%d:%d", session.TotalAsked, i),
		}})
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Вопрос %d (уровень %s):\n\n%s",
		session.TotalAsked+1, q.Level, q.Text))
	msg.ReplyMarkup = createKeyboard(buttons)
	b.api.Send(msg)
}

// handlePlacementCallback processes one placement answer
func (b *Bot) handlePlacementCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, parts []string) {
	if len(parts) != 3 {
		return
	}
	questionNo, err1 := strconv.Atoi(parts[1])
	answerIdx, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		return
	}

	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	session, exists := b.placements[userID]
	if !exists || questionNo != session.TotalAsked {
		// Stale button from a finished or restarted test
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
		return
	}
	q := session.CurrentQuestion()
	if q == nil || answerIdx < 0 || answerIdx >= len(q.Options) {
		return
	}

	correct := answerIdx == q.CorrectIndex
	if correct {
		b.api.Request(tgbotapi.NewCallback(callback.ID, "✅ Верно!"))
	} else {
		b.api.Request(tgbotapi.NewCallback(callback.ID, fmt.Sprintf("❌ Правильно: %s", q.Options[q.CorrectIndex])))
	}

	outcome := session.Advance(correct)
	if outcome == nil {
		b.sendPlacementQuestion(chatID, userID)
		return
	}

	delete(b.placements, userID)
	if err := b.placement.Finish(ctx, userID, outcome); err != nil {
		log.Printf("Error saving placement result for user %d: %v", userID, err)
		b.send(chatID, "Не удалось сохранить результат теста, попробуйте позже.")
		return
	}

	b.send(chatID, fmt.Sprintf("Тест завершён: %d из %d верно.\n\n🎓 Ваш уровень — %s. %s",
		outcome.TotalCorrect, outcome.TotalAsked, outcome.Level, outcome.Reason))
}

// handleAddWord asks the user for a word pair
func (b *Bot) handleAddWord(user *models.User, chatID int64) {
	b.userStates[user.ID] = UserState{State: stateWordPair, Timestamp: time.Now()}
	b.send(chatID, "Отправьте слово в формате:\n\nслово - перевод\n\nНапример: der Hund - собака. /cancel — отмена.")
}

// handleWordPairInput parses "word - translation" and stores the card
func (b *Bot) handleWordPairInput(ctx context.Context, user *models.User, message *tgbotapi.Message) {
	parts := strings.SplitN(message.Text, "-", 2)
	if len(parts) != 2 {
		b.send(message.Chat.ID, "Не понял формат. Отправьте: слово - перевод")
		return
	}
	wordDE := strings.TrimSpace(parts[0])
	wordRU := strings.TrimSpace(parts[1])
	if wordDE == "" || wordRU == "" {
		b.send(message.Chat.ID, "Не понял формат. Отправьте: слово - перевод")
		return
	}
	delete(b.userStates, user.ID)

	exists, err := b.vocab.ExistsForUser(ctx, user.ID, wordDE)
	if err != nil {
		log.Printf("Error checking card for user %d: %v", user.ID, err)
		b.send(message.Chat.ID, "Не удалось сохранить слово, попробуйте позже.")
		return
	}
	if exists {
		b.send(message.Chat.ID, fmt.Sprintf("Слово «%s» уже есть в вашем словаре.", wordDE))
		return
	}

	item := &models.VocabularyItem{
		UserID:     user.ID,
		WordDE:     wordDE,
		WordRU:     wordRU,
		EaseFactor: srs.InitialEaseFactor,
	}
	if err := b.vocab.Create(ctx, item); err != nil {
		log.Printf("Error creating card for user %d: %v", user.ID, err)
		b.send(message.Chat.ID, "Не удалось сохранить слово, попробуйте позже.")
		return
	}
	b.send(message.Chat.ID, fmt.Sprintf("✅ Добавлено: %s — %s", wordDE, wordRU))
}

// handleImportFile downloads an uploaded document and imports the cards
func (b *Bot) handleImportFile(ctx context.Context, user *models.User, message *tgbotapi.Message) {
	delete(b.userStates, user.ID)
	doc := message.Document

	ext := strings.ToLower(filepath.Ext(doc.FileName))
	if ext != ".xlsx" && ext != ".csv" {
		b.send(message.Chat.ID, "Поддерживаются только файлы .xlsx и .csv.")
		return
	}

	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		log.Printf("Error resolving file %s: %v", doc.FileID, err)
		b.send(message.Chat.ID, "Не удалось скачать файл, попробуйте ещё раз.")
		return
	}

	tmpPath, err := downloadToTemp(url, ext)
	if err != nil {
		log.Printf("Error downloading file %s: %v", doc.FileID, err)
		b.send(message.Chat.ID, "Не удалось скачать файл, попробуйте ещё раз.")
		return
	}
	defer os.Remove(tmpPath)

	result, err := excel.ImportWords(ctx, user.ID, excel.DefaultImportConfig(tmpPath))
	if err != nil {
		log.Printf("Error importing words for user %d: %v", user.ID, err)
		b.send(message.Chat.ID, "Не удалось разобрать файл. Проверьте формат: слово, перевод, пример.")
		return
	}

	text := fmt.Sprintf("Импорт завершён: добавлено %d, пропущено %d из %d строк.",
		result.Created, result.Skipped, result.TotalProcessed)
	if len(result.Errors) > 0 {
		text += fmt.Sprintf("\nОшибок: %d (первая: %s)", len(result.Errors), result.Errors[0])
	}
	b.send(message.Chat.ID, text)
}

// downloadToTemp fetches a Telegram file into a temporary path
func downloadToTemp(url, ext string) (string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "import-*"+ext)
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// handleStats handles the /stats command
func (b *Bot) handleStats(ctx context.Context, user *models.User, chatID int64) {
	total, learned, due, err := b.vocab.Stats(ctx, user.ID)
	if err != nil {
		log.Printf("Error getting card stats for user %d: %v", user.ID, err)
		b.send(chatID, "Не удалось загрузить статистику.")
		return
	}
	info, err := b.engagement.GetStreakInfo(ctx, user.ID)
	if err != nil {
		log.Printf("Error getting streak info for user %d: %v", user.ID, err)
		b.send(chatID, "Не удалось загрузить статистику.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 Ваша статистика:\n\n")
	fmt.Fprintf(&sb, "📚 Слов в словаре: %d\n", total)
	fmt.Fprintf(&sb, "🌟 Выучено: %d\n", learned)
	fmt.Fprintf(&sb, "⏰ Ждут повторения: %d\n", due)
	fmt.Fprintf(&sb, "🔥 Серия: %d %s (рекорд — %d)\n", info.StreakDays, dayForm(info.StreakDays), info.BestStreak)
	fmt.Fprintf(&sb, "⭐ XP: %d всего, %d за неделю\n", info.TotalXP, info.WeeklyXP)
	if user.PremiumUntil != nil && user.PremiumUntil.After(time.Now()) {
		fmt.Fprintf(&sb, "💎 Премиум до %s\n", user.PremiumUntil.Format("02.01.2006"))
	}
	b.send(chatID, sb.String())
}

// handleLeaderboard handles the /leaderboard command
func (b *Bot) handleLeaderboard(ctx context.Context, chatID int64) {
	users, err := b.users.Leaderboard(ctx, b.config.LeaderboardSize)
	if err != nil {
		log.Printf("Error getting leaderboard: %v", err)
		b.send(chatID, "Не удалось загрузить рейтинг.")
		return
	}
	if len(users) == 0 {
		b.send(chatID, "Рейтинг пока пуст.")
		return
	}

	medals := []string{"🥇", "🥈", "🥉"}
	var sb strings.Builder
	sb.WriteString("🏆 Рейтинг недели:\n\n")
	for i, u := range users {
		mark := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			mark = medals[i]
		}
		name := u.FirstName
		if name == "" {
			name = u.Username
		}
		fmt.Fprintf(&sb, "%s %s — %d XP\n", mark, name, u.WeeklyXP)
	}
	b.send(chatID, sb.String())
}

// handleRemindToggle flips the reminder preference
func (b *Bot) handleRemindToggle(ctx context.Context, user *models.User, chatID int64) {
	user.ReminderEnabled = !user.ReminderEnabled
	if err := b.users.UpdateSettings(ctx, user); err != nil {
		log.Printf("Error updating settings for user %d: %v", user.ID, err)
		b.send(chatID, "Не удалось изменить настройки.")
		return
	}
	if user.ReminderEnabled {
		b.send(chatID, "🔔 Напоминания включены.")
	} else {
		b.send(chatID, "🔕 Напоминания выключены.")
	}
}

// handleCallbackQuery dispatches inline keyboard presses
func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	parts := strings.Split(callback.Data, ":")
	if len(parts) == 0 {
		return
	}

	user, err := b.users.GetOrCreate(ctx, callback.From.ID, callback.From.UserName,
		callback.From.FirstName, callback.From.LastName)
	if err != nil {
		log.Printf("Error loading user %d: %v", callback.From.ID, err)
		return
	}

	switch parts[0] {
	case "grade":
		b.handleGradeCallback(ctx, callback, parts)
	case "show":
		b.handleShowCallback(ctx, callback, parts)
	case "quiz":
		b.handleQuizCallback(ctx, callback, parts)
	case "gram":
		b.handleGrammarCallback(ctx, callback, parts)
	case "gramset", "gramfreq":
		b.handleGrammarSettingCallback(ctx, callback, user, parts)
	case "place":
		b.handlePlacementCallback(ctx, callback, parts)
	case "menu":
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
		if len(parts) != 2 {
			return
		}
		chatID := callback.Message.Chat.ID
		switch parts[1] {
		case "review":
			b.handleReview(ctx, user, chatID)
		case "challenge":
			b.handleChallenge(ctx, user, chatID)
		case "streak":
			b.handleStreak(ctx, user, chatID)
		case "stats":
			b.handleStats(ctx, user, chatID)
		}
	default:
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
	}
}

// send delivers a plain text message
func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
	}
}
