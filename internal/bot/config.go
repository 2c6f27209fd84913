package bot

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// ReviewBatchSize is how many due cards one /review session serves
	ReviewBatchSize int
	// QuizQuestionCount is the number of questions per quiz
	QuizQuestionCount int
	// LeaderboardSize is how many users the weekly leaderboard shows
	LeaderboardSize int
}

// DefaultBotConfig returns the default bot configuration
func DefaultBotConfig() *BotConfig {
	return &BotConfig{
		ReviewBatchSize:   10,
		QuizQuestionCount: 5,
		LeaderboardSize:   10,
	}
}
