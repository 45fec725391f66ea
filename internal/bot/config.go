package bot

import (
	"github.com/example/reviewbot/pkg/models"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	Token string
	// Only this chat is served; 0 accepts any chat
	ChatID int64
	// Active course, new missed words go here
	Course models.PartitionKey
	// Attempt records are tagged with these
	UserID   string
	DeviceID string
	// Number of words asked in one /review session
	WordsPerSession int
	// Longest word list sent by /due and /overdue
	ListLimit int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		WordsPerSession: 10,
		ListLimit:       30,
	}
}
