package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/reviewbot/internal/quiz"
	"github.com/example/reviewbot/internal/review"
	"github.com/example/reviewbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
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

// sender is the part of tgbotapi.BotAPI the handlers use
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// AttemptRecorder buffers answered questions for the remote store
type AttemptRecorder interface {
	Enqueue(rec models.AttemptRecord)
}

// reviewSession is an ongoing /review run in one chat
type reviewSession struct {
	IDs        []string
	CurrentIdx int
	Correct    int
	AskedAt    time.Time
	Question   quiz.Question
}

// Bot represents the Telegram bot application
type Bot struct {
	client   *tgbotapi.BotAPI
	api      sender
	store    *review.Store
	attempts AttemptRecorder
	config   *BotConfig
	quiz     *quiz.Builder
	now      func() time.Time

	mu       sync.Mutex
	sessions map[int64]*reviewSession
}

// New authorizes against Telegram and creates a new bot instance
func New(cfg *BotConfig, store *review.Store, attempts AttemptRecorder) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	log.Printf("Authorized on account %s", botAPI.Self.UserName)

	b := newBot(botAPI, cfg, store, attempts)
	b.client = botAPI
	return b, nil
}

func newBot(api sender, cfg *BotConfig, store *review.Store, attempts AttemptRecorder) *Bot {
	defaults := DefaultConfig()
	if cfg.WordsPerSession <= 0 {
		cfg.WordsPerSession = defaults.WordsPerSession
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = defaults.ListLimit
	}
	return &Bot{
		api:      api,
		store:    store,
		attempts: attempts,
		config:   cfg,
		quiz:     quiz.NewBuilder(time.Now().UnixNano()),
		now:      time.Now,
		sessions: make(map[int64]*reviewSession),
	}
}

// Run receives updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context) error {
	if b.client == nil {
		return fmt.Errorf("bot is not connected")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.client.GetUpdatesChan(updateConfig)

	log.Println("Bot started, waiting for updates")
	for {
		select {
		case <-ctx.Done():
			b.client.StopReceivingUpdates()
			log.Println("Bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// SendReminders implements the scheduler.Notifier interface
func (b *Bot) SendReminders(chatID int64, due, overdue int) error {
	msg := tgbotapi.NewMessage(chatID, formatReminder(due, overdue))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "🎯 Начать повторение", CallbackData: callbackStartReview}},
	})

	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending reminder to chat %d: %v", chatID, err)
		return err
	}
	log.Printf("Successfully sent reminder to chat %d for %d words", chatID, due)
	return nil
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil:
		if !b.allowed(update.Message.Chat) {
			log.Printf("Ignoring message from chat %d", update.Message.Chat.ID)
			return
		}
		if update.Message.IsCommand() {
			err = b.HandleCommand(ctx, update.Message)
			break
		}
		var handled bool
		handled, err = b.handleTextAnswer(update.Message.Chat.ID, update.Message.Text)
		if !handled && err == nil {
			err = b.sendText(update.Message.Chat.ID, "Не понимаю. Используйте /help.")
		}
	case update.CallbackQuery != nil:
		if update.CallbackQuery.Message == nil || !b.allowed(update.CallbackQuery.Message.Chat) {
			return
		}
		err = b.HandleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		log.Printf("Error handling update %d: %v", update.UpdateID, err)
	}
}

func (b *Bot) allowed(chat *tgbotapi.Chat) bool {
	return chat != nil && (b.config.ChatID == 0 || chat.ID == b.config.ChatID)
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}
