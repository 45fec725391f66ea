package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/example/reviewbot/internal/review"
	"github.com/example/reviewbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Constants for callback data
const (
	callbackStartReview = "start_review"
	callbackShowStats   = "show_stats"
	callbackAnswer      = "ans:"
)

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	switch message.Command() {
	case "start", "help", "menu":
		return b.handleHelp(chatID)
	case "due":
		return b.handleDue(chatID)
	case "overdue":
		return b.handleOverdue(chatID)
	case "stats":
		return b.handleStats(chatID)
	case "review":
		return b.startReview(chatID)
	case "add":
		return b.handleAdd(chatID, message.CommandArguments())
	case "master":
		return b.handleMaster(chatID, message.CommandArguments())
	default:
		return b.sendText(chatID, "Неизвестная команда. Используйте /help.")
	}
}

func (b *Bot) handleHelp(chatID int64) error {
	text := "📖 Тетрадь ошибок\n\n" +
		"/review - повторить слова на сегодня\n" +
		"/due - слова на сегодня\n" +
		"/overdue - просроченные слова\n" +
		"/stats - статистика\n" +
		"/add слово - перевод - записать ошибку\n" +
		"/master слово - отметить слово выученным\n\n" +
		fmt.Sprintf("Текущий учебник: %s", b.config.Course)

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	return b.sendMessage(msg)
}

// MainMenuButtons returns the buttons for the main menu
func (b *Bot) MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "🎯 Повторить", CallbackData: callbackStartReview},
			{Text: "📊 Статистика", CallbackData: callbackShowStats},
		},
	}
}

func (b *Bot) handleDue(chatID int64) error {
	words := b.store.DueToday(b.now())
	if len(words) == 0 {
		return b.sendText(chatID, "✅ На сегодня всё повторено!")
	}
	msg := tgbotapi.NewMessage(chatID, formatWordList("📅 На сегодня", words, b.config.ListLimit))
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) handleOverdue(chatID int64) error {
	words := b.store.Overdue(b.now())
	if len(words) == 0 {
		return b.sendText(chatID, "✅ Просроченных слов нет")
	}
	return b.sendText(chatID, formatWordList("⏰ Просрочено", words, b.config.ListLimit))
}

func (b *Bot) handleStats(chatID int64) error {
	now := b.now()
	text := formatSummary("📊 Всего", b.store.Summary(now))
	if !b.config.Course.IsZero() {
		text += "\n\n" + formatSummary(fmt.Sprintf("📚 %s", b.config.Course), b.store.PartitionSummary(b.config.Course, now))
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handleAdd(chatID int64, args string) error {
	word, meaning, err := parseAddArgs(args)
	if err != nil {
		return b.sendText(chatID, "Формат: /add слово - перевод")
	}

	rec := b.store.AddOrMergeMissedWord(b.config.Course, models.WordRecord{Word: word, Meaning: meaning})
	if rec.ErrorCount > 1 {
		return b.sendText(chatID, fmt.Sprintf("🔁 «%s» уже в тетради, ошибок: %d", rec.Word, rec.ErrorCount))
	}
	return b.sendText(chatID, fmt.Sprintf("📝 «%s» добавлено в тетрадь ошибок", rec.Word))
}

func (b *Bot) handleMaster(chatID int64, args string) error {
	word := strings.TrimSpace(args)
	if word == "" {
		return b.sendText(chatID, "Формат: /master слово")
	}

	rec, ok := b.store.FindWord(b.config.Course, word)
	if !ok {
		return b.sendText(chatID, fmt.Sprintf("«%s» нет в учебнике %s", word, b.config.Course))
	}
	b.store.MarkMastered(rec.ID)
	return b.sendText(chatID, fmt.Sprintf("🏆 «%s» отмечено выученным", rec.Word))
}

// HandleCallback обрабатывает нажатия на inline-кнопки
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback == nil || callback.Message == nil || callback.Message.Chat == nil {
		return fmt.Errorf("invalid callback data: required fields are missing")
	}
	chatID := callback.Message.Chat.ID

	switch callback.Data {
	case callbackStartReview:
		b.answerCallback(callback.ID, "")
		return b.startReview(chatID)
	case callbackShowStats:
		b.answerCallback(callback.ID, "")
		return b.handleStats(chatID)
	}

	if id, idx, ok := parseAnswerData(callback.Data); ok {
		return b.handleAnswer(chatID, callback.ID, id, idx)
	}

	b.answerCallback(callback.ID, "")
	return b.sendText(chatID, "⚠️ Неизвестное действие")
}

// answerCallback removes the loading state of the button
func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Printf("Warning: Failed to answer callback: %v", err)
	}
}

// parseAddArgs splits "word - meaning"
func parseAddArgs(args string) (word, meaning string, err error) {
	word, meaning, found := strings.Cut(args, " - ")
	word, meaning = strings.TrimSpace(word), strings.TrimSpace(meaning)
	if !found || word == "" || meaning == "" {
		return "", "", fmt.Errorf("expected \"word - meaning\", got %q", args)
	}
	return word, meaning, nil
}

func formatWordList(title string, words []models.WordRecord, limit int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %d\n\n", title, len(words)))
	for i, w := range words {
		if i == limit {
			sb.WriteString(fmt.Sprintf("… и ещё %d", len(words)-limit))
			break
		}
		sb.WriteString(fmt.Sprintf("%d. %s - %s (ошибок: %d)\n", i+1, w.Word, w.Meaning, w.ErrorCount))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatSummary(title string, s review.Summary) string {
	return fmt.Sprintf("%s\n"+
		"Слов: %d (выучено %d, %.0f%%)\n"+
		"На сегодня: %d, просрочено: %d\n"+
		"Повторений: %d, средняя доля ошибок: %.1f%%",
		title,
		s.Total, s.MasteredCount, s.MasteryRate,
		s.TodayReviewCount, s.OverdueCount,
		s.TotalReviews, s.AverageErrorRate)
}

func formatReminder(due, overdue int) string {
	text := fmt.Sprintf("⏰ У вас %d %s для повторения!", due, pluralWords(due))
	if overdue > 0 {
		text += fmt.Sprintf("\nИз них просрочено: %d", overdue)
	}
	return text
}

// pluralWords склоняет «слово» по числу
func pluralWords(n int) string {
	if n%100 >= 11 && n%100 <= 14 {
		return "слов"
	}
	switch n % 10 {
	case 1:
		return "слово"
	case 2, 3, 4:
		return "слова"
	default:
		return "слов"
	}
}
