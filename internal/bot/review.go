package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/reviewbot/internal/quiz"
	"github.com/example/reviewbot/pkg/models"
	"github.com/google/uuid"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// dontKnow is the option index of the "don't know" button
const dontKnow = -1

// startReview asks today's most urgent words one at a time
func (b *Bot) startReview(chatID int64) error {
	due := b.store.DueToday(b.now())
	if len(due) == 0 {
		return b.sendText(chatID, "✅ На сегодня всё повторено!")
	}
	if len(due) > b.config.WordsPerSession {
		due = due[:b.config.WordsPerSession]
	}

	ids := make([]string, len(due))
	for i, w := range due {
		ids[i] = w.ID
	}

	b.mu.Lock()
	b.sessions[chatID] = &reviewSession{IDs: ids}
	b.mu.Unlock()

	return b.askCurrent(chatID)
}

// askCurrent sends the current question of the session, skipping words
// removed since the session started
func (b *Bot) askCurrent(chatID int64) error {
	pool := b.store.Snapshot()

	b.mu.Lock()
	session, ok := b.sessions[chatID]
	if !ok {
		b.mu.Unlock()
		return nil
	}

	var rec models.WordRecord
	found := false
	for session.CurrentIdx < len(session.IDs) {
		rec, found = b.store.Get(session.IDs[session.CurrentIdx])
		if found {
			break
		}
		session.CurrentIdx++
	}

	if !found {
		total, correct := len(session.IDs), session.Correct
		delete(b.sessions, chatID)
		b.mu.Unlock()
		return b.sendText(chatID, fmt.Sprintf("🎉 Повторение завершено: %d из %d верно", correct, total))
	}

	q := b.quiz.Build(rec, pool)
	session.Question = q
	session.AskedAt = b.now()
	position := fmt.Sprintf("%d/%d", session.CurrentIdx+1, len(session.IDs))
	b.mu.Unlock()

	msg := tgbotapi.NewMessage(chatID, position+"\n\n"+formatQuestion(q))
	msg.ReplyMarkup = createKeyboard(questionButtons(q))
	return b.sendMessage(msg)
}

// handleAnswer grades a button press on the current question
func (b *Bot) handleAnswer(chatID int64, callbackID, id string, idx int) error {
	b.mu.Lock()
	session, ok := b.sessions[chatID]
	current := ok && session.CurrentIdx < len(session.IDs) && session.IDs[session.CurrentIdx] == id
	var q quiz.Question
	if current {
		q = session.Question
	}
	b.mu.Unlock()

	if !current {
		b.answerCallback(callbackID, "Вопрос устарел")
		return nil
	}

	correct := q.CheckChoice(idx)
	b.answerCallback(callbackID, verdict(q, correct))
	return b.recordAnswer(chatID, id, correct)
}

// handleTextAnswer grades a typed reply; false when no typed answer is expected
func (b *Bot) handleTextAnswer(chatID int64, text string) (bool, error) {
	b.mu.Lock()
	session, ok := b.sessions[chatID]
	if !ok || session.CurrentIdx >= len(session.IDs) || session.Question.Kind != quiz.TextInput {
		b.mu.Unlock()
		return false, nil
	}
	q, id := session.Question, session.IDs[session.CurrentIdx]
	b.mu.Unlock()

	correct := q.CheckText(text)
	if err := b.sendText(chatID, verdict(q, correct)); err != nil {
		return true, err
	}
	return true, b.recordAnswer(chatID, id, correct)
}

// recordAnswer applies the outcome, buffers the attempt and asks the next question
func (b *Bot) recordAnswer(chatID int64, id string, correct bool) error {
	now := b.now()

	b.mu.Lock()
	session, ok := b.sessions[chatID]
	if !ok || session.CurrentIdx >= len(session.IDs) || session.IDs[session.CurrentIdx] != id {
		b.mu.Unlock()
		return nil
	}
	askedAt := session.AskedAt
	session.CurrentIdx++
	if correct {
		session.Correct++
	}
	b.mu.Unlock()

	b.store.RecordOutcome(id, correct)
	rec, ok := b.store.Get(id)
	if !ok {
		return b.askCurrent(chatID)
	}

	b.attempts.Enqueue(models.AttemptRecord{
		ID:          uuid.NewString(),
		UserID:      b.config.UserID,
		WordID:      rec.ID,
		Word:        rec.Word,
		Meaning:     rec.Meaning,
		Context:     rec.Context,
		Direction:   rec.Direction,
		IsCorrect:   correct,
		AnswerTime:  now.Sub(askedAt),
		StreakCount: rec.ConsecutiveCorrect,
		StudyDate:   now,
		DeviceID:    b.config.DeviceID,
	})

	if rec.IsMastered {
		if err := b.sendText(chatID, fmt.Sprintf("🏆 «%s» выучено!", rec.Word)); err != nil {
			return err
		}
	}
	return b.askCurrent(chatID)
}

func questionButtons(q quiz.Question) [][]MenuButton {
	id := q.Word.ID
	switch q.Kind {
	case quiz.MultipleChoice:
		rows := make([][]MenuButton, 0, len(q.Options)+1)
		for i, option := range q.Options {
			rows = append(rows, []MenuButton{{Text: option, CallbackData: answerData(id, i)}})
		}
		return append(rows, []MenuButton{{Text: "❓ Не знаю", CallbackData: answerData(id, dontKnow)}})
	case quiz.SelfCheck:
		return [][]MenuButton{{
			{Text: "✅ Помню", CallbackData: answerData(id, 0)},
			{Text: "❌ Не помню", CallbackData: answerData(id, dontKnow)},
		}}
	default:
		return [][]MenuButton{{{Text: "❓ Не знаю", CallbackData: answerData(id, dontKnow)}}}
	}
}

// formatQuestion shows the side of the card the direction asks about
func formatQuestion(q quiz.Question) string {
	rec := q.Word
	switch {
	case q.Kind == quiz.TextInput:
		text := fmt.Sprintf("Напишите слово: %s", q.Prompt)
		if q.ContextSentence != "" {
			text += "\n" + q.ContextSentence
		}
		return text
	case rec.Direction == models.DirectionRecallWord:
		return fmt.Sprintf("Как будет по-английски: %s?", q.Prompt)
	default:
		text := fmt.Sprintf("Что значит «%s»?", q.Prompt)
		if rec.Context != "" {
			text += "\n" + rec.Context
		}
		return text
	}
}

func verdict(q quiz.Question, correct bool) string {
	if correct {
		return "✅ Верно!"
	}
	return fmt.Sprintf("❌ %s - %s", q.Word.Word, q.Word.Meaning)
}

func answerData(id string, idx int) string {
	return callbackAnswer + id + ":" + strconv.Itoa(idx)
}

func parseAnswerData(data string) (id string, idx int, ok bool) {
	rest, found := strings.CutPrefix(data, callbackAnswer)
	if !found {
		return "", 0, false
	}
	sep := strings.LastIndex(rest, ":")
	if sep <= 0 {
		return "", 0, false
	}
	idx, err := strconv.Atoi(rest[sep+1:])
	if err != nil || idx < dontKnow {
		return "", 0, false
	}
	return rest[:sep], idx, true
}
