package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/reviewbot/internal/quiz"
	"github.com/example/reviewbot/internal/review"
	"github.com/example/reviewbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	t0     = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	course = models.PartitionKey{CourseType: models.CourseRequired, CourseBook: "Book1"}
)

type fakeSender struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
	answers  []tgbotapi.CallbackConfig
	err      error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.messages = append(f.messages, msg)
	}
	return tgbotapi.Message{}, f.err
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.answers = append(f.answers, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1].Text
}

type fakeAttempts struct {
	records []models.AttemptRecord
}

func (f *fakeAttempts) Enqueue(rec models.AttemptRecord) {
	f.records = append(f.records, rec)
}

func newTestBot(t *testing.T, chatID int64) (*Bot, *fakeSender, *fakeAttempts, *review.Store) {
	t.Helper()
	now := t0
	store := review.NewStore(review.WithClock(func() time.Time { return now }))
	api := &fakeSender{}
	attempts := &fakeAttempts{}
	b := newBot(api, &BotConfig{ChatID: chatID, Course: course, UserID: "u1", DeviceID: "phone"}, store, attempts)
	// Все слова из тетради попадают в сегодняшнюю очередь
	b.now = func() time.Time { return t0.Add(time.Hour) }
	return b, api, attempts, store
}

func command(chatID int64, text string) tgbotapi.Update {
	cmd := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(cmd)},
		},
	}}
}

func callback(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func TestAddAndDueCommands(t *testing.T) {
	b, api, _, store := newTestBot(t, 0)
	ctx := context.Background()

	b.handleUpdate(ctx, command(1, "/add apple - яблоко"))
	if !strings.Contains(api.last(), "добавлено") {
		t.Errorf("add reply = %q", api.last())
	}
	b.handleUpdate(ctx, command(1, "/add Apple - яблоко"))
	if !strings.Contains(api.last(), "ошибок: 2") {
		t.Errorf("second add reply = %q", api.last())
	}
	if store.Len() != 1 {
		t.Fatalf("store has %d words, want 1", store.Len())
	}

	b.handleUpdate(ctx, command(1, "/due"))
	if !strings.Contains(api.last(), "apple - яблоко") {
		t.Errorf("due reply = %q", api.last())
	}
}

func TestForeignChatIgnored(t *testing.T) {
	b, api, _, _ := newTestBot(t, 42)

	b.handleUpdate(context.Background(), command(7, "/stats"))
	if len(api.messages) != 0 {
		t.Errorf("sent %d messages to a foreign chat", len(api.messages))
	}
}

func currentQuestion(t *testing.T, b *Bot, chatID int64) quiz.Question {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	session, ok := b.sessions[chatID]
	if !ok {
		t.Fatal("no review session")
	}
	return session.Question
}

func TestReviewSession(t *testing.T) {
	b, api, attempts, store := newTestBot(t, 0)
	ctx := context.Background()
	apple := store.AddOrMergeMissedWord(course, models.WordRecord{Word: "apple", Meaning: "яблоко"})
	pear := store.AddOrMergeMissedWord(course, models.WordRecord{Word: "pear", Meaning: "груша"})

	b.handleUpdate(ctx, command(1, "/review"))
	if !strings.Contains(api.last(), "1/2") || !strings.Contains(api.last(), "apple") {
		t.Fatalf("first question = %q", api.last())
	}
	q := currentQuestion(t, b, 1)
	if q.Kind != quiz.MultipleChoice || len(q.Options) != 2 {
		t.Fatalf("question = %+v", q)
	}

	// Ответ не на текущий вопрос игнорируется
	b.handleUpdate(ctx, callback(1, answerData(pear.ID, 0)))
	if len(attempts.records) != 0 {
		t.Fatalf("stale answer recorded")
	}

	b.handleUpdate(ctx, callback(1, answerData(apple.ID, q.CorrectIndex)))
	if !strings.Contains(api.last(), "2/2") {
		t.Fatalf("second question = %q", api.last())
	}
	b.handleUpdate(ctx, callback(1, answerData(pear.ID, dontKnow)))
	if !strings.Contains(api.last(), "1 из 2") {
		t.Errorf("session summary = %q", api.last())
	}

	if got := mustGet(t, store, apple.ID); got.ReviewCount != 1 {
		t.Errorf("apple review count = %d, want 1", got.ReviewCount)
	}
	if got := mustGet(t, store, pear.ID); got.ErrorCount != 2 {
		t.Errorf("pear error count = %d, want 2", got.ErrorCount)
	}

	if len(attempts.records) != 2 {
		t.Fatalf("attempts = %d, want 2", len(attempts.records))
	}
	first := attempts.records[0]
	if first.WordID != apple.ID || !first.IsCorrect || first.UserID != "u1" || first.DeviceID != "phone" {
		t.Errorf("attempt = %+v", first)
	}
	if attempts.records[1].IsCorrect {
		t.Error("second attempt should be incorrect")
	}
}

func TestDictationTypedAnswer(t *testing.T) {
	b, api, attempts, store := newTestBot(t, 0)
	ctx := context.Background()
	rec := store.AddOrMergeMissedWord(course, models.WordRecord{
		Word:      "river",
		Meaning:   "река",
		Context:   "The river is wide.",
		Direction: models.DirectionDictation,
	})

	b.handleUpdate(ctx, command(1, "/review"))
	if !strings.Contains(api.last(), "The _______ is wide.") {
		t.Fatalf("question = %q", api.last())
	}

	b.handleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{Text: " River ", Chat: &tgbotapi.Chat{ID: 1}}})
	if len(attempts.records) != 1 || !attempts.records[0].IsCorrect {
		t.Fatalf("attempts = %+v", attempts.records)
	}
	if got := mustGet(t, store, rec.ID); got.ReviewCount != 1 {
		t.Errorf("review count = %d, want 1", got.ReviewCount)
	}

	// Вне сессии текст не распознаётся как ответ
	b.handleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{Text: "river", Chat: &tgbotapi.Chat{ID: 1}}})
	if !strings.Contains(api.last(), "/help") {
		t.Errorf("reply = %q", api.last())
	}
}

func TestReviewWithNothingDue(t *testing.T) {
	b, api, _, _ := newTestBot(t, 0)

	b.handleUpdate(context.Background(), callback(1, callbackStartReview))
	if !strings.Contains(api.last(), "всё повторено") {
		t.Errorf("reply = %q", api.last())
	}
}

func TestMasterCommand(t *testing.T) {
	b, api, _, store := newTestBot(t, 0)
	rec := store.AddOrMergeMissedWord(course, models.WordRecord{Word: "river", Meaning: "река"})

	b.handleUpdate(context.Background(), command(1, "/master RIVER"))
	if !mustGet(t, store, rec.ID).IsMastered {
		t.Error("river was not mastered")
	}

	b.handleUpdate(context.Background(), command(1, "/master lake"))
	if !strings.Contains(api.last(), "нет в учебнике") {
		t.Errorf("reply = %q", api.last())
	}
}

func TestSendReminders(t *testing.T) {
	b, api, _, _ := newTestBot(t, 0)

	if err := b.SendReminders(42, 3, 1); err != nil {
		t.Fatalf("SendReminders: %v", err)
	}
	msg := api.messages[0]
	if msg.ChatID != 42 || !strings.Contains(msg.Text, "3 слова") || !strings.Contains(msg.Text, "просрочено: 1") {
		t.Errorf("reminder = %+v", msg)
	}

	api.err = errors.New("blocked")
	if err := b.SendReminders(42, 1, 0); err == nil {
		t.Error("expected send error")
	}
}

func TestPluralWords(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "слово"},
		{2, "слова"},
		{5, "слов"},
		{11, "слов"},
		{14, "слов"},
		{21, "слово"},
		{22, "слова"},
		{111, "слов"},
	}
	for _, tt := range tests {
		if got := pluralWords(tt.n); got != tt.want {
			t.Errorf("pluralWords(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestParseAddArgs(t *testing.T) {
	tests := []struct {
		args        string
		wantWord    string
		wantMeaning string
		wantErr     bool
	}{
		{args: "apple - яблоко", wantWord: "apple", wantMeaning: "яблоко"},
		{args: "well-known - известный", wantWord: "well-known", wantMeaning: "известный"},
		{args: "apple", wantErr: true},
		{args: " - яблоко", wantErr: true},
	}
	for _, tt := range tests {
		word, meaning, err := parseAddArgs(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAddArgs(%q) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if word != tt.wantWord || meaning != tt.wantMeaning {
			t.Errorf("parseAddArgs(%q) = %q, %q", tt.args, word, meaning)
		}
	}
}

func TestParseAnswerData(t *testing.T) {
	tests := []struct {
		data    string
		wantID  string
		wantIdx int
		wantOK  bool
	}{
		{data: answerData("abc", 2), wantID: "abc", wantIdx: 2, wantOK: true},
		{data: answerData("abc", dontKnow), wantID: "abc", wantIdx: dontKnow, wantOK: true},
		{data: "ans:abc:x"},
		{data: "ans:abc:-2"},
		{data: "ans::1"},
		{data: callbackStartReview},
	}
	for _, tt := range tests {
		id, idx, ok := parseAnswerData(tt.data)
		if id != tt.wantID || idx != tt.wantIdx || ok != tt.wantOK {
			t.Errorf("parseAnswerData(%q) = %q, %d, %v", tt.data, id, idx, ok)
		}
	}
}

func mustGet(t *testing.T, s *review.Store, id string) models.WordRecord {
	t.Helper()
	rec, ok := s.Get(id)
	if !ok {
		t.Fatalf("record %s missing", id)
	}
	return rec
}
