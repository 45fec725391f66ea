package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/reviewbot/internal/review"
	"github.com/go-co-op/gocron"
)

// Default schedule
const (
	DefaultFlushInterval = 30 * time.Second
	DefaultReminderHour  = 9
)

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     SummarySource
	queue     Drainer
	notifier  Notifier
	cfg       Config
	now       func() time.Time
}

// Notifier interface for sending notifications
type Notifier interface {
	SendReminders(chatID int64, due, overdue int) error
}

// SummarySource provides the dashboard figures for the reminder
type SummarySource interface {
	Summary(now time.Time) review.Summary
}

// Drainer is the write-behind queue drained by the periodic job
type Drainer interface {
	Drain(ctx context.Context) error
}

// Config holds the schedule
type Config struct {
	FlushInterval time.Duration
	ReminderHour  int
	ChatID        int64
	Location      *time.Location
}

// New creates a new scheduler instance. notifier may be nil, then no reminder job is scheduled.
func New(store SummarySource, queue Drainer, notifier Notifier, cfg Config) *Scheduler {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(cfg.Location),
		store:     store,
		queue:     queue,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	// Не запускаем следующую выгрузку, пока идёт предыдущая
	s.scheduler.SingletonModeAll()

	if _, err := s.scheduler.Every(s.cfg.FlushInterval).Do(s.drainAttempts); err != nil {
		return fmt.Errorf("failed to schedule attempt drain: %w", err)
	}

	if s.notifier != nil {
		at := fmt.Sprintf("%02d:00", s.cfg.ReminderHour)
		if _, err := s.scheduler.Every(1).Day().At(at).Do(s.checkAndSendReminders); err != nil {
			return fmt.Errorf("failed to schedule reminder: %w", err)
		}
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// drainAttempts pushes buffered attempt records to the remote store
func (s *Scheduler) drainAttempts() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FlushInterval)
	defer cancel()

	if err := s.queue.Drain(ctx); err != nil {
		log.Printf("Error draining attempt records: %v", err)
	}
}

// checkAndSendReminders sends the daily reminder when words are due
func (s *Scheduler) checkAndSendReminders() {
	if err := s.RunManualCheck(); err != nil {
		log.Printf("Error sending reminder to chat %d: %v", s.cfg.ChatID, err)
	}
}

// RunManualCheck sends a reminder now if anything is due today
func (s *Scheduler) RunManualCheck() error {
	if s.notifier == nil {
		return nil
	}

	summary := s.store.Summary(s.now())
	if summary.TodayReviewCount == 0 {
		log.Printf("No words due today, skipping reminder")
		return nil
	}
	return s.notifier.SendReminders(s.cfg.ChatID, summary.TodayReviewCount, summary.OverdueCount)
}
