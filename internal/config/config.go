package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/reviewbot/pkg/models"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Локальный кэш (sqlite)
	CachePath string
	// Удалённое хранилище записей
	DBType      string
	DatabaseURL string

	UserID   string
	DeviceID string
	// Active course; new missed words go into this partition
	Course models.PartitionKey

	TelegramToken  string
	TelegramChatID int64

	FlushInterval time.Duration
	BatchSize     int
	ReminderHour  int
	SyncQueueSize int
	SyncWorkers   int
}

// Load reads the .env files (a missing file is ignored) and then the
// environment, falling back to defaults. With no arguments ".env" is used.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: failed to read %s: %w", f, err)
		}
	}

	p := &parser{}
	hostname, _ := os.Hostname()
	cfg := &Config{
		CachePath:   getEnv("CACHE_PATH", "data/cache.db"),
		DBType:      getEnv("DB_TYPE", "sqlite"),
		DatabaseURL: getEnv("DATABASE_URL", "data/reviewbot.db"),
		UserID:      getEnv("USER_ID", "local"),
		DeviceID:    getEnv("DEVICE_ID", hostname),
		Course: models.PartitionKey{
			CourseType: models.CourseType(strings.ToLower(getEnv("COURSE_TYPE", string(models.CourseRequired)))),
			CourseBook: getEnv("COURSE_BOOK", "Book1"),
		},
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID: p.int64("TELEGRAM_CHAT_ID", 0),
		FlushInterval:  p.duration("FLUSH_INTERVAL", 30*time.Second),
		BatchSize:      p.int("BATCH_SIZE", 5),
		ReminderHour:   p.int("REMINDER_HOUR", 9),
		SyncQueueSize:  p.int("SYNC_QUEUE_SIZE", 256),
		SyncWorkers:    p.int("SYNC_WORKERS", 2),
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if !c.Course.CourseType.Valid() {
		return fmt.Errorf("config: COURSE_TYPE must be %q or %q, got %q", models.CourseRequired, models.CourseElective, c.Course.CourseType)
	}
	if strings.TrimSpace(c.Course.CourseBook) == "" {
		return fmt.Errorf("config: COURSE_BOOK must not be empty")
	}
	if c.UserID == "" {
		return fmt.Errorf("config: USER_ID must not be empty")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL must not be empty")
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("config: FLUSH_INTERVAL must be positive, got %v", c.FlushInterval)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.ReminderHour < 0 || c.ReminderHour > 23 {
		return fmt.Errorf("config: REMINDER_HOUR must be within 0-23, got %d", c.ReminderHour)
	}
	if c.SyncQueueSize <= 0 || c.SyncWorkers <= 0 {
		return fmt.Errorf("config: SYNC_QUEUE_SIZE and SYNC_WORKERS must be positive")
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser collects conversion errors so Load can report all of them at once
type parser struct {
	errs []error
}

func (p *parser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: %w", key, err))
		return defaultValue
	}
	return n
}

func (p *parser) int64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: %w", key, err))
		return defaultValue
	}
	return n
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: %w", key, err))
		return defaultValue
	}
	return d
}
