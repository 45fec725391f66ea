package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database types
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// DriverName maps a DB_TYPE value onto the sql driver name
func DriverName(dbType string) (string, error) {
	switch strings.ToLower(dbType) {
	case "", "sqlite", "sqlite3":
		return "sqlite3", nil
	case "postgres", "postgresql":
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// Open connects to the database and creates missing tables.
// For sqlite the dsn is a file path; its directory is created if needed.
func Open(dbType, dsn string) (*sqlx.DB, error) {
	driver, err := DriverName(dbType)
	if err != nil {
		return nil, err
	}

	if driver == "sqlite3" && dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers
		db.SetMaxIdleConns(1)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// initializeSchema creates necessary tables if they don't exist.
// The statements are valid for both sqlite and postgres.
func initializeSchema(db *sqlx.DB) error {
	// Записи ошибок пользователя, одна на слово в разделе учебника
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS word_records (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			course_type TEXT NOT NULL,
			course_book TEXT NOT NULL,
			word TEXT NOT NULL,
			meaning TEXT NOT NULL DEFAULT '',
			context TEXT NOT NULL DEFAULT '',
			learning_direction TEXT NOT NULL DEFAULT '',
			textbook_source TEXT,
			part_of_speech TEXT,
			exam_source TEXT,
			difficulty TEXT NOT NULL DEFAULT '',
			error_count INTEGER NOT NULL DEFAULT 0,
			total_attempts INTEGER NOT NULL DEFAULT 0,
			consecutive_correct INTEGER NOT NULL DEFAULT 0,
			consecutive_wrong INTEGER NOT NULL DEFAULT 0,
			review_count INTEGER NOT NULL DEFAULT 0,
			review_dates TEXT NOT NULL DEFAULT '[]',
			last_review_date TIMESTAMP,
			next_review_date TIMESTAMP NOT NULL,
			is_mastered BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create word_records table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_word_records_user ON word_records (user_id)`)
	if err != nil {
		return fmt.Errorf("failed to create word_records index: %w", err)
	}

	// Ответы пользователя, только для статистики
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS attempt_records (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			word_id TEXT NOT NULL DEFAULT '',
			word TEXT NOT NULL,
			meaning TEXT NOT NULL DEFAULT '',
			context TEXT NOT NULL DEFAULT '',
			learning_direction TEXT NOT NULL DEFAULT '',
			is_correct BOOLEAN NOT NULL,
			answer_time_ms INTEGER NOT NULL DEFAULT 0,
			streak_count INTEGER NOT NULL DEFAULT 0,
			study_date TIMESTAMP NOT NULL,
			device_id TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create attempt_records table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot_partitions (
			partition_key TEXT PRIMARY KEY,
			course_type TEXT NOT NULL,
			course_book TEXT NOT NULL,
			payload TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create snapshot_partitions table: %w", err)
	}

	return nil
}
