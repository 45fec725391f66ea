package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/reviewbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// AttemptRepository stores answered questions for statistics
type AttemptRepository struct {
	db     *sqlx.DB
	userID string
}

// NewAttemptRepository creates a new repository instance
func NewAttemptRepository(db *sqlx.DB, userID string) *AttemptRepository {
	return &AttemptRepository{db: db, userID: userID}
}

type attemptRow struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	WordID       string    `db:"word_id"`
	Word         string    `db:"word"`
	Meaning      string    `db:"meaning"`
	Context      string    `db:"context"`
	Direction    string    `db:"learning_direction"`
	IsCorrect    bool      `db:"is_correct"`
	AnswerTimeMs int64     `db:"answer_time_ms"`
	StreakCount  int       `db:"streak_count"`
	StudyDate    time.Time `db:"study_date"`
	DeviceID     string    `db:"device_id"`
}

// CreateBatch inserts the records in one transaction. Records already stored
// are skipped, so a retried batch never duplicates rows.
func (r *AttemptRepository) CreateBatch(ctx context.Context, records []models.AttemptRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO attempt_records (
			id, user_id, word_id, word, meaning, context, learning_direction,
			is_correct, answer_time_ms, streak_count, study_date, device_id
		) VALUES (
			:id, :user_id, :word_id, :word, :meaning, :context, :learning_direction,
			:is_correct, :answer_time_ms, :streak_count, :study_date, :device_id
		)
		ON CONFLICT (id) DO NOTHING
	`
	for _, rec := range records {
		userID := rec.UserID
		if userID == "" {
			userID = r.userID
		}
		row := attemptRow{
			ID:           rec.ID,
			UserID:       userID,
			WordID:       rec.WordID,
			Word:         rec.Word,
			Meaning:      rec.Meaning,
			Context:      rec.Context,
			Direction:    string(rec.Direction),
			IsCorrect:    rec.IsCorrect,
			AnswerTimeMs: rec.AnswerTime.Milliseconds(),
			StreakCount:  rec.StreakCount,
			StudyDate:    rec.StudyDate.UTC(),
			DeviceID:     rec.DeviceID,
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("failed to insert attempt record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit attempt records: %w", err)
	}
	return nil
}

// GetByUser returns the user's attempts, newest first
func (r *AttemptRepository) GetByUser(ctx context.Context, limit int) ([]models.AttemptRecord, error) {
	query := r.db.Rebind(`
		SELECT id, user_id, word_id, word, meaning, context, learning_direction,
		       is_correct, answer_time_ms, streak_count, study_date, device_id
		FROM attempt_records
		WHERE user_id = ?
		ORDER BY study_date DESC
		LIMIT ?
	`)

	var rows []attemptRow
	if err := r.db.SelectContext(ctx, &rows, query, r.userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get attempt records: %w", err)
	}

	out := make([]models.AttemptRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.AttemptRecord{
			ID:          row.ID,
			UserID:      row.UserID,
			WordID:      row.WordID,
			Word:        row.Word,
			Meaning:     row.Meaning,
			Context:     row.Context,
			Direction:   models.LearningDirection(row.Direction),
			IsCorrect:   row.IsCorrect,
			AnswerTime:  time.Duration(row.AnswerTimeMs) * time.Millisecond,
			StreakCount: row.StreakCount,
			StudyDate:   row.StudyDate,
			DeviceID:    row.DeviceID,
		})
	}
	return out, nil
}

// AttemptStats summarizes the attempts of a period
type AttemptStats struct {
	Total         int     `json:"total" yaml:"total" db:"total"`
	Correct       int     `json:"correct" yaml:"correct" db:"correct"`
	DistinctWords int     `json:"distinct_words" yaml:"distinct_words" db:"distinct_words"`
	Accuracy      float64 `json:"accuracy" yaml:"accuracy" db:"-"`
}

// GetStatsByPeriod returns attempt statistics within [start, end)
func (r *AttemptRepository) GetStatsByPeriod(ctx context.Context, start, end time.Time) (AttemptStats, error) {
	query := r.db.Rebind(`
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0) AS correct,
			COUNT(DISTINCT word) AS distinct_words
		FROM attempt_records
		WHERE user_id = ? AND study_date >= ? AND study_date < ?
	`)

	var stats AttemptStats
	if err := r.db.GetContext(ctx, &stats, query, r.userID, start.UTC(), end.UTC()); err != nil {
		return AttemptStats{}, fmt.Errorf("failed to get attempt stats: %w", err)
	}
	if stats.Total > 0 {
		stats.Accuracy = float64(stats.Correct) / float64(stats.Total) * 100
	}
	return stats, nil
}

// CreateAttemptBatch lets the word repository serve as the write-behind sink
func (r *WordRecordRepository) CreateAttemptBatch(ctx context.Context, records []models.AttemptRecord) error {
	return NewAttemptRepository(r.db, r.userID).CreateBatch(ctx, records)
}
