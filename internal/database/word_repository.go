package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/reviewbot/internal/synchronizer"
	"github.com/example/reviewbot/pkg/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// WordRecordRepository is the sql-backed remote word store of one user
type WordRecordRepository struct {
	db     *sqlx.DB
	userID string
}

var _ synchronizer.RemoteWordStore = (*WordRecordRepository)(nil)

// NewWordRecordRepository creates a new repository instance
func NewWordRecordRepository(db *sqlx.DB, userID string) *WordRecordRepository {
	return &WordRecordRepository{db: db, userID: userID}
}

// wordRecordRow is the table shape of a WordRecord
type wordRecordRow struct {
	ID                 string         `db:"id"`
	UserID             string         `db:"user_id"`
	CourseType         string         `db:"course_type"`
	CourseBook         string         `db:"course_book"`
	Word               string         `db:"word"`
	Meaning            string         `db:"meaning"`
	Context            string         `db:"context"`
	Direction          string         `db:"learning_direction"`
	TextbookSource     sql.NullString `db:"textbook_source"`
	PartOfSpeech       sql.NullString `db:"part_of_speech"`
	ExamSource         sql.NullString `db:"exam_source"`
	Difficulty         string         `db:"difficulty"`
	ErrorCount         int            `db:"error_count"`
	TotalAttempts      int            `db:"total_attempts"`
	ConsecutiveCorrect int            `db:"consecutive_correct"`
	ConsecutiveWrong   int            `db:"consecutive_wrong"`
	ReviewCount        int            `db:"review_count"`
	ReviewDates        string         `db:"review_dates"`
	LastReviewDate     sql.NullTime   `db:"last_review_date"`
	NextReviewDate     time.Time      `db:"next_review_date"`
	IsMastered         bool           `db:"is_mastered"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

const wordRecordColumns = `
	id, user_id, course_type, course_book, word, meaning, context,
	learning_direction, textbook_source, part_of_speech, exam_source, difficulty,
	error_count, total_attempts, consecutive_correct, consecutive_wrong, review_count,
	review_dates, last_review_date, next_review_date, is_mastered, created_at, updated_at`

func toRow(userID string, rec models.WordRecord, now time.Time) (wordRecordRow, error) {
	row := wordRecordRow{
		ID:                 rec.ID,
		UserID:             userID,
		CourseType:         string(rec.Partition.CourseType),
		CourseBook:         rec.Partition.CourseBook,
		Word:               rec.Word,
		Meaning:            rec.Meaning,
		Context:            rec.Context,
		Direction:          string(rec.Direction),
		Difficulty:         string(rec.Difficulty),
		ErrorCount:         rec.ErrorCount,
		TotalAttempts:      rec.TotalAttempts,
		ConsecutiveCorrect: rec.ConsecutiveCorrect,
		ConsecutiveWrong:   rec.ConsecutiveWrong,
		ReviewCount:        rec.ReviewCount,
		NextReviewDate:     rec.NextReviewDate.UTC(),
		IsMastered:         rec.IsMastered,
		CreatedAt:          rec.CreatedAt.UTC(),
		UpdatedAt:          now.UTC(),
	}

	if rec.TextbookSource != nil {
		data, err := json.Marshal(rec.TextbookSource)
		if err != nil {
			return row, fmt.Errorf("failed to encode textbook source: %w", err)
		}
		row.TextbookSource = sql.NullString{String: string(data), Valid: true}
	}
	if rec.PartOfSpeech != nil {
		row.PartOfSpeech = sql.NullString{String: string(*rec.PartOfSpeech), Valid: true}
	}
	if rec.ExamSource != nil {
		row.ExamSource = sql.NullString{String: string(*rec.ExamSource), Valid: true}
	}
	if rec.LastReviewDate != nil {
		row.LastReviewDate = sql.NullTime{Time: rec.LastReviewDate.UTC(), Valid: true}
	}

	dates := make([]time.Time, 0, len(rec.ReviewDates))
	for _, d := range rec.ReviewDates {
		dates = append(dates, d.UTC())
	}
	data, err := json.Marshal(dates)
	if err != nil {
		return row, fmt.Errorf("failed to encode review dates: %w", err)
	}
	row.ReviewDates = string(data)

	return row, nil
}

func (row wordRecordRow) toModel() (models.WordRecord, error) {
	rec := models.WordRecord{
		ID:      row.ID,
		Word:    row.Word,
		Meaning: row.Meaning,
		Context: row.Context,
		Partition: models.PartitionKey{
			CourseType: models.CourseType(row.CourseType),
			CourseBook: row.CourseBook,
		},
		Direction:          models.ParseLearningDirection(row.Direction),
		Difficulty:         models.Difficulty(row.Difficulty),
		ErrorCount:         row.ErrorCount,
		TotalAttempts:      row.TotalAttempts,
		ConsecutiveCorrect: row.ConsecutiveCorrect,
		ConsecutiveWrong:   row.ConsecutiveWrong,
		ReviewCount:        row.ReviewCount,
		NextReviewDate:     row.NextReviewDate,
		IsMastered:         row.IsMastered,
		CreatedAt:          row.CreatedAt,
	}

	if row.TextbookSource.Valid && row.TextbookSource.String != "" {
		var ts models.TextbookSource
		if err := json.Unmarshal([]byte(row.TextbookSource.String), &ts); err != nil {
			return rec, fmt.Errorf("failed to decode textbook source of %s: %w", row.ID, err)
		}
		rec.TextbookSource = &ts
	}
	if row.PartOfSpeech.Valid {
		pos := models.PartOfSpeech(row.PartOfSpeech.String)
		rec.PartOfSpeech = &pos
	}
	if row.ExamSource.Valid {
		es := models.ExamSource(row.ExamSource.String)
		rec.ExamSource = &es
	}
	if row.LastReviewDate.Valid {
		lr := row.LastReviewDate.Time
		rec.LastReviewDate = &lr
	}
	if row.ReviewDates != "" {
		if err := json.Unmarshal([]byte(row.ReviewDates), &rec.ReviewDates); err != nil {
			return rec, fmt.Errorf("failed to decode review dates of %s: %w", row.ID, err)
		}
		if len(rec.ReviewDates) == 0 {
			rec.ReviewDates = nil
		}
	}
	return rec, nil
}

// Create inserts a new word record; synchronizer.ErrConflict if the id exists
func (r *WordRecordRepository) Create(ctx context.Context, rec models.WordRecord) (string, error) {
	row, err := toRow(r.userID, rec, time.Now())
	if err != nil {
		return "", err
	}

	query := `INSERT INTO word_records (` + wordRecordColumns + `) VALUES (
		:id, :user_id, :course_type, :course_book, :word, :meaning, :context,
		:learning_direction, :textbook_source, :part_of_speech, :exam_source, :difficulty,
		:error_count, :total_attempts, :consecutive_correct, :consecutive_wrong, :review_count,
		:review_dates, :last_review_date, :next_review_date, :is_mastered, :created_at, :updated_at
	)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("word record %s: %w", rec.ID, synchronizer.ErrConflict)
		}
		return "", fmt.Errorf("failed to create word record: %w", err)
	}
	return rec.ID, nil
}

// Update overwrites an existing word record; synchronizer.ErrNotFound if it is missing
func (r *WordRecordRepository) Update(ctx context.Context, rec models.WordRecord) error {
	row, err := toRow(r.userID, rec, time.Now())
	if err != nil {
		return err
	}

	query := `
		UPDATE word_records SET
			course_type = :course_type,
			course_book = :course_book,
			word = :word,
			meaning = :meaning,
			context = :context,
			learning_direction = :learning_direction,
			textbook_source = :textbook_source,
			part_of_speech = :part_of_speech,
			exam_source = :exam_source,
			difficulty = :difficulty,
			error_count = :error_count,
			total_attempts = :total_attempts,
			consecutive_correct = :consecutive_correct,
			consecutive_wrong = :consecutive_wrong,
			review_count = :review_count,
			review_dates = :review_dates,
			last_review_date = :last_review_date,
			next_review_date = :next_review_date,
			is_mastered = :is_mastered,
			updated_at = :updated_at
		WHERE id = :id AND user_id = :user_id
	`
	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("failed to update word record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("word record %s: %w", rec.ID, synchronizer.ErrNotFound)
	}
	return nil
}

// Delete removes a word record; deleting a missing record is not an error
func (r *WordRecordRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM word_records WHERE id = ? AND user_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, id, r.userID); err != nil {
		return fmt.Errorf("failed to delete word record: %w", err)
	}
	return nil
}

// GetByID returns a single word record
func (r *WordRecordRepository) GetByID(ctx context.Context, id string) (models.WordRecord, error) {
	query := r.db.Rebind(`SELECT ` + wordRecordColumns + ` FROM word_records WHERE id = ? AND user_id = ?`)

	var row wordRecordRow
	err := r.db.GetContext(ctx, &row, query, id, r.userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WordRecord{}, fmt.Errorf("word record %s: %w", id, synchronizer.ErrNotFound)
	}
	if err != nil {
		return models.WordRecord{}, fmt.Errorf("failed to get word record: %w", err)
	}
	return row.toModel()
}

// ListForUser returns every word record of the user, oldest first
func (r *WordRecordRepository) ListForUser(ctx context.Context) ([]models.WordRecord, error) {
	query := r.db.Rebind(`SELECT ` + wordRecordColumns + ` FROM word_records WHERE user_id = ? ORDER BY created_at, id`)

	var rows []wordRecordRow
	if err := r.db.SelectContext(ctx, &rows, query, r.userID); err != nil {
		return nil, fmt.Errorf("failed to list word records: %w", err)
	}

	records := make([]models.WordRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toModel()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// isUniqueViolation recognises duplicate key errors of both drivers
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
