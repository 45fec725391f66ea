package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/reviewbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// ErrCorruptSnapshot means the cached snapshot can't be decoded
var ErrCorruptSnapshot = errors.New("database: corrupt snapshot")

// SnapshotCache persists the partitioned store locally, one JSON row per partition.
type SnapshotCache struct {
	db *sqlx.DB
}

// NewSnapshotCache creates a cache on top of an open database
func NewSnapshotCache(db *sqlx.DB) *SnapshotCache {
	return &SnapshotCache{db: db}
}

type snapshotRow struct {
	PartitionKey string    `db:"partition_key"`
	CourseType   string    `db:"course_type"`
	CourseBook   string    `db:"course_book"`
	Payload      string    `db:"payload"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Save replaces the whole cached snapshot
func (c *SnapshotCache) Save(ctx context.Context, snapshot map[string]models.Partition) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_partitions`); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO snapshot_partitions (partition_key, course_type, course_book, payload, updated_at)
		VALUES (:partition_key, :course_type, :course_book, :payload, :updated_at)
	`
	for key, p := range snapshot {
		payload, err := json.Marshal(p.Words)
		if err != nil {
			return fmt.Errorf("failed to encode partition %s: %w", key, err)
		}
		row := snapshotRow{
			PartitionKey: key,
			CourseType:   string(p.CourseType),
			CourseBook:   p.CourseBook,
			Payload:      string(payload),
			UpdatedAt:    now,
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("failed to save partition %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Load reads the cached snapshot. An empty cache yields an empty map;
// a row that can't be decoded fails the whole load with ErrCorruptSnapshot.
func (c *SnapshotCache) Load(ctx context.Context) (map[string]models.Partition, error) {
	var rows []snapshotRow
	err := c.db.SelectContext(ctx, &rows,
		`SELECT partition_key, course_type, course_book, payload, updated_at FROM snapshot_partitions`)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	snapshot := make(map[string]models.Partition, len(rows))
	for _, row := range rows {
		var words []models.WordRecord
		if err := json.Unmarshal([]byte(row.Payload), &words); err != nil {
			return nil, fmt.Errorf("%w: partition %s: %v", ErrCorruptSnapshot, row.PartitionKey, err)
		}
		snapshot[row.PartitionKey] = models.Partition{
			CourseType: models.CourseType(row.CourseType),
			CourseBook: row.CourseBook,
			Words:      words,
		}
	}
	return snapshot, nil
}
