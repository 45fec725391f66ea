package synchronizer

import (
	"context"

	"github.com/example/reviewbot/pkg/models"
)

// RemoteWordStore is the remote persistence collaborator
type RemoteWordStore interface {
	// Create stores a new record and returns its id; ErrConflict if it exists.
	Create(ctx context.Context, rec models.WordRecord) (string, error)
	// Update overwrites an existing record; ErrNotFound if it does not exist.
	Update(ctx context.Context, rec models.WordRecord) error
	Delete(ctx context.Context, id string) error
	ListForUser(ctx context.Context) ([]models.WordRecord, error)

	AttemptSink
}

// AttemptSink receives batches of attempt telemetry
type AttemptSink interface {
	CreateAttemptBatch(ctx context.Context, records []models.AttemptRecord) error
}

// LocalStore is the part of the review store that reconcile needs
type LocalStore interface {
	Snapshot() []models.WordRecord
	Replace(records []models.WordRecord)
}
