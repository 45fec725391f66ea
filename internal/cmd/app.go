package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/example/reviewbot/internal/config"
	"github.com/example/reviewbot/internal/database"
	"github.com/example/reviewbot/internal/review"
	"github.com/example/reviewbot/internal/synchronizer"
	"github.com/jmoiron/sqlx"
)

// App wires the store to its local cache and the remote database
type App struct {
	Store    *review.Store
	Bridge   *synchronizer.Bridge
	Queue    *synchronizer.WriteBehindQueue
	Words    *database.WordRecordRepository
	Attempts *database.AttemptRepository

	cfg      *config.Config
	cache    *database.SnapshotCache
	cacheDB  *sqlx.DB
	remoteDB *sqlx.DB
}

// OpenApp opens both databases and restores the store from the local cache.
// A corrupt cache is logged and the store starts empty.
func OpenApp(ctx context.Context, cfg *config.Config) (*App, error) {
	cacheDB, err := database.Open(database.TypeSQLite, cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}

	remoteDB, err := database.Open(cfg.DBType, cfg.DatabaseURL)
	if err != nil {
		cacheDB.Close()
		return nil, fmt.Errorf("failed to open remote store: %w", err)
	}

	app := &App{
		Words:    database.NewWordRecordRepository(remoteDB, cfg.UserID),
		Attempts: database.NewAttemptRepository(remoteDB, cfg.UserID),
		cfg:      cfg,
		cache:    database.NewSnapshotCache(cacheDB),
		cacheDB:  cacheDB,
		remoteDB: remoteDB,
	}

	app.Bridge = synchronizer.NewBridge(app.Words, synchronizer.BridgeConfig{
		QueueSize: cfg.SyncQueueSize,
		Workers:   cfg.SyncWorkers,
		OnResult:  logSyncResult,
	})
	app.Store = review.NewStore(review.WithMirror(app.Bridge))
	app.Queue = synchronizer.NewWriteBehindQueue(app.Words, synchronizer.WriteBehindConfig{
		BatchSize: cfg.BatchSize,
	})

	snapshot, err := app.cache.Load(ctx)
	switch {
	case errors.Is(err, database.ErrCorruptSnapshot):
		log.Printf("Warning: %v, starting with an empty store", err)
	case err != nil:
		app.Bridge.Close(ctx)
		app.closeDBs()
		return nil, err
	default:
		app.Store.Load(snapshot)
	}

	return app, nil
}

// Close waits for pending sync work, flushes buffered attempts and saves
// the local snapshot. Every step runs even if an earlier one fails.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if err := a.Bridge.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.Queue.FlushPendingRecords(ctx); err != nil {
		log.Printf("Error flushing attempt records: %v", err)
		errs = append(errs, err)
	}
	if err := a.SaveSnapshot(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to save local cache: %w", err))
	}
	if err := a.closeDBs(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SaveSnapshot writes the current store to the local cache
func (a *App) SaveSnapshot(ctx context.Context) error {
	return a.cache.Save(ctx, a.Store.Export())
}

func (a *App) closeDBs() error {
	return errors.Join(a.remoteDB.Close(), a.cacheDB.Close())
}

func logSyncResult(res synchronizer.Result) {
	switch {
	case res.Dropped:
		log.Printf("Sync %s of %q (%s) dropped: %v", res.Op, res.Word, res.ID, res.Err)
	case res.Err != nil:
		log.Printf("Sync %s of %q (%s) failed: %v", res.Op, res.Word, res.ID, res.Err)
	}
}
