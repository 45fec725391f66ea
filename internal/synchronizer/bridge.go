package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/reviewbot/pkg/models"
)

// Op is the kind of remote mutation a task performs
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Default bridge settings
const (
	DefaultQueueSize   = 256
	DefaultWorkers     = 2
	DefaultTaskTimeout = 15 * time.Second
)

// Result reports the outcome of one sync task
type Result struct {
	Op   Op
	ID   string
	Word string
	Seq  uint64
	Err  error
	// Skipped is set when a newer task for the same record superseded this one
	Skipped bool
	// Dropped is set when the task never ran (queue full or bridge closed)
	Dropped bool
}

// BridgeConfig configures a Bridge. Zero values fall back to the defaults.
type BridgeConfig struct {
	QueueSize   int
	Workers     int
	TaskTimeout time.Duration
	// OnResult is called from worker goroutines after every task
	OnResult func(Result)
}

type task struct {
	op  Op
	seq uint64
	rec models.WordRecord
}

// Bridge mirrors store mutations to a RemoteWordStore in the background.
// Each mutation type has its own bounded queue and workers. Ordering between
// tasks for the same record is last-write-wins by sequence number.
type Bridge struct {
	remote RemoteWordStore
	cfg    BridgeConfig

	queues map[Op]chan task
	seq    atomic.Uint64

	mu      sync.Mutex
	latest  map[string]uint64 // id -> seq of the newest enqueued task
	deleted map[string]uint64 // id -> seq of the delete task
	pending map[string]int    // id -> tasks queued or running

	closeMu sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
}

// NewBridge starts the workers
func NewBridge(remote RemoteWordStore, cfg BridgeConfig) *Bridge {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultTaskTimeout
	}

	b := &Bridge{
		remote:  remote,
		cfg:     cfg,
		queues:  make(map[Op]chan task, 3),
		latest:  make(map[string]uint64),
		deleted: make(map[string]uint64),
		pending: make(map[string]int),
	}
	for _, op := range []Op{OpCreate, OpUpdate, OpDelete} {
		q := make(chan task, cfg.QueueSize)
		b.queues[op] = q
		for i := 0; i < cfg.Workers; i++ {
			b.wg.Add(1)
			go b.worker(q)
		}
	}
	return b
}

// RecordCreated queues a remote create
func (b *Bridge) RecordCreated(rec models.WordRecord) { b.enqueue(OpCreate, rec) }

// RecordUpdated queues a remote update
func (b *Bridge) RecordUpdated(rec models.WordRecord) { b.enqueue(OpUpdate, rec) }

// RecordDeleted queues a remote delete
func (b *Bridge) RecordDeleted(rec models.WordRecord) { b.enqueue(OpDelete, rec) }

func (b *Bridge) enqueue(op Op, rec models.WordRecord) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()

	t := task{op: op, seq: b.seq.Add(1), rec: rec}
	if b.closed {
		b.report(Result{Op: op, ID: rec.ID, Word: rec.Word, Seq: t.seq, Err: ErrBridgeClosed, Dropped: true})
		return
	}

	b.mu.Lock()
	queued := false
	select {
	case b.queues[op] <- t:
		queued = true
		b.pending[rec.ID]++
		if t.seq > b.latest[rec.ID] {
			b.latest[rec.ID] = t.seq
		}
		if op == OpDelete && t.seq > b.deleted[rec.ID] {
			b.deleted[rec.ID] = t.seq
		}
	default:
	}
	b.mu.Unlock()

	if !queued {
		log.Printf("Sync queue %s is full, dropping %s (%s)", op, rec.Word, rec.ID)
		b.report(Result{Op: op, ID: rec.ID, Word: rec.Word, Seq: t.seq, Err: ErrQueueFull, Dropped: true})
	}
}

func (b *Bridge) worker(q <-chan task) {
	defer b.wg.Done()
	for t := range q {
		b.run(t)
	}
}

func (b *Bridge) run(t task) {
	res := Result{Op: t.op, ID: t.rec.ID, Word: t.rec.Word, Seq: t.seq}

	if b.superseded(t) {
		res.Skipped = true
		b.finish(t)
		b.report(res)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.TaskTimeout)
	defer cancel()

	switch t.op {
	case OpCreate:
		res.Err = b.create(ctx, t.rec)
	case OpUpdate:
		res.Skipped, res.Err = b.update(ctx, t)
	case OpDelete:
		res.Err = b.remote.Delete(ctx, t.rec.ID)
		if errors.Is(res.Err, ErrNotFound) {
			res.Err = nil
		}
	}

	if res.Err != nil {
		log.Printf("Error syncing %s of %q (%s): %v", t.op, t.rec.Word, t.rec.ID, res.Err)
	}
	b.finish(t)
	b.report(res)
}

// update sends t, creating the record if the remote has not seen it yet.
// It skips the create when the record was deleted after t was queued.
func (b *Bridge) update(ctx context.Context, t task) (skipped bool, err error) {
	err = b.remote.Update(ctx, t.rec)
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	// Запись ещё не создана на сервере, создаём её
	if b.deletedAfter(t) {
		return true, nil
	}
	return false, b.createOrUpdate(ctx, t.rec)
}

// createOrUpdate creates rec. When the record appeared in the meantime,
// for example through an older create task, rec is sent as an update so the
// older copy does not win.
func (b *Bridge) createOrUpdate(ctx context.Context, rec models.WordRecord) error {
	_, err := b.remote.Create(ctx, rec)
	if errors.Is(err, ErrConflict) {
		return b.remote.Update(ctx, rec)
	}
	return err
}

// create treats "already exists" as success
func (b *Bridge) create(ctx context.Context, rec models.WordRecord) error {
	_, err := b.remote.Create(ctx, rec)
	if errors.Is(err, ErrConflict) {
		return nil
	}
	return err
}

// superseded reports whether a newer task makes t pointless.
// Deletes always run; creates and updates yield to a newer delete,
// and updates also yield to a newer update.
func (b *Bridge) superseded(t task) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch t.op {
	case OpDelete:
		return false
	case OpCreate:
		return b.deleted[t.rec.ID] > t.seq
	default:
		return b.latest[t.rec.ID] > t.seq || b.deleted[t.rec.ID] > t.seq
	}
}

// finish forgets the sequence bookkeeping of an id once no task for it is left
func (b *Bridge) finish(t task) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := t.rec.ID
	b.pending[id]--
	if b.pending[id] > 0 {
		return
	}
	delete(b.pending, id)
	delete(b.latest, id)
	delete(b.deleted, id)
}

func (b *Bridge) deletedAfter(t task) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deleted[t.rec.ID] > t.seq
}

func (b *Bridge) report(res Result) {
	if b.cfg.OnResult != nil {
		b.cfg.OnResult(res)
	}
}

// Close stops accepting tasks and waits until the queued ones are done or ctx expires.
func (b *Bridge) Close(ctx context.Context) error {
	b.closeMu.Lock()
	if !b.closed {
		b.closed = true
		for _, q := range b.queues {
			close(q)
		}
	}
	b.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("synchronizer: waiting for sync workers: %w", ctx.Err())
	}
}

// Reconcile pulls every remote record and replaces the local store with them.
// If the pull fails the local snapshot is pushed instead and the returned
// error wraps ErrSyncUnavailable. Callers must not mutate the store until it returns.
func (b *Bridge) Reconcile(ctx context.Context, local LocalStore) error {
	remote, err := b.remote.ListForUser(ctx)
	if err == nil {
		local.Replace(remote)
		log.Printf("Reconciled %d records from remote store", len(remote))
		return nil
	}

	log.Printf("Error pulling remote records, pushing local snapshot instead: %v", err)
	pushed, failed := b.push(ctx, local.Snapshot())
	log.Printf("Pushed %d local records to remote store, %d failed", pushed, failed)

	return fmt.Errorf("%w: %w", ErrSyncUnavailable, err)
}

// push sends every record with update, falling back to create
func (b *Bridge) push(ctx context.Context, records []models.WordRecord) (pushed, failed int) {
	for _, rec := range records {
		err := b.remote.Update(ctx, rec)
		if errors.Is(err, ErrNotFound) {
			err = b.createOrUpdate(ctx, rec)
		}
		if err != nil {
			log.Printf("Error pushing %q (%s): %v", rec.Word, rec.ID, err)
			failed++
			continue
		}
		pushed++
	}
	return pushed, failed
}
