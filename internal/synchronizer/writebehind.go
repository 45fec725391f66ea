package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/reviewbot/pkg/models"
	"github.com/google/uuid"
)

// Default write-behind settings
const (
	DefaultBatchSize     = 5
	DefaultMaxConcurrent = 3
	DefaultMaxBuffered   = 1000
	DefaultDrainTimeout  = 30 * time.Second
)

// WriteBehindConfig configures a WriteBehindQueue. Zero values fall back to the defaults.
type WriteBehindConfig struct {
	BatchSize     int
	MaxConcurrent int
	// MaxBuffered bounds the buffer; the oldest records are dropped beyond it
	MaxBuffered  int
	DrainTimeout time.Duration
}

// WriteBehindQueue buffers attempt records and delivers them in batches.
// Losing a buffered record only loses analytics.
type WriteBehindQueue struct {
	sink AttemptSink
	cfg  WriteBehindConfig
	now  func() time.Time

	mu       sync.Mutex
	buf      []models.AttemptRecord
	inflight map[chan struct{}]struct{} // background drains still running
}

// NewWriteBehindQueue creates an empty queue
func NewWriteBehindQueue(sink AttemptSink, cfg WriteBehindConfig) *WriteBehindQueue {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.MaxBuffered <= 0 {
		cfg.MaxBuffered = DefaultMaxBuffered
	}
	if cfg.MaxBuffered < cfg.BatchSize {
		cfg.MaxBuffered = cfg.BatchSize
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	return &WriteBehindQueue{
		sink: sink,
		cfg:  cfg,
		now:  time.Now,

		inflight: make(map[chan struct{}]struct{}),
	}
}

// Enqueue appends a record to the buffer and never waits on I/O.
// A full batch starts a background drain.
func (q *WriteBehindQueue) Enqueue(rec models.AttemptRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.StudyDate.IsZero() {
		rec.StudyDate = q.now()
	}

	q.mu.Lock()
	q.buf = append(q.buf, rec)
	dropped := q.trimLocked()
	var done chan struct{}
	if len(q.buf) >= q.cfg.BatchSize {
		done = make(chan struct{})
		q.inflight[done] = struct{}{}
	}
	q.mu.Unlock()

	if dropped > 0 {
		log.Printf("Attempt buffer full, dropped %d oldest records", dropped)
	}
	if done != nil {
		go func() {
			defer q.finish(done)
			ctx, cancel := context.WithTimeout(context.Background(), q.cfg.DrainTimeout)
			defer cancel()
			if err := q.Drain(ctx); err != nil {
				log.Printf("Error draining attempt records: %v", err)
			}
		}()
	}
}

// Pending returns the number of buffered records
func (q *WriteBehindQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Drain sends everything buffered right now. Batches that fail go back to
// the buffer for the next drain.
func (q *WriteBehindQueue) Drain(ctx context.Context) error {
	records := q.take()
	if len(records) == 0 {
		return nil
	}

	failed, err := q.send(ctx, records)
	if len(failed) > 0 {
		q.putBack(failed)
	}
	if err == nil {
		log.Printf("Delivered %d attempt records", len(records))
	}
	return err
}

// FlushPendingRecords waits for background drains and then attempts delivery
// of every buffered record before returning. Call it on every exit path.
func (q *WriteBehindQueue) FlushPendingRecords(ctx context.Context) error {
	q.mu.Lock()
	running := make([]chan struct{}, 0, len(q.inflight))
	for done := range q.inflight {
		running = append(running, done)
	}
	q.mu.Unlock()

	for _, done := range running {
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("synchronizer: waiting for attempt drains: %w", ctx.Err())
		}
	}

	if err := q.Drain(ctx); err != nil {
		return fmt.Errorf("synchronizer: flush attempt records: %w", err)
	}
	return nil
}

func (q *WriteBehindQueue) finish(done chan struct{}) {
	q.mu.Lock()
	delete(q.inflight, done)
	q.mu.Unlock()
	close(done)
}

func (q *WriteBehindQueue) take() []models.AttemptRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	records := q.buf
	q.buf = nil
	return records
}

// putBack returns failed records to the front of the buffer
func (q *WriteBehindQueue) putBack(records []models.AttemptRecord) {
	q.mu.Lock()
	q.buf = append(records, q.buf...)
	dropped := q.trimLocked()
	q.mu.Unlock()

	if dropped > 0 {
		log.Printf("Attempt buffer full, dropped %d oldest records", dropped)
	}
}

func (q *WriteBehindQueue) trimLocked() int {
	over := len(q.buf) - q.cfg.MaxBuffered
	if over <= 0 {
		return 0
	}
	q.buf = append([]models.AttemptRecord(nil), q.buf[over:]...)
	return over
}

// send delivers records in BatchSize chunks with at most MaxConcurrent calls
// in flight, returning the records of the chunks that failed.
func (q *WriteBehindQueue) send(ctx context.Context, records []models.AttemptRecord) ([]models.AttemptRecord, error) {
	var chunks [][]models.AttemptRecord
	for start := 0; start < len(records); start += q.cfg.BatchSize {
		end := start + q.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[start:end])
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed []models.AttemptRecord
		errs   []error
	)
	sem := make(chan struct{}, q.cfg.MaxConcurrent)

	for _, chunk := range chunks {
		chunk := chunk
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if err := q.sink.CreateAttemptBatch(ctx, chunk); err != nil {
				mu.Lock()
				failed = append(failed, chunk...)
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return failed, errors.Join(errs...)
}
