package synchronizer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/reviewbot/pkg/models"
)

// fakeRemote is an in-memory RemoteWordStore
type fakeRemote struct {
	mu      sync.Mutex
	records map[string]models.WordRecord

	creates, updates, deletes int

	createErr error
	updateErr error
	deleteErr error
	listErr   error

	// gate blocks Update calls for gateID until closed
	gate   chan struct{}
	gateID string

	// onUpdateMiss runs once, without the lock, when an Update finds nothing
	onUpdateMiss func()

	batches    [][]models.AttemptRecord
	batchErr   error
	batchDelay time.Duration
	inFlight   int
	maxFlight  int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: make(map[string]models.WordRecord)}
}

func (f *fakeRemote) Create(ctx context.Context, rec models.WordRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return "", f.createErr
	}
	if _, ok := f.records[rec.ID]; ok {
		return "", ErrConflict
	}
	f.records[rec.ID] = rec
	return rec.ID, nil
}

func (f *fakeRemote) Update(ctx context.Context, rec models.WordRecord) error {
	f.mu.Lock()
	gate := f.gate
	if rec.ID != f.gateID {
		gate = nil
	}
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	f.updates++
	if f.updateErr != nil {
		f.mu.Unlock()
		return f.updateErr
	}
	if _, ok := f.records[rec.ID]; !ok {
		hook := f.onUpdateMiss
		f.onUpdateMiss = nil
		f.mu.Unlock()
		if hook != nil {
			hook()
		}
		return ErrNotFound
	}
	f.records[rec.ID] = rec
	f.mu.Unlock()
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.records, id)
	return nil
}

func (f *fakeRemote) ListForUser(ctx context.Context) ([]models.WordRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.WordRecord, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeRemote) CreateAttemptBatch(ctx context.Context, records []models.AttemptRecord) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	delay := f.batchDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if f.batchErr != nil {
		return f.batchErr
	}
	f.batches = append(f.batches, append([]models.AttemptRecord(nil), records...))
	return nil
}

func (f *fakeRemote) get(id string) (models.WordRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	return rec, ok
}

func (f *fakeRemote) delivered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

// results collects bridge results
type results struct {
	ch chan Result
}

func newResults() *results {
	return &results{ch: make(chan Result, 128)}
}

func (r *results) on(res Result) { r.ch <- res }

func (r *results) wait(t *testing.T, n int) []Result {
	t.Helper()
	out := make([]Result, 0, n)
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case res := <-r.ch:
			out = append(out, res)
		case <-timeout:
			t.Fatalf("got %d results, want %d: %+v", len(out), n, out)
		}
	}
	return out
}

func mustClose(t *testing.T, b *Bridge) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
