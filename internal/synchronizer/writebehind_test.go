package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/reviewbot/pkg/models"
)

func attempt(i int) models.AttemptRecord {
	return models.AttemptRecord{
		UserID:    "u1",
		Word:      fmt.Sprintf("word-%d", i),
		IsCorrect: i%2 == 0,
	}
}

func TestEnqueueBelowBatchSizeDoesNotSend(t *testing.T) {
	remote := newFakeRemote()
	q := NewWriteBehindQueue(remote, WriteBehindConfig{BatchSize: 5})

	for i := 0; i < 4; i++ {
		q.Enqueue(attempt(i))
	}

	if got := q.Pending(); got != 4 {
		t.Errorf("Pending = %d, want 4", got)
	}
	if got := remote.delivered(); got != 0 {
		t.Errorf("delivered = %d, want 0", got)
	}
}

func TestEnqueueFillsDefaults(t *testing.T) {
	q := NewWriteBehindQueue(newFakeRemote(), WriteBehindConfig{})
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }

	q.Enqueue(attempt(1))

	rec := q.take()[0]
	if rec.ID == "" {
		t.Error("id not generated")
	}
	if !rec.StudyDate.Equal(now) {
		t.Errorf("study date = %v, want %v", rec.StudyDate, now)
	}
}

func TestFullBatchDrainsInBackground(t *testing.T) {
	remote := newFakeRemote()
	q := NewWriteBehindQueue(remote, WriteBehindConfig{BatchSize: 5})

	for i := 0; i < 5; i++ {
		q.Enqueue(attempt(i))
	}

	deadline := time.Now().Add(5 * time.Second)
	for remote.delivered() < 5 {
		if time.Now().After(deadline) {
			t.Fatalf("background drain delivered %d of 5", remote.delivered())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if q.Pending() != 0 {
		t.Errorf("Pending = %d after drain", q.Pending())
	}
}

func TestFlushDeliversEverything(t *testing.T) {
	remote := newFakeRemote()
	remote.batchDelay = 10 * time.Millisecond
	q := NewWriteBehindQueue(remote, WriteBehindConfig{BatchSize: 5, MaxConcurrent: 3})

	const total = 23
	for i := 0; i < total; i++ {
		q.Enqueue(attempt(i))
	}

	if err := q.FlushPendingRecords(context.Background()); err != nil {
		t.Fatalf("FlushPendingRecords: %v", err)
	}

	if got := remote.delivered(); got != total {
		t.Errorf("delivered = %d, want %d", got, total)
	}
	if q.Pending() != 0 {
		t.Errorf("Pending = %d after flush", q.Pending())
	}
	for _, b := range remote.batches {
		if len(b) > 5 {
			t.Errorf("batch of %d exceeds batch size", len(b))
		}
	}
}

func TestSendRespectsConcurrencyLimit(t *testing.T) {
	remote := newFakeRemote()
	remote.batchDelay = 20 * time.Millisecond
	q := NewWriteBehindQueue(remote, WriteBehindConfig{BatchSize: 2, MaxConcurrent: 3})

	records := make([]models.AttemptRecord, 0, 20)
	for i := 0; i < 20; i++ {
		records = append(records, attempt(i))
	}

	failed, err := q.send(context.Background(), records)
	if err != nil || len(failed) != 0 {
		t.Fatalf("send: %v, failed %d", err, len(failed))
	}
	if remote.maxFlight > 3 {
		t.Errorf("max in flight = %d, want <= 3", remote.maxFlight)
	}
	if len(remote.batches) != 10 {
		t.Errorf("batches = %d, want 10", len(remote.batches))
	}
}

func TestFailedDrainKeepsRecords(t *testing.T) {
	remote := newFakeRemote()
	remote.batchErr = errors.New("service down")
	q := NewWriteBehindQueue(remote, WriteBehindConfig{BatchSize: 10})

	for i := 0; i < 3; i++ {
		q.Enqueue(attempt(i))
	}

	if err := q.Drain(context.Background()); err == nil {
		t.Fatal("Drain succeeded against a failing sink")
	}
	if got := q.Pending(); got != 3 {
		t.Fatalf("Pending = %d, want 3 put back", got)
	}

	remote.mu.Lock()
	remote.batchErr = nil
	remote.mu.Unlock()

	if err := q.FlushPendingRecords(context.Background()); err != nil {
		t.Fatalf("FlushPendingRecords: %v", err)
	}
	if got := remote.delivered(); got != 3 {
		t.Errorf("delivered = %d, want 3", got)
	}
}

func TestFlushReportsFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.batchErr = errors.New("service down")
	q := NewWriteBehindQueue(remote, WriteBehindConfig{BatchSize: 10})
	q.Enqueue(attempt(1))

	if err := q.FlushPendingRecords(context.Background()); err == nil {
		t.Error("FlushPendingRecords returned nil for a failing sink")
	}
}

func TestPutBackIsBounded(t *testing.T) {
	q := NewWriteBehindQueue(newFakeRemote(), WriteBehindConfig{BatchSize: 10, MaxBuffered: 10})
	for i := 0; i < 8; i++ {
		q.Enqueue(attempt(i))
	}

	q.putBack([]models.AttemptRecord{attempt(100), attempt(101), attempt(102), attempt(103)})

	if got := q.Pending(); got != 10 {
		t.Fatalf("Pending = %d, want 10", got)
	}
	// the oldest (failed) records go first
	if first := q.take()[0]; first.Word != "word-102" {
		t.Errorf("first buffered = %s, want word-102", first.Word)
	}
}
