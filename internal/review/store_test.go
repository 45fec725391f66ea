package review

import (
	"sync"
	"testing"
	"time"

	"github.com/example/reviewbot/internal/spaced_repetition"
	"github.com/example/reviewbot/pkg/models"
)

var (
	t0    = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	book1 = models.PartitionKey{CourseType: models.CourseRequired, CourseBook: "Book1"}
	book2 = models.PartitionKey{CourseType: models.CourseRequired, CourseBook: "Book2"}
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingMirror struct {
	mu      sync.Mutex
	created []models.WordRecord
	updated []models.WordRecord
	deleted []models.WordRecord
}

func (m *recordingMirror) RecordCreated(rec models.WordRecord) {
	m.mu.Lock()
	m.created = append(m.created, rec)
	m.mu.Unlock()
}

func (m *recordingMirror) RecordUpdated(rec models.WordRecord) {
	m.mu.Lock()
	m.updated = append(m.updated, rec)
	m.mu.Unlock()
}

func (m *recordingMirror) RecordDeleted(rec models.WordRecord) {
	m.mu.Lock()
	m.deleted = append(m.deleted, rec)
	m.mu.Unlock()
}

func newTestStore(t *testing.T) (*Store, *fakeClock, *recordingMirror) {
	t.Helper()
	clock := &fakeClock{t: t0}
	mirror := &recordingMirror{}
	return NewStore(WithClock(clock.Now), WithMirror(mirror)), clock, mirror
}

func mustGet(t *testing.T, s *Store, id string) models.WordRecord {
	t.Helper()
	rec, ok := s.Get(id)
	if !ok {
		t.Fatalf("record %s not found", id)
	}
	return rec
}

func TestAddCreatesRecord(t *testing.T) {
	s, _, mirror := newTestStore(t)

	rec := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple", Meaning: "яблоко"})

	if rec.ID == "" {
		t.Fatal("expected generated id")
	}
	if rec.ReviewCount != 0 || rec.ErrorCount != 1 || rec.TotalAttempts != 1 {
		t.Errorf("counters = rc %d, errors %d, attempts %d", rec.ReviewCount, rec.ErrorCount, rec.TotalAttempts)
	}
	if rec.ConsecutiveWrong != 1 || rec.ConsecutiveCorrect != 0 {
		t.Errorf("streaks = wrong %d, correct %d", rec.ConsecutiveWrong, rec.ConsecutiveCorrect)
	}
	if rec.Partition != book1 {
		t.Errorf("partition = %v, want %v", rec.Partition, book1)
	}
	if rec.Difficulty != models.DifficultyMedium {
		t.Errorf("difficulty = %q, want medium", rec.Difficulty)
	}
	if want := spaced_repetition.NewLadder().NextDue(t0, 0); !rec.NextReviewDate.Equal(want) {
		t.Errorf("next review = %v, want %v", rec.NextReviewDate, want)
	}
	if len(mirror.created) != 1 || mirror.created[0].ID != rec.ID {
		t.Errorf("mirror created = %+v", mirror.created)
	}
}

func TestAddTwiceMerges(t *testing.T) {
	s, clock, mirror := newTestStore(t)

	first := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})
	clock.Advance(time.Minute)
	second := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "Apple "})

	if first.ID != second.ID {
		t.Fatalf("merge created a new record: %s vs %s", first.ID, second.ID)
	}
	if got := len(s.Partition(book1)); got != 1 {
		t.Fatalf("partition has %d records, want 1", got)
	}
	if second.ErrorCount != 2 || second.ConsecutiveWrong != 2 || second.ConsecutiveCorrect != 0 {
		t.Errorf("after merge errors %d, wrong %d, correct %d", second.ErrorCount, second.ConsecutiveWrong, second.ConsecutiveCorrect)
	}
	if second.ErrorCount <= first.ErrorCount {
		t.Errorf("error count did not increase: %d -> %d", first.ErrorCount, second.ErrorCount)
	}
	if second.LastReviewDate == nil || !second.LastReviewDate.Equal(clock.Now()) {
		t.Errorf("last review = %v, want %v", second.LastReviewDate, clock.Now())
	}
	if len(mirror.created) != 1 || len(mirror.updated) != 1 {
		t.Errorf("mirror created %d updated %d, want 1 and 1", len(mirror.created), len(mirror.updated))
	}
}

func TestMergeKeepsReviewCount(t *testing.T) {
	s, _, _ := newTestStore(t)

	rec := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})
	for i := 0; i < 3; i++ {
		s.RecordOutcome(rec.ID, true)
	}
	merged := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "APPLE"})

	if merged.ReviewCount != 3 {
		t.Errorf("review count = %d, want 3", merged.ReviewCount)
	}
	_, want := spaced_repetition.NewLadder().AfterFailure(t0, 3)
	if !merged.NextReviewDate.Equal(want) {
		t.Errorf("next review = %v, want %v", merged.NextReviewDate, want)
	}
}

func TestMergeBackfillsClassificationOnly(t *testing.T) {
	s, _, _ := newTestStore(t)

	noun := models.Noun
	verb := models.Verb
	gaokao := models.ExamGaokao

	s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "run", PartOfSpeech: &verb})
	merged := s.AddOrMergeMissedWord(book1, models.WordRecord{
		Word:         "run",
		PartOfSpeech: &noun,
		ExamSource:   &gaokao,
	})

	if merged.PartOfSpeech == nil || *merged.PartOfSpeech != models.Verb {
		t.Errorf("part of speech overwritten: %v", merged.PartOfSpeech)
	}
	if merged.ExamSource == nil || *merged.ExamSource != models.ExamGaokao {
		t.Errorf("exam source not backfilled: %v", merged.ExamSource)
	}
}

func TestMasteryScenario(t *testing.T) {
	s, clock, _ := newTestStore(t)

	rec := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})
	for i := 0; i < 6; i++ {
		clock.Advance(time.Hour)
		s.RecordOutcome(rec.ID, true)
	}

	got := mustGet(t, s, rec.ID)
	if got.ReviewCount != 6 || got.IsMastered {
		t.Fatalf("after 6 successes rc %d mastered %v", got.ReviewCount, got.IsMastered)
	}

	s.RecordOutcome(rec.ID, true)
	got = mustGet(t, s, rec.ID)
	if got.ReviewCount != 7 || !got.IsMastered {
		t.Fatalf("after 7 successes rc %d mastered %v", got.ReviewCount, got.IsMastered)
	}
	if len(got.ReviewDates) != 7 {
		t.Errorf("review dates = %d, want 7", len(got.ReviewDates))
	}

	far := clock.Now().Add(365 * 24 * time.Hour)
	for _, w := range s.DueToday(far) {
		if w.ID == rec.ID {
			t.Error("mastered word listed in DueToday")
		}
	}
	for _, w := range s.Overdue(far) {
		if w.ID == rec.ID {
			t.Error("mastered word listed in Overdue")
		}
	}
}

func TestFailureAfterMasteryKeepsFlag(t *testing.T) {
	s, _, _ := newTestStore(t)

	rec := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})
	for i := 0; i < spaced_repetition.MasteryThreshold; i++ {
		s.RecordOutcome(rec.ID, true)
	}
	s.RecordOutcome(rec.ID, false)

	got := mustGet(t, s, rec.ID)
	if got.ReviewCount != spaced_repetition.MasteryThreshold-1 || !got.IsMastered {
		t.Errorf("rc %d mastered %v", got.ReviewCount, got.IsMastered)
	}
}

func TestOutcomeKeepsManualMastery(t *testing.T) {
	tests := []struct {
		name    string
		correct bool
		wantRC  int
	}{
		{name: "correct", correct: true, wantRC: 1},
		{name: "wrong", correct: false, wantRC: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestStore(t)
			rec := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})
			s.MarkMastered(rec.ID)

			s.RecordOutcome(rec.ID, tt.correct)

			got := mustGet(t, s, rec.ID)
			if got.ReviewCount != tt.wantRC || !got.IsMastered {
				t.Errorf("rc %d mastered %v, want rc %d mastered", got.ReviewCount, got.IsMastered, tt.wantRC)
			}

			s.UnmarkMastered(rec.ID)
			if mustGet(t, s, rec.ID).IsMastered {
				t.Error("unmark did not clear the flag")
			}
		})
	}
}

func TestOutcomeCountersAreDisjoint(t *testing.T) {
	outcomes := []bool{true, false, false, true, true, false, true}

	s, _, _ := newTestStore(t)
	rec := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})

	for i, ok := range outcomes {
		s.RecordOutcome(rec.ID, ok)
		got := mustGet(t, s, rec.ID)
		if (got.ConsecutiveCorrect == 0) == (got.ConsecutiveWrong == 0) {
			t.Fatalf("step %d: correct %d wrong %d", i, got.ConsecutiveCorrect, got.ConsecutiveWrong)
		}
		if ok && got.ConsecutiveCorrect == 0 {
			t.Fatalf("step %d: success did not count", i)
		}
		if !ok && got.ConsecutiveWrong == 0 {
			t.Fatalf("step %d: failure did not count", i)
		}
	}

	got := mustGet(t, s, rec.ID)
	if got.TotalAttempts != 1+len(outcomes) {
		t.Errorf("total attempts = %d, want %d", got.TotalAttempts, 1+len(outcomes))
	}
	if got.ErrorCount != 1+3 {
		t.Errorf("error count = %d, want 4", got.ErrorCount)
	}
}

func TestFailureNeverNegative(t *testing.T) {
	s, _, _ := newTestStore(t)
	rec := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})

	for i := 0; i < 4; i++ {
		s.RecordOutcome(rec.ID, false)
	}
	if got := mustGet(t, s, rec.ID); got.ReviewCount != 0 {
		t.Errorf("review count = %d, want 0", got.ReviewCount)
	}
}

func TestUnmarkMasteredResetsSchedule(t *testing.T) {
	s, clock, _ := newTestStore(t)

	rec := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})
	for i := 0; i < spaced_repetition.MasteryThreshold; i++ {
		s.RecordOutcome(rec.ID, true)
	}
	clock.Advance(48 * time.Hour)
	now := clock.Now()
	s.UnmarkMastered(rec.ID)

	got := mustGet(t, s, rec.ID)
	if got.ReviewCount != 0 || got.IsMastered || got.ConsecutiveCorrect != 0 {
		t.Fatalf("rc %d mastered %v correct %d", got.ReviewCount, got.IsMastered, got.ConsecutiveCorrect)
	}
	if !got.NextReviewDate.Equal(now) {
		t.Errorf("next review = %v, want %v", got.NextReviewDate, now)
	}

	overdue := s.Overdue(now.Add(time.Second))
	if len(overdue) != 1 || overdue[0].ID != rec.ID {
		t.Errorf("overdue = %+v, want the unmarked word", overdue)
	}
}

func TestMarkMasteredKeepsSchedule(t *testing.T) {
	s, _, mirror := newTestStore(t)
	rec := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})

	s.MarkMastered(rec.ID)

	got := mustGet(t, s, rec.ID)
	if !got.IsMastered {
		t.Fatal("not mastered")
	}
	if got.ReviewCount != rec.ReviewCount || !got.NextReviewDate.Equal(rec.NextReviewDate) {
		t.Errorf("schedule changed: %+v", got)
	}
	if !s.IsWordMastered(book1, "APPLE") {
		t.Error("IsWordMastered = false")
	}
	if s.IsWordMastered(book2, "apple") {
		t.Error("IsWordMastered leaked across partitions")
	}
	if len(mirror.updated) != 1 {
		t.Errorf("mirror updates = %d, want 1", len(mirror.updated))
	}
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	s, _, mirror := newTestStore(t)
	s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})

	s.RecordOutcome("missing", true)
	s.MarkMastered("missing")
	s.UnmarkMastered("missing")
	s.Remove("missing")
	s.BulkRemove([]string{"missing", "also-missing"})

	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
	if len(mirror.updated) != 0 || len(mirror.deleted) != 0 {
		t.Errorf("mirror saw updates %d deletes %d", len(mirror.updated), len(mirror.deleted))
	}
}

func TestRemoveAndBulkRemove(t *testing.T) {
	s, _, mirror := newTestStore(t)

	a := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})
	b := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "banana"})
	c := s.AddOrMergeMissedWord(book2, models.WordRecord{Word: "cherry"})

	s.Remove(a.ID)
	if _, ok := s.Get(a.ID); ok {
		t.Error("apple still present")
	}

	s.BulkRemove([]string{b.ID, c.ID})
	if s.Len() != 0 {
		t.Errorf("len = %d, want 0", s.Len())
	}
	if len(mirror.deleted) != 3 {
		t.Errorf("mirror deletes = %d, want 3", len(mirror.deleted))
	}

	// re-adding after removal creates a fresh record
	again := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})
	if again.ID == a.ID || again.ErrorCount != 1 {
		t.Errorf("re-add = %+v", again)
	}
}

func TestPartitionIsolation(t *testing.T) {
	s, _, _ := newTestStore(t)

	rec := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})
	// the learner switches course; the same word becomes a separate record
	other := s.AddOrMergeMissedWord(book2, models.WordRecord{Word: "apple"})

	if rec.ID == other.ID {
		t.Fatal("records shared across partitions")
	}
	for _, w := range s.Partition(book2) {
		if w.ID == rec.ID {
			t.Error("Book1 record visible in Book2")
		}
	}
	if got := mustGet(t, s, rec.ID); got.Partition != book1 || got.ErrorCount != 1 {
		t.Errorf("Book1 record changed: %+v", got)
	}

	// outcomes find records regardless of the active course
	s.RecordOutcome(rec.ID, true)
	if got := mustGet(t, s, rec.ID); got.Partition != book1 || got.ReviewCount != 1 {
		t.Errorf("outcome moved or missed record: %+v", got)
	}
}

func TestClearPartition(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})
	s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "pear"})
	keep := s.AddOrMergeMissedWord(book2, models.WordRecord{Word: "apple"})

	s.ClearPartition(book1)

	if got := len(s.Partition(book1)); got != 0 {
		t.Errorf("Book1 has %d records", got)
	}
	if _, ok := s.Get(keep.ID); !ok {
		t.Error("Book2 record removed")
	}
}

func TestBulkMarkMastered(t *testing.T) {
	s, _, _ := newTestStore(t)
	a := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})
	b := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "pear"})

	s.BulkMarkMastered([]string{a.ID, b.ID, "missing"})

	if sum := s.Summary(t0); sum.MasteredCount != 2 || sum.MasteryRate != 100 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s, _, _ := newTestStore(t)
	rec := s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})
	s.RecordOutcome(rec.ID, true)

	got := mustGet(t, s, rec.ID)
	got.ReviewCount = 99
	got.ReviewDates[0] = time.Time{}

	again := mustGet(t, s, rec.ID)
	if again.ReviewCount != 1 || again.ReviewDates[0].IsZero() {
		t.Errorf("store state mutated through a copy: %+v", again)
	}
}

func TestReplaceAndExportLoad(t *testing.T) {
	s, _, mirror := newTestStore(t)
	s.AddOrMergeMissedWord(book1, models.WordRecord{Word: "apple"})
	s.AddOrMergeMissedWord(book2, models.WordRecord{Word: "pear"})
	createdBefore := len(mirror.created)

	snapshot := s.Export()
	if len(snapshot) != 2 {
		t.Fatalf("export has %d partitions", len(snapshot))
	}

	restored := NewStore()
	restored.Load(snapshot)
	if restored.Len() != 2 {
		t.Fatalf("restored len = %d", restored.Len())
	}
	if _, ok := restored.FindWord(book2, "PEAR"); !ok {
		t.Error("pear not restored in Book2")
	}

	s.Replace([]models.WordRecord{
		{ID: "r1", Word: "kiwi", Partition: book1},
		{ID: "r2", Word: "Kiwi", Partition: book1},
	})
	if s.Len() != 1 {
		t.Errorf("replace kept duplicates: len %d", s.Len())
	}
	if len(mirror.created) != createdBefore {
		t.Error("replace notified the mirror")
	}
}
