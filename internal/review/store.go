package review

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/reviewbot/internal/spaced_repetition"
	"github.com/example/reviewbot/pkg/models"
	"github.com/google/uuid"
)

// Mirror receives a copy of every record the store creates, changes or removes.
// Implementations must not block; the sync bridge queues the work.
type Mirror interface {
	RecordCreated(rec models.WordRecord)
	RecordUpdated(rec models.WordRecord)
	RecordDeleted(rec models.WordRecord)
}

// partition is the in-memory bucket; words keep insertion order.
type partition struct {
	key   models.PartitionKey
	words []*models.WordRecord
}

// Store is the partitioned missed-word book. It owns every WordRecord;
// all mutations go through it. Operations on unknown ids are no-ops.
type Store struct {
	mu         sync.RWMutex
	partitions map[string]*partition
	byID       map[string]*models.WordRecord

	ladder *spaced_repetition.Ladder
	mirror Mirror
	now    func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithMirror attaches the remote mirror (the sync bridge)
func WithMirror(m Mirror) Option {
	return func(s *Store) { s.mirror = m }
}

// WithClock overrides time.Now, used by tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLadder overrides the default interval ladder
func WithLadder(l *spaced_repetition.Ladder) Option {
	return func(s *Store) { s.ladder = l }
}

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		partitions: make(map[string]*partition),
		byID:       make(map[string]*models.WordRecord),
		ladder:     spaced_repetition.NewLadder(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddOrMergeMissedWord records a miss of word in the active partition.
// A new record is created unless a case-insensitive match exists there,
// in which case the existing record is merged. The stored copy is returned.
func (s *Store) AddOrMergeMissedWord(active models.PartitionKey, word models.WordRecord) models.WordRecord {
	now := s.now()

	s.mu.Lock()
	p := s.partitionLocked(active)
	if existing := findWord(p, word.Word); existing != nil {
		existing.ErrorCount++
		existing.TotalAttempts++
		existing.ConsecutiveWrong++
		existing.ConsecutiveCorrect = 0
		existing.LastReviewDate = timePtr(now)
		backfillClassification(existing, &word)

		// Повтор ошибки не меняет reviewCount, только ближайший срок
		_, existing.NextReviewDate = s.ladder.AfterFailure(now, existing.ReviewCount)
		out := existing.Clone()
		s.mu.Unlock()

		if s.mirror != nil {
			s.mirror.RecordUpdated(out)
		}
		return out
	}

	rec := newRecord(active, word, now, s.ladder)
	p.words = append(p.words, rec)
	s.byID[rec.ID] = rec
	out := rec.Clone()
	s.mu.Unlock()

	if s.mirror != nil {
		s.mirror.RecordCreated(out)
	}
	return out
}

// newRecord builds a fresh record for a first miss
func newRecord(active models.PartitionKey, word models.WordRecord, now time.Time, ladder *spaced_repetition.Ladder) *models.WordRecord {
	rec := word.Clone()
	rec.ID = uuid.NewString()
	rec.Word = strings.TrimSpace(rec.Word)
	rec.Partition = active
	if rec.Direction == "" {
		rec.Direction = models.DirectionRecognizeMeaning
	}
	if rec.Difficulty == "" {
		rec.Difficulty = models.DifficultyMedium
	}
	if rec.TextbookSource == nil && !active.IsZero() {
		rec.TextbookSource = &models.TextbookSource{
			CourseType: active.CourseType,
			CourseBook: active.CourseBook,
			Unit:       1,
		}
	}

	rec.ErrorCount = 1
	rec.TotalAttempts = 1
	rec.ConsecutiveWrong = 1
	rec.ConsecutiveCorrect = 0
	rec.ReviewCount = 0
	rec.ReviewDates = nil
	rec.LastReviewDate = nil
	rec.IsMastered = false
	rec.CreatedAt = now
	rec.NextReviewDate = ladder.NextDue(now, 0)
	return &rec
}

// backfillClassification copies classification fields that are still absent
func backfillClassification(dst, src *models.WordRecord) {
	if dst.TextbookSource == nil && src.TextbookSource != nil {
		ts := *src.TextbookSource
		dst.TextbookSource = &ts
	}
	if dst.PartOfSpeech == nil && src.PartOfSpeech != nil {
		pos := *src.PartOfSpeech
		dst.PartOfSpeech = &pos
	}
	if dst.ExamSource == nil && src.ExamSource != nil {
		es := *src.ExamSource
		dst.ExamSource = &es
	}
	if dst.Difficulty == "" && src.Difficulty != "" {
		dst.Difficulty = src.Difficulty
	}
	if dst.Meaning == "" {
		dst.Meaning = src.Meaning
	}
	if dst.Context == "" {
		dst.Context = src.Context
	}
}

// RecordOutcome applies a correct or incorrect answer to the record with the
// given id, wherever it lives.
func (s *Store) RecordOutcome(id string, isCorrect bool) {
	now := s.now()

	s.mu.Lock()
	rec, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return
	}

	rec.TotalAttempts++
	rec.LastReviewDate = timePtr(now)
	if isCorrect {
		rec.ReviewCount, rec.NextReviewDate = s.ladder.AfterSuccess(now, rec.ReviewCount)
		rec.ReviewDates = append(rec.ReviewDates, now)
		rec.ConsecutiveCorrect++
		rec.ConsecutiveWrong = 0
	} else {
		rec.ReviewCount, rec.NextReviewDate = s.ladder.AfterFailure(now, rec.ReviewCount)
		rec.ErrorCount++
		rec.ConsecutiveWrong++
		rec.ConsecutiveCorrect = 0
	}
	// Снять отметку можно только через UnmarkMastered
	if spaced_repetition.IsMastered(rec.ReviewCount) {
		rec.IsMastered = true
	}
	out := rec.Clone()
	s.mu.Unlock()

	if s.mirror != nil {
		s.mirror.RecordUpdated(out)
	}
}

// MarkMastered sets the mastery flag without touching the schedule
func (s *Store) MarkMastered(id string) {
	s.mu.Lock()
	rec, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	rec.IsMastered = true
	out := rec.Clone()
	s.mu.Unlock()

	if s.mirror != nil {
		s.mirror.RecordUpdated(out)
	}
}

// BulkMarkMastered marks every listed record as mastered
func (s *Store) BulkMarkMastered(ids []string) {
	for _, id := range ids {
		s.MarkMastered(id)
	}
}

// UnmarkMastered clears the mastery flag and rewinds the schedule so the word
// is due immediately. This is the only operation that rewinds scheduling state.
func (s *Store) UnmarkMastered(id string) {
	now := s.now()

	s.mu.Lock()
	rec, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	rec.IsMastered = false
	rec.ReviewCount = 0
	rec.ConsecutiveCorrect = 0
	rec.LastReviewDate = timePtr(now)
	rec.NextReviewDate = s.ladder.Reset(now)
	out := rec.Clone()
	s.mu.Unlock()

	if s.mirror != nil {
		s.mirror.RecordUpdated(out)
	}
}

// Remove deletes a single record
func (s *Store) Remove(id string) {
	s.mu.Lock()
	rec, ok := s.removeLocked(id)
	s.mu.Unlock()

	if ok && s.mirror != nil {
		s.mirror.RecordDeleted(rec)
	}
}

// BulkRemove deletes every listed record; unknown ids are skipped
func (s *Store) BulkRemove(ids []string) {
	for _, id := range ids {
		s.Remove(id)
	}
}

// ClearPartition removes every record of a partition
func (s *Store) ClearPartition(key models.PartitionKey) {
	s.mu.RLock()
	var ids []string
	if p, ok := s.partitions[key.String()]; ok {
		for _, w := range p.words {
			ids = append(ids, w.ID)
		}
	}
	s.mu.RUnlock()

	s.BulkRemove(ids)
}

func (s *Store) removeLocked(id string) (models.WordRecord, bool) {
	rec, ok := s.byID[id]
	if !ok {
		return models.WordRecord{}, false
	}
	delete(s.byID, id)

	if p, ok := s.partitions[rec.Partition.String()]; ok {
		for i, w := range p.words {
			if w.ID == id {
				p.words = append(p.words[:i], p.words[i+1:]...)
				break
			}
		}
	}
	return rec.Clone(), true
}

// Get returns a copy of the record with the given id
func (s *Store) Get(id string) (models.WordRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return models.WordRecord{}, false
	}
	return rec.Clone(), true
}

// FindWord looks a word up case-insensitively inside one partition
func (s *Store) FindWord(key models.PartitionKey, word string) (models.WordRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.partitions[key.String()]
	if !ok {
		return models.WordRecord{}, false
	}
	rec := findWord(p, word)
	if rec == nil {
		return models.WordRecord{}, false
	}
	return rec.Clone(), true
}

// IsWordMastered reports whether word is mastered in the given partition
func (s *Store) IsWordMastered(key models.PartitionKey, word string) bool {
	rec, ok := s.FindWord(key, word)
	return ok && rec.IsMastered
}

// Partition returns copies of the records in one partition, in insertion order.
func (s *Store) Partition(key models.PartitionKey) []models.WordRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.partitions[key.String()]
	if !ok {
		return nil
	}
	out := make([]models.WordRecord, 0, len(p.words))
	for _, w := range p.words {
		out = append(out, w.Clone())
	}
	return out
}

// PartitionKeys lists the known partitions sorted by key
func (s *Store) PartitionKeys() []models.PartitionKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]models.PartitionKey, 0, len(s.partitions))
	for _, p := range s.partitions {
		keys = append(keys, p.key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Len returns the number of records across all partitions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Snapshot returns copies of every record across all partitions,
// ordered by partition key and then insertion order.
func (s *Store) Snapshot() []models.WordRecord {
	keys := s.PartitionKeys()
	var out []models.WordRecord
	for _, k := range keys {
		out = append(out, s.Partition(k)...)
	}
	return out
}

// Replace swaps the whole content for records (remote-authoritative reconcile).
// Records are bucketed by their own partition; duplicates of the same
// (partition, word) keep the first occurrence. The mirror is not notified.
func (s *Store) Replace(records []models.WordRecord) {
	partitions := make(map[string]*partition)
	byID := make(map[string]*models.WordRecord)

	for i := range records {
		rec := records[i].Clone()
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if _, dup := byID[rec.ID]; dup {
			continue
		}
		key := rec.Partition.String()
		p, ok := partitions[key]
		if !ok {
			p = &partition{key: rec.Partition}
			partitions[key] = p
		}
		if findWord(p, rec.Word) != nil {
			continue
		}
		p.words = append(p.words, &rec)
		byID[rec.ID] = &rec
	}

	s.mu.Lock()
	s.partitions = partitions
	s.byID = byID
	s.mu.Unlock()
}

// Export returns the durable snapshot shape: partition key -> partition.
func (s *Store) Export() map[string]models.Partition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Partition, len(s.partitions))
	for key, p := range s.partitions {
		words := make([]models.WordRecord, 0, len(p.words))
		for _, w := range p.words {
			words = append(words, w.Clone())
		}
		out[key] = models.Partition{
			CourseType: p.key.CourseType,
			CourseBook: p.key.CourseBook,
			Words:      words,
		}
	}
	return out
}

// Load restores an exported snapshot. Records take the partition of the bucket
// they were stored in.
func (s *Store) Load(snapshot map[string]models.Partition) {
	var records []models.WordRecord
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		p := snapshot[k]
		for _, w := range p.Words {
			w.Partition = p.Key()
			records = append(records, w)
		}
	}
	s.Replace(records)
}

// all returns pointers to every record; caller must hold the read lock.
func (s *Store) all() []*models.WordRecord {
	out := make([]*models.WordRecord, 0, len(s.byID))
	for _, key := range s.sortedKeysLocked() {
		out = append(out, s.partitions[key].words...)
	}
	return out
}

func (s *Store) sortedKeysLocked() []string {
	keys := make([]string, 0, len(s.partitions))
	for k := range s.partitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) partitionLocked(key models.PartitionKey) *partition {
	p, ok := s.partitions[key.String()]
	if !ok {
		p = &partition{key: key}
		s.partitions[key.String()] = p
	}
	return p
}

func findWord(p *partition, word string) *models.WordRecord {
	needle := strings.ToLower(strings.TrimSpace(word))
	for _, w := range p.words {
		if w.NormalizedWord() == needle {
			return w
		}
	}
	return nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
