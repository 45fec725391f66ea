package review

import (
	"sort"
	"time"

	"github.com/example/reviewbot/pkg/models"
)

// DueToday returns the non-mastered words whose next review falls on today's
// calendar day or earlier, in now's location. Sorted by NextReviewDate.
func (s *Store) DueToday(now time.Time) []models.WordRecord {
	endOfDay := startOfDay(now).AddDate(0, 0, 1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.WordRecord
	for _, w := range s.all() {
		if w.IsMastered {
			continue
		}
		if w.NextReviewDate.Before(endOfDay) {
			out = append(out, w.Clone())
		}
	}
	sortByUrgency(out)
	return out
}

// Overdue returns the non-mastered words whose next review is strictly before now.
func (s *Store) Overdue(now time.Time) []models.WordRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.WordRecord
	for _, w := range s.all() {
		if !w.IsMastered && w.NextReviewDate.Before(now) {
			out = append(out, w.Clone())
		}
	}
	sortByUrgency(out)
	return out
}

// NextDue returns the most urgent word of today's queue, if any
func (s *Store) NextDue(now time.Time) (models.WordRecord, bool) {
	due := s.DueToday(now)
	if len(due) == 0 {
		return models.WordRecord{}, false
	}
	return due[0], true
}

// Summary holds the dashboard figures
type Summary struct {
	Total            int     `json:"total" yaml:"total"`
	TodayReviewCount int     `json:"today_review_count" yaml:"today_review_count"`
	OverdueCount     int     `json:"overdue_count" yaml:"overdue_count"`
	MasteredCount    int     `json:"mastered_count" yaml:"mastered_count"`
	UnmasteredCount  int     `json:"unmastered_count" yaml:"unmastered_count"`
	MasteryRate      float64 `json:"mastery_rate" yaml:"mastery_rate"`
	TotalReviews     int     `json:"total_reviews" yaml:"total_reviews"`
	AverageErrorRate float64 `json:"average_error_rate" yaml:"average_error_rate"`
}

// Summary computes the dashboard figures over all partitions
func (s *Store) Summary(now time.Time) Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return summarize(s.all(), now)
}

// PartitionSummary computes the dashboard figures for one partition
func (s *Store) PartitionSummary(key models.PartitionKey, now time.Time) Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.partitions[key.String()]
	if !ok {
		return Summary{}
	}
	return summarize(p.words, now)
}

func summarize(words []*models.WordRecord, now time.Time) Summary {
	endOfDay := startOfDay(now).AddDate(0, 0, 1)

	var sum Summary
	var errorRates float64
	for _, w := range words {
		sum.Total++
		sum.TotalReviews += len(w.ReviewDates)
		errorRates += w.ErrorRate()

		if w.IsMastered {
			sum.MasteredCount++
			continue
		}
		sum.UnmasteredCount++
		if w.NextReviewDate.Before(endOfDay) {
			sum.TodayReviewCount++
		}
		if w.NextReviewDate.Before(now) {
			sum.OverdueCount++
		}
	}

	if sum.Total > 0 {
		sum.MasteryRate = float64(sum.MasteredCount) / float64(sum.Total) * 100
		sum.AverageErrorRate = errorRates / float64(sum.Total)
	}
	return sum
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sortByUrgency(words []models.WordRecord) {
	sort.SliceStable(words, func(i, j int) bool {
		return words[i].NextReviewDate.Before(words[j].NextReviewDate)
	})
}
