package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/reviewbot/pkg/models"
)

// SortOption is a total ordering for browse results
type SortOption string

const (
	SortRecency      SortOption = "recency"       // newest first
	SortErrorCount   SortOption = "error_count"   // most errors first
	SortReviewCount  SortOption = "review_count"  // most reviews first
	SortLastReview   SortOption = "last_review"   // most recently reviewed first
	SortDifficulty   SortOption = "difficulty"    // hardest first
	SortAlphabetical SortOption = "alphabetical"
	SortUrgency      SortOption = "urgency" // earliest NextReviewDate first
)

// GroupOption selects the grouping dimension
type GroupOption string

const (
	GroupAll            GroupOption = "all"
	GroupTextbookSource GroupOption = "textbook_source"
	GroupPartOfSpeech   GroupOption = "part_of_speech"
	GroupExamSource     GroupOption = "exam_source"
	GroupDifficulty     GroupOption = "difficulty"
	GroupDirection      GroupOption = "direction"
	GroupMastery        GroupOption = "mastery"
)

// SortOptions lists every supported ordering
var SortOptions = []SortOption{
	SortRecency, SortErrorCount, SortReviewCount, SortLastReview,
	SortDifficulty, SortAlphabetical, SortUrgency,
}

// GroupOptions lists every supported grouping
var GroupOptions = []GroupOption{
	GroupAll, GroupTextbookSource, GroupPartOfSpeech, GroupExamSource,
	GroupDifficulty, GroupDirection, GroupMastery,
}

// ParseSortOption accepts the option names case-insensitively; empty means recency.
func ParseSortOption(s string) (SortOption, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortRecency, nil
	}
	for _, o := range SortOptions {
		if string(o) == s {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown sort %q, use one of: %s", s, joinOptions(SortOptions))
}

// ParseGroupOption accepts the option names case-insensitively; empty means all.
func ParseGroupOption(s string) (GroupOption, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return GroupAll, nil
	}
	for _, o := range GroupOptions {
		if string(o) == s {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown grouping %q, use one of: %s", s, joinOptions(GroupOptions))
}

func joinOptions[T ~string](options []T) string {
	names := make([]string, len(options))
	for i, o := range options {
		names[i] = string(o)
	}
	return strings.Join(names, ", ")
}

// Group names used outside of the field values
const (
	GroupNameAll       = "all"
	GroupNameUngrouped = "ungrouped"
)

// Query describes a browse request. Empty filter sets match everything.
type Query struct {
	// Partition limits the search to one partition when set
	Partition *models.PartitionKey

	TextbookSources []string // TextbookSource.DisplayText values
	PartsOfSpeech   []models.PartOfSpeech
	ExamSources     []models.ExamSource
	Difficulties    []models.Difficulty
	Directions      []models.LearningDirection
	MasteryLevels   []string // MasteryLevel values

	// Search is a case-insensitive substring over word, meaning and context
	Search string

	Sort  SortOption
	Group GroupOption
}

// Group is a named slice of browse results
type Group struct {
	Name  string              `json:"name" yaml:"name"`
	Words []models.WordRecord `json:"words" yaml:"words"`
}

// GroupStats summarizes one group
type GroupStats struct {
	Name          string  `json:"name" yaml:"name"`
	Count         int     `json:"count" yaml:"count"`
	MasteredCount int     `json:"mastered_count" yaml:"mastered_count"`
	AvgErrorRate  float64 `json:"avg_error_rate" yaml:"avg_error_rate"`
}

// Stats computes counters for the group
func (g Group) Stats() GroupStats {
	st := GroupStats{Name: g.Name, Count: len(g.Words)}
	if len(g.Words) == 0 {
		return st
	}
	var rates float64
	for i := range g.Words {
		if g.Words[i].IsMastered {
			st.MasteredCount++
		}
		rates += g.Words[i].ErrorRate()
	}
	st.AvgErrorRate = rates / float64(len(g.Words))
	return st
}

// Filter returns the records matching q, sorted by q.Sort
func (s *Store) Filter(q Query) []models.WordRecord {
	s.mu.RLock()
	var src []*models.WordRecord
	if q.Partition != nil {
		if p, ok := s.partitions[q.Partition.String()]; ok {
			src = p.words
		}
	} else {
		src = s.all()
	}

	var out []models.WordRecord
	for _, w := range src {
		if q.matches(w) {
			out = append(out, w.Clone())
		}
	}
	s.mu.RUnlock()

	SortRecords(out, q.Sort)
	return out
}

// Browse filters, sorts and then groups. Groups are ordered by name with
// "ungrouped" last; GroupAll yields a single "all" group.
func (s *Store) Browse(q Query) []Group {
	return GroupRecords(s.Filter(q), q.Group)
}

func (q Query) matches(w *models.WordRecord) bool {
	if len(q.TextbookSources) > 0 {
		if w.TextbookSource == nil || !contains(q.TextbookSources, w.TextbookSource.DisplayText()) {
			return false
		}
	}
	if len(q.PartsOfSpeech) > 0 {
		if w.PartOfSpeech == nil || !contains(q.PartsOfSpeech, *w.PartOfSpeech) {
			return false
		}
	}
	if len(q.ExamSources) > 0 {
		if w.ExamSource == nil || !contains(q.ExamSources, *w.ExamSource) {
			return false
		}
	}
	if len(q.Difficulties) > 0 && !contains(q.Difficulties, w.Difficulty) {
		return false
	}
	if len(q.Directions) > 0 && !contains(q.Directions, w.Direction) {
		return false
	}
	if len(q.MasteryLevels) > 0 && !contains(q.MasteryLevels, w.MasteryLevel()) {
		return false
	}

	needle := strings.ToLower(strings.TrimSpace(q.Search))
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(w.Word), needle) ||
		strings.Contains(strings.ToLower(w.Meaning), needle) ||
		strings.Contains(strings.ToLower(w.Context), needle)
}

// SortRecords orders words in place. Ties keep their previous order.
func SortRecords(words []models.WordRecord, by SortOption) {
	var less func(a, b *models.WordRecord) bool
	switch by {
	case SortErrorCount:
		less = func(a, b *models.WordRecord) bool { return a.ErrorCount > b.ErrorCount }
	case SortReviewCount:
		less = func(a, b *models.WordRecord) bool { return a.ReviewCount > b.ReviewCount }
	case SortLastReview:
		less = func(a, b *models.WordRecord) bool {
			switch {
			case a.LastReviewDate == nil:
				return false
			case b.LastReviewDate == nil:
				return true
			}
			return a.LastReviewDate.After(*b.LastReviewDate)
		}
	case SortDifficulty:
		less = func(a, b *models.WordRecord) bool { return a.Difficulty.Rank() > b.Difficulty.Rank() }
	case SortAlphabetical:
		less = func(a, b *models.WordRecord) bool { return a.NormalizedWord() < b.NormalizedWord() }
	case SortUrgency:
		less = func(a, b *models.WordRecord) bool { return a.NextReviewDate.Before(b.NextReviewDate) }
	case SortRecency, "":
		less = func(a, b *models.WordRecord) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		return
	}
	sort.SliceStable(words, func(i, j int) bool {
		return less(&words[i], &words[j])
	})
}

// GroupRecords buckets already sorted words; order inside a group is kept.
func GroupRecords(words []models.WordRecord, by GroupOption) []Group {
	if by == "" || by == GroupAll {
		return []Group{{Name: GroupNameAll, Words: words}}
	}

	buckets := make(map[string][]models.WordRecord)
	for _, w := range words {
		name := groupName(&w, by)
		buckets[name] = append(buckets[name], w)
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		if name != GroupNameUngrouped {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := buckets[GroupNameUngrouped]; ok {
		names = append(names, GroupNameUngrouped)
	}

	groups := make([]Group, 0, len(names))
	for _, name := range names {
		groups = append(groups, Group{Name: name, Words: buckets[name]})
	}
	return groups
}

func groupName(w *models.WordRecord, by GroupOption) string {
	switch by {
	case GroupTextbookSource:
		if w.TextbookSource != nil {
			return w.TextbookSource.DisplayText()
		}
	case GroupPartOfSpeech:
		if w.PartOfSpeech != nil {
			return string(*w.PartOfSpeech)
		}
	case GroupExamSource:
		if w.ExamSource != nil {
			return string(*w.ExamSource)
		}
	case GroupDifficulty:
		if w.Difficulty != "" {
			return string(w.Difficulty)
		}
	case GroupDirection:
		if w.Direction != "" {
			return string(w.Direction)
		}
	case GroupMastery:
		return w.MasteryLevel()
	}
	return GroupNameUngrouped
}

// Facets lists the filter values present in a partition
type Facets struct {
	TextbookSources []string                   `json:"textbook_sources" yaml:"textbook_sources"`
	PartsOfSpeech   []models.PartOfSpeech      `json:"parts_of_speech" yaml:"parts_of_speech"`
	ExamSources     []models.ExamSource        `json:"exam_sources" yaml:"exam_sources"`
	Difficulties    []models.Difficulty        `json:"difficulties" yaml:"difficulties"`
	Directions      []models.LearningDirection `json:"directions" yaml:"directions"`
	MasteryLevels   []string                   `json:"mastery_levels" yaml:"mastery_levels"`
}

// Facets collects the available filter values of one partition, each sorted.
func (s *Store) Facets(key models.PartitionKey) Facets {
	var f Facets
	for _, w := range s.Partition(key) {
		if w.TextbookSource != nil {
			f.TextbookSources = appendUnique(f.TextbookSources, w.TextbookSource.DisplayText())
		}
		if w.PartOfSpeech != nil {
			f.PartsOfSpeech = appendUnique(f.PartsOfSpeech, *w.PartOfSpeech)
		}
		if w.ExamSource != nil {
			f.ExamSources = appendUnique(f.ExamSources, *w.ExamSource)
		}
		if w.Difficulty != "" {
			f.Difficulties = appendUnique(f.Difficulties, w.Difficulty)
		}
		if w.Direction != "" {
			f.Directions = appendUnique(f.Directions, w.Direction)
		}
		f.MasteryLevels = appendUnique(f.MasteryLevels, w.MasteryLevel())
	}

	sortStrings(f.TextbookSources)
	sortStrings(f.PartsOfSpeech)
	sortStrings(f.ExamSources)
	sortStrings(f.Directions)
	sortStrings(f.MasteryLevels)
	sort.Slice(f.Difficulties, func(i, j int) bool {
		return f.Difficulties[i].Rank() < f.Difficulties[j].Rank()
	})
	return f
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func appendUnique[T comparable](set []T, v T) []T {
	if contains(set, v) {
		return set
	}
	return append(set, v)
}

func sortStrings[T ~string](s []T) {
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
}
