package models

import (
	"fmt"
	"strings"
	"time"
)

// WordRecord is one missed word together with its review history.
// Records are owned by exactly one partition and never move between partitions.
type WordRecord struct {
	ID        string            `json:"id" yaml:"id" db:"id"`
	Word      string            `json:"word" yaml:"word" db:"word"`
	Meaning   string            `json:"meaning" yaml:"meaning" db:"meaning"`
	Context   string            `json:"context,omitempty" yaml:"context,omitempty" db:"context"`
	Partition PartitionKey      `json:"partition" yaml:"partition"`
	Direction LearningDirection `json:"learning_direction" yaml:"learning_direction" db:"learning_direction"`

	// Optional classification, backfilled on merge but never overwritten
	TextbookSource *TextbookSource `json:"textbook_source,omitempty" yaml:"textbook_source,omitempty"`
	PartOfSpeech   *PartOfSpeech   `json:"part_of_speech,omitempty" yaml:"part_of_speech,omitempty"`
	ExamSource     *ExamSource     `json:"exam_source,omitempty" yaml:"exam_source,omitempty"`
	Difficulty     Difficulty      `json:"difficulty" yaml:"difficulty" db:"difficulty"`

	ErrorCount         int `json:"error_count" yaml:"error_count" db:"error_count"`
	TotalAttempts      int `json:"total_attempts" yaml:"total_attempts" db:"total_attempts"`
	ConsecutiveCorrect int `json:"consecutive_correct" yaml:"consecutive_correct" db:"consecutive_correct"`
	ConsecutiveWrong   int `json:"consecutive_wrong" yaml:"consecutive_wrong" db:"consecutive_wrong"`
	ReviewCount        int `json:"review_count" yaml:"review_count" db:"review_count"`

	ReviewDates    []time.Time `json:"review_dates,omitempty" yaml:"review_dates,omitempty"`
	LastReviewDate *time.Time  `json:"last_review_date,omitempty" yaml:"last_review_date,omitempty" db:"last_review_date"`
	NextReviewDate time.Time   `json:"next_review_date" yaml:"next_review_date" db:"next_review_date"`
	IsMastered     bool        `json:"is_mastered" yaml:"is_mastered" db:"is_mastered"`
	CreatedAt      time.Time   `json:"created_at" yaml:"created_at" db:"created_at"`
}

// NormalizedWord is the case-insensitive identity of the word inside a partition.
func (w *WordRecord) NormalizedWord() string {
	return strings.ToLower(strings.TrimSpace(w.Word))
}

// ErrorRate returns the share of failed attempts in percent
func (w *WordRecord) ErrorRate() float64 {
	if w.TotalAttempts <= 0 {
		return 0
	}
	return float64(w.ErrorCount) / float64(w.TotalAttempts) * 100
}

// CorrectRate returns the share of successful attempts in percent
func (w *WordRecord) CorrectRate() float64 {
	if w.TotalAttempts <= 0 {
		return 0
	}
	correct := w.TotalAttempts - w.ErrorCount
	if correct < 0 {
		correct = 0
	}
	return float64(correct) / float64(w.TotalAttempts) * 100
}

// MasteryLevel is the mastery tier label used for grouping and filtering:
// "mastered" for mastered words, otherwise the rounded-down correct rate.
func (w *WordRecord) MasteryLevel() string {
	if w.IsMastered {
		return MasteryLevelMastered
	}
	return fmt.Sprintf("%d%%", int(w.CorrectRate()))
}

// MasteryLevelMastered is the MasteryLevel of every mastered record.
const MasteryLevelMastered = "mastered"

// Clone returns a deep copy so callers can't mutate store-owned state.
func (w WordRecord) Clone() WordRecord {
	c := w
	if w.TextbookSource != nil {
		ts := *w.TextbookSource
		c.TextbookSource = &ts
	}
	if w.PartOfSpeech != nil {
		pos := *w.PartOfSpeech
		c.PartOfSpeech = &pos
	}
	if w.ExamSource != nil {
		es := *w.ExamSource
		c.ExamSource = &es
	}
	if w.LastReviewDate != nil {
		lr := *w.LastReviewDate
		c.LastReviewDate = &lr
	}
	if w.ReviewDates != nil {
		c.ReviewDates = append([]time.Time(nil), w.ReviewDates...)
	}
	return c
}
