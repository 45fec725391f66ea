package models

import "time"

// AttemptRecord is a single answered question, kept for analytics only.
// Losing one never affects the review schedule.
type AttemptRecord struct {
	ID          string            `json:"id" db:"id"`
	UserID      string            `json:"user_id" db:"user_id"`
	WordID      string            `json:"word_id,omitempty" db:"word_id"`
	Word        string            `json:"word" db:"word"`
	Meaning     string            `json:"meaning" db:"meaning"`
	Context     string            `json:"context" db:"context"`
	Direction   LearningDirection `json:"learning_direction" db:"learning_direction"`
	IsCorrect   bool              `json:"is_correct" db:"is_correct"`
	AnswerTime  time.Duration     `json:"answer_time" db:"-"`
	StreakCount int               `json:"streak_count" db:"streak_count"`
	StudyDate   time.Time         `json:"study_date" db:"study_date"`
	DeviceID    string            `json:"device_id" db:"device_id"`
}
