package models

import "fmt"

// CourseType is required or elective coursework
type CourseType string

const (
	CourseRequired CourseType = "required"
	CourseElective CourseType = "elective"
)

// Valid reports whether the course type is known
func (c CourseType) Valid() bool {
	return c == CourseRequired || c == CourseElective
}

// TextbookSource records where a word came from
type TextbookSource struct {
	CourseType CourseType `json:"course_type" yaml:"course_type"`
	CourseBook string     `json:"course_book" yaml:"course_book"`
	Unit       int        `json:"unit" yaml:"unit"`
	Edition    string     `json:"edition,omitempty" yaml:"edition,omitempty"`
}

// DisplayText is used as the group name when grouping by textbook source
func (t TextbookSource) DisplayText() string {
	return fmt.Sprintf("%s Unit %d", t.CourseBook, t.Unit)
}

// LearningDirection is the recognition direction a word was missed in
type LearningDirection string

const (
	DirectionRecognizeMeaning LearningDirection = "recognize_meaning" // word -> meaning
	DirectionRecallWord       LearningDirection = "recall_word"       // meaning -> word
	DirectionDictation        LearningDirection = "dictation"
)

// ParseLearningDirection falls back to recognize-meaning for unknown input
func ParseLearningDirection(s string) LearningDirection {
	switch LearningDirection(s) {
	case DirectionRecallWord:
		return DirectionRecallWord
	case DirectionDictation:
		return DirectionDictation
	default:
		return DirectionRecognizeMeaning
	}
}

// PartOfSpeech of a word
type PartOfSpeech string

const (
	Noun         PartOfSpeech = "noun"
	Verb         PartOfSpeech = "verb"
	Adjective    PartOfSpeech = "adjective"
	Adverb       PartOfSpeech = "adverb"
	Pronoun      PartOfSpeech = "pronoun"
	Preposition  PartOfSpeech = "preposition"
	Conjunction  PartOfSpeech = "conjunction"
	Interjection PartOfSpeech = "interjection"
)

// ExamSource is the exam the word is relevant for
type ExamSource string

const (
	ExamGaokao   ExamSource = "gaokao"
	ExamCET4     ExamSource = "cet4"
	ExamCET6     ExamSource = "cet6"
	ExamIELTS    ExamSource = "ielts"
	ExamTOEFL    ExamSource = "toefl"
	ExamSAT      ExamSource = "sat"
	ExamGRE      ExamSource = "gre"
	ExamDaily    ExamSource = "daily"
	ExamTextbook ExamSource = "textbook"
	ExamOther    ExamSource = "other"
)

// Difficulty of a word
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Rank orders difficulties from easy (1) to hard (3); unknown values rank 0.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	}
	return 0
}
