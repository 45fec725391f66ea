package models

import (
	"fmt"
	"strings"
)

// PartitionKey identifies a textbook partition: course type plus course book.
type PartitionKey struct {
	CourseType CourseType `json:"course_type" yaml:"course_type" db:"course_type"`
	CourseBook string     `json:"course_book" yaml:"course_book" db:"course_book"`
}

// String renders the key as "{courseType}_{courseBook}"
func (k PartitionKey) String() string {
	return fmt.Sprintf("%s_%s", k.CourseType, k.CourseBook)
}

// IsZero reports whether no course was selected
func (k PartitionKey) IsZero() bool {
	return k.CourseType == "" && k.CourseBook == ""
}

// ParsePartitionKey is the inverse of PartitionKey.String.
// The course book may itself contain underscores; only the first one separates.
func ParsePartitionKey(s string) (PartitionKey, error) {
	idx := strings.Index(s, "_")
	if idx <= 0 || idx == len(s)-1 {
		return PartitionKey{}, fmt.Errorf("invalid partition key %q", s)
	}
	return PartitionKey{
		CourseType: CourseType(s[:idx]),
		CourseBook: s[idx+1:],
	}, nil
}

// Partition is the persisted shape of one textbook bucket.
type Partition struct {
	CourseType CourseType   `json:"course_type" yaml:"course_type"`
	CourseBook string       `json:"course_book" yaml:"course_book"`
	Words      []WordRecord `json:"words" yaml:"words"`
}

// Key returns the partition key of the bucket
func (p *Partition) Key() PartitionKey {
	return PartitionKey{CourseType: p.CourseType, CourseBook: p.CourseBook}
}
