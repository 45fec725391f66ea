package spaced_repetition

import (
	"fmt"
	"time"
)

// MasteryThreshold is the review count at which a word counts as mastered.
// The ladder itself never decides mastery; the store does.
const MasteryThreshold = 7

// Ladder implements the interval policy: every successful review moves a word
// one rung up, every failure one rung down. Rung n waits Steps[n] before the
// next review; rungs past the end of Steps reuse the last step.
type Ladder struct {
	// Интервалы повторения для каждой ступени
	Steps []time.Duration
	// Максимальный интервал повторения
	MaxInterval time.Duration
}

// DefaultSteps is the default ladder: minutes, then hours, then days.
var DefaultSteps = []time.Duration{
	20 * time.Minute,
	time.Hour,
	12 * time.Hour,
	24 * time.Hour,
	2 * 24 * time.Hour,
	4 * 24 * time.Hour,
	7 * 24 * time.Hour,
	15 * 24 * time.Hour,
	30 * 24 * time.Hour,
}

// DefaultMaxInterval caps every step.
const DefaultMaxInterval = 60 * 24 * time.Hour

// NewLadder creates a ladder with the default steps
func NewLadder() *Ladder {
	return &Ladder{
		Steps:       append([]time.Duration(nil), DefaultSteps...),
		MaxInterval: DefaultMaxInterval,
	}
}

// Validate checks that the steps are positive, strictly increasing and
// within MaxInterval.
func (l *Ladder) Validate() error {
	if len(l.Steps) == 0 {
		return fmt.Errorf("spaced_repetition: ladder has no steps")
	}
	if l.MaxInterval <= 0 {
		return fmt.Errorf("spaced_repetition: max interval %v must be positive", l.MaxInterval)
	}
	for i, step := range l.Steps {
		if step <= 0 {
			return fmt.Errorf("spaced_repetition: step %d (%v) must be positive", i, step)
		}
		if i > 0 && step <= l.Steps[i-1] {
			return fmt.Errorf("spaced_repetition: step %d (%v) must be longer than step %d (%v)", i, step, i-1, l.Steps[i-1])
		}
		if step > l.MaxInterval {
			return fmt.Errorf("spaced_repetition: step %d (%v) exceeds max interval %v", i, step, l.MaxInterval)
		}
	}
	return nil
}

// Interval returns the wait for the given rung
func (l *Ladder) Interval(reviewCount int) time.Duration {
	if len(l.Steps) == 0 {
		return 0
	}
	if reviewCount < 0 {
		reviewCount = 0
	}
	if reviewCount >= len(l.Steps) {
		reviewCount = len(l.Steps) - 1
	}
	interval := l.Steps[reviewCount]
	if l.MaxInterval > 0 && interval > l.MaxInterval {
		interval = l.MaxInterval
	}
	return interval
}

// NextDue returns the instant the word must be reviewed again
func (l *Ladder) NextDue(now time.Time, reviewCount int) time.Time {
	return now.Add(l.Interval(reviewCount))
}

// AfterSuccess moves one rung up
func (l *Ladder) AfterSuccess(now time.Time, reviewCount int) (int, time.Time) {
	if reviewCount < 0 {
		reviewCount = 0
	}
	next := reviewCount + 1
	return next, l.NextDue(now, next)
}

// AfterFailure moves one rung down, never below zero, so the word comes back sooner.
func (l *Ladder) AfterFailure(now time.Time, reviewCount int) (int, time.Time) {
	next := reviewCount - 1
	if next < 0 {
		next = 0
	}
	return next, l.NextDue(now, next)
}

// Reset puts the review clock back to "due now"
func (l *Ladder) Reset(now time.Time) time.Time {
	return now
}

// IsMastered reports whether the review count reached the mastery threshold
func IsMastered(reviewCount int) bool {
	return reviewCount >= MasteryThreshold
}
