package application

import "time"

// Clock abstracts wall time so run timestamps and durations are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
