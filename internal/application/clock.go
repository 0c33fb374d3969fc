package application

import "time"

// Clock is injected so timestamps are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now, in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
