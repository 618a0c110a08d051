package clock

import "time"

// Clock provides wall-clock time and can be replaced in tests
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// NowMillis returns the clock's current time as unix milliseconds,
// the unit used for cache and rating timestamps
func NowMillis(c Clock) int64 {
	return c.Now().UnixMilli()
}
