package usage

import "time"

// Clock provides the time stamped onto recorded sessions.
// This interface allows time to be mocked in tests.
type Clock interface {
	Now() time.Time
}

// RealClock provides actual system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock provides a settable time for testing.
type FixedClock struct {
	CurrentTime time.Time
}

// Now returns the fixed time.
func (c *FixedClock) Now() time.Time {
	return c.CurrentTime
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(d)
}
