package timehelper

import "time"

// Clock is the time source used by the jobs, so tests can pin "now".
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always reports the same instant.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time {
	return c.T
}

func GetTodaysDateString(clock Clock) string {
	// Format the date to 'YYYY-MM-DD'
	return clock.Now().Format("2006-01-02")
}
