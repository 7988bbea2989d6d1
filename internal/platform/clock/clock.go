package clock

import "time"

// Clock abstracts time to keep services deterministic in tests.
type Clock interface {
	Now() time.Time
}

// Timer is a pending callback scheduled through a Scheduler.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay. Debounce and auto-save timers go through it.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Millis converts t to epoch milliseconds, the unit used by persisted records.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis is the inverse of Millis.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
