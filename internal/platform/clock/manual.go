package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Clock and Scheduler driven by Advance. Timers fire synchronously
// on the goroutine calling Advance, in due-time order.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	owner   *Manual
	due     time.Time
	seq     int
	fn      func()
	stopped bool
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{owner: m, due: m.now.Add(d), seq: m.seq, fn: f}
	m.timers = append(m.timers, t)
	return t
}

// Pending reports how many timers are still scheduled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing every timer that becomes due.
// Timers scheduled by a firing callback also fire if they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		if next.due.After(m.now) {
			m.now = next.due
		}
		next.stopped = true
		m.removeLocked(next)
		fn := next.fn
		m.mu.Unlock()
		fn()
	}
}

// Set jumps the clock to t without firing timers.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

func (m *Manual) nextDueLocked(target time.Time) *manualTimer {
	live := make([]*manualTimer, 0, len(m.timers))
	for _, t := range m.timers {
		if !t.stopped && !t.due.After(target) {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].due.Equal(live[j].due) {
			return live[i].seq < live[j].seq
		}
		return live[i].due.Before(live[j].due)
	})
	return live[0]
}

func (m *Manual) removeLocked(target *manualTimer) {
	out := m.timers[:0]
	for _, t := range m.timers {
		if t != target && !t.stopped {
			out = append(out, t)
		}
	}
	m.timers = out
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	t.owner.removeLocked(t)
	return true
}
