// Package announce delivers short status messages to assistive technology.
// The host supplies the Sink (a live region, a terminal, a log).
package announce

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"docgrind/internal/platform/clock"
)

type Priority string

const (
	Polite    Priority = "polite"
	Assertive Priority = "assertive"
)

const (
	dedupWindow = 2 * time.Second
	historySize = 10
)

var milestones = []int{25, 50, 75, 100}

type Announcement struct {
	Message  string
	Priority Priority
	At       time.Time
}

type Sink interface {
	Announce(a Announcement)
}

type SinkFunc func(a Announcement)

func (f SinkFunc) Announce(a Announcement) { f(a) }

// LogSink writes announcements to a logger.
type LogSink struct {
	Log zerolog.Logger
}

func (s LogSink) Announce(a Announcement) {
	s.Log.Info().Str("priority", string(a.Priority)).Msg(a.Message)
}

type Preferences struct {
	Progress      bool
	Bookmarks     bool
	Chapters      bool
	TimeEstimates bool
}

func DefaultPreferences() Preferences {
	return Preferences{Progress: true, Bookmarks: true, Chapters: true}
}

type Announcer struct {
	mu      sync.Mutex
	clock   clock.Clock
	sink    Sink
	prefs   Preferences
	last    string
	lastAt  time.Time
	history []string
	reached map[string]map[int]bool
}

func NewAnnouncer(clk clock.Clock, sink Sink, prefs Preferences) *Announcer {
	return &Announcer{clock: clk, sink: sink, prefs: prefs, reached: map[string]map[int]bool{}}
}

// Announce sends message unless it is blank or repeats the previous message
// within two seconds. It reports whether the message went out.
func (a *Announcer) Announce(message string, priority Priority) bool {
	if strings.TrimSpace(message) == "" {
		return false
	}
	a.mu.Lock()
	now := a.clock.Now()
	if message == a.last && now.Sub(a.lastAt) < dedupWindow {
		a.mu.Unlock()
		return false
	}
	a.last = message
	a.lastAt = now
	a.history = append(a.history, message)
	if len(a.history) > historySize {
		a.history = a.history[len(a.history)-historySize:]
	}
	sink := a.sink
	a.mu.Unlock()

	if priority == "" {
		priority = Polite
	}
	if sink != nil {
		sink.Announce(Announcement{Message: message, Priority: priority, At: now})
	}
	return true
}

// History returns the most recent announcements, oldest first.
func (a *Announcer) History() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.history...)
}

func (a *Announcer) Preferences() Preferences {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prefs
}

func (a *Announcer) SetPreferences(p Preferences) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prefs = p
}

// ProgressUpdate announces when the rounded percentage lands on a quarter
// milestone that scope (a session or document id) has not announced yet.
func (a *Announcer) ProgressUpdate(scope string, scrollPercentage float64) bool {
	if !a.Preferences().Progress {
		return false
	}
	pct := int(math.Round(scrollPercentage))
	for _, m := range milestones {
		if pct != m {
			continue
		}
		if !a.markReached(scope, m) {
			return false
		}
		return a.Announce(fmt.Sprintf("Reading progress: %d%% complete", m), Polite)
	}
	return false
}

func (a *Announcer) markReached(scope string, milestone int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	seen := a.reached[scope]
	if seen == nil {
		seen = map[int]bool{}
		a.reached[scope] = seen
	}
	if seen[milestone] {
		return false
	}
	seen[milestone] = true
	return true
}

// ForgetProgress lets scope announce its milestones again.
func (a *Announcer) ForgetProgress(scope string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.reached, scope)
}

func (a *Announcer) ChapterChange(chapter string) bool {
	if !a.Preferences().Chapters || strings.TrimSpace(chapter) == "" {
		return false
	}
	return a.Announce("Now reading: "+chapter, Polite)
}

func (a *Announcer) BookmarkCreated(title string) bool {
	if !a.Preferences().Bookmarks {
		return false
	}
	return a.Announce("Bookmark created: "+title, Polite)
}

// TimeEstimate announces the remaining time in whole minutes; nothing under half a minute.
func (a *Announcer) TimeEstimate(remaining time.Duration) bool {
	if !a.Preferences().TimeEstimates {
		return false
	}
	minutes := int(math.Round(remaining.Minutes()))
	if minutes <= 0 {
		return false
	}
	return a.Announce(fmt.Sprintf("Estimated reading time remaining: %d minutes", minutes), Polite)
}
