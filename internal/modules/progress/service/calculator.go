package service

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	contentdomain "docgrind/internal/modules/content/domain"
	positiondomain "docgrind/internal/modules/position/domain"
	"docgrind/internal/modules/progress/domain"
	"docgrind/internal/platform/clock"
	apperrors "docgrind/internal/platform/errors"
	"docgrind/internal/platform/id"
)

// SignificantVisibility is the visibility percentage an element must exceed
// before its words count toward a session.
const SignificantVisibility = 50

const day = 24 * time.Hour

type Config struct {
	DocumentID string
	// AverageReadingSpeed is the fallback speed in words per minute.
	AverageReadingSpeed float64
	// ActivityFactor discounts wall time to estimate active reading time.
	ActivityFactor   float64
	ActivityInterval time.Duration
	Location         *time.Location
}

func (c Config) withDefaults() Config {
	if c.AverageReadingSpeed <= 0 {
		c.AverageReadingSpeed = 200
	}
	if c.ActivityFactor <= 0 || c.ActivityFactor > 1 {
		c.ActivityFactor = 0.7
	}
	if c.ActivityInterval <= 0 {
		c.ActivityInterval = time.Second
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

type Calculator struct {
	cfg   Config
	clock clock.Clock
	ids   id.Generator
	log   zerolog.Logger

	state        domain.State
	sessions     []domain.Session
	active       int
	startedAt    time.Time
	lastActivity time.Time
	lastVisible  map[string]bool
	counted      map[string]bool
	dwell        map[string]time.Duration
	types        map[string]contentdomain.ElementType
	totalWords   int
}

func NewCalculator(cfg Config, clk clock.Clock, ids id.Generator, log zerolog.Logger) *Calculator {
	if ids == nil {
		ids = id.Prefixed{Prefix: "session", Gen: id.UUID{}}
	}
	c := &Calculator{
		cfg:   cfg.withDefaults(),
		clock: clk,
		ids:   ids,
		log:   log.With().Str("document_id", cfg.DocumentID).Logger(),
	}
	c.clear()
	return c
}

func (c *Calculator) clear() {
	c.state = domain.StateIdle
	c.sessions = nil
	c.active = -1
	c.lastVisible = map[string]bool{}
	c.counted = map[string]bool{}
	c.dwell = map[string]time.Duration{}
	c.types = map[string]contentdomain.ElementType{}
}

// StartSession begins a new session. While one is tracking or paused the
// existing session is returned unchanged with ErrActiveSessionExists.
func (c *Calculator) StartSession() (domain.Session, error) {
	if c.active >= 0 {
		current := c.sessions[c.active]
		return current, fmt.Errorf("start session %s: %w", current.SessionID, apperrors.ErrActiveSessionExists)
	}
	now := c.clock.Now()
	session := domain.Session{
		SessionID:  c.ids.New(),
		DocumentID: c.cfg.DocumentID,
		StartTime:  clock.Millis(now),
	}
	c.sessions = append(c.sessions, session)
	c.active = len(c.sessions) - 1
	c.state = domain.StateTracking
	c.startedAt = now
	c.lastActivity = now
	c.lastVisible = map[string]bool{}
	c.counted = map[string]bool{}
	c.log.Debug().Str("session_id", session.SessionID).Msg("session started")
	return session, nil
}

// UpdateActivity credits dwell time to the elements visible since the last
// call and counts the words of elements that newly became significantly
// visible. Each element counts at most once per session. Calls closer than
// the activity interval are ignored.
func (c *Calculator) UpdateActivity(visible []contentdomain.ContentElement) bool {
	if c.active < 0 || c.state != domain.StateTracking {
		return false
	}
	now := c.clock.Now()
	delta := now.Sub(c.lastActivity)
	if delta < c.cfg.ActivityInterval {
		return false
	}
	for elementID := range c.lastVisible {
		c.dwell[elementID] += delta
	}

	session := &c.sessions[c.active]
	current := make(map[string]bool, len(visible))
	for _, el := range visible {
		current[el.ID] = true
		c.types[el.ID] = el.Type
		if c.lastVisible[el.ID] || c.counted[el.ID] || el.VisibilityPercentage <= SignificantVisibility {
			continue
		}
		c.counted[el.ID] = true
		session.WordsRead += el.WordCount
		session.CharactersRead += el.CharacterCount
	}
	session.ReadingSpeed = speed(session.WordsRead, c.activeTime(now))

	c.lastActivity = now
	c.lastVisible = current
	return true
}

// UpdateProgress recomputes the document view from geometry alone.
func (c *Calculator) UpdateProgress(elements []contentdomain.ContentElement, pos positiondomain.ReadingPosition) domain.Progress {
	sorted := contentdomain.SortByOffset(elements)
	c.totalWords = contentdomain.TotalWords(sorted)
	wordsRead := 0
	for _, el := range sorted {
		c.types[el.ID] = el.Type
		wordsRead += int(math.Round(float64(el.WordCount) * positiondomain.ElementProgress(el, pos)))
	}
	pct := 0.0
	if c.totalWords > 0 {
		pct = math.Min(100, math.Max(0, float64(wordsRead)/float64(c.totalWords)*100))
	}

	analytics := c.GetAnalytics()
	wpm := analytics.AverageReadingSpeed
	if c.active >= 0 && c.sessions[c.active].ReadingSpeed > 0 {
		wpm = c.sessions[c.active].ReadingSpeed
	}
	remaining := c.totalWords - wordsRead
	if remaining < 0 {
		remaining = 0
	}

	if c.active >= 0 {
		c.sessions[c.active].CompletionPercentage = pct
	}
	return domain.Progress{
		DocumentID:             c.cfg.DocumentID,
		ProgressPercentage:     pct,
		CurrentPosition:        pos,
		Sessions:               c.Sessions(),
		Elements:               sorted,
		EstimatedTotalTime:     minutesToMillis(float64(c.totalWords) / wpm),
		EstimatedRemainingTime: minutesToMillis(float64(remaining) / wpm),
		AverageReadingSpeed:    analytics.AverageReadingSpeed,
		TotalWords:             c.totalWords,
		WordsRead:              wordsRead,
		LastUpdated:            clock.Millis(c.clock.Now()),
	}
}

// EndSession finalizes the active session. The active reference is dropped
// before anything else so a reentrant UpdateActivity sees no session.
func (c *Calculator) EndSession() (domain.Session, bool) {
	if c.active < 0 {
		return domain.Session{}, false
	}
	idx := c.active
	c.active = -1
	c.state = domain.StateEnded
	c.lastVisible = map[string]bool{}

	now := c.clock.Now()
	session := c.sessions[idx]
	if now.Before(c.startedAt) {
		now = c.startedAt
	}
	session.EndTime = clock.Millis(now)
	active := c.activeTime(now)
	session.TotalTime = active.Milliseconds()
	session.ReadingSpeed = speed(session.WordsRead, active)
	c.sessions[idx] = session
	c.log.Debug().
		Str("session_id", session.SessionID).
		Int64("total_time_ms", session.TotalTime).
		Int("words_read", session.WordsRead).
		Msg("session ended")
	return session, true
}

func (c *Calculator) PauseTracking() bool {
	if c.active < 0 || c.state != domain.StateTracking {
		return false
	}
	c.state = domain.StatePaused
	return true
}

// ResumeTracking restarts the activity window so paused time is not
// credited as dwell.
func (c *Calculator) ResumeTracking() bool {
	if c.active < 0 || c.state != domain.StatePaused {
		return false
	}
	c.state = domain.StateTracking
	c.lastActivity = c.clock.Now()
	return true
}

func (c *Calculator) GetAnalytics() domain.Analytics {
	now := c.clock.Now()
	a := domain.Analytics{
		AverageReadingSpeed:     c.cfg.AverageReadingSpeed,
		ContentTypeDistribution: map[string]int64{},
		TimeOfDayPatterns:       map[string]int64{},
	}
	var speedSum float64
	speeds := 0
	var first int64
	for _, s := range c.sessions {
		if !s.Ended() {
			continue
		}
		if a.SessionCount == 0 || s.StartTime < first {
			first = s.StartTime
		}
		a.SessionCount++
		a.TotalReadingTime += s.TotalTime
		a.TotalWordsRead += s.WordsRead
		if s.ReadingSpeed > 0 {
			speedSum += s.ReadingSpeed
			speeds++
		}
		hour := clock.FromMillis(s.StartTime).In(c.cfg.Location).Hour()
		a.TimeOfDayPatterns[domain.TimeOfDay(hour)] += s.TotalTime
	}
	if a.SessionCount > 0 {
		a.AverageSessionDuration = float64(a.TotalReadingTime) / float64(a.SessionCount)
		days := math.Max(1, math.Ceil(float64(clock.Millis(now)-first)/float64(day.Milliseconds())))
		a.ReadingConsistency = float64(a.SessionCount) / days
	}
	if speeds > 0 {
		a.AverageReadingSpeed = speedSum / float64(speeds)
	}
	if c.totalWords > 0 {
		a.CompletionRate = float64(a.TotalWordsRead) / float64(c.totalWords) * 100
	}
	for elementID, spent := range c.dwell {
		kind, ok := c.types[elementID]
		if !ok {
			kind = contentdomain.TypeOther
		}
		a.ContentTypeDistribution[string(kind)] += spent.Milliseconds()
	}
	activity := c.DailyActivity()
	a.CurrentStreak = domain.CurrentStreak(activity, now.In(c.cfg.Location))
	a.LongestStreak = domain.LongestStreak(activity)
	return a
}

func (c *Calculator) DailyActivity() []domain.DailyActivity {
	return domain.RollUp(c.sessions, c.cfg.Location)
}

// Reset ends any active session and forgets all history and timing.
func (c *Calculator) Reset() {
	c.EndSession()
	c.clear()
	c.totalWords = 0
}

func (c *Calculator) CurrentSession() (domain.Session, bool) {
	if c.active < 0 {
		return domain.Session{}, false
	}
	return c.sessions[c.active], true
}

// Sessions returns the history in insertion order, the active session included.
func (c *Calculator) Sessions() []domain.Session {
	return append([]domain.Session(nil), c.sessions...)
}

func (c *Calculator) SessionByID(id string) (domain.Session, bool) {
	for _, s := range c.sessions {
		if s.SessionID == id {
			return s, true
		}
	}
	return domain.Session{}, false
}

func (c *Calculator) IsActivelyTracking() bool {
	return c.active >= 0 && c.state == domain.StateTracking
}

func (c *Calculator) State() domain.State { return c.state }

func (c *Calculator) TimeSpent(elementID string) time.Duration {
	return c.dwell[elementID]
}

// LoadSessions restores persisted history ahead of the current session.
// Invalid entries and known ids are skipped. A stored session that never
// ended was interrupted; it is closed at its start with no active time.
func (c *Calculator) LoadSessions(history []domain.Session) int {
	known := make(map[string]bool, len(c.sessions))
	for _, s := range c.sessions {
		known[s.SessionID] = true
	}
	restored := make([]domain.Session, 0, len(history))
	for _, s := range history {
		if known[s.SessionID] {
			continue
		}
		if err := s.Validate(); err != nil {
			c.log.Debug().Err(err).Msg("skip stored session")
			continue
		}
		if !s.Ended() {
			s.EndTime = s.StartTime
			s.TotalTime = 0
		}
		known[s.SessionID] = true
		restored = append(restored, s)
	}
	if len(restored) == 0 {
		return 0
	}
	if c.active >= 0 {
		c.active += len(restored)
	}
	c.sessions = append(restored, c.sessions...)
	return len(restored)
}

func (c *Calculator) activeTime(now time.Time) time.Duration {
	wall := now.Sub(c.startedAt)
	if wall <= 0 {
		return 0
	}
	return time.Duration(math.Round(float64(wall.Milliseconds())*c.cfg.ActivityFactor)) * time.Millisecond
}

func speed(words int, active time.Duration) float64 {
	if active <= 0 {
		return 0
	}
	return math.Round(float64(words) / active.Minutes())
}

func minutesToMillis(minutes float64) int64 {
	if minutes <= 0 || math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return 0
	}
	return int64(math.Round(minutes * float64(time.Minute/time.Millisecond)))
}
