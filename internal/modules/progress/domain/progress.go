package domain

import (
	"fmt"

	bookmarkdomain "docgrind/internal/modules/bookmark/domain"
	contentdomain "docgrind/internal/modules/content/domain"
	positiondomain "docgrind/internal/modules/position/domain"
	apperrors "docgrind/internal/platform/errors"
)

type State string

const (
	StateIdle     State = "idle"
	StateTracking State = "tracking"
	StatePaused   State = "paused"
	StateEnded    State = "ended"
)

// Session is one continuous tracking interval. Times are epoch ms and
// TotalTime is the discounted active time, never the raw wall duration.
// WordsRead only counts elements that became significantly visible.
type Session struct {
	SessionID            string  `json:"sessionId"`
	DocumentID           string  `json:"documentId"`
	StartTime            int64   `json:"startTime"`
	EndTime              int64   `json:"endTime,omitempty"`
	TotalTime            int64   `json:"totalTime"`
	WordsRead            int     `json:"wordsRead"`
	CharactersRead       int     `json:"charactersRead"`
	ReadingSpeed         float64 `json:"readingSpeed"`
	CompletionPercentage float64 `json:"completionPercentage"`
}

func (s Session) Ended() bool { return s.EndTime > 0 }

func (s Session) Validate() error {
	switch {
	case s.SessionID == "":
		return fmt.Errorf("session id is required: %w", apperrors.ErrInvalidInput)
	case s.StartTime <= 0:
		return fmt.Errorf("session %s: start time is required: %w", s.SessionID, apperrors.ErrInvalidInput)
	case s.Ended() && s.EndTime < s.StartTime:
		return fmt.Errorf("session %s: ends before it starts: %w", s.SessionID, apperrors.ErrInvalidInput)
	case s.ReadingSpeed < 0 || s.WordsRead < 0 || s.TotalTime < 0:
		return fmt.Errorf("session %s: negative totals: %w", s.SessionID, apperrors.ErrInvalidInput)
	case s.Ended() && s.TotalTime > s.EndTime-s.StartTime:
		return fmt.Errorf("session %s: active time exceeds duration: %w", s.SessionID, apperrors.ErrInvalidInput)
	}
	return nil
}

// Progress is the computed view of a document. It is rebuilt on every
// position update. WordsRead here is the geometric measure: words in the
// part of the page that has scrolled past, whether or not it was ever seen.
type Progress struct {
	DocumentID             string                         `json:"documentId"`
	ProgressPercentage     float64                        `json:"progressPercentage"`
	CurrentPosition        positiondomain.ReadingPosition `json:"currentPosition"`
	Sessions               []Session                      `json:"sessions"`
	Elements               []contentdomain.ContentElement `json:"elements"`
	Bookmarks              []bookmarkdomain.Bookmark      `json:"bookmarks"`
	EstimatedTotalTime     int64                          `json:"estimatedTotalTime"`
	EstimatedRemainingTime int64                          `json:"estimatedRemainingTime"`
	AverageReadingSpeed    float64                        `json:"averageReadingSpeed"`
	TotalWords             int                            `json:"totalWords"`
	WordsRead              int                            `json:"wordsRead"`
	LastUpdated            int64                          `json:"lastUpdated"`
}

// Analytics aggregates completed sessions. Durations are ms.
type Analytics struct {
	TotalReadingTime        int64            `json:"totalReadingTime"`
	SessionCount            int              `json:"sessionCount"`
	AverageSessionDuration  float64          `json:"averageSessionDuration"`
	TotalWordsRead          int              `json:"totalWordsRead"`
	AverageReadingSpeed     float64          `json:"averageReadingSpeed"`
	ReadingConsistency      float64          `json:"readingConsistency"`
	CompletionRate          float64          `json:"completionRate"`
	ContentTypeDistribution map[string]int64 `json:"contentTypeDistribution"`
	TimeOfDayPatterns       map[string]int64 `json:"timeOfDayPatterns"`
	CurrentStreak           int              `json:"currentStreak"`
	LongestStreak           int              `json:"longestStreak"`
}
