package domain

import (
	bookmarkdomain "docgrind/internal/modules/bookmark/domain"
	estimatordomain "docgrind/internal/modules/estimator/domain"
	positiondomain "docgrind/internal/modules/position/domain"
	progressdomain "docgrind/internal/modules/progress/domain"
)

// Snapshot is a copy of everything a host renders for one open document.
// Nil pointers mean nothing is known yet.
type Snapshot struct {
	DocumentID      string
	Loaded          bool
	Tracking        bool
	ActivelyReading bool
	Visible         bool
	Focused         bool
	State           progressdomain.State
	Position        *positiondomain.ReadingPosition
	Progress        *progressdomain.Progress
	Session         *progressdomain.Session
	Sessions        []progressdomain.Session
	Bookmarks       []bookmarkdomain.Bookmark
	Analytics       progressdomain.Analytics
	Estimate        estimatordomain.Estimate
	Speed           estimatordomain.SpeedMetrics
	Chapter         string
	LastError       string
}

func (s Snapshot) CanResume() bool { return s.Position != nil }

func (s Snapshot) ProgressPercentage() float64 {
	if s.Progress == nil {
		return 0
	}
	return s.Progress.ProgressPercentage
}

// SessionWords is the visibility-gated count of the running session.
func (s Snapshot) SessionWords() int {
	if s.Session == nil {
		return 0
	}
	return s.Session.WordsRead
}
