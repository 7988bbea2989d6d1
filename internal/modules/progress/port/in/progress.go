package in

import (
	"time"

	contentdomain "docgrind/internal/modules/content/domain"
	positiondomain "docgrind/internal/modules/position/domain"
	"docgrind/internal/modules/progress/domain"
)

// Calculator owns the session state machine of one document.
type Calculator interface {
	StartSession() (domain.Session, error)
	UpdateActivity(visible []contentdomain.ContentElement) bool
	UpdateProgress(elements []contentdomain.ContentElement, pos positiondomain.ReadingPosition) domain.Progress
	EndSession() (domain.Session, bool)
	PauseTracking() bool
	ResumeTracking() bool
	GetAnalytics() domain.Analytics
	DailyActivity() []domain.DailyActivity
	Reset()
	CurrentSession() (domain.Session, bool)
	Sessions() []domain.Session
	SessionByID(id string) (domain.Session, bool)
	IsActivelyTracking() bool
	State() domain.State
	TimeSpent(elementID string) time.Duration
	LoadSessions(history []domain.Session) int
}
