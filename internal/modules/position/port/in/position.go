package in

import (
	contentdomain "docgrind/internal/modules/content/domain"
	"docgrind/internal/modules/position/domain"
)

type Tracker interface {
	Initialize(containerSelector string, contentSelectors []string) int
	HandleIntersection(entries []domain.IntersectionEntry)
	HandleResize(entries []domain.ResizeEntry)
	HandleScroll()
	Refresh()
	Elements() []contentdomain.ContentElement
	VisibleElements() []contentdomain.ContentElement
	CurrentElementID() string
	CurrentChapter() string
	CurrentPosition() domain.ReadingPosition
	ScrollToPosition(pos domain.ReadingPosition) error
	ScrollToElement(id string) error
	SetSessionID(sessionID string)
	SetCallbacks(cb domain.Callbacks)
	DocumentID() string
	Degraded() bool
	Destroy()
}
