package in

import (
	"context"

	bookmarkdomain "docgrind/internal/modules/bookmark/domain"
	positiondomain "docgrind/internal/modules/position/domain"
	progressdomain "docgrind/internal/modules/progress/domain"
	"docgrind/internal/modules/tracking/domain"
	"docgrind/internal/modules/tracking/dto"
	"docgrind/internal/platform/announce"
)

// Usecase drives reading progress for one open document. Every method is
// serialized with the tracker's timers and is safe to call from any goroutine.
type Usecase interface {
	Initialize() int
	Load(ctx context.Context) error
	StartTracking() (progressdomain.Session, error)
	StopTracking(ctx context.Context) (progressdomain.Session, error)
	PauseTracking() bool
	ResumeTracking() bool
	ResumeReading() error
	JumpToPosition(pos positiondomain.ReadingPosition) error
	JumpToElement(elementID string) error
	JumpToBookmark(bookmarkID string) error
	NextChapter() error
	PreviousChapter() error
	CreateBookmark(input dto.CreateBookmarkInput) (bookmarkdomain.Bookmark, error)
	DeleteBookmark(bookmarkID string) bool
	Save(ctx context.Context) error
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, raw []byte) (int, error)
	Reset(ctx context.Context) error
	HandleScroll()
	HandleIntersection(entries []positiondomain.IntersectionEntry)
	HandleResize(entries []positiondomain.ResizeEntry)
	Refresh()
	SetPageVisible(visible bool)
	SetFocused(focused bool)
	RecordActivity()
	HandleShortcut(code string, alt bool) (announce.Command, bool)
	Snapshot() domain.Snapshot
	Status() dto.StatusOutput
	Bookmarks() []dto.BookmarkOutput
	Sessions() []dto.SessionOutput
	Destroy(ctx context.Context) error
}
