package in

import (
	"time"

	"docgrind/internal/modules/bookmark/domain"
	contentdomain "docgrind/internal/modules/content/domain"
	positiondomain "docgrind/internal/modules/position/domain"
)

type Manager interface {
	OnChange(fn func([]domain.Bookmark))
	CreateBookmark(pos positiondomain.ReadingPosition, title, description string, tags []string, notes string) (domain.Bookmark, error)
	CreateBookmarkAtPosition(pos positiondomain.ReadingPosition, el *contentdomain.ContentElement, title string) (domain.Bookmark, error)
	UpdateBookmark(id string, update domain.Update) (domain.Bookmark, bool)
	DeleteBookmark(id string) bool
	AccessBookmark(id string) (domain.Bookmark, bool)
	GetBookmark(id string) (domain.Bookmark, bool)
	GetAllBookmarks() []domain.Bookmark
	GetBookmarksByTag(tag string) []domain.Bookmark
	GetBookmarksByRange(startPct, endPct float64) []domain.Bookmark
	SearchBookmarks(query string) []domain.Bookmark
	GetClosestBookmark(pos positiondomain.ReadingPosition) (domain.Bookmark, bool)
	ShouldCreateAutoBookmark(pos positiondomain.ReadingPosition, el *contentdomain.ContentElement, timeSpent time.Duration) bool
	CreateAutoBookmark(pos positiondomain.ReadingPosition, el *contentdomain.ContentElement, timeSpent time.Duration) (domain.Bookmark, bool)
	ImportBookmarks(list []domain.Bookmark) int
	ExportBookmarks() []domain.Bookmark
	LoadBookmarks(list []domain.Bookmark) int
	ClearAllBookmarks()
	Stats() domain.Stats
}
