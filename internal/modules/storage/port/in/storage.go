package in

import (
	"context"

	bookmarkdomain "docgrind/internal/modules/bookmark/domain"
	positiondomain "docgrind/internal/modules/position/domain"
	progressdomain "docgrind/internal/modules/progress/domain"
	"docgrind/internal/modules/storage/domain"
	"docgrind/internal/modules/storage/dto"
)

// Gateway persists the state of documents. Missing data is reported with
// apperrors.ErrNotFound for single values and as an empty list otherwise.
type Gateway interface {
	SaveProgress(ctx context.Context, progress progressdomain.Progress) error
	LoadProgress(ctx context.Context, documentID string) (progressdomain.Progress, error)
	SavePosition(ctx context.Context, pos positiondomain.ReadingPosition) error
	LoadPosition(ctx context.Context, documentID string) (positiondomain.ReadingPosition, error)
	SaveSessions(ctx context.Context, documentID string, sessions []progressdomain.Session) error
	LoadSessions(ctx context.Context, documentID string) ([]progressdomain.Session, error)
	SaveBookmarks(ctx context.Context, documentID string, bookmarks []bookmarkdomain.Bookmark) error
	LoadBookmarks(ctx context.Context, documentID string) ([]bookmarkdomain.Bookmark, error)
	ExportData(ctx context.Context) ([]byte, error)
	ImportData(ctx context.Context, raw []byte) (int, error)
	ClearDocument(ctx context.Context, documentID string) error
	ClearAllData(ctx context.Context) error
	Documents(ctx context.Context) ([]string, error)
	Usage(ctx context.Context) (domain.Usage, error)
}

// Usecase backs the storage commands of the CLI.
type Usecase interface {
	Usage(ctx context.Context) (dto.UsageOutput, error)
	Documents(ctx context.Context) ([]dto.DocumentOutput, error)
	Document(ctx context.Context, documentID string) (dto.DocumentOutput, error)
	Bookmarks(ctx context.Context, documentID string) ([]dto.BookmarkOutput, error)
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, input dto.ImportInput) (dto.ImportOutput, error)
	Clear(ctx context.Context, input dto.ClearInput) error
}
