package in

import (
	"context"

	"docgrind/internal/modules/tracking/dto"
	trackingin "docgrind/internal/modules/tracking/port/in"
)

type CLIHandler struct {
	usecase trackingin.Usecase
}

func NewCLIHandler(usecase trackingin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

// Open scans the document and restores what was stored for it. It returns
// the number of tracked elements.
func (h CLIHandler) Open(ctx context.Context) (int, error) {
	n := h.usecase.Initialize()
	return n, h.usecase.Load(ctx)
}

// Scrolled tells the tracker the viewport moved.
func (h CLIHandler) Scrolled() {
	h.usecase.HandleScroll()
}

func (h CLIHandler) Save(ctx context.Context) error {
	return h.usecase.Save(ctx)
}

func (h CLIHandler) Status() dto.StatusOutput {
	return h.usecase.Status()
}

func (h CLIHandler) Bookmarks() []dto.BookmarkOutput {
	return h.usecase.Bookmarks()
}

func (h CLIHandler) Sessions() []dto.SessionOutput {
	return h.usecase.Sessions()
}

func (h CLIHandler) AddBookmark(title, description string, tags []string) (dto.BookmarkOutput, error) {
	b, err := h.usecase.CreateBookmark(dto.CreateBookmarkInput{Title: title, Description: description, Tags: tags})
	if err != nil {
		return dto.BookmarkOutput{}, err
	}
	return dto.BookmarkOutput{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		Percentage:  b.Position.ScrollPercentage,
		Chapter:     b.Position.CurrentChapter,
		Tags:        b.Tags,
		Auto:        b.IsAuto(),
		CreatedAt:   b.CreatedAt,
	}, nil
}

func (h CLIHandler) RemoveBookmark(id string) bool {
	return h.usecase.DeleteBookmark(id)
}

func (h CLIHandler) Start() (string, error) {
	session, err := h.usecase.StartTracking()
	return session.SessionID, err
}

func (h CLIHandler) Stop(ctx context.Context) (dto.SessionOutput, error) {
	s, err := h.usecase.StopTracking(ctx)
	return dto.SessionOutput{
		SessionID:  s.SessionID,
		StartTime:  s.StartTime,
		TotalTime:  s.TotalTime,
		WordsRead:  s.WordsRead,
		Speed:      s.ReadingSpeed,
		Completion: s.CompletionPercentage,
	}, err
}

func (h CLIHandler) Close(ctx context.Context) error {
	return h.usecase.Destroy(ctx)
}
