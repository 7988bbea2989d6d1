package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	bookmarkdomain "docgrind/internal/modules/bookmark/domain"
	"docgrind/internal/modules/storage/dto"
	storagein "docgrind/internal/modules/storage/port/in"
	apperrors "docgrind/internal/platform/errors"
)

type Interactor struct {
	gateway storagein.Gateway
}

func NewInteractor(gateway storagein.Gateway) storagein.Usecase {
	return &Interactor{gateway: gateway}
}

func (i *Interactor) Usage(ctx context.Context) (dto.UsageOutput, error) {
	usage, err := i.gateway.Usage(ctx)
	if err != nil {
		return dto.UsageOutput{}, err
	}
	out := dto.UsageOutput{Used: usage.Used, Total: usage.Total, Percentage: usage.Percentage}
	for _, doc := range usage.DocumentsBySize() {
		out.Documents = append(out.Documents, dto.DocumentUsage{DocumentID: doc, Bytes: usage.Documents[doc]})
	}
	return out, nil
}

// Documents summarizes every stored document. Documents whose progress is
// missing or unreadable are still listed with HasProgress false.
func (i *Interactor) Documents(ctx context.Context) ([]dto.DocumentOutput, error) {
	docs, err := i.gateway.Documents(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DocumentOutput, 0, len(docs))
	for _, doc := range docs {
		item, err := i.summarize(ctx, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Document summarizes one document. It returns ErrNotFound when nothing is
// stored for it.
func (i *Interactor) Document(ctx context.Context, documentID string) (dto.DocumentOutput, error) {
	docs, err := i.gateway.Documents(ctx)
	if err != nil {
		return dto.DocumentOutput{}, err
	}
	if !slices.Contains(docs, documentID) {
		return dto.DocumentOutput{}, fmt.Errorf("document %s: %w", documentID, apperrors.ErrNotFound)
	}
	return i.summarize(ctx, documentID)
}

func (i *Interactor) summarize(ctx context.Context, doc string) (dto.DocumentOutput, error) {
	item := dto.DocumentOutput{DocumentID: doc}
	progress, err := i.gateway.LoadProgress(ctx, doc)
	switch {
	case err == nil:
		item.HasProgress = true
		item.Progress = progress.ProgressPercentage
		item.WordsRead = progress.WordsRead
		item.TotalWords = progress.TotalWords
		item.RemainingMs = progress.EstimatedRemainingTime
		item.Chapter = progress.CurrentPosition.CurrentChapter
		item.LastUpdated = progress.LastUpdated
	case !errors.Is(err, apperrors.ErrNotFound):
		return dto.DocumentOutput{}, fmt.Errorf("summarize %s: %w", doc, err)
	}
	if sessions, err := i.gateway.LoadSessions(ctx, doc); err == nil {
		item.Sessions = len(sessions)
	}
	if bookmarks, err := i.gateway.LoadBookmarks(ctx, doc); err == nil {
		item.Bookmarks = len(bookmarks)
	}
	return item, nil
}

// Bookmarks lists the stored bookmarks of a document, oldest first.
func (i *Interactor) Bookmarks(ctx context.Context, documentID string) ([]dto.BookmarkOutput, error) {
	bookmarks, err := i.gateway.LoadBookmarks(ctx, documentID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(bookmarks, func(a, b bookmarkdomain.Bookmark) int {
		return cmp.Compare(a.CreatedAt, b.CreatedAt)
	})
	out := make([]dto.BookmarkOutput, 0, len(bookmarks))
	for _, b := range bookmarks {
		out = append(out, dto.BookmarkOutput{
			ID:         b.ID,
			Title:      b.Title,
			Percentage: b.Position.ScrollPercentage,
			Chapter:    b.Position.CurrentChapter,
			Tags:       b.Tags,
			Auto:       b.IsAuto(),
			CreatedAt:  b.CreatedAt,
		})
	}
	return out, nil
}

func (i *Interactor) Export(ctx context.Context) ([]byte, error) {
	return i.gateway.ExportData(ctx)
}

func (i *Interactor) Import(ctx context.Context, input dto.ImportInput) (dto.ImportOutput, error) {
	written, err := i.gateway.ImportData(ctx, input.Data)
	return dto.ImportOutput{Written: written}, err
}

func (i *Interactor) Clear(ctx context.Context, input dto.ClearInput) error {
	if input.DocumentID == "" {
		return i.gateway.ClearAllData(ctx)
	}
	return i.gateway.ClearDocument(ctx, input.DocumentID)
}
