package in

import (
	"context"

	"docgrind/internal/modules/storage/dto"
	storagein "docgrind/internal/modules/storage/port/in"
)

type CLIHandler struct {
	usecase storagein.Usecase
}

func NewCLIHandler(usecase storagein.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Usage(ctx context.Context) (dto.UsageOutput, error) {
	return h.usecase.Usage(ctx)
}

func (h CLIHandler) Documents(ctx context.Context) ([]dto.DocumentOutput, error) {
	return h.usecase.Documents(ctx)
}

func (h CLIHandler) Document(ctx context.Context, documentID string) (dto.DocumentOutput, error) {
	return h.usecase.Document(ctx, documentID)
}

func (h CLIHandler) Bookmarks(ctx context.Context, documentID string) ([]dto.BookmarkOutput, error) {
	return h.usecase.Bookmarks(ctx, documentID)
}

func (h CLIHandler) Export(ctx context.Context) ([]byte, error) {
	return h.usecase.Export(ctx)
}

func (h CLIHandler) Import(ctx context.Context, data []byte) (dto.ImportOutput, error) {
	return h.usecase.Import(ctx, dto.ImportInput{Data: data})
}

func (h CLIHandler) Clear(ctx context.Context, documentID string) error {
	return h.usecase.Clear(ctx, dto.ClearInput{DocumentID: documentID})
}
