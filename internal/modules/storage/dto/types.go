package dto

type UsageOutput struct {
	Used       int64
	Total      int64
	Percentage float64
	Documents  []DocumentUsage
}

type DocumentUsage struct {
	DocumentID string
	Bytes      int64
}

type DocumentOutput struct {
	DocumentID  string
	Progress    float64
	HasProgress bool
	WordsRead   int
	TotalWords  int
	RemainingMs int64
	Chapter     string
	Bookmarks   int
	Sessions    int
	LastUpdated int64
}

type BookmarkOutput struct {
	ID         string
	Title      string
	Percentage float64
	Chapter    string
	Tags       []string
	Auto       bool
	CreatedAt  int64
}

type ImportInput struct {
	Data []byte
}

type ImportOutput struct {
	Written int
}

// ClearInput clears one document, or everything when DocumentID is empty.
type ClearInput struct {
	DocumentID string
}
