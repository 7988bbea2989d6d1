package dto

type StatusOutput struct {
	DocumentID      string
	Progress        float64
	WordsRead       int
	TotalWords      int
	SessionWords    int
	Chapter         string
	RemainingMs     int64
	TotalMs         int64
	Confidence      float64
	Speed           float64
	Trend           string
	Sessions        int
	Bookmarks       int
	Tracking        bool
	CanResume       bool
	Recommendations []string
}

type BookmarkOutput struct {
	ID          string
	Title       string
	Description string
	Percentage  float64
	Chapter     string
	Tags        []string
	Auto        bool
	CreatedAt   int64
}

type CreateBookmarkInput struct {
	Title       string
	Description string
	Tags        []string
}

type SessionOutput struct {
	SessionID  string
	StartTime  int64
	TotalTime  int64
	WordsRead  int
	Speed      float64
	Completion float64
	Active     bool
}
