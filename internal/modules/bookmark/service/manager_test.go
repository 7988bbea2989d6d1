package service_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgrind/internal/modules/bookmark/domain"
	"docgrind/internal/modules/bookmark/service"
	contentdomain "docgrind/internal/modules/content/domain"
	positiondomain "docgrind/internal/modules/position/domain"
	"docgrind/internal/platform/clock"
	apperrors "docgrind/internal/platform/errors"
	"docgrind/internal/platform/logging"
)

type seqIDs struct{ n int }

func (s *seqIDs) New() string {
	s.n++
	return fmt.Sprintf("bookmark-%d", s.n)
}

var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newManager() (*service.Manager, *clock.Manual, *[][]domain.Bookmark) {
	clk := clock.NewManual(start)
	m := service.NewManager("guide", clk, &seqIDs{}, logging.Nop())
	var changes [][]domain.Bookmark
	m.OnChange(func(all []domain.Bookmark) { changes = append(changes, all) })
	return m, clk, &changes
}

func at(pct float64) positiondomain.ReadingPosition {
	return positiondomain.ReadingPosition{DocumentID: "guide", ScrollPercentage: pct, ScrollTop: pct * 10, SessionID: "session-1"}
}

func TestCreateBookmarkCopiesPositionAndNormalizesTags(t *testing.T) {
	t.Parallel()
	m, _, changes := newManager()
	pos := at(40)
	b, err := m.CreateBookmark(pos, "  Setup ", " the install part ", []string{" Go ", "go", "", "ÉTUDE"}, "")
	require.NoError(t, err)
	pos.ScrollPercentage = 90

	assert.Equal(t, "bookmark-1", b.ID)
	assert.Equal(t, "Setup", b.Title)
	assert.Equal(t, "the install part", b.Description)
	assert.Equal(t, []string{"go", "étude"}, b.Tags)
	assert.Equal(t, 40.0, b.Position.ScrollPercentage)
	assert.Equal(t, clock.Millis(start), b.CreatedAt)
	require.Len(t, *changes, 1)

	stored, ok := m.GetBookmark(b.ID)
	require.True(t, ok)
	assert.Equal(t, 40.0, stored.Position.ScrollPercentage)

	_, err = m.CreateBookmark(pos, "  ", "", nil, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Len(t, *changes, 1)
}

func TestQueriesAndOrdering(t *testing.T) {
	t.Parallel()
	m, clk, _ := newManager()
	first, _ := m.CreateBookmark(at(10), "Intro", "", []string{"basics"}, "")
	clk.Advance(time.Second)
	second, _ := m.CreateBookmark(at(55), "Closures", "Functions capturing STATE", nil, "")
	clk.Advance(time.Second)
	third, _ := m.CreateBookmark(at(80), "Errors", "", []string{"Review"}, "wrap with %w")

	all := m.GetAllBookmarks()
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, ids(all))
	assert.Equal(t, []string{third.ID}, ids(m.GetBookmarksByTag("REVIEW")))
	assert.Equal(t, []string{second.ID, first.ID}, ids(m.GetBookmarksByRange(10, 55)))
	assert.Equal(t, []string{second.ID}, ids(m.SearchBookmarks("state")))
	assert.Equal(t, []string{third.ID}, ids(m.SearchBookmarks("WRAP")))
	assert.Equal(t, []string{first.ID}, ids(m.SearchBookmarks("basic")))

	closest, ok := m.GetClosestBookmark(at(60))
	require.True(t, ok)
	assert.Equal(t, second.ID, closest.ID)
}

func TestClosestBookmarkOnEmptySet(t *testing.T) {
	t.Parallel()
	m, _, _ := newManager()
	_, ok := m.GetClosestBookmark(at(50))
	assert.False(t, ok)
}

func TestUpdateDeleteAndAccess(t *testing.T) {
	t.Parallel()
	m, clk, changes := newManager()
	b, _ := m.CreateBookmark(at(20), "Draft", "", []string{"a", "b"}, "")

	_, ok := m.UpdateBookmark("missing", domain.Update{})
	assert.False(t, ok)

	title := "Final"
	updated, ok := m.UpdateBookmark(b.ID, domain.Update{Title: &title, Tags: []string{"C"}})
	require.True(t, ok)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, []string{"c"}, updated.Tags)

	kept, _ := m.UpdateBookmark(b.ID, domain.Update{})
	assert.Equal(t, []string{"c"}, kept.Tags)

	cleared, _ := m.UpdateBookmark(b.ID, domain.Update{Tags: []string{}})
	assert.Empty(t, cleared.Tags)

	clk.Advance(time.Minute)
	accessed, ok := m.AccessBookmark(b.ID)
	require.True(t, ok)
	assert.Equal(t, clock.Millis(start.Add(time.Minute)), accessed.LastAccessed)
	assert.Equal(t, b.ID, m.Stats().MostUsed.ID)

	assert.True(t, m.DeleteBookmark(b.ID))
	assert.False(t, m.DeleteBookmark(b.ID))
	assert.Len(t, *changes, 6)
	assert.Empty(t, (*changes)[5])
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()
	src, clk, _ := newManager()
	src.CreateBookmark(at(10), "One", "first", []string{"x"}, "n1")
	clk.Advance(time.Second)
	src.CreateBookmark(at(70), "Two", "", nil, "")
	exported := src.ExportBookmarks()

	dst, _, changes := newManager()
	assert.Equal(t, 2, dst.ImportBookmarks(exported))
	assert.Equal(t, exported, dst.ExportBookmarks())
	assert.Len(t, *changes, 1)
}

func TestImportRenamesCollisionsAndSkipsInvalid(t *testing.T) {
	t.Parallel()
	m, _, _ := newManager()
	existing, _ := m.CreateBookmark(at(10), "Existing", "", nil, "")

	incoming := []domain.Bookmark{
		{ID: existing.ID, DocumentID: "guide", Title: "Clash", Position: at(20), CreatedAt: 5},
		{ID: existing.ID, DocumentID: "guide", Title: "Clash again", Position: at(30), CreatedAt: 6},
		{ID: "bad", DocumentID: "guide", Title: "Out of range", Position: at(140), CreatedAt: 7},
		{ID: "untitled", DocumentID: "guide", Position: at(40), CreatedAt: 8},
	}
	assert.Equal(t, 2, m.ImportBookmarks(incoming))

	_, ok := m.GetBookmark(existing.ID + "-1")
	assert.True(t, ok)
	again, ok := m.GetBookmark(existing.ID + "-2")
	require.True(t, ok)
	assert.Equal(t, "Clash again", again.Title)
	original, _ := m.GetBookmark(existing.ID)
	assert.Equal(t, "Existing", original.Title)
	assert.Zero(t, m.ImportBookmarks(incoming[2:]))
}

func TestMilestoneAutoBookmarkIsIdempotent(t *testing.T) {
	t.Parallel()
	m, clk, _ := newManager()
	for _, pct := range []float64{49.4, 50, 50.6, 49.2} {
		m.CreateAutoBookmark(at(pct), nil, 0)
		clk.Advance(time.Second)
	}
	auto := m.GetBookmarksByTag(domain.AutoTag)
	require.Len(t, auto, 1)
	assert.Equal(t, "49% Complete", auto[0].Title)
	assert.Equal(t, "Auto-bookmark: 49% progress milestone", auto[0].Description)

	assert.False(t, m.ShouldCreateAutoBookmark(at(48), nil, 0), "not close enough to a milestone")

	m.CreateBookmark(at(73), "Manual", "", nil, "")
	assert.False(t, m.ShouldCreateAutoBookmark(at(75), nil, 0), "manual bookmark within 5% of 75")
	assert.True(t, m.ShouldCreateAutoBookmark(at(99.5), nil, 0))
}

func TestHeadingDwellAutoBookmark(t *testing.T) {
	t.Parallel()
	m, _, _ := newManager()
	heading := contentdomain.New("h", "h2", "A heading that goes on for quite a while past the fifty rune mark", 0, 40, 200)
	para := contentdomain.New("p", "p", "text", 0, 40, 200)

	assert.False(t, m.ShouldCreateAutoBookmark(at(10), &heading, 30*time.Second))
	assert.False(t, m.ShouldCreateAutoBookmark(at(10), &para, time.Hour))

	b, ok := m.CreateAutoBookmark(at(10), &heading, 31*time.Second)
	require.True(t, ok)
	assert.Equal(t, "A heading that goes on for quite a while past the", b.Title)
	assert.Equal(t, []string{domain.AutoTag}, b.Tags)

	_, ok = m.CreateAutoBookmark(at(12), &heading, time.Minute)
	assert.False(t, ok, "one dwell bookmark per heading")
}

func TestCreateBookmarkAtPositionTitles(t *testing.T) {
	t.Parallel()
	m, _, _ := newManager()
	pos := at(33.3)
	b, err := m.CreateBookmarkAtPosition(pos, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "Bookmark at 33%", b.Title)

	pos.CurrentChapter = "Closures"
	b, _ = m.CreateBookmarkAtPosition(pos, nil, "")
	assert.Equal(t, "Closures (33%)", b.Title)

	para := contentdomain.New("p", "p", "Some paragraph text", 0, 40, 200)
	b, _ = m.CreateBookmarkAtPosition(pos, &para, "Mine")
	assert.Equal(t, "Mine", b.Title)
	assert.Equal(t, "Some paragraph text", b.Description)
}

func TestLoadClearAndStats(t *testing.T) {
	t.Parallel()
	m, clk, changes := newManager()
	m.CreateBookmark(at(20), "A", "", []string{"x"}, "")
	clk.Advance(time.Second)
	m.CreateAutoBookmark(at(50), nil, 0)

	stats := m.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Auto)
	assert.Equal(t, map[string]int{"x": 1, domain.AutoTag: 1}, stats.ByTag)
	assert.InDelta(t, 35.0, stats.AveragePosition, 1e-9)
	assert.Equal(t, "A", stats.Oldest.Title)
	assert.Equal(t, "50% Complete", stats.Newest.Title)
	assert.Nil(t, stats.MostUsed)

	saved := m.ExportBookmarks()
	m.ClearAllBookmarks()
	assert.Empty(t, m.GetAllBookmarks())
	n := len(*changes)
	m.ClearAllBookmarks()
	assert.Len(t, *changes, n, "clearing an empty set is silent")

	assert.Equal(t, 2, m.LoadBookmarks(append(saved, domain.Bookmark{ID: "broken"})))
	assert.Equal(t, saved, m.GetAllBookmarks())
	assert.Equal(t, domain.Stats{ByTag: map[string]int{}}, service.NewManager("x", clk, nil, logging.Nop()).Stats())
}

func ids(list []domain.Bookmark) []string {
	out := make([]string, 0, len(list))
	for _, b := range list {
		out = append(out, b.ID)
	}
	return out
}
