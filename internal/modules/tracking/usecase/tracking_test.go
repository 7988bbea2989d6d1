package usecase_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookmarkservice "docgrind/internal/modules/bookmark/service"
	estimatorservice "docgrind/internal/modules/estimator/service"
	positiondomain "docgrind/internal/modules/position/domain"
	positionout "docgrind/internal/modules/position/port/out"
	positionservice "docgrind/internal/modules/position/service"
	progressdomain "docgrind/internal/modules/progress/domain"
	progressservice "docgrind/internal/modules/progress/service"
	storageout "docgrind/internal/modules/storage/adapter/out"
	storageservice "docgrind/internal/modules/storage/service"
	"docgrind/internal/modules/tracking/dto"
	trackingin "docgrind/internal/modules/tracking/port/in"
	"docgrind/internal/modules/tracking/usecase"
	"docgrind/internal/platform/announce"
	"docgrind/internal/platform/clock"
	apperrors "docgrind/internal/platform/errors"
	"docgrind/internal/platform/id"
	"docgrind/internal/platform/logging"
	"docgrind/internal/platform/loop"
	"docgrind/internal/platform/report"
	"docgrind/internal/platform/retry"
)

var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

const headingText = "one two three four five six seven eight nine ten"

type node struct {
	id     string
	tag    string
	text   string
	top    float64
	height float64
}

func (n *node) ID() string         { return n.id }
func (n *node) SetID(id string)    { n.id = id }
func (n *node) Tag() string        { return n.tag }
func (n *node) Text() string       { return n.text }
func (n *node) OffsetTop() float64 { return n.top }
func (n *node) Height() float64    { return n.height }

type document struct {
	nodes []*node
}

func (d *document) Query(string, []string) ([]positionout.Node, error) {
	out := make([]positionout.Node, 0, len(d.nodes))
	for _, n := range d.nodes {
		out = append(out, n)
	}
	return out, nil
}

func (d *document) FindByID(id string) (positionout.Node, bool) {
	for _, n := range d.nodes {
		if n.id == id {
			return n, true
		}
	}
	return nil, false
}

type viewport struct {
	top       float64
	height    float64
	docHeight float64
}

func (v *viewport) ScrollTop() float64      { return v.top }
func (v *viewport) Height() float64         { return v.height }
func (v *viewport) DocumentHeight() float64 { return v.docHeight }
func (v *viewport) ScrollTo(top float64)    { v.top = top }

type observer struct{}

func (observer) Observe(positionout.Node) {}
func (observer) Unobserve(string)         {}
func (observer) Disconnect()              {}

func observers([]float64, func([]positiondomain.IntersectionEntry)) (positionout.IntersectionObserver, error) {
	return observer{}, nil
}

type seqIDs struct {
	prefix string
	n      int
}

func (s *seqIDs) New() string {
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}

type harness struct {
	uc        trackingin.Usecase
	clock     *clock.Manual
	viewport  *viewport
	store     *storageout.MemoryKVStore
	gateway   *storageservice.Manager
	announced *[]string
}

// newHarness opens a three element document: a 10 word heading over 0-100,
// 190 words over 100-500 and 200 words over 500-900 in a 1300px page seen
// through a 400px viewport.
func newHarness(store *storageout.MemoryKVStore, startAt time.Time, name string) harness {
	clk := clock.NewManual(startAt)
	lp := &loop.Serial{}
	log := logging.Nop()
	doc := &document{nodes: []*node{
		{id: "h", tag: "h1", text: headingText, top: 0, height: 100},
		{id: "p1", tag: "p", text: strings.Repeat("word ", 190), top: 100, height: 400},
		{id: "p2", tag: "p", text: strings.Repeat("more ", 200), top: 500, height: 400},
	}}
	vp := &viewport{height: 400, docHeight: 1300}
	reports := report.NewHandler(clk, id.RandomHex{}, log)
	gateway := storageservice.NewManager(storageservice.Config{Retry: retry.Policy{Sleep: func(context.Context, time.Duration) error { return nil }}}, store, clk, reports, log)
	var announced []string
	ann := announce.NewAnnouncer(clk, announce.SinkFunc(func(a announce.Announcement) {
		announced = append(announced, a.Message)
	}), announce.DefaultPreferences())

	uc := usecase.NewInteractor(usecase.Options{AutoSaveInterval: 5 * time.Second, EnableBookmarks: true}, usecase.Deps{
		Tracker:    positionservice.NewTracker(positionservice.Config{DocumentID: "guide", Thresholds: []float64{0, 0.5, 1}}, doc, vp, observers, clk, clk, lp, log),
		Calculator: progressservice.NewCalculator(progressservice.Config{DocumentID: "guide"}, clk, &seqIDs{prefix: "session-" + name}, log),
		Bookmarks:  bookmarkservice.NewManager("guide", clk, &seqIDs{prefix: "bookmark-" + name}, log),
		Storage:    gateway,
		Estimator:  estimatorservice.NewEstimator(clk, log),
		Announcer:  ann,
		Reports:    reports,
		Clock:      clk,
		Scheduler:  clk,
		Loop:       lp,
		Log:        log,
	})
	return harness{uc: uc, clock: clk, viewport: vp, store: store, gateway: gateway, announced: &announced}
}

func allVisible() []positiondomain.IntersectionEntry {
	return []positiondomain.IntersectionEntry{
		{ID: "h", Ratio: 1, IsIntersecting: true},
		{ID: "p1", Ratio: 1, IsIntersecting: true},
		{ID: "p2", Ratio: 1, IsIntersecting: true},
	}
}

// readHalf starts a session, shows every element fully and leaves the
// viewport past the heading and the first paragraph.
func readHalf(t *testing.T, h harness) {
	t.Helper()
	require.Equal(t, 3, h.uc.Initialize())
	_, err := h.uc.StartTracking()
	require.NoError(t, err)
	h.clock.Advance(2 * time.Second)
	h.viewport.top = 500
	h.uc.HandleIntersection(allVisible())
}

func TestEndToEndWordCounts(t *testing.T) {
	t.Parallel()
	h := newHarness(storageout.NewMemoryKVStore(), start, "a")
	readHalf(t, h)

	s := h.uc.Snapshot()
	require.NotNil(t, s.Progress)
	require.NotNil(t, s.Session)
	assert.Equal(t, 400, s.Session.WordsRead)
	assert.Equal(t, 200, s.Progress.WordsRead)
	assert.Equal(t, 400, s.Progress.TotalWords)
	assert.InDelta(t, 50.0, s.ProgressPercentage(), 1e-9)
	assert.Equal(t, headingText, s.Chapter)
	assert.Equal(t, "h", s.Position.CurrentElementID)
	assert.True(t, s.Tracking)
	assert.Contains(t, *h.announced, "Now reading: "+headingText)

	status := h.uc.Status()
	assert.Equal(t, 200, status.WordsRead)
	assert.Equal(t, 400, status.SessionWords)
	assert.Equal(t, 1, status.Sessions)
}

func TestBookmarkChangesAndAutoSavePersist(t *testing.T) {
	t.Parallel()
	h := newHarness(storageout.NewMemoryKVStore(), start, "a")
	ctx := context.Background()
	readHalf(t, h)

	b, err := h.uc.CreateBookmark(dto.CreateBookmarkInput{})
	require.NoError(t, err)
	assert.Equal(t, headingText, b.Title)
	assert.Contains(t, *h.announced, "Bookmark created: "+headingText)

	stored, err := h.gateway.LoadBookmarks(ctx, "guide")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	progress, err := h.gateway.LoadProgress(ctx, "guide")
	require.NoError(t, err)
	assert.InDelta(t, 50.0, progress.ProgressPercentage, 1e-9)
	assert.Len(t, progress.Bookmarks, 1)
	assert.Len(t, progress.Sessions, 1)

	writes := h.store.SetCalls()
	h.clock.Advance(5 * time.Second)
	assert.Greater(t, h.store.SetCalls(), writes, "auto-save wrote")
	assert.Equal(t, 1, h.clock.Pending(), "auto-save re-armed")

	session, err := h.uc.StopTracking(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4900), session.TotalTime)
	assert.Equal(t, 400, session.WordsRead)
	assert.Zero(t, h.clock.Pending())

	_, err = h.uc.StopTracking(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)

	assert.True(t, h.uc.DeleteBookmark(b.ID))
	stored, _ = h.gateway.LoadBookmarks(ctx, "guide")
	assert.Empty(t, stored)
}

func TestMilestoneBookmarksFollowTheScroll(t *testing.T) {
	t.Parallel()
	h := newHarness(storageout.NewMemoryKVStore(), start, "a")
	require.Equal(t, 3, h.uc.Initialize())
	_, err := h.uc.StartTracking()
	require.NoError(t, err)

	h.viewport.top = 450
	h.uc.HandleScroll()
	h.clock.Advance(time.Second)
	bookmarks := h.uc.Bookmarks()
	require.Len(t, bookmarks, 1, "created on the scroll that reached 50%")
	assert.Equal(t, "50% Complete", bookmarks[0].Title)
	assert.True(t, bookmarks[0].Auto)

	h.viewport.top = 900
	h.uc.HandleScroll()
	h.clock.Advance(time.Second)
	titles := []string{}
	for _, b := range h.uc.Bookmarks() {
		titles = append(titles, b.Title)
	}
	assert.ElementsMatch(t, []string{"50% Complete", "100% Complete"}, titles)
	assert.Contains(t, *h.announced, "Bookmark created: 100% Complete")

	for _, top := range []float64{899, 900, 899} {
		h.viewport.top = top
		h.uc.HandleScroll()
		h.clock.Advance(10 * time.Second)
	}
	assert.Len(t, h.uc.Bookmarks(), 2, "one bookmark per milestone")
	reached := 0
	for _, msg := range *h.announced {
		if msg == "Reading progress: 100% complete" {
			reached++
		}
	}
	assert.Equal(t, 1, reached, "each milestone is announced once per session")
}

func TestRestoreAndResume(t *testing.T) {
	t.Parallel()
	store := storageout.NewMemoryKVStore()
	ctx := context.Background()
	first := newHarness(store, start, "a")
	readHalf(t, first)
	_, err := first.uc.StopTracking(ctx)
	require.NoError(t, err)

	second := newHarness(store, start.Add(time.Hour), "b")
	require.Equal(t, 3, second.uc.Initialize())
	require.NoError(t, second.uc.Load(ctx))

	s := second.uc.Snapshot()
	require.True(t, s.CanResume())
	assert.Equal(t, 500.0, s.Position.ScrollTop)
	assert.InDelta(t, 50.0, s.ProgressPercentage(), 1e-9)
	require.Len(t, s.Sessions, 1)
	assert.Equal(t, "session-a-1", s.Sessions[0].SessionID)
	assert.False(t, s.Tracking)

	require.NoError(t, second.uc.ResumeReading())
	assert.Equal(t, 0.0, second.viewport.top, "scrolled to the stored element")
	s = second.uc.Snapshot()
	assert.True(t, s.Tracking)
	require.Len(t, s.Sessions, 2)
	assert.Equal(t, "session-b-1", s.Session.SessionID)

	second.clock.Advance(100 * time.Millisecond)
	assert.Equal(t, 0.0, second.uc.Snapshot().Position.ScrollTop)
}

func TestPositionsOlderThanTheLastAppliedAreDiscarded(t *testing.T) {
	t.Parallel()
	store := storageout.NewMemoryKVStore()
	ctx := context.Background()
	first := newHarness(store, start.Add(time.Hour), "a")
	readHalf(t, first)
	_, err := first.uc.StopTracking(ctx)
	require.NoError(t, err)

	behind := newHarness(store, start, "b")
	require.Equal(t, 3, behind.uc.Initialize())
	require.NoError(t, behind.uc.Load(ctx))
	behind.viewport.top = 100
	behind.uc.HandleScroll()
	behind.clock.Advance(time.Second)

	assert.Equal(t, 500.0, behind.uc.Snapshot().Position.ScrollTop)
}

func TestVisibilityFocusAndActivity(t *testing.T) {
	t.Parallel()
	h := newHarness(storageout.NewMemoryKVStore(), start, "a")
	h.uc.Initialize()
	_, err := h.uc.StartTracking()
	require.NoError(t, err)

	h.uc.RecordActivity()
	assert.True(t, h.uc.Snapshot().ActivelyReading)

	h.uc.SetPageVisible(false)
	s := h.uc.Snapshot()
	assert.Equal(t, progressdomain.StatePaused, s.State)
	assert.False(t, s.ActivelyReading)
	h.uc.SetPageVisible(true)
	assert.Equal(t, progressdomain.StateTracking, h.uc.Snapshot().State)

	require.True(t, h.uc.PauseTracking())
	h.uc.SetPageVisible(false)
	h.uc.SetPageVisible(true)
	assert.Equal(t, progressdomain.StatePaused, h.uc.Snapshot().State, "an explicit pause survives visibility changes")
	require.True(t, h.uc.ResumeTracking())

	h.clock.Advance(10 * time.Second)
	h.uc.SetFocused(true)
	assert.False(t, h.uc.Snapshot().ActivelyReading, "idle longer than the minimum active time")
	h.uc.SetFocused(false)
	h.uc.RecordActivity()
	assert.False(t, h.uc.Snapshot().ActivelyReading)
}

func TestShortcutsAndChapterNavigation(t *testing.T) {
	t.Parallel()
	h := newHarness(storageout.NewMemoryKVStore(), start, "a")
	readHalf(t, h)

	cmd, ok := h.uc.HandleShortcut("KeyP", true)
	require.True(t, ok)
	assert.Equal(t, announce.CommandShowProgress, cmd)
	assert.Contains(t, *h.announced, "Reading progress: 50% complete")

	_, ok = h.uc.HandleShortcut("KeyP", false)
	assert.False(t, ok)

	h.uc.HandleShortcut("Space", true)
	assert.Equal(t, progressdomain.StatePaused, h.uc.Snapshot().State)
	h.uc.HandleShortcut("Space", true)
	assert.Equal(t, progressdomain.StateTracking, h.uc.Snapshot().State)

	require.NoError(t, h.uc.PreviousChapter())
	assert.Equal(t, 0.0, h.viewport.top)
	assert.ErrorIs(t, h.uc.NextChapter(), apperrors.ErrNotFound)
	assert.ErrorIs(t, h.uc.JumpToBookmark("missing"), apperrors.ErrNotFound)

	h.uc.HandleShortcut("KeyB", true)
	bookmarks := h.uc.Bookmarks()
	require.Len(t, bookmarks, 1)
	require.NoError(t, h.uc.JumpToElement("p2"))
	assert.Equal(t, 500.0, h.viewport.top)
	require.NoError(t, h.uc.JumpToBookmark(bookmarks[0].ID))
	assert.Equal(t, 0.0, h.viewport.top)
}

func TestExportImportAndReset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := newHarness(storageout.NewMemoryKVStore(), start, "a")
	readHalf(t, src)
	_, err := src.uc.CreateBookmark(dto.CreateBookmarkInput{Title: "Halfway", Tags: []string{"Review"}})
	require.NoError(t, err)
	_, err = src.uc.StopTracking(ctx)
	require.NoError(t, err)

	raw, err := src.uc.Export(ctx)
	require.NoError(t, err)

	dst := newHarness(storageout.NewMemoryKVStore(), start.Add(time.Hour), "b")
	dst.uc.Initialize()
	written, err := dst.uc.Import(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, 4, written)
	s := dst.uc.Snapshot()
	assert.InDelta(t, 50.0, s.ProgressPercentage(), 1e-9)
	require.Len(t, s.Bookmarks, 1)
	assert.Equal(t, []string{"review"}, s.Bookmarks[0].Tags)
	assert.Len(t, dst.uc.Sessions(), 1)

	require.NoError(t, dst.uc.Reset(ctx))
	s = dst.uc.Snapshot()
	assert.Nil(t, s.Progress)
	assert.Nil(t, s.Position)
	assert.Empty(t, s.Sessions)
	assert.Empty(t, s.Bookmarks)
	docs, err := dst.gateway.Documents(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDestroyIsFinal(t *testing.T) {
	t.Parallel()
	h := newHarness(storageout.NewMemoryKVStore(), start, "a")
	ctx := context.Background()
	readHalf(t, h)
	h.uc.HandleScroll()

	require.NoError(t, h.uc.Destroy(ctx))
	assert.Zero(t, h.clock.Pending())
	_, err := h.gateway.LoadProgress(ctx, "guide")
	require.NoError(t, err, "destroy saves")

	_, err = h.uc.StartTracking()
	assert.ErrorIs(t, err, apperrors.ErrDestroyed)
	assert.ErrorIs(t, h.uc.Save(ctx), apperrors.ErrDestroyed)
	assert.Zero(t, h.uc.Initialize())
	h.uc.HandleScroll()
	assert.Zero(t, h.clock.Pending())
	require.NoError(t, h.uc.Destroy(ctx))
}
