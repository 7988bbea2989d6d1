package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookmarkdomain "docgrind/internal/modules/bookmark/domain"
	contentdomain "docgrind/internal/modules/content/domain"
	positiondomain "docgrind/internal/modules/position/domain"
	progressdomain "docgrind/internal/modules/progress/domain"
	storageout "docgrind/internal/modules/storage/adapter/out"
	"docgrind/internal/modules/storage/domain"
	"docgrind/internal/modules/storage/service"
	"docgrind/internal/platform/clock"
	apperrors "docgrind/internal/platform/errors"
	"docgrind/internal/platform/id"
	"docgrind/internal/platform/logging"
	"docgrind/internal/platform/report"
	"docgrind/internal/platform/retry"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func noSleep(context.Context, time.Duration) error { return nil }

func newManager(cfg service.Config) (*service.Manager, *storageout.MemoryKVStore, *report.Handler) {
	clk := clock.NewManual(now)
	store := storageout.NewMemoryKVStore()
	reports := report.NewHandler(clk, id.RandomHex{}, logging.Nop())
	if cfg.Retry.Sleep == nil {
		cfg.Retry = retry.Policy{MaxRetries: 2, Delay: time.Millisecond, Sleep: noSleep}
	}
	return service.NewManager(cfg, store, clk, reports, logging.Nop()), store, reports
}

func sampleProgress(doc string) progressdomain.Progress {
	return progressdomain.Progress{
		DocumentID:         doc,
		ProgressPercentage: 42.5,
		CurrentPosition:    positiondomain.ReadingPosition{DocumentID: doc, ScrollTop: 300, DocumentHeight: 1200, ScrollPercentage: 42.5, Timestamp: 10, SessionID: "session-1"},
		Sessions:           []progressdomain.Session{{SessionID: "session-1", DocumentID: doc, StartTime: 1, TotalTime: 500, WordsRead: 40, ReadingSpeed: 180}},
		Elements:           []contentdomain.ContentElement{contentdomain.New("intro", "p", "Closures capture variables.", 0, 80, 200)},
		Bookmarks:          []bookmarkdomain.Bookmark{{ID: "bookmark-1", DocumentID: doc, Title: "Intro", CreatedAt: 3, Tags: []string{"go"}}},
		TotalWords:         3,
		WordsRead:          1,
		LastUpdated:        clock.Millis(now),
	}
}

func TestStorageRoundTrip(t *testing.T) {
	t.Parallel()
	for _, compression := range []bool{false, true} {
		m, store, _ := newManager(service.Config{Compression: compression})
		ctx := context.Background()
		progress := sampleProgress("guide")

		require.NoError(t, m.SaveProgress(ctx, progress))
		require.NoError(t, m.SavePosition(ctx, progress.CurrentPosition))
		require.NoError(t, m.SaveSessions(ctx, "guide", progress.Sessions))
		require.NoError(t, m.SaveBookmarks(ctx, "guide", progress.Bookmarks))

		loaded, err := m.LoadProgress(ctx, "guide")
		require.NoError(t, err)
		assert.Equal(t, progress, loaded)
		pos, err := m.LoadPosition(ctx, "guide")
		require.NoError(t, err)
		assert.Equal(t, progress.CurrentPosition, pos)
		sessions, err := m.LoadSessions(ctx, "guide")
		require.NoError(t, err)
		assert.Equal(t, progress.Sessions, sessions)
		bookmarks, err := m.LoadBookmarks(ctx, "guide")
		require.NoError(t, err)
		assert.Equal(t, progress.Bookmarks, bookmarks)

		raw, ok, _ := store.Get(ctx, "reading-progress-progress-guide")
		require.True(t, ok)
		assert.Equal(t, !compression, json.Valid([]byte(raw)))
	}
}

func TestMissingDataIsNotCorruption(t *testing.T) {
	t.Parallel()
	m, _, reports := newManager(service.Config{})
	ctx := context.Background()

	_, err := m.LoadProgress(ctx, "nothing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = m.LoadPosition(ctx, "nothing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	sessions, err := m.LoadSessions(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, sessions)
	bookmarks, err := m.LoadBookmarks(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, bookmarks)
	assert.Empty(t, reports.Reports())
}

func TestQuotaEvictsLargestDocumentsFirst(t *testing.T) {
	t.Parallel()
	m, store, reports := newManager(service.Config{MaxSizeBytes: 1000})
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "reading-progress-progress-doc-1", strings.Repeat("a", 300)))
	require.NoError(t, store.Set(ctx, "reading-progress-progress-doc-2", strings.Repeat("b", 450)))

	pos := positiondomain.ReadingPosition{DocumentID: "doc-3", ScrollPercentage: 10, SessionID: "s", CurrentChapter: "x"}
	base, err := json.Marshal(pos)
	require.NoError(t, err)
	pos.CurrentChapter = strings.Repeat("x", 350-len(base)+1)

	require.NoError(t, m.SavePosition(ctx, pos))

	usage, err := m.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(650), usage.Used)
	assert.LessOrEqual(t, usage.Used, int64(800))
	assert.Equal(t, map[string]int64{"doc-1": 300, "doc-3": 350}, usage.Documents)
	_, ok, _ := store.Get(ctx, "reading-progress-progress-doc-2")
	assert.False(t, ok)
	assert.Empty(t, reports.Reports())
}

func TestQuotaNeverEvictsTheDocumentBeingWritten(t *testing.T) {
	t.Parallel()
	m, store, reports := newManager(service.Config{MaxSizeBytes: 100})
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "reading-progress-sessions-guide", strings.Repeat("a", 90)))

	err := m.SaveBookmarks(ctx, "guide", []bookmarkdomain.Bookmark{{ID: "b", DocumentID: "guide", Title: "Intro", CreatedAt: 1}})
	assert.ErrorIs(t, err, apperrors.ErrQuotaExceeded)

	_, ok, _ := store.Get(ctx, "reading-progress-sessions-guide")
	assert.True(t, ok)
	_, ok, _ = store.Get(ctx, "reading-progress-bookmarks-guide")
	assert.False(t, ok, "write is skipped")
	require.Len(t, reports.Reports(), 1)
	assert.Equal(t, report.High, reports.Reports()[0].Severity)
}

func TestReplacingAKeyDoesNotCountItsOldSize(t *testing.T) {
	t.Parallel()
	m, store, _ := newManager(service.Config{MaxSizeBytes: 200})
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "reading-progress-progress-other", strings.Repeat("o", 20)))
	sessions := []progressdomain.Session{{SessionID: "s1", StartTime: 1}}
	require.NoError(t, m.SaveSessions(ctx, "guide", sessions))
	require.NoError(t, m.SaveSessions(ctx, "guide", sessions))

	_, ok, _ := store.Get(ctx, "reading-progress-progress-other")
	assert.True(t, ok)
}

func TestLegacyEnvelopeIsMigratedAndPersisted(t *testing.T) {
	t.Parallel()
	m, store, _ := newManager(service.Config{})
	ctx := context.Background()
	key := "reading-progress-progress-guide"
	require.NoError(t, store.Set(ctx, key, `{"data":{"documentId":"guide","progressPercentage":42},"lastSaved":5}`))

	progress, err := m.LoadProgress(ctx, "guide")
	require.NoError(t, err)
	assert.Equal(t, "guide", progress.DocumentID)
	assert.Equal(t, 42.0, progress.ProgressPercentage)

	raw, _, _ := store.Get(ctx, key)
	var env domain.Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, domain.CurrentVersion, env.Version)
	assert.Equal(t, 42.0, env.Progress.ProgressPercentage)
	assert.Equal(t, clock.Millis(now), env.LastSaved)
	assert.NotContains(t, raw, `"data"`)
}

func TestFailedMigrationReadsAsMissing(t *testing.T) {
	t.Parallel()
	m, store, reports := newManager(service.Config{})
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "reading-progress-progress-old", `{"version":0}`))
	require.NoError(t, store.Set(ctx, "reading-progress-progress-new", `{"version":9,"progress":{}}`))

	_, err := m.LoadProgress(ctx, "old")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, err, apperrors.ErrMigrationFailed)

	_, err = m.LoadProgress(ctx, "new")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedVersion)
	assert.Len(t, reports.Reports(), 2)
}

func TestRegisteredMigrationsChain(t *testing.T) {
	t.Parallel()
	m, store, _ := newManager(service.Config{})
	ctx := context.Background()
	m.RegisterMigration(domain.Migration{From: 0, Apply: func(f domain.Fields) (domain.Fields, error) {
		f["progress"] = json.RawMessage(`{"documentId":"guide","progressPercentage":7}`)
		return f, nil
	}})
	require.NoError(t, store.Set(ctx, "reading-progress-progress-guide", `{"legacy":true}`))

	progress, err := m.LoadProgress(ctx, "guide")
	require.NoError(t, err)
	assert.Equal(t, 7.0, progress.ProgressPercentage)
}

func TestUncompressedValuesReadWithCompressionOn(t *testing.T) {
	t.Parallel()
	m, store, _ := newManager(service.Config{Compression: true})
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "reading-progress-sessions-guide", `[{"sessionId":"s1","documentId":"guide","startTime":1,"totalTime":0,"wordsRead":0,"charactersRead":0,"readingSpeed":0,"completionPercentage":0}]`))

	sessions, err := m.LoadSessions(ctx, "guide")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].SessionID)
}

func TestExportImport(t *testing.T) {
	t.Parallel()
	src, _, _ := newManager(service.Config{Compression: true})
	ctx := context.Background()
	require.NoError(t, src.SaveProgress(ctx, sampleProgress("guide")))
	require.NoError(t, src.SaveSessions(ctx, "guide", nil))

	raw, err := src.ExportData(ctx)
	require.NoError(t, err)
	var bundle domain.Bundle
	require.NoError(t, json.Unmarshal(raw, &bundle))
	assert.Equal(t, domain.CurrentVersion, bundle.Version)
	assert.Equal(t, "2026-03-02T09:00:00.000Z", bundle.ExportDate)
	assert.JSONEq(t, `[]`, string(bundle.Data["reading-progress-sessions-guide"]))

	dst, _, _ := newManager(service.Config{})
	written, err := dst.ImportData(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	progress, err := dst.LoadProgress(ctx, "guide")
	require.NoError(t, err)
	assert.Equal(t, sampleProgress("guide"), progress)

	_, err = dst.ImportData(ctx, []byte(`{"version":1}`))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = dst.ImportData(ctx, []byte(`not json`))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	written, err = dst.ImportData(ctx, []byte(`{"version":0,"data":{"reading-progress-position-x":{"documentId":"x"}}}`))
	require.NoError(t, err)
	assert.Equal(t, 1, written)
}

func TestClearDocumentsAndListing(t *testing.T) {
	t.Parallel()
	m, store, _ := newManager(service.Config{})
	ctx := context.Background()
	for _, doc := range []string{"b-doc", "a-doc"} {
		require.NoError(t, m.SaveProgress(ctx, sampleProgress(doc)))
		require.NoError(t, m.SaveBookmarks(ctx, doc, nil))
	}
	require.NoError(t, store.Set(ctx, "unrelated", "x"))

	docs, err := m.Documents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-doc", "b-doc"}, docs)

	require.NoError(t, m.ClearDocument(ctx, "a-doc"))
	docs, _ = m.Documents(ctx)
	assert.Equal(t, []string{"b-doc"}, docs)

	require.NoError(t, m.ClearAllData(ctx))
	docs, _ = m.Documents(ctx)
	assert.Empty(t, docs)
	_, ok, _ := store.Get(ctx, "unrelated")
	assert.True(t, ok)
}

func TestWritesAreRetried(t *testing.T) {
	t.Parallel()
	m, store, reports := newManager(service.Config{})
	ctx := context.Background()
	busy := errors.New("disk busy")

	store.FailWrites(2, busy)
	require.NoError(t, m.SaveSessions(ctx, "guide", nil))
	assert.Equal(t, 3, store.SetCalls())
	assert.Empty(t, reports.Unresolved())

	store.FailWrites(5, busy)
	err := m.SaveSessions(ctx, "guide", nil)
	assert.ErrorIs(t, err, busy)
	require.Len(t, reports.Unresolved(), 1)
	assert.Equal(t, report.Medium, reports.Unresolved()[0].Severity)
	assert.Equal(t, "There was an issue saving your reading progress. Your data may not be saved.", report.FriendlyMessage(reports.Unresolved()[0].Context))
}
