package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	bookmarkservice "docgrind/internal/modules/bookmark/service"
	estimatordomain "docgrind/internal/modules/estimator/domain"
	estimatorservice "docgrind/internal/modules/estimator/service"
	positionoutadapter "docgrind/internal/modules/position/adapter/out"
	"docgrind/internal/modules/position/adapter/out/htmldoc"
	positionservice "docgrind/internal/modules/position/service"
	progressservice "docgrind/internal/modules/progress/service"
	storageinadapter "docgrind/internal/modules/storage/adapter/in"
	storageoutadapter "docgrind/internal/modules/storage/adapter/out"
	storageservice "docgrind/internal/modules/storage/service"
	storageusecase "docgrind/internal/modules/storage/usecase"
	trackinginadapter "docgrind/internal/modules/tracking/adapter/in"
	trackingusecase "docgrind/internal/modules/tracking/usecase"
	"docgrind/internal/platform/announce"
	"docgrind/internal/platform/clock"
	"docgrind/internal/platform/config"
	"docgrind/internal/platform/id"
	"docgrind/internal/platform/logging"
	"docgrind/internal/platform/loop"
	"docgrind/internal/platform/report"
	"docgrind/internal/platform/retry"
	"docgrind/internal/platform/slug"
)

type options struct {
	clock     clock.Clock
	scheduler clock.Scheduler
	logOutput io.Writer
}

type Option func(*options)

// WithClock replaces the system clock, for deterministic runs.
func WithClock(clk clock.Clock, sched clock.Scheduler) Option {
	return func(o *options) {
		o.clock = clk
		o.scheduler = sched
	}
}

func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

type App struct {
	Config     config.Config
	Log        zerolog.Logger
	StorageCLI storageinadapter.CLIHandler

	clock     clock.Clock
	scheduler clock.Scheduler
	store     *storageoutadapter.SQLiteKVStore
	reports   *report.Handler
	announcer *announce.Announcer
	gateway   *storageservice.Manager
}

func New(cfg config.Config, opts ...Option) (*App, error) {
	o := options{clock: clock.SystemClock{}, scheduler: clock.SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	log := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: logging.ParseFormat(cfg.Logging.Format),
		Output: o.logOutput,
	})

	store, err := storageoutadapter.NewSQLiteKVStore(cfg.DBPath, o.clock)
	if err != nil {
		return nil, fmt.Errorf("new kv store: %w", err)
	}

	var announcer *announce.Announcer
	reportOpts := []report.Option{}
	if cfg.Tracker.EnableAccessibility {
		announcer = announce.NewAnnouncer(o.clock, announce.LogSink{Log: log.With().Str("component", "announcer").Logger()}, announce.Preferences{
			Progress:      cfg.Accessibility.AnnounceProgress,
			Bookmarks:     cfg.Accessibility.AnnounceBookmarks,
			Chapters:      cfg.Accessibility.AnnounceChapterChanges,
			TimeEstimates: cfg.Accessibility.AnnounceTimeEstimates,
		})
		reportOpts = append(reportOpts, report.WithAnnouncer(announcer))
	}
	reports := report.NewHandler(o.clock, id.UUID{}, log, reportOpts...)

	gateway := storageservice.NewManager(storageservice.Config{
		KeyPrefix:    cfg.Storage.KeyPrefix,
		MaxSizeBytes: cfg.Storage.MaxSizeBytes,
		Compression:  cfg.Storage.Compression,
		Retry: retry.Policy{
			MaxRetries: cfg.Storage.MaxRetries,
			Delay:      cfg.Storage.RetryDelay,
			Backoff:    retry.Exponential,
		},
	}, store, o.clock, reports, log)

	return &App{
		Config:     cfg,
		Log:        log,
		StorageCLI: storageinadapter.NewCLIHandler(storageusecase.NewInteractor(gateway)),
		clock:      o.clock,
		scheduler:  o.scheduler,
		store:      store,
		reports:    reports,
		announcer:  announcer,
		gateway:    gateway,
	}, nil
}

func (a *App) Close() error {
	return a.store.Close()
}

// Reports returns the errors the app has recorded and not yet resolved.
func (a *App) Reports() []report.Report {
	return a.reports.Unresolved()
}

// Reader is one opened document with its simulated viewport.
type Reader struct {
	DocumentID string
	Title      string
	CLI        trackinginadapter.CLIHandler

	viewport *htmldoc.Viewport
}

// ScrollTo moves the viewport and notifies the tracker.
func (r *Reader) ScrollTo(top float64) {
	r.viewport.ScrollTo(top)
	r.CLI.Scrolled()
}

func (r *Reader) ScrollTop() float64 { return r.viewport.ScrollTop() }

func (r *Reader) MaxScroll() float64 { return r.viewport.MaxScroll() }

// OpenDocument lays out the HTML file at path and wires a tracking session
// for it. The document id comes from the front matter, or the file name.
func (a *App) OpenDocument(path string) (*Reader, error) {
	doc, err := htmldoc.Load(path, htmldoc.DefaultLayout())
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	meta := doc.Meta()
	documentID := meta.DocumentID
	if documentID == "" && meta.Slug != "" {
		documentID = slug.Make(meta.Slug)
	}
	if documentID == "" {
		documentID = slug.FromPath(path)
	}
	difficultyName := a.Config.Tracker.Difficulty
	if meta.Difficulty != "" {
		difficultyName = meta.Difficulty
	}
	difficulty, err := estimatordomain.ParseDifficulty(difficultyName)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", documentID, err)
	}

	tc := a.Config.Tracker
	lp := &loop.Serial{}
	viewport := htmldoc.NewViewport(doc, tc.ViewportHeight)
	tracker := positionservice.NewTracker(positionservice.Config{
		DocumentID:     documentID,
		Thresholds:     tc.Thresholds,
		ScrollDebounce: tc.ScrollDebounce,
		DedupWindow:    tc.DedupWindow,
		ReadingSpeed:   tc.AverageReadingSpeed,
	}, doc, viewport, positionoutadapter.NewPollingObserverFactory(viewport), a.clock, a.scheduler, lp, a.Log)
	calculator := progressservice.NewCalculator(progressservice.Config{
		DocumentID:          documentID,
		AverageReadingSpeed: tc.AverageReadingSpeed,
		ActivityFactor:      tc.ActivityFactor,
		ActivityInterval:    tc.ActivityInterval,
	}, a.clock, nil, a.Log)

	uc := trackingusecase.NewInteractor(trackingusecase.Options{
		ContainerSelector: tc.ContainerSelector,
		ContentSelectors:  tc.ContentSelectors,
		AutoSaveInterval:  tc.AutoSaveInterval,
		MinActiveTime:     tc.MinActiveTime,
		EnableBookmarks:   tc.EnableBookmarks,
		Difficulty:        difficulty,
	}, trackingusecase.Deps{
		Tracker:    tracker,
		Calculator: calculator,
		Bookmarks:  bookmarkservice.NewManager(documentID, a.clock, nil, a.Log),
		Storage:    a.gateway,
		Estimator:  estimatorservice.NewEstimator(a.clock, a.Log),
		Announcer:  a.announcer,
		Reports:    a.reports,
		Clock:      a.clock,
		Scheduler:  a.scheduler,
		Loop:       lp,
		Log:        a.Log,
	})

	return &Reader{
		DocumentID: documentID,
		Title:      doc.Title(),
		CLI:        trackinginadapter.NewCLIHandler(uc),
		viewport:   viewport,
	}, nil
}

// Open is OpenDocument followed by the restore of stored state. It returns
// the number of tracked elements.
func (a *App) Open(ctx context.Context, path string) (*Reader, int, error) {
	r, err := a.OpenDocument(path)
	if err != nil {
		return nil, 0, err
	}
	n, err := r.CLI.Open(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("restore %s: %w", r.DocumentID, err)
	}
	return r, n, nil
}
