package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	bookmarkdomain "docgrind/internal/modules/bookmark/domain"
	bookmarkin "docgrind/internal/modules/bookmark/port/in"
	contentdomain "docgrind/internal/modules/content/domain"
	estimatordomain "docgrind/internal/modules/estimator/domain"
	estimatorin "docgrind/internal/modules/estimator/port/in"
	positiondomain "docgrind/internal/modules/position/domain"
	positionin "docgrind/internal/modules/position/port/in"
	progressdomain "docgrind/internal/modules/progress/domain"
	progressin "docgrind/internal/modules/progress/port/in"
	storagein "docgrind/internal/modules/storage/port/in"
	"docgrind/internal/modules/tracking/domain"
	"docgrind/internal/modules/tracking/dto"
	trackingin "docgrind/internal/modules/tracking/port/in"
	"docgrind/internal/platform/announce"
	"docgrind/internal/platform/clock"
	apperrors "docgrind/internal/platform/errors"
	"docgrind/internal/platform/loop"
	"docgrind/internal/platform/report"
)

type Options struct {
	ContainerSelector string
	ContentSelectors  []string
	// AutoSaveInterval of zero disables auto-save.
	AutoSaveInterval time.Duration
	MinActiveTime    time.Duration
	EnableBookmarks  bool
	Difficulty       estimatordomain.Difficulty
	// UserSpeed overrides the measured reading speed for estimates.
	UserSpeed float64
}

// Deps are the collaborators of one open document. Loop must be the loop
// the tracker schedules its timers through. Announcer may be nil.
type Deps struct {
	Tracker    positionin.Tracker
	Calculator progressin.Calculator
	Bookmarks  bookmarkin.Manager
	Storage    storagein.Gateway
	Estimator  estimatorin.Estimator
	Announcer  *announce.Announcer
	Reports    *report.Handler
	Clock      clock.Clock
	Scheduler  clock.Scheduler
	Loop       loop.Loop
	Log        zerolog.Logger
}

type Interactor struct {
	opts       Options
	documentID string
	tracker    positionin.Tracker
	calculator progressin.Calculator
	bookmarks  bookmarkin.Manager
	storage    storagein.Gateway
	estimator  estimatorin.Estimator
	announcer  *announce.Announcer
	reports    *report.Handler
	clock      clock.Clock
	sched      clock.Scheduler
	loop       loop.Loop
	log        zerolog.Logger

	loaded       bool
	tracking     bool
	active       bool
	visible      bool
	focused      bool
	hiddenPause  bool
	loading      bool
	destroyed    bool
	lastActivity time.Time
	position     *positiondomain.ReadingPosition
	progress     *progressdomain.Progress
	analytics    progressdomain.Analytics
	estimate     estimatordomain.Estimate
	speed        estimatordomain.SpeedMetrics
	chapter      string
	lastErr      error
	autoSave     clock.Timer
}

func NewInteractor(opts Options, deps Deps) trackingin.Usecase {
	if opts.ContainerSelector == "" {
		opts.ContainerSelector = "body"
	}
	if opts.MinActiveTime <= 0 {
		opts.MinActiveTime = 3 * time.Second
	}
	if deps.Loop == nil {
		deps.Loop = loop.Inline{}
	}
	documentID := deps.Tracker.DocumentID()
	i := &Interactor{
		opts:       opts,
		documentID: documentID,
		tracker:    deps.Tracker,
		calculator: deps.Calculator,
		bookmarks:  deps.Bookmarks,
		storage:    deps.Storage,
		estimator:  deps.Estimator,
		announcer:  deps.Announcer,
		reports:    deps.Reports,
		clock:      deps.Clock,
		sched:      deps.Scheduler,
		loop:       deps.Loop,
		log:        deps.Log.With().Str("document_id", documentID).Logger(),
		visible:    true,
		focused:    true,
		speed:      estimatordomain.DefaultSpeedMetrics(),
	}
	i.tracker.SetCallbacks(positiondomain.Callbacks{
		OnPositionChange: i.onPosition,
		OnElementVisible: i.onElementVisible,
		OnError:          i.onError,
	})
	i.bookmarks.OnChange(i.onBookmarksChanged)
	return i
}

// Initialize scans the document and returns the number of tracked elements.
func (i *Interactor) Initialize() int {
	n := 0
	i.loop.Do(func() {
		if i.destroyed {
			return
		}
		n = i.tracker.Initialize(i.opts.ContainerSelector, i.opts.ContentSelectors)
		i.loaded = true
		i.log.Debug().Int("elements", n).Msg("document initialized")
	})
	return n
}

// Load restores stored progress, position, sessions and bookmarks. Missing
// data is not an error.
func (i *Interactor) Load(ctx context.Context) error {
	var err error
	i.loop.Do(func() {
		if i.destroyed {
			err = apperrors.ErrDestroyed
			return
		}
		err = i.load(ctx)
	})
	return err
}

func (i *Interactor) load(ctx context.Context) error {
	progress, err := i.storage.LoadProgress(ctx, i.documentID)
	switch {
	case err == nil:
		i.progress = &progress
	case errors.Is(err, apperrors.ErrNotFound):
		i.log.Debug().Err(err).Msg("no progress to restore")
	default:
		return i.fail(fmt.Errorf("load progress: %w", err))
	}

	pos, err := i.storage.LoadPosition(ctx, i.documentID)
	switch {
	case err == nil:
		i.position = &pos
		i.chapter = pos.CurrentChapter
	case !errors.Is(err, apperrors.ErrNotFound):
		return i.fail(fmt.Errorf("load position: %w", err))
	}

	sessions, err := i.storage.LoadSessions(ctx, i.documentID)
	if err != nil {
		return i.fail(fmt.Errorf("load sessions: %w", err))
	}
	restored := i.calculator.LoadSessions(sessions)

	bookmarks, err := i.storage.LoadBookmarks(ctx, i.documentID)
	if err != nil {
		return i.fail(fmt.Errorf("load bookmarks: %w", err))
	}
	i.loading = true
	loadedBookmarks := i.bookmarks.LoadBookmarks(bookmarks)
	i.loading = false

	i.analytics = i.calculator.GetAnalytics()
	i.speed = i.estimator.CalculateReadingSpeed(i.calculator.Sessions())
	i.log.Debug().
		Bool("progress", i.progress != nil).
		Bool("position", i.position != nil).
		Int("sessions", restored).
		Int("bookmarks", loadedBookmarks).
		Msg("progress restored")
	return nil
}

func (i *Interactor) StartTracking() (progressdomain.Session, error) {
	var (
		session progressdomain.Session
		err     error
	)
	i.loop.Do(func() {
		if i.destroyed {
			err = apperrors.ErrDestroyed
			return
		}
		session, err = i.startTracking()
	})
	return session, err
}

func (i *Interactor) startTracking() (progressdomain.Session, error) {
	if i.tracking {
		if current, ok := i.calculator.CurrentSession(); ok {
			return current, nil
		}
	}
	session, err := i.calculator.StartSession()
	if err != nil && !errors.Is(err, apperrors.ErrActiveSessionExists) {
		return progressdomain.Session{}, i.fail(err)
	}
	i.tracking = true
	i.tracker.SetSessionID(session.SessionID)
	i.updateActivityState()
	i.armAutoSave()
	i.log.Info().Str("session_id", session.SessionID).Msg("tracking started")
	return session, nil
}

// StopTracking ends the running session and saves. It returns ErrNoActiveSession
// when nothing was being tracked.
func (i *Interactor) StopTracking(ctx context.Context) (progressdomain.Session, error) {
	var (
		session progressdomain.Session
		err     error
	)
	i.loop.Do(func() {
		if i.destroyed {
			err = apperrors.ErrDestroyed
			return
		}
		session, err = i.stopTracking(ctx)
	})
	return session, err
}

func (i *Interactor) stopTracking(ctx context.Context) (progressdomain.Session, error) {
	if !i.tracking {
		return progressdomain.Session{}, apperrors.ErrNoActiveSession
	}
	i.tracking = false
	i.active = false
	i.hiddenPause = false
	i.cancelAutoSave()
	session, ended := i.calculator.EndSession()
	i.tracker.SetSessionID("")
	i.analytics = i.calculator.GetAnalytics()
	i.speed = i.estimator.CalculateReadingSpeed(i.calculator.Sessions())
	if err := i.save(ctx); err != nil {
		return session, err
	}
	if !ended {
		return session, apperrors.ErrNoActiveSession
	}
	i.log.Info().
		Str("session_id", session.SessionID).
		Int64("total_time_ms", session.TotalTime).
		Int("words_read", session.WordsRead).
		Msg("tracking stopped")
	return session, nil
}

func (i *Interactor) PauseTracking() bool {
	ok := false
	i.loop.Do(func() {
		if i.destroyed {
			return
		}
		ok = i.pause()
	})
	return ok
}

func (i *Interactor) pause() bool {
	ok := i.calculator.PauseTracking()
	i.active = false
	return ok
}

func (i *Interactor) ResumeTracking() bool {
	ok := false
	i.loop.Do(func() {
		if i.destroyed {
			return
		}
		ok = i.resume()
	})
	return ok
}

func (i *Interactor) resume() bool {
	i.hiddenPause = false
	ok := i.calculator.ResumeTracking()
	i.updateActivityState()
	return ok
}

// ResumeReading scrolls back to the last known position and starts tracking.
func (i *Interactor) ResumeReading() error {
	var err error
	i.loop.Do(func() {
		if i.destroyed {
			err = apperrors.ErrDestroyed
			return
		}
		err = i.resumeReading()
	})
	return err
}

func (i *Interactor) resumeReading() error {
	if i.position == nil {
		i.log.Debug().Msg("nothing to resume")
		return fmt.Errorf("resume reading: no saved position: %w", apperrors.ErrNotFound)
	}
	if err := i.tracker.ScrollToPosition(*i.position); err != nil {
		return fmt.Errorf("resume reading: %w", err)
	}
	_, err := i.startTracking()
	return err
}

func (i *Interactor) JumpToPosition(pos positiondomain.ReadingPosition) error {
	var err error
	i.loop.Do(func() {
		if i.destroyed {
			err = apperrors.ErrDestroyed
			return
		}
		err = i.tracker.ScrollToPosition(pos)
	})
	return err
}

func (i *Interactor) JumpToElement(elementID string) error {
	var err error
	i.loop.Do(func() {
		if i.destroyed {
			err = apperrors.ErrDestroyed
			return
		}
		err = i.tracker.ScrollToElement(elementID)
	})
	return err
}

func (i *Interactor) JumpToBookmark(bookmarkID string) error {
	var err error
	i.loop.Do(func() {
		if i.destroyed {
			err = apperrors.ErrDestroyed
			return
		}
		err = i.jumpToBookmark(bookmarkID)
	})
	return err
}

func (i *Interactor) jumpToBookmark(bookmarkID string) error {
	b, ok := i.bookmarks.AccessBookmark(bookmarkID)
	if !ok {
		i.log.Debug().Str("bookmark_id", bookmarkID).Msg("bookmark not found")
		return fmt.Errorf("jump to bookmark %s: %w", bookmarkID, apperrors.ErrNotFound)
	}
	return i.tracker.ScrollToPosition(b.Position)
}

func (i *Interactor) NextChapter() error {
	var err error
	i.loop.Do(func() {
		if i.destroyed {
			err = apperrors.ErrDestroyed
			return
		}
		err = i.stepChapter(1)
	})
	return err
}

func (i *Interactor) PreviousChapter() error {
	var err error
	i.loop.Do(func() {
		if i.destroyed {
			err = apperrors.ErrDestroyed
			return
		}
		err = i.stepChapter(-1)
	})
	return err
}

// stepChapter scrolls to the nearest heading below (dir > 0) or above the
// top of the viewport.
func (i *Interactor) stepChapter(dir int) error {
	top := i.tracker.CurrentPosition().ScrollTop
	target := ""
	for _, el := range contentdomain.SortByOffset(i.tracker.Elements()) {
		if el.Type != contentdomain.TypeHeading {
			continue
		}
		if dir > 0 && el.OffsetTop > top+1 {
			target = el.ID
			break
		}
		if dir < 0 && el.OffsetTop < top-1 {
			target = el.ID
		}
	}
	if target == "" {
		return fmt.Errorf("step chapter: no heading in that direction: %w", apperrors.ErrNotFound)
	}
	return i.tracker.ScrollToElement(target)
}

// CreateBookmark bookmarks the current position. An empty title is derived
// from the current chapter or element.
func (i *Interactor) CreateBookmark(input dto.CreateBookmarkInput) (bookmarkdomain.Bookmark, error) {
	var (
		b   bookmarkdomain.Bookmark
		err error
	)
	i.loop.Do(func() {
		if i.destroyed {
			err = apperrors.ErrDestroyed
			return
		}
		b, err = i.createBookmark(input)
	})
	return b, err
}

func (i *Interactor) createBookmark(input dto.CreateBookmarkInput) (bookmarkdomain.Bookmark, error) {
	if i.position == nil {
		return bookmarkdomain.Bookmark{}, fmt.Errorf("create bookmark: no reading position: %w", apperrors.ErrNotFound)
	}
	var (
		b   bookmarkdomain.Bookmark
		err error
	)
	if input.Title == "" && input.Description == "" && len(input.Tags) == 0 {
		b, err = i.bookmarks.CreateBookmarkAtPosition(*i.position, i.currentElement(), "")
	} else {
		b, err = i.bookmarks.CreateBookmark(*i.position, input.Title, input.Description, input.Tags, "")
	}
	if err != nil {
		i.reports.Handle(err, report.ContextBookmark, report.Low, map[string]any{"document_id": i.documentID})
		return bookmarkdomain.Bookmark{}, err
	}
	if i.announcer != nil {
		i.announcer.BookmarkCreated(b.Title)
	}
	return b, nil
}

func (i *Interactor) currentElement() *contentdomain.ContentElement {
	if i.position == nil || i.position.CurrentElementID == "" {
		return nil
	}
	for _, el := range i.tracker.Elements() {
		if el.ID == i.position.CurrentElementID {
			return &el
		}
	}
	return nil
}

func (i *Interactor) DeleteBookmark(bookmarkID string) bool {
	ok := false
	i.loop.Do(func() {
		if i.destroyed {
			return
		}
		ok = i.bookmarks.DeleteBookmark(bookmarkID)
	})
	return ok
}

func (i *Interactor) Save(ctx context.Context) error {
	var err error
	i.loop.Do(func() {
		if i.destroyed {
			err = apperrors.ErrDestroyed
			return
		}
		err = i.save(ctx)
	})
	return err
}

// save writes progress first and the other three keys only when that
// succeeded. Without computed progress there is nothing to write.
func (i *Interactor) save(ctx context.Context) error {
	if i.progress == nil {
		return nil
	}
	progress := *i.progress
	progress.Sessions = i.calculator.Sessions()
	progress.Bookmarks = i.bookmarks.GetAllBookmarks()
	if err := i.storage.SaveProgress(ctx, progress); err != nil {
		return i.fail(fmt.Errorf("save progress: %w", err))
	}
	var errs []error
	if i.position != nil {
		errs = append(errs, i.storage.SavePosition(ctx, *i.position))
	}
	errs = append(errs,
		i.storage.SaveSessions(ctx, i.documentID, progress.Sessions),
		i.storage.SaveBookmarks(ctx, i.documentID, progress.Bookmarks),
	)
	if err := errors.Join(errs...); err != nil {
		return i.fail(fmt.Errorf("save progress: %w", err))
	}
	i.log.Debug().Float64("progress", progress.ProgressPercentage).Msg("progress saved")
	return nil
}

func (i *Interactor) Export(ctx context.Context) ([]byte, error) {
	var (
		out []byte
		err error
	)
	i.loop.Do(func() {
		out, err = i.storage.ExportData(ctx)
	})
	return out, err
}

// Import writes an export bundle and reloads this document from it.
func (i *Interactor) Import(ctx context.Context, raw []byte) (int, error) {
	var (
		written int
		err     error
	)
	i.loop.Do(func() {
		if i.destroyed {
			err = apperrors.ErrDestroyed
			return
		}
		written, err = i.storage.ImportData(ctx, raw)
		if written > 0 {
			err = errors.Join(err, i.load(ctx))
		}
	})
	return written, err
}

// Reset forgets the document: sessions, bookmarks, stored keys and the
// in-memory view.
func (i *Interactor) Reset(ctx context.Context) error {
	var err error
	i.loop.Do(func() {
		if i.destroyed {
			err = apperrors.ErrDestroyed
			return
		}
		i.cancelAutoSave()
		i.calculator.Reset()
		i.loading = true
		i.bookmarks.ClearAllBookmarks()
		i.loading = false
		i.tracker.SetSessionID("")
		i.tracking = false
		i.active = false
		i.position = nil
		i.progress = nil
		i.analytics = progressdomain.Analytics{}
		i.estimate = estimatordomain.Estimate{}
		i.speed = estimatordomain.DefaultSpeedMetrics()
		i.chapter = ""
		i.lastErr = nil
		if i.announcer != nil {
			i.announcer.ForgetProgress(i.documentID)
		}
		err = i.storage.ClearDocument(ctx, i.documentID)
	})
	return err
}

func (i *Interactor) HandleScroll() {
	i.loop.Do(func() {
		if i.destroyed {
			return
		}
		i.lastActivity = i.clock.Now()
		i.tracker.HandleScroll()
	})
}

func (i *Interactor) HandleIntersection(entries []positiondomain.IntersectionEntry) {
	i.loop.Do(func() {
		if !i.destroyed {
			i.tracker.HandleIntersection(entries)
		}
	})
}

func (i *Interactor) HandleResize(entries []positiondomain.ResizeEntry) {
	i.loop.Do(func() {
		if !i.destroyed {
			i.tracker.HandleResize(entries)
		}
	})
}

func (i *Interactor) Refresh() {
	i.loop.Do(func() {
		if !i.destroyed {
			i.tracker.Refresh()
		}
	})
}

// SetPageVisible records page visibility. Hiding the page pauses a running
// session; showing it again resumes only a session paused that way.
func (i *Interactor) SetPageVisible(visible bool) {
	i.loop.Do(func() {
		if i.destroyed {
			return
		}
		i.visible = visible
		switch {
		case !visible && i.tracking && i.calculator.State() == progressdomain.StateTracking:
			i.hiddenPause = i.pause()
		case visible && i.hiddenPause:
			i.resume()
		}
		i.updateActivityState()
	})
}

func (i *Interactor) SetFocused(focused bool) {
	i.loop.Do(func() {
		if i.destroyed {
			return
		}
		i.focused = focused
		i.updateActivityState()
	})
}

// RecordActivity notes reader input such as a key press or pointer move.
func (i *Interactor) RecordActivity() {
	i.loop.Do(func() {
		if i.destroyed {
			return
		}
		i.lastActivity = i.clock.Now()
		i.updateActivityState()
	})
}

func (i *Interactor) Snapshot() domain.Snapshot {
	var s domain.Snapshot
	i.loop.Do(func() { s = i.snapshot() })
	return s
}

func (i *Interactor) snapshot() domain.Snapshot {
	s := domain.Snapshot{
		DocumentID:      i.documentID,
		Loaded:          i.loaded,
		Tracking:        i.tracking,
		ActivelyReading: i.active,
		Visible:         i.visible,
		Focused:         i.focused,
		State:           i.calculator.State(),
		Sessions:        i.calculator.Sessions(),
		Bookmarks:       i.bookmarks.GetAllBookmarks(),
		Analytics:       i.analytics,
		Estimate:        i.estimate,
		Speed:           i.speed,
		Chapter:         i.chapter,
	}
	if i.position != nil {
		pos := *i.position
		s.Position = &pos
	}
	if i.progress != nil {
		progress := *i.progress
		s.Progress = &progress
	}
	if session, ok := i.calculator.CurrentSession(); ok {
		s.Session = &session
	}
	if i.lastErr != nil {
		s.LastError = i.lastErr.Error()
	}
	return s
}

// Destroy stops tracking, saves, and detaches the tracker. Later calls are
// no-ops.
func (i *Interactor) Destroy(ctx context.Context) error {
	var err error
	i.loop.Do(func() {
		if i.destroyed {
			return
		}
		if i.tracking {
			if _, err = i.stopTracking(ctx); errors.Is(err, apperrors.ErrNoActiveSession) {
				err = nil
			}
		}
		i.cancelAutoSave()
		i.tracker.Destroy()
		i.destroyed = true
		i.bookmarks.OnChange(nil)
		i.log.Debug().Msg("document closed")
	})
	return err
}

func (i *Interactor) onPosition(pos positiondomain.ReadingPosition) {
	if i.destroyed {
		return
	}
	if i.position != nil && pos.Timestamp < i.position.Timestamp {
		i.log.Debug().Int64("timestamp", pos.Timestamp).Int64("last", i.position.Timestamp).Msg("stale position discarded")
		return
	}
	i.position = &pos

	elements := i.tracker.Elements()
	i.calculator.UpdateActivity(i.tracker.VisibleElements())
	progress := i.calculator.UpdateProgress(elements, pos)
	i.progress = &progress
	i.analytics = i.calculator.GetAnalytics()
	i.speed = i.estimator.CalculateReadingSpeed(i.calculator.Sessions())
	i.estimate = i.estimator.EstimateReadingTime(elements, pos, i.estimateOptions())
	i.updateActivityState()
	if i.opts.EnableBookmarks && i.tracking {
		i.offerAutoBookmark(pos, nil, 0)
	}

	if i.announcer != nil {
		scope := pos.SessionID
		if scope == "" {
			scope = i.documentID
		}
		if i.announcer.ProgressUpdate(scope, pos.ScrollPercentage) {
			i.announcer.TimeEstimate(time.Duration(i.estimate.RemainingTime) * time.Millisecond)
		}
		if pos.CurrentChapter != "" && pos.CurrentChapter != i.chapter {
			i.announcer.ChapterChange(pos.CurrentChapter)
		}
	}
	if pos.CurrentChapter != "" {
		i.chapter = pos.CurrentChapter
	}
}

func (i *Interactor) estimateOptions() estimatordomain.Options {
	opts := estimatordomain.Options{UserSpeed: i.opts.UserSpeed, Difficulty: i.opts.Difficulty}
	if opts.UserSpeed > 0 {
		return opts
	}
	for _, s := range i.calculator.Sessions() {
		if s.ReadingSpeed > 0 {
			opts.UserSpeed = i.speed.Current
			break
		}
	}
	return opts
}

// onElementVisible offers a heading to the dwell rule with the time the
// calculator has credited to it. Milestones are checked on each position.
func (i *Interactor) onElementVisible(el contentdomain.ContentElement) {
	if i.destroyed || !i.opts.EnableBookmarks || !i.tracking || i.position == nil {
		return
	}
	if el.Type != contentdomain.TypeHeading {
		return
	}
	i.offerAutoBookmark(*i.position, &el, i.calculator.TimeSpent(el.ID))
}

func (i *Interactor) offerAutoBookmark(pos positiondomain.ReadingPosition, el *contentdomain.ContentElement, dwell time.Duration) {
	b, ok := i.bookmarks.CreateAutoBookmark(pos, el, dwell)
	if ok && i.announcer != nil {
		i.announcer.BookmarkCreated(b.Title)
	}
}

func (i *Interactor) onBookmarksChanged([]bookmarkdomain.Bookmark) {
	if i.loading || i.destroyed {
		return
	}
	if err := i.save(context.Background()); err != nil {
		i.log.Debug().Err(err).Msg("save after bookmark change")
	}
}

func (i *Interactor) onError(err error) {
	i.lastErr = err
	i.reports.Handle(err, report.ContextPosition, report.Medium, map[string]any{"document_id": i.documentID})
}

// updateActivityState marks the reader active when tracking a visible,
// focused page within MinActiveTime of the previous activity.
func (i *Interactor) updateActivityState() {
	now := i.clock.Now()
	i.active = i.tracking &&
		i.visible &&
		i.focused &&
		i.calculator.State() == progressdomain.StateTracking &&
		now.Sub(i.lastActivity) < i.opts.MinActiveTime
	i.lastActivity = now
}

func (i *Interactor) armAutoSave() {
	if i.opts.AutoSaveInterval <= 0 || i.sched == nil || i.autoSave != nil {
		return
	}
	i.autoSave = i.sched.AfterFunc(i.opts.AutoSaveInterval, func() {
		i.loop.Do(i.runAutoSave)
	})
}

func (i *Interactor) runAutoSave() {
	i.autoSave = nil
	if i.destroyed || !i.tracking {
		return
	}
	if err := i.save(context.Background()); err != nil {
		i.log.Debug().Err(err).Msg("auto-save failed")
	}
	i.armAutoSave()
}

func (i *Interactor) cancelAutoSave() {
	if i.autoSave != nil {
		i.autoSave.Stop()
		i.autoSave = nil
	}
}

// fail records err as the last error and returns it.
func (i *Interactor) fail(err error) error {
	i.lastErr = err
	return err
}
