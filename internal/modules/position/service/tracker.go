package service

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	contentdomain "docgrind/internal/modules/content/domain"
	"docgrind/internal/modules/position/domain"
	positionout "docgrind/internal/modules/position/port/out"
	"docgrind/internal/platform/clock"
	apperrors "docgrind/internal/platform/errors"
	"docgrind/internal/platform/loop"
)

// anchorVisibility is the visibility above which an element that comes into
// view becomes the current element of an emitted position.
const anchorVisibility = 50

type Config struct {
	DocumentID     string
	Thresholds     []float64
	ScrollDebounce time.Duration
	DedupWindow    time.Duration
	// ReadingSpeed feeds the per-element naive estimate, in words per minute.
	ReadingSpeed float64
}

// Tracker maps scroll and visibility signals onto document elements and
// emits ReadingPosition events. It is not safe for concurrent use: callers
// drive it from one loop, and its timers re-enter through that loop.
type Tracker struct {
	cfg       Config
	doc       positionout.Document
	viewport  positionout.Viewport
	observers positionout.ObserverFactory
	clock     clock.Clock
	sched     clock.Scheduler
	loop      loop.Loop
	log       zerolog.Logger

	cb        domain.Callbacks
	observer  positionout.IntersectionObserver
	elements  map[string]*contentdomain.ContentElement
	nodes     map[string]positionout.Node
	order     []string
	sessionID string

	scrollTimer   clock.Timer
	last          *domain.ReadingPosition
	lastTimestamp int64
	degraded      bool
	destroyed     bool
}

func NewTracker(cfg Config, doc positionout.Document, viewport positionout.Viewport, observers positionout.ObserverFactory, clk clock.Clock, sched clock.Scheduler, lp loop.Loop, log zerolog.Logger) *Tracker {
	if cfg.ScrollDebounce <= 0 {
		cfg.ScrollDebounce = 100 * time.Millisecond
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = cfg.ScrollDebounce
	}
	if cfg.ReadingSpeed <= 0 {
		cfg.ReadingSpeed = 200
	}
	if lp == nil {
		lp = loop.Inline{}
	}
	return &Tracker{
		cfg:       cfg,
		doc:       doc,
		viewport:  viewport,
		observers: observers,
		clock:     clk,
		sched:     sched,
		loop:      lp,
		log:       log.With().Str("document_id", cfg.DocumentID).Logger(),
		elements:  map[string]*contentdomain.ContentElement{},
		nodes:     map[string]positionout.Node{},
	}
}

func (t *Tracker) DocumentID() string { return t.cfg.DocumentID }

func (t *Tracker) SetCallbacks(cb domain.Callbacks) {
	if t.destroyed {
		return
	}
	t.cb = cb
}

func (t *Tracker) SetSessionID(sessionID string) {
	t.sessionID = sessionID
}

// Degraded reports whether visibility tracking is unavailable.
func (t *Tracker) Degraded() bool { return t.degraded }

// Initialize scans the document and starts observing every match. It returns
// the number of tracked elements; zero is a valid outcome.
func (t *Tracker) Initialize(containerSelector string, contentSelectors []string) int {
	if t.destroyed {
		return 0
	}
	t.reset()

	nodes, err := t.doc.Query(containerSelector, contentSelectors)
	if err != nil {
		t.log.Warn().Err(err).Str("container", containerSelector).Msg("tracker container unavailable")
		t.fail(fmt.Errorf("initialize tracker: %w", err))
		return 0
	}

	for i, node := range nodes {
		elementID := node.ID()
		if elementID == "" {
			elementID = fmt.Sprintf("element-%d", i)
			node.SetID(elementID)
		}
		if _, dup := t.elements[elementID]; dup {
			t.log.Debug().Str("element_id", elementID).Msg("duplicate element id skipped")
			continue
		}
		el := contentdomain.New(elementID, node.Tag(), node.Text(), node.OffsetTop(), node.Height(), t.cfg.ReadingSpeed)
		t.elements[elementID] = &el
		t.nodes[elementID] = node
		t.order = append(t.order, elementID)
	}

	t.startObserver()
	t.log.Debug().Int("elements", len(t.order)).Bool("degraded", t.degraded).Msg("tracker initialized")
	return len(t.order)
}

func (t *Tracker) startObserver() {
	if t.observers == nil {
		t.degraded = true
		return
	}
	thresholds, err := domain.ValidateThresholds(t.cfg.Thresholds)
	if err == nil {
		t.observer, err = t.observers(thresholds, t.HandleIntersection)
	}
	if err != nil {
		t.degraded = true
		t.observer = nil
		t.log.Warn().Err(err).Msg("intersection observer unavailable, tracking scroll only")
		t.fail(fmt.Errorf("start observer: %w", err))
		return
	}
	t.degraded = false
	for _, elementID := range t.order {
		t.observer.Observe(t.nodes[elementID])
	}
	t.poll()
}

// HandleIntersection applies a batch of visibility changes. An entry that
// brings an element more than half into view anchors one position emission
// for the whole batch.
func (t *Tracker) HandleIntersection(entries []domain.IntersectionEntry) {
	if t.destroyed || t.degraded {
		return
	}
	anchor := ""
	for _, entry := range entries {
		el, ok := t.elements[entry.ID]
		if !ok {
			continue
		}
		wasVisible := el.IsVisible
		pct := 0.0
		if entry.IsIntersecting {
			pct = math.Round(entry.Ratio * 100)
		}
		el.SetVisibility(pct)

		switch {
		case el.IsVisible:
			if t.cb.OnElementVisible != nil {
				t.cb.OnElementVisible(*el)
			}
			if el.VisibilityPercentage > anchorVisibility && t.better(el.ID, anchor) {
				anchor = el.ID
			}
		case wasVisible:
			if t.cb.OnElementHidden != nil {
				t.cb.OnElementHidden(*el)
			}
		}
		if t.destroyed {
			return
		}
	}
	if anchor != "" {
		t.emit(t.buildPosition(anchor))
	}
}

// better reports whether candidate outranks current as the current element.
func (t *Tracker) better(candidate, current string) bool {
	if current == "" {
		return true
	}
	a, b := t.elements[candidate], t.elements[current]
	if a.VisibilityPercentage != b.VisibilityPercentage {
		return a.VisibilityPercentage > b.VisibilityPercentage
	}
	return t.index(candidate) < t.index(current)
}

func (t *Tracker) index(elementID string) int {
	for i, v := range t.order {
		if v == elementID {
			return i
		}
	}
	return len(t.order)
}

func (t *Tracker) HandleResize(entries []domain.ResizeEntry) {
	if t.destroyed {
		return
	}
	for _, entry := range entries {
		if el, ok := t.elements[entry.ID]; ok {
			el.OffsetTop = entry.OffsetTop
			el.Height = entry.Height
		}
	}
}

// Refresh re-reads geometry from the document nodes.
func (t *Tracker) Refresh() {
	if t.destroyed {
		return
	}
	for elementID, node := range t.nodes {
		el := t.elements[elementID]
		el.OffsetTop = node.OffsetTop()
		el.Height = node.Height()
	}
}

// HandleScroll schedules a position update once scrolling has been quiet for
// the debounce interval.
func (t *Tracker) HandleScroll() {
	if t.destroyed {
		return
	}
	if t.scrollTimer != nil {
		t.scrollTimer.Stop()
	}
	t.scrollTimer = t.sched.AfterFunc(t.cfg.ScrollDebounce, func() {
		t.loop.Do(t.flushScroll)
	})
}

func (t *Tracker) flushScroll() {
	if t.destroyed {
		return
	}
	t.scrollTimer = nil
	t.poll()
	if t.destroyed {
		return
	}
	t.emit(t.buildPosition(""))
}

func (t *Tracker) poll() {
	if p, ok := t.observer.(positionout.Poller); ok && !t.degraded {
		p.Poll()
	}
}

func (t *Tracker) buildPosition(anchor string) domain.ReadingPosition {
	top := t.viewport.ScrollTop()
	docHeight := t.viewport.DocumentHeight()
	elementID := anchor
	if elementID == "" {
		elementID = t.CurrentElementID()
	}
	return domain.ReadingPosition{
		DocumentID:       t.cfg.DocumentID,
		ScrollTop:        top,
		DocumentHeight:   docHeight,
		ScrollPercentage: domain.ScrollPercentage(top, docHeight, t.viewport.Height()),
		Timestamp:        clock.Millis(t.clock.Now()),
		CurrentElementID: elementID,
		CurrentChapter:   t.CurrentChapter(),
		SessionID:        t.sessionID,
	}.Normalize()
}

// emit delivers pos unless it repeats the previous emission inside the dedup
// window. Timestamps never go backwards.
func (t *Tracker) emit(pos domain.ReadingPosition) bool {
	if pos.Timestamp < t.lastTimestamp {
		pos.Timestamp = t.lastTimestamp
	}
	if last := t.last; last != nil &&
		last.ScrollTop == pos.ScrollTop &&
		last.CurrentElementID == pos.CurrentElementID &&
		last.CurrentChapter == pos.CurrentChapter &&
		time.Duration(pos.Timestamp-last.Timestamp)*time.Millisecond < t.cfg.DedupWindow {
		return false
	}
	t.last = &pos
	t.lastTimestamp = pos.Timestamp
	if t.cb.OnPositionChange != nil {
		t.cb.OnPositionChange(pos)
	}
	return true
}

func (t *Tracker) Elements() []contentdomain.ContentElement {
	out := make([]contentdomain.ContentElement, 0, len(t.order))
	for _, elementID := range t.order {
		out = append(out, *t.elements[elementID])
	}
	return out
}

func (t *Tracker) VisibleElements() []contentdomain.ContentElement {
	var out []contentdomain.ContentElement
	for _, elementID := range t.order {
		if el := t.elements[elementID]; el.IsVisible {
			out = append(out, *el)
		}
	}
	return out
}

// CurrentElementID is the most visible element, earliest in document order on ties.
func (t *Tracker) CurrentElementID() string {
	best := ""
	bestPct := 0.0
	for _, elementID := range t.order {
		el := t.elements[elementID]
		if el.IsVisible && el.VisibilityPercentage > bestPct {
			best, bestPct = elementID, el.VisibilityPercentage
		}
	}
	return best
}

// CurrentChapter is the text of the visible heading with the lowest level,
// earliest in document order on ties.
func (t *Tracker) CurrentChapter() string {
	best := ""
	bestLevel := math.MaxInt
	for _, elementID := range t.order {
		el := t.elements[elementID]
		if !el.IsVisible || el.Type != contentdomain.TypeHeading {
			continue
		}
		level := el.Level
		if level == 0 {
			level = 6
		}
		if level < bestLevel {
			best, bestLevel = strings.TrimSpace(el.TextContent), level
		}
	}
	return best
}

// CurrentPosition builds a position from the live viewport without emitting it.
func (t *Tracker) CurrentPosition() domain.ReadingPosition {
	if t.destroyed {
		if t.last != nil {
			return *t.last
		}
		return domain.ReadingPosition{DocumentID: t.cfg.DocumentID}
	}
	pos := t.buildPosition("")
	if pos.Timestamp < t.lastTimestamp {
		pos.Timestamp = t.lastTimestamp
	}
	return pos
}

// ScrollToPosition scrolls to the position's element when it still exists,
// otherwise to its scrollTop.
func (t *Tracker) ScrollToPosition(pos domain.ReadingPosition) error {
	if t.destroyed {
		return apperrors.ErrDestroyed
	}
	if pos.CurrentElementID != "" {
		err := t.ScrollToElement(pos.CurrentElementID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		t.log.Debug().Str("element_id", pos.CurrentElementID).Msg("bookmark element missing, using scroll offset")
	}
	top := pos.Normalize().ScrollTop
	t.viewport.ScrollTo(top)
	t.HandleScroll()
	return nil
}

func (t *Tracker) ScrollToElement(elementID string) error {
	if t.destroyed {
		return apperrors.ErrDestroyed
	}
	node, ok := t.nodes[elementID]
	if !ok {
		node, ok = t.doc.FindByID(elementID)
	}
	if !ok {
		return fmt.Errorf("scroll to element %s: %w", elementID, apperrors.ErrNotFound)
	}
	t.viewport.ScrollTo(node.OffsetTop())
	t.HandleScroll()
	return nil
}

// Destroy stops timers and observers. Every later call is a no-op.
func (t *Tracker) Destroy() {
	if t.destroyed {
		return
	}
	t.reset()
	t.destroyed = true
	t.cb = domain.Callbacks{}
	t.log.Debug().Msg("tracker destroyed")
}

func (t *Tracker) reset() {
	if t.scrollTimer != nil {
		t.scrollTimer.Stop()
		t.scrollTimer = nil
	}
	if t.observer != nil {
		t.observer.Disconnect()
		t.observer = nil
	}
	t.elements = map[string]*contentdomain.ContentElement{}
	t.nodes = map[string]positionout.Node{}
	t.order = nil
}

func (t *Tracker) fail(err error) {
	if t.cb.OnError != nil {
		t.cb.OnError(err)
	}
}
