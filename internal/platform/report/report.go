// Package report keeps structured records of failures and tells the reader
// about the serious ones.
package report

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"docgrind/internal/platform/announce"
	"docgrind/internal/platform/clock"
	apperrors "docgrind/internal/platform/errors"
	"docgrind/internal/platform/id"
	"docgrind/internal/platform/retry"
)

type Severity string

const (
	Low      Severity = "low"
	Medium   Severity = "medium"
	High     Severity = "high"
	Critical Severity = "critical"
)

// Context prefixes used by the engine. Friendly messages match on them.
const (
	ContextStorage     = "Storage operation"
	ContextNetwork     = "Network operation"
	ContextObserver    = "Observer operation"
	ContextPosition    = "Position tracking"
	ContextBookmark    = "Bookmark creation"
	ContextProgress    = "Progress calculation"
	defaultUserMessage = "An unexpected error occurred. Please try again."
)

var friendly = []struct {
	prefix  string
	message string
}{
	{ContextStorage, "There was an issue saving your reading progress. Your data may not be saved."},
	{ContextNetwork, "There was a network connectivity issue. Please check your connection."},
	{ContextObserver, "There was an issue tracking your reading position."},
	{ContextPosition, "Reading position tracking encountered an error."},
	{ContextBookmark, "There was an issue creating your bookmark."},
	{ContextProgress, "There was an issue calculating your reading progress."},
}

type Report struct {
	ID         string
	Timestamp  time.Time
	Context    string
	Severity   Severity
	Err        error
	Fields     map[string]any
	Resolved   bool
	ResolvedAt time.Time
}

func (r Report) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// FriendlyMessage maps a report context to text suitable for the reader.
func FriendlyMessage(ctx string) string {
	for _, f := range friendly {
		if strings.Contains(ctx, f.prefix) {
			return f.message
		}
	}
	return defaultUserMessage
}

type Handler struct {
	mu      sync.Mutex
	clock   clock.Clock
	ids     id.Generator
	log     zerolog.Logger
	notify  *announce.Announcer
	onError func(Report)
	reports map[string]*Report
	order   []string
}

type Option func(*Handler)

// WithAnnouncer routes friendly messages for high and critical reports.
func WithAnnouncer(a *announce.Announcer) Option {
	return func(h *Handler) { h.notify = a }
}

func WithOnError(fn func(Report)) Option {
	return func(h *Handler) { h.onError = fn }
}

func NewHandler(clk clock.Clock, ids id.Generator, log zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{clock: clk, ids: ids, log: log, reports: map[string]*Report{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Handle(err error, ctx string, severity Severity, fields map[string]any) Report {
	if severity == "" {
		severity = Medium
	}
	r := &Report{
		ID:        "error-" + h.ids.New(),
		Timestamp: h.clock.Now(),
		Context:   ctx,
		Severity:  severity,
		Err:       err,
		Fields:    fields,
	}
	h.mu.Lock()
	h.reports[r.ID] = r
	h.order = append(h.order, r.ID)
	onError := h.onError
	h.mu.Unlock()

	ev := h.eventFor(severity).Str("error_id", r.ID).Str("context", ctx).Str("severity", string(severity))
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Err(err).Msg("engine error")

	if (severity == High || severity == Critical) && h.notify != nil {
		h.notify.Announce(FriendlyMessage(ctx), announce.Assertive)
	}
	if onError != nil {
		onError(*r)
	}
	return *r
}

func (h *Handler) eventFor(severity Severity) *zerolog.Event {
	switch severity {
	case Low:
		return h.log.Debug()
	case Medium:
		return h.log.Warn()
	default:
		return h.log.Error()
	}
}

// WithRetry runs op under policy. If it succeeds after failing, earlier reports
// for ctx are resolved. On exhaustion the last error is reported and returned.
func (h *Handler) WithRetry(ctx context.Context, reportCtx string, policy retry.Policy, op func(context.Context) error) error {
	failed := false
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		err := op(ctx)
		if err != nil {
			failed = true
			h.log.Debug().Str("context", reportCtx).Err(err).Msg("attempt failed")
		}
		return err
	})
	if err != nil {
		severity := Medium
		if errors.Is(err, apperrors.ErrQuotaExceeded) {
			severity = High
		}
		h.Handle(err, reportCtx, severity, nil)
		return err
	}
	if failed {
		h.ResolveContext(reportCtx)
	}
	return nil
}

func (h *Handler) Resolve(reportID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.reports[reportID]
	if !ok {
		return false
	}
	r.Resolved = true
	r.ResolvedAt = h.clock.Now()
	return true
}

func (h *Handler) ResolveContext(ctx string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	now := h.clock.Now()
	for _, r := range h.reports {
		if r.Context == ctx && !r.Resolved {
			r.Resolved = true
			r.ResolvedAt = now
			n++
		}
	}
	return n
}

func (h *Handler) Reports() []Report {
	return h.filter(func(Report) bool { return true })
}

func (h *Handler) Unresolved() []Report {
	return h.filter(func(r Report) bool { return !r.Resolved })
}

func (h *Handler) ForContext(ctx string) []Report {
	return h.filter(func(r Report) bool { return r.Context == ctx })
}

func (h *Handler) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reports = map[string]*Report{}
	h.order = nil
}

func (h *Handler) ClearResolved() {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.order[:0]
	for _, reportID := range h.order {
		if h.reports[reportID].Resolved {
			delete(h.reports, reportID)
			continue
		}
		kept = append(kept, reportID)
	}
	h.order = kept
}

func (h *Handler) filter(keep func(Report) bool) []Report {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Report, 0, len(h.order))
	for _, reportID := range h.order {
		if r := *h.reports[reportID]; keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}
