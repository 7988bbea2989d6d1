package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"docgrind/internal/modules/bookmark/domain"
	contentdomain "docgrind/internal/modules/content/domain"
	positiondomain "docgrind/internal/modules/position/domain"
	"docgrind/internal/platform/clock"
	apperrors "docgrind/internal/platform/errors"
	"docgrind/internal/platform/id"
)

const (
	HeadingDwell       = 30 * time.Second
	milestoneTolerance = 1.0
	milestoneProximity = 5.0
	autoTitleRunes     = 50
	snippetRunes       = 100
)

var milestones = []float64{25, 50, 75, 100}

// Manager owns the bookmarks of one document. Every mutation reports the
// full sorted set to the OnChange observer.
type Manager struct {
	documentID string
	clock      clock.Clock
	ids        id.Generator
	log        zerolog.Logger
	bookmarks  map[string]domain.Bookmark
	onChange   func([]domain.Bookmark)
}

func NewManager(documentID string, clk clock.Clock, ids id.Generator, log zerolog.Logger) *Manager {
	if ids == nil {
		ids = id.Prefixed{Prefix: "bookmark", Gen: id.UUID{}}
	}
	return &Manager{
		documentID: documentID,
		clock:      clk,
		ids:        ids,
		log:        log.With().Str("document_id", documentID).Logger(),
		bookmarks:  map[string]domain.Bookmark{},
	}
}

func (m *Manager) OnChange(fn func([]domain.Bookmark)) { m.onChange = fn }

func (m *Manager) CreateBookmark(pos positiondomain.ReadingPosition, title, description string, tags []string, notes string) (domain.Bookmark, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Bookmark{}, fmt.Errorf("create bookmark: title is required: %w", apperrors.ErrInvalidInput)
	}
	b := domain.Bookmark{
		ID:          m.ids.New(),
		DocumentID:  m.documentID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Position:    pos.Normalize(),
		CreatedAt:   clock.Millis(m.clock.Now()),
		Tags:        NormalizeTags(tags),
		Notes:       strings.TrimSpace(notes),
	}
	m.bookmarks[b.ID] = b
	m.log.Debug().Str("bookmark_id", b.ID).Str("title", b.Title).Msg("bookmark created")
	m.notify()
	return b.Clone(), nil
}

// CreateBookmarkAtPosition titles the bookmark after the element or the
// current chapter when no title is given.
func (m *Manager) CreateBookmarkAtPosition(pos positiondomain.ReadingPosition, el *contentdomain.ContentElement, title string) (domain.Bookmark, error) {
	if strings.TrimSpace(title) == "" {
		title = autoTitle(pos, el)
	}
	description := ""
	if el != nil {
		description = truncate(el.TextContent, snippetRunes, "...")
	}
	return m.CreateBookmark(pos, title, description, nil, "")
}

func (m *Manager) UpdateBookmark(id string, update domain.Update) (domain.Bookmark, bool) {
	b, ok := m.bookmarks[id]
	if !ok {
		return domain.Bookmark{}, false
	}
	if update.Title != nil {
		if title := strings.TrimSpace(*update.Title); title != "" {
			b.Title = title
		}
	}
	if update.Description != nil {
		b.Description = strings.TrimSpace(*update.Description)
	}
	if update.Notes != nil {
		b.Notes = strings.TrimSpace(*update.Notes)
	}
	if update.Tags != nil {
		b.Tags = NormalizeTags(update.Tags)
	}
	m.bookmarks[id] = b
	m.notify()
	return b.Clone(), true
}

func (m *Manager) DeleteBookmark(id string) bool {
	if _, ok := m.bookmarks[id]; !ok {
		m.log.Debug().Str("bookmark_id", id).Msg("delete unknown bookmark")
		return false
	}
	delete(m.bookmarks, id)
	m.notify()
	return true
}

// AccessBookmark stamps the bookmark as just used.
func (m *Manager) AccessBookmark(id string) (domain.Bookmark, bool) {
	b, ok := m.bookmarks[id]
	if !ok {
		return domain.Bookmark{}, false
	}
	b.LastAccessed = clock.Millis(m.clock.Now())
	m.bookmarks[id] = b
	m.notify()
	return b.Clone(), true
}

func (m *Manager) GetBookmark(id string) (domain.Bookmark, bool) {
	b, ok := m.bookmarks[id]
	if !ok {
		return domain.Bookmark{}, false
	}
	return b.Clone(), true
}

// GetAllBookmarks returns the newest bookmarks first.
func (m *Manager) GetAllBookmarks() []domain.Bookmark {
	out := make([]domain.Bookmark, 0, len(m.bookmarks))
	for _, b := range m.bookmarks {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Manager) GetBookmarksByTag(tag string) []domain.Bookmark {
	tag = normalizeTag(tag)
	return m.filter(func(b domain.Bookmark) bool { return b.HasTag(tag) })
}

// GetBookmarksByRange selects bookmarks whose scroll percentage lies in
// [startPct, endPct].
func (m *Manager) GetBookmarksByRange(startPct, endPct float64) []domain.Bookmark {
	return m.filter(func(b domain.Bookmark) bool {
		pct := b.Position.ScrollPercentage
		return pct >= startPct && pct <= endPct
	})
}

// SearchBookmarks matches a case-folded substring against the title,
// description, notes and tags.
func (m *Manager) SearchBookmarks(query string) []domain.Bookmark {
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))
	return m.filter(func(b domain.Bookmark) bool {
		for _, field := range append([]string{b.Title, b.Description, b.Notes}, b.Tags...) {
			if strings.Contains(fold.String(field), q) {
				return true
			}
		}
		return false
	})
}

// GetClosestBookmark picks the smallest scroll percentage distance. Ties go
// to the newer bookmark.
func (m *Manager) GetClosestBookmark(pos positiondomain.ReadingPosition) (domain.Bookmark, bool) {
	var closest domain.Bookmark
	found := false
	best := math.Inf(1)
	for _, b := range m.GetAllBookmarks() {
		if d := math.Abs(b.Position.ScrollPercentage - pos.ScrollPercentage); d < best {
			best, closest, found = d, b, true
		}
	}
	return closest, found
}

// ShouldCreateAutoBookmark holds after a long dwell on a heading that has no
// auto-bookmark yet, or near an unbookmarked progress milestone.
func (m *Manager) ShouldCreateAutoBookmark(pos positiondomain.ReadingPosition, el *contentdomain.ContentElement, timeSpent time.Duration) bool {
	return m.dwellTriggered(el, timeSpent) || m.milestoneTriggered(pos)
}

func (m *Manager) CreateAutoBookmark(pos positiondomain.ReadingPosition, el *contentdomain.ContentElement, timeSpent time.Duration) (domain.Bookmark, bool) {
	var title, description string
	switch {
	case m.dwellTriggered(el, timeSpent):
		title = headingTitle(el)
		description = "Auto-bookmark: Extended reading time"
	case m.milestoneTriggered(pos):
		pct := math.Round(pos.ScrollPercentage)
		title = fmt.Sprintf("%.0f%% Complete", pct)
		description = fmt.Sprintf("Auto-bookmark: %.0f%% progress milestone", pct)
	default:
		return domain.Bookmark{}, false
	}
	b, err := m.CreateBookmark(pos, title, description, []string{domain.AutoTag}, "")
	if err != nil {
		m.log.Debug().Err(err).Msg("skip auto-bookmark")
		return domain.Bookmark{}, false
	}
	return b, true
}

func (m *Manager) dwellTriggered(el *contentdomain.ContentElement, timeSpent time.Duration) bool {
	if el == nil || el.Type != contentdomain.TypeHeading || timeSpent <= HeadingDwell {
		return false
	}
	return !m.hasAutoTitled(headingTitle(el))
}

func (m *Manager) milestoneTriggered(pos positiondomain.ReadingPosition) bool {
	for _, milestone := range milestones {
		if math.Abs(pos.ScrollPercentage-milestone) < milestoneTolerance && !m.nearMilestone(milestone) {
			return true
		}
	}
	return false
}

// ImportBookmarks adds the valid entries. An id already in use gets a
// numeric suffix instead of replacing the existing bookmark.
func (m *Manager) ImportBookmarks(list []domain.Bookmark) int {
	imported := 0
	for _, b := range list {
		if err := b.Validate(); err != nil {
			m.log.Debug().Err(err).Msg("skip invalid bookmark")
			continue
		}
		b = b.Clone()
		base := b.ID
		for n := 1; m.exists(b.ID); n++ {
			b.ID = fmt.Sprintf("%s-%d", base, n)
		}
		m.bookmarks[b.ID] = b
		imported++
	}
	if imported > 0 {
		m.log.Debug().Int("count", imported).Msg("bookmarks imported")
		m.notify()
	}
	return imported
}

func (m *Manager) ExportBookmarks() []domain.Bookmark {
	return m.GetAllBookmarks()
}

// LoadBookmarks replaces the set with the valid entries of list.
func (m *Manager) LoadBookmarks(list []domain.Bookmark) int {
	m.bookmarks = make(map[string]domain.Bookmark, len(list))
	for _, b := range list {
		if err := b.Validate(); err != nil {
			m.log.Debug().Err(err).Msg("skip stored bookmark")
			continue
		}
		m.bookmarks[b.ID] = b.Clone()
	}
	m.notify()
	return len(m.bookmarks)
}

func (m *Manager) ClearAllBookmarks() {
	if len(m.bookmarks) == 0 {
		return
	}
	m.bookmarks = map[string]domain.Bookmark{}
	m.notify()
}

func (m *Manager) Stats() domain.Stats {
	all := m.GetAllBookmarks()
	stats := domain.Stats{Total: len(all), ByTag: map[string]int{}}
	if len(all) == 0 {
		return stats
	}
	var sum float64
	for i := range all {
		b := &all[i]
		sum += b.Position.ScrollPercentage
		for _, tag := range b.Tags {
			stats.ByTag[tag]++
		}
		if b.IsAuto() {
			stats.Auto++
		}
		if b.LastAccessed > 0 && (stats.MostUsed == nil || b.LastAccessed > stats.MostUsed.LastAccessed) {
			stats.MostUsed = b
		}
	}
	stats.AveragePosition = sum / float64(len(all))
	stats.Newest = &all[0]
	stats.Oldest = &all[len(all)-1]
	return stats
}

// NormalizeTags trims and lower-cases tags, dropping empties and duplicates.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = normalizeTag(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func normalizeTag(tag string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(tag))
}

func (m *Manager) filter(keep func(domain.Bookmark) bool) []domain.Bookmark {
	var out []domain.Bookmark
	for _, b := range m.GetAllBookmarks() {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

func (m *Manager) exists(id string) bool {
	_, ok := m.bookmarks[id]
	return ok
}

func (m *Manager) nearMilestone(milestone float64) bool {
	for _, b := range m.bookmarks {
		if math.Abs(b.Position.ScrollPercentage-milestone) < milestoneProximity {
			return true
		}
	}
	return false
}

func (m *Manager) hasAutoTitled(title string) bool {
	for _, b := range m.bookmarks {
		if b.IsAuto() && b.Title == title {
			return true
		}
	}
	return false
}

func (m *Manager) notify() {
	if m.onChange != nil {
		m.onChange(m.GetAllBookmarks())
	}
}

func headingTitle(el *contentdomain.ContentElement) string {
	return truncate(el.TextContent, autoTitleRunes, "")
}

func autoTitle(pos positiondomain.ReadingPosition, el *contentdomain.ContentElement) string {
	pct := math.Round(pos.ScrollPercentage)
	switch {
	case el != nil && el.Type == contentdomain.TypeHeading:
		return truncate(el.TextContent, autoTitleRunes, "...")
	case pos.CurrentChapter != "":
		return fmt.Sprintf("%s (%.0f%%)", pos.CurrentChapter, pct)
	default:
		return fmt.Sprintf("Bookmark at %.0f%%", pct)
	}
}

func truncate(s string, n int, ellipsis string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n])) + ellipsis
}
