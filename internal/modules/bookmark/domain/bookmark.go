package domain

import (
	"fmt"
	"math"
	"strings"

	positiondomain "docgrind/internal/modules/position/domain"
	apperrors "docgrind/internal/platform/errors"
)

// AutoTag marks bookmarks created by the dwell-time and milestone heuristics.
const AutoTag = "auto-bookmark"

// Bookmark is a saved reading position. Position is an independent copy of
// the live position at creation time. Times are epoch ms.
type Bookmark struct {
	ID           string                         `json:"id"`
	DocumentID   string                         `json:"documentId"`
	Title        string                         `json:"title"`
	Description  string                         `json:"description,omitempty"`
	Position     positiondomain.ReadingPosition `json:"position"`
	CreatedAt    int64                          `json:"createdAt"`
	LastAccessed int64                          `json:"lastAccessed,omitempty"`
	Tags         []string                       `json:"tags"`
	Notes        string                         `json:"notes,omitempty"`
}

// Update carries the fields of a partial bookmark edit. Nil fields are left
// unchanged. A non-nil Tags slice replaces the existing tags, even when empty.
type Update struct {
	Title       *string
	Description *string
	Notes       *string
	Tags        []string
}

type Stats struct {
	Total           int            `json:"total"`
	Auto            int            `json:"auto"`
	ByTag           map[string]int `json:"byTag"`
	AveragePosition float64        `json:"averagePosition"`
	Oldest          *Bookmark      `json:"oldest,omitempty"`
	Newest          *Bookmark      `json:"newest,omitempty"`
	MostUsed        *Bookmark      `json:"mostUsed,omitempty"`
}

func (b Bookmark) Validate() error {
	switch {
	case strings.TrimSpace(b.ID) == "":
		return fmt.Errorf("bookmark id is required: %w", apperrors.ErrInvalidInput)
	case strings.TrimSpace(b.DocumentID) == "":
		return fmt.Errorf("bookmark %s: document id is required: %w", b.ID, apperrors.ErrInvalidInput)
	case strings.TrimSpace(b.Title) == "":
		return fmt.Errorf("bookmark %s: title is required: %w", b.ID, apperrors.ErrInvalidInput)
	case b.CreatedAt <= 0:
		return fmt.Errorf("bookmark %s: created at is required: %w", b.ID, apperrors.ErrInvalidInput)
	}
	pct := b.Position.ScrollPercentage
	if math.IsNaN(pct) || pct < 0 || pct > 100 {
		return fmt.Errorf("bookmark %s: scroll percentage %v out of range: %w", b.ID, pct, apperrors.ErrInvalidInput)
	}
	return nil
}

func (b Bookmark) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (b Bookmark) IsAuto() bool { return b.HasTag(AutoTag) }

// Clone returns a copy that shares no slices with b.
func (b Bookmark) Clone() Bookmark {
	if b.Tags != nil {
		b.Tags = append([]string{}, b.Tags...)
	}
	return b
}
