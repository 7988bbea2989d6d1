package domain

import (
	"math"

	contentdomain "docgrind/internal/modules/content/domain"
)

// ReadingPosition is a snapshot of where the reader is. Timestamp is epoch ms.
type ReadingPosition struct {
	DocumentID       string  `json:"documentId"`
	ScrollTop        float64 `json:"scrollTop"`
	DocumentHeight   float64 `json:"documentHeight"`
	ScrollPercentage float64 `json:"scrollPercentage"`
	Timestamp        int64   `json:"timestamp"`
	CurrentElementID string  `json:"currentElementId,omitempty"`
	CurrentChapter   string  `json:"currentChapter,omitempty"`
	SessionID        string  `json:"sessionId"`
}

// ScrollPercentage is scrollTop over the scrollable extent, clamped to [0,100].
// A document that fits inside the viewport is fully in view; an unknown
// document height reports 0.
func ScrollPercentage(scrollTop, documentHeight, viewportHeight float64) float64 {
	if documentHeight <= 0 {
		return 0
	}
	extent := documentHeight - viewportHeight
	if extent <= 0 {
		return 100
	}
	return clamp(scrollTop/extent*100, 0, 100)
}

// Normalize clamps the numeric fields into their valid ranges.
func (p ReadingPosition) Normalize() ReadingPosition {
	if p.ScrollTop < 0 || math.IsNaN(p.ScrollTop) {
		p.ScrollTop = 0
	}
	if p.DocumentHeight < 0 || math.IsNaN(p.DocumentHeight) {
		p.DocumentHeight = 0
	}
	if math.IsNaN(p.ScrollPercentage) {
		p.ScrollPercentage = 0
	}
	p.ScrollPercentage = clamp(p.ScrollPercentage, 0, 100)
	return p
}

// AtEnd reports whether the reader has reached the bottom of the document.
func (p ReadingPosition) AtEnd() bool {
	return p.ScrollPercentage >= 100
}

// ElementProgress is the fraction of the element that has scrolled above
// the top of the viewport, in [0,1]. Once the reader reaches the end of the
// document every element counts as read. The value depends only on geometry
// and never on visibility or dwell time.
func ElementProgress(el contentdomain.ContentElement, pos ReadingPosition) float64 {
	if pos.AtEnd() {
		return 1
	}
	if el.Height <= 0 {
		if pos.ScrollTop > el.OffsetTop {
			return 1
		}
		return 0
	}
	return clamp((pos.ScrollTop-el.OffsetTop)/el.Height, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
