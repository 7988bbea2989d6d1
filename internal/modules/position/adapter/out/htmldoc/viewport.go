package htmldoc

import "math"

// Viewport is a fixed-height window scrolled over a Document.
type Viewport struct {
	doc    *Document
	height float64
	top    float64
}

func NewViewport(doc *Document, height float64) *Viewport {
	return &Viewport{doc: doc, height: height}
}

func (v *Viewport) ScrollTop() float64      { return v.top }
func (v *Viewport) Height() float64         { return v.height }
func (v *Viewport) DocumentHeight() float64 { return v.doc.Height() }

// MaxScroll is the largest reachable scrollTop.
func (v *Viewport) MaxScroll() float64 {
	return math.Max(0, v.doc.Height()-v.height)
}

// ScrollTo moves the window, clamped to the scrollable range.
func (v *Viewport) ScrollTo(top float64) {
	v.top = math.Min(math.Max(0, top), v.MaxScroll())
}
