package domain

import (
	"sort"
	"strings"
	"unicode/utf8"
)

type ElementType string

const (
	TypeHeading   ElementType = "heading"
	TypeParagraph ElementType = "paragraph"
	TypeCode      ElementType = "code"
	TypeImage     ElementType = "image"
	TypeList      ElementType = "list"
	TypeTable     ElementType = "table"
	TypeOther     ElementType = "other"
)

// ContentElement is one trackable block of a document. Offsets and heights
// are in layout pixels, EstimatedReadingTime in milliseconds.
type ContentElement struct {
	ID                   string      `json:"id"`
	Type                 ElementType `json:"type"`
	Level                int         `json:"level,omitempty"`
	TextContent          string      `json:"textContent"`
	WordCount            int         `json:"wordCount"`
	CharacterCount       int         `json:"characterCount"`
	OffsetTop            float64     `json:"offsetTop"`
	Height               float64     `json:"height"`
	EstimatedReadingTime float64     `json:"estimatedReadingTime"`
	IsVisible            bool        `json:"isVisible"`
	VisibilityPercentage float64     `json:"visibilityPercentage"`
}

// TypeForTag classifies an HTML tag name.
func TypeForTag(tag string) ElementType {
	switch strings.ToLower(tag) {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return TypeHeading
	case "p":
		return TypeParagraph
	case "pre", "code":
		return TypeCode
	case "img":
		return TypeImage
	case "ul", "ol", "li":
		return TypeList
	case "table", "tr", "td", "th":
		return TypeTable
	default:
		return TypeOther
	}
}

// HeadingLevel returns 1-6 for h1-h6 and 0 otherwise.
func HeadingLevel(tag string) int {
	t := strings.ToLower(tag)
	if len(t) == 2 && t[0] == 'h' && t[1] >= '1' && t[1] <= '6' {
		return int(t[1] - '0')
	}
	return 0
}

// CountWords counts whitespace separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// New builds an element from a scanned node. wpm drives the naive reading
// estimate; a non-positive wpm leaves it at zero.
func New(id, tag, text string, offsetTop, height, wpm float64) ContentElement {
	text = strings.TrimSpace(text)
	words := CountWords(text)
	el := ContentElement{
		ID:             id,
		Type:           TypeForTag(tag),
		Level:          HeadingLevel(tag),
		TextContent:    text,
		WordCount:      words,
		CharacterCount: utf8.RuneCountInString(text),
		OffsetTop:      offsetTop,
		Height:         height,
	}
	if wpm > 0 {
		el.EstimatedReadingTime = float64(words) / wpm * 60000
	}
	return el
}

// SetVisibility clamps pct to [0,100] and keeps IsVisible consistent with it.
func (e *ContentElement) SetVisibility(pct float64) {
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	e.VisibilityPercentage = pct
	e.IsVisible = pct > 0
}

// Bottom is the layout offset of the element's lower edge.
func (e ContentElement) Bottom() float64 {
	return e.OffsetTop + e.Height
}

// SortByOffset returns a copy ordered by OffsetTop, keeping document order for ties.
func SortByOffset(elements []ContentElement) []ContentElement {
	out := append([]ContentElement(nil), elements...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OffsetTop < out[j].OffsetTop })
	return out
}

// TotalWords sums word counts.
func TotalWords(elements []ContentElement) int {
	n := 0
	for _, e := range elements {
		n += e.WordCount
	}
	return n
}
