package domain

import (
	"fmt"
	"sort"

	contentdomain "docgrind/internal/modules/content/domain"
)

// IntersectionEntry reports how much of an observed element is in view.
// Ratio is in [0,1].
type IntersectionEntry struct {
	ID             string
	Ratio          float64
	IsIntersecting bool
}

// ResizeEntry carries new geometry for an element.
type ResizeEntry struct {
	ID        string
	OffsetTop float64
	Height    float64
}

// Callbacks receive tracker events. Any of them may be nil.
type Callbacks struct {
	OnPositionChange func(ReadingPosition)
	OnElementVisible func(contentdomain.ContentElement)
	OnElementHidden  func(contentdomain.ContentElement)
	OnError          func(error)
}

// ValidateThresholds checks that thresholds are within [0,1] and returns
// them sorted.
func ValidateThresholds(thresholds []float64) ([]float64, error) {
	out := append([]float64(nil), thresholds...)
	for _, th := range out {
		if th < 0 || th > 1 {
			return nil, fmt.Errorf("threshold %.2f outside [0,1]", th)
		}
	}
	sort.Float64s(out)
	return out, nil
}

// ThresholdStep returns the index of the highest threshold not above ratio,
// or -1 when ratio is below every threshold. Thresholds must be sorted.
func ThresholdStep(thresholds []float64, ratio float64) int {
	step := -1
	for i, th := range thresholds {
		if ratio >= th {
			step = i
		}
	}
	return step
}
