package out

import (
	"math"

	"docgrind/internal/modules/position/domain"
	positionout "docgrind/internal/modules/position/port/out"
)

// PollingObserver computes intersection ratios from node geometry whenever it
// is polled and reports only the entries whose threshold step changed.
type PollingObserver struct {
	viewport   positionout.Viewport
	thresholds []float64
	handler    func([]domain.IntersectionEntry)
	nodes      []positionout.Node
	steps      map[string]int
}

// NewPollingObserverFactory returns a factory bound to viewport.
func NewPollingObserverFactory(viewport positionout.Viewport) positionout.ObserverFactory {
	return func(thresholds []float64, handler func([]domain.IntersectionEntry)) (positionout.IntersectionObserver, error) {
		return &PollingObserver{
			viewport:   viewport,
			thresholds: thresholds,
			handler:    handler,
			steps:      map[string]int{},
		}, nil
	}
}

func (o *PollingObserver) Observe(node positionout.Node) {
	o.nodes = append(o.nodes, node)
}

func (o *PollingObserver) Unobserve(id string) {
	kept := o.nodes[:0]
	for _, n := range o.nodes {
		if n.ID() != id {
			kept = append(kept, n)
		}
	}
	o.nodes = kept
	delete(o.steps, id)
}

func (o *PollingObserver) Disconnect() {
	o.nodes = nil
	o.steps = map[string]int{}
}

// Poll measures every observed node. The first poll reports all of them.
func (o *PollingObserver) Poll() {
	if o.handler == nil {
		return
	}
	var batch []domain.IntersectionEntry
	for _, n := range o.nodes {
		ratio, intersecting := o.measure(n)
		step := -1
		if intersecting {
			step = domain.ThresholdStep(o.thresholds, ratio)
		}
		prev, seen := o.steps[n.ID()]
		if seen && prev == step {
			continue
		}
		o.steps[n.ID()] = step
		batch = append(batch, domain.IntersectionEntry{ID: n.ID(), Ratio: ratio, IsIntersecting: intersecting})
	}
	if len(batch) > 0 {
		o.handler(batch)
	}
}

func (o *PollingObserver) measure(n positionout.Node) (float64, bool) {
	top := o.viewport.ScrollTop()
	bottom := top + o.viewport.Height()
	elTop := n.OffsetTop()
	height := n.Height()
	if height <= 0 {
		if elTop >= top && elTop < bottom {
			return 1, true
		}
		return 0, false
	}
	overlap := math.Min(elTop+height, bottom) - math.Max(elTop, top)
	if overlap <= 0 {
		return 0, false
	}
	return math.Min(1, overlap/height), true
}
