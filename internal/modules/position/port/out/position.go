package out

import "docgrind/internal/modules/position/domain"

// Node is a document element the tracker can measure.
type Node interface {
	ID() string
	SetID(id string)
	Tag() string
	Text() string
	OffsetTop() float64
	Height() float64
}

type Document interface {
	// Query returns nodes inside the first container match that satisfy any
	// selector, in document order. A missing container is apperrors.ErrNotFound.
	Query(containerSelector string, selectors []string) ([]Node, error)
	FindByID(id string) (Node, bool)
}

type Viewport interface {
	ScrollTop() float64
	Height() float64
	DocumentHeight() float64
	ScrollTo(top float64)
}

type IntersectionObserver interface {
	Observe(node Node)
	Unobserve(id string)
	Disconnect()
}

// Poller is implemented by observers that compute visibility on demand
// instead of receiving it from the host.
type Poller interface {
	Poll()
}

// ObserverFactory builds an observer that reports threshold crossings to handler.
type ObserverFactory func(thresholds []float64, handler func([]domain.IntersectionEntry)) (IntersectionObserver, error)
