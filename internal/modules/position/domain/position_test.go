package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contentdomain "docgrind/internal/modules/content/domain"
	"docgrind/internal/modules/position/domain"
)

func TestScrollPercentage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, domain.ScrollPercentage(0, 2000, 800))
	assert.Equal(t, 50.0, domain.ScrollPercentage(600, 2000, 800))
	assert.Equal(t, 100.0, domain.ScrollPercentage(5000, 2000, 800))
	assert.Equal(t, 0.0, domain.ScrollPercentage(-20, 2000, 800))
	assert.Equal(t, 100.0, domain.ScrollPercentage(0, 500, 800))
	assert.Equal(t, 0.0, domain.ScrollPercentage(0, 0, 800))
}

func TestElementProgressIsGeometric(t *testing.T) {
	t.Parallel()
	el := contentdomain.ContentElement{ID: "p", OffsetTop: 100, Height: 200}
	at := func(top, pct float64) float64 {
		return domain.ElementProgress(el, domain.ReadingPosition{ScrollTop: top, ScrollPercentage: pct})
	}
	assert.Equal(t, 0.0, at(50, 5))
	assert.Equal(t, 0.5, at(200, 20))
	assert.Equal(t, 1.0, at(300, 30))
	assert.Equal(t, 1.0, at(0, 100))

	visible := el
	visible.SetVisibility(100)
	assert.Equal(t, at(200, 20), domain.ElementProgress(visible, domain.ReadingPosition{ScrollTop: 200, ScrollPercentage: 20}))

	flat := contentdomain.ContentElement{OffsetTop: 100}
	assert.Equal(t, 0.0, domain.ElementProgress(flat, domain.ReadingPosition{ScrollTop: 100}))
	assert.Equal(t, 1.0, domain.ElementProgress(flat, domain.ReadingPosition{ScrollTop: 101}))
}

func TestShortPageReadsAsCompleteAtTop(t *testing.T) {
	t.Parallel()
	el := contentdomain.ContentElement{ID: "p", OffsetTop: 200, Height: 200}
	pos := domain.ReadingPosition{ScrollTop: 0, DocumentHeight: 500, ScrollPercentage: domain.ScrollPercentage(0, 500, 800)}
	assert.True(t, pos.AtEnd())
	assert.Equal(t, 1.0, domain.ElementProgress(el, pos))
}

func TestElementProgressNeverDecreasesWhileScrollingForward(t *testing.T) {
	t.Parallel()
	el := contentdomain.ContentElement{OffsetTop: 400, Height: 300}
	prev := 0.0
	for top := 0.0; top <= 1200; top += 37 {
		got := domain.ElementProgress(el, domain.ReadingPosition{ScrollTop: top, ScrollPercentage: domain.ScrollPercentage(top, 2000, 800)})
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestNormalizeClamps(t *testing.T) {
	t.Parallel()
	p := domain.ReadingPosition{ScrollTop: -5, DocumentHeight: -1, ScrollPercentage: 140}.Normalize()
	assert.Equal(t, 0.0, p.ScrollTop)
	assert.Equal(t, 0.0, p.DocumentHeight)
	assert.Equal(t, 100.0, p.ScrollPercentage)
	assert.True(t, p.AtEnd())
}

func TestThresholds(t *testing.T) {
	t.Parallel()
	th, err := domain.ValidateThresholds([]float64{1, 0.5, 0, 0.25})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 0.5, 1}, th)
	assert.Equal(t, 2, domain.ThresholdStep(th, 0.6))
	assert.Equal(t, 3, domain.ThresholdStep(th, 1))
	assert.Equal(t, -1, domain.ThresholdStep([]float64{0.1}, 0.05))

	_, err = domain.ValidateThresholds([]float64{2})
	assert.Error(t, err)
}
