package domain

import (
	"fmt"
	"strings"

	apperrors "docgrind/internal/platform/errors"
)

type Difficulty string

const (
	DifficultyDefault   Difficulty = "default"
	DifficultyTechnical Difficulty = "technical"
	DifficultyAcademic  Difficulty = "academic"
	DifficultyNarrative Difficulty = "narrative"
	DifficultyCasual    Difficulty = "casual"
)

var multipliers = map[Difficulty]float64{
	DifficultyDefault:   1.0,
	DifficultyTechnical: 0.7,
	DifficultyAcademic:  0.8,
	DifficultyNarrative: 1.2,
	DifficultyCasual:    1.1,
}

// ParseDifficulty accepts the known difficulty names; empty means default.
func ParseDifficulty(raw string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(raw)))
	if d == "" {
		return DifficultyDefault, nil
	}
	if _, ok := multipliers[d]; !ok {
		return "", fmt.Errorf("difficulty %q: %w", raw, apperrors.ErrInvalidInput)
	}
	return d, nil
}

// Multiplier scales reading speed. Unknown difficulties read at default speed.
func (d Difficulty) Multiplier() float64 {
	if m, ok := multipliers[d]; ok {
		return m
	}
	return 1.0
}

// Options tailor an estimate. A zero UserSpeed means no per-user speed is known.
type Options struct {
	UserSpeed  float64
	Difficulty Difficulty
}

// Breakdown splits estimated time (ms) by content category.
type Breakdown struct {
	Text   int64 `json:"text"`
	Code   int64 `json:"code"`
	Images int64 `json:"images"`
	Other  int64 `json:"other"`
}

// Estimate is a reading time prediction. Durations are ms and
// CompletionTime is an epoch ms timestamp.
type Estimate struct {
	TotalReadingTime int64     `json:"totalReadingTime"`
	RemainingTime    int64     `json:"remainingTime"`
	CompletionTime   int64     `json:"completionTime"`
	Confidence       float64   `json:"confidence"`
	Breakdown        Breakdown `json:"breakdown"`
}

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// SpeedMetrics summarizes reading speed (wpm) over a session history.
type SpeedMetrics struct {
	Current     float64 `json:"current"`
	Average     float64 `json:"average"`
	Trend       Trend   `json:"trend"`
	Consistency float64 `json:"consistency"`
	Efficiency  float64 `json:"efficiency"`
}

// DefaultSpeedMetrics is reported when there is no usable history.
func DefaultSpeedMetrics() SpeedMetrics {
	return SpeedMetrics{Current: 200, Average: 200, Trend: TrendStable}
}
