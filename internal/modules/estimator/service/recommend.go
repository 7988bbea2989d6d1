package service

import (
	"fmt"
	"math"
	"time"

	"docgrind/internal/modules/estimator/domain"
	progressdomain "docgrind/internal/modules/progress/domain"
)

func (e *Estimator) Recommendations(analytics progressdomain.Analytics, estimate domain.Estimate) []string {
	var out []string
	switch {
	case analytics.AverageReadingSpeed < 150:
		out = append(out, "Consider practicing speed reading techniques to improve your reading pace")
	case analytics.AverageReadingSpeed > 300:
		out = append(out, "Your reading speed is excellent! Consider focusing on comprehension")
	}
	if analytics.SessionCount > 5 {
		minutes := time.Duration(analytics.AverageSessionDuration * float64(time.Millisecond)).Minutes()
		switch {
		case minutes < 15:
			out = append(out, "Try longer reading sessions for better focus and comprehension")
		case minutes > 60:
			out = append(out, "Consider taking breaks during long reading sessions")
		}
	}
	if time.Duration(estimate.RemainingTime)*time.Millisecond > 2*time.Hour {
		out = append(out, "Break this long read into multiple sessions for better retention")
	}
	if analytics.CompletionRate < 50 {
		out = append(out, "Focus on completing shorter documents to build reading habits")
	}
	return out
}

// FormatTime renders ms as "1h 5m", "4m 10s" or "12s".
func FormatTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	hours, minutes, seconds := total/3600, total%3600/60, total%60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

func FormatSpeed(wpm float64) string {
	return fmt.Sprintf("%d WPM", int64(math.Round(wpm)))
}
