package in

import (
	"time"

	contentdomain "docgrind/internal/modules/content/domain"
	"docgrind/internal/modules/estimator/domain"
	positiondomain "docgrind/internal/modules/position/domain"
	progressdomain "docgrind/internal/modules/progress/domain"
)

type Estimator interface {
	EstimateReadingTime(elements []contentdomain.ContentElement, pos positiondomain.ReadingPosition, opts domain.Options) domain.Estimate
	ElementTime(el contentdomain.ContentElement, difficulty domain.Difficulty, userSpeed float64) time.Duration
	CalculateReadingSpeed(sessions []progressdomain.Session) domain.SpeedMetrics
	Recommendations(analytics progressdomain.Analytics, estimate domain.Estimate) []string
}
