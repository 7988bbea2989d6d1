package service

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	contentdomain "docgrind/internal/modules/content/domain"
	"docgrind/internal/modules/estimator/domain"
	positiondomain "docgrind/internal/modules/position/domain"
	progressdomain "docgrind/internal/modules/progress/domain"
	"docgrind/internal/platform/clock"
)

const (
	referenceSpeed = 200.0
	minimumSpeed   = 50.0
	imageTime      = 60 * time.Second
	recentSessions = 5
)

// Words per minute by element type, before any adjustment.
var baseSpeeds = map[contentdomain.ElementType]float64{
	contentdomain.TypeHeading:   300,
	contentdomain.TypeParagraph: 200,
	contentdomain.TypeCode:      100,
	contentdomain.TypeList:      250,
	contentdomain.TypeTable:     150,
	contentdomain.TypeOther:     200,
}

var (
	sentenceBreak = regexp.MustCompile(`[.!?]+`)
	longWord      = regexp.MustCompile(`\b\w{8,}\b`)
	mathNotation  = regexp.MustCompile(`\$[^$]+\$|\\\([^)]+\\\)`)
)

// Estimator predicts reading time. The output depends only on its inputs
// and the clock.
type Estimator struct {
	clock clock.Clock
	log   zerolog.Logger
}

func NewEstimator(clk clock.Clock, log zerolog.Logger) *Estimator {
	return &Estimator{clock: clk, log: log}
}

func (e *Estimator) EstimateReadingTime(elements []contentdomain.ContentElement, pos positiondomain.ReadingPosition, opts domain.Options) domain.Estimate {
	var est domain.Estimate
	types := map[contentdomain.ElementType]bool{}
	for _, el := range contentdomain.SortByOffset(elements) {
		types[el.Type] = true
		spent := e.ElementTime(el, opts.Difficulty, opts.UserSpeed).Milliseconds()
		est.TotalReadingTime += spent
		switch el.Type {
		case contentdomain.TypeParagraph:
			est.Breakdown.Text += spent
		case contentdomain.TypeCode:
			est.Breakdown.Code += spent
		case contentdomain.TypeImage:
			est.Breakdown.Images += spent
		default:
			est.Breakdown.Other += spent
		}
		if positiondomain.ElementProgress(el, pos) < 0.5 {
			est.RemainingTime += spent
		}
	}
	est.CompletionTime = clock.Millis(e.clock.Now()) + est.RemainingTime

	confidence := 0.5 + math.Min(0.3, float64(len(elements))/100)
	if opts.UserSpeed > 0 {
		confidence += 0.2
	}
	confidence += math.Min(0.2, float64(len(types))/6)
	est.Confidence = math.Min(1, confidence)
	e.log.Debug().
		Int("elements", len(elements)).
		Int64("remaining_ms", est.RemainingTime).
		Float64("confidence", est.Confidence).
		Msg("reading time estimated")
	return est
}

// ElementTime estimates how long one element takes to read. Images take a
// flat minute. A positive userSpeed scales the per-type speed table
// relative to the 200 wpm reference reader.
func (e *Estimator) ElementTime(el contentdomain.ContentElement, difficulty domain.Difficulty, userSpeed float64) time.Duration {
	if el.Type == contentdomain.TypeImage {
		return imageTime
	}
	base, ok := baseSpeeds[el.Type]
	if !ok {
		base = baseSpeeds[contentdomain.TypeOther]
	}
	if userSpeed > 0 {
		base *= userSpeed / referenceSpeed
	}
	wpm := adjustForContent(base*difficulty.Multiplier(), el.TextContent)
	minutes := float64(el.WordCount) / wpm
	return time.Duration(math.Round(minutes * float64(time.Minute)))
}

func adjustForContent(wpm float64, text string) float64 {
	content := strings.ToLower(text)
	words := len(strings.Fields(content))

	sentences := 0
	for _, s := range sentenceBreak.Split(content, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	avgSentence := 0.0
	if sentences > 0 {
		avgSentence = float64(words) / float64(sentences)
	}
	switch {
	case avgSentence > 20:
		wpm *= 0.9
	case avgSentence < 10:
		wpm *= 1.1
	}

	ratio := float64(len(longWord.FindAllString(content, -1))) / math.Max(1, float64(words))
	switch {
	case ratio > 0.3:
		wpm *= 0.8
	case ratio < 0.1:
		wpm *= 1.1
	}

	if strings.Contains(content, "```") || strings.Contains(content, "<code>") {
		wpm *= 0.6
	}
	if mathNotation.MatchString(content) {
		wpm *= 0.7
	}
	return math.Max(wpm, minimumSpeed)
}

// CalculateReadingSpeed summarizes sessions with a positive speed and
// active time. Without any, it reports the 200 wpm default profile.
func (e *Estimator) CalculateReadingSpeed(sessions []progressdomain.Session) domain.SpeedMetrics {
	valid := make([]progressdomain.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.ReadingSpeed > 0 && s.TotalTime > 0 && !math.IsInf(s.ReadingSpeed, 0) {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return domain.DefaultSpeedMetrics()
	}
	recent := valid
	if len(recent) > recentSessions {
		recent = recent[len(recent)-recentSessions:]
	}
	return domain.SpeedMetrics{
		Current:     weightedSpeed(recent),
		Average:     meanSpeed(valid),
		Trend:       trend(recent),
		Consistency: consistency(valid),
		Efficiency:  efficiency(valid),
	}
}

// weightedSpeed weighs the i-th session by 1.5^i so the newest counts most.
func weightedSpeed(sessions []progressdomain.Session) float64 {
	var sum, weights float64
	for i, s := range sessions {
		w := math.Pow(1.5, float64(i))
		sum += s.ReadingSpeed * w
		weights += w
	}
	return sum / weights
}

func meanSpeed(sessions []progressdomain.Session) float64 {
	if len(sessions) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sessions {
		sum += s.ReadingSpeed
	}
	return sum / float64(len(sessions))
}

func trend(recent []progressdomain.Session) domain.Trend {
	if len(recent) < 3 {
		return domain.TrendStable
	}
	mid := (len(recent) + 1) / 2
	first, second := meanSpeed(recent[:mid]), meanSpeed(recent[mid:])
	threshold := first * 0.1
	switch diff := second - first; {
	case diff > threshold:
		return domain.TrendIncreasing
	case diff < -threshold:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

// consistency is one minus the coefficient of variation, floored at zero.
func consistency(sessions []progressdomain.Session) float64 {
	if len(sessions) < 2 {
		return 0
	}
	mean := meanSpeed(sessions)
	var variance float64
	for _, s := range sessions {
		variance += (s.ReadingSpeed - mean) * (s.ReadingSpeed - mean)
	}
	variance /= float64(len(sessions))
	return math.Max(0, 1-math.Sqrt(variance)/mean)
}

func efficiency(sessions []progressdomain.Session) float64 {
	var sum float64
	n := 0
	for _, s := range sessions {
		if s.TotalTime <= 0 || s.WordsRead <= 0 {
			continue
		}
		sum += math.Min(1, s.ReadingSpeed/referenceSpeed)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
