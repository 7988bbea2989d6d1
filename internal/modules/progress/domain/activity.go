package domain

import (
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// DailyActivity rolls up the completed sessions that started on one
// calendar day. ActiveTime is ms.
type DailyActivity struct {
	Date       string `json:"date"`
	Sessions   int    `json:"sessions"`
	ActiveTime int64  `json:"activeTime"`
	WordsRead  int    `json:"wordsRead"`
	Intensity  int    `json:"intensity"`
}

// TimeOfDay buckets an hour of the day.
func TimeOfDay(hour int) string {
	switch {
	case hour < 6:
		return "night"
	case hour < 12:
		return "morning"
	case hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

// ChartIntensity maps active minutes to a heat level from 0 to 4.
func ChartIntensity(minutes float64) int {
	switch {
	case minutes <= 0:
		return 0
	case minutes < 15:
		return 1
	case minutes < 30:
		return 2
	case minutes < 60:
		return 3
	default:
		return 4
	}
}

// RollUp groups ended sessions by the local date they started on. The
// result is sorted by date.
func RollUp(sessions []Session, loc *time.Location) []DailyActivity {
	if loc == nil {
		loc = time.UTC
	}
	byDate := map[string]*DailyActivity{}
	for _, s := range sessions {
		if !s.Ended() {
			continue
		}
		date := time.UnixMilli(s.StartTime).In(loc).Format(dateLayout)
		day, ok := byDate[date]
		if !ok {
			day = &DailyActivity{Date: date}
			byDate[date] = day
		}
		day.Sessions++
		day.ActiveTime += s.TotalTime
		day.WordsRead += s.WordsRead
	}
	out := make([]DailyActivity, 0, len(byDate))
	for _, day := range byDate {
		day.Intensity = ChartIntensity(time.Duration(day.ActiveTime * int64(time.Millisecond)).Minutes())
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// CurrentStreak counts consecutive active days ending today. A day with no
// reading today means no current streak.
func CurrentStreak(activity []DailyActivity, today time.Time) int {
	active := activeDays(activity)
	streak := 0
	for day := today; active[day.Format(dateLayout)]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

func LongestStreak(activity []DailyActivity) int {
	active := activeDays(activity)
	longest := 0
	for date := range active {
		start, err := time.Parse(dateLayout, date)
		if err != nil {
			continue
		}
		if active[start.AddDate(0, 0, -1).Format(dateLayout)] {
			continue
		}
		run := 0
		for day := start; active[day.Format(dateLayout)]; day = day.AddDate(0, 0, 1) {
			run++
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

func activeDays(activity []DailyActivity) map[string]bool {
	active := make(map[string]bool, len(activity))
	for _, day := range activity {
		if day.ActiveTime > 0 {
			active[day.Date] = true
		}
	}
	return active
}
