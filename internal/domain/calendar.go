package domain

import (
	"sort"
	"time"
)

// CalendarDateLayout keys calendar days, e.g. "2024-03-09".
const CalendarDateLayout = "2006-01-02"

// CalendarDay is one cell of the reading heat-map.
type CalendarDay struct {
	Date    string `json:"date"`
	Minutes int    `json:"minutes"`
	// Level is 0-4 for the cell color.
	Level int `json:"level"`
}

// ActivityLevel buckets daily reading minutes: 0 for none, then
// under 15, under 60, under 120, and 120 or more.
func ActivityLevel(minutes int) int {
	switch {
	case minutes <= 0:
		return 0
	case minutes < 15:
		return 1
	case minutes < 60:
		return 2
	case minutes < 120:
		return 3
	default:
		return 4
	}
}

// BuildCalendar sums session minutes per start day in loc. Sessions with a
// non-positive duration are ignored. Days are returned in date order.
func BuildCalendar(sessions []*ReadingSession, loc *time.Location) []CalendarDay {
	if loc == nil {
		loc = time.UTC
	}

	minutes := make(map[string]int)
	for _, s := range sessions {
		if s.StartTime.IsZero() || s.EndTime.IsZero() {
			continue
		}
		if m := s.Minutes(); m > 0 {
			minutes[s.StartTime.In(loc).Format(CalendarDateLayout)] += m
		}
	}

	days := make([]CalendarDay, 0, len(minutes))
	for date, m := range minutes {
		days = append(days, CalendarDay{Date: date, Minutes: m, Level: ActivityLevel(m)})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}
