package domain

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// BookReadingStats summarizes a user's sessions on a single book.
type BookReadingStats struct {
	BookID       int64   `json:"book_id"`
	SessionCount int     `json:"session_count"`
	TotalHours   float64 `json:"total_hours"`
	PagesRead    int     `json:"pages_read"`
	// LastSessionAt is the latest session end.
	LastSessionAt *time.Time `json:"last_session_at,omitempty"`
	// SinceLastSession reads like "3 days ago".
	SinceLastSession string `json:"since_last_session,omitempty"`
}

// ComputeBookReadingStats folds sessions of one book. Total hours are
// rounded to one decimal.
func ComputeBookReadingStats(bookID int64, sessions []*ReadingSession, now time.Time) BookReadingStats {
	stats := BookReadingStats{BookID: bookID, SessionCount: len(sessions)}

	var total time.Duration
	for _, s := range sessions {
		total += s.Duration()
		stats.PagesRead += s.PagesRead()
		if stats.LastSessionAt == nil || s.EndTime.After(*stats.LastSessionAt) {
			end := s.EndTime
			stats.LastSessionAt = &end
		}
	}

	stats.TotalHours = math.Round(total.Hours()*10) / 10
	if stats.LastSessionAt != nil {
		stats.SinceLastSession = humanize.RelTime(*stats.LastSessionAt, now, "ago", "from now")
	}
	return stats
}

// MonthActivity counts rows per state whose activity date falls in a month.
type MonthActivity struct {
	Month    int    `json:"month"`
	Label    string `json:"label"`
	Read     int    `json:"read"`
	Reading  int    `json:"reading"`
	Later    int    `json:"later"`
	Wishlist int    `json:"wishlist"`
}

// UserStats is the statistics page of one user for one year.
type UserStats struct {
	Year            int              `json:"year"`
	BooksByState    map[State]int    `json:"books_by_state"`
	BooksByType     map[BookType]int `json:"books_by_type"`
	ReadThisYear    int              `json:"read_this_year"`
	PagesPerDay     float64          `json:"pages_per_day"`
	AvgReadingDays  float64          `json:"avg_reading_days"`
	MonthlyActivity []MonthActivity  `json:"monthly_activity"`
	TotalPagesRead  int              `json:"total_pages_read"`
	TotalHoursRead  int              `json:"total_hours_read"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// FinishedAt is when a read book was finished: the end of its reading
// interval, or its read date when it was marked read without one.
func (ub *UserBook) FinishedAt() *time.Time {
	if ub.State != StateRead {
		return nil
	}
	if ub.EndReadingDate != nil {
		return ub.EndReadingDate
	}
	return ub.ReadDate
}

// ComputeUserStats derives the yearly statistics from a user's rows. Rows
// must carry their Book. Totals across all years are filled in by the caller.
func ComputeUserStats(rows []*UserBook, year int, now time.Time) UserStats {
	loc := now.Location()
	stats := UserStats{
		Year:            year,
		BooksByState:    make(map[State]int, len(States)),
		BooksByType:     make(map[BookType]int),
		MonthlyActivity: make([]MonthActivity, 12),
		GeneratedAt:     now,
	}
	for _, st := range States {
		stats.BooksByState[st] = 0
	}
	for m := range stats.MonthlyActivity {
		month := time.Month(m + 1)
		stats.MonthlyActivity[m] = MonthActivity{Month: int(month), Label: month.String()[:3]}
	}

	var (
		pages       int
		firstRead   *time.Time
		readingDays []float64
	)

	for _, ub := range rows {
		stats.BooksByState[ub.State]++

		bookType := BookTypeUnknown
		if ub.Book != nil {
			bookType = ub.Book.Type.OrUnknown()
		}
		stats.BooksByType[bookType]++

		addActivity(&stats, ub.State, ub.ActivityDate(), year, loc)

		finished := ub.FinishedAt()
		if finished == nil || finished.In(loc).Year() != year {
			continue
		}
		stats.ReadThisYear++
		if ub.Book != nil {
			pages += ub.Book.Pages
		}
		if firstRead == nil || finished.Before(*firstRead) {
			firstRead = finished
		}
		if ub.StartReadingDate != nil && ub.EndReadingDate != nil {
			if days := ub.EndReadingDate.Sub(*ub.StartReadingDate).Hours() / 24; days >= 0 {
				readingDays = append(readingDays, days)
			}
		}
	}

	if pages > 0 && firstRead != nil {
		days := math.Max(1, now.Sub(*firstRead).Hours()/24)
		stats.PagesPerDay = float64(pages) / days
	}
	if len(readingDays) > 0 {
		var sum float64
		for _, d := range readingDays {
			sum += d
		}
		stats.AvgReadingDays = sum / float64(len(readingDays))
	}
	return stats
}

func addActivity(stats *UserStats, st State, at *time.Time, year int, loc *time.Location) {
	if at == nil {
		return
	}
	local := at.In(loc)
	if local.Year() != year {
		return
	}
	m := &stats.MonthlyActivity[local.Month()-1]
	switch st {
	case StateRead:
		m.Read++
	case StateReading:
		m.Reading++
	case StateLater:
		m.Later++
	case StateWishlist:
		m.Wishlist++
	}
}
