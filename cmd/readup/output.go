package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/listenupapp/readup-server/internal/domain"
)

// printJSON writes v indented to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// parseDate accepts a day or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

func bookLine(b *domain.Book) string {
	if b == nil {
		return "?"
	}
	line := fmt.Sprintf("#%-5d %s", b.ID, b.Title)
	if authors := b.AuthorLine(); authors != "" {
		line += " (" + authors + ")"
	}
	return line
}

func userBookLine(ub *domain.UserBook) string {
	line := bookLine(ub.Book)
	if ub.Book == nil {
		line = fmt.Sprintf("#%-5d", ub.BookID)
	}
	line += "  [" + string(ub.State) + "]"
	if ub.IsFavorite {
		line += " *"
	}
	if ub.State == domain.StateReading && ub.CurrentPage > 0 {
		line += fmt.Sprintf("  p.%d", ub.CurrentPage)
		if ub.Book != nil && ub.Book.Pages > 0 {
			line += fmt.Sprintf("/%d", ub.Book.Pages)
		}
	}
	if !ub.UpdatedAt.IsZero() {
		line += "  " + humanize.Time(ub.UpdatedAt)
	}
	return line
}
