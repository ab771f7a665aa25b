package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/listenupapp/readup-server/internal/domain"
)

var statsYear int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show your reading statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := api.Stats(cmd.Context(), statsYear)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(stats)
		}

		fmt.Printf("%d\n", stats.Year)
		for _, st := range domain.States {
			fmt.Printf("  %-9s %d\n", st, stats.BooksByState[st])
		}
		fmt.Printf("  read this year   %d\n", stats.ReadThisYear)
		fmt.Printf("  pages per day    %.1f\n", stats.PagesPerDay)
		fmt.Printf("  days per book    %.1f\n", stats.AvgReadingDays)
		fmt.Printf("  pages read       %s\n", humanize.Comma(int64(stats.TotalPagesRead)))
		fmt.Printf("  hours read       %s\n", humanize.Comma(int64(stats.TotalHoursRead)))
		for _, m := range stats.MonthlyActivity {
			fmt.Printf("  %s\n", monthBar(m))
		}
		return nil
	},
}

func monthBar(m domain.MonthActivity) string {
	return fmt.Sprintf("%-4s %s%s%s%s  read %d, reading %d, later %d, wishlist %d",
		m.Label,
		strings.Repeat("#", m.Read), strings.Repeat("=", m.Reading),
		strings.Repeat("-", m.Later), strings.Repeat(".", m.Wishlist),
		m.Read, m.Reading, m.Later, m.Wishlist)
}

var calendarYear int

// levelGlyphs renders calendar levels 0-4.
var levelGlyphs = []string{".", "░", "▒", "▓", "█"}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show minutes read per day",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := api.Calendar(cmd.Context(), calendarYear)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(days)
		}
		for _, d := range days {
			level := min(max(d.Level, 0), len(levelGlyphs)-1)
			fmt.Printf("%s %s %d min\n", d.Date, levelGlyphs[level], d.Minutes)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsYear, "year", 0, "year (default: current)")
	calendarCmd.Flags().IntVar(&calendarYear, "year", 0, "year (default: current)")
}
