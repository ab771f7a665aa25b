package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/listenupapp/readup-server/internal/client"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Log, list and delete reading sessions",
}

var (
	sessionStart    string
	sessionEnd      string
	sessionMinutes  int
	sessionFromPage int
	sessionToPage   int
	sessionNotes    string
)

var sessionLogCmd = &cobra.Command{
	Use:   "log <book-id>",
	Short: "Log a reading session",
	Long: `Log records a timed reading session. Give either --end or --minutes;
--start defaults to that many minutes ago.

Example:
  readup session log 42 --minutes 45 --from-page 120 --to-page 150
  readup session log 42 --start 2024-03-01T20:00:00Z --end 2024-03-01T21:10:00Z --to-page 80`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bookID, err := parseID(args[0])
		if err != nil {
			return err
		}

		end := time.Now()
		if sessionEnd != "" {
			if end, err = time.Parse(time.RFC3339, sessionEnd); err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
		}
		var start time.Time
		switch {
		case sessionStart != "":
			if start, err = time.Parse(time.RFC3339, sessionStart); err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
		case sessionMinutes > 0:
			start = end.Add(-time.Duration(sessionMinutes) * time.Minute)
		default:
			return errors.New("pass --start or --minutes")
		}

		s, err := api.LogSession(cmd.Context(), client.SessionRequest{
			BookID:    bookID,
			StartTime: start,
			EndTime:   end,
			StartPage: sessionFromPage,
			EndPage:   sessionToPage,
			Notes:     sessionNotes,
		})
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(s)
		}
		fmt.Printf("session %d: %d pages in %dh%02d\n", s.ID, s.PagesRead, s.Duration.Hours, s.Duration.Minutes)
		return nil
	},
}

var (
	sessionYear int
	sessionPage int
)

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your reading sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := api.ListSessions(cmd.Context(), sessionYear, sessionPage, 0)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(page)
		}
		for _, s := range page.Items {
			title := fmt.Sprintf("book %d", s.BookID)
			if s.Book != nil {
				title = s.Book.Title
			}
			fmt.Printf("#%-5d %-30s p.%d-%d  %dh%02d  %s\n",
				s.ID, title, s.StartPage, s.EndPage, s.Duration.Hours, s.Duration.Minutes, humanize.Time(s.EndTime))
		}
		fmt.Printf("-- %s sessions\n", humanize.Comma(int64(page.Total)))
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete one of your sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := api.DeleteSession(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("session %d deleted\n", id)
		return nil
	},
}

func init() {
	sessionLogCmd.Flags().StringVar(&sessionStart, "start", "", "start time, RFC 3339")
	sessionLogCmd.Flags().StringVar(&sessionEnd, "end", "", "end time, RFC 3339 (default: now)")
	sessionLogCmd.Flags().IntVar(&sessionMinutes, "minutes", 0, "length in minutes when --start is not given")
	sessionLogCmd.Flags().IntVar(&sessionFromPage, "from-page", 0, "first page read")
	sessionLogCmd.Flags().IntVar(&sessionToPage, "to-page", 0, "last page read")
	sessionLogCmd.Flags().StringVar(&sessionNotes, "notes", "", "notes")
	_ = sessionLogCmd.MarkFlagRequired("to-page")

	sessionListCmd.Flags().IntVar(&sessionYear, "year", 0, "restrict to a year")
	sessionListCmd.Flags().IntVar(&sessionPage, "page", 1, "page number")

	sessionCmd.AddCommand(sessionLogCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
}
