package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/listenupapp/readup-server/internal/client/statecontrol"
	"github.com/listenupapp/readup-server/internal/domain"
)

var (
	shelfQuery string
	shelfPage  int
)

var shelfCmd = &cobra.Command{
	Use:   "shelf <wishlist|later|reading|read|favorites>",
	Short: "List the books on a shelf",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if args[0] == "favorites" {
			items, err := api.ListFavorites(ctx)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(items)
			}
			for _, ub := range items {
				fmt.Println(userBookLine(ub))
			}
			return nil
		}

		state, err := domain.ParseState(args[0])
		if err != nil {
			return err
		}
		page, err := api.ListShelf(ctx, state, shelfQuery, shelfPage, 0)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(page)
		}
		for _, ub := range page.Items {
			fmt.Println(userBookLine(ub))
		}
		if page.HasMore {
			fmt.Printf("-- more on page %d\n", page.Page+1)
		}
		return nil
	},
}

var moveDate string

var moveCmd = &cobra.Command{
	Use:   "move <book-id> <wishlist|later|reading|read|none>",
	Short: "Move a book to a shelf, or off every shelf with none",
	Long: `Move changes the shelf of a book. Entering reading or read, or leaving
wishlist or later, records a date that you must supply with --date.

Example:
  readup move 42 reading --date 2024-03-01
  readup move 42 none`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

func runMove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	bookID, err := parseID(args[0])
	if err != nil {
		return err
	}
	target, err := domain.ParseOptionalState(args[1])
	if err != nil {
		return err
	}

	current, err := api.GetState(ctx, bookID)
	if err != nil {
		return err
	}
	var initial *domain.State
	if current != nil {
		initial = current.State.Ptr()
	}

	preview, err := api.PreviewTransition(ctx, bookID, target)
	if err != nil {
		return err
	}

	var captured *time.Time
	if moveDate != "" {
		t, err := parseDate(moveDate)
		if err != nil {
			return err
		}
		captured = &t
	}
	if preview.NeedsPrompt && captured == nil {
		return fmt.Errorf("moving from %s to %s records %s: pass --date", preview.From, preview.To, preview.Column)
	}

	ctrl := statecontrol.New(api, bookID, initial)
	ctrl.OnChange(func(s statecontrol.Snapshot) {
		if flagJSON {
			return
		}
		switch {
		case s.Pending:
			fmt.Printf("%s -> %s ...\n", domain.StateName(s.Committed), domain.StateName(s.Optimistic))
		case s.Err != nil:
			fmt.Printf("rolled back to %s\n", domain.StateName(s.Optimistic))
		default:
			fmt.Printf("now %s\n", domain.StateName(s.Committed))
		}
	})

	ub, err := ctrl.Transition(ctx, target, captured)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			ctrl.Cancel()
		}
		return err
	}
	if flagJSON {
		return printJSON(ub)
	}
	return nil
}

var progressCmd = &cobra.Command{
	Use:   "progress <book-id> <page>",
	Short: "Record the page you are on",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bookID, err := parseID(args[0])
		if err != nil {
			return err
		}
		var page int
		if _, err := fmt.Sscanf(args[1], "%d", &page); err != nil || page < 0 {
			return fmt.Errorf("invalid page %q", args[1])
		}
		if err := api.UpdateProgress(cmd.Context(), bookID, page); err != nil {
			return err
		}
		fmt.Printf("book %d: page %d\n", bookID, page)
		return nil
	},
}

var favoriteOff bool

var favoriteCmd = &cobra.Command{
	Use:   "favorite <book-id>",
	Short: "Mark a read book as favorite, or unmark it with --off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bookID, err := parseID(args[0])
		if err != nil {
			return err
		}
		stored, err := api.SetFavorite(cmd.Context(), bookID, !favoriteOff)
		if err != nil {
			return err
		}
		if stored {
			fmt.Printf("book %d is a favorite\n", bookID)
		} else {
			fmt.Printf("book %d is not a favorite\n", bookID)
		}
		return nil
	},
}

func init() {
	shelfCmd.Flags().StringVarP(&shelfQuery, "query", "q", "", "title filter")
	shelfCmd.Flags().IntVar(&shelfPage, "page", 1, "page number")
	moveCmd.Flags().StringVar(&moveDate, "date", "", "date of the move, YYYY-MM-DD")
	favoriteCmd.Flags().BoolVar(&favoriteOff, "off", false, "remove the favorite mark")
}
