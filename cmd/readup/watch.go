package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/listenupapp/readup-server/internal/client"
	"github.com/listenupapp/readup-server/internal/client/statecontrol"
	"github.com/listenupapp/readup-server/internal/domain"
)

var (
	watchTypes []string
	watchBook  int64
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live changes to your shelves and sessions",
	Long: `Watch prints events pushed by the server until interrupted. With --book
it follows the shelf of a single book instead.

Example:
  readup watch --type shelf.changed --type session.logged
  readup watch --book 42`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if watchBook > 0 {
			err = followBook(cmd.Context(), watchBook)
		} else {
			err = api.Subscribe(cmd.Context(), printEvent)
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func printEvent(ev client.Event) error {
	if ev.Type == "heartbeat" {
		return nil
	}
	if len(watchTypes) > 0 && !slices.Contains(watchTypes, ev.Type) {
		return nil
	}
	if flagJSON {
		return printJSON(ev)
	}
	fmt.Printf("%s %-18s %s\n", time.Now().Format(time.TimeOnly), ev.Type, ev.Data)
	return nil
}

// followBook mirrors the shelf of bookID as moves are pushed by the server.
func followBook(ctx context.Context, bookID int64) error {
	current, err := api.GetState(ctx, bookID)
	if err != nil {
		return err
	}
	var initial *domain.State
	if current != nil {
		initial = current.State.Ptr()
	}

	ctrl := statecontrol.New(api, bookID, initial)
	ctrl.OnChange(func(s statecontrol.Snapshot) {
		if flagJSON {
			_ = printJSON(map[string]any{"book_id": s.BookID, "state": s.Committed})
			return
		}
		fmt.Printf("%s book %d: %s\n", time.Now().Format(time.TimeOnly), s.BookID, domain.StateName(s.Committed))
	})
	fmt.Printf("book %d: %s\n", bookID, domain.StateName(initial))

	return api.FollowShelf(ctx, ctrl)
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchTypes, "type", nil, "only print these event types")
	watchCmd.Flags().Int64Var(&watchBook, "book", 0, "follow the shelf of one book")
}
