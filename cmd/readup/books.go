package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/listenupapp/readup-server/internal/client"
	"github.com/listenupapp/readup-server/internal/domain"
)

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the authenticated user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		me, err := api.Me(cmd.Context())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(me)
		}
		role := "reader"
		if me.IsAdmin {
			role = "admin"
		}
		fmt.Printf("%s <%s> %s, joined %s\n", me.Username, me.Email, role, humanize.Time(me.CreatedAt))
		return nil
	},
}

var (
	booksType string
	booksPage int
	booksSize int
)

var booksCmd = &cobra.Command{
	Use:   "books [query...]",
	Short: "Search the catalog",
	Long: `Books lists the catalog, optionally filtered by a full-text query and a type.

Example:
  readup books dune
  readup books --type manga --page 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := api.ListBooks(cmd.Context(), client.BookQuery{
			Query: strings.Join(args, " "),
			Type:  domain.BookType(booksType),
			Page:  booksPage,
			Size:  booksSize,
		})
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(page)
		}
		for _, b := range page.Items {
			fmt.Println(bookLine(b))
		}
		fmt.Printf("-- page %d, %s of %s books\n", page.Page, humanize.Comma(int64(len(page.Items))), humanize.Comma(int64(page.Total)))
		return nil
	},
}

var bookCmd = &cobra.Command{
	Use:   "book <id>",
	Short: "Show a book and your shelf state for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		detail, err := api.GetBook(cmd.Context(), id)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(detail)
		}

		b := detail.Book
		fmt.Println(bookLine(b))
		if b.Pages > 0 {
			fmt.Printf("  %d pages", b.Pages)
			if b.Type != "" {
				fmt.Printf(", %s", b.Type)
			}
			fmt.Println()
		}
		if len(b.Categories) > 0 {
			fmt.Printf("  %s\n", strings.Join(b.Categories, ", "))
		}
		if detail.UserBook == nil {
			fmt.Println("  not on your shelves")
		} else {
			fmt.Println("  " + userBookLine(detail.UserBook))
		}
		return nil
	},
}

func init() {
	booksCmd.Flags().StringVar(&booksType, "type", "", "book type (bd, manga, roman, unknown)")
	booksCmd.Flags().IntVar(&booksPage, "page", 1, "page number")
	booksCmd.Flags().IntVar(&booksSize, "size", 20, "page size")
}
