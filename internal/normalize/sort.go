package normalize

import (
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/listenupapp/readup-server/internal/domain"
)

// Sorter orders books naturally: shorter author lines first, then titles in
// the collation order of a language.
type Sorter struct {
	tag language.Tag
}

// NewSorter returns a Sorter for the given BCP 47 language. Unknown tags fall
// back to the root collation.
func NewSorter(lang string) *Sorter {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Und
	}
	return &Sorter{tag: tag}
}

// Books sorts books in place.
func (s *Sorter) Books(books []*domain.Book) {
	// collate.Collator keeps internal buffers and is not safe for concurrent use.
	c := collate.New(s.tag, collate.IgnoreCase, collate.Numeric)
	slices.SortStableFunc(books, func(a, b *domain.Book) int {
		return compareBooks(c, a, b)
	})
}

// UserBooks sorts rows in place by their catalog entry. Rows without a book
// sort last.
func (s *Sorter) UserBooks(rows []*domain.UserBook) {
	c := collate.New(s.tag, collate.IgnoreCase, collate.Numeric)
	slices.SortStableFunc(rows, func(a, b *domain.UserBook) int {
		switch {
		case a.Book == nil && b.Book == nil:
			return 0
		case a.Book == nil:
			return 1
		case b.Book == nil:
			return -1
		}
		return compareBooks(c, a.Book, b.Book)
	})
}

func compareBooks(c *collate.Collator, a, b *domain.Book) int {
	al := utf8.RuneCountInString(strings.Join(a.Authors, ","))
	bl := utf8.RuneCountInString(strings.Join(b.Authors, ","))
	if al != bl {
		return al - bl
	}
	return c.CompareString(a.Title, b.Title)
}
