package domain

import (
	"strings"
	"time"
)

// BookType classifies a catalog entry.
type BookType string

// Book types known to the catalog. Books without a type count as unknown in statistics.
const (
	BookTypeBD      BookType = "bd"
	BookTypeManga   BookType = "manga"
	BookTypeRoman   BookType = "roman"
	BookTypeUnknown BookType = "unknown"
)

// Valid reports whether t is one of the storable types.
func (t BookType) Valid() bool {
	switch t {
	case BookTypeBD, BookTypeManga, BookTypeRoman:
		return true
	default:
		return false
	}
}

// OrUnknown maps an empty or unrecognized type to BookTypeUnknown.
func (t BookType) OrUnknown() BookType {
	if t.Valid() {
		return t
	}
	return BookTypeUnknown
}

// Book is a catalog entry shared by all users.
type Book struct {
	ID              int64     `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Authors         []string  `json:"authors"`
	Publisher       string    `json:"publisher,omitempty"`
	CoverURL        string    `json:"cover_url,omitempty"`
	CoverBlurHash   string    `json:"cover_blurhash,omitempty"`
	Pages           int       `json:"pages,omitempty"`
	Categories      []string  `json:"categories"`
	PublicationDate string    `json:"publication_date,omitempty"`
	ISBN10          string    `json:"isbn_10,omitempty"`
	ISBN13          string    `json:"isbn_13,omitempty"`
	Type            BookType  `json:"type,omitempty"`
	OpenLibraryKey  string    `json:"open_library_key,omitempty"`
}

// AuthorLine joins the authors the way they are displayed.
func (b *Book) AuthorLine() string {
	return strings.Join(b.Authors, ", ")
}
