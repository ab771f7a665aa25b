// Package search provides full-text search over the book catalog using Bleve.
package search

import (
	"strconv"
	"strings"

	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/normalize"
)

// BookDocument is the indexed form of a catalog book. Text fields are folded
// (lowercase, no diacritics) before indexing; queries are folded the same way.
type BookDocument struct {
	ID          string
	Title       string
	Authors     string
	Description string
	Publisher   string
	Categories  []string
	ISBNs       []string
	Type        string
	CreatedAt   int64 // Unix millis
}

// ToMap converts the document to a map with the field names of the mapping.
func (d *BookDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"name":       d.Title,
		"type":       d.Type,
		"created_at": d.CreatedAt,
	}

	// Optional fields - only add if non-empty
	if d.Authors != "" {
		m["author"] = d.Authors
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Publisher != "" {
		m["publisher"] = d.Publisher
	}
	if len(d.Categories) > 0 {
		m["categories"] = d.Categories
	}
	if len(d.ISBNs) > 0 {
		m["isbn"] = d.ISBNs
	}
	return m
}

// BookToDocument converts a domain Book to a BookDocument.
func BookToDocument(book *domain.Book) *BookDocument {
	doc := &BookDocument{
		ID:          docID(book.ID),
		Title:       normalize.Fold(book.Title),
		Authors:     normalize.Fold(strings.Join(book.Authors, " ")),
		Description: normalize.Fold(book.Description),
		Publisher:   normalize.Fold(book.Publisher),
		Type:        string(book.Type.OrUnknown()),
		CreatedAt:   book.CreatedAt.UnixMilli(),
	}
	for _, c := range book.Categories {
		if f := normalize.Fold(c); f != "" {
			doc.Categories = append(doc.Categories, f)
		}
	}
	for _, isbn := range []string{book.ISBN10, book.ISBN13} {
		if n := normalizeISBN(isbn); n != "" {
			doc.ISBNs = append(doc.ISBNs, n)
		}
	}
	return doc
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// normalizeISBN strips separators: "978-2-07-061275-8" -> "9782070612758".
func normalizeISBN(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == 'x' || r == 'X':
			return 'X'
		default:
			return -1
		}
	}, s)
}
