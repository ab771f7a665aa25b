package store

// Page size bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page selects a 1-based page of a listing.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page to valid values.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset is the number of rows skipped before the page.
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.Size
}

// Result contains a page of items and the total number of matches.
type Result[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Size    int  `json:"size"`
	HasMore bool `json:"has_more"`
}

// NewResult builds a Result for items fetched with p.
func NewResult[T any](items []T, total int, p Page) Result[T] {
	p = p.Normalize()
	if items == nil {
		items = []T{}
	}
	return Result[T]{
		Items:   items,
		Total:   total,
		Page:    p.Number,
		Size:    p.Size,
		HasMore: p.Number*p.Size < total,
	}
}
