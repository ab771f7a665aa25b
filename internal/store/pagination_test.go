package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage_Normalize(t *testing.T) {
	tests := []struct {
		name  string
		input Page
		want  Page
	}{
		{"valid", Page{Number: 2, Size: 10}, Page{Number: 2, Size: 10}},
		{"zero values", Page{}, Page{Number: 1, Size: DefaultPageSize}},
		{"negative number", Page{Number: -3, Size: 5}, Page{Number: 1, Size: 5}},
		{"size over max", Page{Number: 1, Size: 5000}, Page{Number: 1, Size: MaxPageSize}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.input.Normalize())
		})
	}
}

func TestPage_Offset(t *testing.T) {
	assert.Equal(t, 0, Page{}.Offset())
	assert.Equal(t, 20, Page{Number: 3, Size: 10}.Offset())
}

func TestNewResult(t *testing.T) {
	r := NewResult([]int{1, 2}, 5, Page{Number: 1, Size: 2})
	assert.True(t, r.HasMore)
	assert.Equal(t, 5, r.Total)

	last := NewResult([]int{5}, 5, Page{Number: 3, Size: 2})
	assert.False(t, last.HasMore)

	empty := NewResult[int](nil, 0, Page{})
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}
