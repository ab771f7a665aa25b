package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 500 {
		v, err := Generate("req")
		require.NoError(t, err)
		assert.False(t, seen[v], "duplicate id %s", v)
		seen[v] = true
	}
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{"tok", "req", "cover"} {
		v := MustGenerate(prefix)
		rest, ok := strings.CutPrefix(v, prefix+"-")
		require.True(t, ok, "id %q should start with %q", v, prefix)
		assert.Len(t, rest, 21)
	}
}
