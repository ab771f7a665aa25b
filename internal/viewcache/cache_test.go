package viewcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type totals struct {
	Pages int `json:"pages"`
	Hours int `json:"hours"`
}

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := Open(Options{Path: t.TempDir(), TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// store writes value at the current generation of uid.
func store(t *testing.T, c *Cache, uid, key string, value any) {
	t.Helper()
	gen, err := c.Generation(uid)
	require.NoError(t, err)
	stored, err := c.SetIfCurrent(uid, gen, key, value)
	require.NoError(t, err)
	require.True(t, stored)
}

func hit(t *testing.T, c *Cache, key string) bool {
	t.Helper()
	var got totals
	ok, err := c.Get(key, &got)
	require.NoError(t, err)
	return ok
}

func TestCache_SetGet(t *testing.T) {
	c := newTestCache(t, time.Hour)

	var got totals
	ok, err := c.Get(TotalsKey("u1"), &got)
	require.NoError(t, err)
	assert.False(t, ok)

	store(t, c, "u1", TotalsKey("u1"), totals{Pages: 300, Hours: 12})

	ok, err = c.Get(TotalsKey("u1"), &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, totals{Pages: 300, Hours: 12}, got)
}

func TestCache_InvalidateUser(t *testing.T) {
	c := newTestCache(t, time.Hour)

	store(t, c, "u1", StatsKey("u1", 2023), totals{Pages: 1})
	store(t, c, "u1", StatsKey("u1", 2024), totals{Pages: 2})
	store(t, c, "u1", TotalsKey("u1"), totals{Pages: 3})
	store(t, c, "u10", StatsKey("u10", 2024), totals{Pages: 4})

	require.NoError(t, c.InvalidateUser("u1"))

	assert.False(t, hit(t, c, StatsKey("u1", 2023)))
	assert.False(t, hit(t, c, StatsKey("u1", 2024)))
	assert.False(t, hit(t, c, TotalsKey("u1")))
	assert.True(t, hit(t, c, StatsKey("u10", 2024)), "prefix must not match u10")

	// Invalidating a user without entries is fine.
	require.NoError(t, c.InvalidateUser("nobody"))
}

func TestCache_InvalidateBumpsGeneration(t *testing.T) {
	c := newTestCache(t, time.Hour)

	gen, err := c.Generation("u1")
	require.NoError(t, err)
	assert.Zero(t, gen)

	require.NoError(t, c.InvalidateUser("u1"))
	require.NoError(t, c.InvalidateUser("u1"))

	gen, err = c.Generation("u1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), gen)

	other, err := c.Generation("u2")
	require.NoError(t, err)
	assert.Zero(t, other)
}

func TestCache_SetIfCurrent_DropsStaleView(t *testing.T) {
	c := newTestCache(t, time.Hour)

	gen, err := c.Generation("u1")
	require.NoError(t, err)

	// A write lands while the view is being computed.
	require.NoError(t, c.InvalidateUser("u1"))

	stored, err := c.SetIfCurrent("u1", gen, StatsKey("u1", 2024), totals{Pages: 1})
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, hit(t, c, StatsKey("u1", 2024)))

	// Another user's generation is unaffected.
	stored, err = c.SetIfCurrent("u2", 0, StatsKey("u2", 2024), totals{Pages: 1})
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestCache_InMemory(t *testing.T) {
	c, err := Open(Options{TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	store(t, c, "u1", StatsKey("u1", 2024), totals{Hours: 5})
	var got totals
	ok, err := c.Get(StatsKey("u1", 2024), &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, got.Hours)
}

func TestDisabled(t *testing.T) {
	var d Disabled
	stored, err := d.SetIfCurrent("u1", 0, "k", 1)
	require.NoError(t, err)
	assert.False(t, stored)

	ok, err := d.Get("k", new(int))
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, d.InvalidateUser("u1"))
}
