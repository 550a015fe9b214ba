package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetThenGet(t *testing.T) {
	c := New[string, string]()

	c.Set("k", "v", time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestGetMissing(t *testing.T) {
	c := New[string, int]()

	got, ok := c.Get("absent")
	assert.False(t, ok)
	assert.Zero(t, got)
}

func TestExpiryOnRead(t *testing.T) {
	now := time.Now()
	c := NewWithClock[string, string](func() time.Time { return now })

	c.Set("k", "v", time.Minute)

	// Just inside the TTL the value is still served.
	now = now.Add(time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)

	// The expired entry was evicted on read, so Has is also false.
	assert.False(t, c.Has("k"))
}

func TestHasEvictsExpired(t *testing.T) {
	now := time.Now()
	c := NewWithClock[string, string](func() time.Time { return now })

	c.Set("k", "v", time.Second)
	assert.True(t, c.Has("k"))

	now = now.Add(2 * time.Second)
	assert.False(t, c.Has("k"))
}

func TestDefaultTTLFallback(t *testing.T) {
	now := time.Now()
	c := NewWithClock[string, string](func() time.Time { return now })

	c.Set("k", "v", 0)

	now = now.Add(DefaultTTL - time.Second)
	assert.True(t, c.Has("k"))

	now = now.Add(2 * time.Second)
	assert.False(t, c.Has("k"))
}

func TestDelete(t *testing.T) {
	c := New[string, string]()

	c.Set("k", "v", time.Minute)
	assert.True(t, c.Delete("k"))
	assert.False(t, c.Delete("k"))
	assert.False(t, c.Has("k"))
}

func TestClear(t *testing.T) {
	c := New[string, string]()

	c.Set("a", "1", time.Minute)
	c.Set("b", "2", time.Minute)
	c.Clear()

	assert.False(t, c.Has("a"))
	assert.False(t, c.Has("b"))
}

func TestOverwriteResetsTTL(t *testing.T) {
	now := time.Now()
	c := NewWithClock[string, string](func() time.Time { return now })

	c.Set("k", "old", time.Minute)
	now = now.Add(50 * time.Second)
	c.Set("k", "new", time.Minute)
	now = now.Add(30 * time.Second)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}
