package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetGet(t *testing.T) {
	c := New[string](time.Minute, 0)
	defer c.Close()

	c.Set("a", "alpha")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "alpha", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c := New[int](time.Millisecond, 0)
	defer c.Close()

	c.Set("a", 1)
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entries are removed on read")
}

func TestCache_Sweeper(t *testing.T) {
	c := New[int](time.Millisecond, 2*time.Millisecond)
	c.Set("a", 1)
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	c.Close()
	c.Close()
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("ab", ""), Key("a", "b"), "parts are delimited")
	assert.Len(t, Key("x"), 64)
}
