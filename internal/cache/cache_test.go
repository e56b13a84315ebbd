package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	c := New(true)
	etag := c.Set("k", []byte(`{"a":1}`), time.Minute)

	data, gotETag, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"a":1}`), data)
	assert.Equal(t, etag, gotETag)
}

func TestCacheExpiry(t *testing.T) {
	c := New(true)
	c.Set("k", []byte("x"), -time.Second)

	_, _, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCacheDisabled(t *testing.T) {
	c := New(false)
	etag := c.Set("k", []byte("x"), time.Minute)
	assert.NotEmpty(t, etag, "disabled cache still computes ETags")

	_, _, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	c := New(true)
	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)

	c.Invalidate()

	_, _, ok := c.Get("a")
	assert.False(t, ok)
	_, _, ok = c.Get("b")
	assert.False(t, ok)
}

func TestETagStableForSameBytes(t *testing.T) {
	assert.Equal(t, ComputeETag([]byte("abc")), ComputeETag([]byte("abc")))
	assert.NotEqual(t, ComputeETag([]byte("abc")), ComputeETag([]byte("abd")))
}

func TestCheckETagMatch(t *testing.T) {
	etag := ComputeETag([]byte("abc"))
	assert.True(t, CheckETagMatch(etag, etag))
	assert.True(t, CheckETagMatch("*", etag))
	assert.False(t, CheckETagMatch("", etag))
	assert.False(t, CheckETagMatch(`W/"other"`, etag))
}
