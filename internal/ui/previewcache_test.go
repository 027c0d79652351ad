package ui

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreviewCache_GetAndPut(t *testing.T) {
	// Given an empty cache
	cache := NewPreviewCache(4)

	// When content is stored
	cache.Put("a.go", "package a")

	// Then it can be read back
	content, ok := cache.Get("a.go")
	assert.True(t, ok)
	assert.Equal(t, "package a", content)

	_, ok = cache.Get("missing.go")
	assert.False(t, ok)
}

func TestPreviewCache_SweepsWhenFull(t *testing.T) {
	// Given a cache at its limit
	cache := NewPreviewCache(3)
	for i := 0; i < 3; i++ {
		cache.Put(fmt.Sprintf("f%d.go", i), "content")
	}
	assert.Equal(t, 3, cache.Len())

	// When one more entry arrives
	cache.Put("overflow.go", "content")

	// Then everything before it was swept
	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Get("f0.go")
	assert.False(t, ok)
	_, ok = cache.Get("overflow.go")
	assert.True(t, ok)
}

func TestPreviewCache_UpdateDoesNotSweep(t *testing.T) {
	// Given a full cache
	cache := NewPreviewCache(2)
	cache.Put("a.go", "old")
	cache.Put("b.go", "content")

	// When an existing key is rewritten
	cache.Put("a.go", "new")

	// Then the cache keeps both entries
	assert.Equal(t, 2, cache.Len())
	content, ok := cache.Get("a.go")
	assert.True(t, ok)
	assert.Equal(t, "new", content)
}

func TestPreviewCache_MinimumSize(t *testing.T) {
	cache := NewPreviewCache(0)
	cache.Put("a.go", "content")
	cache.Put("b.go", "content")
	assert.Equal(t, 1, cache.Len())
}
