package utils

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLock(t *testing.T) {
	l := NewKeyedLock()

	assert.True(t, l.TryLock("a"))
	assert.False(t, l.TryLock("a"))
	assert.True(t, l.TryLock("b"))
	assert.True(t, l.Held("a"))

	l.Unlock("a")
	assert.False(t, l.Held("a"))
	assert.True(t, l.TryLock("a"))
}

func TestKeyedLock_SingleWinner(t *testing.T) {
	l := NewKeyedLock()
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryLock("campaign") {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestPageDescribe(t *testing.T) {
	info := Page{Number: 2, Size: 20}.Describe(45)
	assert.Equal(t, 3, info.TotalPages)
	assert.True(t, info.HasNext)
	assert.True(t, info.HasPrevious)

	empty := Page{Number: 1, Size: 20}.Describe(0)
	assert.Equal(t, 1, empty.TotalPages)
	assert.False(t, empty.HasNext)
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		page, size string
		want       Page
	}{
		{"3", "50", Page{Number: 3, Size: 50}},
		{"", "", Page{Number: 1, Size: DefaultPageSize}},
		{"-1", "abc", Page{Number: 1, Size: DefaultPageSize}},
		{"2", "500", Page{Number: 2, Size: MaxPageSize}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePage(tt.page, tt.size), "page=%q size=%q", tt.page, tt.size)
	}
	assert.Equal(t, 20, Page{Number: 2, Size: 20}.Offset())
}
