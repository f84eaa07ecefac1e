package sectioncache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/StockBrief/internal/section"
)

func TestDefaultKeyIgnoresDate(t *testing.T) {
	c := New(nil)
	calls := 0
	create := func(text string) func() (string, error) {
		return func() (string, error) {
			calls++
			return text, nil
		}
	}

	text, hit, err := c.GetOrCreate(section.MarketIndex, "20260205", create("first"))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "first", text)

	text, hit, err = c.GetOrCreate(section.MarketIndex, "20260206", create("second"))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "first", text)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
}

func TestDateKeySeparatesDates(t *testing.T) {
	c := New(DateKey)
	_, _, _ = c.GetOrCreate(section.MarketIndex, "20260205", func() (string, error) { return "a", nil })
	text, hit, err := c.GetOrCreate(section.MarketIndex, "20260206", func() (string, error) { return "b", nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "b", text)
	assert.Equal(t, 2, c.Len())

	got, ok := c.Get(section.MarketIndex, "20260205")
	assert.True(t, ok)
	assert.Equal(t, "a", got)
}

func TestErrorsAreNotCached(t *testing.T) {
	c := New(nil)
	_, _, err := c.GetOrCreate(section.MarketIndex, "20260206", func() (string, error) {
		return "", errors.New("model offline")
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	text, hit, err := c.GetOrCreate(section.MarketIndex, "20260206", func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "ok", text)
}

func TestConcurrentCallersGenerateOnce(t *testing.T) {
	c := New(nil)
	var calls atomic.Int32
	release := make(chan struct{})

	const n = 16
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text, _, err := c.GetOrCreate(section.MarketIndex, "20260206", func() (string, error) {
				calls.Add(1)
				<-release
				return "market text", nil
			})
			assert.NoError(t, err)
			results[i] = text
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "market text", r)
	}
}
