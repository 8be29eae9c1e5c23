package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidatePrefixDropsOnlyThatBrand(t *testing.T) {
	c := New(Config{TTL: time.Minute})
	c.Set(Key(BrandNamespace("topics", "b1"), "u1"), Entry{Value: []byte(`[]`)})
	c.Set(Key(BrandNamespace("articles", "b1"), "u1"), Entry{Value: []byte(`[]`)})
	c.Set(Key(BrandNamespace("topics", "b2"), "u1"), Entry{Value: []byte(`[]`)})

	removed := c.InvalidatePrefix(BrandNamespace("topics", "b1") + "|")
	assert.Equal(t, 1, removed)

	_, ok := c.Get(Key(BrandNamespace("topics", "b2"), "u1"))
	assert.True(t, ok)
	_, ok = c.Get(Key(BrandNamespace("articles", "b1"), "u1"))
	assert.True(t, ok)
}

func TestEntriesExpire(t *testing.T) {
	c := New(Config{TTL: time.Millisecond})
	c.Set("k", Entry{Value: []byte(`1`)})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestMaxEntriesEvictsOldest(t *testing.T) {
	c := New(Config{TTL: time.Minute, MaxEntries: 2})
	c.Set("a", Entry{Value: []byte(`1`)})
	time.Sleep(time.Millisecond)
	c.Set("b", Entry{Value: []byte(`2`)})
	time.Sleep(time.Millisecond)
	c.Set("c", Entry{Value: []byte(`3`)})

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLoadSharesConcurrentCalls(t *testing.T) {
	c := New(Config{TTL: time.Minute})
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([][]string, 5)
	for i := range results {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			value, err := Load(c, "topics", func() ([]string, error) {
				calls.Add(1)
				<-release
				return []string{"a", "b"}, nil
			})
			assert.NoError(t, err)
			results[index] = value
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, result := range results {
		assert.Equal(t, []string{"a", "b"}, result)
	}

	cached, err := Load(c, "topics", func() ([]string, error) {
		return nil, errors.New("should not be called")
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cached)
}

func TestLoadDoesNotCacheErrors(t *testing.T) {
	c := New(Config{})
	_, err := Load(c, "k", func() (int, error) { return 0, errors.New("boom") })
	require.Error(t, err)

	value, err := Load(c, "k", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, value)
}
