package registry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r := New[string, int]()
	assert.NotNil(t, r)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Keys())
}

func TestAddAndGet(t *testing.T) {
	r := New[string, int]()

	assert.True(t, r.Add("one", 1))
	assert.True(t, r.Add("two", 2))

	v, ok := r.Get("one")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = r.Get("two")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	// Non-existent key
	v, ok = r.Get("three")
	assert.False(t, ok)
	assert.Equal(t, 0, v) // zero value
}

func TestAddRefusesExistingKey(t *testing.T) {
	r := New[string, string]()

	require.True(t, r.Add("key", "old"))
	assert.False(t, r.Add("key", "new"))

	v, ok := r.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "old", v)
	assert.Equal(t, 1, r.Len())
}

func TestSetReplacesInPlace(t *testing.T) {
	r := New[string, int]()
	r.Add("a", 1)
	r.Add("b", 2)

	r.Set("a", 10)
	r.Set("c", 3)

	v, _ := r.Get("a")
	assert.Equal(t, 10, v)
	assert.Equal(t, []string{"a", "b", "c"}, r.Keys())
}

func TestHas(t *testing.T) {
	r := New[string, int]()
	r.Add("key", 42)

	assert.True(t, r.Has("key"))
	assert.False(t, r.Has("nonexistent"))
}

func TestKeysInsertionOrder(t *testing.T) {
	r := New[string, int]()
	r.Add("zeta", 1)
	r.Add("alpha", 2)
	r.Add("Mid", 3)

	assert.Equal(t, []string{"zeta", "alpha", "Mid"}, r.Keys())
}

func TestKeysReturnsCopy(t *testing.T) {
	r := New[string, int]()
	r.Add("a", 1)

	keys := r.Keys()
	keys[0] = "mutated"

	assert.Equal(t, []string{"a"}, r.Keys())
}

func TestSnapshot(t *testing.T) {
	r := New[string, int]()
	r.Add("one", 1)
	r.Add("two", 2)

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, Entry[string, int]{Key: "one", Value: 1}, snap[0])
	assert.Equal(t, Entry[string, int]{Key: "two", Value: 2}, snap[1])
}

func TestRange(t *testing.T) {
	r := New[string, int]()
	r.Add("one", 1)
	r.Add("two", 2)
	r.Add("three", 3)

	var order []string
	r.Range(func(k string, v int) bool {
		order = append(order, k)
		return true
	})

	assert.Equal(t, []string{"one", "two", "three"}, order)
}

func TestRangeEarlyStop(t *testing.T) {
	r := New[string, int]()
	r.Add("one", 1)
	r.Add("two", 2)
	r.Add("three", 3)

	count := 0
	r.Range(func(k string, v int) bool {
		count++
		return false // stop after first
	})

	assert.Equal(t, 1, count)
}

func TestRangeEmpty(t *testing.T) {
	r := New[string, int]()

	called := false
	r.Range(func(k string, v int) bool {
		called = true
		return true
	})

	assert.False(t, called)
}

func TestRangeAllowsMutation(t *testing.T) {
	r := New[string, int]()
	r.Add("one", 1)
	r.Add("two", 2)

	visited := 0
	r.Range(func(k string, v int) bool {
		visited++
		r.Add("new-"+k, v*10)
		return true
	})

	assert.Equal(t, 2, visited)
	assert.Equal(t, []string{"one", "two", "new-one", "new-two"}, r.Keys())
}

func TestGetOrCreate(t *testing.T) {
	r := New[string, int]()

	callCount := 0
	factory := func() int {
		callCount++
		return 42
	}

	v := r.GetOrCreate("key", factory)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, callCount)

	v = r.GetOrCreate("key", factory)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, callCount) // factory not called again
	assert.Equal(t, []string{"key"}, r.Keys())
}

func TestGetOrCreatePointerSlot(t *testing.T) {
	r := New[string, *[]string]()

	s := r.GetOrCreate("button", func() *[]string { return new([]string) })
	*s = append(*s, "b1")
	s = r.GetOrCreate("button", func() *[]string { return new([]string) })
	*s = append(*s, "b2")

	got, ok := r.Get("button")
	require.True(t, ok)
	assert.Equal(t, []string{"b1", "b2"}, *got)
}

func TestNilValue(t *testing.T) {
	r := New[string, *int]()
	r.Add("nil", nil)

	v, ok := r.Get("nil")
	assert.True(t, ok)
	assert.Nil(t, v)

	// Distinguish nil value from missing key
	_, ok = r.Get("missing")
	assert.False(t, ok)
}

// Thread-safety tests

func TestConcurrentAdd(t *testing.T) {
	r := New[int, int]()
	var wg sync.WaitGroup
	n := 1000

	for i := range n {
		wg.Add(1)
		go func(val int) {
			defer wg.Done()
			r.Add(val, val*2)
		}(i)
	}

	wg.Wait()

	assert.Equal(t, n, r.Len())
	assert.Len(t, r.Keys(), n)
	for i := range n {
		v, ok := r.Get(i)
		assert.True(t, ok)
		assert.Equal(t, i*2, v)
	}
}

func TestConcurrentAddSameKey(t *testing.T) {
	r := New[string, int]()
	var wg sync.WaitGroup
	var wins atomic.Int32

	for i := range 100 {
		wg.Add(1)
		go func(val int) {
			defer wg.Done()
			if r.Add("Router", val) {
				wins.Add(1)
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, r.Len())
}

func TestConcurrentGetOrCreate(t *testing.T) {
	r := New[string, int]()
	var wg sync.WaitGroup
	n := 100
	var callCount atomic.Int32

	factory := func() int {
		callCount.Add(1)
		return 42
	}

	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := r.GetOrCreate("key", factory)
			assert.Equal(t, 42, v)
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), callCount.Load())
	assert.Equal(t, 1, r.Len())
}

func BenchmarkGet(b *testing.B) {
	r := New[int, int]()
	for i := range 1000 {
		r.Add(i, i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Get(i % 1000)
	}
}

func BenchmarkAdd(b *testing.B) {
	r := New[int, int]()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Add(i, i)
	}
}

func BenchmarkSnapshot_1000(b *testing.B) {
	r := New[int, int]()
	for i := range 1000 {
		r.Add(i, i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Snapshot()
	}
}
