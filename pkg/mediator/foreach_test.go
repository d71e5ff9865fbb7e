package mediator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEach_ReplaysThenLive(t *testing.T) {
	eng := newTestEngine()
	r := &Router{}
	b1, b2, b3 := &Button{"one"}, &Button{"two"}, &Button{"three"}

	_, _ = eng.Register("button", b1)
	_, _ = eng.Register("Router", r)
	_, _ = eng.Register("button", b2)

	rec := &eachRecorder{}
	got, err := eng.ForEach(rec.fn)
	require.NoError(t, err)
	assert.Same(t, eng, got)

	// Names in first-registration order, instances in insertion order
	assert.Equal(t, []any{b1, b2, r}, rec.objects())
	assert.Equal(t, []string{"button", "button", "Router"}, rec.names())

	_, _ = eng.Register("button", b3)
	assert.Equal(t, []any{b1, b2, r, b3}, rec.objects())
}

func TestForEach_Filter(t *testing.T) {
	eng := newTestEngine()
	b1, b2 := &Button{"one"}, &Button{"two"}

	_, _ = eng.Register("button", b1)
	_, _ = eng.Register("link", &Button{"link"})
	_, _ = eng.Register("Router", &Router{})
	_, _ = eng.Register("button", b2)

	rec := &eachRecorder{}
	_, err := eng.ForEach(rec.fn, Filter("button"))
	require.NoError(t, err)
	assert.Equal(t, []any{b1, b2}, rec.objects())

	_, _ = eng.Register("link", &Button{"other"})
	b3 := &Button{"three"}
	_, _ = eng.Register("button", b3)
	assert.Equal(t, []any{b1, b2, b3}, rec.objects())
	assert.False(t, eng.Claimed("button"), "a filter alone claims nothing")
}

func TestForEach_FilterModule(t *testing.T) {
	eng := newTestEngine()
	rec := &eachRecorder{}

	_, err := eng.ForEach(rec.fn, Filter("Router"))
	require.NoError(t, err)
	assert.Empty(t, rec.calls)

	r := &Router{}
	_, _ = eng.Register("Router", r)
	assert.Equal(t, []any{r}, rec.objects())
}

func TestForEach_AfterWaitsAndPassesModules(t *testing.T) {
	eng := newTestEngine()
	b1 := &Button{"one"}
	_, _ = eng.Register("button", b1)

	rec := &eachRecorder{}
	_, err := eng.ForEach(rec.fn, Filter("button"), After("Router"))
	require.NoError(t, err)
	assert.True(t, eng.Claimed("Router"))
	assert.Empty(t, rec.calls, "nothing delivered before After names are present")

	b2 := &Button{"two"}
	_, _ = eng.Register("button", b2)
	assert.Empty(t, rec.calls)

	r := &Router{}
	_, _ = eng.Register("Router", r)
	require.Len(t, rec.calls, 2, "replay covers entries registered while waiting")
	assert.Equal(t, []any{b1, b2}, rec.objects())
	for _, c := range rec.calls {
		assert.Equal(t, []any{r}, c.Mods)
	}

	b3 := &Button{"three"}
	_, _ = eng.Register("button", b3)
	require.Len(t, rec.calls, 3)
	assert.Same(t, b3, rec.calls[2].Object)
	assert.Equal(t, []any{r}, rec.calls[2].Mods)
}

func TestForEach_AfterSeesOwnDependency(t *testing.T) {
	eng := newTestEngine()
	rec := &eachRecorder{}

	_, err := eng.ForEach(rec.fn, After("Router"))
	require.NoError(t, err)

	r := &Router{}
	_, _ = eng.Register("Router", r)

	// Router is stored before the subscription exists, so it is replayed once
	require.Len(t, rec.calls, 1)
	assert.Same(t, r, rec.calls[0].Object)
}

func TestForEach_ExactlyOnceUnderReentrancy(t *testing.T) {
	eng := newTestEngine()
	rec := &eachRecorder{}

	// A connect callback that registers and subscribes in one cascade
	_, err := eng.Connect([]string{"Router"}, func(...any) {
		_, _ = eng.Register("button", &Button{"from cascade"})
		_, err := eng.ForEach(rec.fn)
		assert.NoError(t, err)
		_, _ = eng.Register("button", &Button{"after subscribe"})
	})
	require.NoError(t, err)

	_, _ = eng.Register("button", &Button{"before"})
	_, _ = eng.Register("Router", &Router{})

	labels := map[string]int{}
	for _, obj := range rec.objects() {
		if b, ok := obj.(*Button); ok {
			labels[b.Label]++
		}
	}
	assert.Equal(t, map[string]int{"before": 1, "from cascade": 1, "after subscribe": 1}, labels)
	assert.Len(t, rec.calls, 4, "three buttons and the router, each once")
}

func TestForEach_SubscriptionRegistersDuringReplay(t *testing.T) {
	eng := newTestEngine()
	_, _ = eng.Register("button", &Button{"one"})

	var seen []string
	_, err := eng.ForEach(func(obj any, name string, _ ...any) {
		b := obj.(*Button)
		seen = append(seen, b.Label)
		if b.Label == "one" {
			_, _ = eng.Register("button", &Button{"two"})
		}
	}, Filter("button"))
	require.NoError(t, err)

	assert.Equal(t, []string{"one", "two"}, seen, "nested registration is delivered live, once")
}

func TestForEach_MultipleSubscriptionsInOrder(t *testing.T) {
	eng := newTestEngine()
	var order []string

	_, _ = eng.ForEach(func(any, string, ...any) { order = append(order, "first") })
	_, _ = eng.ForEach(func(any, string, ...any) { order = append(order, "second") })

	_, _ = eng.Register("button", &Button{})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestForEach_InvalidArguments(t *testing.T) {
	eng := newTestEngine()

	_, err := eng.ForEach(nil)
	assert.ErrorIs(t, err, ErrInvalidCallback)

	_, err = eng.ForEach(func(any, string, ...any) {}, Filter(""))
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = eng.ForEach(func(any, string, ...any) {}, Filter("9lives"))
	assert.ErrorIs(t, err, ErrInvalidName)

	assert.Equal(t, 0, eng.Stats().Subscriptions)
}

func TestForEachArgs_Shapes(t *testing.T) {
	r := &Router{}
	b := &Button{"b"}

	setup := func() *Engine {
		eng := newTestEngine()
		_, _ = eng.Register("Router", r)
		_, _ = eng.Register("button", b)
		return eng
	}

	t.Run("fn", func(t *testing.T) {
		rec := &eachRecorder{}
		_, err := setup().ForEachArgs(rec.fn)
		require.NoError(t, err)
		assert.Equal(t, []any{r, b}, rec.objects())
	})

	t.Run("names and fn", func(t *testing.T) {
		rec := &eachRecorder{}
		eng := setup()
		_, err := eng.ForEachArgs([]string{"Router"}, rec.fn)
		require.NoError(t, err)
		assert.Equal(t, []any{r, b}, rec.objects())
		assert.Equal(t, []any{r}, rec.calls[0].Mods)
		assert.True(t, eng.Claimed("Router"))
	})

	t.Run("filter and fn", func(t *testing.T) {
		rec := &eachRecorder{}
		_, err := setup().ForEachArgs("button", rec.fn)
		require.NoError(t, err)
		assert.Equal(t, []any{b}, rec.objects())
	})

	t.Run("filter names and fn", func(t *testing.T) {
		rec := &eachRecorder{}
		_, err := setup().ForEachArgs("button", []string{"Router"}, rec.fn)
		require.NoError(t, err)
		require.Len(t, rec.calls, 1)
		assert.Same(t, b, rec.calls[0].Object)
		assert.Equal(t, []any{r}, rec.calls[0].Mods)
	})

	t.Run("plain func types", func(t *testing.T) {
		var count int
		_, err := setup().ForEachArgs(func(any, string, ...any) { count++ })
		require.NoError(t, err)
		_, err = setup().ForEachArgs("button", func(obj any, name string) { count++ })
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})
}

func TestForEachArgs_InvalidShapes(t *testing.T) {
	var nilEach EachFunc
	fn := func(any, string, ...any) {}

	tests := []struct {
		name string
		args []any
	}{
		{"no args", nil},
		{"not a func", []any{"button"}},
		{"wrong func signature", []any{func() {}}},
		{"nil EachFunc", []any{nilEach}},
		{"wrong lead type", []any{42, fn}},
		{"swapped filter and names", []any{[]string{"Router"}, "button", fn}},
		{"too many args", []any{"button", []string{"Router"}, "extra", fn}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newTestEngine()
			_, err := eng.ForEachArgs(tt.args...)
			assert.ErrorIs(t, err, ErrInvalidCallback)
			assert.Equal(t, 0, eng.Stats().Subscriptions)
		})
	}
}
