package mediator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/mediator/pkg/mediator/journal"
	"github.com/randalmurphal/mediator/pkg/mediator/observability"
)

// EachFunc receives one registered object and the name it was registered
// under, followed by the values of the After names.
type EachFunc func(object any, name string, mods ...any)

// EachOption configures a ForEach subscription.
type EachOption func(*eachConfig)

type eachConfig struct {
	filter    string
	hasFilter bool
	after     []string
}

// Filter restricts delivery to objects registered under name.
func Filter(name string) EachOption {
	return func(c *eachConfig) {
		c.filter = name
		c.hasFilter = true
	}
}

// After delays the subscription until names are present and passes their
// values to every callback. The names are claimed like Connect claims them.
func After(names ...string) EachOption {
	return func(c *eachConfig) {
		c.after = append(c.after, names...)
	}
}

// subscription is a permanent broadcast listener.
type subscription struct {
	ref       string
	filter    string
	hasFilter bool
	fn        EachFunc
	mods      []any
}

func (s *subscription) matches(name string) bool {
	return !s.hasFilter || s.filter == name
}

func (s *subscription) deliver(e *Engine, object any, name string, replay bool) {
	if !s.matches(name) {
		return
	}
	e.metrics.RecordDelivery(e.rootCtx, replay)
	s.fn(object, name, s.mods...)
}

// delivery is one replayed (object, name) pair.
type delivery struct {
	object any
	name   string
}

// ForEach calls fn for every object already registered and every object
// registered afterwards, each exactly once.
//
// Existing entries are replayed first, in first-registration order of their
// names: a Module once, an Instance once per element in insertion order.
// Later registrations are delivered as they happen.
//
// With After, the subscription starts only once the After names are
// present; until then nothing is replayed or delivered.
//
// Example:
//
//	eng.ForEach(func(obj any, name string, mods ...any) {
//	    router := mods[0].(*Router)
//	    router.Add(obj.(*Button))
//	}, mediator.Filter("button"), mediator.After("Router"))
func (e *Engine) ForEach(fn EachFunc, opts ...EachOption) (*Engine, error) {
	if fn == nil {
		return nil, e.reject("foreach", &NameError{Op: "foreach", Err: ErrInvalidCallback})
	}

	var cfg eachConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.hasFilter {
		if _, err := ParseName(cfg.filter); err != nil {
			return nil, e.reject("foreach", &NameError{Name: cfg.filter, Op: "foreach", Err: ErrInvalidName})
		}
	}

	_, err := e.connect("foreach", cfg.after, func(mods []any) {
		e.subscribe(cfg, fn, mods)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// subscribe adds the subscription and replays existing entries to it.
func (e *Engine) subscribe(cfg eachConfig, fn EachFunc, mods []any) {
	sub := &subscription{
		ref:       fmt.Sprintf("sub-%s", uuid.New().String()[:8]),
		filter:    cfg.filter,
		hasFilter: cfg.hasFilter,
		fn:        fn,
		mods:      mods,
	}

	// Adding the subscription and taking the replay snapshot under one lock
	// means every object is either replayed or delivered live, never both.
	e.mu.Lock()
	e.subs = append(e.subs, sub)
	var replay []delivery
	for _, entry := range e.entries.Snapshot() {
		if !sub.matches(entry.Key) {
			continue
		}
		if entry.Value.kind == KindModule {
			replay = append(replay, delivery{object: entry.Value.module, name: entry.Key})
			continue
		}
		for _, obj := range entry.Value.instances {
			replay = append(replay, delivery{object: obj, name: entry.Key})
		}
	}
	e.mu.Unlock()

	observability.LogSubscribed(e.logger, sub.ref, sub.filter, len(replay))
	e.record(journal.Entry{Kind: journal.KindSubscribe, Name: sub.filter, Ref: sub.ref})

	e.traced(func(ctx context.Context) (context.Context, trace.Span) {
		return e.spans.StartReplaySpan(ctx, sub.ref, sub.filter)
	}, func() {
		for _, d := range replay {
			sub.deliver(e, d.object, d.name, true)
		}
	})
}

// ForEachArgs is ForEach for loosely typed callers. It accepts the
// argument shapes
//
//	(fn)
//	(afterNames []string, fn)
//	(filter string, fn)
//	(filter string, afterNames []string, fn)
//
// where fn is an EachFunc, a func(any, string, ...any) or a
// func(any, string). Any other shape fails with ErrInvalidCallback.
func (e *Engine) ForEachArgs(args ...any) (*Engine, error) {
	opts, fn, ok := parseEachArgs(args)
	if !ok {
		return nil, e.reject("foreach", &NameError{Op: "foreach", Err: ErrInvalidCallback})
	}
	return e.ForEach(fn, opts...)
}

func parseEachArgs(args []any) ([]EachOption, EachFunc, bool) {
	if len(args) == 0 || len(args) > 3 {
		return nil, nil, false
	}

	fn := asEachFunc(args[len(args)-1])
	if fn == nil {
		return nil, nil, false
	}

	var opts []EachOption
	switch lead := args[:len(args)-1]; len(lead) {
	case 0:
	case 1:
		switch v := lead[0].(type) {
		case string:
			opts = append(opts, Filter(v))
		case []string:
			opts = append(opts, After(v...))
		default:
			return nil, nil, false
		}
	case 2:
		filter, ok := lead[0].(string)
		if !ok {
			return nil, nil, false
		}
		after, ok := lead[1].([]string)
		if !ok {
			return nil, nil, false
		}
		opts = append(opts, Filter(filter), After(after...))
	}
	return opts, fn, true
}

func asEachFunc(v any) EachFunc {
	switch fn := v.(type) {
	case EachFunc:
		return fn
	case func(any, string, ...any):
		if fn == nil {
			return nil
		}
		return fn
	case func(any, string):
		if fn == nil {
			return nil
		}
		return func(object any, name string, _ ...any) { fn(object, name) }
	default:
		return nil
	}
}
