package mediator

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/mediator/pkg/mediator/journal"
	"github.com/randalmurphal/mediator/pkg/mediator/observability"
	"github.com/randalmurphal/mediator/pkg/mediator/registry"
)

// slot holds the registry value for one name.
// Guarded by Engine.mu.
type slot struct {
	kind      Kind
	module    any
	instances []any
}

// value returns what connect callbacks receive for this slot: the module
// object, or a copy of the instance sequence.
func (s *slot) value() any {
	if s.kind == KindModule {
		return s.module
	}
	out := make([]any, len(s.instances))
	copy(out, s.instances)
	return out
}

// Engine is a name registry that couples components through Connect,
// ForEach and Group without the components referencing each other.
//
// Every operation and every callback it triggers runs to completion before
// the operation returns. Callbacks may call back into the engine. The
// engine's own state is guarded by a mutex that is never held while user
// callbacks run.
type Engine struct {
	mu       sync.Mutex
	entries  *registry.Registry[string, *slot]
	pending  []*pendingConn
	claims   map[string]string   // claimed name -> ref of the claiming request
	groups   map[string]struct{} // group names declared but not yet registered
	subs     []*subscription
	depth    int
	maxDepth int
	traceCtx context.Context

	rootCtx context.Context
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	journal journal.Store
}

// New creates an empty engine.
//
// Example:
//
//	eng := mediator.New(mediator.WithLogger(logger))
//	eng.Register("Router", router)
//	eng.Connect([]string{"Router"}, func(mods ...any) {
//	    router := mods[0].(*Router)
//	    // wire things to router
//	})
func New(opts ...Option) *Engine {
	e := &Engine{
		entries:  registry.New[string, *slot](),
		claims:   make(map[string]string),
		groups:   make(map[string]struct{}),
		maxDepth: DefaultMaxCascadeDepth,
		rootCtx:  context.Background(),
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}

	for _, opt := range opts {
		opt(e)
	}

	e.traceCtx = e.rootCtx
	return e
}

// Close releases the journal, if one is configured. Registry state is
// unaffected and the engine stays usable without a journal.
func (e *Engine) Close() error {
	e.mu.Lock()
	store := e.journal
	e.journal = nil
	e.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.Close()
}

// Register stores object under name and returns it unchanged.
//
// A Module name (uppercase first rune) can be registered once; an Instance
// name (lowercase first rune) appends to its sequence on every call.
// Before returning, Register resolves every pending connection whose last
// missing name was this Module, then delivers object to every subscription
// that existed when it was stored.
//
// Fails with ErrInvalidName, ErrInvalidObject, ErrDuplicateModule or
// ErrCascadeTooDeep, leaving the engine unchanged.
func (e *Engine) Register(name string, object any) (any, error) {
	n, err := ParseName(name)
	if err != nil {
		return nil, e.reject("register", &NameError{Name: name, Op: "register", Err: ErrInvalidName})
	}
	return e.register(n, object, false)
}

// register implements Register. fromGroup is set when a group continuation
// registers its own reserved name.
func (e *Engine) register(n Name, object any, fromGroup bool) (any, error) {
	if isNil(object) {
		return nil, e.reject("register", &NameError{Name: n.Value, Op: "register", Err: ErrInvalidObject})
	}

	e.mu.Lock()
	if err := e.checkDepthLocked("register", n.Value); err != nil {
		e.mu.Unlock()
		return nil, e.reject("register", err)
	}

	_, reserved := e.groups[n.Value]
	if reserved && !fromGroup {
		e.mu.Unlock()
		return nil, e.reject("register", &NameError{Name: n.Value, Op: "register", Err: ErrDuplicateModule})
	}

	var ready []*pendingConn
	size := 1
	if n.Kind == KindModule {
		if !e.entries.Add(n.Value, &slot{kind: KindModule, module: object}) {
			e.mu.Unlock()
			return nil, e.reject("register", &NameError{Name: n.Value, Op: "register", Err: ErrDuplicateModule})
		}
		delete(e.groups, n.Value)
		ready = e.satisfyLocked(n.Value)
	} else {
		s := e.entries.GetOrCreate(n.Value, func() *slot { return &slot{kind: KindInstance} })
		s.instances = append(s.instances, object)
		size = len(s.instances)
	}

	// Subscriptions added from here on replay this object instead.
	subs := make([]*subscription, len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	observability.LogRegistered(e.logger, n.Value, n.Kind.String(), size)
	e.metrics.RecordRegistration(e.rootCtx, n.Kind.String())
	e.record(journal.Entry{Kind: journal.KindRegister, Name: n.Value})

	e.dispatch(func() {
		e.traced(func(ctx context.Context) (context.Context, trace.Span) {
			return e.spans.StartRegisterSpan(ctx, n.Value, n.Kind.String())
		}, func() {
			for _, p := range ready {
				e.resolve(p)
			}
			for _, sub := range subs {
				sub.deliver(e, object, n.Value, false)
			}
		})
	})

	return object, nil
}

// Lookup returns the value stored under name: the Module object, or a copy
// of the Instance sequence. Lookup never claims name.
func (e *Engine) Lookup(name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.entries.Get(name)
	if !ok {
		return nil, false
	}
	return s.value(), true
}

// Instances returns a copy of the sequence registered under an Instance
// name, or nil if none.
func (e *Engine) Instances(name string) []any {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.entries.Get(name)
	if !ok || s.kind != KindInstance {
		return nil
	}
	out := make([]any, len(s.instances))
	copy(out, s.instances)
	return out
}

// Names returns every registered name in first-registration order.
func (e *Engine) Names() []string {
	return e.entries.Keys()
}

// Claimed reports whether name has been requested by a connect, group or
// waiting ForEach.
func (e *Engine) Claimed(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.claims[name]
	return ok
}

// Stats summarises engine state.
type Stats struct {
	Modules       int
	Instances     int // registered instance objects across all instance names
	Pending       int
	Claims        int
	Subscriptions int
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Stats{
		Pending:       len(e.pending),
		Claims:        len(e.claims),
		Subscriptions: len(e.subs),
	}
	e.entries.Range(func(_ string, s *slot) bool {
		if s.kind == KindModule {
			st.Modules++
		} else {
			st.Instances += len(s.instances)
		}
		return true
	})
	return st
}

// dispatch runs body one cascade level deeper.
func (e *Engine) dispatch(body func()) {
	e.mu.Lock()
	e.depth++
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.depth--
		e.mu.Unlock()
	}()

	body()
}

// traced runs body inside the span returned by start. Spans opened by
// engine calls made from body become its children.
func (e *Engine) traced(start func(context.Context) (context.Context, trace.Span), body func()) {
	e.mu.Lock()
	parent := e.traceCtx
	e.mu.Unlock()

	ctx, span := start(parent)
	e.mu.Lock()
	e.traceCtx = ctx
	e.mu.Unlock()

	defer func() {
		e.spans.EndSpanWithError(span, nil)
		e.mu.Lock()
		e.traceCtx = parent
		e.mu.Unlock()
	}()

	body()
}

// checkDepthLocked rejects calls nested beyond maxDepth. Callers hold e.mu.
func (e *Engine) checkDepthLocked(op, name string) error {
	if e.depth >= e.maxDepth {
		return &CascadeError{Op: op, Name: name, Depth: e.depth, Max: e.maxDepth}
	}
	return nil
}

// reject logs and counts a failed operation and returns err.
func (e *Engine) reject(op string, err error) error {
	observability.LogRejected(e.logger, op, err)
	e.metrics.RecordRejection(e.rootCtx, op)
	return err
}

// record appends to the journal, if configured. Failures are logged only.
func (e *Engine) record(entry journal.Entry) {
	e.mu.Lock()
	store := e.journal
	e.mu.Unlock()
	if store == nil {
		return
	}
	if err := store.Append(entry); err != nil {
		observability.LogJournalError(e.logger, string(entry.Kind), err)
	}
}

// isNil reports whether v is nil or a typed nil.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
