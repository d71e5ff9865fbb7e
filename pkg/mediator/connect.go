package mediator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/mediator/pkg/mediator/journal"
	"github.com/randalmurphal/mediator/pkg/mediator/observability"
)

// ConnectFunc receives the registry values of the requested names, in the
// order they were requested. A Module name yields its object; an Instance
// name yields a []any snapshot of its sequence.
type ConnectFunc func(mods ...any)

// pendingConn is a connection waiting for Module names to be registered.
// remaining is guarded by Engine.mu.
type pendingConn struct {
	ref       string
	op        string
	requested []string
	remaining map[string]struct{}
	fn        func([]any)
	since     time.Time
}

// remainingLocked returns the missing names in request order.
func (p *pendingConn) remainingLocked() []string {
	out := make([]string, 0, len(p.remaining))
	for _, name := range p.requested {
		if _, ok := p.remaining[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// PendingInfo describes a connection that is still waiting.
type PendingInfo struct {
	Ref       string
	Op        string
	Requested []string
	Remaining []string
	Since     time.Time
}

// Connect claims names and calls fn once every one of them is present.
//
// If all names are already registered, fn runs before Connect returns.
// Otherwise the connection waits and fn runs inside the Register call that
// supplies the last missing Module. Claims are permanent: no later Connect,
// Group or ForEach with After may request the same names, even if this
// connection never resolves.
//
// Registering an Instance never resolves a connection, so an Instance name
// that is absent here keeps the connection waiting.
//
// Fails with ErrInvalidCallback, ErrInvalidName, ErrCascadeTooDeep or a
// *ClaimError, leaving the engine unchanged.
func (e *Engine) Connect(names []string, fn ConnectFunc) (*Engine, error) {
	if fn == nil {
		return nil, e.reject("connect", &NameError{Op: "connect", Err: ErrInvalidCallback})
	}
	if _, err := e.connect("connect", names, func(mods []any) { fn(mods...) }); err != nil {
		return nil, err
	}
	return e, nil
}

// connect implements Connect for op and returns the connection ref.
func (e *Engine) connect(op string, names []string, fn func([]any)) (string, error) {
	parsed, err := parseNames(op, names)
	if err != nil {
		return "", e.reject(op, err)
	}

	requested := make([]string, len(parsed))
	for i, n := range parsed {
		requested[i] = n.Value
	}

	p := &pendingConn{
		ref:       fmt.Sprintf("conn-%s", uuid.New().String()[:8]),
		op:        op,
		requested: requested,
		remaining: make(map[string]struct{}),
		fn:        fn,
		since:     time.Now(),
	}

	e.mu.Lock()
	if err := e.checkDepthLocked(op, ""); err != nil {
		e.mu.Unlock()
		return "", e.reject(op, err)
	}
	if conflicts := e.conflictsLocked(requested); len(conflicts) > 0 {
		e.mu.Unlock()
		return "", e.reject(op, &ClaimError{Op: op, Names: conflicts})
	}

	var instances []string
	for _, n := range parsed {
		e.claims[n.Value] = p.ref
		if e.entries.Has(n.Value) {
			continue
		}
		p.remaining[n.Value] = struct{}{}
		if n.Kind == KindInstance {
			instances = append(instances, n.Value)
		}
	}

	deferred := len(p.remaining) > 0
	var remaining []string
	if deferred {
		e.pending = append(e.pending, p)
		remaining = p.remainingLocked()
	}
	e.mu.Unlock()

	e.metrics.RecordConnect(e.rootCtx, deferred)
	if len(requested) > 0 {
		e.record(journal.Entry{Kind: journal.KindClaim, Names: requested, Ref: p.ref})
	}

	if deferred {
		observability.LogConnectDeferred(e.logger, p.ref, remaining)
		if len(instances) > 0 {
			observability.LogInstanceWait(e.logger, p.ref, instances)
		}
		e.record(journal.Entry{Kind: journal.KindDefer, Names: remaining, Ref: p.ref})
		return p.ref, nil
	}

	e.dispatch(func() { e.resolve(p) })
	return p.ref, nil
}

// conflictsLocked returns every name in requested that is already claimed
// or repeated within requested, once each, in request order.
func (e *Engine) conflictsLocked(requested []string) []string {
	var conflicts []string
	seen := make(map[string]bool, len(requested))
	reported := make(map[string]bool)
	for _, name := range requested {
		_, claimed := e.claims[name]
		if (claimed || seen[name]) && !reported[name] {
			conflicts = append(conflicts, name)
			reported[name] = true
		}
		seen[name] = true
	}
	return conflicts
}

// satisfyLocked removes name from every pending connection and returns the
// connections left with nothing missing, in the order they were enqueued.
func (e *Engine) satisfyLocked(name string) []*pendingConn {
	var ready []*pendingConn
	kept := e.pending[:0]
	for _, p := range e.pending {
		delete(p.remaining, name)
		if len(p.remaining) == 0 {
			ready = append(ready, p)
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(e.pending); i++ {
		e.pending[i] = nil
	}
	e.pending = kept
	return ready
}

// resolve invokes a connection with the current values of its names.
func (e *Engine) resolve(p *pendingConn) {
	e.mu.Lock()
	mods := make([]any, len(p.requested))
	for i, name := range p.requested {
		if s, ok := e.entries.Get(name); ok {
			mods[i] = s.value()
		}
	}
	e.mu.Unlock()

	waited := time.Since(p.since)
	observability.LogResolved(e.logger, p.ref, p.requested, waited)
	e.metrics.RecordResolution(e.rootCtx, waited)
	if len(p.requested) > 0 {
		e.record(journal.Entry{Kind: journal.KindResolve, Names: p.requested, Ref: p.ref})
	}

	e.traced(func(ctx context.Context) (context.Context, trace.Span) {
		return e.spans.StartResolveSpan(ctx, p.ref, p.requested)
	}, func() {
		p.fn(mods)
	})
}

// Pending returns the connections still waiting, in the order they were
// enqueued.
func (e *Engine) Pending() []PendingInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]PendingInfo, 0, len(e.pending))
	for _, p := range e.pending {
		requested := make([]string, len(p.requested))
		copy(requested, p.requested)
		out = append(out, PendingInfo{
			Ref:       p.ref,
			Op:        p.op,
			Requested: requested,
			Remaining: p.remainingLocked(),
			Since:     p.since,
		})
	}
	return out
}
