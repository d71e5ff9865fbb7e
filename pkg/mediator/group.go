package mediator

import (
	"log/slog"

	"github.com/randalmurphal/mediator/pkg/mediator/journal"
	"github.com/randalmurphal/mediator/pkg/mediator/observability"
)

// Container is the fresh value handed to a GroupFunc. It is registered
// under the group name when the GroupFunc returns nil.
type Container map[string]any

// GroupFunc builds a group from its resolved members. A nil return
// registers c instead.
type GroupFunc func(c Container, mods ...any) any

// Group connects to members and registers whatever fn builds from them under
// name, which must be a Module name.
//
// The members become claimed, so after Group only name is reachable through
// Connect, Group or ForEach with After.
//
// Example:
//
//	eng.Group("Toolbar", []string{"SaveButton", "OpenButton"}, func(c mediator.Container, mods ...any) any {
//	    return NewToolbar(mods[0].(*Button), mods[1].(*Button))
//	})
//
// Fails with ErrInvalidName, ErrInvalidCallback, ErrDuplicateModule when
// name is already registered or declared by another group, or a
// *ClaimError. A failed Group leaves the engine unchanged.
func (e *Engine) Group(name string, members []string, fn GroupFunc) (*Engine, error) {
	n, err := ParseName(name)
	if err != nil || n.Kind != KindModule {
		return nil, e.reject("group", &NameError{Name: name, Op: "group", Err: ErrInvalidName})
	}
	if fn == nil {
		return nil, e.reject("group", &NameError{Name: name, Op: "group", Err: ErrInvalidCallback})
	}

	e.mu.Lock()
	_, reserved := e.groups[name]
	if reserved || e.entries.Has(name) {
		e.mu.Unlock()
		return nil, e.reject("group", &NameError{Name: name, Op: "group", Err: ErrDuplicateModule})
	}
	e.groups[name] = struct{}{}
	e.mu.Unlock()

	members = append([]string(nil), members...)
	_, err = e.connect("group", members, func(mods []any) {
		e.build(n, members, fn, mods)
	})
	if err != nil {
		e.mu.Lock()
		delete(e.groups, name)
		e.mu.Unlock()
		return nil, err
	}
	return e, nil
}

// build runs fn and registers its result under the group name.
func (e *Engine) build(n Name, members []string, fn GroupFunc, mods []any) {
	c := make(Container)
	result := fn(c, mods...)
	if isNil(result) {
		result = c
	}

	if _, err := e.register(n, result, true); err != nil {
		// The name stays reserved so no one else can take it.
		e.logger.Error("group registration failed",
			slog.String("name", n.Value),
			slog.String("error", err.Error()),
		)
		return
	}

	observability.LogGrouped(e.logger, n.Value, members)
	e.record(journal.Entry{Kind: journal.KindGroup, Name: n.Value, Names: members})
}
