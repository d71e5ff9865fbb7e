/*
Package mediator provides a name registry for wiring independently written
components together.

# Overview

Components ("modules") register themselves under a name. Coupling code
("mediators") asks for names and is called back once they exist. Neither
side references the other, so components can be written, tested and
replaced in isolation.

Names come in two kinds, decided by the case of the first rune:
  - Module names start uppercase. A Module holds one object, registered once.
  - Instance names start lowercase. An Instance holds a growing sequence of
    objects, one per registration.

# Basic Usage

	eng := mediator.New()

	eng.Register("Router", router)

	eng.Connect([]string{"Router"}, func(mods ...any) {
	    r := mods[0].(*Router)
	    r.Start()
	})

Connect runs its callback as soon as every requested name is present,
either immediately or inside the Register call that supplies the last one.

# Broadcast

ForEach sees every registered object, past and future, exactly once:

	eng.Register("button", b1)
	eng.Register("button", b2)

	eng.ForEach(func(obj any, name string, mods ...any) {
	    mods[0].(*Router).Add(obj.(*Button))
	}, mediator.Filter("button"), mediator.After("Router"))

	eng.Register("button", b3) // delivered automatically

# Encapsulation

Connect claims the names it requests, permanently. Group builds on that to
hide members behind a new Module:

	eng.Group("Toolbar", []string{"Save", "Open"}, func(c mediator.Container, mods ...any) any {
	    return NewToolbar(mods[0].(*Button), mods[1].(*Button))
	})

	eng.Connect([]string{"Save"}, fn)    // ErrAlreadyClaimed
	eng.Connect([]string{"Toolbar"}, fn) // ok

# Reentrancy

Callbacks run synchronously and may call back into the engine. Nested calls
are bounded by WithMaxCascadeDepth (default 256); a call nested deeper fails
with ErrCascadeTooDeep.

# Observability

Configure with options:

	eng := mediator.New(
	    mediator.WithLogger(slog.Default()),
	    mediator.WithMetrics(observability.NewMetricsRecorder()),
	    mediator.WithSpanManager(observability.NewSpanManager()),
	    mediator.WithJournal(journal.NewMemoryStore()),
	)

or from a config file with NewFromConfig.
*/
package mediator
