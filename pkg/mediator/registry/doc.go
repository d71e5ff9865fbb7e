// Package registry provides a generic, insertion-ordered registry for values
// indexed by key.
//
// Registry backs the mediator engine's name table. Unlike a plain map it
// remembers the order in which keys were first added, so iteration is
// deterministic: replaying a registry to a late subscriber visits entries in
// the order they were registered.
//
// # Basic Usage
//
//	r := registry.New[string, int]()
//	r.Add("one", 1)
//	r.Add("two", 2)
//
//	value, ok := r.Get("one")
//	if ok {
//	    fmt.Println(value) // Output: 1
//	}
//
// Add refuses to replace an existing key; Set replaces the value in place
// without changing the key's position.
//
// # Lazy Slots
//
// GetOrCreate is handy for multi-valued slots that come into existence on
// first use:
//
//	slots := registry.New[string, *[]string]()
//	s := slots.GetOrCreate("button", func() *[]string { return new([]string) })
//	*s = append(*s, "b1")
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. Range and Snapshot work
// on a copy taken under the read lock, so callbacks may mutate the registry
// without affecting the iteration in progress.
package registry
