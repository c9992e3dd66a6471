// Package registry provides a generic thread-safe registry that remembers
// registration order.
//
// Registry backs the stategraph node table: names are registered once while
// a graph is being built and looked up on every step of every run, so reads
// dominate. Iteration (Keys, Range) always follows registration order, which
// keeps compile diagnostics and diagram output deterministic.
//
// # Basic Usage
//
//	r := registry.New[string, int]()
//	if !r.RegisterUnique("one", 1) {
//	    // "one" was already present
//	}
//	value, ok := r.Get("one")
//
// Register replaces an existing value in place without changing its
// position; RegisterUnique refuses to replace.
//
// # Lazy Initialization
//
// GetOrCreate is atomic: the factory is called at most once per key, even
// under concurrent access.
//
//	clients := registry.New[string, llm.Client]()
//	c := clients.GetOrCreate("fact_checker", newFactChecker)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Range iterates over a snapshot,
// so the callback may register or delete entries.
package registry
