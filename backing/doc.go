// Package backing adapts an externally supplied allocate/free function pair
// to the allocator interface the rest of the library expects.
//
// The host runtime registers its native allocator as a Funcs pair; an Adapter
// wraps the pair and is constructed once per runtime and cached, so the
// backing functions are never re-registered under different adapter
// instances. A Pool is bound to an adapter for the lexical duration of one
// scope and records the allocations routed through it.
//
// NewHostBacking provides a default Funcs implementation backed by anonymous
// memory mappings, used when no external allocator is registered.
package backing
