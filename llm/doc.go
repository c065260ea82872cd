// Package llm defines the vendor-neutral domain model shared by all
// provider adapters: requests, tool specifications, parsed results,
// stream deltas and the error taxonomy.
//
// Provider packages under providers/ implement the Adapter interface
// and register themselves via Register, so callers select a platform
// by name without importing vendor packages directly.
package llm
