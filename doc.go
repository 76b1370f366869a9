// Package wryware is a collection of memory-conscious building blocks for
// canonicalization and contextual propagation of values within a single
// process.
//
// It is organized as one independently importable package per engine:
//
//   - trie: WeakTrie, a prefix lookup structure keyed by arbitrary
//     sequences of values (including non-hashable object references),
//     holding reference-like keys weakly.
//   - tuple: an interner building immutable fixed-length sequences that
//     are reference-identical when their elements are element-wise
//     identical.
//   - canon: a deep-structural canonicalizer turning arbitrary object
//     graphs, including cycles and shared sub-structure, into frozen
//     canonical representatives.
//   - supertext: Supertext/Subtext, an immutable DAG-shaped contextual
//     value store with scoped activation and user-defined merge/guard
//     semantics.
//   - keysetmap: an index keyed by unordered sets of keys, built on trie.
//   - equality: a cycle-tolerant deep-equality comparator.
//   - task: a promise-shaped primitive with synchronous-delivery
//     semantics and captured-context propagation via supertext.
//   - wrydebug: a diagnostic dump helper for canon and task state.
//
// This root package holds only module-level documentation; import the
// subpackage for the engine you need.
package wryware
