// Package dg implements the in-memory substrate of an offset-sensitive
// reaching-definitions and points-to analysis.
//
// The package owns the data structures and merge/query algorithms only.
// An external driver builds the control-flow graph, creates the
// [MemoryObject] and [Node] handles, and iterates [RDMap.Merge] over the
// graph's edges until no call reports a change; merging is monotone and
// idempotent, so that loop reaches a fixed point. Afterwards def-use
// chains are recovered with [RDMap.Get] and indirect accesses are
// resolved through each object's points-to map.
//
// Precision is traded for cost in two places: a site's node set past
// MergeOptions.MaxSetSize collapses to a conservative unknown state, and
// MergeOptions.FoldUnknown folds all concrete-offset sites of an object
// into its unknown-offset site.
package dg
