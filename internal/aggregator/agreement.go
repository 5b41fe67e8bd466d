// Package aggregator implements the RPC-aggregation state machine: the
// cooperative, tick-driven step driver that turns best-effort, occasionally
// byzantine RPC responses into a single committed outcome per round (spec
// §4.5).
package aggregator

import (
	"sort"

	"github.com/rocklabs-io/omnic-relay/internal/store"
)

// outcome is what a single queried RPC contributed to a round: either a
// root, a set of scanned leaves, or the failure sentinel (never both a
// value and failed).
type outcome struct {
	failed bool
	root   [32]byte
	leaves []store.Leaf
}

func failureOutcome() outcome                   { return outcome{failed: true} }
func rootOutcome(r [32]byte) outcome             { return outcome{root: r} }
func eventOutcome(leaves []store.Leaf) outcome   { return outcome{leaves: leaves} }

// threshold is ⌈(n+1)/2⌉.
func threshold(n int) int { return (n + 2) / 2 }

// agreeRoot applies the Byzantine agreement rule of spec §4.5 to a
// completed round's root-fetch outcomes. ok is false if the round must
// fail: either a failure-sentinel count too high, or no candidate (n<=2:
// not-all-equal; n>=3: none reaching threshold).
func agreeRoot(results []outcome) (root [32]byte, ok bool) {
	n := len(results)
	if n == 0 {
		return [32]byte{}, false
	}

	if n <= 2 {
		first := results[0]
		if first.failed {
			return [32]byte{}, false
		}
		for _, r := range results[1:] {
			if r.failed || r.root != first.root {
				return [32]byte{}, false
			}
		}
		return first.root, true
	}

	k := 0
	counts := make(map[[32]byte]int, n)
	for _, r := range results {
		if r.failed {
			k++
			continue
		}
		counts[r.root]++
	}
	th := threshold(n)
	if k > n-th {
		return [32]byte{}, false
	}
	// A majority-style threshold (> n/2) can be reached by at most one
	// candidate, so the first one found at or above it is unambiguous.
	for candidate, c := range counts {
		if c >= th {
			return candidate, true
		}
	}
	return [32]byte{}, false
}

// leafKey identifies a message independent of which response carried it.
type leafKey struct {
	index uint64
	hash  [32]byte
}

// agreeEvents applies the Byzantine agreement rule to a completed round's
// event-scan outcomes. For n>=3 the committed value is a per-message vote
// (spec §4.5): each message that independently reaches threshold across the
// round's responses is committed, tolerating a provider that returned a
// superset or a slightly shorter range.
func agreeEvents(results []outcome) ([]store.Leaf, bool) {
	n := len(results)
	if n == 0 {
		return nil, false
	}

	if n <= 2 {
		first := results[0]
		if first.failed {
			return nil, false
		}
		for _, r := range results[1:] {
			if r.failed || !leavesEqual(r.leaves, first.leaves) {
				return nil, false
			}
		}
		return first.leaves, true
	}

	k := 0
	counts := make(map[leafKey]int)
	byKey := make(map[leafKey]store.Leaf)
	for _, r := range results {
		if r.failed {
			k++
			continue
		}
		for _, l := range r.leaves {
			key := leafKey{index: l.LeafIndex, hash: l.Hash}
			counts[key]++
			byKey[key] = l
		}
	}
	th := threshold(n)
	if k > n-th {
		return nil, false
	}

	var committed []store.Leaf
	for key, c := range counts {
		if c >= th {
			committed = append(committed, byKey[key])
		}
	}
	if len(committed) == 0 {
		return nil, false
	}
	sort.Slice(committed, func(i, j int) bool { return committed[i].LeafIndex < committed[j].LeafIndex })
	return committed, true
}

func leavesEqual(a, b []store.Leaf) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].LeafIndex != b[i].LeafIndex || a[i].Hash != b[i].Hash {
			return false
		}
	}
	return true
}
