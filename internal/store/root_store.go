package store

import "fmt"

// RootEntry is one confirmed root sampled at a point in time, per spec §3.
type RootEntry struct {
	Root        [32]byte
	ConfirmedAt int64 // unix seconds
}

// RootStore holds one chain's ordered (root, confirmed_at) history, oldest
// first. confirmed_at is non-decreasing, a root appears at most once (per
// the Open Question resolution in spec §9: this spec specifies
// deduplication), and the sequence length is bounded by Retention.
type RootStore struct {
	entries   []RootEntry
	index     map[[32]byte]int
	Retention int
}

// NewRootStore returns a root store retaining at most retention entries. A
// retention of 0 means unbounded.
func NewRootStore(retention int) *RootStore {
	return &RootStore{
		index:     make(map[[32]byte]int),
		Retention: retention,
	}
}

// InsertRoot appends (root, confirmedAt) unless root is already present, in
// which case the call is a no-op (dedup per spec §9). Exceeding Retention
// evicts the oldest entry.
func (rs *RootStore) InsertRoot(root [32]byte, confirmedAt int64) {
	if _, exists := rs.index[root]; exists {
		return
	}
	rs.entries = append(rs.entries, RootEntry{Root: root, ConfirmedAt: confirmedAt})
	rs.index[root] = len(rs.entries) - 1
	if rs.Retention > 0 && len(rs.entries) > rs.Retention {
		evicted := rs.entries[0]
		rs.entries = rs.entries[1:]
		delete(rs.index, evicted.Root)
		for r, i := range rs.index {
			rs.index[r] = i - 1
		}
	}
}

// Contains reports whether root has been committed and is still retained.
func (rs *RootStore) Contains(root [32]byte) bool {
	_, ok := rs.index[root]
	return ok
}

// ConfirmedAt returns the confirmation time of root, if retained.
func (rs *RootStore) ConfirmedAt(root [32]byte) (int64, bool) {
	i, ok := rs.index[root]
	if !ok {
		return 0, false
	}
	return rs.entries[i].ConfirmedAt, true
}

// LatestRoot returns the most recently confirmed root.
func (rs *RootStore) LatestRoot() ([32]byte, error) {
	if len(rs.entries) == 0 {
		return [32]byte{}, fmt.Errorf("%w: root store empty", ErrNotFound)
	}
	return rs.entries[len(rs.entries)-1].Root, nil
}

// LatestOptimisticRoot returns the most recently confirmed root whose
// confirmation has passed the optimistic verification challenge period:
// now - confirmed_at >= optimisticDelay (seconds).
func (rs *RootStore) LatestOptimisticRoot(now int64, optimisticDelay int64) ([32]byte, error) {
	for i := len(rs.entries) - 1; i >= 0; i-- {
		e := rs.entries[i]
		if now-e.ConfirmedAt >= optimisticDelay {
			return e.Root, nil
		}
	}
	return [32]byte{}, fmt.Errorf("%w: no root has cleared the optimistic delay", ErrNotFound)
}

// Len reports the number of retained roots.
func (rs *RootStore) Len() int {
	return len(rs.entries)
}
