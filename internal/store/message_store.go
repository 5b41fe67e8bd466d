// Package store implements the per-chain message store and root store
// described in spec §4.3 and §3: an ordered, append-only leaf sequence with
// an opportunistic proof cache, and a deduplicated, retention-bounded root
// history.
package store

import (
	"errors"
	"fmt"

	"github.com/rocklabs-io/omnic-relay/internal/merkle"
	"github.com/rocklabs-io/omnic-relay/internal/message"
)

// ErrOutOfOrder is returned by Append when the supplied leaf does not
// extend the store's sequence by exactly one (no gaps, no rewinds).
var ErrOutOfOrder = errors.New("store: out of order leaf")

// ErrNotFound is returned when catch-up ingestion exhausts the known leaf
// sequence without reaching the target root, or when a lookup misses.
var ErrNotFound = errors.New("store: not found")

// Leaf is a stored raw message: its canonical content hash, its position,
// and the decoded message it commits to.
type Leaf struct {
	Hash      [32]byte
	LeafIndex uint64
	Message   message.Message
}

// MessageStore holds one source chain's ordered leaf sequence, a tree built
// incrementally over that sequence, a proof cache, and the two cursors from
// spec §3: Index (latest leaf folded into the tree) and ProcessedIndex
// (latest leaf delivered downstream). processed_index <= index <= n always.
type MessageStore struct {
	leaves         []Leaf
	tree           *merkle.Tree
	proofs         map[uint64][merkle.Depth][32]byte
	index          uint64 // latest leaf index folded into tree; meaningful only when indexValid
	indexValid     bool
	processedIndex uint64
	processedValid bool
}

// New returns an empty message store.
func New() *MessageStore {
	return &MessageStore{
		tree:   merkle.New(),
		proofs: make(map[uint64][merkle.Depth][32]byte),
	}
}

// Len returns n, the number of leaves appended so far.
func (s *MessageStore) Len() uint64 {
	return uint64(len(s.leaves))
}

// Index returns the latest leaf index folded into the tree, and whether any
// leaf has been folded in yet.
func (s *MessageStore) Index() (uint64, bool) {
	return s.index, s.indexValid
}

// ProcessedIndex returns the latest leaf index delivered downstream, and
// whether any leaf has been delivered yet.
func (s *MessageStore) ProcessedIndex() (uint64, bool) {
	return s.processedIndex, s.processedValid
}

// Append requires raw.LeafIndex == n (strict, no gaps); otherwise it fails
// with ErrOutOfOrder. On success it pushes the leaf and increments n. It
// does not fold the leaf into the tree; callers do that via CatchUpTree so
// the tree only ever reflects leaves that have passed a committed round.
func (s *MessageStore) Append(raw Leaf) error {
	n := s.Len()
	if raw.LeafIndex != n {
		return fmt.Errorf("%w: leaf_index %d != n %d", ErrOutOfOrder, raw.LeafIndex, n)
	}
	wantHash := message.LeafDigest(raw.Message)
	if wantHash != raw.Hash {
		return fmt.Errorf("%w: leaf %d hash does not match canonical digest of its message", ErrOutOfOrder, raw.LeafIndex)
	}
	s.leaves = append(s.leaves, raw)
	return nil
}

// Leaf returns the stored leaf at position i.
func (s *MessageStore) Leaf(i uint64) (Leaf, error) {
	if i >= s.Len() {
		return Leaf{}, fmt.Errorf("%w: leaf %d", ErrNotFound, i)
	}
	return s.leaves[i], nil
}

// CatchUpTree ingests leaves into the accumulator one by one starting from
// the current Index cursor until tree.Root() == targetRoot or the sequence
// is exhausted. On a match it records the new Index and returns it; on
// exhaustion it returns ErrNotFound and leaves the tree in its
// partially-ingested state, which is safe because ingestion is append-only.
func (s *MessageStore) CatchUpTree(targetRoot [32]byte) (uint64, error) {
	start := uint64(0)
	if s.indexValid {
		start = s.index + 1
	}
	for i := start; i < s.Len(); i++ {
		s.tree.Ingest(s.leaves[i].Hash)
		if s.tree.Root() == targetRoot {
			s.index = i
			s.indexValid = true
			return i, nil
		}
	}
	if s.Len() > start {
		s.index = s.Len() - 1
		s.indexValid = true
	}
	return 0, ErrNotFound
}

// GenerateAndCacheProof computes and stores the inclusion proof at i for
// later dispatch. i must already be folded into the tree (i <= Index()).
func (s *MessageStore) GenerateAndCacheProof(i uint64) error {
	idx, ok := s.Index()
	if !ok || i > idx {
		return fmt.Errorf("%w: leaf %d not yet folded into tree", ErrNotFound, i)
	}
	hashes := make([][32]byte, idx+1)
	for j := uint64(0); j <= idx; j++ {
		hashes[j] = s.leaves[j].Hash
	}
	proof, err := merkle.Prove(hashes, i)
	if err != nil {
		return err
	}
	s.proofs[i] = proof
	return nil
}

// CachedProof returns a previously generated proof for i.
func (s *MessageStore) CachedProof(i uint64) ([merkle.Depth][32]byte, bool) {
	p, ok := s.proofs[i]
	return p, ok
}

// AdvanceProcessed moves ProcessedIndex monotonically up to i and drops any
// now-redundant cached proofs for indices <= i.
func (s *MessageStore) AdvanceProcessed(i uint64) {
	if s.processedValid && i <= s.processedIndex {
		return
	}
	s.processedIndex = i
	s.processedValid = true
	for idx := range s.proofs {
		if idx <= i {
			delete(s.proofs, idx)
		}
	}
}

// Root returns the tree's current root (reflecting leaves folded in via
// CatchUpTree so far).
func (s *MessageStore) Root() [32]byte {
	return s.tree.Root()
}
