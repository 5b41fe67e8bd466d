// Package merkle implements the fixed-depth, append-only binary Merkle
// accumulator described in spec §4.2: O(depth) ingest, O(depth) root
// recompute, and inclusion proofs recomputed from the full leaf stream.
package merkle

import (
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
)

// Depth is the fixed tree depth D = 32 named in spec §3.
const Depth = 32

// ErrIndexOutOfRange is returned by Prove when the requested index has not
// yet been ingested.
var ErrIndexOutOfRange = errors.New("merkle: index out of range")

// zeroHashes[i] is the digest of an empty subtree of height i. zeroHashes[0]
// is the digest of an empty leaf; zeroHashes[i] = H(zeroHashes[i-1], zeroHashes[i-1]).
var zeroHashes [Depth + 1][32]byte

func init() {
	zeroHashes[0] = [32]byte{}
	for i := 1; i <= Depth; i++ {
		zeroHashes[i] = hashPair(zeroHashes[i-1], zeroHashes[i-1])
	}
}

func hashPair(left, right [32]byte) [32]byte {
	buf := make([]byte, 64)
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return crypto.Keccak256Hash(buf)
}

// ZeroHash returns the canonical zero-subtree constant at the given height
// (0 = empty leaf).
func ZeroHash(height int) [32]byte {
	return zeroHashes[height]
}

// Tree is an append-only sparse binary hash tree of fixed depth Depth. It
// keeps only the right-frontier of Depth node digests, sufficient to
// recompute the root in O(Depth) after every ingest.
type Tree struct {
	count    uint64
	frontier [Depth][32]byte // frontier[i]: the left sibling cached at height i, valid only if bit i of count is set at ingest time
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{}
}

// Count returns the number of leaves ingested so far.
func (t *Tree) Count() uint64 {
	return t.count
}

// Ingest appends leaf at position t.Count() and updates the frontier so
// Root() reflects the new tree. Runs in O(Depth).
func (t *Tree) Ingest(leaf [32]byte) {
	node := leaf
	size := t.count
	for h := 0; h < Depth; h++ {
		if size&1 == 1 {
			node = hashPair(t.frontier[h], node)
			size >>= 1
			continue
		}
		t.frontier[h] = node
		break
	}
	t.count++
}

// Root returns the current Merkle root. Empty slots beyond Count() are the
// canonical zero-subtree constants.
func (t *Tree) Root() [32]byte {
	node := zeroHashes[0]
	size := t.count
	for h := 0; h < Depth; h++ {
		if size&1 == 1 {
			node = hashPair(t.frontier[h], node)
		} else {
			node = hashPair(node, zeroHashes[h])
		}
		size >>= 1
	}
	return node
}

// Prove returns the Depth-hash authentication path for index i, given the
// full leaf stream ingested so far (leaves[0..Count())). It fails if
// i >= Count().
func Prove(leaves [][32]byte, i uint64) ([Depth][32]byte, error) {
	var proof [Depth][32]byte
	n := uint64(len(leaves))
	if i >= n {
		return proof, ErrIndexOutOfRange
	}

	// level holds the digests of the current height, padded on the right
	// with zero-subtree constants up to the next power of two as needed.
	level := make([][32]byte, n)
	copy(level, leaves)

	idx := i
	for h := 0; h < Depth; h++ {
		levelLen := uint64(len(level))
		siblingIdx := idx ^ 1
		if siblingIdx < levelLen {
			proof[h] = level[siblingIdx]
		} else {
			proof[h] = zeroHashes[h]
		}

		nextLen := (levelLen + 1) / 2
		next := make([][32]byte, nextLen)
		for j := uint64(0); j < nextLen; j++ {
			left := level[2*j]
			var right [32]byte
			if 2*j+1 < levelLen {
				right = level[2*j+1]
			} else {
				right = zeroHashes[h]
			}
			next[j] = hashPair(left, right)
		}
		level = next
		idx /= 2
	}
	return proof, nil
}

// RecomputeRoot walks proof from leaf at index up to the root, independent
// of any expected value. Verify and callers that need the raw recomputed
// root (to check set membership rather than equality) both build on this.
func RecomputeRoot(leaf [32]byte, index uint64, proof [Depth][32]byte) [32]byte {
	node := leaf
	idx := index
	for h := 0; h < Depth; h++ {
		if idx&1 == 1 {
			node = hashPair(proof[h], node)
		} else {
			node = hashPair(node, proof[h])
		}
		idx >>= 1
	}
	return node
}

// Verify recomputes the root from leaf, index and proof and reports whether
// it equals expectedRoot.
func Verify(leaf [32]byte, index uint64, proof [Depth][32]byte, expectedRoot [32]byte) bool {
	return RecomputeRoot(leaf, index, proof) == expectedRoot
}
