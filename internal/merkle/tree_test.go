package merkle

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func leafAt(i int) [32]byte {
	return crypto.Keccak256Hash([]byte{byte(i)})
}

func TestEmptyTreeRootIsZeroSubtree(t *testing.T) {
	tr := New()
	if tr.Root() != ZeroHash(Depth) {
		t.Fatal("empty tree root must equal the depth-D zero subtree constant")
	}
}

func TestIngestAndProveRoundTrip(t *testing.T) {
	tr := New()
	var leaves [][32]byte
	for i := 0; i < 17; i++ {
		leaf := leafAt(i)
		leaves = append(leaves, leaf)
		tr.Ingest(leaf)
	}
	root := tr.Root()

	for i := range leaves {
		proof, err := Prove(leaves, uint64(i))
		if err != nil {
			t.Fatalf("prove(%d): %v", i, err)
		}
		if !Verify(leaves[i], uint64(i), proof, root) {
			t.Fatalf("verify(%d) failed against root", i)
		}
	}
}

func TestProveOutOfRangeFails(t *testing.T) {
	tr := New()
	tr.Ingest(leafAt(0))
	if _, err := Prove([][32]byte{leafAt(0)}, 1); err != ErrIndexOutOfRange {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestVerifyRejectsWrongRoot(t *testing.T) {
	tr := New()
	var leaves [][32]byte
	for i := 0; i < 4; i++ {
		leaf := leafAt(i)
		leaves = append(leaves, leaf)
		tr.Ingest(leaf)
	}
	proof, err := Prove(leaves, 2)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	wrongRoot := leafAt(99)
	if Verify(leaves[2], 2, proof, wrongRoot) {
		t.Fatal("verify must reject an unrelated root")
	}
}

func TestAppendOnlyRootStability(t *testing.T) {
	tr := New()
	var roots [][32]byte
	for i := 0; i < 5; i++ {
		tr.Ingest(leafAt(i))
		roots = append(roots, tr.Root())
	}
	// Replaying the same ingests into a fresh tree must reproduce every
	// intermediate root exactly (append-only determinism).
	tr2 := New()
	for i := 0; i < 5; i++ {
		tr2.Ingest(leafAt(i))
		if tr2.Root() != roots[i] {
			t.Fatalf("root mismatch at step %d", i)
		}
	}
}
