package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rocklabs-io/omnic-relay/internal/merkle"
	"github.com/rocklabs-io/omnic-relay/internal/message"
	"github.com/rocklabs-io/omnic-relay/internal/store"
)

func buildLeafAndProof(t *testing.T, msgs []message.Message, i int) ([]byte, [merkle.Depth][32]byte, [32]byte) {
	t.Helper()
	hashes := make([][32]byte, len(msgs))
	for j, m := range msgs {
		hashes[j] = message.LeafDigest(m)
	}
	proof, err := merkle.Prove(hashes, uint64(i))
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	tree := merkle.New()
	for _, h := range hashes {
		tree.Ingest(h)
	}
	return message.Encode(msgs[i]), proof, tree.Root()
}

type fakeHandler struct {
	called bool
	err    error
}

func (h *fakeHandler) HandleMessage(ctx context.Context, origin uint32, nonce uint64, sender [32]byte, body []byte) error {
	h.called = true
	return h.err
}

type fakeRemote struct {
	called   bool
	dest     uint32
	err      error
}

func (r *fakeRemote) DispatchBatch(ctx context.Context, destChain uint32, messages [][]byte) (common.Hash, error) {
	r.called = true
	r.dest = destChain
	return common.Hash{}, r.err
}

func recipientWithHandle(handle [10]byte) [32]byte {
	var r [32]byte
	copy(r[22:], handle[:])
	return r
}

func TestIsValidAcceptsCommittedRoot(t *testing.T) {
	msgs := []message.Message{
		{Kind: message.KindSYN, Origin: 1, Nonce: 0, Destination: 0, Recipient: recipientWithHandle([10]byte{1}), Body: []byte("a")},
		{Kind: message.KindSYN, Origin: 1, Nonce: 1, Destination: 0, Recipient: recipientWithHandle([10]byte{1}), Body: []byte("b")},
	}
	raw, proof, root := buildLeafAndProof(t, msgs, 1)

	rs := store.NewRootStore(0)
	rs.InsertRoot(root, 1000)

	core := New(func(chainID uint32) (*store.RootStore, bool) {
		if chainID == 1 {
			return rs, true
		}
		return nil, false
	}, MapRegistry{}, &fakeRemote{}, 1800, func() int64 { return 2000 }, nil)

	ok, err := core.IsValid(1, raw, proof, 1, false)
	if err != nil {
		t.Fatalf("is valid: %v", err)
	}
	if !ok {
		t.Fatal("expected valid message against a committed root")
	}
}

func TestIsValidRejectsUncommittedRoot(t *testing.T) {
	msgs := []message.Message{{Kind: message.KindSYN, Origin: 1, Nonce: 0, Destination: 0, Body: []byte("a")}}
	raw, proof, _ := buildLeafAndProof(t, msgs, 0)

	rs := store.NewRootStore(0) // no roots inserted
	core := New(func(chainID uint32) (*store.RootStore, bool) { return rs, true }, MapRegistry{}, &fakeRemote{}, 1800, func() int64 { return 0 }, nil)

	ok, err := core.IsValid(1, raw, proof, 0, false)
	if err != nil {
		t.Fatalf("is valid: %v", err)
	}
	if ok {
		t.Fatal("expected an uncommitted root to be invalid")
	}
}

func TestIsValidOptimisticDelay(t *testing.T) {
	msgs := []message.Message{{Kind: message.KindSYN, Origin: 1, Nonce: 0, Destination: 0, Body: []byte("a")}}
	raw, proof, root := buildLeafAndProof(t, msgs, 0)

	rs := store.NewRootStore(0)
	rs.InsertRoot(root, 0)

	clock := int64(100)
	core := New(func(chainID uint32) (*store.RootStore, bool) { return rs, true }, MapRegistry{}, &fakeRemote{}, 1800, func() int64 { return clock }, nil)

	ok, err := core.IsValid(1, raw, proof, 0, true)
	if err != nil {
		t.Fatalf("is valid: %v", err)
	}
	if ok {
		t.Fatal("expected optimistic check to fail before the delay elapses")
	}

	clock = 1801
	ok, err = core.IsValid(1, raw, proof, 0, true)
	if err != nil {
		t.Fatalf("is valid: %v", err)
	}
	if !ok {
		t.Fatal("expected optimistic check to pass once the delay elapses")
	}
}

func TestProcessMessageDispatchesLocalHandler(t *testing.T) {
	handle := [10]byte{9}
	msgs := []message.Message{{Kind: message.KindSYN, Origin: 1, Nonce: 3, Destination: 0, Recipient: recipientWithHandle(handle), Body: []byte("payload")}}
	raw, proof, root := buildLeafAndProof(t, msgs, 0)

	rs := store.NewRootStore(0)
	rs.InsertRoot(root, 0)

	handler := &fakeHandler{}
	registry := MapRegistry{handle: handler}
	core := New(func(chainID uint32) (*store.RootStore, bool) { return rs, true }, registry, &fakeRemote{}, 1800, func() int64 { return 0 }, nil)

	if err := core.ProcessMessage(context.Background(), 1, raw, proof, 0, false); err != nil {
		t.Fatalf("process message: %v", err)
	}
	if !handler.called {
		t.Fatal("expected local handler to be invoked")
	}
}

func TestProcessMessageDispatchesRemoteForNonZeroDestination(t *testing.T) {
	msgs := []message.Message{{Kind: message.KindSYN, Origin: 1, Nonce: 3, Destination: 42, Body: []byte("payload")}}
	raw, proof, root := buildLeafAndProof(t, msgs, 0)

	rs := store.NewRootStore(0)
	rs.InsertRoot(root, 0)

	remote := &fakeRemote{}
	core := New(func(chainID uint32) (*store.RootStore, bool) { return rs, true }, MapRegistry{}, remote, 1800, func() int64 { return 0 }, nil)

	if err := core.ProcessMessage(context.Background(), 1, raw, proof, 0, false); err != nil {
		t.Fatalf("process message: %v", err)
	}
	if !remote.called || remote.dest != 42 {
		t.Fatalf("expected remote dispatch to chain 42, got called=%v dest=%d", remote.called, remote.dest)
	}
}

func TestProcessMessageSurfacesDispatchFailed(t *testing.T) {
	msgs := []message.Message{{Kind: message.KindSYN, Origin: 1, Nonce: 3, Destination: 42, Body: []byte("payload")}}
	raw, proof, root := buildLeafAndProof(t, msgs, 0)

	rs := store.NewRootStore(0)
	rs.InsertRoot(root, 0)

	remote := &fakeRemote{err: errors.New("boom")}
	core := New(func(chainID uint32) (*store.RootStore, bool) { return rs, true }, MapRegistry{}, remote, 1800, func() int64 { return 0 }, nil)

	err := core.ProcessMessage(context.Background(), 1, raw, proof, 0, false)
	if !errors.Is(err, ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}
}

func TestProcessMessageRejectsInvalidProof(t *testing.T) {
	msgs := []message.Message{{Kind: message.KindSYN, Origin: 1, Nonce: 0, Destination: 0, Body: []byte("a")}}
	raw, proof, _ := buildLeafAndProof(t, msgs, 0)
	rs := store.NewRootStore(0) // root never committed
	core := New(func(chainID uint32) (*store.RootStore, bool) { return rs, true }, MapRegistry{}, &fakeRemote{}, 1800, func() int64 { return 0 }, nil)

	err := core.ProcessMessage(context.Background(), 1, raw, proof, 0, false)
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}
