package main

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rocklabs-io/omnic-relay/internal/dispatch"
	"github.com/rocklabs-io/omnic-relay/internal/merkle"
	"github.com/rocklabs-io/omnic-relay/internal/message"
	"github.com/rocklabs-io/omnic-relay/internal/metrics"
	"github.com/rocklabs-io/omnic-relay/internal/store"
)

type fakeLocalHandler struct{ calls int }

func (h *fakeLocalHandler) HandleMessage(ctx context.Context, origin uint32, nonce uint64, sender [32]byte, body []byte) error {
	h.calls++
	return nil
}

type fakeRemoteDispatcher struct{}

func (d *fakeRemoteDispatcher) DispatchBatch(ctx context.Context, destChain uint32, messages [][]byte) (common.Hash, error) {
	return common.Hash{}, nil
}

func TestChainStoresAutoVivify(t *testing.T) {
	cs := newChainStores(0)
	rs1 := cs.rootStore(7)
	rs2 := cs.rootStore(7)
	if rs1 != rs2 {
		t.Fatal("expected the same root store instance on repeat lookup")
	}
	ms1 := cs.messageStore(7)
	ms2 := cs.messageStore(7)
	if ms1 != ms2 {
		t.Fatal("expected the same message store instance on repeat lookup")
	}
}

func TestRootSinkPersistsAndReportsMetrics(t *testing.T) {
	cs := newChainStores(0)
	m := metrics.New()
	sink := &rootSink{stores: cs, metrics: m}

	var root [32]byte
	root[0] = 0x01
	sink.CommitRoot(9, root, 100)

	if !cs.rootStore(9).Contains(root) {
		t.Fatal("expected committed root to be retained")
	}
}

func TestEventSinkFoldsAndDispatchesLocalMessage(t *testing.T) {
	cs := newChainStores(0)
	handler := &fakeLocalHandler{}
	var recipient [32]byte
	recipient[31] = 0x09
	locals := dispatch.MapRegistry{message.LocalRecipient(recipient): handler}

	core := dispatch.New(cs.rootSource, locals, &fakeRemoteDispatcher{}, 1800, func() int64 { return 0 }, nil)
	m := metrics.New()
	sink := &eventSink{stores: cs, core: core, metrics: m}

	msg := message.Message{
		Kind: message.KindSYN, Origin: 9, Nonce: 0,
		Destination: message.LocalDestination, Recipient: recipient, Body: []byte("hi"),
	}
	leaf := message.LeafDigest(msg)
	tree := merkle.New()
	tree.Ingest(leaf)
	root := tree.Root()

	// The root must be observed before the event batch can fold into the
	// tree, mirroring how the two machines commit independently in serve.go.
	cs.rootStore(9).InsertRoot(root, 0)

	err := sink.CommitEvents(9, []store.Leaf{{Hash: leaf, LeafIndex: 0, Message: msg}})
	if err != nil {
		t.Fatalf("commit events: %v", err)
	}
	if handler.calls != 1 {
		t.Fatalf("handler calls = %d, want 1", handler.calls)
	}

	idx, ok := cs.messageStore(9).ProcessedIndex()
	if !ok || idx != 0 {
		t.Fatalf("processed index = (%d, %v), want (0, true)", idx, ok)
	}
}

func TestEventSinkWithoutObservedRootDefersFolding(t *testing.T) {
	cs := newChainStores(0)
	handler := &fakeLocalHandler{}
	var recipient [32]byte
	recipient[31] = 0x09
	locals := dispatch.MapRegistry{message.LocalRecipient(recipient): handler}
	core := dispatch.New(cs.rootSource, locals, &fakeRemoteDispatcher{}, 1800, func() int64 { return 0 }, nil)
	sink := &eventSink{stores: cs, core: core, metrics: metrics.New()}

	msg := message.Message{Kind: message.KindSYN, Origin: 9, Destination: message.LocalDestination, Recipient: recipient, Body: []byte("x")}
	leaf := message.LeafDigest(msg)

	if err := sink.CommitEvents(9, []store.Leaf{{Hash: leaf, LeafIndex: 0, Message: msg}}); err != nil {
		t.Fatalf("commit events: %v", err)
	}
	if handler.calls != 0 {
		t.Fatal("expected no dispatch before any root is observed")
	}
	if _, ok := cs.messageStore(9).Index(); ok {
		t.Fatal("expected the tree not to have folded in any leaf yet")
	}
}
