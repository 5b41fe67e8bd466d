package indexer

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/rocklabs-io/omnic-relay/internal/message"
	"github.com/rocklabs-io/omnic-relay/internal/rpc"
)

var dataArgs = mustArgs("uint32", "bytes")

func buildLog(t *testing.T, nonce uint32, msg message.Message, leafIndex uint64) gethtypes.Log {
	t.Helper()
	payload := message.Encode(msg)
	data, err := dataArgs.Pack(nonce, payload)
	if err != nil {
		t.Fatalf("pack data: %v", err)
	}

	var leafIdxTopic, dstTopic common.Hash
	new(big.Int).SetUint64(leafIndex).FillBytes(leafIdxTopic[:])
	dstWord := be32(msg.Destination)
	copy(dstTopic[28:], dstWord[28:])

	return gethtypes.Log{
		Topics: []common.Hash{
			sendMessageTopic,
			message.LeafDigest(msg),
			leafIdxTopic,
			dstTopic,
		},
		Data: data,
	}
}

type fakeProvider struct {
	logs  []rpc.Log
	head  uint64
	err   error
}

func (f *fakeProvider) URL() string { return "fake" }
func (f *fakeProvider) BlockNumber(ctx context.Context) (uint64, error) {
	return f.head, f.err
}
func (f *fakeProvider) FilterLogs(ctx context.Context, gatewayAddr [20]byte, from, to uint64) ([]rpc.Log, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.logs, nil
}
func (f *fakeProvider) GetLatestRoot(ctx context.Context, gatewayAddr [20]byte, height uint64) ([32]byte, error) {
	return [32]byte{}, nil
}
func (f *fakeProvider) NonceAt(ctx context.Context, account [20]byte) (uint64, error) { return 0, nil }
func (f *fakeProvider) GasPrice(ctx context.Context) (*big.Int, error)                { return big.NewInt(0), nil }
func (f *fakeProvider) SendRawTransaction(ctx context.Context, raw []byte) ([32]byte, error) {
	return [32]byte{}, nil
}

func sampleMessage(nonce uint64) message.Message {
	return message.Message{
		Kind:        message.KindSYN,
		Origin:      5,
		Nonce:       nonce,
		Destination: 7,
		Body:        []byte("payload"),
	}
}

func TestScanChunkOrdersByLeafIndex(t *testing.T) {
	m0 := sampleMessage(0)
	m1 := sampleMessage(1)
	logs := []rpc.Log{
		buildLog(t, 1, m1, 1),
		buildLog(t, 0, m0, 0),
	}
	p := &fakeProvider{logs: logs}
	ix := New(p, [20]byte{})

	leaves, err := ix.ScanChunk(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("scan chunk: %v", err)
	}
	if len(leaves) != 2 {
		t.Fatalf("expected 2 leaves, got %d", len(leaves))
	}
	if leaves[0].LeafIndex != 0 || leaves[1].LeafIndex != 1 {
		t.Fatalf("expected ascending leaf index order, got %d then %d", leaves[0].LeafIndex, leaves[1].LeafIndex)
	}
}

func TestScanChunkRejectsUnrelatedTopic(t *testing.T) {
	p := &fakeProvider{logs: []rpc.Log{{Topics: []common.Hash{{0xFF}}, Data: nil}}}
	ix := New(p, [20]byte{})

	leaves, err := ix.ScanChunk(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("expected unrelated log to be skipped, not errored: %v", err)
	}
	if len(leaves) != 0 {
		t.Fatalf("expected 0 leaves, got %d", len(leaves))
	}
}

func TestScanChunkFailsWholeRangeOnBadDestinationTopic(t *testing.T) {
	m := sampleMessage(0)
	lg := buildLog(t, 0, m, 0)
	lg.Topics[3] = common.Hash{0x01} // disagree with payload destination
	p := &fakeProvider{logs: []rpc.Log{lg}}
	ix := New(p, [20]byte{})

	if _, err := ix.ScanChunk(context.Background(), 0, 10); err == nil {
		t.Fatal("expected decode error for mismatched destination topic")
	}
}

func TestNextRangePolicy(t *testing.T) {
	from, to, ok := NextRange(10, 20, 5, 100)
	if !ok || from != 11 || to != 15 {
		t.Fatalf("expected confirmations to cap range at 15, got from=%d to=%d ok=%v", from, to, ok)
	}

	from, to, ok = NextRange(10, 100, 5, 3)
	if !ok || from != 11 || to != 13 {
		t.Fatalf("expected batch size to cap range at 13, got from=%d to=%d ok=%v", from, to, ok)
	}

	if _, _, ok = NextRange(10, 12, 5, 100); ok {
		t.Fatal("expected no safe range when head < confirmations below committed")
	}
}
