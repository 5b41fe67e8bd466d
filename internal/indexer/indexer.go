// Package indexer implements the bounded block-range log scan described in
// spec §4.4: querying a gateway's SendMessage event over an inclusive block
// range and turning each log into an ordered RawMessage.
package indexer

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rocklabs-io/omnic-relay/internal/message"
	"github.com/rocklabs-io/omnic-relay/internal/rpc"
	"github.com/rocklabs-io/omnic-relay/internal/store"
)

// sendMessageEvent mirrors the fixed gateway ABI from spec §6:
// event SendMessage(bytes32 indexed messageHash, uint256 indexed leafIndex,
//                    uint32 indexed dstChainId, uint32 nonce, bytes payload)
var (
	sendMessageTopic = crypto.Keccak256Hash([]byte("SendMessage(bytes32,uint256,uint32,uint32,bytes)"))
	nonDataArgs      = mustArgs("uint32", "bytes") // (nonce, payload) — the non-indexed fields
)

func mustArgs(types ...string) abi.Arguments {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		ty, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(err)
		}
		args[i] = abi.Argument{Type: ty}
	}
	return args
}

// DecodeError wraps any log that fails to parse into a RawMessage. Per
// spec §4.4, a DecodeError on any log in a range makes the whole range
// fail: no partial result is ever returned.
type DecodeError struct {
	TxHash string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("indexer: decode log %s: %v", e.TxHash, e.Err)
}
func (e *DecodeError) Unwrap() error { return e.Err }

// Indexer scans one source chain's gateway contract for SendMessage events.
type Indexer struct {
	provider    rpc.Provider
	gatewayAddr [20]byte
}

// New returns an indexer bound to a single RPC provider and gateway
// address. Callers construct a fresh Indexer per (chain, selected RPC) pair
// each round; the aggregator owns provider selection.
func New(provider rpc.Provider, gatewayAddr [20]byte) *Indexer {
	return &Indexer{provider: provider, gatewayAddr: gatewayAddr}
}

// BlockNumber returns the head of chain as seen by the bound provider.
func (ix *Indexer) BlockNumber(ctx context.Context) (uint64, error) {
	return ix.provider.BlockNumber(ctx)
}

// ScanChunk queries SendMessage over [from, to] inclusive, parses each log
// into a store.Leaf, and returns the result sorted ascending by LeafIndex.
// A transport failure surfaces as-is (rpc.Provider error); any single log
// failing to parse makes the whole range fail with a *DecodeError and no
// partial result.
func (ix *Indexer) ScanChunk(ctx context.Context, from, to uint64) ([]store.Leaf, error) {
	logs, err := ix.provider.FilterLogs(ctx, ix.gatewayAddr, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]store.Leaf, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Topics) == 0 || lg.Topics[0] != sendMessageTopic {
			continue
		}
		leaf, err := decodeLog(lg)
		if err != nil {
			return nil, &DecodeError{TxHash: lg.TxHash.Hex(), Err: err}
		}
		out = append(out, leaf)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].LeafIndex < out[j].LeafIndex })
	return out, nil
}

func decodeLog(lg rpc.Log) (store.Leaf, error) {
	if len(lg.Topics) < 4 {
		return store.Leaf{}, fmt.Errorf("expected 4 topics (sig, messageHash, leafIndex, dstChainId), got %d", len(lg.Topics))
	}
	var messageHash [32]byte
	copy(messageHash[:], lg.Topics[1][:])
	leafIndex := new(big.Int).SetBytes(lg.Topics[2][:])
	if !leafIndex.IsUint64() {
		return store.Leaf{}, fmt.Errorf("leafIndex overflows uint64")
	}
	// dstChainId is indexed but the payload already carries destination;
	// both must agree, enforced below once the payload is decoded.
	dstTopic := lg.Topics[3]

	values, err := nonDataArgs.Unpack(lg.Data)
	if err != nil {
		return store.Leaf{}, fmt.Errorf("unpack data: %w", err)
	}
	payload, ok := values[1].([]byte)
	if !ok {
		return store.Leaf{}, fmt.Errorf("payload field is not bytes")
	}

	msg, err := message.Decode(payload)
	if err != nil {
		return store.Leaf{}, fmt.Errorf("decode message payload: %w", err)
	}

	var dstFromTopic [32]byte
	copy(dstFromTopic[:], dstTopic[:])
	if be32(msg.Destination) != dstFromTopic {
		return store.Leaf{}, fmt.Errorf("dstChainId topic disagrees with payload destination")
	}

	leaf := store.Leaf{
		Hash:      messageHash,
		LeafIndex: leafIndex.Uint64(),
		Message:   msg,
	}
	if message.LeafDigest(msg) != leaf.Hash {
		return store.Leaf{}, fmt.Errorf("messageHash topic does not match canonical leaf digest")
	}
	return leaf, nil
}

// be32 left-pads a uint32 into a 32-byte big-endian word, matching how a
// solidity `uint32 indexed` value is encoded in a topic.
func be32(v uint32) [32]byte {
	var out [32]byte
	out[28] = byte(v >> 24)
	out[29] = byte(v >> 16)
	out[30] = byte(v >> 8)
	out[31] = byte(v)
	return out
}

// NextRange applies the range-selection policy from spec §4.4:
// to = min(last_committed + batch_size, head - confirmations). If the
// computed "to" does not exceed last_committed, ok is false and the caller
// should skip the round.
func NextRange(lastCommitted, head, confirmations, batchSize uint64) (from, to uint64, ok bool) {
	if head < confirmations {
		return 0, 0, false
	}
	safeHead := head - confirmations
	upper := lastCommitted + batchSize
	if upper < safeHead {
		to = upper
	} else {
		to = safeHead
	}
	if to <= lastCommitted {
		return 0, 0, false
	}
	return lastCommitted + 1, to, true
}
