// Package rpc models the upstream JSON-RPC providers as a best-effort
// request/response oracle (spec §1: "the HTTP transport to RPC providers
// (treated as a best-effort request/response oracle)"). It does not
// implement retries, connection pooling, or auth; callers get transport
// errors back verbatim and translate them into the aggregation state
// machine's failure sentinel.
package rpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

// Log is go-ethereum's full EVM log type; the indexer reads the fields
// required to identify and order a SendMessage event and decode its
// payload.
type Log = types.Log

// Provider is a single RPC endpoint's best-effort oracle surface. Each
// method call corresponds to one suspension point (spec §5): the relay
// yields control until the reply arrives or the call errors.
type Provider interface {
	// URL identifies the endpoint, for logging and round bookkeeping.
	URL() string

	// BlockNumber returns the head of chain as observed by this endpoint.
	BlockNumber(ctx context.Context) (uint64, error)

	// FilterLogs queries the logs emitted by gatewayAddr over an inclusive
	// block range; the indexer picks the SendMessage events out of them.
	FilterLogs(ctx context.Context, gatewayAddr [20]byte, fromBlock, toBlock uint64) ([]Log, error)

	// GetLatestRoot calls getLatestRoot(height) on the gateway contract
	// (proxy flow).
	GetLatestRoot(ctx context.Context, gatewayAddr [20]byte, height uint64) ([32]byte, error)

	// NonceAt and GasPrice back the signing adapter's point reads (spec
	// §4.8): single-RPC, no majority agreement needed.
	NonceAt(ctx context.Context, account [20]byte) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)

	// SendRawTransaction submits a signed transaction and returns its hash.
	SendRawTransaction(ctx context.Context, raw []byte) ([32]byte, error)
}
