// Package signer implements the signing and transaction-build adapter of
// spec §4.8: deriving a chain address, constructing and signing a raw
// transaction against a destination gateway, and submitting it. The actual
// ECDSA signing primitive is an out-of-scope external collaborator (spec
// §1: "the ECDSA-signing host primitive, treated as an opaque signer with
// derivation-path keying"); this package only shapes the call around it.
package signer

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rocklabs-io/omnic-relay/internal/rpc"
)

// KeySigner is the opaque, derivation-path-keyed ECDSA signer. A real
// deployment backs this with a host-managed threshold key; tests back it
// with an in-memory ecdsa.PrivateKey.
type KeySigner interface {
	// Address returns the address controlled by keyName at derivationPath.
	Address(ctx context.Context, keyName string, derivationPath []byte) (common.Address, error)
	// SignDigest produces a 65-byte [R || S || V] signature over digest.
	SignDigest(ctx context.Context, keyName string, derivationPath []byte, digest [32]byte) ([]byte, error)
}

// Options mirrors the tx-build inputs named in spec §4.8: gas limit,
// nonce, and gas price. A zero Nonce or GasPrice means "query it from the
// chain" (the adapter's single-RPC point reads).
type Options struct {
	GasLimit uint64
	Nonce    *uint64
	GasPrice *big.Int
	ChainID  *big.Int
}

// Adapter binds a KeySigner, a key name, and a derivation path to a
// provider factory so it can query nonce/gas price and submit raw
// transactions per destination chain.
type Adapter struct {
	signer         KeySigner
	keyName        string
	derivationPath []byte
	providers      func(chainID uint32) rpc.Provider
}

// New returns a signing adapter. providers resolves a destination chain id
// to a single RPC endpoint for point reads (nonce, gas price) and
// submission; no majority agreement is required for these (spec §4.8).
func New(s KeySigner, keyName string, derivationPath []byte, providers func(chainID uint32) rpc.Provider) *Adapter {
	return &Adapter{signer: s, keyName: keyName, derivationPath: derivationPath, providers: providers}
}

// DeriveAddress returns the address this adapter signs with.
func (a *Adapter) DeriveAddress(ctx context.Context) (common.Address, error) {
	return a.signer.Address(ctx, a.keyName, a.derivationPath)
}

// SignAndBuild constructs a legacy EIP-155 transaction invoking
// method(args...) on contractAddr, queries any unset Options fields from
// the chain, and returns the signed raw transaction bytes suitable for
// eth_sendRawTransaction.
func (a *Adapter) SignAndBuild(ctx context.Context, chainID uint32, contractAddr common.Address, method abi.Method, args []interface{}, opts Options) ([]byte, error) {
	provider := a.providers(chainID)
	if provider == nil {
		return nil, fmt.Errorf("signer: no RPC provider configured for chain %d", chainID)
	}

	from, err := a.DeriveAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("signer: derive address: %w", err)
	}

	nonce := opts.Nonce
	if nonce == nil {
		var addr [20]byte
		copy(addr[:], from[:])
		n, err := provider.NonceAt(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("signer: query nonce: %w", err)
		}
		nonce = &n
	}

	gasPrice := opts.GasPrice
	if gasPrice == nil {
		gasPrice, err = provider.GasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("signer: query gas price: %w", err)
		}
	}

	data, err := method.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("signer: pack call data: %w", err)
	}
	calldata := append(append([]byte{}, method.ID...), data...)

	chainIDBig := opts.ChainID
	if chainIDBig == nil {
		chainIDBig = new(big.Int).SetUint64(uint64(chainID))
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    *nonce,
		GasPrice: gasPrice,
		Gas:      opts.GasLimit,
		To:       &contractAddr,
		Value:    big.NewInt(0),
		Data:     calldata,
	})

	signer := types.NewEIP155Signer(chainIDBig)
	digest := signer.Hash(tx)

	sig, err := a.signer.SignDigest(ctx, a.keyName, a.derivationPath, digest)
	if err != nil {
		return nil, fmt.Errorf("signer: sign digest: %w", err)
	}
	signedTx, err := tx.WithSignature(signer, sig)
	if err != nil {
		return nil, fmt.Errorf("signer: apply signature: %w", err)
	}

	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("signer: marshal signed tx: %w", err)
	}
	return raw, nil
}

// Submit forwards raw to the destination chain. Per the original's
// documented duplicate-submission tolerance (a resubmitted tx from a
// retried round ends up erroring on every submitter but the first), a
// "already known"/nonce-too-low style error is not surfaced as fatal: Submit
// returns the keccak256 hash of raw (the transaction hash) with a nil error,
// and the caller can look up the tx by that hash afterward.
func (a *Adapter) Submit(ctx context.Context, chainID uint32, raw []byte) (common.Hash, error) {
	provider := a.providers(chainID)
	if provider == nil {
		return common.Hash{}, fmt.Errorf("signer: no RPC provider configured for chain %d", chainID)
	}
	hash, err := provider.SendRawTransaction(ctx, raw)
	if err != nil {
		reason := strings.ToLower(err.Error())
		if strings.Contains(reason, "already known") || strings.Contains(reason, "nonce too low") {
			return crypto.Keccak256Hash(raw), nil
		}
		return common.Hash(hash), fmt.Errorf("signer: submit: %w", err)
	}
	return common.Hash(hash), nil
}

// DigestForLogging is a convenience used by audit records: the keccak256
// of a raw transaction, independent of whether submission succeeded.
func DigestForLogging(raw []byte) common.Hash {
	return crypto.Keccak256Hash(raw)
}
