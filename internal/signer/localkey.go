package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// LocalKeySigner is a single-key KeySigner backed by an in-memory ECDSA
// key, ignoring keyName/derivationPath (there is only ever one key). The
// real deployment's signer is the host-managed threshold key named as an
// out-of-scope collaborator in spec §1; this is the concrete stand-in a
// self-hosted relay process wires in when it owns its own key instead of
// delegating to that host primitive.
type LocalKeySigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewLocalKeySigner loads a signer from a hex-encoded ECDSA private key
// (no leading 0x required).
func NewLocalKeySigner(hexKey string) (*LocalKeySigner, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("signer: parse local key: %w", err)
	}
	return &LocalKeySigner{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address implements KeySigner.
func (s *LocalKeySigner) Address(ctx context.Context, keyName string, derivationPath []byte) (common.Address, error) {
	return s.addr, nil
}

// SignDigest implements KeySigner by signing digest directly with the
// local key.
func (s *LocalKeySigner) SignDigest(ctx context.Context, keyName string, derivationPath []byte, digest [32]byte) ([]byte, error) {
	sig, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return nil, fmt.Errorf("signer: sign digest: %w", err)
	}
	return sig, nil
}
