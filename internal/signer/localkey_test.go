package signer

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func hexEncodeKey(key *ecdsa.PrivateKey) string {
	return hex.EncodeToString(crypto.FromECDSA(key))
}

func TestLocalKeySignerAddressMatchesKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	hexKey := hexEncodeKey(key)
	s, err := NewLocalKeySigner(hexKey)
	if err != nil {
		t.Fatalf("new local key signer: %v", err)
	}
	want := crypto.PubkeyToAddress(key.PublicKey)
	got, err := s.Address(context.Background(), "ignored", nil)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	if got != want {
		t.Fatalf("address = %s, want %s", got, want)
	}
}

func TestLocalKeySignerSignDigestProducesValidSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	s, err := NewLocalKeySigner(hexEncodeKey(key))
	if err != nil {
		t.Fatalf("new local key signer: %v", err)
	}
	var digest [32]byte
	digest[0] = 0x42

	sig, err := s.SignDigest(context.Background(), "ignored", nil, digest)
	if err != nil {
		t.Fatalf("sign digest: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("signature length = %d, want 65", len(sig))
	}

	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		t.Fatalf("recover pubkey: %v", err)
	}
	if crypto.PubkeyToAddress(*pub) != crypto.PubkeyToAddress(key.PublicKey) {
		t.Fatal("recovered address does not match signing key")
	}
}

func TestNewLocalKeySignerRejectsInvalidHex(t *testing.T) {
	if _, err := NewLocalKeySigner("not-hex"); err == nil {
		t.Fatal("expected error for invalid hex key")
	}
}
