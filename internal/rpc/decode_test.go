package rpc

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestDecodeRawTxRoundTrips(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	to := crypto.PubkeyToAddress(key.PublicKey)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		Nonce:     0,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(0),
	})
	signed, err := types.SignTx(tx, types.NewLondonSigner(big.NewInt(1)), key)
	if err != nil {
		t.Fatalf("sign tx: %v", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := decodeRawTx(raw)
	if err != nil {
		t.Fatalf("decodeRawTx: %v", err)
	}
	if got.Hash() != signed.Hash() {
		t.Fatalf("hash = %s, want %s", got.Hash(), signed.Hash())
	}
}

func TestDecodeRawTxRejectsGarbage(t *testing.T) {
	if _, err := decodeRawTx([]byte{0xFF, 0x00, 0x01}); err == nil {
		t.Fatal("expected error decoding garbage bytes")
	}
}
