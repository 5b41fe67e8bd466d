package rpc

import (
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
)

func newJSONReader(s string) *strings.Reader {
	return strings.NewReader(s)
}

// decodeRawTx parses the RLP-encoded signed transaction produced by
// internal/signer.Adapter.SignAndBuild.
func decodeRawTx(raw []byte) (*types.Transaction, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return tx, nil
}
