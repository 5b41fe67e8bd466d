// Package message implements the wire codec for relay messages: the fixed
// ABI schema carried in a gateway's SendMessage payload, and the canonical
// leaf digest used to identify a message inside a chain's Merkle
// accumulator.
package message

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Kind is the message type tag carried in the first ABI field.
type Kind uint8

const (
	KindSYN     Kind = 0
	KindACK     Kind = 1
	KindFailACK Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindSYN:
		return "SYN"
	case KindACK:
		return "ACK"
	case KindFailACK:
		return "FAIL_ACK"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ErrDecode is returned for any malformed wire payload: wrong field count,
// wrong field type, or an out-of-range kind tag.
var ErrDecode = errors.New("message: decode error")

// Message is the typed union described in spec §3: an envelope identifying
// origin, destination, sender, recipient and nonce, carrying an
// arbitrary-length body. LocalDestination is the sentinel chain id (0)
// meaning "deliver to a local handler hosted alongside the relay".
const LocalDestination uint32 = 0

type Message struct {
	Kind        Kind
	Origin      uint32
	Sender      [32]byte
	Nonce       uint64
	Destination uint32
	Recipient   [32]byte
	Body        []byte
}

// abiSchema mirrors the on-chain payload:
// (uint8 kind, uint32 origin, bytes32 sender, uint64 nonce, uint32 destination, bytes32 recipient, bytes body)
var abiSchema = mustArguments(
	"uint8", "uint32", "bytes32", "uint64", "uint32", "bytes32", "bytes",
)

func mustArguments(types ...string) abi.Arguments {
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

// Encode produces the canonical ABI encoding of m. decode(encode(m)) == m
// for every structurally valid m (body length bound only by the transport).
func Encode(m Message) []byte {
	packed, err := abiSchema.Pack(
		uint8(m.Kind),
		m.Origin,
		m.Sender,
		m.Nonce,
		m.Destination,
		m.Recipient,
		m.Body,
	)
	if err != nil {
		// abiSchema is a fixed, statically valid schema; Pack only fails on
		// type mismatches which cannot occur given Message's Go types.
		panic(fmt.Errorf("message: encode: %w", err))
	}
	return packed
}

// Decode parses data as the fixed ABI schema. Kind values outside {0,1,2}
// fail with ErrDecode.
func Decode(data []byte) (Message, error) {
	values, err := abiSchema.Unpack(data)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(values) != 7 {
		return Message{}, fmt.Errorf("%w: expected 7 fields, got %d", ErrDecode, len(values))
	}

	kindU8, ok := values[0].(uint8)
	if !ok {
		return Message{}, fmt.Errorf("%w: kind field is not uint8", ErrDecode)
	}
	if kindU8 > uint8(KindFailACK) {
		return Message{}, fmt.Errorf("%w: unknown kind %d", ErrDecode, kindU8)
	}

	origin, ok := values[1].(uint32)
	if !ok {
		return Message{}, fmt.Errorf("%w: origin field is not uint32", ErrDecode)
	}
	sender, ok := values[2].([32]byte)
	if !ok {
		return Message{}, fmt.Errorf("%w: sender field is not bytes32", ErrDecode)
	}
	nonce, ok := values[3].(uint64)
	if !ok {
		return Message{}, fmt.Errorf("%w: nonce field is not uint64", ErrDecode)
	}
	destination, ok := values[4].(uint32)
	if !ok {
		return Message{}, fmt.Errorf("%w: destination field is not uint32", ErrDecode)
	}
	recipient, ok := values[5].([32]byte)
	if !ok {
		return Message{}, fmt.Errorf("%w: recipient field is not bytes32", ErrDecode)
	}
	body, ok := values[6].([]byte)
	if !ok {
		return Message{}, fmt.Errorf("%w: body field is not bytes", ErrDecode)
	}

	return Message{
		Kind:        Kind(kindU8),
		Origin:      origin,
		Sender:      sender,
		Nonce:       nonce,
		Destination: destination,
		Recipient:   recipient,
		Body:        body,
	}, nil
}

// LeafDigest is the sole source of a leaf's identity: the keccak-256 hash of
// the canonical encoding. Stores must never derive a leaf hash any other
// way.
func LeafDigest(m Message) [32]byte {
	return crypto.Keccak256Hash(Encode(m))
}

// LocalRecipient extracts the local actor handle from a 32-byte recipient
// per the on-chain convention documented in spec §9: the low 10 bytes of the
// recipient blob. This is preserved exactly as-is even though it disagrees
// with typical principal lengths elsewhere in the system.
func LocalRecipient(recipient [32]byte) [10]byte {
	var out [10]byte
	copy(out[:], recipient[22:])
	return out
}

// RecipientAddress reinterprets the low 20 bytes of recipient as an EVM
// address, used when Destination != 0.
func RecipientAddress(recipient [32]byte) common.Address {
	var addr common.Address
	copy(addr[:], recipient[12:])
	return addr
}

// SenderU256 returns the sender field widened to a *big.Int, useful when a
// caller needs to embed it in an ABI call that expects uint256/bytes32.
func SenderU256(sender [32]byte) *big.Int {
	return new(big.Int).SetBytes(sender[:])
}
