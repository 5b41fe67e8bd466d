package bridge

import "errors"

// ErrInsufficientLiquidity is returned when a pool's liquidity cannot cover
// a requested debit (spec §7's InsufficientLiquidity taxonomy entry).
var ErrInsufficientLiquidity = errors.New("bridge: insufficient liquidity")

// ErrInsufficientBalance guards Token.Burn against overdrawing an account.
var ErrInsufficientBalance = errors.New("bridge: insufficient balance")

// ErrPoolExists is returned by CreatePool attempts that are not idempotent
// no-ops: a different token already maps to an existing pool id, or a
// different pool id already maps to the token address.
var ErrPoolExists = errors.New("bridge: pool already exists with a conflicting mapping")

// ErrUnknownChain is returned when a router is requested for a chain id
// that was never registered via AddChain.
var ErrUnknownChain = errors.New("bridge: unknown chain")

// ErrUnknownPool is returned when a pool id has no entry in a router.
var ErrUnknownPool = errors.New("bridge: unknown pool")

// ErrAmountOverflow is returned by decimal conversions that would overflow
// a 128-bit amount (spec §4.7: "conversions MUST be saturating with respect
// to 128-bit amounts and reject on overflow").
var ErrAmountOverflow = errors.New("bridge: amount overflows 128 bits")
