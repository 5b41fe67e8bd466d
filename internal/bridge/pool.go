package bridge

import (
	"fmt"
	"math/big"
	"sync"
)

// maxUint128 bounds every shared/local decimal amount per spec §4.7:
// "conversions MUST be saturating with respect to 128-bit amounts and
// reject on overflow".
var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Pool is one token's liquidity ledger on one source chain, grounded on
// omnic-bridge's router.rs Pool (pool_id, pool_address, shared/local
// decimals, token, liquidity). Liquidity is tracked in the pool's own local
// decimals, matching router.rs's add_liquidity/remove_liquidity/
// enough_liquidity, all of which take amount_ld directly.
type Pool struct {
	mu             sync.RWMutex
	PoolID         *big.Int
	PoolAddr       [20]byte
	SharedDecimals uint8
	LocalDecimals  uint8
	Token          *Token
	liquidityLD    *big.Int
}

// NewPool returns an empty-liquidity pool wrapping token.
func NewPool(poolID *big.Int, poolAddr [20]byte, sharedDecimals, localDecimals uint8, token *Token) *Pool {
	return &Pool{
		PoolID:         poolID,
		PoolAddr:       poolAddr,
		SharedDecimals: sharedDecimals,
		LocalDecimals:  localDecimals,
		Token:          token,
		liquidityLD:    big.NewInt(0),
	}
}

// AddLiquidity increases the pool's liquidity by amountLD (spec §4.7
// ADD_LIQUIDITY).
func (p *Pool) AddLiquidity(amountLD *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sum := new(big.Int).Add(p.liquidityLD, amountLD)
	if sum.Cmp(maxUint128) > 0 {
		return fmt.Errorf("%w: liquidity", ErrAmountOverflow)
	}
	p.liquidityLD = sum
	return nil
}

// RemoveLiquidity decreases the pool's liquidity by amountLD. It fails with
// ErrInsufficientLiquidity if the pool does not hold enough.
func (p *Pool) RemoveLiquidity(amountLD *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.liquidityLD.Cmp(amountLD) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientLiquidity, p.liquidityLD, amountLD)
	}
	p.liquidityLD = new(big.Int).Sub(p.liquidityLD, amountLD)
	return nil
}

// EnoughLiquidity reports whether the pool can cover amountLD.
func (p *Pool) EnoughLiquidity(amountLD *big.Int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.liquidityLD.Cmp(amountLD) >= 0
}

// LiquidityLD returns the current liquidity in this pool's local decimals.
func (p *Pool) LiquidityLD() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(big.Int).Set(p.liquidityLD)
}

// AmountLD converts a shared-decimals amount to this pool's local decimals:
// amount_ld = amount_sd * 10^(local - shared), floored when local < shared.
func (p *Pool) AmountLD(amountSD *big.Int) (*big.Int, error) {
	return convertDecimals(amountSD, int(p.LocalDecimals)-int(p.SharedDecimals))
}

// AmountSD converts a local-decimals amount to shared decimals: the inverse
// exponent of AmountLD.
func (p *Pool) AmountSD(amountLD *big.Int) (*big.Int, error) {
	return convertDecimals(amountLD, int(p.SharedDecimals)-int(p.LocalDecimals))
}

// convertDecimals multiplies amount by 10^exp when exp >= 0, or divides
// (floor) by 10^-exp otherwise, rejecting results outside [0, 2^128-1].
func convertDecimals(amount *big.Int, exp int) (*big.Int, error) {
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrAmountOverflow)
	}
	var result *big.Int
	if exp >= 0 {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
		result = new(big.Int).Mul(amount, scale)
	} else {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-exp)), nil)
		result = new(big.Int).Div(amount, scale) // floor; amount is non-negative
	}
	if result.Cmp(maxUint128) > 0 {
		return nil, fmt.Errorf("%w: converted amount", ErrAmountOverflow)
	}
	return result, nil
}
