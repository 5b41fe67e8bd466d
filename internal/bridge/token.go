package bridge

import (
	"fmt"
	"math/big"
	"sync"
)

// Token is the wrapper-token ledger for one pool's stake on one source
// chain: a balance table keyed by a 32-byte recipient and a running total
// supply, grounded on omnic-bridge's token.rs Operation trait (burn/mint/
// swap/balance_of/get_total_supply).
type Token struct {
	mu          sync.RWMutex
	SrcChain    uint32
	SrcPoolID   *big.Int
	Name        string
	Symbol      string
	Decimals    uint8
	totalSupply *big.Int
	balances    map[[32]byte]*big.Int
}

// NewToken returns a token ledger with zero supply and no balances.
func NewToken(srcChain uint32, srcPoolID *big.Int, name, symbol string, decimals uint8) *Token {
	return &Token{
		SrcChain:    srcChain,
		SrcPoolID:   srcPoolID,
		Name:        name,
		Symbol:      symbol,
		Decimals:    decimals,
		totalSupply: big.NewInt(0),
		balances:    make(map[[32]byte]*big.Int),
	}
}

// Mint credits to with value and increases total supply.
func (t *Token) Mint(to [32]byte, value *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	bal := t.balanceLocked(to)
	t.balances[to] = new(big.Int).Add(bal, value)
	t.totalSupply = new(big.Int).Add(t.totalSupply, value)
}

// Burn debits from by value and decreases total supply. It fails if from's
// balance is insufficient.
func (t *Token) Burn(from [32]byte, value *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	bal := t.balanceLocked(from)
	if bal.Cmp(value) < 0 {
		return fmt.Errorf("%w: balance %s < %s", ErrInsufficientBalance, bal, value)
	}
	t.balances[from] = new(big.Int).Sub(bal, value)
	t.totalSupply = new(big.Int).Sub(t.totalSupply, value)
	return nil
}

// BalanceOf returns account's balance, zero if it has never been credited.
func (t *Token) BalanceOf(account [32]byte) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.balanceLocked(account))
}

func (t *Token) balanceLocked(account [32]byte) *big.Int {
	if bal, ok := t.balances[account]; ok {
		return bal
	}
	return big.NewInt(0)
}

// TotalSupply returns the current total supply.
func (t *Token) TotalSupply() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.totalSupply)
}
