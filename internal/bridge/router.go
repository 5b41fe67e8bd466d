package bridge

import (
	"fmt"
	"math/big"
	"sync"
)

// Router is one source chain's pool index, grounded on omnic-bridge's
// router.rs Router: a bridge contract address plus pool_id -> Pool and
// token_address -> pool_id maps.
type Router struct {
	mu         sync.RWMutex
	SrcChain   uint32
	BridgeAddr [20]byte
	pools      map[string]*Pool   // pool_id.String() -> Pool
	tokenPool  map[[20]byte]string // token_addr -> pool_id.String()
}

// NewRouter returns an empty router for srcChain.
func NewRouter(srcChain uint32, bridgeAddr [20]byte) *Router {
	return &Router{
		SrcChain:   srcChain,
		BridgeAddr: bridgeAddr,
		pools:      make(map[string]*Pool),
		tokenPool:  make(map[[20]byte]string),
	}
}

// CreatePool is idempotent by (src_chain, pool_id): if tokenAddr already has
// a pool with the same poolID on this router, the call is a silent no-op
// (spec §4.7, grounded on router.rs::create_pool's early return when
// pool_exists(&token.address)). It fails with ErrPoolExists if tokenAddr is
// bound to a different pool id, or if poolID is already used by another token.
func (r *Router) CreatePool(poolID *big.Int, poolAddr [20]byte, tokenAddr [20]byte, sharedDecimals, localDecimals uint8, name, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tokenPool[tokenAddr]; ok {
		if existing != poolID.String() {
			return fmt.Errorf("%w: token already bound to pool %s", ErrPoolExists, existing)
		}
		return nil
	}

	key := poolID.String()
	if _, ok := r.pools[key]; ok {
		return fmt.Errorf("%w: pool id %s already in use", ErrPoolExists, key)
	}

	token := NewToken(r.SrcChain, poolID, name, symbol, localDecimals)
	r.pools[key] = NewPool(poolID, poolAddr, sharedDecimals, localDecimals, token)
	r.tokenPool[tokenAddr] = key
	return nil
}

// Pool returns the pool registered under poolID.
func (r *Router) Pool(poolID *big.Int) (*Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[poolID.String()]
	if !ok {
		return nil, fmt.Errorf("%w: pool %s on chain %d", ErrUnknownPool, poolID, r.SrcChain)
	}
	return p, nil
}

// PoolByToken resolves the pool bound to tokenAddr.
func (r *Router) PoolByToken(tokenAddr [20]byte) (*Pool, error) {
	r.mu.RLock()
	poolID, ok := r.tokenPool[tokenAddr]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: token %x on chain %d", ErrUnknownPool, tokenAddr, r.SrcChain)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[poolID]
	if !ok {
		return nil, fmt.Errorf("%w: pool %s on chain %d", ErrUnknownPool, poolID, r.SrcChain)
	}
	return p, nil
}

// PoolCount returns the number of pools registered on this router.
func (r *Router) PoolCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

// Routers is the chain_id -> Router registry (omnic-bridge's BridgeRouters).
type Routers struct {
	mu      sync.RWMutex
	routers map[uint32]*Router
}

// NewRouters returns an empty chain-to-router registry.
func NewRouters() *Routers {
	return &Routers{routers: make(map[uint32]*Router)}
}

// AddChain registers a new router for chainID, idempotently: a repeat call
// with the same bridge address is a no-op.
func (rs *Routers) AddChain(chainID uint32, bridgeAddr [20]byte) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.routers[chainID]; ok {
		return
	}
	rs.routers[chainID] = NewRouter(chainID, bridgeAddr)
}

// Router returns the router for chainID.
func (rs *Routers) Router(chainID uint32) (*Router, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	r, ok := rs.routers[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}
	return r, nil
}

// ChainExists reports whether chainID has a registered router.
func (rs *Routers) ChainExists(chainID uint32) bool {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	_, ok := rs.routers[chainID]
	return ok
}
