package aggregator

import (
	"fmt"
	"sync"
)

// StateKind is the shape shared by both the main and sub state (spec §4.5):
// Init, Fetching(i), End, Fail. Main never observes End or Fail: a sub
// End or Fail is consumed on the following tick, which moves main on to the
// next Fetching(i).
type StateKind int

const (
	StateInit StateKind = iota
	StateFetching
	StateEnd
	StateFail
)

func (k StateKind) String() string {
	switch k {
	case StateInit:
		return "Init"
	case StateFetching:
		return "Fetching"
	case StateEnd:
		return "End"
	case StateFail:
		return "Fail"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

// State is one main- or sub-state value. I is only meaningful when
// Kind == StateFetching: the round-robin chain index (main) or the RPC
// index within the round (sub).
type State struct {
	Kind StateKind
	I    int
}

func (s State) String() string {
	if s.Kind == StateFetching {
		return fmt.Sprintf("Fetching(%d)", s.I)
	}
	return s.Kind.String()
}

// Fetching constructs a Fetching(i) state.
func Fetching(i int) State { return State{Kind: StateFetching, I: i} }

var (
	initState = State{Kind: StateInit}
	endState  = State{Kind: StateEnd}
	failState = State{Kind: StateFail}
)

// Tunables holds the mutable process-wide knobs from the supplemented
// StateInfo object (state.rs): the round's RPC sample size and the
// process-wide confirmation depth. The fetch period lives in config;
// per-chain confirmation depth and batch size live in chainconfig.Chain. Owner-gated mutation of
// these values happens in internal/adminsrv; Tunables itself is just a
// concurrency-safe holder.
type Tunables struct {
	mu             sync.RWMutex
	queryRPCNumber int
	confirmBlocks  uint64
}

// NewTunables returns a Tunables seeded with the configured round RPC
// sample size and default confirmation depth.
func NewTunables(queryRPCNumber int, confirmBlocks uint64) *Tunables {
	return &Tunables{queryRPCNumber: queryRPCNumber, confirmBlocks: confirmBlocks}
}

// ConfirmBlocks returns the process-wide default confirmation depth
// applied to chains that don't override it.
func (t *Tunables) ConfirmBlocks() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.confirmBlocks
}

// SetConfirmBlocks updates the default confirmation depth (the admin
// surface's set_confirm_block operation, §6).
func (t *Tunables) SetConfirmBlocks(n uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.confirmBlocks = n
}

// QueryRPCNumber returns the current round RPC sample size.
func (t *Tunables) QueryRPCNumber() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.queryRPCNumber
}

// SetQueryRPCNumber updates the round RPC sample size (the admin surface's
// set_rpc_number operation, §6).
func (t *Tunables) SetQueryRPCNumber(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queryRPCNumber = n
}
