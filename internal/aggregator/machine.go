package aggregator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rocklabs-io/omnic-relay/internal/chainconfig"
	"github.com/rocklabs-io/omnic-relay/internal/indexer"
	"github.com/rocklabs-io/omnic-relay/internal/rpc"
	"github.com/rocklabs-io/omnic-relay/internal/store"
)

// Flow selects what a round fetches: the proxy flow's latest committed
// root, or the relay flow's scanned event range. Both share the identical
// state shape and agreement rule (spec §4.5); only the per-RPC query and
// the commit action differ.
type Flow int

const (
	FlowRoot Flow = iota
	FlowEvents
)

// Shuffler returns a permutation of urls. Injected so tests can assert
// exact RPC-subset selection (spec: "deterministic randomness ... injected
// via a func([]string) []string").
type Shuffler func([]string) []string

// ProviderFactory resolves a configured RPC URL to a live Provider.
type ProviderFactory func(url string) rpc.Provider

// RootSink receives a committed root for chainID, confirmed at the given
// unix-second timestamp.
type RootSink interface {
	CommitRoot(chainID uint32, root [32]byte, confirmedAt int64)
}

// EventSink receives a committed, leaf-index-ascending set of messages for
// chainID. An error means the batch could not be applied downstream (e.g.
// a store gap); the round's committed-block cursor is then not advanced.
type EventSink interface {
	CommitEvents(chainID uint32, leaves []store.Leaf) error
}

// roundContext is the per-round scratch state described in spec §4.5:
// chain_id, rpc_urls, target_height, the running candidate_counts
// (accumulated in results), and committed_outcome (committedRoot /
// committedLeaves, valid once sub reaches End).
type roundContext struct {
	chainID       uint32
	roundID       uint64
	sub           State
	rpcURLs       []string
	lastCommitted uint64
	targetHeight  uint64
	results       []outcome

	committedRoot   [32]byte
	committedLeaves []store.Leaf
}

// Machine is one instance of the RPC-aggregation state machine, bound to a
// single Flow. A process runs two instances sharing the same chain
// registry: one FlowRoot machine feeding the root store for dispatch proof
// checks, one FlowEvents machine feeding the message store and Merkle
// accumulator.
type Machine struct {
	log       *zap.SugaredLogger
	flow      Flow
	registry  *chainconfig.Registry
	providers ProviderFactory
	shuffle   Shuffler
	tunables  *Tunables
	clock     func() int64

	rootSink  RootSink
	eventSink EventSink

	chainIDs  []uint32
	main      State
	active    *roundContext
	nextRound uint64
}

// New returns a Machine in its initial state. shuffle and providers must be
// non-nil; the sinks may be attached afterward via SetRootSink/SetEventSink.
func New(flow Flow, registry *chainconfig.Registry, providers ProviderFactory, shuffle Shuffler, tunables *Tunables, log *zap.SugaredLogger) *Machine {
	return &Machine{
		log:       log,
		flow:      flow,
		registry:  registry,
		providers: providers,
		shuffle:   shuffle,
		tunables:  tunables,
		clock:     func() int64 { return time.Now().Unix() },
		main:      initState,
	}
}

// SetRootSink attaches the root-commit destination (required for FlowRoot).
func (m *Machine) SetRootSink(s RootSink) { m.rootSink = s }

// SetEventSink attaches the event-commit destination (required for
// FlowEvents).
func (m *Machine) SetEventSink(s EventSink) { m.eventSink = s }

// SetClock overrides the confirmed-at clock; tests use this for
// deterministic optimistic-delay checks downstream.
func (m *Machine) SetClock(c func() int64) { m.clock = c }

// MainState reports the current main state, for diagnostics and tests.
func (m *Machine) MainState() State { return m.main }

// ClearCache aborts the in-flight round (owner-initiated, spec §4.5
// cancellation): resets sub-state to Init so the next sub tick mints a
// fresh round id, and discards the results collected so far.
func (m *Machine) ClearCache() {
	if m.active != nil {
		m.active.sub = initState
		m.active.results = nil
	}
}

// Tick executes exactly one cooperative step of the state machine: at most
// one RPC call. Callers drive this from a scheduler tick (internal/scheduler).
func (m *Machine) Tick(ctx context.Context) {
	switch m.main.Kind {
	case StateInit:
		m.chainIDs = m.registry.ChainIDs()
		if len(m.chainIDs) == 0 {
			return
		}
		m.main = Fetching(0)
	case StateFetching:
		m.tickFetching(ctx)
	default:
		// Spec §3 invariant: End and Fail never appear as main state.
		panic(fmt.Sprintf("aggregator: main state observed %v, which the design declares unreachable", m.main.Kind))
	}
}

func (m *Machine) tickFetching(ctx context.Context) {
	if len(m.chainIDs) == 0 {
		m.main = initState
		return
	}
	k := m.main.I
	if k >= len(m.chainIDs) {
		k = 0
		m.main = Fetching(0)
	}
	chainID := m.chainIDs[k]

	if m.active == nil || m.active.chainID != chainID {
		m.active = &roundContext{chainID: chainID, sub: initState}
	}
	rc := m.active

	switch rc.sub.Kind {
	case StateInit:
		m.tickSubInit(ctx, rc)
	case StateFetching:
		m.tickSubFetching(ctx, rc)
	case StateEnd:
		m.applyCommit(rc)
		m.advanceMain(k)
	case StateFail:
		if m.log != nil {
			m.log.Debugw("aggregation round failed, cursor not advanced", "chain_id", chainID, "flow", m.flow)
		}
		m.advanceMain(k)
	}
}

func (m *Machine) advanceMain(k int) {
	next := (k + 1) % len(m.chainIDs)
	m.main = Fetching(next)
	m.active = nil
}

// tickSubInit implements: fetch block_number from the first round RPC,
// choose target_height, and transition to Fetching(0) or Fail.
func (m *Machine) tickSubInit(ctx context.Context, rc *roundContext) {
	chain, err := m.registry.Get(rc.chainID)
	if err != nil {
		rc.sub = failState
		return
	}

	urls := m.shuffle(chain.RPCURLs)
	n := m.tunables.QueryRPCNumber()
	if n <= 0 || n > len(urls) {
		n = len(urls)
	}
	rc.rpcURLs = urls[:n]
	rc.lastCommitted = chain.CommittedBlock
	rc.results = nil
	m.nextRound++
	rc.roundID = m.nextRound

	head, err := m.providers(rc.rpcURLs[0]).BlockNumber(ctx)
	if err != nil {
		rc.sub = failState
		return
	}

	_, to, ok := indexer.NextRange(rc.lastCommitted, head, chain.ConfirmationDepth, chain.BatchSize)
	if !ok {
		rc.sub = failState
		return
	}
	rc.targetHeight = to
	rc.sub = Fetching(0)
}

// tickSubFetching queries the i-th round RPC, appends its outcome to the
// round's candidate multiset, and either advances to the next RPC or runs
// the agreement rule after the last one.
func (m *Machine) tickSubFetching(ctx context.Context, rc *roundContext) {
	i := rc.sub.I
	chain, err := m.registry.Get(rc.chainID)
	if err != nil {
		rc.sub = failState
		return
	}
	provider := m.providers(rc.rpcURLs[i])

	var oc outcome
	switch m.flow {
	case FlowRoot:
		root, err := provider.GetLatestRoot(ctx, chain.GatewayAddr, rc.targetHeight)
		if err != nil {
			oc = failureOutcome()
		} else {
			oc = rootOutcome(root)
		}
	case FlowEvents:
		ix := indexer.New(provider, chain.GatewayAddr)
		leaves, err := ix.ScanChunk(ctx, rc.lastCommitted+1, rc.targetHeight)
		if err != nil {
			oc = failureOutcome()
		} else {
			oc = eventOutcome(leaves)
		}
	}
	rc.results = append(rc.results, oc)

	if i+1 == len(rc.rpcURLs) {
		m.runAgreement(rc)
		return
	}
	rc.sub = Fetching(i + 1)
}

func (m *Machine) runAgreement(rc *roundContext) {
	switch m.flow {
	case FlowRoot:
		root, ok := agreeRoot(rc.results)
		if !ok {
			rc.sub = failState
			return
		}
		rc.committedRoot = root
		rc.sub = endState
	case FlowEvents:
		leaves, ok := agreeEvents(rc.results)
		if !ok {
			rc.sub = failState
			return
		}
		rc.committedLeaves = leaves
		rc.sub = endState
	}
}

// applyCommit delivers the round's committed outcome to the attached sink
// and, only if the sink accepted it, advances the chain's committed-block
// cursor to the round's target height (spec §4.5: "iff the outcome applied
// cleanly").
func (m *Machine) applyCommit(rc *roundContext) {
	applied := true
	switch m.flow {
	case FlowRoot:
		if m.rootSink != nil {
			m.rootSink.CommitRoot(rc.chainID, rc.committedRoot, m.clock())
		}
	case FlowEvents:
		if m.eventSink != nil {
			if err := m.eventSink.CommitEvents(rc.chainID, rc.committedLeaves); err != nil {
				if m.log != nil {
					m.log.Warnw("committed event batch rejected downstream", "chain_id", rc.chainID, "error", err)
				}
				applied = false
			}
		}
	}
	if applied {
		if err := m.registry.SetCommittedBlock(rc.chainID, rc.targetHeight); err != nil && m.log != nil {
			m.log.Warnw("failed to advance committed block", "chain_id", rc.chainID, "error", err)
		}
	}
}
