package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/rocklabs-io/omnic-relay/internal/dispatch"
	"github.com/rocklabs-io/omnic-relay/internal/message"
	"github.com/rocklabs-io/omnic-relay/internal/metrics"
	"github.com/rocklabs-io/omnic-relay/internal/store"
)

// chainStores auto-vivifies one RootStore and one MessageStore per chain
// id, shared between both aggregator.Machine flows and the admin server
// (spec §4.2: "one root store and one message store per configured
// source chain").
type chainStores struct {
	retention int
	roots     map[uint32]*store.RootStore
	messages  map[uint32]*store.MessageStore
}

func newChainStores(retention int) *chainStores {
	return &chainStores{
		retention: retention,
		roots:     make(map[uint32]*store.RootStore),
		messages:  make(map[uint32]*store.MessageStore),
	}
}

func (c *chainStores) rootStore(chainID uint32) *store.RootStore {
	rs, ok := c.roots[chainID]
	if !ok {
		rs = store.NewRootStore(c.retention)
		c.roots[chainID] = rs
	}
	return rs
}

func (c *chainStores) messageStore(chainID uint32) *store.MessageStore {
	ms, ok := c.messages[chainID]
	if !ok {
		ms = store.New()
		c.messages[chainID] = ms
	}
	return ms
}

// rootSource adapts chainStores to dispatch.RootSource: a chain id with no
// observed root yet is simply "not found", matching spec §4.6's treatment
// of an unconfigured origin chain.
func (c *chainStores) rootSource(chainID uint32) (*store.RootStore, bool) {
	rs, ok := c.roots[chainID]
	return rs, ok
}

// rootSink implements aggregator.RootSink for the FlowRoot machine: persist
// the committed root and report it to metrics (spec §4.5 proxy flow commit
// action).
type rootSink struct {
	stores  *chainStores
	metrics *metrics.Collector
}

func (s *rootSink) CommitRoot(chainID uint32, root [32]byte, confirmedAt int64) {
	s.stores.rootStore(chainID).InsertRoot(root, confirmedAt)
	s.metrics.ObserveRoundCommitted("root", chainID)
}

// eventSink implements aggregator.EventSink for the FlowEvents machine: it
// appends the committed leaf batch, folds newly-reachable leaves into the
// Merkle tree once the matching root has been observed by the root store,
// and dispatches each newly-reachable message exactly once (spec §4.4's
// relay flow feeding §4.6's dispatch core).
type eventSink struct {
	stores  *chainStores
	core    *dispatch.Core
	metrics *metrics.Collector
	log     *zap.SugaredLogger
}

func (s *eventSink) CommitEvents(chainID uint32, leaves []store.Leaf) error {
	ms := s.stores.messageStore(chainID)
	for _, leaf := range leaves {
		if err := ms.Append(leaf); err != nil {
			return err
		}
	}

	root, err := s.stores.rootStore(chainID).LatestRoot()
	if err != nil {
		// Events arrived ahead of any observed root; the tree catches up
		// once the proxy flow commits a root that covers them.
		return nil
	}
	newIndex, err := ms.CatchUpTree(root)
	if err != nil {
		return err
	}

	processed, hasProcessed := ms.ProcessedIndex()
	start := uint64(0)
	if hasProcessed {
		start = processed + 1
	}
	for i := start; i <= newIndex; i++ {
		if err := ms.GenerateAndCacheProof(i); err != nil {
			return err
		}
		proof, _ := ms.CachedProof(i)
		leaf, err := ms.Leaf(i)
		if err != nil {
			return err
		}
		body := message.Encode(leaf.Message)
		if dispatchErr := s.core.ProcessMessage(context.Background(), chainID, body, proof, i, false); dispatchErr != nil {
			if s.log != nil {
				s.log.Errorw("dispatch failed", "chain", chainID, "leaf_index", i, "error", dispatchErr)
			}
			s.metrics.ObserveDispatch(destinationLabel(leaf.Message.Destination), false)
			return dispatchErr
		}
		s.metrics.ObserveDispatch(destinationLabel(leaf.Message.Destination), true)
		ms.AdvanceProcessed(i)
	}
	return nil
}

func destinationLabel(dst uint32) string {
	if dst == message.LocalDestination {
		return "local"
	}
	return "remote"
}
