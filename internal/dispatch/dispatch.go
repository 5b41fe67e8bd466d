// Package dispatch implements the proxy dispatch core of spec §4.6: proof
// verification against committed roots, followed by either a local-actor
// call or a signed destination-chain transaction.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rocklabs-io/omnic-relay/internal/merkle"
	"github.com/rocklabs-io/omnic-relay/internal/message"
	"github.com/rocklabs-io/omnic-relay/internal/store"
)

// ErrValidationFailed is returned when is_valid's checks (proof, root
// membership, optimistic delay) fail.
var ErrValidationFailed = errors.New("dispatch: validation failed")

// ErrDispatchFailed is returned when a validated message's downstream call
// (local handler or destination-chain submission) errors. Per spec §7 this
// is logged and audited, never retried automatically.
var ErrDispatchFailed = errors.New("dispatch: downstream call failed")

// LocalHandler is a typed call target for destination == 0 messages,
// looked up by the low-10-bytes local actor handle (spec §9).
type LocalHandler interface {
	HandleMessage(ctx context.Context, origin uint32, nonce uint64, sender [32]byte, body []byte) error
}

// LocalRegistry resolves a local actor handle to its handler.
type LocalRegistry interface {
	Lookup(handle [10]byte) (LocalHandler, bool)
}

// MapRegistry is the straightforward in-memory LocalRegistry implementation.
type MapRegistry map[[10]byte]LocalHandler

// Lookup implements LocalRegistry.
func (m MapRegistry) Lookup(handle [10]byte) (LocalHandler, bool) {
	h, ok := m[handle]
	return h, ok
}

// RemoteDispatcher submits a processMessageBatch call to a destination
// gateway for one message (dispatch is strictly sequential per origin
// chain, so batches of one are the common case; the name matches the fixed
// on-chain method spec §4.6 names).
type RemoteDispatcher interface {
	DispatchBatch(ctx context.Context, destChain uint32, messages [][]byte) (common.Hash, error)
}

// RootSource exposes the per-chain root store a Core needs for validation.
type RootSource func(originChain uint32) (*store.RootStore, bool)

// Core is the proxy dispatch core. It holds no mutable state of its own
// beyond what it's constructed with; all persistent state (roots,
// processed cursors) lives in the stores it's handed.
type Core struct {
	log             *zap.SugaredLogger
	roots           RootSource
	locals          LocalRegistry
	remote          RemoteDispatcher
	optimisticDelay int64
	now             func() int64
}

// New returns a dispatch core. optimisticDelaySeconds is the minimum gap
// between a root's confirmation and its eligibility for optimistic
// verification (spec §6 default: 1800).
func New(roots RootSource, locals LocalRegistry, remote RemoteDispatcher, optimisticDelaySeconds int64, now func() int64, log *zap.SugaredLogger) *Core {
	return &Core{roots: roots, locals: locals, remote: remote, optimisticDelay: optimisticDelaySeconds, now: now, log: log}
}

// IsValid decodes messageBytes, recomputes its leaf digest and the root
// implied by proof at leafIndex, and reports whether that root is in the
// origin chain's committed root sequence. waitOptimistic additionally
// requires the committing root to have cleared the optimistic delay (the
// wire schema of spec §4.1 carries no such flag; callers that need
// optimistic semantics pass it explicitly based on their own
// application-level convention).
func (c *Core) IsValid(originChain uint32, messageBytes []byte, proof [merkle.Depth][32]byte, leafIndex uint64, waitOptimistic bool) (bool, error) {
	msg, err := message.Decode(messageBytes)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	leaf := message.LeafDigest(msg)
	root := merkle.RecomputeRoot(leaf, leafIndex, proof)

	rs, ok := c.roots(originChain)
	if !ok {
		return false, fmt.Errorf("%w: unknown origin chain %d", ErrValidationFailed, originChain)
	}

	if !waitOptimistic {
		return rs.Contains(root), nil
	}

	confirmedAt, ok := rs.ConfirmedAt(root)
	if !ok {
		return false, nil
	}
	return c.now()-confirmedAt >= c.optimisticDelay, nil
}

// ProcessMessage runs IsValid, then dispatches: destination == 0 invokes
// the local handler keyed by the recipient's low 10 bytes; otherwise the
// remote dispatcher is asked to submit processMessageBatch on the
// destination gateway. Callers are responsible for invoking this in strict
// leaf_index order per origin chain (spec §4.6 ordering invariant) — this
// function dispatches exactly the one message it is given.
func (c *Core) ProcessMessage(ctx context.Context, originChain uint32, messageBytes []byte, proof [merkle.Depth][32]byte, leafIndex uint64, waitOptimistic bool) error {
	valid, err := c.IsValid(originChain, messageBytes, proof, leafIndex, waitOptimistic)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("%w: leaf %d of chain %d", ErrValidationFailed, leafIndex, originChain)
	}

	msg, err := message.Decode(messageBytes)
	if err != nil {
		// Unreachable: IsValid already decoded messageBytes successfully.
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	if msg.Destination == message.LocalDestination {
		handle := message.LocalRecipient(msg.Recipient)
		handler, ok := c.locals.Lookup(handle)
		if !ok {
			if c.log != nil {
				c.log.Warnw("no local handler registered for recipient", "handle", handle, "origin", originChain, "nonce", msg.Nonce)
			}
			return fmt.Errorf("%w: no local handler for recipient", ErrDispatchFailed)
		}
		if err := handler.HandleMessage(ctx, msg.Origin, msg.Nonce, msg.Sender, msg.Body); err != nil {
			if c.log != nil {
				c.log.Warnw("local dispatch failed", "origin", originChain, "nonce", msg.Nonce, "error", err)
			}
			return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
		}
		return nil
	}

	if _, err := c.remote.DispatchBatch(ctx, msg.Destination, [][]byte{messageBytes}); err != nil {
		if c.log != nil {
			c.log.Warnw("remote dispatch failed", "origin", originChain, "destination", msg.Destination, "nonce", msg.Nonce, "error", err)
		}
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	return nil
}
