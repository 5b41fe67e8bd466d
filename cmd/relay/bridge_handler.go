package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rocklabs-io/omnic-relay/internal/bridge"
	"github.com/rocklabs-io/omnic-relay/internal/dispatch"
	"github.com/rocklabs-io/omnic-relay/internal/message"
)

// bridgeHandleLow10 is the fixed local-actor handle the gateway's
// SendMessage recipient field carries for bridge operations (spec §4.7:
// liquidity/swap/pool operations "routed into the router" rather than an
// arbitrary local recipient). A single well-known handle keeps the handler
// registry uniform with any other local actor.
var bridgeHandleLow10 = [10]byte{'o', 'm', 'n', 'i', 'c', 'b', 'r', 'i', 'd', 'g'}

// bridgeHandler adapts internal/bridge.Engine to dispatch.LocalHandler: a
// dispatched message whose body is a bridge operation gets decoded and
// routed to the matching Engine method (spec §4.6 "either calls a local
// recipient or invokes the signing adapter", §4.7 "bridge operations are
// routed into the router before any external call").
type bridgeHandler struct {
	engine *bridge.Engine
	log    *zap.SugaredLogger
}

func (h *bridgeHandler) HandleMessage(ctx context.Context, origin uint32, nonce uint64, sender [32]byte, body []byte) error {
	op, err := message.DecodeOperation(body)
	if err != nil {
		return fmt.Errorf("bridge handler: decode operation: %w", err)
	}
	switch v := op.(type) {
	case message.CreatePoolOp:
		return h.engine.CreatePool(origin, v)
	case message.LiquidityOp:
		if v.Op == message.OperationRemoveLiquidity {
			return h.engine.RemoveLiquidity(v)
		}
		return h.engine.AddLiquidity(v)
	case message.SwapOp:
		record, err := h.engine.Swap(ctx, v)
		if err != nil {
			return err
		}
		if h.log != nil {
			h.log.Infow("swap settled", "transfer_id", record.ID, "tx_hash", record.TxHash.Hex())
		}
		return nil
	default:
		return fmt.Errorf("bridge handler: unexpected decoded operation type %T", v)
	}
}

var _ dispatch.LocalHandler = (*bridgeHandler)(nil)
