// Package bridge implements the bridge router and pool ledger of spec §4.7:
// liquidity accounting per source chain, idempotent pool creation, and
// local/cross-chain swaps, grounded on omnic-bridge's router.rs/pool.rs/
// token.rs.
package bridge

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rocklabs-io/omnic-relay/internal/message"
	"github.com/rocklabs-io/omnic-relay/internal/signer"
)

// LocalChain is the sentinel chain id used for the local-mint swap path
// (spec §4.7 "if dst == 0"), mirroring message.LocalDestination.
const LocalChain uint32 = message.LocalDestination

// handleSwapABI is the fixed destination-bridge method named in spec §6:
// "function handleSwap(uint256 poolId, uint256 amount, bytes32 to)".
const handleSwapABI = `[{"type":"function","name":"handleSwap","inputs":[{"name":"poolId","type":"uint256"},{"name":"amount","type":"uint256"},{"name":"to","type":"bytes32"}],"outputs":[]}]`

var handleSwapMethod abi.Method

func init() {
	parsed, err := abi.JSON(strings.NewReader(handleSwapABI))
	if err != nil {
		panic(err)
	}
	handleSwapMethod = parsed.Methods["handleSwap"]
}

// TransferRecord is a completed swap, carrying a round-trip identifier for
// the audit log (spec §6 get_records), mirroring the teacher's
// uuid.New()-stamped transfer records.
type TransferRecord struct {
	ID        string
	SrcChain  uint32
	SrcPool   *big.Int
	DstChain  uint32
	DstPool   *big.Int
	AmountSD  *big.Int
	Recipient [32]byte
	TxHash    common.Hash // zero for the local-mint path
}

// Engine applies bridge operations decoded from relayed messages against a
// Routers registry, calling out to the signing adapter for cross-chain
// swaps.
type Engine struct {
	log     *zap.SugaredLogger
	routers *Routers
	signer  *signer.Adapter
}

// New returns a bridge engine. signerAdapter may be nil if the deployment
// never needs the cross-chain swap path (e.g. tests exercising only
// liquidity and pool-creation operations).
func New(routers *Routers, signerAdapter *signer.Adapter, log *zap.SugaredLogger) *Engine {
	return &Engine{routers: routers, signer: signerAdapter, log: log}
}

// CreatePool applies a CREATE_POOL operation originating on chainID.
func (e *Engine) CreatePool(chainID uint32, op message.CreatePoolOp) error {
	r, err := e.routers.Router(chainID)
	if err != nil {
		return err
	}
	return r.CreatePool(op.Pool, op.PoolAddr, op.TokenAddr, op.SharedDecimals, op.LocalDecimals, op.Name, op.Symbol)
}

// AddLiquidity applies an ADD_LIQUIDITY operation.
func (e *Engine) AddLiquidity(op message.LiquidityOp) error {
	r, err := e.routers.Router(uint32(op.SrcChain))
	if err != nil {
		return err
	}
	p, err := r.Pool(op.Pool)
	if err != nil {
		return err
	}
	return p.AddLiquidity(op.Amount)
}

// RemoveLiquidity applies a REMOVE_LIQUIDITY operation, failing with
// ErrInsufficientLiquidity if the pool cannot cover it.
func (e *Engine) RemoveLiquidity(op message.LiquidityOp) error {
	r, err := e.routers.Router(uint32(op.SrcChain))
	if err != nil {
		return err
	}
	p, err := r.Pool(op.Pool)
	if err != nil {
		return err
	}
	return p.RemoveLiquidity(op.Amount)
}

// Swap applies a SWAP operation per spec §4.7: a local mint when
// op.DstChain == LocalChain, or a signed cross-chain handleSwap submission
// otherwise. On success it returns a stamped TransferRecord for the audit
// log.
func (e *Engine) Swap(ctx context.Context, op message.SwapOp) (TransferRecord, error) {
	srcRouter, err := e.routers.Router(uint32(op.SrcChain))
	if err != nil {
		return TransferRecord{}, err
	}
	srcPool, err := srcRouter.Pool(op.SrcPool)
	if err != nil {
		return TransferRecord{}, err
	}

	record := TransferRecord{
		ID:        uuid.New().String(),
		SrcChain:  uint32(op.SrcChain),
		SrcPool:   op.SrcPool,
		DstChain:  uint32(op.DstChain),
		DstPool:   op.DstPool,
		AmountSD:  op.AmountSD,
		Recipient: op.Recipient,
	}

	dstRouter, err := e.routers.Router(uint32(op.DstChain))
	if err != nil {
		return TransferRecord{}, err
	}
	dstPool, err := dstRouter.Pool(op.DstPool)
	if err != nil {
		return TransferRecord{}, err
	}
	amountLD, err := dstPool.AmountLD(op.AmountSD)
	if err != nil {
		return TransferRecord{}, err
	}
	srcAmountLD, err := srcPool.AmountLD(op.AmountSD)
	if err != nil {
		return TransferRecord{}, err
	}

	if op.DstChain == uint16(LocalChain) {
		dstPool.Token.Mint(op.Recipient, amountLD)
		if err := srcPool.AddLiquidity(srcAmountLD); err != nil {
			return TransferRecord{}, err
		}
		return record, nil
	}

	if !dstPool.EnoughLiquidity(amountLD) {
		return TransferRecord{}, fmt.Errorf("%w: dst pool %s on chain %d", ErrInsufficientLiquidity, op.DstPool, op.DstChain)
	}
	if e.signer == nil {
		return TransferRecord{}, fmt.Errorf("bridge: no signing adapter configured for cross-chain swap")
	}

	raw, err := e.signer.SignAndBuild(ctx, uint32(op.DstChain), common.Address(dstRouter.BridgeAddr), handleSwapMethod,
		[]interface{}{op.DstPool, amountLD, op.Recipient}, signer.Options{GasLimit: 250000})
	if err != nil {
		return TransferRecord{}, fmt.Errorf("bridge: build handleSwap tx: %w", err)
	}
	txHash, err := e.signer.Submit(ctx, uint32(op.DstChain), raw)
	if err != nil {
		return TransferRecord{}, fmt.Errorf("bridge: submit handleSwap tx: %w", err)
	}
	record.TxHash = txHash

	// Only after the submission succeeds do pool balances move, per spec
	// §4.7's ordering requirement for the cross-chain swap path.
	if err := srcPool.AddLiquidity(srcAmountLD); err != nil {
		if e.log != nil {
			e.log.Errorw("swap submitted but src pool credit failed", "record", record.ID, "error", err)
		}
		return record, err
	}
	if err := dstPool.RemoveLiquidity(amountLD); err != nil {
		if e.log != nil {
			e.log.Errorw("swap submitted but dst pool debit failed", "record", record.ID, "error", err)
		}
		return record, err
	}
	return record, nil
}
