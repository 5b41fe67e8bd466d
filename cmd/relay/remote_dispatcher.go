package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rocklabs-io/omnic-relay/internal/chainconfig"
	"github.com/rocklabs-io/omnic-relay/internal/signer"
)

// processMessageBatchABI is the fixed destination-gateway method named in
// spec §6: "function processMessageBatch(bytes[])".
const processMessageBatchABI = `[{"type":"function","name":"processMessageBatch","inputs":[{"name":"messages","type":"bytes[]"}],"outputs":[]}]`

var processMessageBatchMethod abi.Method

func init() {
	parsed, err := abi.JSON(strings.NewReader(processMessageBatchABI))
	if err != nil {
		panic(err)
	}
	processMessageBatchMethod = parsed.Methods["processMessageBatch"]
}

// remoteDispatcher adapts internal/signer.Adapter to dispatch.RemoteDispatcher,
// signing and submitting processMessageBatch against the destination
// chain's configured gateway address (spec §4.6 path (b)).
type remoteDispatcher struct {
	registry *chainconfig.Registry
	signer   *signer.Adapter
}

func (d *remoteDispatcher) DispatchBatch(ctx context.Context, destChain uint32, messages [][]byte) (common.Hash, error) {
	if d.signer == nil {
		return common.Hash{}, fmt.Errorf("remote dispatch: no signing adapter configured")
	}
	chain, err := d.registry.Get(destChain)
	if err != nil {
		return common.Hash{}, err
	}

	packedMessages := make([][]byte, len(messages))
	copy(packedMessages, messages)

	raw, err := d.signer.SignAndBuild(ctx, destChain, common.Address(chain.GatewayAddr), processMessageBatchMethod,
		[]interface{}{packedMessages}, signer.Options{GasLimit: 500000})
	if err != nil {
		return common.Hash{}, fmt.Errorf("remote dispatch: build processMessageBatch tx: %w", err)
	}
	return d.signer.Submit(ctx, destChain, raw)
}
