package rpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// getLatestRootABI is the fixed gateway read named in spec §6:
// "function getLatestRoot(uint256 height) view returns (bytes32)".
const getLatestRootABI = `[{"type":"function","name":"getLatestRoot","inputs":[{"name":"height","type":"uint256"}],"outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view"}]`

var getLatestRootMethod abi.Method

func init() {
	parsed, err := abi.JSON(newJSONReader(getLatestRootABI))
	if err != nil {
		panic(err)
	}
	getLatestRootMethod = parsed.Methods["getLatestRoot"]
}

// EthProvider is the production Provider, backed by a single go-ethereum
// JSON-RPC client (spec §1: "the HTTP transport to RPC providers, treated
// as a best-effort request/response oracle"). One instance is bound to one
// configured RPC URL; the aggregator owns fan-out across a chain's URL
// list.
type EthProvider struct {
	url    string
	client *ethclient.Client
}

// DialEthProvider connects to url lazily validated JSON-RPC endpoint.
func DialEthProvider(ctx context.Context, url string) (*EthProvider, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return &EthProvider{url: url, client: client}, nil
}

// URL implements Provider.
func (p *EthProvider) URL() string { return p.url }

// BlockNumber implements Provider.
func (p *EthProvider) BlockNumber(ctx context.Context) (uint64, error) {
	return p.client.BlockNumber(ctx)
}

// FilterLogs implements Provider, querying every log emitted by gatewayAddr
// over an inclusive block range; no topic filter is applied.
func (p *EthProvider) FilterLogs(ctx context.Context, gatewayAddr [20]byte, fromBlock, toBlock uint64) ([]Log, error) {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{common.Address(gatewayAddr)},
	}
	return p.client.FilterLogs(ctx, q)
}

// GetLatestRoot implements Provider via an eth_call against the gateway's
// getLatestRoot(height) method.
func (p *EthProvider) GetLatestRoot(ctx context.Context, gatewayAddr [20]byte, height uint64) ([32]byte, error) {
	data, err := getLatestRootMethod.Inputs.Pack(new(big.Int).SetUint64(height))
	if err != nil {
		return [32]byte{}, err
	}
	callData := append(append([]byte{}, getLatestRootMethod.ID...), data...)
	addr := common.Address(gatewayAddr)
	out, err := p.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: callData}, nil)
	if err != nil {
		return [32]byte{}, err
	}
	var root [32]byte
	copy(root[:], out)
	return root, nil
}

// NonceAt implements Provider.
func (p *EthProvider) NonceAt(ctx context.Context, account [20]byte) (uint64, error) {
	return p.client.PendingNonceAt(ctx, common.Address(account))
}

// GasPrice implements Provider.
func (p *EthProvider) GasPrice(ctx context.Context) (*big.Int, error) {
	return p.client.SuggestGasPrice(ctx)
}

// SendRawTransaction implements Provider. raw is an RLP-encoded signed
// transaction, as produced by internal/signer.Adapter.SignAndBuild.
func (p *EthProvider) SendRawTransaction(ctx context.Context, raw []byte) ([32]byte, error) {
	tx, err := decodeRawTx(raw)
	if err != nil {
		return [32]byte{}, err
	}
	if err := p.client.SendTransaction(ctx, tx); err != nil {
		return [32]byte{}, err
	}
	return tx.Hash(), nil
}

var _ Provider = (*EthProvider)(nil)
