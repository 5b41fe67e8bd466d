package adminsrv

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rocklabs-io/omnic-relay/internal/aggregator"
	"github.com/rocklabs-io/omnic-relay/internal/audit"
	"github.com/rocklabs-io/omnic-relay/internal/chainconfig"
	"github.com/rocklabs-io/omnic-relay/internal/dispatch"
	"github.com/rocklabs-io/omnic-relay/internal/merkle"
	"github.com/rocklabs-io/omnic-relay/internal/message"
	"github.com/rocklabs-io/omnic-relay/internal/metrics"
	"github.com/rocklabs-io/omnic-relay/internal/rpc"
	"github.com/rocklabs-io/omnic-relay/internal/scheduler"
	"github.com/rocklabs-io/omnic-relay/internal/store"
)

type fakeLocalHandler struct{ called bool }

func (h *fakeLocalHandler) HandleMessage(ctx context.Context, origin uint32, nonce uint64, sender [32]byte, body []byte) error {
	h.called = true
	return nil
}

type fakeRemoteDispatcher struct{ called bool }

func (d *fakeRemoteDispatcher) DispatchBatch(ctx context.Context, destChain uint32, messages [][]byte) (common.Hash, error) {
	d.called = true
	return common.Hash{0xAB}, nil
}

type fakeRPCProvider struct{ url string }

func (p *fakeRPCProvider) URL() string { return p.url }
func (p *fakeRPCProvider) BlockNumber(ctx context.Context) (uint64, error) {
	return 100, nil
}
func (p *fakeRPCProvider) FilterLogs(ctx context.Context, gatewayAddr [20]byte, from, to uint64) ([]rpc.Log, error) {
	return nil, nil
}
func (p *fakeRPCProvider) GetLatestRoot(ctx context.Context, gatewayAddr [20]byte, height uint64) ([32]byte, error) {
	return [32]byte{}, nil
}
func (p *fakeRPCProvider) NonceAt(ctx context.Context, account [20]byte) (uint64, error) {
	return 7, nil
}
func (p *fakeRPCProvider) GasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(42), nil
}
func (p *fakeRPCProvider) SendRawTransaction(ctx context.Context, raw []byte) ([32]byte, error) {
	return [32]byte{0x01, 0x02}, nil
}

type testHarness struct {
	srv      *Server
	router   http.Handler
	roots    *store.RootStore
	handler  *fakeLocalHandler
	remote   *fakeRemoteDispatcher
	registry *chainconfig.Registry
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	registry := chainconfig.NewRegistry()
	if err := registry.AddChain(chainconfig.Chain{
		ChainID: 1, RPCURLs: []string{"u0"}, BatchSize: 100, ConfirmationDepth: 1,
	}); err != nil {
		t.Fatalf("add chain: %v", err)
	}

	roots := store.NewRootStore(0)
	locals := dispatch.MapRegistry{}
	handler := &fakeLocalHandler{}
	locals[message.LocalRecipient(recipientFor(handler))] = handler
	remote := &fakeRemoteDispatcher{}

	rootsFn := func(chainID uint32) (*store.RootStore, bool) {
		if chainID == 1 {
			return roots, true
		}
		return nil, false
	}
	core := dispatch.New(rootsFn, locals, remote, 1800, func() int64 { return 0 }, nil)

	tunables := aggregator.NewTunables(3, 2)
	sched := scheduler.NewGroup()
	am := audit.NewManager("root", func() int64 { return 0 })
	m := metrics.New()
	providers := func(chainID uint32) rpc.Provider { return &fakeRPCProvider{url: "u0"} }

	srv := New(registry, tunables, sched, core, rootsFn, am, m, providers, nil, nil)

	return &testHarness{srv: srv, router: srv.Router(), roots: roots, handler: handler, remote: remote, registry: registry}
}

// recipientFor places a stable, nonzero local-handle in the low 10 bytes of
// a 32-byte recipient blob, matching message.LocalRecipient's convention.
func recipientFor(_ *fakeLocalHandler) [32]byte {
	var r [32]byte
	r[31] = 0x09
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path string, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller != "" {
		req.Header.Set(callerHeader, caller)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAddChainRequiresOwner(t *testing.T) {
	h := newHarness(t)
	rec := doRequest(t, h.router, http.MethodPost, "/chains/", "mallory", addChainRequest{
		ChainID: 2, RPCURLs: []string{"u1"}, GatewayAddr: hex.EncodeToString(make([]byte, 20)),
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestAddChainSucceedsForOwnerAndRecordsAudit(t *testing.T) {
	h := newHarness(t)
	rec := doRequest(t, h.router, http.MethodPost, "/chains/", "root", addChainRequest{
		ChainID: 2, RPCURLs: []string{"u1"}, GatewayAddr: hex.EncodeToString(make([]byte, 20)), StartBlock: 5,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}
	if h.srv.Audit.Records.Size(nil) != 1 {
		t.Fatalf("expected one audit record, got %d", h.srv.Audit.Records.Size(nil))
	}
}

func TestAddOwnerThenNewOwnerCanAct(t *testing.T) {
	h := newHarness(t)
	rec := doRequest(t, h.router, http.MethodPost, "/owners/", "root", map[string]string{"pid": "alice"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("add_owner status = %d, want 204", rec.Code)
	}
	rec = doRequest(t, h.router, http.MethodPost, "/chains/", "alice", addChainRequest{
		ChainID: 3, RPCURLs: []string{"u2"}, GatewayAddr: hex.EncodeToString(make([]byte, 20)),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected new owner to add a chain, status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSetRPCNumberUpdatesTunables(t *testing.T) {
	h := newHarness(t)
	rec := doRequest(t, h.router, http.MethodPost, "/tunables/rpc-number", "root", map[string]int{"n": 9})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if h.srv.Tunables.QueryRPCNumber() != 9 {
		t.Fatalf("query rpc number = %d, want 9", h.srv.Tunables.QueryRPCNumber())
	}
}

func TestGetTxCountAndGasPricePassThroughProvider(t *testing.T) {
	h := newHarness(t)
	addr := hex.EncodeToString(make([]byte, 20))

	rec := doRequest(t, h.router, http.MethodGet, "/chains/1/tx-count/"+addr, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tx-count status = %d", rec.Code)
	}
	var txResp map[string]uint64
	if err := json.Unmarshal(rec.Body.Bytes(), &txResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if txResp["tx_count"] != 7 {
		t.Fatalf("tx_count = %d, want 7", txResp["tx_count"])
	}

	rec = doRequest(t, h.router, http.MethodGet, "/chains/1/gas-price", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("gas-price status = %d", rec.Code)
	}
}

func TestProcessMessageDispatchesLocalHandler(t *testing.T) {
	h := newHarness(t)

	msg := message.Message{
		Kind: message.KindSYN, Origin: 1, Nonce: 1,
		Destination: message.LocalDestination, Recipient: recipientFor(h.handler),
		Body: []byte("hi"),
	}
	leaf := message.LeafDigest(msg)
	tree := merkle.New()
	tree.Ingest(leaf)
	root := tree.Root()
	h.roots.InsertRoot(root, 0)

	proof, err := merkle.Prove([][32]byte{leaf}, 0)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}

	req := processMessageRequest{
		OriginChain:  1,
		MessageBytes: hex.EncodeToString(message.Encode(msg)),
		Proof:        hex.EncodeToString(flattenProof(proof)),
		LeafIndex:    0,
	}
	rec := doRequest(t, h.router, http.MethodPost, "/messages/process", "root", req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("process_message status = %d, body=%s", rec.Code, rec.Body.String())
	}
	if !h.handler.called {
		t.Fatal("expected local handler to be invoked")
	}
}

func TestIsValidReflectsCommittedRoot(t *testing.T) {
	h := newHarness(t)
	msg := message.Message{Kind: message.KindSYN, Origin: 1, Destination: message.LocalDestination, Body: []byte("x")}
	leaf := message.LeafDigest(msg)
	tree := merkle.New()
	tree.Ingest(leaf)
	root := tree.Root()

	proof, err := merkle.Prove([][32]byte{leaf}, 0)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	req := processMessageRequest{
		OriginChain: 1, MessageBytes: hex.EncodeToString(message.Encode(msg)),
		Proof: hex.EncodeToString(flattenProof(proof)), LeafIndex: 0,
	}

	rec := doRequest(t, h.router, http.MethodPost, "/messages/is-valid", "", req)
	var resp map[string]bool
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["valid"] {
		t.Fatal("expected invalid before the root is committed")
	}

	h.roots.InsertRoot(root, 0)
	rec = doRequest(t, h.router, http.MethodPost, "/messages/is-valid", "", req)
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp["valid"] {
		t.Fatal("expected valid once the root is committed")
	}
}

func flattenProof(proof [merkle.Depth][32]byte) []byte {
	out := make([]byte, 0, merkle.Depth*32)
	for _, h := range proof {
		out = append(out, h[:]...)
	}
	return out
}
