package adminsrv

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocklabs-io/omnic-relay/internal/audit"
	"github.com/rocklabs-io/omnic-relay/internal/chainconfig"
	"github.com/rocklabs-io/omnic-relay/internal/merkle"
	"github.com/rocklabs-io/omnic-relay/internal/message"
)

// --- chains ---------------------------------------------------------------

type addChainRequest struct {
	ChainID         uint32   `json:"chain_id"`
	RPCURLs         []string `json:"rpc_urls"`
	GatewayAddr     string   `json:"gateway_addr"`
	StartBlock      uint64   `json:"start_block"`
	BatchSize       uint64   `json:"batch_size"`
	ConfirmationDep uint64   `json:"confirmation_depth"`
}

func (s *Server) handleAddChain(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	if err := s.Audit.Authorize(c); err != nil {
		writeError(w, err)
		return
	}
	var req addChainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	gw, err := decodeHexAddr20(req.GatewayAddr)
	if err != nil {
		writeError(w, err)
		return
	}
	batchSize := req.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}
	confirm := req.ConfirmationDep
	if confirm == 0 {
		confirm = s.Tunables.ConfirmBlocks()
	}
	chain := chainconfig.Chain{
		ChainID:           req.ChainID,
		RPCURLs:           req.RPCURLs,
		GatewayAddr:       gw,
		DeploymentBlock:   req.StartBlock,
		CommittedBlock:    req.StartBlock,
		BatchSize:         batchSize,
		ConfirmationDepth: confirm,
	}
	if err := s.Chains.AddChain(chain); err != nil {
		writeError(w, err)
		return
	}
	s.Audit.Record(c, "add_chain", audit.NewDetailsBuilder().Insert("chain_id", req.ChainID).Build())
	writeJSON(w, http.StatusCreated, chain)
}

func (s *Server) handleListChains(w http.ResponseWriter, r *http.Request) {
	ids := s.Chains.ChainIDs()
	out := make([]chainconfig.Chain, 0, len(ids))
	for _, id := range ids {
		c, err := s.Chains.Get(id)
		if err == nil {
			out = append(out, c)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateChain(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	if err := s.Audit.Authorize(c); err != nil {
		writeError(w, err)
		return
	}
	chainID, err := parseChainID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req addChainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	gw, err := decodeHexAddr20(req.GatewayAddr)
	if err != nil {
		writeError(w, err)
		return
	}
	existing, err := s.Chains.Get(chainID)
	if err != nil {
		writeError(w, err)
		return
	}
	existing.RPCURLs = req.RPCURLs
	existing.GatewayAddr = gw
	if req.BatchSize > 0 {
		existing.BatchSize = req.BatchSize
	}
	if req.ConfirmationDep > 0 {
		existing.ConfirmationDepth = req.ConfirmationDep
	}
	if err := s.Chains.UpdateChain(existing); err != nil {
		writeError(w, err)
		return
	}
	s.Audit.Record(c, "update_chain", audit.NewDetailsBuilder().Insert("chain_id", chainID).Build())
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) handleDeleteChain(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	if err := s.Audit.Authorize(c); err != nil {
		writeError(w, err)
		return
	}
	chainID, err := parseChainID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Chains.DeleteChain(chainID); err != nil {
		writeError(w, err)
		return
	}
	s.Audit.Record(c, "delete_chain", audit.NewDetailsBuilder().Insert("chain_id", chainID).Build())
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleAddURLs(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	if err := s.Audit.Authorize(c); err != nil {
		writeError(w, err)
		return
	}
	chainID, err := parseChainID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Chains.AddURLs(chainID, req.URLs); err != nil {
		writeError(w, err)
		return
	}
	s.Audit.Record(c, "add_urls", audit.NewDetailsBuilder().Insert("chain_id", chainID).Insert("count", len(req.URLs)).Build())
	writeJSON(w, http.StatusNoContent, nil)
}

// --- owners -----------------------------------------------------------------

func (s *Server) handleAddOwner(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	var req struct {
		PID string `json:"pid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Audit.Owners.Add(c, req.PID); err != nil {
		writeError(w, err)
		return
	}
	s.Audit.Record(c, "add_owner", audit.NewDetailsBuilder().Insert("pid", req.PID).Build())
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRemoveOwner(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	pid := chi.URLParam(r, "pid")
	if err := s.Audit.Owners.Remove(c, pid); err != nil {
		writeError(w, err)
		return
	}
	s.Audit.Record(c, "remove_owner", audit.NewDetailsBuilder().Insert("pid", pid).Build())
	writeJSON(w, http.StatusNoContent, nil)
}

// --- scheduler / tunables ----------------------------------------------------

func (s *Server) handleSetFetchPeriod(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	if err := s.Audit.Authorize(c); err != nil {
		writeError(w, err)
		return
	}
	flow := chi.URLParam(r, "flow")
	var req struct {
		DelaySeconds    int64 `json:"delay_seconds"`
		IntervalSeconds int64 `json:"interval_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Schedule.SetPeriod(flow, req.DelaySeconds, req.IntervalSeconds); err != nil {
		writeError(w, err)
		return
	}
	s.Audit.Record(c, "set_fetch_period", audit.NewDetailsBuilder().
		Insert("flow", flow).Insert("delay_seconds", req.DelaySeconds).Insert("interval_seconds", req.IntervalSeconds).Build())
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleSetConfirmBlock(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	if err := s.Audit.Authorize(c); err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		N uint64 `json:"n"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	s.Tunables.SetConfirmBlocks(req.N)
	s.Audit.Record(c, "set_confirm_block", audit.NewDetailsBuilder().Insert("n", req.N).Build())
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleSetRPCNumber(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	if err := s.Audit.Authorize(c); err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		N int `json:"n"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	s.Tunables.SetQueryRPCNumber(req.N)
	s.Audit.Record(c, "set_rpc_number", audit.NewDetailsBuilder().Insert("n", req.N).Build())
	writeJSON(w, http.StatusNoContent, nil)
}

// --- chain RPC passthroughs (single-endpoint point reads, spec §4.8) --------

func (s *Server) handleGetTxCount(w http.ResponseWriter, r *http.Request) {
	chainID, err := parseChainID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	addr, err := decodeHexAddr20(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, err)
		return
	}
	provider := s.Providers(chainID)
	if provider == nil {
		writeError(w, chainconfigUnknownChain(chainID))
		return
	}
	n, err := provider.NonceAt(r.Context(), addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"tx_count": n})
}

func (s *Server) handleGetGasPrice(w http.ResponseWriter, r *http.Request) {
	chainID, err := parseChainID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	provider := s.Providers(chainID)
	if provider == nil {
		writeError(w, chainconfigUnknownChain(chainID))
		return
	}
	price, err := provider.GasPrice(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"gas_price": price.String()})
}

func (s *Server) handleSendRawTx(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	if err := s.Audit.Authorize(c); err != nil {
		writeError(w, err)
		return
	}
	chainID, err := parseChainID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		RawTx string `json:"raw_tx"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	raw, err := hex.DecodeString(trimHexPrefix(req.RawTx))
	if err != nil {
		writeError(w, err)
		return
	}
	provider := s.Providers(chainID)
	if provider == nil {
		writeError(w, chainconfigUnknownChain(chainID))
		return
	}
	hash, err := provider.SendRawTransaction(r.Context(), raw)
	if err != nil {
		writeError(w, err)
		return
	}
	s.Audit.Record(c, "send_raw_tx", audit.NewDetailsBuilder().Insert("chain_id", chainID).Insert("tx_hash", hex.EncodeToString(hash[:])).Build())
	writeJSON(w, http.StatusOK, map[string]string{"tx_hash": hex.EncodeToString(hash[:])})
}

func (s *Server) handleGetLatestRoot(w http.ResponseWriter, r *http.Request) {
	chainID, err := parseChainID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	root, ok := s.rootOf(chainID)
	if !ok {
		writeError(w, chainconfigUnknownChain(chainID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"root": hex.EncodeToString(root[:])})
}

// --- messages ----------------------------------------------------------------

type processMessageRequest struct {
	OriginChain    uint32 `json:"origin_chain"`
	MessageBytes   string `json:"message_bytes"`
	Proof          string `json:"proof"`
	LeafIndex      uint64 `json:"leaf_index"`
	WaitOptimistic bool   `json:"wait_optimistic"`
}

func (req processMessageRequest) decode() ([]byte, [merkle.Depth][32]byte, error) {
	body, err := hex.DecodeString(trimHexPrefix(req.MessageBytes))
	if err != nil {
		return nil, [merkle.Depth][32]byte{}, err
	}
	proof, err := decodeProof(req.Proof)
	return body, proof, err
}

func (s *Server) handleIsValid(w http.ResponseWriter, r *http.Request) {
	var req processMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	body, proof, err := req.decode()
	if err != nil {
		writeError(w, err)
		return
	}
	ok, err := s.Dispatch.IsValid(req.OriginChain, body, proof, req.LeafIndex, req.WaitOptimistic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

func (s *Server) handleProcessMessage(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	var req processMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	body, proof, err := req.decode()
	if err != nil {
		writeError(w, err)
		return
	}
	err = s.Dispatch.ProcessMessage(r.Context(), req.OriginChain, body, proof, req.LeafIndex, req.WaitOptimistic)

	target := "remote"
	if msg, decErr := message.Decode(body); decErr == nil && msg.Destination == message.LocalDestination {
		target = "local"
	}
	s.Audit.Record(c, "process_message", audit.NewDetailsBuilder().
		Insert("origin_chain", req.OriginChain).Insert("leaf_index", req.LeafIndex).Build())
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.ObserveDispatch(target, false)
		}
		writeError(w, err)
		return
	}
	if s.Metrics != nil {
		s.Metrics.ObserveDispatch(target, true)
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- logs / records ------------------------------------------------------------

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Audit.Logs.All())
}

func (s *Server) handleGetRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var opPtr *string
	if op := q.Get("op"); op != "" {
		opPtr = &op
	}
	var rngPtr *[2]int
	if from := q.Get("from"); from != "" {
		to := q.Get("to")
		var f, t int
		if _, err := parseQueryInt(from, &f); err == nil {
			if _, err := parseQueryInt(to, &t); err == nil {
				rngPtr = &[2]int{f, t}
			}
		}
	}
	writeJSON(w, http.StatusOK, s.Audit.Records.Query(rngPtr, opPtr))
}
