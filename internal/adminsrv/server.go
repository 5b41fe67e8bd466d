// Package adminsrv is the relay's admin/control HTTP surface: the spec §6
// "typed RPC surface (candid-style tagged, arbitrary transport)" realized
// over chi, mirroring the teacher's cmd/xchainserver/server package
// (routes.go/handlers.go/middleware.go) but rebuilt on go-chi/chi instead
// of gorilla/mux. Every mutating operation is ACL-gated through
// internal/audit.Manager; Unauthorized callers get 403 with no side
// effects.
package adminsrv

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rocklabs-io/omnic-relay/internal/aggregator"
	"github.com/rocklabs-io/omnic-relay/internal/audit"
	"github.com/rocklabs-io/omnic-relay/internal/chainconfig"
	"github.com/rocklabs-io/omnic-relay/internal/dispatch"
	"github.com/rocklabs-io/omnic-relay/internal/merkle"
	"github.com/rocklabs-io/omnic-relay/internal/metrics"
	"github.com/rocklabs-io/omnic-relay/internal/rpc"
	"github.com/rocklabs-io/omnic-relay/internal/scheduler"
	"github.com/rocklabs-io/omnic-relay/internal/signer"
)

// callerHeader names the caller identity on every request. The spec's
// candid surface carries an authenticated principal per call; over plain
// HTTP this is the closest analogue without inventing a full auth scheme.
const callerHeader = "X-Relay-Caller"

// Server wires every internal package the admin surface fronts.
type Server struct {
	log *zap.SugaredLogger

	Chains    *chainconfig.Registry
	Tunables  *aggregator.Tunables
	Schedule  *scheduler.Group
	Dispatch  *dispatch.Core
	Roots     dispatch.RootSource
	Audit     *audit.Manager
	Metrics   *metrics.Collector
	Providers func(chainID uint32) rpc.Provider
	Signer    *signer.Adapter
}

// New returns an admin server. Every dependency is required except Signer,
// which may be nil in relay-only (no bridge signing) deployments.
func New(chains *chainconfig.Registry, tunables *aggregator.Tunables, sched *scheduler.Group, disp *dispatch.Core, roots dispatch.RootSource, am *audit.Manager, m *metrics.Collector, providers func(chainID uint32) rpc.Provider, sgn *signer.Adapter, log *zap.SugaredLogger) *Server {
	return &Server{
		log:       log,
		Chains:    chains,
		Tunables:  tunables,
		Schedule:  sched,
		Dispatch:  disp,
		Roots:     roots,
		Audit:     am,
		Metrics:   m,
		Providers: providers,
		Signer:    sgn,
	}
}

// Router builds the chi mux exposing every admin operation, plus /metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", s.Metrics.Handler())

	r.Route("/chains", func(r chi.Router) {
		r.Post("/", s.handleAddChain)
		r.Get("/", s.handleListChains)
		r.Route("/{chainID}", func(r chi.Router) {
			r.Put("/", s.handleUpdateChain)
			r.Delete("/", s.handleDeleteChain)
			r.Post("/urls", s.handleAddURLs)
			r.Get("/latest-root", s.handleGetLatestRoot)
			r.Get("/gas-price", s.handleGetGasPrice)
			r.Get("/tx-count/{addr}", s.handleGetTxCount)
			r.Post("/raw-tx", s.handleSendRawTx)
		})
	})

	r.Route("/owners", func(r chi.Router) {
		r.Post("/", s.handleAddOwner)
		r.Delete("/{pid}", s.handleRemoveOwner)
	})

	r.Route("/schedule", func(r chi.Router) {
		r.Post("/{flow}", s.handleSetFetchPeriod)
	})

	r.Route("/tunables", func(r chi.Router) {
		r.Post("/confirm-block", s.handleSetConfirmBlock)
		r.Post("/rpc-number", s.handleSetRPCNumber)
	})

	r.Route("/messages", func(r chi.Router) {
		r.Post("/process", s.handleProcessMessage)
		r.Post("/is-valid", s.handleIsValid)
	})

	r.Get("/logs", s.handleGetLogs)
	r.Get("/records", s.handleGetRecords)

	return r
}

func caller(r *http.Request) string {
	if c := r.Header.Get(callerHeader); c != "" {
		return c
	}
	return "anonymous"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, audit.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, chainconfig.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, chainconfig.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, dispatch.ErrValidationFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, dispatch.ErrDispatchFailed):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func parseChainID(r *http.Request) (uint32, error) {
	raw := chi.URLParam(r, "chainID")
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.New("adminsrv: invalid chain id")
	}
	return uint32(n), nil
}

func decodeHexAddr20(s string) ([20]byte, error) {
	var out [20]byte
	b, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil || len(b) != 20 {
		return out, errors.New("adminsrv: expected a 20-byte hex address")
	}
	copy(out[:], b)
	return out, nil
}

func decodeHexBytes32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil || len(b) != 32 {
		return out, errors.New("adminsrv: expected a 32-byte hex value")
	}
	copy(out[:], b)
	return out, nil
}

func decodeProof(s string) ([merkle.Depth][32]byte, error) {
	var proof [merkle.Depth][32]byte
	b, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil || len(b) != merkle.Depth*32 {
		return proof, errors.New("adminsrv: expected a 1024-byte (32x32) hex proof")
	}
	for i := 0; i < merkle.Depth; i++ {
		copy(proof[i][:], b[i*32:(i+1)*32])
	}
	return proof, nil
}

func (s *Server) rootOf(chainID uint32) ([32]byte, bool) {
	rs, ok := s.Roots(chainID)
	if !ok {
		return [32]byte{}, false
	}
	root, err := rs.LatestRoot()
	if err != nil {
		return [32]byte{}, false
	}
	return root, true
}

func chainconfigUnknownChain(chainID uint32) error {
	return fmt.Errorf("%w: chain %d", chainconfig.ErrNotFound, chainID)
}

func parseQueryInt(s string, out *int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	*out = n
	return n, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
