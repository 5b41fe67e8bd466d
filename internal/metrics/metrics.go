// Package metrics exposes the relay's Prometheus collectors: aggregation
// round outcomes, dispatch counts, and liquidity-gate rejections, mounted
// at /metrics inside internal/adminsrv. Grounded on the teacher's
// HealthLogger (core/system_health_logging.go): an owned prometheus.Registry
// rather than the global default, so tests can spin up independent
// collectors without collisions.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns every gauge/counter the relay records.
type Collector struct {
	registry *prometheus.Registry

	roundsCommitted *prometheus.CounterVec
	roundsFailed    *prometheus.CounterVec
	committedBlock  *prometheus.GaugeVec

	dispatchTotal *prometheus.CounterVec

	liquidityRejections prometheus.Counter
}

// New returns a Collector backed by a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		roundsCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omnic_relay_rounds_committed_total",
			Help: "Aggregation rounds that reached a Byzantine-agreement commit, by flow and chain.",
		}, []string{"flow", "chain"}),
		roundsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omnic_relay_rounds_failed_total",
			Help: "Aggregation rounds that resolved to the failure sentinel, by flow and chain.",
		}, []string{"flow", "chain"}),
		committedBlock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "omnic_relay_committed_block",
			Help: "Most recently committed block cursor, by chain.",
		}, []string{"chain"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omnic_relay_dispatch_total",
			Help: "Dispatched messages, by target (local/remote) and outcome (ok/error).",
		}, []string{"target", "outcome"}),
		liquidityRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "omnic_relay_liquidity_rejections_total",
			Help: "Bridge operations rejected with InsufficientLiquidity.",
		}),
	}

	reg.MustRegister(
		c.roundsCommitted,
		c.roundsFailed,
		c.committedBlock,
		c.dispatchTotal,
		c.liquidityRejections,
	)
	return c
}

// Handler returns the HTTP handler serving this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveRoundCommitted records a committed aggregation round.
func (c *Collector) ObserveRoundCommitted(flow string, chainID uint32) {
	c.roundsCommitted.WithLabelValues(flow, strconv.FormatUint(uint64(chainID), 10)).Inc()
}

// ObserveRoundFailed records a failed aggregation round.
func (c *Collector) ObserveRoundFailed(flow string, chainID uint32) {
	c.roundsFailed.WithLabelValues(flow, strconv.FormatUint(uint64(chainID), 10)).Inc()
}

// SetCommittedBlock records the current committed-block cursor for chainID.
func (c *Collector) SetCommittedBlock(chainID uint32, block uint64) {
	c.committedBlock.WithLabelValues(strconv.FormatUint(uint64(chainID), 10)).Set(float64(block))
}

// ObserveDispatch records one dispatch attempt's outcome. target is "local"
// or "remote"; ok distinguishes success from DispatchFailed.
func (c *Collector) ObserveDispatch(target string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	c.dispatchTotal.WithLabelValues(target, outcome).Inc()
}

// ObserveLiquidityRejection records one InsufficientLiquidity rejection.
func (c *Collector) ObserveLiquidityRejection() {
	c.liquidityRejections.Inc()
}
