package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)
	return rec.Body.String()
}

func TestCollectorRecordsRoundOutcomes(t *testing.T) {
	c := New()
	c.ObserveRoundCommitted("root", 1)
	c.ObserveRoundCommitted("root", 1)
	c.ObserveRoundFailed("events", 2)

	body := scrape(t, c)
	if !strings.Contains(body, `omnic_relay_rounds_committed_total{chain="1",flow="root"} 2`) {
		t.Fatalf("missing committed counter in output:\n%s", body)
	}
	if !strings.Contains(body, `omnic_relay_rounds_failed_total{chain="2",flow="events"} 1`) {
		t.Fatalf("missing failed counter in output:\n%s", body)
	}
}

func TestCollectorRecordsCommittedBlockGauge(t *testing.T) {
	c := New()
	c.SetCommittedBlock(7, 12345)
	body := scrape(t, c)
	if !strings.Contains(body, `omnic_relay_committed_block{chain="7"} 12345`) {
		t.Fatalf("missing committed block gauge in output:\n%s", body)
	}
}

func TestCollectorRecordsDispatchAndLiquidityRejections(t *testing.T) {
	c := New()
	c.ObserveDispatch("local", true)
	c.ObserveDispatch("remote", false)
	c.ObserveLiquidityRejection()

	body := scrape(t, c)
	if !strings.Contains(body, `omnic_relay_dispatch_total{outcome="ok",target="local"} 1`) {
		t.Fatalf("missing local ok dispatch counter:\n%s", body)
	}
	if !strings.Contains(body, `omnic_relay_dispatch_total{outcome="error",target="remote"} 1`) {
		t.Fatalf("missing remote error dispatch counter:\n%s", body)
	}
	if !strings.Contains(body, `omnic_relay_liquidity_rejections_total 1`) {
		t.Fatalf("missing liquidity rejection counter:\n%s", body)
	}
}
