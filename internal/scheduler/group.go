package scheduler

import (
	"fmt"
	"sync"
	"time"
)

func secondsToDuration(s int64) time.Duration {
	return time.Duration(s) * time.Second
}

// Group is a named collection of Tickers, one per aggregation flow. The
// admin surface's set_fetch_period(a, b) operation (spec §6) addresses a
// flow by name without the caller needing to hold the Ticker itself.
type Group struct {
	mu      sync.RWMutex
	tickers map[string]*Ticker
}

// NewGroup returns an empty Group.
func NewGroup() *Group {
	return &Group{tickers: make(map[string]*Ticker)}
}

// Add registers a ticker under name and starts it immediately. Re-adding an
// existing name stops and replaces the prior ticker.
func (g *Group) Add(name string, t *Ticker) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if old, ok := g.tickers[name]; ok {
		old.Stop()
	}
	g.tickers[name] = t
	t.Start()
}

// SetPeriod reconfigures the named ticker's delay/interval by restarting it
// with the new schedule.
func (g *Group) SetPeriod(name string, delaySeconds, intervalSeconds int64) error {
	g.mu.RLock()
	t, ok := g.tickers[name]
	g.mu.RUnlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown ticker %q", name)
	}
	t.Stop()
	t.SetPeriod(secondsToDuration(delaySeconds), secondsToDuration(intervalSeconds))
	t.Start()
	return nil
}

// StopAll stops every ticker in the group.
func (g *Group) StopAll() {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, t := range g.tickers {
		t.Stop()
	}
}
