package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rocklabs-io/omnic-relay/internal/adminsrv"
	"github.com/rocklabs-io/omnic-relay/internal/aggregator"
	"github.com/rocklabs-io/omnic-relay/internal/audit"
	"github.com/rocklabs-io/omnic-relay/internal/bridge"
	"github.com/rocklabs-io/omnic-relay/internal/chainconfig"
	"github.com/rocklabs-io/omnic-relay/internal/dispatch"
	"github.com/rocklabs-io/omnic-relay/internal/metrics"
	"github.com/rocklabs-io/omnic-relay/internal/rpc"
	"github.com/rocklabs-io/omnic-relay/internal/scheduler"
	"github.com/rocklabs-io/omnic-relay/internal/signer"
	"github.com/rocklabs-io/omnic-relay/pkg/config"
)

func serveCmd() *cobra.Command {
	var env string
	var initialOwner string
	var signerKeyHex string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the relay process: both aggregation flows, the bridge dispatch handler, and the admin HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(env)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := newLogger(cfg.Logging.Level)
			defer log.Sync()

			return runServe(cmd.Context(), cfg, initialOwner, signerKeyHex, log)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "environment overlay config name (RELAY_ENV)")
	cmd.Flags().StringVar(&initialOwner, "owner", "root", "initial ACL owner principal")
	cmd.Flags().StringVar(&signerKeyHex, "signer-key", os.Getenv("RELAY_SIGNER_KEY"), "hex-encoded local signing key")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, initialOwner, signerKeyHex string, log *zap.SugaredLogger) error {
	registry := chainconfig.NewRegistry()
	stores := newChainStores(cfg.Storage.RootRetention)
	clock := func() int64 { return time.Now().Unix() }

	// providerCache keeps one EthProvider per RPC URL alive for the life of
	// the process; both aggregator flows and the signer/admin point-read
	// paths share it (spec §1 treats each RPC URL as its own best-effort
	// oracle, so one dial per URL is enough).
	providerCache := map[string]*rpc.EthProvider{}
	dialProvider := func(url string) rpc.Provider {
		if p, ok := providerCache[url]; ok {
			return p
		}
		p, err := rpc.DialEthProvider(ctx, url)
		if err != nil {
			log.Errorw("dial rpc provider failed", "url", url, "error", err)
			return nil
		}
		providerCache[url] = p
		return p
	}
	// firstURLProvider resolves a destination chain to its first configured
	// RPC endpoint, for the signer adapter's single-endpoint point reads
	// and submission (spec §4.8: no majority agreement needed there).
	firstURLProvider := func(chainID uint32) rpc.Provider {
		chain, err := registry.Get(chainID)
		if err != nil || len(chain.RPCURLs) == 0 {
			return nil
		}
		return dialProvider(chain.RPCURLs[0])
	}

	var keySigner signer.KeySigner
	if signerKeyHex != "" {
		ks, err := signer.NewLocalKeySigner(signerKeyHex)
		if err != nil {
			return fmt.Errorf("load local signer key: %w", err)
		}
		keySigner = ks
	}
	var signerAdapter *signer.Adapter
	if keySigner != nil {
		signerAdapter = signer.New(keySigner, cfg.Signer.KeyName, nil, firstURLProvider)
	}

	routers := bridge.NewRouters()
	engine := bridge.New(routers, signerAdapter, log)

	m := metrics.New()
	am := audit.NewManager(initialOwner, clock)

	locals := dispatch.MapRegistry{
		bridgeHandleLow10: &bridgeHandler{engine: engine, log: log},
	}
	core := dispatch.New(stores.rootSource, locals, &remoteDispatcher{registry: registry, signer: signerAdapter}, cfg.Signer.OptimisticSecs, clock, log)

	tunables := aggregator.NewTunables(cfg.Aggregator.QueryRPCNumber, cfg.Aggregator.ConfirmBlocks)
	sched := scheduler.NewGroup()

	rootMachine := aggregator.New(aggregator.FlowRoot, registry, dialProvider, shuffleURLs, tunables, log)
	rootMachine.SetRootSink(&rootSink{stores: stores, metrics: m})
	rootMachine.SetClock(clock)

	eventMachine := aggregator.New(aggregator.FlowEvents, registry, dialProvider, shuffleURLs, tunables, log)
	eventMachine.SetEventSink(&eventSink{stores: stores, core: core, metrics: m, log: log})
	eventMachine.SetClock(clock)

	delay := time.Duration(cfg.Aggregator.FetchPeriodMS) * time.Millisecond
	if delay <= 0 {
		delay = 5 * time.Second
	}
	sched.Add("root", scheduler.NewTicker(delay, delay, func() { rootMachine.Tick(ctx) }))
	sched.Add("events", scheduler.NewTicker(delay, delay, func() { eventMachine.Tick(ctx) }))

	srv := adminsrv.New(registry, tunables, sched, core, stores.rootSource, am, m, firstURLProvider, signerAdapter, log)

	addr := cfg.Admin.ListenAddr
	if addr == "" {
		addr = ":8090"
	}
	httpServer := &http.Server{Addr: addr, Handler: srv.Router()}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("admin server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")
	}

	sched.StopAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// shuffleURLs is the identity shuffle: a real deployment may inject a
// randomized one, but a deterministic default keeps CLI output stable.
func shuffleURLs(urls []string) []string { return urls }
