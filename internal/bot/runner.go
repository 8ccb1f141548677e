// internal/bot/runner.go
package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/aave-liquidator/internal/api"
	"github.com/rovshanmuradov/aave-liquidator/internal/blockchain"
	"github.com/rovshanmuradov/aave-liquidator/internal/blockchain/rpc"
	"github.com/rovshanmuradov/aave-liquidator/internal/config"
	"github.com/rovshanmuradov/aave-liquidator/internal/enrich"
	"github.com/rovshanmuradov/aave-liquidator/internal/events"
	"github.com/rovshanmuradov/aave-liquidator/internal/export"
	"github.com/rovshanmuradov/aave-liquidator/internal/feed"
	"github.com/rovshanmuradov/aave-liquidator/internal/reserves"
	"github.com/rovshanmuradov/aave-liquidator/internal/scout"
	"github.com/rovshanmuradov/aave-liquidator/internal/utils/logger"
	"github.com/rovshanmuradov/aave-liquidator/internal/utils/metrics"
)

// Mode selects how the runner drives the pipeline.
type Mode string

const (
	// ModeOnce runs a single cycle and exports the list.
	ModeOnce Mode = "once"
	// ModeWatch keeps the follow-up chain running and logs every list.
	ModeWatch Mode = "watch"
	// ModeServe is watch plus the HTTP API.
	ModeServe Mode = "serve"

	eventBufferSize = 64
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeOnce, ModeWatch, ModeServe:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q (want once, watch or serve)", s)
}

type Runner struct {
	log        *logger.Logger
	logger     *zap.Logger
	config     *config.Config
	registry   *prometheus.Registry
	metrics    *metrics.Collector
	bus        *events.Bus
	service    *scout.Service
	shutdown   *ShutdownHandler
	shutdownCh chan os.Signal
	export     export.ExportOptions
	out        io.Writer
}

// NewRunner принимает cfg и logger
func NewRunner(cfg *config.Config, log *logger.Logger) *Runner {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Runner{
		log:        log,
		logger:     log.WithComponent("runner"),
		config:     cfg,
		registry:   registry,
		metrics:    metrics.NewCollector(registry),
		shutdown:   NewShutdownHandler(log.Logger, 0),
		shutdownCh: make(chan os.Signal, 1),
		export:     export.ExportOptions{Format: export.FormatJSON},
		out:        os.Stdout,
	}
}

// SetExport configures what once mode writes and where.
func (r *Runner) SetExport(opts export.ExportOptions) {
	r.export = opts
}

// Initialize dials the RPC endpoints and assembles the pipeline.
func (r *Runner) Initialize(ctx context.Context) error {
	pool, err := rpc.DialPool(ctx, r.config.RPCList, r.metrics, r.log.Logger)
	if err != nil {
		return fmt.Errorf("rpc pool: %w", err)
	}
	r.shutdown.Add("rpc_pool", pool)

	r.logger.Info("🔗 RPC pool ready",
		zap.Int("nodes", pool.Size()),
		zap.Strings("rpc", r.config.GetMaskedRPCList()))

	var liquidator scout.Liquidator
	if r.config.LiquidationEnabled() {
		l, err := r.dialLiquidator(ctx)
		if err != nil {
			return fmt.Errorf("liquidator: %w", err)
		}
		liquidator = l
	}

	return r.assemble(pool, liquidator)
}

// dialLiquidator connects the transaction backend and the external signer.
func (r *Runner) dialLiquidator(ctx context.Context) (*blockchain.Liquidator, error) {
	ec, err := rpc.DialBackend(ctx, r.config.RPCList)
	if err != nil {
		return nil, err
	}
	r.shutdown.AddFunc("tx_backend", func() error {
		ec.Close()
		return nil
	})

	chainID, err := ec.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	signer, err := blockchain.DialExternalSigner(r.config.SignerURL, chainID)
	if err != nil {
		return nil, err
	}

	_, _, from := r.config.Addresses()
	l, err := blockchain.NewLiquidator(ec, blockchain.LiquidatorConfig{
		Contract: common.HexToAddress(r.config.LiquidatorContract),
		From:     from,
		GasPrice: r.config.GasPrice(),
		Signer:   signer.SignerFn(),
	}, r.log.Logger)
	if err != nil {
		return nil, err
	}

	r.logger.Info("💸 Liquidator ready",
		zap.String("contract", r.config.LiquidatorContract),
		zap.String("from", from.Hex()),
		zap.Stringer("chain_id", chainID),
		zap.Int64("gas_price_gwei", r.config.GasPriceGwei))
	return l, nil
}

// assemble wires the pipeline on top of caller. Closers are registered in
// dependency order so shutdown stops the scheduler before the bus.
// liquidator may be nil.
func (r *Runner) assemble(caller blockchain.Caller, liquidator scout.Liquidator) error {
	liquidation, lendingPool, from := r.config.Addresses()
	chain, err := blockchain.NewClient(caller, blockchain.Config{
		LiquidationContract: liquidation,
		LendingPool:         lendingPool,
		From:                from,
	}, r.log.Logger)
	if err != nil {
		return err
	}

	fetcher := feed.NewFetcher(feed.Config{
		URL:          r.config.ListingURL,
		NativeSymbol: r.config.NativeSymbol,
		Timeout:      r.config.FetchTimeout,
	}, &http.Client{}, r.log.Logger)

	policy := enrich.AllOrNothing
	if r.config.IsolateFailures {
		policy = enrich.Isolate
	}
	enricher := enrich.NewEnricher(chain, enrich.Config{
		Workers:     r.config.Workers,
		CallTimeout: r.config.CallTimeout,
		Policy:      policy,
	}, r.log.Logger)

	r.bus = events.NewBus(r.log.Logger, eventBufferSize)
	r.shutdown.AddFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return r.bus.Shutdown(ctx)
	})

	rep := newReporter(reserves.Mainnet, r.log.Logger)
	r.bus.Subscribe(events.CandidatesReturned, rep)
	r.bus.Subscribe(events.RefreshReturned, rep)
	r.bus.Subscribe(events.CycleFailed, rep)
	r.bus.Subscribe(events.LiquidationSubmitted, rep)

	r.service = scout.NewService(&scout.ServiceConfig{
		Logger:       r.log.Logger,
		Fetcher:      fetcher,
		Enricher:     enricher,
		Chain:        chain,
		Liquidator:   liquidator,
		Publisher:    r.bus,
		Metrics:      r.metrics,
		RefreshDelay: r.config.RefreshDelay,
		CallTimeout:  r.config.CallTimeout,
	})
	r.shutdown.Add("scout", r.service)

	r.logger.Info("🚀 Pipeline assembled",
		zap.String("listing_url", r.config.ListingURL),
		zap.Int("workers", r.config.Workers),
		zap.Stringer("policy", policy),
		zap.Duration("refresh_delay", r.config.RefreshDelay))
	return nil
}

// Run drives the pipeline in the given mode until it finishes or a signal arrives.
func (r *Runner) Run(ctx context.Context, mode Mode) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(r.shutdownCh)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("📡 Signal received: " + sig.String())
			cancel()
		case <-runCtx.Done():
		}
	}()

	switch mode {
	case ModeOnce:
		return r.runOnce(runCtx)
	case ModeWatch:
		return NewWatcher(r.service, r.bus, r.config.Retries, r.log.Logger).Run(runCtx)
	case ModeServe:
		return r.runServe(runCtx)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func (r *Runner) runOnce(ctx context.Context) error {
	defer r.log.TrackPerformance("once")()

	candidates, err := r.service.RefreshCandidates(ctx)
	if err != nil {
		return err
	}

	exporter := export.NewCandidateExporter(reserves.Mainnet, r.log.Logger)
	if r.export.OutputDir != "" {
		_, err = exporter.ExportToFile(candidates, r.export)
		return err
	}
	_, err = exporter.Write(r.out, candidates, r.export)
	return err
}

func (r *Runner) runServe(ctx context.Context) error {
	handler, err := api.New(api.Config{
		Scout:    r.service,
		Events:   r.bus,
		Reserves: reserves.Mainnet,
		Gatherer: r.registry,
		Logger:   r.log.Logger,
	})
	if err != nil {
		return err
	}
	server := api.NewServer(r.config.HTTPListen, handler, r.log.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return NewWatcher(r.service, r.bus, r.config.Retries, r.log.Logger).Run(gctx)
	})
	g.Go(func() error {
		return server.Run(gctx)
	})
	return g.Wait()
}

// Shutdown closes the pipeline and flushes the logger.
func (r *Runner) Shutdown() {
	r.logger.Info("👋 Liquidator shutting down gracefully")

	if err := r.shutdown.Shutdown(); err != nil {
		r.logger.Error("Shutdown completed with errors", zap.Error(err))
	}
	if err := r.log.Sync(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
	}
}
