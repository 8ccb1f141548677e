// internal/scout/service.go
package scout

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/aave-liquidator/internal/domain"
	"github.com/rovshanmuradov/aave-liquidator/internal/enrich"
	"github.com/rovshanmuradov/aave-liquidator/internal/events"
)

const (
	DefaultRefreshDelay = 5 * time.Second

	CallHealthFactor = "getUserAccountData"

	stageFetched  = "fetched"
	stageEnriched = "enriched"
)

// Fetcher produces ranked, unenriched candidates.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.Candidate, error)
}

// Enricher attaches liquidation limits and drops non-viable candidates.
type Enricher interface {
	Enrich(ctx context.Context, candidates []domain.Candidate) ([]domain.Candidate, error)
}

// ChainReader serves the per-holder reads behind LiquidationData.
type ChainReader interface {
	MaxCollateral(ctx context.Context, holder common.Address) (domain.ReserveAmount, error)
	MaxDebt(ctx context.Context, holder common.Address) (domain.ReserveAmount, error)
	HealthFactor(ctx context.Context, holder common.Address) (*big.Int, error)
}

// Liquidator submits a liquidation transaction for one holder.
type Liquidator interface {
	Liquidate(ctx context.Context, holder common.Address) (common.Hash, error)
}

// ErrLiquidationDisabled is returned by Liquidate when no liquidator is configured.
var ErrLiquidationDisabled = errors.New("liquidation is not configured")

// Publisher delivers cycle results asynchronously.
type Publisher interface {
	Publish(event events.Event) error
}

// Recorder receives pipeline metrics.
type Recorder interface {
	RecordCycle(trigger string, duration time.Duration, success bool)
	SetCandidates(stage string, n int)
}

// ServiceConfig configuration for Service
type ServiceConfig struct {
	Logger       *zap.Logger
	Fetcher      Fetcher
	Enricher     Enricher
	Chain        ChainReader
	Liquidator   Liquidator
	Publisher    Publisher
	Metrics      Recorder
	RefreshDelay time.Duration
	CallTimeout  time.Duration
}

// Service runs the fetch → enrich pipeline on demand and keeps a single
// follow-up cycle scheduled after every successful GetCandidates.
// It holds no candidate state between cycles.
type Service struct {
	fetcher      Fetcher
	enricher     Enricher
	chain        ChainReader
	liquidator   Liquidator
	publisher    Publisher
	metrics      Recorder
	refreshDelay time.Duration
	callTimeout  time.Duration
	logger       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	closed     bool
	running    sync.WaitGroup
}

// NewService creates a new scout service
func NewService(config *ServiceConfig) *Service {
	delay := config.RefreshDelay
	if delay <= 0 {
		delay = DefaultRefreshDelay
	}
	callTimeout := config.CallTimeout
	if callTimeout <= 0 {
		callTimeout = enrich.DefaultCallTimeout
	}
	recorder := config.Metrics
	if recorder == nil {
		recorder = nopRecorder{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		fetcher:      config.Fetcher,
		enricher:     config.Enricher,
		chain:        config.Chain,
		liquidator:   config.Liquidator,
		publisher:    config.Publisher,
		metrics:      recorder,
		refreshDelay: delay,
		callTimeout:  callTimeout,
		logger:       config.Logger.Named("scout"),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// GetCandidates runs one cycle, publishes CandidatesReturned and schedules a
// follow-up cycle after the refresh delay, replacing any pending one.
func (s *Service) GetCandidates(ctx context.Context) ([]domain.Candidate, error) {
	candidates, err := s.cycle(ctx, events.TriggerGet)
	if err != nil {
		return nil, err
	}
	s.schedule(0)
	return candidates, nil
}

// RefreshCandidates runs one cycle and publishes RefreshReturned. Nothing is scheduled.
func (s *Service) RefreshCandidates(ctx context.Context) ([]domain.Candidate, error) {
	return s.cycle(ctx, events.TriggerRefresh)
}

// LiquidationData reads health factor, max collateral and max debt for one holder.
func (s *Service) LiquidationData(ctx context.Context, holder common.Address) (domain.LiquidationData, error) {
	data := domain.LiquidationData{Holder: holder}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hf, err := withTimeout(gctx, s.callTimeout, holder, CallHealthFactor, s.chain.HealthFactor)
		data.HealthFactor = hf
		return err
	})
	g.Go(func() error {
		c, err := withTimeout(gctx, s.callTimeout, holder, enrich.CallMaxCollateral, s.chain.MaxCollateral)
		data.MaxCollateral = c
		return err
	})
	g.Go(func() error {
		d, err := withTimeout(gctx, s.callTimeout, holder, enrich.CallMaxDebt, s.chain.MaxDebt)
		data.MaxDebt = d
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("Liquidation data read failed",
			zap.String("holder", holder.Hex()),
			zap.Error(err))
		return domain.LiquidationData{}, err
	}
	return data, nil
}

// Liquidate submits liquidate(holder) and returns the transaction hash. The
// result is also published as LiquidationSubmitted, a failure as CycleFailed.
func (s *Service) Liquidate(ctx context.Context, holder common.Address) (common.Hash, error) {
	if s.liquidator == nil {
		return common.Hash{}, ErrLiquidationDisabled
	}

	requestID := uuid.New().String()
	logger := s.logger.With(
		zap.String("request_id", requestID),
		zap.String("holder", holder.Hex()))

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	hash, err := s.liquidator.Liquidate(ctx, holder)
	if err != nil {
		logger.Error("Liquidation failed", zap.Error(err))
		s.publish(logger, events.NewErrorEvent(requestID, events.TriggerLiquidate, err))
		return common.Hash{}, err
	}

	logger.Info("Liquidation submitted", zap.String("tx", hash.Hex()))
	s.publish(logger, events.NewLiquidationEvent(requestID, holder, hash))
	return hash, nil
}

func withTimeout[T any](
	ctx context.Context,
	timeout time.Duration,
	holder common.Address,
	call string,
	fn func(context.Context, common.Address) (T, error),
) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(ctx, holder)
	if err != nil {
		var zero T
		return zero, &enrich.EnrichmentError{Holder: holder, Call: call, Err: err}
	}
	return v, nil
}

// Close cancels the pending follow-up and waits for a running one to finish.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.cancel()
	s.running.Wait()
	s.logger.Debug("Scout service closed")
	return nil
}

// schedule arms the follow-up timer. A non-zero parent generation re-arms only
// if no newer GetCandidates has superseded that chain.
func (s *Service) schedule(parent uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || (parent != 0 && parent != s.generation) {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.generation++
	gen := s.generation
	s.timer = time.AfterFunc(s.refreshDelay, func() { s.followUp(gen) })

	s.logger.Debug("Follow-up cycle scheduled",
		zap.Duration("delay", s.refreshDelay),
		zap.Uint64("generation", gen))
}

func (s *Service) followUp(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()

	if _, err := s.cycle(s.ctx, events.TriggerFollowUp); err != nil {
		// цепочка обрывается, ошибка уже опубликована
		return
	}
	s.schedule(gen)
}

func (s *Service) cycle(ctx context.Context, trigger events.Trigger) ([]domain.Candidate, error) {
	cycleID := uuid.New().String()
	logger := s.logger.With(
		zap.String("cycle_id", cycleID),
		zap.String("trigger", string(trigger)))
	start := time.Now()

	candidates, err := s.run(ctx)
	duration := time.Since(start)
	s.metrics.RecordCycle(string(trigger), duration, err == nil)

	if err != nil {
		logger.Error("Pipeline cycle failed", zap.Duration("duration", duration), zap.Error(err))
		s.publish(logger, events.NewErrorEvent(cycleID, trigger, err))
		return nil, err
	}

	logger.Info("Pipeline cycle complete",
		zap.Int("candidates", len(candidates)),
		zap.Duration("duration", duration))
	s.publish(logger, events.NewCandidatesEvent(cycleID, trigger, candidates))
	return candidates, nil
}

func (s *Service) run(ctx context.Context) ([]domain.Candidate, error) {
	fetched, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.SetCandidates(stageFetched, len(fetched))

	enriched, err := s.enricher.Enrich(ctx, fetched)
	if err != nil {
		return nil, err
	}
	s.metrics.SetCandidates(stageEnriched, len(enriched))
	return enriched, nil
}

func (s *Service) publish(logger *zap.Logger, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(event); err != nil {
		logger.Warn("Failed to publish cycle result",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordCycle(string, time.Duration, bool) {}
func (nopRecorder) SetCandidates(string, int)               {}
