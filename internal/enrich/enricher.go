// internal/enrich/enricher.go
package enrich

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/aave-liquidator/internal/domain"
)

const (
	DefaultWorkers     = 8
	DefaultCallTimeout = 10 * time.Second

	CallMaxCollateral = "getMaxCollateral"
	CallMaxDebt       = "getMaxDebt"
)

// Policy decides what a single failed candidate does to the batch.
type Policy int

const (
	// AllOrNothing fails the whole batch on the first failed read.
	AllOrNothing Policy = iota
	// Isolate drops failed candidates and keeps the rest.
	Isolate
)

func (p Policy) String() string {
	if p == Isolate {
		return "isolate"
	}
	return "all-or-nothing"
}

// Reader issues the two per-holder liquidation reads.
type Reader interface {
	MaxCollateral(ctx context.Context, holder common.Address) (domain.ReserveAmount, error)
	MaxDebt(ctx context.Context, holder common.Address) (domain.ReserveAmount, error)
}

// Config bounds the enrichment fan-out.
type Config struct {
	Workers     int
	CallTimeout time.Duration
	Policy      Policy
}

// Enricher attaches on-chain liquidation limits to ranked candidates.
type Enricher struct {
	reader Reader
	cfg    Config
	logger *zap.Logger
}

// NewEnricher создает новый экземпляр Enricher
func NewEnricher(reader Reader, cfg Config, logger *zap.Logger) *Enricher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &Enricher{
		reader: reader,
		cfg:    cfg,
		logger: logger.Named("enricher"),
	}
}

// Enrich reads max collateral and max debt for every candidate and keeps the
// ones with two distinct, non-zero reserves. The input slice is not modified and
// the output keeps its order. Failures are *EnrichmentError.
func (e *Enricher) Enrich(ctx context.Context, candidates []domain.Candidate) ([]domain.Candidate, error) {
	enriched := make([]domain.Candidate, len(candidates))
	done := make([]bool, len(candidates))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for i := range candidates {
		i, c := i, candidates[i]
		g.Go(func() error {
			if gCtx.Err() != nil {
				return nil
			}
			collateral, debt, err := e.enrichOne(gCtx, c.Holder)
			if err != nil {
				if e.cfg.Policy == Isolate && ctx.Err() == nil {
					e.logger.Warn("Dropping candidate after failed read",
						zap.String("holder", c.Holder.Hex()),
						zap.Error(err))
					return nil
				}
				return err
			}
			c.MaxCollateral = &collateral
			c.MaxDebt = &debt
			enriched[i] = c
			done[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &EnrichmentError{Call: "batch", Err: err}
	}

	out := make([]domain.Candidate, 0, len(enriched))
	var failed, unviable int
	for i, c := range enriched {
		switch {
		case !done[i]:
			failed++
		case !c.Viable():
			unviable++
		default:
			out = append(out, c)
		}
	}

	e.logger.Debug("Candidates enriched",
		zap.Int("input", len(candidates)),
		zap.Int("kept", len(out)),
		zap.Int("unviable", unviable),
		zap.Int("failed", failed),
		zap.Stringer("policy", e.cfg.Policy))

	return out, nil
}

// enrichOne issues both reads concurrently; the pair fails if either fails.
func (e *Enricher) enrichOne(ctx context.Context, holder common.Address) (collateral, debt domain.ReserveAmount, err error) {
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		collateral, err = e.read(gCtx, CallMaxCollateral, holder, e.reader.MaxCollateral)
		return err
	})
	g.Go(func() error {
		var err error
		debt, err = e.read(gCtx, CallMaxDebt, holder, e.reader.MaxDebt)
		return err
	})
	err = g.Wait()
	return collateral, debt, err
}

func (e *Enricher) read(
	ctx context.Context,
	call string,
	holder common.Address,
	fn func(context.Context, common.Address) (domain.ReserveAmount, error),
) (domain.ReserveAmount, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	r, err := fn(ctx, holder)
	if err != nil {
		return domain.ReserveAmount{}, &EnrichmentError{Holder: holder, Call: call, Err: err}
	}
	return r, nil
}
