// internal/bot/report.go
package bot

import (
	"context"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/aave-liquidator/internal/domain"
	"github.com/rovshanmuradov/aave-liquidator/internal/events"
	"github.com/rovshanmuradov/aave-liquidator/internal/reserves"
)

const reportLimit = 10

// reporter logs every delivered list, top entries first.
type reporter struct {
	reserves reserves.Table
	logger   *zap.Logger
}

func newReporter(table reserves.Table, logger *zap.Logger) *reporter {
	return &reporter{reserves: table, logger: logger.Named("report")}
}

func (r *reporter) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.CandidatesEvent:
		r.logCandidates(e)
	case events.LiquidationEvent:
		r.logger.Info("💸 Liquidation sent",
			zap.String("request_id", e.CycleID),
			zap.String("holder", e.Holder.Hex()),
			zap.String("tx", e.TxHash.Hex()))
	case events.ErrorEvent:
		msg := "Candidate cycle failed"
		if e.Trigger == events.TriggerLiquidate {
			msg = "Liquidation failed"
		}
		r.logger.Error(msg,
			zap.String("cycle_id", e.CycleID),
			zap.String("trigger", string(e.Trigger)),
			zap.Error(e.Err))
	}
	return nil
}

func (r *reporter) logCandidates(e events.CandidatesEvent) {
	r.logger.Info("📋 Candidates delivered",
		zap.String("cycle_id", e.CycleID),
		zap.String("trigger", string(e.Trigger)),
		zap.Int("count", len(e.Candidates)))

	for i, c := range e.Candidates {
		if i == reportLimit {
			break
		}
		r.logger.Info("Candidate", r.fields(i+1, c)...)
	}
}

func (r *reporter) fields(rank int, c domain.Candidate) []zap.Field {
	fields := []zap.Field{
		zap.Int("rank", rank),
		zap.String("holder", c.Holder.Hex()),
		zap.String("reserve", c.ReserveSymbol),
		zap.String("max_withdraw_eth", c.MaxWithdrawableETH.String()),
		zap.String("health_factor", c.HealthFactorDisplay()),
		zap.Bool("liquidatable", c.Liquidatable()),
	}
	if c.MaxCollateral != nil {
		fields = append(fields,
			zap.String("collateral", r.reserves.Symbol(c.MaxCollateral.Reserve)),
			zap.String("collateral_amount", r.reserves.FormatAmount(c.MaxCollateral.Reserve, c.MaxCollateral.Amount)))
	}
	if c.MaxDebt != nil {
		fields = append(fields,
			zap.String("debt", r.reserves.Symbol(c.MaxDebt.Reserve)),
			zap.String("debt_amount", r.reserves.FormatAmount(c.MaxDebt.Reserve, c.MaxDebt.Amount)))
	}
	return fields
}
