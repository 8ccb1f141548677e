// internal/api/view.go
package api

import (
	"github.com/rovshanmuradov/aave-liquidator/internal/domain"
	"github.com/rovshanmuradov/aave-liquidator/internal/reserves"
)

type reserveView struct {
	Reserve string `json:"reserve"`
	Symbol  string `json:"symbol"`
	Amount  string `json:"amount"`
	Display string `json:"display"`
}

type candidateView struct {
	Holder             string       `json:"holder"`
	ReserveSymbol      string       `json:"reserveSymbol"`
	TotalLiquidityETH  string       `json:"totalLiquidityETH"`
	MaxWithdrawableETH string       `json:"maxAmountToWithdrawInEth"`
	HealthFactor       string       `json:"healthFactor"`
	MaxCollateral      *reserveView `json:"maxCollateral,omitempty"`
	MaxDebt            *reserveView `json:"maxDebt,omitempty"`
	Liquidatable       bool         `json:"liquidatable"`
}

type candidatesResponse struct {
	CycleID    string          `json:"cycleId,omitempty"`
	Trigger    string          `json:"trigger,omitempty"`
	UpdatedAt  string          `json:"updatedAt,omitempty"`
	Count      int             `json:"count"`
	Candidates []candidateView `json:"candidates"`
}

type positionResponse struct {
	Holder        string      `json:"holder"`
	HealthFactor  string      `json:"healthFactor"`
	MaxCollateral reserveView `json:"maxCollateral"`
	MaxDebt       reserveView `json:"maxDebt"`
	Liquidatable  bool        `json:"liquidatable"`
}

type liquidationResponse struct {
	Holder string `json:"holder"`
	TxHash string `json:"txHash"`
}

func newReserveView(table reserves.Table, r domain.ReserveAmount) reserveView {
	amount := "0"
	if r.Amount != nil {
		amount = r.Amount.String()
	}
	return reserveView{
		Reserve: r.Reserve.Hex(),
		Symbol:  table.Symbol(r.Reserve),
		Amount:  amount,
		Display: table.FormatAmount(r.Reserve, r.Amount),
	}
}

func newCandidateView(table reserves.Table, c domain.Candidate) candidateView {
	v := candidateView{
		Holder:             c.Holder.Hex(),
		ReserveSymbol:      c.ReserveSymbol,
		TotalLiquidityETH:  c.TotalLiquidityETH.String(),
		MaxWithdrawableETH: c.MaxWithdrawableETH.String(),
		HealthFactor:       c.HealthFactorDisplay(),
		Liquidatable:       c.Liquidatable(),
	}
	if c.MaxCollateral != nil {
		rv := newReserveView(table, *c.MaxCollateral)
		v.MaxCollateral = &rv
	}
	if c.MaxDebt != nil {
		rv := newReserveView(table, *c.MaxDebt)
		v.MaxDebt = &rv
	}
	return v
}

func newCandidatesResponse(table reserves.Table, candidates []domain.Candidate) candidatesResponse {
	views := make([]candidateView, len(candidates))
	for i, c := range candidates {
		views[i] = newCandidateView(table, c)
	}
	return candidatesResponse{Count: len(views), Candidates: views}
}

func newPositionResponse(table reserves.Table, d domain.LiquidationData) positionResponse {
	return positionResponse{
		Holder:        d.Holder.Hex(),
		HealthFactor:  d.HealthFactorDisplay(),
		MaxCollateral: newReserveView(table, d.MaxCollateral),
		MaxDebt:       newReserveView(table, d.MaxDebt),
		Liquidatable:  d.Liquidatable(),
	}
}
