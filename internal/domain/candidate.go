// internal/domain/candidate.go
package domain

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ZeroAddress is returned by the liquidation contract when no eligible reserve exists.
var ZeroAddress = common.Address{}

var healthFactorThreshold = decimal.NewFromInt(1)

// RawPosition is one record of the liquidation listing feed.
type RawPosition struct {
	Holder             common.Address      `json:"holder"`
	ReserveSymbol      string              `json:"reserveSymbol"`
	TotalLiquidityETH  decimal.Decimal     `json:"totalLiquidityETH"`
	MaxWithdrawableETH decimal.Decimal     `json:"maxAmountToWithdrawInEth"`
	HealthFactor       decimal.NullDecimal `json:"healthFactor"`
}

// ReserveAmount is the (reserve, amount) pair returned by getMaxCollateral / getMaxDebt.
// Amount is in the reserve's base units.
type ReserveAmount struct {
	Reserve common.Address `json:"_reserve"`
	Amount  *big.Int       `json:"_amount"`
}

// IsZero reports whether the contract signalled "no reserve".
func (r ReserveAmount) IsZero() bool {
	return r.Reserve == ZeroAddress
}

// MarshalJSON renders the amount as an integer string, the shape the contract ABI decoders emit.
func (r ReserveAmount) MarshalJSON() ([]byte, error) {
	amount := "0"
	if r.Amount != nil {
		amount = r.Amount.String()
	}
	return json.Marshal(struct {
		Reserve common.Address `json:"_reserve"`
		Amount  string         `json:"_amount"`
	}{r.Reserve, amount})
}

// Candidate is a ranked position, optionally enriched with on-chain liquidation limits.
type Candidate struct {
	RawPosition
	MaxCollateral *ReserveAmount `json:"maxCollateral,omitempty"`
	MaxDebt       *ReserveAmount `json:"maxDebt,omitempty"`
}

// NewCandidate promotes a feed record; enrichment fields stay nil.
func NewCandidate(p RawPosition) Candidate {
	return Candidate{RawPosition: p}
}

// Enriched reports whether both liquidation limits are attached.
func (c Candidate) Enriched() bool {
	return c.MaxCollateral != nil && c.MaxDebt != nil
}

// Viable holds when both reserves exist and differ.
func (c Candidate) Viable() bool {
	if !c.Enriched() {
		return false
	}
	if c.MaxCollateral.IsZero() || c.MaxDebt.IsZero() {
		return false
	}
	return c.MaxCollateral.Reserve != c.MaxDebt.Reserve
}

// Liquidatable mirrors the dashboard's action condition: viable reserves and
// a health factor below one.
func (c Candidate) Liquidatable() bool {
	return c.Enriched() &&
		!c.MaxCollateral.IsZero() &&
		!c.MaxDebt.IsZero() &&
		c.HealthFactor.Valid &&
		c.HealthFactor.Decimal.LessThan(healthFactorThreshold)
}

// HealthFactorDisplay formats the feed health factor with four decimals; empty
// when the feed did not report one.
func (c Candidate) HealthFactorDisplay() string {
	if !c.HealthFactor.Valid {
		return ""
	}
	return c.HealthFactor.Decimal.StringFixed(4)
}
