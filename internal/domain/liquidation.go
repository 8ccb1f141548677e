// internal/domain/liquidation.go
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// healthFactorDecimals is the fixed-point scale of the lending pool's health factor.
const healthFactorDecimals = 18

// LiquidationData is the per-holder view used before submitting a liquidation.
type LiquidationData struct {
	Holder        common.Address `json:"holder"`
	HealthFactor  *big.Int       `json:"healthFactor"`
	MaxCollateral ReserveAmount  `json:"maxCollateral"`
	MaxDebt       ReserveAmount  `json:"maxDebt"`
}

// HealthFactorDisplay converts the on-chain wei-scaled health factor to units.
func (d LiquidationData) HealthFactorDisplay() string {
	if d.HealthFactor == nil {
		return "0"
	}
	return decimal.NewFromBigInt(d.HealthFactor, -healthFactorDecimals).String()
}

// Liquidatable is true when the position is under water and both reserves are present.
func (d LiquidationData) Liquidatable() bool {
	if d.HealthFactor == nil || d.MaxCollateral.IsZero() || d.MaxDebt.IsZero() {
		return false
	}
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(healthFactorDecimals), nil)
	return d.HealthFactor.Cmp(one) < 0
}
