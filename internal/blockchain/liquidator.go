// internal/blockchain/liquidator.go
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/aave-liquidator/internal/blockchain/rpc"
)

// DefaultGasPrice is the legacy gas price liquidations are sent with.
var DefaultGasPrice = big.NewInt(6 * params.GWei)

var (
	ErrMissingTransactor = errors.New("liquidator: transactor is required")
	ErrMissingSigner     = errors.New("liquidator: signer is required")
)

// LiquidatorConfig describes the liquidation contract and who pays for the call.
type LiquidatorConfig struct {
	Contract common.Address
	From     common.Address
	GasPrice *big.Int
	Signer   bind.SignerFn
}

// Liquidator submits liquidate(address) transactions. Signing is delegated to
// cfg.Signer.
type Liquidator struct {
	contract *bind.BoundContract
	cfg      LiquidatorConfig
	logger   *zap.Logger
}

// NewLiquidator binds the liquidation contract to backend.
func NewLiquidator(backend bind.ContractTransactor, cfg LiquidatorConfig, logger *zap.Logger) (*Liquidator, error) {
	if backend == nil {
		return nil, ErrMissingTransactor
	}
	if cfg.Signer == nil {
		return nil, ErrMissingSigner
	}
	if cfg.GasPrice == nil || cfg.GasPrice.Sign() <= 0 {
		cfg.GasPrice = DefaultGasPrice
	}

	parsed, err := abi.JSON(strings.NewReader(liquidatorABI))
	if err != nil {
		return nil, fmt.Errorf("parse liquidator ABI: %w", err)
	}

	return &Liquidator{
		contract: bind.NewBoundContract(cfg.Contract, parsed, nil, backend, nil),
		cfg:      cfg,
		logger:   logger.Named("liquidator"),
	}, nil
}

// Liquidate sends liquidate(holder) and returns the transaction hash once the
// node has accepted it. Confirmation is not awaited.
func (l *Liquidator) Liquidate(ctx context.Context, holder common.Address) (common.Hash, error) {
	opts := &bind.TransactOpts{
		From:     l.cfg.From,
		Signer:   l.cfg.Signer,
		GasPrice: new(big.Int).Set(l.cfg.GasPrice),
		Context:  ctx,
	}

	tx, err := l.contract.Transact(opts, methodLiquidate, holder)
	if err != nil {
		l.logger.Warn("Liquidation not submitted",
			zap.String("holder", holder.Hex()),
			zap.Error(err))
		return common.Hash{}, rpc.NewError(err, "", methodLiquidate)
	}

	l.logger.Info("💸 Liquidation submitted",
		zap.String("holder", holder.Hex()),
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("nonce", tx.Nonce()),
		zap.String("gas_price", tx.GasPrice().String()))
	return tx.Hash(), nil
}
