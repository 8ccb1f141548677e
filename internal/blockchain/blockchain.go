// internal/blockchain/blockchain.go
package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/aave-liquidator/internal/blockchain/rpc"
	"github.com/rovshanmuradov/aave-liquidator/internal/domain"
)

// Client reads liquidation limits and account health from the protocol contracts.
type Client struct {
	caller      Caller
	cfg         Config
	liquidation abi.ABI
	lendingPool abi.ABI
	logger      *zap.Logger
}

// NewClient parses the contract ABIs and binds them to caller.
func NewClient(caller Caller, cfg Config, logger *zap.Logger) (*Client, error) {
	liq, err := abi.JSON(strings.NewReader(liquidationABI))
	if err != nil {
		return nil, fmt.Errorf("parse liquidation ABI: %w", err)
	}
	pool, err := abi.JSON(strings.NewReader(lendingPoolABI))
	if err != nil {
		return nil, fmt.Errorf("parse lending pool ABI: %w", err)
	}
	return &Client{
		caller:      caller,
		cfg:         cfg,
		liquidation: liq,
		lendingPool: pool,
		logger:      logger.Named("chain"),
	}, nil
}

// MaxCollateral returns the reserve and amount of collateral seizable from holder.
func (c *Client) MaxCollateral(ctx context.Context, holder common.Address) (domain.ReserveAmount, error) {
	return c.reserveAmount(ctx, methodMaxCollateral, holder)
}

// MaxDebt returns the reserve and amount of debt repayable on behalf of holder.
func (c *Client) MaxDebt(ctx context.Context, holder common.Address) (domain.ReserveAmount, error) {
	return c.reserveAmount(ctx, methodMaxDebt, holder)
}

// UserAccountData reads the holder's aggregate position from the lending pool.
func (c *Client) UserAccountData(ctx context.Context, holder common.Address) (AccountData, error) {
	values, err := c.call(ctx, c.lendingPool, c.cfg.LendingPool, methodUserAccountData, holder)
	if err != nil {
		return AccountData{}, err
	}
	if len(values) != 8 {
		return AccountData{}, rpc.NewError(fmt.Errorf("%w: %d outputs", rpc.ErrInvalidResponse, len(values)), "", methodUserAccountData)
	}

	ints := make([]*big.Int, len(values))
	for i, v := range values {
		n, ok := v.(*big.Int)
		if !ok {
			return AccountData{}, rpc.NewError(fmt.Errorf("%w: output %d is %T", rpc.ErrInvalidResponse, i, v), "", methodUserAccountData)
		}
		ints[i] = n
	}

	return AccountData{
		TotalLiquidityETH:           ints[0],
		TotalCollateralETH:          ints[1],
		TotalBorrowsETH:             ints[2],
		TotalFeesETH:                ints[3],
		AvailableBorrowsETH:         ints[4],
		CurrentLiquidationThreshold: ints[5],
		LTV:                         ints[6],
		HealthFactor:                ints[7],
	}, nil
}

// HealthFactor returns the wei-scaled health factor of holder.
func (c *Client) HealthFactor(ctx context.Context, holder common.Address) (*big.Int, error) {
	data, err := c.UserAccountData(ctx, holder)
	if err != nil {
		return nil, err
	}
	return data.HealthFactor, nil
}

func (c *Client) reserveAmount(ctx context.Context, method string, holder common.Address) (domain.ReserveAmount, error) {
	values, err := c.call(ctx, c.liquidation, c.cfg.LiquidationContract, method, holder)
	if err != nil {
		return domain.ReserveAmount{}, err
	}
	if len(values) != 2 {
		return domain.ReserveAmount{}, rpc.NewError(fmt.Errorf("%w: %d outputs", rpc.ErrInvalidResponse, len(values)), "", method)
	}

	reserve, ok := values[0].(common.Address)
	if !ok {
		return domain.ReserveAmount{}, rpc.NewError(fmt.Errorf("%w: _reserve is %T", rpc.ErrInvalidResponse, values[0]), "", method)
	}
	amount, ok := values[1].(*big.Int)
	if !ok {
		return domain.ReserveAmount{}, rpc.NewError(fmt.Errorf("%w: _amount is %T", rpc.ErrInvalidResponse, values[1]), "", method)
	}

	return domain.ReserveAmount{Reserve: reserve, Amount: amount}, nil
}

func (c *Client) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{
		From: c.cfg.From,
		To:   &to,
		Data: data,
	}
	out, err := c.caller.Call(ctx, method, msg)
	if err != nil {
		return nil, err
	}

	values, err := contract.Unpack(method, out)
	if err != nil {
		return nil, rpc.NewError(fmt.Errorf("%w: %v", rpc.ErrInvalidResponse, err), "", method)
	}
	return values, nil
}
