// internal/blockchain/types.go
package blockchain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// Caller executes a read-only contract call; *rpc.Pool implements it.
type Caller interface {
	Call(ctx context.Context, method string, msg ethereum.CallMsg) ([]byte, error)
}

// Config holds the contracts queried and the account the calls are issued from.
type Config struct {
	LiquidationContract common.Address
	LendingPool         common.Address
	From                common.Address
}

// AccountData mirrors LendingPool.getUserAccountData. All values are wei-scaled.
type AccountData struct {
	TotalLiquidityETH           *big.Int
	TotalCollateralETH          *big.Int
	TotalBorrowsETH             *big.Int
	TotalFeesETH                *big.Int
	AvailableBorrowsETH         *big.Int
	CurrentLiquidationThreshold *big.Int
	LTV                         *big.Int
	HealthFactor                *big.Int
}
