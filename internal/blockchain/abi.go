// internal/blockchain/abi.go
package blockchain

const (
	methodMaxCollateral   = "getMaxCollateral"
	methodMaxDebt         = "getMaxDebt"
	methodUserAccountData = "getUserAccountData"
	methodLiquidate       = "liquidate"
)

const liquidationABI = `[
	{"constant":true,"inputs":[{"name":"_user","type":"address"}],"name":"getMaxCollateral",
	 "outputs":[{"name":"_reserve","type":"address"},{"name":"_amount","type":"uint256"}],
	 "payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_user","type":"address"}],"name":"getMaxDebt",
	 "outputs":[{"name":"_reserve","type":"address"},{"name":"_amount","type":"uint256"}],
	 "payable":false,"stateMutability":"view","type":"function"}
]`

const lendingPoolABI = `[
	{"constant":true,"inputs":[{"name":"_user","type":"address"}],"name":"getUserAccountData",
	 "outputs":[
		{"name":"totalLiquidityETH","type":"uint256"},
		{"name":"totalCollateralETH","type":"uint256"},
		{"name":"totalBorrowsETH","type":"uint256"},
		{"name":"totalFeesETH","type":"uint256"},
		{"name":"availableBorrowsETH","type":"uint256"},
		{"name":"currentLiquidationThreshold","type":"uint256"},
		{"name":"ltv","type":"uint256"},
		{"name":"healthFactor","type":"uint256"}],
	 "payable":false,"stateMutability":"view","type":"function"}
]`

const liquidatorABI = `[
	{"constant":false,"inputs":[{"name":"_user","type":"address"}],"name":"liquidate",
	 "outputs":[],"payable":false,"stateMutability":"nonpayable","type":"function"}
]`
