// internal/reserves/reserves.go
package reserves

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// displayPlaces is the number of fractional digits shown for reserve amounts.
const displayPlaces = 4

// Reserve describes one lending-pool asset.
type Reserve struct {
	Address  common.Address
	Symbol   string
	Decimals int32
}

// Table maps reserve addresses to their metadata.
type Table map[common.Address]Reserve

// Mainnet is the static reserve table of the v1 lending pool.
var Mainnet = NewTable(
	Reserve{common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f"), "DAI", 18},
	Reserve{common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"), "USDC", 6},
	Reserve{common.HexToAddress("0x57ab1ec28d129707052df4df418d58a2d46d5f51"), "SUSD", 18},
	Reserve{common.HexToAddress("0x0000000000085d4780b73119b644ae5ecd22b376"), "TUSD", 18},
	Reserve{common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7"), "USDT", 6},
	Reserve{common.HexToAddress("0x0d8775f648430679a709e98d2b0cb6250d2887ef"), "BAT", 18},
	Reserve{common.HexToAddress("0xdd974d5c2e2928dea5f71b9825b8b646686bd200"), "KNC", 18},
	Reserve{common.HexToAddress("0x80fb784b7ed66730e8b1dbd9820afd29931aab03"), "LEND", 18},
	Reserve{common.HexToAddress("0x514910771af9ca656af840dff83e8264ecf986ca"), "LINK", 18},
	Reserve{common.HexToAddress("0x0f5d2fb29fb7d3cfee444a200298f468908cc942"), "MANA", 18},
	Reserve{common.HexToAddress("0x9f8f72aa9304c8b593d555f12ef6589cc3a579a2"), "MKR", 18},
	Reserve{common.HexToAddress("0x1985365e9f78359a9b6ad760e32412f4a445e862"), "REP", 18},
	Reserve{common.HexToAddress("0xc011a73ee8576fb46f5e1c5751ca3b9fe0af2a6f"), "SNX", 18},
	Reserve{common.HexToAddress("0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"), "WBTC", 8},
	Reserve{common.HexToAddress("0xe41d2489571d322189246dafa5ebde1f4699f498"), "ZRX", 18},
)

// NewTable builds a table from a list of reserves.
func NewTable(list ...Reserve) Table {
	t := make(Table, len(list))
	for _, r := range list {
		t[r.Address] = r
	}
	return t
}

// Lookup returns the reserve registered at addr.
func (t Table) Lookup(addr common.Address) (Reserve, bool) {
	r, ok := t[addr]
	return r, ok
}

// Symbol returns the reserve symbol, or "" for unknown assets.
func (t Table) Symbol(addr common.Address) string {
	return t[addr].Symbol
}

// FormatAmount scales a raw base-unit amount by the reserve's decimals and renders
// it with four fractional digits. Unknown reserves render as "".
func (t Table) FormatAmount(addr common.Address, amount *big.Int) string {
	r, ok := t[addr]
	if !ok {
		return ""
	}
	if amount == nil {
		amount = new(big.Int)
	}
	return decimal.NewFromBigInt(amount, -r.Decimals).StringFixed(displayPlaces)
}
