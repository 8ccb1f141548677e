package reserves

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	usdc := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	wbtc := common.HexToAddress("0x2260fac5e5542a773aa44fbcfedf7c193bc2c599")
	dai := common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f")

	weiDAI, ok := new(big.Int).SetString("2500000000000000000", 10)
	require.True(t, ok)

	tests := []struct {
		name    string
		reserve common.Address
		amount  *big.Int
		want    string
	}{
		{"usdc six decimals", usdc, big.NewInt(1500000), "1.5000"},
		{"wbtc eight decimals", wbtc, big.NewInt(12345678), "0.1235"},
		{"dai eighteen decimals", dai, weiDAI, "2.5000"},
		{"nil amount", dai, nil, "0.0000"},
		{"unknown reserve", common.HexToAddress("0x01"), big.NewInt(1), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mainnet.FormatAmount(tt.reserve, tt.amount))
		})
	}
}

func TestSymbol(t *testing.T) {
	assert.Equal(t, "USDT", Mainnet.Symbol(common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7")))
	assert.Equal(t, "", Mainnet.Symbol(common.Address{}))

	r, ok := Mainnet.Lookup(common.HexToAddress("0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"))
	require.True(t, ok)
	assert.Equal(t, int32(8), r.Decimals)
	assert.Len(t, Mainnet, 15)
}
