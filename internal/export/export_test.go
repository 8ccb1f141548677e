package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/aave-liquidator/internal/domain"
	"github.com/rovshanmuradov/aave-liquidator/internal/reserves"
)

var (
	usdc = common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	dai  = common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f")
	link = common.HexToAddress("0x514910771af9ca656af840dff83e8264ecf986ca")
)

func candidate(holder byte, withdraw, health string, debt common.Address) domain.Candidate {
	c := domain.NewCandidate(domain.RawPosition{
		Holder:             common.BytesToAddress([]byte{holder}),
		ReserveSymbol:      "DAI",
		TotalLiquidityETH:  decimal.RequireFromString("10"),
		MaxWithdrawableETH: decimal.RequireFromString(withdraw),
		HealthFactor:       decimal.NewNullDecimal(decimal.RequireFromString(health)),
	})
	c.MaxCollateral = &domain.ReserveAmount{Reserve: usdc, Amount: big.NewInt(1500000)}
	c.MaxDebt = &domain.ReserveAmount{Reserve: debt, Amount: big.NewInt(42)}
	return c
}

func generateTestCandidates() []domain.Candidate {
	return []domain.Candidate{
		candidate(1, "5", "0.91", dai),
		candidate(2, "3.5", "1.2", link),
		candidate(3, "1", "0.5", dai),
	}
}

func newTestExporter() *CandidateExporter {
	return NewCandidateExporter(reserves.Mainnet, zap.NewNop())
}

func TestCandidateExportCSV(t *testing.T) {
	var buf bytes.Buffer
	n, err := newTestExporter().Write(&buf, generateTestCandidates(), ExportOptions{Format: FormatCSV})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, CSVHeaders(), rows[0])

	first := rows[1]
	assert.Equal(t, "1", first[0])
	assert.Equal(t, "0.9100", first[5])
	assert.Equal(t, "USDC", first[7])
	assert.Equal(t, "1.5000", first[8])
	assert.Equal(t, "DAI", first[10])
	assert.Equal(t, "true", first[12])
	assert.Equal(t, "false", rows[2][12])
}

func TestCandidateExportOnlyLiquidatable(t *testing.T) {
	var buf bytes.Buffer
	n, err := newTestExporter().Write(&buf, generateTestCandidates(),
		ExportOptions{Format: FormatCSV, OnlyLiquidatable: true})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCandidateExportJSONSummary(t *testing.T) {
	var buf bytes.Buffer
	_, err := newTestExporter().Write(&buf, generateTestCandidates(), ExportOptions{Format: FormatJSON})
	require.NoError(t, err)

	var out struct {
		Summary    ExportSummary     `json:"summary"`
		Candidates []json.RawMessage `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Len(t, out.Candidates, 3)
	assert.Equal(t, 3, out.Summary.Candidates)
	assert.Equal(t, 2, out.Summary.Liquidatable)
	assert.True(t, decimal.RequireFromString("9.5").Equal(out.Summary.TotalWithdrawETH))
	assert.True(t, decimal.NewFromInt(5).Equal(out.Summary.LargestWithdrawETH))
	assert.Equal(t, "0.5000", out.Summary.LowestHealthFactor)
	assert.Equal(t, 2, out.Summary.DistinctDebtAssets)
}

func TestCandidateExportUnknownHealthFactor(t *testing.T) {
	unknown := candidate(4, "7", "0.1", dai)
	unknown.HealthFactor = decimal.NullDecimal{}
	cands := append(generateTestCandidates(), unknown)

	summary := calculateSummary(cands)
	assert.Equal(t, 2, summary.Liquidatable)
	assert.Equal(t, "0.5000", summary.LowestHealthFactor)

	var buf bytes.Buffer
	n, err := newTestExporter().Write(&buf, cands, ExportOptions{Format: FormatCSV, OnlyLiquidatable: true})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotContains(t, buf.String(), unknown.Holder.Hex())

	assert.Empty(t, calculateSummary([]domain.Candidate{unknown}).LowestHealthFactor)
}

func TestCandidateExportEmptyJSON(t *testing.T) {
	var buf bytes.Buffer
	n, err := newTestExporter().Write(&buf, nil, ExportOptions{Format: FormatJSON})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, buf.String(), `"candidates": []`)
}

func TestCandidateExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := newTestExporter().ExportToFile(generateTestCandidates(),
		ExportOptions{Format: FormatCSV, OnlyLiquidatable: true, OutputDir: dir})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filepath.Base(path), "candidates_liquidatable_"))
	assert.Equal(t, ".csv", filepath.Ext(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(content), "\n"))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)

	_, err = newTestExporter().Write(&bytes.Buffer{}, nil, ExportOptions{Format: "xml"})
	assert.Error(t, err)
}
