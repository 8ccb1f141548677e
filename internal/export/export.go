package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/aave-liquidator/internal/domain"
	"github.com/rovshanmuradov/aave-liquidator/internal/reserves"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(s); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format           ExportFormat
	OnlyLiquidatable bool
	OutputDir        string // empty: the caller's writer is used instead of a file
}

// CandidateExporter writes candidate lists as CSV or JSON.
type CandidateExporter struct {
	reserves reserves.Table
	logger   *zap.Logger
}

// NewCandidateExporter creates a new candidate exporter
func NewCandidateExporter(table reserves.Table, logger *zap.Logger) *CandidateExporter {
	return &CandidateExporter{
		reserves: table,
		logger:   logger.Named("export"),
	}
}

// ExportToFile writes the list to a timestamped file in OutputDir and returns its path.
func (ce *CandidateExporter) ExportToFile(candidates []domain.Candidate, options ExportOptions) (string, error) {
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(options.OutputDir, ce.generateFilename(options))
	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	n, err := ce.Write(file, candidates, options)
	if err != nil {
		return "", err
	}

	ce.logger.Info("Candidates exported",
		zap.String("file", outputPath),
		zap.Int("count", n),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

// Write encodes the (filtered) list to w and returns how many rows were written.
func (ce *CandidateExporter) Write(w io.Writer, candidates []domain.Candidate, options ExportOptions) (int, error) {
	filtered := ce.filterCandidates(candidates, options)

	var err error
	switch options.Format {
	case FormatCSV:
		err = ce.writeCSV(w, filtered)
	case FormatJSON:
		err = ce.writeJSON(w, filtered)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return 0, err
	}
	return len(filtered), nil
}

func (ce *CandidateExporter) filterCandidates(candidates []domain.Candidate, options ExportOptions) []domain.Candidate {
	if !options.OnlyLiquidatable {
		return candidates
	}
	filtered := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Liquidatable() {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func (ce *CandidateExporter) generateFilename(options ExportOptions) string {
	timestamp := time.Now().Format("20060102_150405")
	prefix := "candidates_all"
	if options.OnlyLiquidatable {
		prefix = "candidates_liquidatable"
	}
	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

// CSVHeaders returns the column names of the CSV export.
func CSVHeaders() []string {
	return []string{
		"rank", "holder", "reserve", "total_liquidity_eth", "max_withdraw_eth", "health_factor",
		"collateral_reserve", "collateral_symbol", "collateral_amount",
		"debt_reserve", "debt_symbol", "debt_amount", "liquidatable",
	}
}

func (ce *CandidateExporter) toCSV(rank int, c domain.Candidate) []string {
	row := []string{
		fmt.Sprint(rank),
		c.Holder.Hex(),
		c.ReserveSymbol,
		c.TotalLiquidityETH.String(),
		c.MaxWithdrawableETH.String(),
		c.HealthFactorDisplay(),
	}
	row = append(row, ce.reserveColumns(c.MaxCollateral)...)
	row = append(row, ce.reserveColumns(c.MaxDebt)...)
	return append(row, fmt.Sprint(c.Liquidatable()))
}

func (ce *CandidateExporter) reserveColumns(r *domain.ReserveAmount) []string {
	if r == nil {
		return []string{"", "", ""}
	}
	return []string{r.Reserve.Hex(), ce.reserves.Symbol(r.Reserve), ce.reserves.FormatAmount(r.Reserve, r.Amount)}
}

func (ce *CandidateExporter) writeCSV(w io.Writer, candidates []domain.Candidate) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for i, c := range candidates {
		if err := writer.Write(ce.toCSV(i+1, c)); err != nil {
			return fmt.Errorf("failed to write candidate: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (ce *CandidateExporter) writeJSON(w io.Writer, candidates []domain.Candidate) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime time.Time          `json:"export_time"`
		Summary    ExportSummary      `json:"summary"`
		Candidates []domain.Candidate `json:"candidates"`
	}{
		ExportTime: time.Now().UTC(),
		Summary:    calculateSummary(candidates),
		Candidates: candidates,
	}
	if exportData.Candidates == nil {
		exportData.Candidates = []domain.Candidate{}
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary contains summary statistics for an exported list
type ExportSummary struct {
	Candidates         int             `json:"candidates"`
	Liquidatable       int             `json:"liquidatable"`
	TotalWithdrawETH   decimal.Decimal `json:"total_withdraw_eth"`
	LowestHealthFactor string          `json:"lowest_health_factor,omitempty"`
	LargestWithdrawETH decimal.Decimal `json:"largest_withdraw_eth"`
	DistinctDebtAssets int             `json:"distinct_debt_assets"`
}

func calculateSummary(candidates []domain.Candidate) ExportSummary {
	summary := ExportSummary{Candidates: len(candidates)}
	if len(candidates) == 0 {
		return summary
	}

	var lowest decimal.NullDecimal
	debtAssets := make(map[string]bool)

	for _, c := range candidates {
		summary.TotalWithdrawETH = summary.TotalWithdrawETH.Add(c.MaxWithdrawableETH)
		if c.MaxWithdrawableETH.GreaterThan(summary.LargestWithdrawETH) {
			summary.LargestWithdrawETH = c.MaxWithdrawableETH
		}
		if c.HealthFactor.Valid && (!lowest.Valid || c.HealthFactor.Decimal.LessThan(lowest.Decimal)) {
			lowest = c.HealthFactor
		}
		if c.Liquidatable() {
			summary.Liquidatable++
		}
		if c.MaxDebt != nil {
			debtAssets[c.MaxDebt.Reserve.Hex()] = true
		}
	}

	if lowest.Valid {
		summary.LowestHealthFactor = lowest.Decimal.StringFixed(4)
	}
	summary.DistinctDebtAssets = len(debtAssets)
	return summary
}
