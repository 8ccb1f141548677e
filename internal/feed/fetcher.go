// internal/feed/fetcher.go
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/aave-liquidator/internal/domain"
)

const (
	DefaultListingURL   = "https://protocol-api.aave.com/data/users/liquidations"
	DefaultNativeSymbol = "ETH"
	DefaultTimeout      = 10 * time.Second

	maxBodySize = 32 << 20
)

// Config controls where the listing is read from and what is considered eligible.
type Config struct {
	URL          string
	NativeSymbol string
	Timeout      time.Duration
}

// Fetcher retrieves the liquidation listing and turns it into ranked candidates.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	logger  *zap.Logger
	maxBody int64
}

// NewFetcher создает новый экземпляр Fetcher
func NewFetcher(cfg Config, client *http.Client, logger *zap.Logger) *Fetcher {
	if cfg.URL == "" {
		cfg.URL = DefaultListingURL
	}
	if cfg.NativeSymbol == "" {
		cfg.NativeSymbol = DefaultNativeSymbol
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		cfg:     cfg,
		client:  client,
		logger:  logger.Named("fetcher"),
		maxBody: maxBodySize,
	}
}

// Fetch reads the listing once and returns eligible candidates ordered by
// max-withdrawable value, largest first. Failures are *FetchError.
func (f *Fetcher) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	body, err := f.download(ctx)
	if err != nil {
		return nil, err
	}

	records, err := decodeListing(body)
	if err != nil {
		return nil, newFetchError(f.cfg.URL, "decode", fmt.Errorf("%w: %v", ErrMalformedPayload, err))
	}

	positions := f.eligible(records)
	Rank(positions)

	candidates := make([]domain.Candidate, len(positions))
	for i, p := range positions {
		candidates[i] = domain.NewCandidate(p)
	}

	f.logger.Debug("Listing fetched",
		zap.Int("records", len(records)),
		zap.Int("candidates", len(candidates)))

	return candidates, nil
}

func (f *Fetcher) download(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, newFetchError(f.cfg.URL, "request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, newFetchError(f.cfg.URL, "get", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newFetchError(f.cfg.URL, "get", fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode))
	}

	// лишний байт отличает обрезанное тело от тела ровно на лимите
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, newFetchError(f.cfg.URL, "read", err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, newFetchError(f.cfg.URL, "read",
			fmt.Errorf("%w: body too large (over %d bytes)", ErrMalformedPayload, f.maxBody))
	}
	return body, nil
}

// eligible drops zero-liquidity and native-asset records, plus records that
// cannot be interpreted at all.
func (f *Fetcher) eligible(records []listingRecord) []domain.RawPosition {
	out := make([]domain.RawPosition, 0, len(records))
	var zeroLiquidity, native, malformed int

	for _, r := range records {
		p, err := toPosition(r)
		if err != nil {
			malformed++
			f.logger.Debug("Skipping malformed listing record",
				zap.String("holder", r.User.ID),
				zap.Error(err))
			continue
		}
		if p.TotalLiquidityETH.IsZero() {
			zeroLiquidity++
			continue
		}
		if p.ReserveSymbol == f.cfg.NativeSymbol {
			native++
			continue
		}
		out = append(out, p)
	}

	if zeroLiquidity+native+malformed > 0 {
		f.logger.Debug("Listing records filtered",
			zap.Int("zero_liquidity", zeroLiquidity),
			zap.Int("native_asset", native),
			zap.Int("malformed", malformed))
	}
	return out
}

func toPosition(r listingRecord) (domain.RawPosition, error) {
	if !common.IsHexAddress(r.User.ID) {
		return domain.RawPosition{}, fmt.Errorf("invalid holder address %q", r.User.ID)
	}
	liquidity, err := parseDecimal("totalLiquidityETH", r.User.TotalLiquidityETH)
	if err != nil {
		return domain.RawPosition{}, err
	}
	withdrawable, err := parseDecimal("maxAmountToWithdrawInEth", r.User.MaxAmountToWithdrawInEth)
	if err != nil {
		return domain.RawPosition{}, err
	}
	// health factor is informational: an absent value keeps the record but stays unset
	var health decimal.NullDecimal
	if hf, err := parseDecimal("healthFactor", r.User.HealthFactor); err == nil {
		health = decimal.NewNullDecimal(hf)
	}

	return domain.RawPosition{
		Holder:             common.HexToAddress(r.User.ID),
		ReserveSymbol:      r.Reserve.Symbol,
		TotalLiquidityETH:  liquidity,
		MaxWithdrawableETH: withdrawable,
		HealthFactor:       health,
	}, nil
}

func parseDecimal(field string, v numericString) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(string(v))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// Rank sorts positions by max-withdrawable value, descending. Equal values keep
// their feed order.
func Rank(positions []domain.RawPosition) {
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].MaxWithdrawableETH.GreaterThan(positions[j].MaxWithdrawableETH)
	})
}
