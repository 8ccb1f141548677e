package enrich

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/aave-liquidator/internal/domain"
)

var (
	dai  = common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f")
	usdc = common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	link = common.HexToAddress("0x514910771af9ca656af840dff83e8264ecf986ca")
)

type result struct {
	reserve common.Address
	amount  int64
	err     error
}

// fakeReader serves canned per-holder results and tracks concurrency.
type fakeReader struct {
	collateral map[common.Address]result
	debt       map[common.Address]result
	delay      time.Duration

	inFlight int32
	peak     int32
	calls    int32

	mu sync.Mutex
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		collateral: map[common.Address]result{},
		debt:       map[common.Address]result{},
	}
}

func (f *fakeReader) set(holder common.Address, collateral, debt result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collateral[holder] = collateral
	f.debt[holder] = debt
}

func (f *fakeReader) serve(ctx context.Context, table map[common.Address]result, holder common.Address) (domain.ReserveAmount, error) {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.ReserveAmount{}, ctx.Err()
		}
	}

	f.mu.Lock()
	r := table[holder]
	f.mu.Unlock()
	if r.err != nil {
		return domain.ReserveAmount{}, r.err
	}
	return domain.ReserveAmount{Reserve: r.reserve, Amount: big.NewInt(r.amount)}, nil
}

func (f *fakeReader) MaxCollateral(ctx context.Context, holder common.Address) (domain.ReserveAmount, error) {
	return f.serve(ctx, f.collateral, holder)
}

func (f *fakeReader) MaxDebt(ctx context.Context, holder common.Address) (domain.ReserveAmount, error) {
	return f.serve(ctx, f.debt, holder)
}

func holderN(n int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0x1000 + n)))
}

func candidates(n int) []domain.Candidate {
	out := make([]domain.Candidate, n)
	for i := range out {
		out[i] = domain.NewCandidate(domain.RawPosition{Holder: holderN(i), ReserveSymbol: "DAI"})
	}
	return out
}

func TestEnrichFiltersAndKeepsOrder(t *testing.T) {
	reader := newFakeReader()
	reader.set(holderN(0), result{reserve: dai, amount: 10}, result{reserve: usdc, amount: 5})
	reader.set(holderN(1), result{reserve: dai, amount: 10}, result{reserve: dai, amount: 5})
	reader.set(holderN(2), result{reserve: domain.ZeroAddress}, result{reserve: usdc, amount: 1})
	reader.set(holderN(3), result{reserve: link, amount: 3}, result{reserve: domain.ZeroAddress})
	reader.set(holderN(4), result{reserve: link, amount: 7}, result{reserve: dai, amount: 2})

	e := NewEnricher(reader, Config{Workers: 2}, zaptest.NewLogger(t))
	out, err := e.Enrich(context.Background(), candidates(5))
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, holderN(0), out[0].Holder)
	assert.Equal(t, holderN(4), out[1].Holder)
	for _, c := range out {
		require.NotNil(t, c.MaxCollateral)
		require.NotNil(t, c.MaxDebt)
		assert.NotEqual(t, domain.ZeroAddress, c.MaxCollateral.Reserve)
		assert.NotEqual(t, domain.ZeroAddress, c.MaxDebt.Reserve)
		assert.NotEqual(t, c.MaxCollateral.Reserve, c.MaxDebt.Reserve)
	}
	assert.Equal(t, int64(7), out[1].MaxCollateral.Amount.Int64())
}

func TestEnrichIdempotent(t *testing.T) {
	reader := newFakeReader()
	reader.set(holderN(0), result{reserve: dai, amount: 10}, result{reserve: usdc, amount: 5})
	e := NewEnricher(reader, Config{}, zaptest.NewLogger(t))

	input := candidates(1)
	first, err := e.Enrich(context.Background(), input)
	require.NoError(t, err)
	second, err := e.Enrich(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Nil(t, input[0].MaxCollateral, "input must not be mutated")

	again, err := e.Enrich(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestEnrichAllOrNothing(t *testing.T) {
	reader := newFakeReader()
	for i := 0; i < 6; i++ {
		reader.set(holderN(i), result{reserve: dai, amount: 1}, result{reserve: usdc, amount: 1})
	}
	boom := errors.New("execution reverted")
	reader.set(holderN(3), result{reserve: dai, amount: 1}, result{err: boom})

	e := NewEnricher(reader, Config{Workers: 3}, zaptest.NewLogger(t))
	out, err := e.Enrich(context.Background(), candidates(6))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrEnrichment)
	assert.ErrorIs(t, err, boom)

	var ee *EnrichmentError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, holderN(3), ee.Holder)
	assert.Equal(t, CallMaxDebt, ee.Call)
}

func TestEnrichIsolatePolicy(t *testing.T) {
	reader := newFakeReader()
	reader.set(holderN(0), result{reserve: dai, amount: 1}, result{reserve: usdc, amount: 1})
	reader.set(holderN(1), result{err: errors.New("timeout")}, result{reserve: usdc, amount: 1})
	reader.set(holderN(2), result{reserve: link, amount: 1}, result{reserve: usdc, amount: 1})

	e := NewEnricher(reader, Config{Policy: Isolate}, zaptest.NewLogger(t))
	out, err := e.Enrich(context.Background(), candidates(3))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, holderN(0), out[0].Holder)
	assert.Equal(t, holderN(2), out[1].Holder)
}

func TestEnrichRespectsWorkerLimit(t *testing.T) {
	reader := newFakeReader()
	reader.delay = 20 * time.Millisecond
	for i := 0; i < 12; i++ {
		reader.set(holderN(i), result{reserve: dai, amount: 1}, result{reserve: usdc, amount: 1})
	}

	e := NewEnricher(reader, Config{Workers: 3}, zaptest.NewLogger(t))
	out, err := e.Enrich(context.Background(), candidates(12))
	require.NoError(t, err)
	assert.Len(t, out, 12)

	assert.Equal(t, int32(24), atomic.LoadInt32(&reader.calls))
	// two reads per candidate, three candidates at a time
	assert.LessOrEqual(t, atomic.LoadInt32(&reader.peak), int32(6))
	assert.Greater(t, atomic.LoadInt32(&reader.peak), int32(1))
}

func TestEnrichCallTimeout(t *testing.T) {
	reader := newFakeReader()
	reader.delay = time.Second
	reader.set(holderN(0), result{reserve: dai, amount: 1}, result{reserve: usdc, amount: 1})

	e := NewEnricher(reader, Config{CallTimeout: 20 * time.Millisecond}, zaptest.NewLogger(t))
	start := time.Now()
	_, err := e.Enrich(context.Background(), candidates(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEnrichment)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestEnrichCancelledContext(t *testing.T) {
	reader := newFakeReader()
	reader.set(holderN(0), result{reserve: dai, amount: 1}, result{reserve: usdc, amount: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEnricher(reader, Config{Policy: Isolate}, zaptest.NewLogger(t))
	_, err := e.Enrich(ctx, candidates(1))
	assert.ErrorIs(t, err, ErrEnrichment)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnrichEmpty(t *testing.T) {
	e := NewEnricher(newFakeReader(), Config{}, zaptest.NewLogger(t))
	out, err := e.Enrich(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
