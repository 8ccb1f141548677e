package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/aave-liquidator/internal/config"
	"github.com/rovshanmuradov/aave-liquidator/internal/export"
	"github.com/rovshanmuradov/aave-liquidator/internal/feed"
	"github.com/rovshanmuradov/aave-liquidator/internal/utils/logger"
)

type unreachableCaller struct{}

func (unreachableCaller) Call(context.Context, string, ethereum.CallMsg) ([]byte, error) {
	return nil, errors.New("no node in tests")
}

func testRunner(t *testing.T, listingURL string) (*Runner, *bytes.Buffer) {
	t.Helper()
	log, err := logger.New(&logger.Config{Development: true})
	require.NoError(t, err)

	cfg := &config.Config{
		ListingURL:          listingURL,
		RPCList:             []string{"http://127.0.0.1:8545"},
		LiquidationContract: "0x1111111111111111111111111111111111111111",
		LendingPool:         config.DefaultLendingPool,
		NativeSymbol:        config.DefaultNativeSymbol,
		Workers:             2,
		Retries:             0,
		RefreshDelay:        time.Hour,
		FetchTimeout:        time.Second,
		CallTimeout:         time.Second,
	}

	r := NewRunner(cfg, log)
	require.NoError(t, r.assemble(unreachableCaller{}, nil))
	var out bytes.Buffer
	r.out = &out
	t.Cleanup(r.Shutdown)
	return r, &out
}

func TestRunOnceEmptyListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	r, out := testRunner(t, srv.URL)
	require.NoError(t, r.Run(context.Background(), ModeOnce))

	var exported struct {
		Summary struct {
			Candidates int `json:"candidates"`
		} `json:"summary"`
		Candidates []json.RawMessage `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &exported))
	assert.Zero(t, exported.Summary.Candidates)
	assert.NotNil(t, exported.Candidates)
	assert.Empty(t, exported.Candidates)
}

func TestRunOnceCSVToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	r, out := testRunner(t, srv.URL)
	r.SetExport(export.ExportOptions{Format: export.FormatCSV, OutputDir: dir})
	require.NoError(t, r.Run(context.Background(), ModeOnce))
	assert.Empty(t, out.String())

	files, err := filepath.Glob(filepath.Join(dir, "candidates_all_*.csv"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	content, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "rank,holder,"))
}

func TestRunOnceFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r, out := testRunner(t, srv.URL)
	err := r.Run(context.Background(), ModeOnce)
	require.Error(t, err)
	assert.ErrorIs(t, err, feed.ErrFetch)
	assert.Empty(t, out.String())
}

func TestRunWatchStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	r, _ := testRunner(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, r.Run(ctx, ModeWatch))
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"once", "watch", "serve"} {
		m, err := ParseMode(s)
		require.NoError(t, err)
		assert.Equal(t, Mode(s), m)
	}
	_, err := ParseMode("trade")
	assert.Error(t, err)
}
