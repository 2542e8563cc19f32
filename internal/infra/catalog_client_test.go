package infra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"local_currency/internal/domain"
)

func testConfig(url string) *Config {
	cfg := Default()
	cfg.Catalog.Source = "http"
	cfg.API.CatalogURL = url
	cfg.API.SettingsURL = url
	cfg.API.Retries = 2
	return cfg
}

// fastClients shrinks retry delays so tests do not sleep.
func fastClients(clients ...*apiClient) {
	for _, c := range clients {
		c.backoff = Backoff{Base: time.Millisecond, Max: 2 * time.Millisecond}
	}
}

const catalogJSON = `{
  "currencies": [
    {"symbol": "USD", "name": "US Dollar", "is_crypto": false},
    {"symbol": "BTC", "name": "Bitcoin", "is_crypto": true},
    {"symbol": "", "name": "Nameless"},
    {"symbol": "USD", "name": "US Dollar again"}
  ],
  "pairs": [
    {"base": "BTC", "quote": "USD", "price": "67000.50"},
    {"base": "EUR", "quote": "USD", "price": 1.08}
  ]
}`

func TestHTTPCatalogSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogJSON))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.API.Token = "tok"
	src := NewHTTPCatalogSource(cfg)

	cat, err := src.FetchCurrencies(context.Background())
	require.NoError(t, err)

	require.Len(t, cat.Currencies, 2, "blank and duplicate symbols dropped")
	assert.Equal(t, "USD", cat.Currencies[0].Symbol)
	assert.True(t, cat.Currencies[1].IsCrypto)

	require.Len(t, cat.Pairs, 2)
	assert.True(t, decimal.RequireFromString("67000.50").Equal(cat.Pairs[0].Price))
	assert.True(t, decimal.RequireFromString("1.08").Equal(cat.Pairs[1].Price))
}

func TestHTTPCatalogSource_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(catalogJSON))
	}))
	defer srv.Close()

	src := NewHTTPCatalogSource(testConfig(srv.URL))
	fastClients(src.client)

	cat, err := src.FetchCurrencies(context.Background())
	require.NoError(t, err)
	assert.Len(t, cat.Currencies, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPCatalogSource_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Access denied"})
	}))
	defer srv.Close()

	src := NewHTTPCatalogSource(testConfig(srv.URL))
	fastClients(src.client)

	_, err := src.FetchCurrencies(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Status)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, "Access denied", domain.UserMessage(err))
}

func TestHTTPCatalogSource_NetworkErrorHasNoUserMessage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := testConfig(url)
	cfg.API.Retries = 0
	src := NewHTTPCatalogSource(cfg)

	_, err := src.FetchCurrencies(context.Background())
	require.Error(t, err)
	assert.Empty(t, domain.UserMessage(err), "the screen falls back to its generic text")
}

func TestHTTPCatalogSource_BadJSON(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"currencies": [`))
	}))
	defer srv.Close()

	src := NewHTTPCatalogSource(testConfig(srv.URL))
	fastClients(src.client)

	_, err := src.FetchCurrencies(context.Background())
	assert.ErrorIs(t, err, errDecode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPCatalogSource_CircuitOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.API.Retries = 0
	src := NewHTTPCatalogSource(cfg)
	src.client.breaker = NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "catalog",
		FailureThreshold: 2,
		Cooldown:         time.Hour,
	})

	for i := 0; i < 2; i++ {
		_, err := src.FetchCurrencies(context.Background())
		require.Error(t, err)
	}

	_, err := src.FetchCurrencies(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, msgUnavailable, domain.UserMessage(err))
	assert.Equal(t, int32(2), calls.Load(), "open breaker short-circuits")
}

func TestHTTPCatalogSource_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewHTTPCatalogSource(testConfig(srv.URL))
	src.client.backoff = Backoff{Base: time.Hour, Max: time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := src.FetchCurrencies(ctx)
	require.Error(t, err)
}

func TestHTTPCommitter_Commit(t *testing.T) {
	var got commitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewHTTPCommitter(testConfig(srv.URL))
	require.NoError(t, c.Commit(context.Background(), "EUR"))
	assert.Equal(t, "EUR", got.Symbol)
}

func TestHTTPCommitter_RejectedCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Currency not supported in your region"}`))
	}))
	defer srv.Close()

	c := NewHTTPCommitter(testConfig(srv.URL))
	err := c.Commit(context.Background(), "XAF")
	require.Error(t, err)

	var pe domain.PresentableError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "Currency not supported in your region", pe.Presentable())
	assert.Contains(t, err.Error(), "status 422")
}

func TestFileCatalogSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
currencies:
  - {symbol: USD, name: US Dollar}
  - {symbol: EUR, name: Euro}
  - {symbol: ETH, name: Ether, is_crypto: true}
pairs:
  - {base: EUR, quote: USD, price: "1.0825"}
`), 0644))

	cat, err := NewFileCatalogSource(path).FetchCurrencies(context.Background())
	require.NoError(t, err)

	assert.Len(t, cat.Currencies, 3)
	assert.Len(t, domain.FiatOnly(cat.Currencies), 2)
	require.Len(t, cat.PairsFor("USD"), 1)
	assert.Equal(t, "1.0825", cat.Pairs[0].Price.String())
}

func TestFileCatalogSource_Errors(t *testing.T) {
	dir := t.TempDir()
	badPrice := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPrice, []byte("pairs:\n  - {base: EUR, quote: USD, price: abc}\n"), 0644))

	_, err := NewFileCatalogSource(filepath.Join(dir, "missing.yaml")).FetchCurrencies(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = NewFileCatalogSource(badPrice).FetchCurrencies(context.Background())
	assert.ErrorContains(t, err, "invalid price")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFileCatalogSource(badPrice).FetchCurrencies(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetrics_Recorder(t *testing.T) {
	m := NewMetrics("")
	m.CatalogLoaded(10*time.Millisecond, nil)
	m.CatalogLoaded(10*time.Millisecond, errors.New("boom"))
	m.CommitFinished(time.Millisecond, nil)
	m.StaleResultDiscarded("commit")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogLoads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogLoads.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commits.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleResults.WithLabelValues("commit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "local_currency_catalog_loads_total")
}
