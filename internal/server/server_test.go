package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulliondeals/internal/logger"
	"bulliondeals/internal/metrics"
	"bulliondeals/internal/models"
)

func testProduct(name string, metal models.Metal, oz float64, price string) models.Product {
	p := models.Product{
		DealerID: models.DealerPerthMint,
		Dealer:   "Perth Mint",
		Name:     name,
		Metal:    metal,
		Type:     models.TypeCoin,
		WeightOz: oz,
		BuyPrice: decimal.NewNullDecimal(decimal.RequireFromString(price)),
		InStock:  true,
	}
	p.RecomputePricePerOz()

	return p
}

func testCatalog() *models.Catalog {
	return &models.Catalog{
		RunMetadata: models.RunMetadata{RunID: "run-1", TotalProducts: 3},
		Products: []models.Product{
			testProduct("1oz Kangaroo", models.MetalGold, 1, "3000"),
			testProduct("1/2oz Kangaroo", models.MetalGold, 0.5, "1550"),
			testProduct("1oz Kookaburra", models.MetalSilver, 1, "55"),
		},
	}
}

type countingSource struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (c *countingSource) Build(ctx context.Context) (*models.Catalog, error) {
	c.calls.Add(1)

	if c.delay > 0 {
		time.Sleep(c.delay)
	}

	if c.err != nil {
		return nil, c.err
	}

	return testCatalog(), nil
}

func newTestServer(t *testing.T, src Source) *httptest.Server {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics.NewRecorder(reg).SetProducts("perth_mint", 3)

	srv := httptest.NewServer(New(NewSnapshots(src, time.Minute), reg, 2, nil).Handler())
	t.Cleanup(srv.Close)

	return srv
}

func get(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url) //nolint:noctx // test
	require.NoError(t, err)

	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, &countingSource{err: errors.New("never called")})

	var body map[string]string

	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/healthz", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestServer_Catalog(t *testing.T) {
	srv := newTestServer(t, &countingSource{})

	var cat models.Catalog

	require.Equal(t, http.StatusOK, get(t, srv.URL+"/api/catalog", &cat))
	assert.Equal(t, "run-1", cat.RunID)
	assert.Len(t, cat.Products, 3)

	var silver models.Catalog

	require.Equal(t, http.StatusOK, get(t, srv.URL+"/api/catalog?metal=Silver", &silver))
	require.Len(t, silver.Products, 1)
	assert.Equal(t, "1oz Kookaburra", silver.Products[0].Name)

	var platinum models.Catalog

	require.Equal(t, http.StatusOK, get(t, srv.URL+"/api/catalog?metal=platinum", &platinum))
	assert.NotNil(t, platinum.Products)
	assert.Empty(t, platinum.Products)
}

func TestServer_Deals(t *testing.T) {
	srv := newTestServer(t, &countingSource{})

	var resp dealsResponse

	require.Equal(t, http.StatusOK, get(t, srv.URL+"/api/deals?metal=gold&target_oz=1", &resp))
	assert.Equal(t, "1oz", resp.TargetLabel)
	require.Len(t, resp.Deals, 2)
	assert.Equal(t, "3000", resp.Deals[0].TotalCost.String())
	assert.Equal(t, "2 × 1/2oz", resp.Deals[1].Description)

	var limited dealsResponse

	require.Equal(t, http.StatusOK, get(t, srv.URL+"/api/deals?metal=gold&target_oz=1&limit=1", &limited))
	assert.Len(t, limited.Deals, 1)

	var none dealsResponse

	require.Equal(t, http.StatusOK, get(t, srv.URL+"/api/deals?metal=platinum&target_oz=1", &none))
	assert.NotNil(t, none.Deals)
	assert.Empty(t, none.Deals)
}

func TestServer_DealsBadRequest(t *testing.T) {
	srv := newTestServer(t, &countingSource{})

	for _, query := range []string{
		"metal=copper&target_oz=1",
		"metal=gold",
		"metal=gold&target_oz=-1",
		"metal=gold&target_oz=abc",
		"metal=gold&target_oz=1&limit=-2",
	} {
		t.Run(query, func(t *testing.T) {
			var body errorResponse

			assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/api/deals?"+query, &body))
			assert.Equal(t, "invalid_argument", body.Code)
		})
	}
}

func TestServer_BestOf(t *testing.T) {
	srv := newTestServer(t, &countingSource{})

	var resp bestOfResponse

	require.Equal(t, http.StatusOK, get(t, srv.URL+"/api/best-of", &resp))
	require.Len(t, resp.BestOf, 5, "platinum has no options")
	assert.Equal(t, "1oz Gold", resp.BestOf[0].Label)
	assert.Len(t, resp.BestOf[0].Deals, 2)
	assert.Len(t, resp.BestOf[1].Deals, 2, "limit applies per target")
	assert.Equal(t, "1oz Silver", resp.BestOf[2].Label)
}

func TestServer_RequestLog(t *testing.T) {
	var buf bytes.Buffer

	log := logger.New("info", logger.FormatJSON, &buf)
	h := New(NewSnapshots(&countingSource{}, time.Minute), nil, 2, log).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, buf.String(), "request served", "successful requests log at debug")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/deals?metal=gold", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"status":400`)
	assert.Contains(t, buf.String(), `"path":"/api/deals"`)
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, requestLevel(http.StatusOK))
	assert.Equal(t, slog.LevelWarn, requestLevel(http.StatusNotFound))
	assert.Equal(t, slog.LevelError, requestLevel(http.StatusServiceUnavailable))
}

func TestServer_Unavailable(t *testing.T) {
	srv := newTestServer(t, &countingSource{err: errors.New("all dealers down")})

	var body errorResponse

	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv.URL+"/api/catalog", &body))
	assert.Equal(t, "unavailable", body.Code)
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, &countingSource{})

	resp, err := http.Get(srv.URL + "/metrics") //nolint:noctx // test
	require.NoError(t, err)

	defer resp.Body.Close()

	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, buf.String(), `bulliondeals_catalog_products{dealer="perth_mint"} 3`)
}

func TestSnapshots_CachesUntilExpiry(t *testing.T) {
	src := &countingSource{}
	snaps := NewSnapshots(src, 50*time.Millisecond)

	first, err := snaps.Current(context.Background())
	require.NoError(t, err)

	second, err := snaps.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, src.calls.Load())

	time.Sleep(80 * time.Millisecond)

	_, err = snaps.Current(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())

	snaps.Invalidate()

	_, err = snaps.Current(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, src.calls.Load())
}

func TestSnapshots_SingleRebuild(t *testing.T) {
	src := &countingSource{delay: 20 * time.Millisecond}
	snaps := NewSnapshots(src, time.Minute)

	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := snaps.Current(context.Background())
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.EqualValues(t, 1, src.calls.Load())
}

func TestSnapshots_StoreSeeds(t *testing.T) {
	src := &countingSource{}
	snaps := NewSnapshots(src, time.Minute)

	seeded := testCatalog()
	seeded.RunID = "seeded"
	snaps.Store(seeded)

	got, err := snaps.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "seeded", got.RunID)
	assert.Zero(t, src.calls.Load())
}

func TestSourceFunc(t *testing.T) {
	snaps := NewSnapshots(SourceFunc(func(context.Context) (*models.Catalog, error) {
		return nil, errors.New("boom")
	}), time.Minute)

	_, err := snaps.Current(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
