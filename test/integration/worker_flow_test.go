package integration

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulliondeals/internal/catalog"
	"bulliondeals/internal/config"
	"bulliondeals/internal/formatter"
	"bulliondeals/internal/models"
	"bulliondeals/internal/optimizer"
	"bulliondeals/internal/server"
	"bulliondeals/pkg/metadata"
)

var fixtureDir = filepath.Join("..", "..", "internal", "crawler", "parsers", "testdata")

// dealerSite serves the recorded dealer pages. Paths listed in broken answer 500.
func dealerSite(t *testing.T, broken ...string) *httptest.Server {
	t.Helper()

	routes := map[string]string{
		"/ainslie/Charts":     "ainslie_charts.html",
		"/abc/store/gold":     "abc_gold.html",
		"/perth/api/coins":    "perth_coins.json",
		"/perth/api/castbars": "",
	}

	for _, path := range broken {
		delete(routes, path)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, ok := routes[r.URL.Path]
		if !ok {
			http.Error(w, "unavailable", http.StatusInternalServerError)

			return
		}

		if name == "" {
			_, _ = w.Write([]byte(`{"result":{}}`))

			return
		}

		data, err := os.ReadFile(filepath.Join(fixtureDir, name))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)

			return
		}

		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func siteConfig(base string) *config.Config {
	cfg := config.Default()
	cfg.Crawler.Retry.MaxAttempts = 1
	cfg.Crawler.Retry.InitialDelayMs = 1
	cfg.Crawler.Retry.TimeoutSec = 5
	cfg.Crawler.PolitenessDelayMs = 0
	cfg.Crawler.AdapterTimeoutSec = 10

	cfg.Crawler.Dealers[0].URL = base + "/ainslie"
	cfg.Crawler.Dealers[0].Pages = []config.PageConfig{{URL: base + "/ainslie/Charts"}}

	cfg.Crawler.Dealers[1].URL = base + "/abc"
	cfg.Crawler.Dealers[1].Pages = []config.PageConfig{{URL: base + "/abc/store/gold", Label: "gold"}}

	cfg.Crawler.Dealers[2].URL = base + "/perth"
	cfg.Crawler.Dealers[2].Pages = []config.PageConfig{
		{URL: base + "/perth/api/castbars", Label: "cast_bars"},
		{URL: base + "/perth/api/coins", Label: "coins"},
	}

	return cfg
}

func build(t *testing.T, cfg *config.Config) *models.Catalog {
	t.Helper()

	builder, err := catalog.NewBuilderFromConfig(cfg,
		catalog.WithRunID(func() string { return "integration" }),
		catalog.WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }))
	require.NoError(t, err)

	cat, err := builder.Build(context.Background())
	require.NoError(t, err)

	return cat
}

func dealerIDs(cat *models.Catalog) map[models.DealerID]int {
	counts := map[models.DealerID]int{}
	for _, p := range cat.Products {
		counts[p.DealerID]++
	}

	return counts
}

func TestWorkerFlow_AllDealers(t *testing.T) {
	site := dealerSite(t)
	cat := build(t, siteConfig(site.URL))

	assert.Equal(t, "integration", cat.RunID)
	assert.ElementsMatch(t, []models.DealerID{models.DealerAinslie, models.DealerABC, models.DealerPerthMint}, cat.DealersOK)
	assert.Empty(t, cat.DealersFailed)
	assert.Equal(t, len(cat.Products), cat.TotalProducts)

	counts := dealerIDs(cat)
	assert.Positive(t, counts[models.DealerAinslie])
	assert.Positive(t, counts[models.DealerABC])
	assert.Positive(t, counts[models.DealerPerthMint])

	for _, p := range cat.Products {
		assert.Positive(t, p.WeightOz, p.Name)
		require.True(t, p.BuyPrice.Valid, p.Name)
		assert.True(t, p.BuyPrice.Decimal.IsPositive(), p.Name)
		assert.True(t, p.PricePerOz.Valid, p.Name)
	}

	// catalog JSON survives a write and read
	var buf bytes.Buffer
	require.NoError(t, catalog.Encode(&buf, cat, true))

	reread, err := catalog.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, cat.TotalProducts, reread.TotalProducts)
	require.Len(t, reread.Products, len(cat.Products))

	for i := range cat.Products {
		assert.Equal(t, cat.Products[i].Name, reread.Products[i].Name)
		assert.True(t, cat.Products[i].BuyPrice.Decimal.Equal(reread.Products[i].BuyPrice.Decimal))
	}

	// deals are ordered by total cost
	deals := optimizer.FindBestDeals(cat, models.MetalGold, 1)
	require.NotEmpty(t, deals)

	for i := 1; i < len(deals); i++ {
		assert.LessOrEqual(t, deals[i-1].TotalCost.Cmp(deals[i].TotalCost), 0)
	}

	// report carries a valid signature for this run
	report := formatter.Report(cat, optimizer.BestOf(cat, optimizer.DefaultTargets(), 5))
	assert.Contains(t, report, "## Gold")
	assert.Contains(t, report, "### 1oz Gold")

	ok, err := metadata.Verify(report)
	require.NoError(t, err)
	assert.True(t, ok)

	meta, _ := metadata.Extract(report)
	require.NotNil(t, meta)
	assert.Equal(t, "integration", meta.RunID)
}

func TestWorkerFlow_DealerDown(t *testing.T) {
	site := dealerSite(t, "/abc/store/gold")
	cat := build(t, siteConfig(site.URL))

	assert.Equal(t, []models.DealerID{models.DealerABC}, cat.DealersFailed)
	assert.ElementsMatch(t, []models.DealerID{models.DealerAinslie, models.DealerPerthMint}, cat.DealersOK)
	assert.Zero(t, dealerIDs(cat)[models.DealerABC])
}

func TestWorkerFlow_Deterministic(t *testing.T) {
	site := dealerSite(t)
	cfg := siteConfig(site.URL)

	first := build(t, cfg)
	second := build(t, cfg)

	assert.Equal(t, first.Products, second.Products)
}

func TestWorkerFlow_SelectDealer(t *testing.T) {
	site := dealerSite(t)

	cfg, err := siteConfig(site.URL).Select(string(models.DealerPerthMint))
	require.NoError(t, err)

	cat := build(t, cfg)
	assert.Equal(t, []models.DealerID{models.DealerPerthMint}, cat.DealersOK)
	assert.Equal(t, map[models.DealerID]int{models.DealerPerthMint: cat.TotalProducts}, dealerIDs(cat))
}

func TestWorkerFlow_ServeDeals(t *testing.T) {
	site := dealerSite(t)
	builder, err := catalog.NewBuilderFromConfig(siteConfig(site.URL))
	require.NoError(t, err)

	api := httptest.NewServer(server.New(server.NewSnapshots(builder, time.Minute), nil, 3, nil).Handler())
	t.Cleanup(api.Close)

	resp, err := http.Get(api.URL + "/api/deals?metal=gold&target_oz=1") //nolint:noctx // test
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		TargetLabel string              `json:"target_label"`
		Deals       []models.DealOption `json:"deals"`
	}

	require.NoError(t, decode(resp, &body))
	assert.Equal(t, "1oz", body.TargetLabel)
	assert.NotEmpty(t, body.Deals)
}

func decode(resp *http.Response, v any) error {
	return jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(resp.Body).Decode(v)
}
