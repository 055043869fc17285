package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/lunarbtc/moon-analyzer/internal/config"
	"github.com/lunarbtc/moon-analyzer/internal/domain"
	"github.com/lunarbtc/moon-analyzer/internal/ingestion"
	"github.com/lunarbtc/moon-analyzer/internal/service"
	"github.com/lunarbtc/moon-analyzer/internal/storage/memstore"
	"github.com/lunarbtc/moon-analyzer/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", true); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func rng(f float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(f))
}

func testApp(t *testing.T, loaded bool) *fiber.App {
	t.Helper()

	cfg := &config.Config{
		DefaultCycles: 12,
		RateLimit:     1000,
		AdminUser:     "admin",
		AdminPass:     "secret",
	}

	store := memstore.New()
	if loaded {
		store.PublishMoon([]domain.MoonRow{
			{Date: day(t, "2024-01-01"), Phase: domain.PhaseNewMoon, PriceRangePercent: rng(2.0)},
			{Date: day(t, "2024-01-08"), Phase: domain.PhaseFirstQuarter, PriceRangePercent: rng(3.0)},
			{Date: day(t, "2024-01-15"), Phase: domain.PhaseFullMoon, PriceRangePercent: rng(1.0)},
			{Date: day(t, "2024-01-23"), Phase: domain.PhaseLastQuarter, PriceRangePercent: rng(4.0)},
			{Date: day(t, "2024-01-31"), Phase: domain.PhaseNewMoon, PriceRangePercent: rng(2.5)},
		})
		store.PublishPrice([]domain.PriceRow{
			{Date: day(t, "2024-01-01"), PriceRangePercent: rng(2.0)},
			{Date: day(t, "2024-01-08"), PriceRangePercent: rng(3.0)},
			{Date: day(t, "2024-01-15"), PriceRangePercent: rng(1.0)},
			{Date: day(t, "2024-01-23"), PriceRangePercent: rng(4.0)},
			{Date: day(t, "2024-01-31"), PriceRangePercent: rng(2.5)},
		})
	}

	aggregationService := service.NewAggregationService(store)
	chartService := service.NewChartService(aggregationService)
	datasetService := service.NewDatasetService(store)
	parser := ingestion.NewParser(100, 2)
	ingestionService := service.NewIngestionService(parser, store, "no-such-moon.csv", "no-such-price.csv")

	handler := NewHandler(cfg, store, aggregationService, chartService, datasetService, ingestionService)

	app := fiber.New()
	SetupRoutes(app, handler)
	return app
}

func doJSON(t *testing.T, app *fiber.App, req *http.Request, dest interface{}) int {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestGetPhaseAggregationEndpoint(t *testing.T) {
	app := testApp(t, true)

	var response AggregationResponse
	status := doJSON(t, app,
		httptest.NewRequest(http.MethodGet, "/api/v1/phases/aggregation?cycles=1", nil),
		&response)

	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if response.PeriodAverage != "2.50" {
		t.Errorf("period average = %s, want 2.50", response.PeriodAverage)
	}
	if len(response.Summaries) != 4 {
		t.Fatalf("got %d summaries, want 4", len(response.Summaries))
	}
	if response.Summaries[0].Phase != domain.PhaseNewMoon || response.Summaries[0].AvgRange != "2.25" {
		t.Errorf("first summary = %+v", response.Summaries[0])
	}
	if response.WindowStart != "2024-01-01" {
		t.Errorf("window start = %s, want 2024-01-01", response.WindowStart)
	}
}

func TestGetPhaseAggregationRejectsInvalidCycles(t *testing.T) {
	app := testApp(t, true)

	for _, query := range []string{"cycles=2", "cycles=0", "cycles=-1", "cycles=999", "cycles=abc", "cycles=1.5"} {
		status := doJSON(t, app,
			httptest.NewRequest(http.MethodGet, "/api/v1/phases/aggregation?"+query, nil), nil)
		if status != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", query, status)
		}
	}
}

func TestGetPhaseAggregationDefaultsCycles(t *testing.T) {
	app := testApp(t, true)

	var response AggregationResponse
	status := doJSON(t, app,
		httptest.NewRequest(http.MethodGet, "/api/v1/phases/aggregation", nil), &response)

	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if response.Cycles != 12 {
		t.Errorf("cycles = %d, want the configured default 12", response.Cycles)
	}
}

func TestDataRoutesUnavailableBeforeLoad(t *testing.T) {
	app := testApp(t, false)

	for _, path := range []string{
		"/api/v1/phases/aggregation",
		"/api/v1/phases/chart",
		"/api/v1/cycles",
		"/api/v1/datasets/stats",
	} {
		status := doJSON(t, app, httptest.NewRequest(http.MethodGet, path, nil), nil)
		if status != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", path, status)
		}
	}

	status := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/ready", nil), nil)
	if status != http.StatusServiceUnavailable {
		t.Errorf("/ready status = %d, want 503", status)
	}
}

func TestGetChartEndpoint(t *testing.T) {
	app := testApp(t, true)

	var chart service.ChartData
	status := doJSON(t, app,
		httptest.NewRequest(http.MethodGet, "/api/v1/phases/chart?cycles=1", nil),
		&chart)

	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if len(chart.Labels) != 4 || len(chart.Tooltips) != 4 {
		t.Fatalf("chart = %+v", chart)
	}
	for _, val := range chart.PeriodAvgSeries {
		if val != "2.50" {
			t.Errorf("period avg series value = %s, want 2.50", val)
		}
	}
}

func TestGetPeriodsEndpoint(t *testing.T) {
	app := testApp(t, true)

	var response PeriodsResponse
	status := doJSON(t, app,
		httptest.NewRequest(http.MethodGet, "/api/v1/periods", nil), &response)

	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if response.Default != 12 {
		t.Errorf("default = %d, want 12", response.Default)
	}
	if len(response.Options) != len(domain.PeriodOptions) {
		t.Fatalf("got %d options, want %d", len(response.Options), len(domain.PeriodOptions))
	}
	if response.Options[0].Label != "1 cycle (~30 days)" {
		t.Errorf("first label = %q", response.Options[0].Label)
	}
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	app := testApp(t, true)

	status := doJSON(t, app,
		httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil), nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", status)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	// admin:secret
	req.Header.Set("Authorization", "Basic YWRtaW46c2VjcmV0")
	status = doJSON(t, app, req, nil)
	if status != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", status)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := testApp(t, false)

	var response HealthResponse
	status := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/health", nil), &response)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if response.Status != "healthy" {
		t.Errorf("status = %q, want healthy", response.Status)
	}
}
