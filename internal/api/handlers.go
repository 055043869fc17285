package api

import (
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lunarbtc/moon-analyzer/internal/config"
	"github.com/lunarbtc/moon-analyzer/internal/domain"
	"github.com/lunarbtc/moon-analyzer/internal/service"
	"github.com/lunarbtc/moon-analyzer/internal/storage/memstore"
	"github.com/lunarbtc/moon-analyzer/pkg/logger"
)

type Handler struct {
	cfg                *config.Config
	store              *memstore.Store
	aggregationService *service.AggregationService
	chartService       *service.ChartService
	datasetService     *service.DatasetService
	ingestionService   *service.IngestionService
}

func NewHandler(
	cfg *config.Config,
	store *memstore.Store,
	aggregationService *service.AggregationService,
	chartService *service.ChartService,
	datasetService *service.DatasetService,
	ingestionService *service.IngestionService,
) *Handler {
	return &Handler{
		cfg:                cfg,
		store:              store,
		aggregationService: aggregationService,
		chartService:       chartService,
		datasetService:     datasetService,
		ingestionService:   ingestionService,
	}
}

// cyclesParam validates the cycles query parameter against the
// selector set. The pure aggregation accepts any positive value; the
// API only exposes the documented options. An absent parameter falls
// back to the configured default; a non-numeric one is rejected.
func (h *Handler) cyclesParam(c *fiber.Ctx) (int, error) {
	cycles := h.cfg.DefaultCycles
	if raw := c.Query("cycles"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("cycles must be one of %v", domain.PeriodOptions)
		}
		cycles = parsed
	}
	if !domain.IsValidPeriod(cycles) {
		return 0, fmt.Errorf("cycles must be one of %v", domain.PeriodOptions)
	}
	return cycles, nil
}

func (h *Handler) requireData(c *fiber.Ctx) error {
	if h.store.Ready() {
		return nil
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
		Error:     "datasets not loaded",
		Code:      fiber.StatusServiceUnavailable,
		RequestID: getRequestID(c),
		Timestamp: time.Now(),
	})
}

func (h *Handler) GetPhaseAggregation(c *fiber.Ctx) error {
	start := time.Now()

	cycles, err := h.cyclesParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:     err.Error(),
			Code:      fiber.StatusBadRequest,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	if !h.store.Ready() {
		return h.requireData(c)
	}

	result, err := h.aggregationService.GetPhaseAggregation(c.Context(), cycles)
	if err != nil {
		logger.WithContext(c.Context()).Error("aggregation failed",
			zap.Int("cycles", cycles),
			zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:     "aggregation failed",
			Code:      fiber.StatusInternalServerError,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	response := AggregationResponse{
		Cycles:         result.Cycles,
		PeriodLabel:    domain.PeriodLabel(result.Cycles),
		PeriodAverage:  result.PeriodAverage.StringFixed(2),
		Summaries:      make([]PhaseSummaryDTO, 0, len(result.Summaries)),
		MoonRowCount:   result.MoonRowCount,
		PriceRowCount:  result.PriceRowCount,
		ProcessingTime: time.Since(start).String(),
	}
	if result.WindowStart != nil {
		response.WindowStart = result.WindowStart.Format("2006-01-02")
	}
	for _, summary := range result.Summaries {
		response.Summaries = append(response.Summaries, PhaseSummaryDTO{
			Phase:     summary.Phase,
			AvgRange:  summary.AvgRange.StringFixed(2),
			MaxRange:  summary.MaxRange.StringFixed(2),
			MinRange:  summary.MinRange.StringFixed(2),
			Count:     summary.Count,
			PeriodAvg: summary.PeriodAvg.StringFixed(2),
		})
	}

	return c.JSON(response)
}

func (h *Handler) GetChart(c *fiber.Ctx) error {
	cycles, err := h.cyclesParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:     err.Error(),
			Code:      fiber.StatusBadRequest,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	if !h.store.Ready() {
		return h.requireData(c)
	}

	chart, err := h.chartService.GetChartData(c.Context(), cycles)
	if err != nil {
		logger.WithContext(c.Context()).Error("chart build failed",
			zap.Int("cycles", cycles),
			zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:     "chart build failed",
			Code:      fiber.StatusInternalServerError,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	return c.JSON(chart)
}

func (h *Handler) GetPeriods(c *fiber.Ctx) error {
	response := PeriodsResponse{
		Default: h.cfg.DefaultCycles,
		Options: make([]PeriodOptionDTO, 0, len(domain.PeriodOptions)),
	}
	for _, cycles := range domain.PeriodOptions {
		response.Options = append(response.Options, PeriodOptionDTO{
			Cycles: cycles,
			Label:  domain.PeriodLabel(cycles),
		})
	}
	return c.JSON(response)
}

func (h *Handler) GetCycles(c *fiber.Ctx) error {
	if !h.store.Ready() {
		return h.requireData(c)
	}

	cycles, err := h.datasetService.ListCycles(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:     "cycle listing failed",
			Code:      fiber.StatusInternalServerError,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	response := CyclesResponse{
		Cycles: make([]LunarCycleDTO, 0, len(cycles)),
		Count:  len(cycles),
	}
	for _, cycle := range cycles {
		response.Cycles = append(response.Cycles, LunarCycleDTO{
			Start: cycle.Start.Format("2006-01-02"),
			End:   cycle.End.Format("2006-01-02"),
			Days:  cycle.Days,
		})
	}

	return c.JSON(response)
}

func (h *Handler) GetDatasetStats(c *fiber.Ctx) error {
	if !h.store.Ready() {
		return h.requireData(c)
	}

	stats, err := h.datasetService.Stats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:     "dataset stats failed",
			Code:      fiber.StatusInternalServerError,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	response := DatasetStatsResponse{
		Datasets: make([]DatasetStatsDTO, 0, len(stats)),
		LoadedAt: h.store.LoadedAt(),
	}
	for _, entry := range stats {
		dto := DatasetStatsDTO{
			Dataset:      entry.Dataset,
			Rows:         entry.Rows,
			MissingRange: entry.MissingRange,
		}
		if entry.FirstDate != nil {
			dto.FirstDate = entry.FirstDate.Format("2006-01-02")
		}
		if entry.LastDate != nil {
			dto.LastDate = entry.LastDate.Format("2006-01-02")
		}
		if len(entry.PhaseCounts) > 0 {
			dto.PhaseCounts = make(map[string]int, len(entry.PhaseCounts))
			for phase, count := range entry.PhaseCounts {
				dto.PhaseCounts[string(phase)] = count
			}
		}
		response.Datasets = append(response.Datasets, dto)
	}

	return c.JSON(response)
}

func (h *Handler) ReloadData(c *fiber.Ctx) error {
	start := time.Now()

	result, err := h.ingestionService.LoadAll(c.Context())
	if err != nil {
		logger.WithContext(c.Context()).Error("reload failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:     "reload failed",
			Code:      fiber.StatusInternalServerError,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	return c.JSON(ReloadResponse{
		Status:        "success",
		MoonRows:      result.MoonRows,
		PriceRows:     result.PriceRows,
		RejectedRows:  result.RejectedRows,
		MissingValues: result.MissingValues,
		Duration:      time.Since(start).String(),
	})
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Version:   "1.0.0",
		Timestamp: time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *fiber.Ctx) error {
	services := make(map[string]ServiceHealth)

	storeStart := time.Now()
	if err := h.store.HealthCheck(c.Context()); err != nil {
		services["store"] = ServiceHealth{
			Status: "unhealthy",
			Error:  err.Error(),
		}
	} else {
		services["store"] = ServiceHealth{
			Status:  "healthy",
			Latency: time.Since(storeStart).String(),
		}
	}

	status := "ready"
	for _, svc := range services {
		if svc.Status != "healthy" {
			status = "not_ready"
			break
		}
	}

	response := HealthResponse{
		Status:    status,
		Version:   "1.0.0",
		Timestamp: time.Now(),
		Services:  services,
	}

	if status != "ready" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}

	return c.JSON(response)
}

func (h *Handler) GetSystemStats(c *fiber.Ctx) error {
	storeStats := h.store.Stats()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := SystemStatsResponse{
		Store: StoreStats{
			MoonRows:   storeStats.MoonRows,
			PriceRows:  storeStats.PriceRows,
			LoadedAt:   storeStats.LoadedAt,
			MemoryUsed: fmt.Sprintf("%d MB", m.Alloc/1024/1024),
		},
		API: APIStats{
			ActiveGoroutines: runtime.NumGoroutine(),
		},
	}

	return c.JSON(response)
}

func getRequestID(c *fiber.Ctx) string {
	if id := c.Locals("requestID"); id != nil {
		return id.(string)
	}
	return ""
}
