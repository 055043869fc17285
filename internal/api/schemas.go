package api

import (
	"time"

	"github.com/lunarbtc/moon-analyzer/internal/domain"
)

type PhaseSummaryDTO struct {
	Phase     domain.Phase `json:"phase"`
	AvgRange  string       `json:"avg_range"`
	MaxRange  string       `json:"max_range"`
	MinRange  string       `json:"min_range"`
	Count     int          `json:"count"`
	PeriodAvg string       `json:"period_avg"`
}

type AggregationResponse struct {
	Cycles         int               `json:"cycles"`
	PeriodLabel    string            `json:"period_label"`
	WindowStart    string            `json:"window_start,omitempty"`
	PeriodAverage  string            `json:"period_average"`
	Summaries      []PhaseSummaryDTO `json:"summaries"`
	MoonRowCount   int               `json:"moon_row_count"`
	PriceRowCount  int               `json:"price_row_count"`
	ProcessingTime string            `json:"processing_time,omitempty"`
}

type PeriodOptionDTO struct {
	Cycles int    `json:"cycles"`
	Label  string `json:"label"`
}

type PeriodsResponse struct {
	Default int               `json:"default"`
	Options []PeriodOptionDTO `json:"options"`
}

type CyclesResponse struct {
	Cycles []LunarCycleDTO `json:"cycles"`
	Count  int             `json:"count"`
}

type LunarCycleDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

type DatasetStatsResponse struct {
	Datasets []DatasetStatsDTO `json:"datasets"`
	LoadedAt time.Time         `json:"loaded_at"`
}

type DatasetStatsDTO struct {
	Dataset      string         `json:"dataset"`
	Rows         int            `json:"rows"`
	FirstDate    string         `json:"first_date,omitempty"`
	LastDate     string         `json:"last_date,omitempty"`
	MissingRange int            `json:"missing_range"`
	PhaseCounts  map[string]int `json:"phase_counts,omitempty"`
}

type ReloadResponse struct {
	Status        string `json:"status"`
	MoonRows      int    `json:"moon_rows"`
	PriceRows     int    `json:"price_rows"`
	RejectedRows  int    `json:"rejected_rows"`
	MissingValues int    `json:"missing_values"`
	Duration      string `json:"duration"`
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Timestamp time.Time                `json:"timestamp"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

type ServiceHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SystemStatsResponse struct {
	Store StoreStats `json:"store"`
	API   APIStats   `json:"api"`
}

type StoreStats struct {
	MoonRows   int       `json:"moon_rows"`
	PriceRows  int       `json:"price_rows"`
	LoadedAt   time.Time `json:"loaded_at"`
	MemoryUsed string    `json:"memory_used"`
}

type APIStats struct {
	ActiveGoroutines int `json:"active_goroutines"`
}

type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
