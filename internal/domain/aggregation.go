package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PhaseSummary holds the windowed range statistics for one phase.
// Range fields are rounded to 2 decimal places; a phase with no valid
// samples in the window carries Count 0 and all range fields at zero.
type PhaseSummary struct {
	Phase     Phase           `json:"phase"`
	AvgRange  decimal.Decimal `json:"avg_range"`
	MaxRange  decimal.Decimal `json:"max_range"`
	MinRange  decimal.Decimal `json:"min_range"`
	Count     int             `json:"count"`
	PeriodAvg decimal.Decimal `json:"period_avg"`
}

// AggregationResult is the full output of one aggregation run: exactly
// four summaries in canonical phase order, all carrying the same
// period average.
type AggregationResult struct {
	Cycles        int             `json:"cycles"`
	WindowStart   *time.Time      `json:"window_start,omitempty"`
	PeriodAverage decimal.Decimal `json:"period_average"`
	Summaries     []PhaseSummary  `json:"summaries"`
	MoonRowCount  int             `json:"moon_row_count"`
	PriceRowCount int             `json:"price_row_count"`
}

// PeriodOptions are the lookback windows the selector exposes, in
// lunar cycles.
var PeriodOptions = []int{1, 3, 6, 12, 24, 36, 48, 60, 72, 84}

// IsValidPeriod reports whether cycles is one of the selector values.
func IsValidPeriod(cycles int) bool {
	for _, opt := range PeriodOptions {
		if opt == cycles {
			return true
		}
	}
	return false
}

// CycleDays approximates one lunar cycle for display labels only. The
// aggregation window itself is anchored on recorded New Moon dates.
const CycleDays = 29.5

// PeriodLabel renders a selector value for display, e.g.
// "12 cycles (~354 days)".
func PeriodLabel(cycles int) string {
	days := int(float64(cycles)*CycleDays + 0.5)
	if cycles == 1 {
		return fmt.Sprintf("1 cycle (~%d days)", days)
	}
	return fmt.Sprintf("%d cycles (~%d days)", cycles, days)
}

// DatasetStats describes one loaded dataset.
type DatasetStats struct {
	Dataset      string        `json:"dataset"`
	Rows         int           `json:"rows"`
	FirstDate    *time.Time    `json:"first_date,omitempty"`
	LastDate     *time.Time    `json:"last_date,omitempty"`
	MissingRange int           `json:"missing_range"`
	PhaseCounts  map[Phase]int `json:"phase_counts,omitempty"`
}
