package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lunarbtc/moon-analyzer/internal/domain"
	"github.com/lunarbtc/moon-analyzer/pkg/metrics"
)

// ChartService shapes an aggregation result into the payload the line
// chart consumes: four labels, the solid per-phase average series, the
// dashed constant period-average series, and one tooltip block per
// phase. All values are fixed to 2 decimals as strings.
type ChartService struct {
	aggregation *AggregationService
}

func NewChartService(aggregation *AggregationService) *ChartService {
	return &ChartService{aggregation: aggregation}
}

type PhaseTooltip struct {
	Phase       domain.Phase `json:"phase"`
	AvgRange    string       `json:"avg_range"`
	PeriodAvg   string       `json:"period_avg"`
	Diff        string       `json:"diff"`
	DiffPercent string       `json:"diff_percent"`
	MaxRange    string       `json:"max_range"`
	MinRange    string       `json:"min_range"`
	Count       int          `json:"count"`
}

type ChartData struct {
	Cycles          int            `json:"cycles"`
	PeriodLabel     string         `json:"period_label"`
	WindowStart     *time.Time     `json:"window_start,omitempty"`
	Labels          []string       `json:"labels"`
	AvgSeries       []string       `json:"avg_series"`
	PeriodAvgSeries []string       `json:"period_avg_series"`
	Tooltips        []PhaseTooltip `json:"tooltips"`
}

func (s *ChartService) GetChartData(ctx context.Context, periodCycles int) (*ChartData, error) {
	result, err := s.aggregation.GetPhaseAggregation(ctx, periodCycles)
	if err != nil {
		return nil, err
	}

	metrics.ChartRequests.Inc()

	chart := &ChartData{
		Cycles:          result.Cycles,
		PeriodLabel:     domain.PeriodLabel(result.Cycles),
		WindowStart:     result.WindowStart,
		Labels:          make([]string, 0, len(result.Summaries)),
		AvgSeries:       make([]string, 0, len(result.Summaries)),
		PeriodAvgSeries: make([]string, 0, len(result.Summaries)),
		Tooltips:        make([]PhaseTooltip, 0, len(result.Summaries)),
	}

	for _, summary := range result.Summaries {
		chart.Labels = append(chart.Labels, string(summary.Phase))
		chart.AvgSeries = append(chart.AvgSeries, summary.AvgRange.StringFixed(2))
		chart.PeriodAvgSeries = append(chart.PeriodAvgSeries, summary.PeriodAvg.StringFixed(2))

		diff := summary.AvgRange.Sub(summary.PeriodAvg)
		diffPercent := decimal.Zero
		if !summary.PeriodAvg.IsZero() {
			diffPercent = diff.Div(summary.PeriodAvg).Mul(decimal.NewFromInt(100)).Round(2)
		}

		chart.Tooltips = append(chart.Tooltips, PhaseTooltip{
			Phase:       summary.Phase,
			AvgRange:    summary.AvgRange.StringFixed(2),
			PeriodAvg:   summary.PeriodAvg.StringFixed(2),
			Diff:        diff.StringFixed(2),
			DiffPercent: diffPercent.StringFixed(2),
			MaxRange:    summary.MaxRange.StringFixed(2),
			MinRange:    summary.MinRange.StringFixed(2),
			Count:       summary.Count,
		})
	}

	return chart, nil
}
