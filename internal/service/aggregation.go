package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lunarbtc/moon-analyzer/internal/domain"
	"github.com/lunarbtc/moon-analyzer/internal/storage/memstore"
	"github.com/lunarbtc/moon-analyzer/pkg/logger"
	"github.com/lunarbtc/moon-analyzer/pkg/metrics"
)

// Aggregate joins the two datasets by moon phase over a lookback
// window of periodCycles lunar cycles. The window starts at the
// earliest of the last periodCycles+1 recorded New Moons (clamped to
// the available history) and is open-ended upward.
//
// The output always contains exactly four summaries in canonical
// phase order, each carrying the same period average. A dataset with
// no New Moon rows yields the all-zero result rather than an error.
// Pure function: the inputs are never mutated.
func Aggregate(moonRows []domain.MoonRow, priceRows []domain.PriceRow, periodCycles int) (*domain.AggregationResult, error) {
	if periodCycles < 1 {
		return nil, fmt.Errorf("period cycles must be at least 1, got %d", periodCycles)
	}

	result := &domain.AggregationResult{
		Cycles:    periodCycles,
		Summaries: make([]domain.PhaseSummary, 0, len(domain.CanonicalPhases)),
	}

	boundaries := NewMoonDates(moonRows)
	if len(boundaries) == 0 {
		for _, phase := range domain.CanonicalPhases {
			result.Summaries = append(result.Summaries, domain.PhaseSummary{Phase: phase})
		}
		return result, nil
	}

	take := periodCycles + 1
	if take > len(boundaries) {
		take = len(boundaries)
	}
	windowStart := boundaries[len(boundaries)-take]
	result.WindowStart = &windowStart

	type phaseAcc struct {
		sum   decimal.Decimal
		max   decimal.Decimal
		min   decimal.Decimal
		count int
	}
	accs := make(map[domain.Phase]*phaseAcc, len(domain.CanonicalPhases))

	for _, row := range moonRows {
		if row.Date.Before(windowStart) {
			continue
		}
		result.MoonRowCount++

		if !row.PriceRangePercent.Valid {
			continue
		}
		val := row.PriceRangePercent.Decimal

		acc, ok := accs[row.Phase]
		if !ok {
			accs[row.Phase] = &phaseAcc{sum: val, max: val, min: val, count: 1}
			continue
		}
		acc.sum = acc.sum.Add(val)
		if val.GreaterThan(acc.max) {
			acc.max = val
		}
		if val.LessThan(acc.min) {
			acc.min = val
		}
		acc.count++
	}

	var priceSum decimal.Decimal
	var priceCount int
	for _, row := range priceRows {
		if row.Date.Before(windowStart) {
			continue
		}
		result.PriceRowCount++

		if !row.PriceRangePercent.Valid {
			continue
		}
		priceSum = priceSum.Add(row.PriceRangePercent.Decimal)
		priceCount++
	}
	if priceCount > 0 {
		result.PeriodAverage = priceSum.Div(decimal.NewFromInt(int64(priceCount))).Round(2)
	}

	for _, phase := range domain.CanonicalPhases {
		summary := domain.PhaseSummary{
			Phase:     phase,
			PeriodAvg: result.PeriodAverage,
		}
		if acc, ok := accs[phase]; ok {
			summary.AvgRange = acc.sum.Div(decimal.NewFromInt(int64(acc.count))).Round(2)
			summary.MaxRange = acc.max.Round(2)
			summary.MinRange = acc.min.Round(2)
			summary.Count = acc.count
		}
		result.Summaries = append(result.Summaries, summary)
	}

	return result, nil
}

// NewMoonDates returns every recorded New Moon date in ascending
// order. These are the cycle boundaries the lookback window anchors
// on.
func NewMoonDates(moonRows []domain.MoonRow) []time.Time {
	var dates []time.Time
	for _, row := range moonRows {
		if row.Phase == domain.PhaseNewMoon {
			dates = append(dates, row.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates
}

// AggregationService runs the pure aggregation against the published
// store snapshot. Nothing is cached: every call recomputes from
// scratch, so a republished dataset is picked up immediately.
type AggregationService struct {
	store *memstore.Store
}

func NewAggregationService(store *memstore.Store) *AggregationService {
	return &AggregationService{store: store}
}

func (s *AggregationService) GetPhaseAggregation(ctx context.Context, periodCycles int) (*domain.AggregationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer := metrics.NewTimer()

	result, err := Aggregate(s.store.MoonRows(), s.store.PriceRows(), periodCycles)
	if err != nil {
		return nil, err
	}

	metrics.RecordAggregation(strconv.Itoa(periodCycles), timer.Elapsed().Seconds())
	logger.Debug("phase aggregation computed",
		zap.Int("cycles", periodCycles),
		zap.Int("moon_rows", result.MoonRowCount),
		zap.Int("price_rows", result.PriceRowCount),
		zap.String("period_average", result.PeriodAverage.StringFixed(2)))

	return result, nil
}
