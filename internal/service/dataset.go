package service

import (
	"context"

	"github.com/lunarbtc/moon-analyzer/internal/domain"
	"github.com/lunarbtc/moon-analyzer/internal/ingestion"
	"github.com/lunarbtc/moon-analyzer/internal/storage/memstore"
)

// DatasetService answers questions about the loaded datasets
// themselves rather than the aggregation.
type DatasetService struct {
	store *memstore.Store
}

func NewDatasetService(store *memstore.Store) *DatasetService {
	return &DatasetService{store: store}
}

// ListCycles returns the recorded New-Moon-to-New-Moon spans. The
// dataset restates a phase once per day for the days it covers, so a
// cycle starts at the first day of each New Moon run; runs are split
// on gaps of more than two days.
func (s *DatasetService) ListCycles(ctx context.Context) ([]domain.LunarCycle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dates := NewMoonDates(s.store.MoonRows())

	var starts []int
	for i := range dates {
		if i == 0 || dates[i].Sub(dates[i-1]).Hours() > 48 {
			starts = append(starts, i)
		}
	}

	var cycles []domain.LunarCycle
	for i := 0; i+1 < len(starts); i++ {
		start := dates[starts[i]]
		end := dates[starts[i+1]]
		cycles = append(cycles, domain.LunarCycle{
			Start: start,
			End:   end,
			Days:  int(end.Sub(start).Hours() / 24),
		})
	}

	return cycles, nil
}

// Stats describes both datasets: row counts, date spans, missing
// values, and per-phase sample counts for the moon dataset.
func (s *DatasetService) Stats(ctx context.Context) ([]domain.DatasetStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	moonRows := s.store.MoonRows()
	priceRows := s.store.PriceRows()

	moonStats := domain.DatasetStats{
		Dataset:     ingestion.DatasetMoon,
		Rows:        len(moonRows),
		PhaseCounts: make(map[domain.Phase]int, len(domain.CanonicalPhases)),
	}
	if len(moonRows) > 0 {
		first, last := moonRows[0].Date, moonRows[len(moonRows)-1].Date
		moonStats.FirstDate = &first
		moonStats.LastDate = &last
	}
	for _, row := range moonRows {
		moonStats.PhaseCounts[row.Phase]++
		if !row.PriceRangePercent.Valid {
			moonStats.MissingRange++
		}
	}

	priceStats := domain.DatasetStats{
		Dataset: ingestion.DatasetPrice,
		Rows:    len(priceRows),
	}
	if len(priceRows) > 0 {
		first, last := priceRows[0].Date, priceRows[len(priceRows)-1].Date
		priceStats.FirstDate = &first
		priceStats.LastDate = &last
	}
	for _, row := range priceRows {
		if !row.PriceRangePercent.Valid {
			priceStats.MissingRange++
		}
	}

	return []domain.DatasetStats{moonStats, priceStats}, nil
}
