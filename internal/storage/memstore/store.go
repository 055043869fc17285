package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lunarbtc/moon-analyzer/internal/domain"
)

// Store holds the two loaded datasets for the life of the process.
// Rows are published whole, sorted by date, and never mutated after
// publication; readers share the published slices.
type Store struct {
	mu        sync.RWMutex
	moonRows  []domain.MoonRow
	priceRows []domain.PriceRow
	loadedAt  time.Time
}

func New() *Store {
	return &Store{}
}

// PublishMoon replaces the moon dataset with rows sorted ascending by
// date. The previous snapshot stays visible until the swap.
func (s *Store) PublishMoon(rows []domain.MoonRow) {
	sorted := make([]domain.MoonRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	s.mu.Lock()
	s.moonRows = sorted
	s.loadedAt = time.Now()
	s.mu.Unlock()
}

// PublishPrice replaces the price dataset, sorted ascending by date.
func (s *Store) PublishPrice(rows []domain.PriceRow) {
	sorted := make([]domain.PriceRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	s.mu.Lock()
	s.priceRows = sorted
	s.loadedAt = time.Now()
	s.mu.Unlock()
}

// MoonRows returns the published moon snapshot. Callers must not
// modify the returned slice.
func (s *Store) MoonRows() []domain.MoonRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.moonRows
}

// PriceRows returns the published price snapshot. Callers must not
// modify the returned slice.
func (s *Store) PriceRows() []domain.PriceRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.priceRows
}

// Ready reports whether both datasets have been published.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.moonRows != nil && s.priceRows != nil
}

func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// HealthCheck satisfies the readiness probe contract: an error while
// either dataset is missing.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.moonRows == nil {
		return fmt.Errorf("moon dataset not loaded")
	}
	if s.priceRows == nil {
		return fmt.Errorf("price dataset not loaded")
	}
	return nil
}

type Stats struct {
	MoonRows  int
	PriceRows int
	LoadedAt  time.Time
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		MoonRows:  len(s.moonRows),
		PriceRows: len(s.priceRows),
		LoadedAt:  s.loadedAt,
	}
}
