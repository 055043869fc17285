package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lunarbtc/moon-analyzer/internal/ingestion"
	"github.com/lunarbtc/moon-analyzer/internal/storage/memstore"
	"github.com/lunarbtc/moon-analyzer/pkg/logger"
)

// IngestionService loads both dataset files through the ingestion
// worker pool and publishes them into the store. One-shot per call:
// no retry, and a failed file leaves its previous snapshot in place.
type IngestionService struct {
	parser    *ingestion.Parser
	store     *memstore.Store
	moonPath  string
	pricePath string
}

func NewIngestionService(parser *ingestion.Parser, store *memstore.Store, moonPath, pricePath string) *IngestionService {
	return &IngestionService{
		parser:    parser,
		store:     store,
		moonPath:  moonPath,
		pricePath: pricePath,
	}
}

type LoadResult struct {
	MoonRows      int
	PriceRows     int
	RejectedRows  int
	MissingValues int
}

// LoadAll ingests both CSV files. Row-level rejects are logged and
// counted, not fatal; an unreadable or headerless file fails the call.
func (s *IngestionService) LoadAll(ctx context.Context) (*LoadResult, error) {
	pool := ingestion.NewWorkerPool(2, s.parser, s.store)
	pool.Start(ctx)
	defer pool.Stop()

	results := make(chan ingestion.JobResult, 2)
	pool.Submit(ingestion.Job{FilePath: s.moonPath, Dataset: ingestion.DatasetMoon, Result: results})
	pool.Submit(ingestion.Job{FilePath: s.pricePath, Dataset: ingestion.DatasetPrice, Result: results})

	total := &LoadResult{}
	var loadErr error

	for i := 0; i < 2; i++ {
		var result ingestion.JobResult
		select {
		case result = <-results:
		case <-ctx.Done():
			return total, fmt.Errorf("load aborted: %w", ctx.Err())
		}
		if result.Error != nil {
			logger.Error("dataset load failed",
				zap.String("dataset", result.Dataset),
				zap.String("file", result.FilePath),
				zap.Error(result.Error))
			loadErr = fmt.Errorf("load %s dataset: %w", result.Dataset, result.Error)
			continue
		}

		switch result.Dataset {
		case ingestion.DatasetMoon:
			total.MoonRows = result.RowCount
		case ingestion.DatasetPrice:
			total.PriceRows = result.RowCount
		}
		total.RejectedRows += len(result.RowErrors)
		total.MissingValues += result.Missing

		for j, rowErr := range result.RowErrors {
			if j >= 5 {
				logger.Warn("more rows rejected",
					zap.String("dataset", result.Dataset),
					zap.Int("omitted", len(result.RowErrors)-5))
				break
			}
			logger.Warn("row rejected",
				zap.String("dataset", result.Dataset),
				zap.Error(rowErr))
		}

		logger.Info("dataset loaded",
			zap.String("dataset", result.Dataset),
			zap.String("file", result.FilePath),
			zap.Int("rows", result.RowCount),
			zap.Int("rejected", len(result.RowErrors)),
			zap.Int("missing_values", result.Missing))
	}

	if loadErr != nil {
		return total, loadErr
	}
	return total, nil
}
