package ingestion

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/lunarbtc/moon-analyzer/internal/storage/memstore"
	"github.com/lunarbtc/moon-analyzer/pkg/metrics"
)

// WorkerPool parses dataset files concurrently and publishes the
// resulting rows into the in-memory store.
type WorkerPool struct {
	workers  int
	parser   *Parser
	store    *memstore.Store
	jobQueue chan Job
	wg       sync.WaitGroup
}

type Job struct {
	FilePath string
	Dataset  string
	Result   chan<- JobResult
}

type JobResult struct {
	FilePath  string
	Dataset   string
	RowCount  int
	Missing   int
	RowErrors []error
	Error     error
}

func NewWorkerPool(workers int, parser *Parser, store *memstore.Store) *WorkerPool {
	return &WorkerPool{
		workers:  workers,
		parser:   parser,
		store:    store,
		jobQueue: make(chan Job, workers*2),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx)
	}
}

func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
}

func (wp *WorkerPool) Submit(job Job) {
	wp.jobQueue <- job
}

func (wp *WorkerPool) worker(ctx context.Context) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			result := wp.processFile(ctx, job)
			job.Result <- result
		}
	}
}

// processFile parses one file and, on success, atomically swaps the
// dataset it belongs to. A failed parse leaves the previous snapshot
// in place.
func (wp *WorkerPool) processFile(ctx context.Context, job Job) JobResult {
	result := JobResult{FilePath: job.FilePath, Dataset: job.Dataset}

	file, err := os.Open(job.FilePath)
	if err != nil {
		metrics.RecordDatasetLoad(job.Dataset, "error", 0)
		result.Error = fmt.Errorf("open file: %w", err)
		return result
	}
	defer file.Close()

	switch job.Dataset {
	case DatasetMoon:
		parsed, err := wp.parser.ParseMoonFile(ctx, file)
		if err != nil {
			metrics.RecordDatasetLoad(job.Dataset, "error", 0)
			result.Error = fmt.Errorf("parse %s: %w", job.FilePath, err)
			return result
		}
		wp.store.PublishMoon(parsed.Rows)
		result.RowCount = len(parsed.Rows)
		result.Missing = parsed.Missing
		result.RowErrors = parsed.Errors

	case DatasetPrice:
		parsed, err := wp.parser.ParsePriceFile(ctx, file)
		if err != nil {
			metrics.RecordDatasetLoad(job.Dataset, "error", 0)
			result.Error = fmt.Errorf("parse %s: %w", job.FilePath, err)
			return result
		}
		wp.store.PublishPrice(parsed.Rows)
		result.RowCount = len(parsed.Rows)
		result.Missing = parsed.Missing
		result.RowErrors = parsed.Errors

	default:
		result.Error = fmt.Errorf("unknown dataset %q", job.Dataset)
		return result
	}

	metrics.RecordDatasetLoad(job.Dataset, "success", result.RowCount)
	metrics.RecordRowsParsed(job.Dataset, "ok", result.RowCount)
	metrics.RecordRowsParsed(job.Dataset, "rejected", len(result.RowErrors))
	metrics.RecordMissingRange(job.Dataset, result.Missing)

	return result
}
