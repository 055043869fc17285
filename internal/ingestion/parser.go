package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lunarbtc/moon-analyzer/internal/domain"
)

// Dataset identifiers used across ingestion, storage and metrics.
const (
	DatasetMoon  = "moon"
	DatasetPrice = "price"
)

const dateLayout = "2006-01-02"

type Parser struct {
	batchSize int
	workers   int
}

func NewParser(batchSize, workers int) *Parser {
	return &Parser{
		batchSize: batchSize,
		workers:   workers,
	}
}

// RowError reports one rejected CSV row. Rejected rows never reach the
// aggregation pipeline.
type RowError struct {
	Line  int
	Field string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: invalid %s: %v", e.Line, e.Field, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

type MoonParseResult struct {
	Rows    []domain.MoonRow
	Errors  []error
	Missing int
}

type PriceParseResult struct {
	Rows    []domain.PriceRow
	Errors  []error
	Missing int
}

type columnMap struct {
	date   int
	phase  int
	rng    int
	fields int
}

// resolveColumns maps required column names to indexes from the header
// row. Extra columns are ignored; a missing required column fails the
// whole file.
func resolveColumns(header []string, needPhase bool) (columnMap, error) {
	cols := columnMap{date: -1, phase: -1, rng: -1, fields: len(header)}

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			cols.date = i
		case "phase":
			cols.phase = i
		case "price_range_percent":
			cols.rng = i
		}
	}

	if cols.date < 0 {
		return cols, fmt.Errorf("missing required column %q", "date")
	}
	if cols.rng < 0 {
		return cols, fmt.Errorf("missing required column %q", "price_range_percent")
	}
	if needPhase && cols.phase < 0 {
		return cols, fmt.Errorf("missing required column %q", "phase")
	}

	return cols, nil
}

type rawRecord struct {
	line   int
	fields []string
	err    error
}

// ParseMoonFile parses moon_bitcoin_merged.csv. Rows with an invalid
// date or unknown phase are rejected with a RowError; rows with a
// missing or non-numeric price_range_percent are kept with a null
// value.
func (p *Parser) ParseMoonFile(ctx context.Context, reader io.Reader) (*MoonParseResult, error) {
	csvReader := newCSVReader(reader)

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveColumns(header, true)
	if err != nil {
		return nil, err
	}

	jobs := make(chan rawRecord, p.workers*2)
	results := make(chan *MoonParseResult, p.workers)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch := &MoonParseResult{Rows: make([]domain.MoonRow, 0, p.batchSize)}
			for rec := range jobs {
				if rec.err != nil {
					batch.Errors = append(batch.Errors, rec.err)
					continue
				}
				row, missing, err := parseMoonRecord(cols, rec)
				if err != nil {
					batch.Errors = append(batch.Errors, err)
					continue
				}
				if missing {
					batch.Missing++
				}
				batch.Rows = append(batch.Rows, row)
			}
			results <- batch
		}()
	}

	// feedErr is written before jobs is closed, and the results loop
	// below only ends after the workers drained jobs, so reading it
	// afterwards is safe.
	var feedErr error
	go func() {
		defer close(jobs)
		feedErr = feedRecords(ctx, csvReader, jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	final := &MoonParseResult{Rows: make([]domain.MoonRow, 0, p.batchSize)}
	for batch := range results {
		final.Rows = append(final.Rows, batch.Rows...)
		final.Errors = append(final.Errors, batch.Errors...)
		final.Missing += batch.Missing
	}

	if feedErr != nil {
		return nil, feedErr
	}
	return final, nil
}

// ParsePriceFile parses bitcoin_daily_range.csv with the same row
// semantics as ParseMoonFile, minus the phase column.
func (p *Parser) ParsePriceFile(ctx context.Context, reader io.Reader) (*PriceParseResult, error) {
	csvReader := newCSVReader(reader)

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveColumns(header, false)
	if err != nil {
		return nil, err
	}

	jobs := make(chan rawRecord, p.workers*2)
	results := make(chan *PriceParseResult, p.workers)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch := &PriceParseResult{Rows: make([]domain.PriceRow, 0, p.batchSize)}
			for rec := range jobs {
				if rec.err != nil {
					batch.Errors = append(batch.Errors, rec.err)
					continue
				}
				row, missing, err := parsePriceRecord(cols, rec)
				if err != nil {
					batch.Errors = append(batch.Errors, err)
					continue
				}
				if missing {
					batch.Missing++
				}
				batch.Rows = append(batch.Rows, row)
			}
			results <- batch
		}()
	}

	var feedErr error
	go func() {
		defer close(jobs)
		feedErr = feedRecords(ctx, csvReader, jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	final := &PriceParseResult{Rows: make([]domain.PriceRow, 0, p.batchSize)}
	for batch := range results {
		final.Rows = append(final.Rows, batch.Rows...)
		final.Errors = append(final.Errors, batch.Errors...)
		final.Missing += batch.Missing
	}

	if feedErr != nil {
		return nil, feedErr
	}
	return final, nil
}

func newCSVReader(reader io.Reader) *csv.Reader {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.LazyQuotes = true
	// Short rows are validated per field so they surface as RowErrors
	// instead of being dropped by the reader.
	csvReader.FieldsPerRecord = -1
	return csvReader
}

// feedRecords streams data rows to the workers. A line the csv reader
// cannot split is forwarded as a RowError so it still gets reported; a
// cancelled context aborts the feed with ctx.Err so a partial read is
// never mistaken for a complete file.
func feedRecords(ctx context.Context, csvReader *csv.Reader, jobs chan<- rawRecord) error {
	// Header is line 1.
	line := 1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			record, err := csvReader.Read()
			if err == io.EOF {
				return nil
			}
			line++
			if err != nil {
				jobs <- rawRecord{line: line, err: &RowError{Line: line, Field: "record", Err: err}}
				continue
			}
			jobs <- rawRecord{line: line, fields: record}
		}
	}
}

func parseMoonRecord(cols columnMap, rec rawRecord) (domain.MoonRow, bool, error) {
	if len(rec.fields) < cols.fields {
		return domain.MoonRow{}, false, &RowError{
			Line:  rec.line,
			Field: "record",
			Err:   fmt.Errorf("expected %d fields, got %d", cols.fields, len(rec.fields)),
		}
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(rec.fields[cols.date]))
	if err != nil {
		return domain.MoonRow{}, false, &RowError{Line: rec.line, Field: "date", Err: err}
	}

	phase, err := domain.ParsePhase(rec.fields[cols.phase])
	if err != nil {
		return domain.MoonRow{}, false, &RowError{Line: rec.line, Field: "phase", Err: err}
	}

	rng, missing := parseRange(rec.fields[cols.rng])

	return domain.MoonRow{
		Date:              date,
		Phase:             phase,
		PriceRangePercent: rng,
	}, missing, nil
}

func parsePriceRecord(cols columnMap, rec rawRecord) (domain.PriceRow, bool, error) {
	if len(rec.fields) < cols.fields {
		return domain.PriceRow{}, false, &RowError{
			Line:  rec.line,
			Field: "record",
			Err:   fmt.Errorf("expected %d fields, got %d", cols.fields, len(rec.fields)),
		}
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(rec.fields[cols.date]))
	if err != nil {
		return domain.PriceRow{}, false, &RowError{Line: rec.line, Field: "date", Err: err}
	}

	rng, missing := parseRange(rec.fields[cols.rng])

	return domain.PriceRow{
		Date:              date,
		PriceRangePercent: rng,
	}, missing, nil
}

// parseRange treats an absent or non-numeric value as null rather than
// rejecting the row: the day is still a valid phase sample, it just
// contributes nothing to the statistics.
func parseRange(raw string) (decimal.NullDecimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, true
	}
	val, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, true
	}
	return decimal.NewNullDecimal(val), false
}
