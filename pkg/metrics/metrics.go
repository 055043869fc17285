package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RowsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rows_parsed_total",
		Help: "Total number of CSV rows parsed",
	}, []string{"dataset", "status"})

	MissingRangeValues = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "missing_range_values_total",
		Help: "Rows whose price_range_percent was absent or non-numeric",
	}, []string{"dataset"})

	DatasetRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dataset_rows",
		Help: "Rows currently published in the in-memory store",
	}, []string{"dataset"})

	DatasetLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_loads_total",
		Help: "Dataset load attempts",
	}, []string{"dataset", "status"})

	AggregationsComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregations_computed_total",
		Help: "Total number of phase aggregations computed",
	}, []string{"cycles"})

	AggregationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aggregation_duration_seconds",
		Help:    "Duration of one full phase aggregation",
		Buckets: prometheus.DefBuckets,
	})

	ChartRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chart_requests_total",
		Help: "Total number of chart payload requests",
	})

	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_requests_total",
		Help: "Total number of API requests",
	}, []string{"method", "route", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "api_request_duration_seconds",
		Help:    "Duration of API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func RecordRowsParsed(dataset, status string, count int) {
	RowsParsed.WithLabelValues(dataset, status).Add(float64(count))
}

func RecordMissingRange(dataset string, count int) {
	MissingRangeValues.WithLabelValues(dataset).Add(float64(count))
}

func RecordDatasetLoad(dataset, status string, rows int) {
	DatasetLoads.WithLabelValues(dataset, status).Inc()
	if status == "success" {
		DatasetRows.WithLabelValues(dataset).Set(float64(rows))
	}
}

func RecordAggregation(cycles string, duration float64) {
	AggregationsComputed.WithLabelValues(cycles).Inc()
	AggregationDuration.Observe(duration)
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{
		start: time.Now(),
	}
}

func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
