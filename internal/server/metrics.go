package server

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alfredjeanlab/gridq/internal/catalog"
	"github.com/alfredjeanlab/gridq/internal/model"
)

var (
	// QueriesTotal counts queries by transport, dataset and outcome.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridq_queries_total",
			Help: "Total number of dataset queries",
		},
		[]string{"transport", "dataset", "status"},
	)
	// QueryDuration is the latency of dataset queries.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridq_query_duration_seconds",
			Help:    "Dataset query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport"},
	)
	// DatasetRows is the row count of each dataset's current snapshot.
	DatasetRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridq_dataset_rows",
			Help: "Number of rows in the current dataset snapshot",
		},
		[]string{"dataset"},
	)
)

func observeQuery(transport, dataset string, err error, took time.Duration) {
	// Unknown names are collapsed so clients cannot grow label cardinality.
	if errors.Is(err, catalog.ErrNotFound) {
		dataset = "unknown"
	}
	QueriesTotal.WithLabelValues(transport, dataset, errorStatus(err)).Inc()
	QueryDuration.WithLabelValues(transport).Observe(took.Seconds())
}

// ObserveDataset updates the row gauge for a freshly loaded dataset. It is
// meant to be installed with catalog.WithLoadHook.
func ObserveDataset(di model.DatasetInfo) {
	DatasetRows.WithLabelValues(di.Name).Set(float64(di.Rows))
}
