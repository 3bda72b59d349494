package internal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gasprices_ingest_cycles_total",
		Help: "Number of ingestion cycles, partitioned by outcome and failure kind.",
	}, []string{"outcome", "failure"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gasprices_ingest_cycle_duration_seconds",
		Help:    "Wall-clock duration of an ingestion cycle.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	stationsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gasprices_stations_inserted_total",
		Help: "Number of station rows inserted.",
	})

	observationsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gasprices_observations_inserted_total",
		Help: "Number of price observation rows inserted.",
	})

	priceSourceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gasprices_price_source_requests_total",
		Help: "Requests made to the remote price API, partitioned by endpoint and result.",
	}, []string{"endpoint", "result"})
)
