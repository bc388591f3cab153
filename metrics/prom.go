package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PasteCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flybin_paste_created_total",
		Help: "no. of pastes created",
	})
	PasteRetrieved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flybin_paste_retrieved_total",
		Help: "no. of pastes retrieved",
	})
	PasteLocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flybin_paste_locked_total",
		Help: "no. of pastes locked behind a password",
	})
	PasteDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flybin_paste_deleted_total",
		Help: "no. of pastes deleted by secret holders",
	})
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flybin_cache_hits_total",
		Help: "no. of cache hits",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flybin_cache_misses_total",
		Help: "no. of cache misses",
	})
	AdmissionRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flybin_admission_rejected_total",
		Help: "no. of requests rejected by the global admission bucket",
	})
	IngestConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flybin_ingest_connections_total",
		Help: "no. of raw ingestion connections accepted",
	})
	IngestBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flybin_ingest_bytes_total",
		Help: "bytes accepted over the raw ingestion channel",
	})
	SweepCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flybin_sweep_cycles_total",
		Help: "no. of expiry sweep cycles",
	})
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flybin_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)
)
