// Package metrics holds the Prometheus collectors of the ingest and search
// paths. All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// File results recorded by IngestFile.
const (
	FileAdded        = "added"
	FileUnchanged    = "unchanged"
	FileNonText      = "non_text"
	FileZeroChunks   = "zero_chunks"
	FileNoEmbeddings = "no_embeddings"
	FileUnreadable   = "unreadable"
)

// Search paths recorded by ObserveSearch.
const (
	PathIndex  = "index"
	PathLedger = "ledger"
)

// Metrics is a private registry with the raggy collectors.
type Metrics struct {
	registry          *prometheus.Registry
	ingestFiles       *prometheus.CounterVec
	ingestChunks      prometheus.Counter
	embeddingRequests *prometheus.CounterVec
	searchDuration    *prometheus.HistogramVec
	queryCache        *prometheus.CounterVec
}

// New creates and registers the collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ingestFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raggy_ingest_files_total",
			Help: "Files seen by ingestion, by result.",
		}, []string{"result"}),
		ingestChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raggy_ingest_chunks_total",
			Help: "Chunks appended to the ledger.",
		}),
		embeddingRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raggy_embedding_requests_total",
			Help: "Embedding requests sent to the backend, by outcome.",
		}, []string{"outcome"}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "raggy_search_duration_seconds",
			Help:    "Candidate retrieval and selection latency, by search path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		queryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raggy_query_cache_total",
			Help: "Query embedding cache lookups, by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.ingestFiles,
		m.ingestChunks,
		m.embeddingRequests,
		m.searchDuration,
		m.queryCache,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// IngestFile counts one file outcome of an ingest, labelled by result.
func (m *Metrics) IngestFile(result string) {
	if m == nil {
		return
	}
	m.ingestFiles.WithLabelValues(result).Inc()
}

// IngestChunks adds n persisted chunks.
func (m *Metrics) IngestChunks(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ingestChunks.Add(float64(n))
}

// EmbeddingRequest counts one embedding call as ok or error.
func (m *Metrics) EmbeddingRequest(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.embeddingRequests.WithLabelValues(outcome).Inc()
}

// ObserveSearch records the latency of a search on the index or ledger path.
func (m *Metrics) ObserveSearch(path string, d time.Duration) {
	if m == nil {
		return
	}
	m.searchDuration.WithLabelValues(path).Observe(d.Seconds())
}

// QueryCache counts a query-embedding cache hit or miss.
func (m *Metrics) QueryCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.queryCache.WithLabelValues(result).Inc()
}
