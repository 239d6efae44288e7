package metrics

import (
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
)

// EngineStatsProvider supplies point-in-time engine gauges for the exporter.
type EngineStatsProvider interface {
	IndexedProducts() int
	IndexDocuments() int
	UniqueQueries() int
	TotalSearches() uint64
}

// PrometheusExporter exports metrics in Prometheus text format.
// Format: https://prometheus.io/docs/instrumenting/exposition_formats/
type PrometheusExporter struct {
	collector *Collector
	engine    EngineStatsProvider
	namespace string
}

// NewPrometheusExporter creates an exporter over the collector and an
// optional engine gauge source.
func NewPrometheusExporter(collector *Collector, engine EngineStatsProvider) *PrometheusExporter {
	return &PrometheusExporter{
		collector: collector,
		engine:    engine,
		namespace: "merx",
	}
}

// SetNamespace sets the metric namespace prefix.
func (pe *PrometheusExporter) SetNamespace(namespace string) {
	pe.namespace = namespace
}

// WriteMetrics writes all metrics to the writer.
func (pe *PrometheusExporter) WriteMetrics(w io.Writer) error {
	if err := pe.writeGauge(w, "uptime_seconds", "Engine uptime in seconds", pe.collector.Uptime().Seconds()); err != nil {
		return err
	}

	// Search metrics
	if err := pe.writeCounter(w, "searches_total", "Total number of searches executed", atomic.LoadUint64(&pe.collector.searchesExecuted)); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "searches_failed_total", "Total number of failed searches", atomic.LoadUint64(&pe.collector.searchesFailed)); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "search_duration_nanoseconds_total", "Total search execution time in nanoseconds", atomic.LoadUint64(&pe.collector.totalSearchTime)); err != nil {
		return err
	}
	if err := pe.writeHistogram(w, "search_duration_seconds", "Search duration histogram", pe.collector.searchTimings); err != nil {
		return err
	}
	if err := pe.writePercentiles(w, "search_duration_seconds", pe.collector.searchTimings); err != nil {
		return err
	}

	// Index metrics
	if err := pe.writeCounter(w, "index_operations_total", "Total number of product index operations", atomic.LoadUint64(&pe.collector.indexesExecuted)); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "index_operations_failed_total", "Total number of failed index operations", atomic.LoadUint64(&pe.collector.indexesFailed)); err != nil {
		return err
	}
	if err := pe.writeHistogram(w, "index_duration_seconds", "Index operation duration histogram", pe.collector.indexTimings); err != nil {
		return err
	}

	// Autocomplete and recommendation metrics
	if err := pe.writeCounter(w, "autocompletes_total", "Total number of autocomplete lookups", atomic.LoadUint64(&pe.collector.autocompletesExecuted)); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "recommendations_total", "Total number of recommendation lookups", atomic.LoadUint64(&pe.collector.recommendsExecuted)); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "recommendations_missed_total", "Recommendation lookups rejected by the existence filter", atomic.LoadUint64(&pe.collector.recommendsMissed)); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "views_recorded_total", "Total number of co-view records", atomic.LoadUint64(&pe.collector.viewsRecorded)); err != nil {
		return err
	}

	// Result cache metrics
	cacheHits := atomic.LoadUint64(&pe.collector.cacheHits)
	cacheMisses := atomic.LoadUint64(&pe.collector.cacheMisses)
	var hitRate float64
	if total := cacheHits + cacheMisses; total > 0 {
		hitRate = float64(cacheHits) / float64(total)
	}
	if err := pe.writeCounter(w, "cache_hits_total", "Total number of result cache hits", cacheHits); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "cache_misses_total", "Total number of result cache misses", cacheMisses); err != nil {
		return err
	}
	if err := pe.writeGauge(w, "cache_hit_rate", "Result cache hit rate (0-1)", hitRate); err != nil {
		return err
	}

	// Engine gauges
	if pe.engine != nil {
		if err := pe.writeGauge(w, "products_indexed", "Number of products in the store", float64(pe.engine.IndexedProducts())); err != nil {
			return err
		}
		if err := pe.writeGauge(w, "index_documents", "Number of documents in the inverted index", float64(pe.engine.IndexDocuments())); err != nil {
			return err
		}
		if err := pe.writeGauge(w, "unique_queries", "Number of distinct search queries seen", float64(pe.engine.UniqueQueries())); err != nil {
			return err
		}
		if err := pe.writeCounter(w, "query_analytics_total", "Total number of analytics-counted searches", pe.engine.TotalSearches()); err != nil {
			return err
		}
	}

	// Runtime memory gauges
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	if err := pe.writeGauge(w, "memory_heap_bytes", "Heap memory in bytes", float64(mem.HeapInuse)); err != nil {
		return err
	}
	if err := pe.writeGauge(w, "goroutines", "Number of goroutines", float64(runtime.NumGoroutine())); err != nil {
		return err
	}

	return nil
}

func (pe *PrometheusExporter) writeCounter(w io.Writer, name, help string, value uint64) error {
	fullName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", fullName, help, fullName, fullName, value)
	return err
}

func (pe *PrometheusExporter) writeGauge(w io.Writer, name, help string, value float64) error {
	fullName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n", fullName, help, fullName, fullName, value)
	return err
}

func (pe *PrometheusExporter) writeHistogram(w io.Writer, name, help string, h *TimingHistogram) error {
	fullName := pe.namespace + "_" + name
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", fullName, help, fullName); err != nil {
		return err
	}

	buckets := h.Buckets()
	bounds := []string{"0.001", "0.01", "0.1", "1"}
	var cumulative uint64
	for i, bound := range bounds {
		cumulative += buckets[i]
		if _, err := fmt.Fprintf(w, "%s_bucket{le=\"%s\"} %d\n", fullName, bound, cumulative); err != nil {
			return err
		}
	}
	cumulative += buckets[4]
	_, err := fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %d\n%s_count %d\n", fullName, cumulative, fullName, cumulative)
	return err
}

func (pe *PrometheusExporter) writePercentiles(w io.Writer, name string, h *TimingHistogram) error {
	fullName := pe.namespace + "_" + name
	for _, p := range []struct {
		label string
		q     float64
	}{{"0.5", 50}, {"0.95", 95}, {"0.99", 99}} {
		seconds := h.Percentile(p.q).Seconds()
		if _, err := fmt.Fprintf(w, "%s{quantile=\"%s\"} %g\n", fullName, p.label, seconds); err != nil {
			return err
		}
	}
	return nil
}
