package metrics

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leeforge/fresson/http/responder"
)

// historySize bounds the samples kept per histogram.
const historySize = 100

// Config toggles metric collection.
type Config struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" default:"true"`
}

// Collector keeps counters, gauges and histograms in memory.
type Collector struct {
	metrics map[string]*Metric
	mu      sync.RWMutex
	now     func() time.Time
}

// Metric is one labelled series.
type Metric struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Value     float64           `json:"value"`
	Count     int64             `json:"count,omitempty"`
	Sum       float64           `json:"sum,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
	History   []float64         `json:"history,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

func NewCollector() *Collector {
	return &Collector{
		metrics: make(map[string]*Metric),
		now:     time.Now,
	}
}

// IncCounter adds one to a counter.
func (c *Collector) IncCounter(name string, labels map[string]string) {
	c.AddCounter(name, 1, labels)
}

func (c *Collector) AddCounter(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.series(name, "counter", labels)
	m.Value += value
	m.Timestamp = c.now().Unix()
}

func (c *Collector) SetGauge(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.series(name, "gauge", labels)
	m.Value = value
	m.Timestamp = c.now().Unix()
}

// ObserveHistogram records a sample. Value holds the latest sample, Count
// and Sum cover every sample, History only the most recent ones.
func (c *Collector) ObserveHistogram(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.series(name, "histogram", labels)
	m.Value = value
	m.Count++
	m.Sum += value
	m.History = append(m.History, value)
	if len(m.History) > historySize {
		m.History = m.History[len(m.History)-historySize:]
	}
	m.Timestamp = c.now().Unix()
}

// RecordRequest records one HTTP request under its route pattern.
func (c *Collector) RecordRequest(method, route string, status int, duration float64) {
	labels := map[string]string{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}

	c.IncCounter("http_requests_total", labels)
	c.ObserveHistogram("http_request_duration_seconds", duration, map[string]string{"route": route})
}

// RecordRun records one pipeline run; outcome is "ok" or an error type.
func (c *Collector) RecordRun(mode, outcome string, duration float64) {
	c.IncCounter("pipeline_runs_total", map[string]string{"mode": mode, "outcome": outcome})
	if outcome == "ok" {
		c.ObserveHistogram("pipeline_run_duration_seconds", duration, map[string]string{"mode": mode})
	}
}

// series returns the metric for name and labels, creating it. Callers hold mu.
func (c *Collector) series(name, typ string, labels map[string]string) *Metric {
	key := buildKey(name, labels)
	m, ok := c.metrics[key]
	if !ok {
		m = &Metric{Name: name, Type: typ, Labels: labels}
		c.metrics[key] = m
	}
	return m
}

// buildKey renders name{k1=v1,k2=v2} with labels sorted by key.
func buildKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	b.WriteByte('}')
	return b.String()
}

// GetMetrics returns a copy of every series keyed by name and labels.
func (c *Collector) GetMetrics() map[string]Metric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]Metric, len(c.metrics))
	for k, v := range c.metrics {
		m := *v
		m.History = append([]float64(nil), v.History...)
		result[k] = m
	}
	return result
}

// GetMetric returns a copy of one series.
func (c *Collector) GetMetric(name string, labels map[string]string) (Metric, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.metrics[buildKey(name, labels)]
	if !ok {
		return Metric{}, false
	}
	return *m, true
}

func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = make(map[string]*Metric)
}

// Middleware records every request. Requests that matched no route are
// grouped under "unmatched".
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		c.RecordRequest(r.Method, route, ww.statusCode, time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Handler serves a snapshot of every series.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responder.OK(w, r, c.GetMetrics())
	})
}
