// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus metrics for conversion runs.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the conversion and serving metrics and the registry they
// live in.
type Recorder struct {
	reg *prometheus.Registry

	converted prometheus.Counter
	skipped   prometheus.Counter
	cells     prometheus.Counter
	duration  prometheus.Histogram
	lastRun   prometheus.Gauge

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		converted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moc_files_converted_total",
			Help: "Coverage files converted to JSON.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moc_files_skipped_total",
			Help: "Coverage files skipped because their content was unchanged.",
		}),
		cells: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moc_cells_written_total",
			Help: "Cells written across all output documents.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "moc_convert_duration_seconds",
			Help:    "Time to decode and write one coverage file.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "moc_last_run_timestamp_seconds",
			Help: "Unix time the last conversion run finished.",
		}),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moc_http_requests_total",
				Help: "HTTP requests served, by method, route, and status code.",
			},
			[]string{"method", "route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "moc_http_request_duration_seconds",
				Help:    "Time to serve one HTTP request.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	r.reg.MustRegister(r.converted, r.skipped, r.cells, r.duration, r.lastRun,
		r.requests, r.requestDuration)
	return r
}

// Converted records one converted file with cells written in d.
func (r *Recorder) Converted(cells int, d time.Duration) {
	r.converted.Inc()
	r.cells.Add(float64(cells))
	r.duration.Observe(d.Seconds())
}

// Skipped records one unchanged file.
func (r *Recorder) Skipped() {
	r.skipped.Inc()
}

// RunFinished stamps the end of a run.
func (r *Recorder) RunFinished(at time.Time) {
	r.lastRun.Set(float64(at.Unix()))
}

// Request records one served HTTP request. route is the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func (r *Recorder) Request(method, route string, code int, d time.Duration) {
	r.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	r.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry to path for the node exporter's
// textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
