// Package metrics provides Prometheus metrics for the clipboard monitor.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clip_archiver"

// Skip reasons.
const (
	SkipSeen        = "seen"
	SkipUnsupported = "unsupported"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Clipboard metrics
	ClipboardReads   prometheus.Counter
	ClipboardErrors  prometheus.Counter
	ClipboardChanges prometheus.Counter

	// URL metrics
	URLsFound   prometheus.Counter
	URLsSkipped *prometheus.CounterVec

	// Download metrics
	DownloadsStarted   prometheus.Counter
	DownloadsCompleted prometheus.Counter
	DownloadsFailed    prometheus.Counter
	DownloadDuration   prometheus.Histogram
	SeenEntries        prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates all metrics and registers them with a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ClipboardReads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clipboard",
			Name:      "reads_total",
			Help:      "Total number of clipboard reads",
		}),
		ClipboardErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clipboard",
			Name:      "errors_total",
			Help:      "Total number of failed clipboard reads",
		}),
		ClipboardChanges: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clipboard",
			Name:      "changes_total",
			Help:      "Total number of clipboard content changes processed",
		}),
		URLsFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "urls",
			Name:      "found_total",
			Help:      "Total number of URLs extracted from clipboard content",
		}),
		URLsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "urls",
			Name:      "skipped_total",
			Help:      "Total number of URLs skipped, by reason",
		}, []string{"reason"}),
		DownloadsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "started_total",
			Help:      "Total number of downloads dispatched",
		}),
		DownloadsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "completed_total",
			Help:      "Total number of downloads completed successfully",
		}),
		DownloadsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "failed_total",
			Help:      "Total number of downloads that failed",
		}),
		DownloadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "duration_seconds",
			Help:      "Histogram of download duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		SeenEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "seen",
			Name:      "entries",
			Help:      "Number of URLs in the seen set",
		}),
		gatherer: reg,
	}
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes Handler on addr at /metrics until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
