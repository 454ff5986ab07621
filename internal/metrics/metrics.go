package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics groups the engine's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	submissions     *prometheus.CounterVec
	rejected        prometheus.Counter
	persistFailures *prometheus.CounterVec
	overrides       prometheus.Counter
	boardItems      *prometheus.GaugeVec
	saveDuration    prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inspect_submissions_total",
			Help: "Accepted equipment checks by verdict.",
		}, []string{"verdict"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inspect_submissions_rejected_total",
			Help: "Checks rejected before persistence (abnormal without notes).",
		}),
		persistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inspect_persist_failures_total",
			Help: "Store write failures by operation.",
		}, []string{"op"}),
		overrides: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inspect_overrides_marked_total",
			Help: "Optimistic overrides recorded after local submission.",
		}),
		boardItems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "inspect_board_items",
			Help: "Equipment items per traffic-light status on the last board read.",
		}, []string{"status"}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inspect_save_duration_seconds",
			Help:    "Time spent reconciling a check into the store.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.submissions,
		m.rejected,
		m.persistFailures,
		m.overrides,
		m.boardItems,
		m.saveDuration,
	)
	return m
}

func (m *Metrics) ObserveSubmission(verdict string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(verdict).Inc()
}

func (m *Metrics) ObserveRejected() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}

func (m *Metrics) ObservePersistFailure(op string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveOverride() {
	if m == nil {
		return
	}
	m.overrides.Inc()
}

func (m *Metrics) ObserveSave(d time.Duration) {
	if m == nil {
		return
	}
	m.saveDuration.Observe(d.Seconds())
}

// SetBoard publishes the per-status counts of a board read.
func (m *Metrics) SetBoard(counts map[string]int) {
	if m == nil {
		return
	}
	m.boardItems.Reset()
	for status, n := range counts {
		m.boardItems.WithLabelValues(status).Set(float64(n))
	}
}

// Serve exposes /metrics for gatherer on addr until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Starting metrics server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Metrics server error")
	}
}
