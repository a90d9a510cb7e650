package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medistore"

// Metrics groups the storefront's client-side instruments
type Metrics struct {
	registry *prometheus.Registry

	APIRequestDuration *prometheus.HistogramVec
	PollCycles         *prometheus.CounterVec
	CartMutations      *prometheus.CounterVec
	Notifications      *prometheus.CounterVec
	OrdersSubmitted    *prometheus.CounterVec
}

// New registers all instruments on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Duration of requests to the storefront backend",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		PollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_poll_cycles_total",
			Help:      "Order history fetches by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		CartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation",
		}, []string{"operation"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_notifications_total",
			Help:      "Storage change notifications by origin",
		}, []string{"origin"}),
		OrdersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Order submissions by outcome",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.APIRequestDuration,
		m.PollCycles,
		m.CartMutations,
		m.Notifications,
		m.OrdersSubmitted,
		collectors.NewGoCollector(),
	)

	return m
}

var defaultMetrics = New()

// Default returns the process-wide metrics
func Default() *Metrics {
	return defaultMetrics
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records a backend request
func (m *Metrics) ObserveRequest(operation string, status int, elapsed time.Duration) {
	m.APIRequestDuration.WithLabelValues(operation, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler returns the /metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
