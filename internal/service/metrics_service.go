package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the marketplace lifecycle.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	swapTransitions *prometheus.CounterVec
	itemsListed     prometheus.Counter
	pointsIssued    prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	swapTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swap_transitions_total",
		Help: "Total swap lifecycle transitions by action",
	}, []string{"action"})

	itemsListed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "items_listed_total",
		Help: "Total items listed in the catalog",
	})

	pointsIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "points_issued_total",
		Help: "Total points credited through bonuses and settlements",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, swapTransitions, itemsListed, pointsIssued, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		swapTransitions: swapTransitions,
		itemsListed:     itemsListed,
		pointsIssued:    pointsIssued,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordSwapTransition counts a swap lifecycle action.
func (m *MetricsService) RecordSwapTransition(action string) {
	if m == nil {
		return
	}
	m.swapTransitions.WithLabelValues(action).Inc()
}

// RecordItemListed counts a new catalog listing.
func (m *MetricsService) RecordItemListed() {
	if m == nil {
		return
	}
	m.itemsListed.Inc()
}

// RecordPointsIssued counts credited points.
func (m *MetricsService) RecordPointsIssued(amount int) {
	if m == nil || amount <= 0 {
		return
	}
	m.pointsIssued.Add(float64(amount))
}
