// Package metrics описывает метрики Prometheus дашборда.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько времени заняла обработка запроса
	RequestDuration *prometheus.HistogramVec

	// Traffic: общее кол-во запросов
	TotalRequests *prometheus.CounterVec

	// Errors: классификация отказов
	ErrorTotal *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker (0 - ок, 1 - выбило)
	CircuitBreakerState *prometheus.GaugeVec

	// Dataset: размер текущего снапшота и результаты перезагрузок
	DatasetRecords prometheus.Gauge
	DatasetReloads *prometheus.CounterVec

	// Cache: попадания и промахи кэша представлений
	CacheRequests *prometheus.CounterVec

	// Audit: заполненность буфера (backpressure)
	AuditBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cintia_request_duration_seconds",
			Help:    "Histogram of request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "method", "status"}),

		TotalRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "cintia_requests_total",
			Help: "Total number of processed requests.",
		}, []string{"route", "method"}),

		ErrorTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "cintia_errors_total",
			Help: "Total number of errors by type.",
		}, []string{"type"}), // типы: dataset_load, render, cache, audit

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "cintia_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=open).",
		}, []string{"name"}),

		DatasetRecords: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "cintia_dataset_records",
			Help: "Number of records in the current dataset snapshot.",
		}),

		DatasetReloads: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "cintia_dataset_reloads_total",
			Help: "Dataset reload attempts by result.",
		}, []string{"result"}),

		CacheRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "cintia_view_cache_requests_total",
			Help: "View cache lookups by result.",
		}, []string{"result"}), // hit, miss

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "cintia_audit_buffer_utilization",
			Help: "Current number of events in audit buffer.",
		}),
	}
}

// Middleware считает запросы по шаблону маршрута chi, а не по сырому пути,
// чтобы значения фильтров в query не раздували кардинальность.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.TotalRequests.WithLabelValues(route, r.Method).Inc()
		m.RequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
