package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics — метрики HTTP-слоя: количество запросов и задержка по маршрутам.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewHTTPMetrics регистрирует метрики в переданном реестре (nil — DefaultRegisterer).
func NewHTTPMetrics(r prometheus.Registerer) *HTTPMetrics {
	return &HTTPMetrics{
		requests: counterVec(r, "eshop_http_requests_total",
			"HTTP requests by route, method and status", "route", "method", "status"),
		latency: histogramVec(r, "eshop_http_request_duration_seconds",
			"HTTP request latency by route and method", prometheus.DefBuckets, "route", "method"),
	}
}

// ObserveRequest учитывает завершённый запрос.
func (m *HTTPMetrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(d.Seconds())
}
