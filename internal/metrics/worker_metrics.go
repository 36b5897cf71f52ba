package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты попыток публикации outbox.
const (
	PublishSent       = "sent"
	PublishRetryError = "retry_error"
	PublishFailed     = "failed"
	PublishDLQFailed  = "dlq_failed"
)

// OutboxMetrics — метрики публикации событий заказов из outbox.
type OutboxMetrics struct {
	attempts      *prometheus.CounterVec
	pending       prometheus.Gauge
	oldestPending prometheus.Gauge
}

// NewOutboxMetrics регистрирует метрики в переданном реестре (nil — DefaultRegisterer).
func NewOutboxMetrics(r prometheus.Registerer) *OutboxMetrics {
	return &OutboxMetrics{
		attempts: counterVec(r, "eshop_outbox_publish_attempts_total",
			"Outbox publish attempts grouped by result", "result"),
		pending: gauge(r, "eshop_outbox_pending_records",
			"Current number of pending outbox records"),
		oldestPending: gauge(r, "eshop_outbox_oldest_pending_age_seconds",
			"Age of the oldest pending outbox record"),
	}
}

// RecordAttempt учитывает попытку публикации с результатом result.
func (m *OutboxMetrics) RecordAttempt(result string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(result).Inc()
}

// SetBacklog выставляет размер backlog и возраст самой старой записи.
func (m *OutboxMetrics) SetBacklog(pending int, oldestAge time.Duration) {
	if m == nil {
		return
	}
	if oldestAge < 0 {
		oldestAge = 0
	}
	m.pending.Set(float64(pending))
	m.oldestPending.Set(oldestAge.Seconds())
}

// CleanupMetrics — метрики очистки просроченных ключей идемпотентности.
type CleanupMetrics struct {
	runs        *prometheus.CounterVec
	deleted     prometheus.Counter
	lastDeleted prometheus.Gauge
}

// NewCleanupMetrics регистрирует метрики в переданном реестре (nil — DefaultRegisterer).
func NewCleanupMetrics(r prometheus.Registerer) *CleanupMetrics {
	return &CleanupMetrics{
		runs: counterVec(r, "eshop_idempotency_cleanup_runs_total",
			"Idempotency cleanup runs grouped by result", "result"),
		deleted: counter(r, "eshop_idempotency_cleanup_deleted_total",
			"Deleted expired idempotency records"),
		lastDeleted: gauge(r, "eshop_idempotency_cleanup_last_deleted",
			"Records deleted during the last cleanup run"),
	}
}

// RecordRun учитывает завершённый цикл очистки.
func (m *CleanupMetrics) RecordRun(ok bool, deleted int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome(ok, "ok", "error")).Inc()
	if ok {
		m.lastDeleted.Set(float64(deleted))
	}
}

// AddDeleted увеличивает счётчик удалённых записей.
func (m *CleanupMetrics) AddDeleted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.deleted.Add(float64(n))
}
