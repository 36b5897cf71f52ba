package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Причины неудачного создания заказа (label reason).
const (
	FailureProductNotFound = "product_not_found"
	FailureLineItemPersist = "line_item_persist"
	FailureOrderPersist    = "order_persist"
	FailureStore           = "store"
	FailureCanceled        = "canceled"
)

// OrderMetrics содержит метрики сценариев работы с заказами.
// Все методы безопасны для nil-получателя.
type OrderMetrics struct {
	ordersCreated     prometheus.Counter
	createFailures    *prometheus.CounterVec
	lineItemsPerOrder prometheus.Histogram
	compensations     *prometheus.CounterVec
	ordersDeleted     prometheus.Counter
	cascadeDeletes    *prometheus.CounterVec
	outboxEnqueued    prometheus.Counter
	opDuration        *prometheus.HistogramVec
}

// NewOrderMetricsWithRegisterer регистрирует метрики в переданном реестре.
func NewOrderMetricsWithRegisterer(r prometheus.Registerer) *OrderMetrics {
	return &OrderMetrics{
		ordersCreated: counter(r, "eshop_orders_created_total",
			"Total number of orders created"),
		createFailures: counterVec(r, "eshop_order_create_failures_total",
			"Total number of failed order creations by reason", "reason"),
		lineItemsPerOrder: histogram(r, "eshop_order_line_items",
			"Number of line items per created order", []float64{0, 1, 2, 3, 5, 10, 20, 50}),
		compensations: counterVec(r, "eshop_order_compensations_total",
			"Compensating line item deletes after a failed order creation", "result"),
		ordersDeleted: counter(r, "eshop_orders_deleted_total",
			"Total number of orders deleted"),
		cascadeDeletes: counterVec(r, "eshop_order_cascade_deletes_total",
			"Line item cascade deletes by outcome", "result"),
		outboxEnqueued: counter(r, "eshop_outbox_enqueued_total",
			"Total number of order events enqueued to the outbox"),
		opDuration: histogramVec(r, "eshop_order_operation_duration_seconds",
			"Duration of order operations in seconds",
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0}, "operation"),
	}
}

// RecordOrderCreated учитывает созданный заказ и число его позиций.
func (m *OrderMetrics) RecordOrderCreated(lineItems int) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
	m.lineItemsPerOrder.Observe(float64(lineItems))
}

// RecordCreateFailure учитывает неудачное создание заказа.
func (m *OrderMetrics) RecordCreateFailure(reason string) {
	if m == nil {
		return
	}
	m.createFailures.WithLabelValues(reason).Inc()
}

// RecordCompensation учитывает компенсирующее удаление позиций.
func (m *OrderMetrics) RecordCompensation(ok bool) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(outcome(ok, "ok", "failed")).Inc()
}

// RecordOrderDeleted учитывает удаление заказа и полноту каскада.
func (m *OrderMetrics) RecordOrderDeleted(cascadeComplete bool) {
	if m == nil {
		return
	}
	m.ordersDeleted.Inc()
	m.cascadeDeletes.WithLabelValues(outcome(cascadeComplete, "complete", "partial")).Inc()
}

// RecordOutboxEnqueued увеличивает счётчик событий, положенных в outbox.
func (m *OrderMetrics) RecordOutboxEnqueued() {
	if m == nil {
		return
	}
	m.outboxEnqueued.Inc()
}

// ObserveOperation записывает длительность операции.
func (m *OrderMetrics) ObserveOperation(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
