package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestOrderMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetricsWithRegisterer(reg)

	m.RecordOrderCreated(2)
	m.RecordOrderCreated(0)
	m.RecordCreateFailure(FailureProductNotFound)
	m.RecordCompensation(false)
	m.RecordOrderDeleted(true)
	m.RecordOrderDeleted(false)
	m.RecordOutboxEnqueued()
	m.ObserveOperation("create", 15*time.Millisecond)

	if got := testutil.ToFloat64(m.ordersCreated); got != 2 {
		t.Errorf("expected 2 created orders, got %v", got)
	}
	if got := testutil.ToFloat64(m.createFailures.WithLabelValues(FailureProductNotFound)); got != 1 {
		t.Errorf("expected 1 product_not_found failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.compensations.WithLabelValues("failed")); got != 1 {
		t.Errorf("expected 1 failed compensation, got %v", got)
	}
	if got := testutil.ToFloat64(m.cascadeDeletes.WithLabelValues("partial")); got != 1 {
		t.Errorf("expected 1 partial cascade, got %v", got)
	}
	if got := testutil.ToFloat64(m.outboxEnqueued); got != 1 {
		t.Errorf("expected 1 enqueued event, got %v", got)
	}

	metric := &dto.Metric{}
	if err := m.lineItemsPerOrder.Write(metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("expected 2 histogram samples, got %d", metric.Histogram.GetSampleCount())
	}
}

func TestOrderMetrics_NilSafe(t *testing.T) {
	var m *OrderMetrics
	m.RecordOrderCreated(1)
	m.RecordCreateFailure(FailureStore)
	m.RecordCompensation(true)
	m.RecordOrderDeleted(true)
	m.RecordOutboxEnqueued()
	m.ObserveOperation("get", time.Millisecond)
}

func TestRegister_ReusesExistingCollector(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewOrderMetricsWithRegisterer(reg)
	second := NewOrderMetricsWithRegisterer(reg)

	first.RecordOrderCreated(1)
	if got := testutil.ToFloat64(second.ordersCreated); got != 1 {
		t.Fatalf("expected shared collector, got %v", got)
	}
}

func TestRegister_PanicsOnTypeMismatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	counterVec(reg, "eshop_conflict_metric", "help", "label")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for mismatched collector type")
		}
	}()
	histogramVec(reg, "eshop_conflict_metric", "help", nil, "label")
}

func TestHTTPMetrics_ObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.ObserveRequest("/api/v1/orders/{id}", "GET", 404, 5*time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/orders/{id}", "GET", "404")); got != 1 {
		t.Fatalf("expected 1 request, got %v", got)
	}

	var nilMetrics *HTTPMetrics
	nilMetrics.ObserveRequest("/", "GET", 200, time.Millisecond)
}

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.RecordAttempt(PublishSent)
	m.RecordAttempt(PublishRetryError)
	m.RecordAttempt(PublishRetryError)
	m.SetBacklog(4, -time.Second)

	if got := testutil.ToFloat64(m.attempts.WithLabelValues(PublishRetryError)); got != 2 {
		t.Errorf("expected 2 retry errors, got %v", got)
	}
	if got := testutil.ToFloat64(m.pending); got != 4 {
		t.Errorf("expected 4 pending records, got %v", got)
	}
	if got := testutil.ToFloat64(m.oldestPending); got != 0 {
		t.Errorf("expected negative age clamped to 0, got %v", got)
	}
}

func TestCleanupMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCleanupMetrics(reg)

	m.AddDeleted(3)
	m.AddDeleted(0)
	m.RecordRun(true, 3)
	m.RecordRun(false, 0)

	if got := testutil.ToFloat64(m.deleted); got != 3 {
		t.Errorf("expected 3 deleted, got %v", got)
	}
	if got := testutil.ToFloat64(m.lastDeleted); got != 3 {
		t.Errorf("expected last deleted 3, got %v", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed run, got %v", got)
	}

	var nilMetrics *CleanupMetrics
	nilMetrics.RecordRun(true, 1)
	nilMetrics.AddDeleted(1)
}
