package httptransport_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
	"github.com/vladislavdragonenkov/eshop/internal/metrics"
	"github.com/vladislavdragonenkov/eshop/internal/service/orders"
	"github.com/vladislavdragonenkov/eshop/internal/storage/memory"
	httptransport "github.com/vladislavdragonenkov/eshop/internal/transport/http"
)

type testAPI struct {
	handler   http.Handler
	lineItems domain.LineItemRepository
	registry  *prometheus.Registry
}

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	catalog := memory.NewCatalog()
	catalog.Seed(domain.CatalogSeed{
		Categories: []domain.Category{{ID: "cat-1", Name: "Books", Icon: "book", Color: "#fff"}},
		Products: []domain.Product{
			{ID: "prod-a", Name: "Go in Action", Price: decimal.NewFromInt(10), CategoryID: "cat-1"},
			{ID: "prod-b", Name: "Gopher Mug", Price: decimal.NewFromInt(15), CategoryID: "cat-1"},
		},
		Users: []domain.UserRef{{ID: "user-1", Name: "Ann"}},
	})
	lineItems := memory.NewLineItemRepository()

	service, err := orders.NewService(orders.Dependencies{
		LineItems: lineItems,
		Orders:    memory.NewOrderRepository(),
		Catalog:   catalog,
		Users:     catalog,
	}, orders.WithLogger(loggerForTests()))
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	handler := httptransport.NewRouter(service, httptransport.Config{APIPrefix: "/api/v1"},
		httptransport.WithLogger(loggerForTests()),
		httptransport.WithMetrics(metrics.NewHTTPMetrics(registry)),
		httptransport.WithIdempotency(memory.NewIdempotencyRepository()),
	)
	return &testAPI{handler: handler, lineItems: lineItems, registry: registry}
}

func (a *testAPI) do(t *testing.T, method, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	}
	return rec, payload
}

const cartBody = `{
	"orderItems": [{"quantity": 2, "product": "prod-a"}, {"quantity": 1, "product": "prod-b"}],
	"shippingAddress1": "Main st 1",
	"city": "Riga",
	"zip": "LV-1001",
	"country": "LV",
	"phone": "+371",
	"user": "user-1"
}`

func TestCreateOrder_ReturnsRawOrder(t *testing.T) {
	api := newTestAPI(t)

	rec, order := api.do(t, http.MethodPost, "/api/v1/orders", cartBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotEmpty(t, order["id"])
	require.Equal(t, float64(35), order["totalPrice"])
	require.Equal(t, "user-1", order["user"])
	require.Equal(t, "", order["status"])
	require.Equal(t, "Riga", order["city"])

	items, ok := order["orderItems"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	require.IsType(t, "", items[0])
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	api := newTestAPI(t)

	cases := map[string]string{
		"malformed json":   `{"orderItems": [`,
		"missing quantity": `{"orderItems": [{"product": "prod-a"}], "user": "user-1"}`,
		"missing product":  `{"orderItems": [{"quantity": 1}], "user": "user-1"}`,
		"missing items":    `{"user": "user-1"}`,
		"missing user":     `{"orderItems": [{"quantity": 1, "product": "prod-a"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec, payload := api.do(t, http.MethodPost, "/api/v1/orders", body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, false, payload["success"])
			require.NotEmpty(t, payload["error"])
		})
	}
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	api := newTestAPI(t)

	rec, payload := api.do(t, http.MethodPost, "/api/v1/orders",
		`{"orderItems": [{"quantity": 1, "product": "prod-gone"}], "user": "user-1"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, false, payload["success"])
	require.Contains(t, payload["error"], "Product not found for order item with ID ")

	rec, payload = api.do(t, http.MethodGet, "/api/v1/orders", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "No orders found", payload["message"])
}

func TestGetOrder_ExpandsLineItems(t *testing.T) {
	api := newTestAPI(t)

	_, created := api.do(t, http.MethodPost, "/api/v1/orders", cartBody)
	id := created["id"].(string)

	rec, payload := api.do(t, http.MethodGet, "/api/v1/orders/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, payload["success"])

	order := payload["data"].(map[string]any)
	require.Equal(t, map[string]any{"id": "user-1", "name": "Ann"}, order["user"])

	items := order["orderItems"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	require.Equal(t, float64(2), first["quantity"])
	product := first["product"].(map[string]any)
	require.Equal(t, "Go in Action", product["name"])
	require.Equal(t, float64(10), product["price"])
	require.Equal(t, "Books", product["category"].(map[string]any)["name"])

	rec, payload = api.do(t, http.MethodGet, "/api/v1/orders/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, map[string]any{"success": false, "message": "The order was not found"}, payload)
}

func TestGetOrder_RepeatedReadsMatch(t *testing.T) {
	api := newTestAPI(t)
	_, created := api.do(t, http.MethodPost, "/api/v1/orders", cartBody)
	id := created["id"].(string)

	first, _ := api.do(t, http.MethodGet, "/api/v1/orders/"+id, "")
	second, _ := api.do(t, http.MethodGet, "/api/v1/orders/"+id, "")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	require.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestListOrders_ExpandsUserOnly(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodPost, "/api/v1/orders", cartBody)

	rec, payload := api.do(t, http.MethodGet, "/api/v1/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)

	list := payload["data"].([]any)
	require.Len(t, list, 1)
	order := list[0].(map[string]any)
	require.Equal(t, "Ann", order["user"].(map[string]any)["name"])
	require.IsType(t, "", order["orderItems"].([]any)[0])
}

func TestUpdateStatus(t *testing.T) {
	api := newTestAPI(t)
	_, created := api.do(t, http.MethodPost, "/api/v1/orders", cartBody)
	id := created["id"].(string)

	rec, payload := api.do(t, http.MethodPut, "/api/v1/orders/"+id, `{"status": "shipped"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	order := payload["data"].(map[string]any)
	require.Equal(t, "shipped", order["status"])
	require.Equal(t, float64(35), order["totalPrice"])

	rec, payload = api.do(t, http.MethodPut, "/api/v1/orders/missing", `{"status": "shipped"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Order not found", payload["message"])

	rec, _ = api.do(t, http.MethodPut, "/api/v1/orders/"+id, `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteOrder(t *testing.T) {
	api := newTestAPI(t)
	_, created := api.do(t, http.MethodPost, "/api/v1/orders", cartBody)
	id := created["id"].(string)
	itemID := created["orderItems"].([]any)[0].(string)

	rec, payload := api.do(t, http.MethodDelete, "/api/v1/orders/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]any{"success": true, "message": "Order is deleted"}, payload)

	_, err := api.lineItems.Get(context.Background(), itemID)
	require.ErrorIs(t, err, domain.ErrLineItemNotFound)

	rec, payload = api.do(t, http.MethodDelete, "/api/v1/orders/"+id, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Order not found", payload["message"])
}

func TestReports(t *testing.T) {
	api := newTestAPI(t)

	rec, payload := api.do(t, http.MethodGet, "/api/v1/orders/get/totalsales", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "The order sales cannot be generated", payload["message"])

	rec, payload = api.do(t, http.MethodGet, "/api/v1/orders/get/count", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "The order count cannot be generated", payload["message"])

	api.do(t, http.MethodPost, "/api/v1/orders", cartBody)
	api.do(t, http.MethodPost, "/api/v1/orders", cartBody)

	rec, payload = api.do(t, http.MethodGet, "/api/v1/orders/get/totalsales", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(70), payload["data"])

	rec, payload = api.do(t, http.MethodGet, "/api/v1/orders/get/count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(2), payload["data"])
}

func TestUserOrders(t *testing.T) {
	api := newTestAPI(t)

	rec, payload := api.do(t, http.MethodGet, "/api/v1/orders/get/userorders/user-1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "No orders found for this user", payload["message"])

	api.do(t, http.MethodPost, "/api/v1/orders", cartBody)

	rec, payload = api.do(t, http.MethodGet, "/api/v1/orders/get/userorders/user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := payload["data"].([]any)
	require.Len(t, list, 1)
	items := list[0].(map[string]any)["orderItems"].([]any)
	require.IsType(t, map[string]any{}, items[0])
}

func TestCreateOrder_IdempotentReplay(t *testing.T) {
	api := newTestAPI(t)

	first, created := api.do(t, http.MethodPost, "/api/v1/orders", cartBody, httptransport.IdempotencyKeyHeader, "key-1")
	require.Equal(t, http.StatusCreated, first.Code)

	second, replayed := api.do(t, http.MethodPost, "/api/v1/orders", cartBody, httptransport.IdempotencyKeyHeader, "key-1")
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, "true", second.Header().Get(httptransport.IdempotentReplayHeader))
	require.Equal(t, created["id"], replayed["id"])

	rec, payload := api.do(t, http.MethodGet, "/api/v1/orders/get/count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(1), payload["data"])

	conflict, _ := api.do(t, http.MethodPost, "/api/v1/orders",
		`{"orderItems": [], "user": "user-1"}`, httptransport.IdempotencyKeyHeader, "key-1")
	require.Equal(t, http.StatusUnprocessableEntity, conflict.Code)
}

func TestRouter_RecordsMetrics(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodGet, "/api/v1/orders/get/count", "")

	count, err := testutil.GatherAndCount(api.registry, "eshop_http_requests_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

type panickingService struct {
	httptransport.OrderService
}

func (panickingService) OrderCount(context.Context) (int, error) {
	panic(errors.New("boom"))
}

func TestRouter_RecoversPanics(t *testing.T) {
	handler := httptransport.NewRouter(panickingService{}, httptransport.Config{},
		httptransport.WithLogger(loggerForTests()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/get/count", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"success":false,"error":"internal server error"}`, rec.Body.String())
}

type panicOnceService struct {
	httptransport.OrderService
	calls int
}

func (s *panicOnceService) CreateOrder(context.Context, orders.CreateOrderInput) (domain.Order, error) {
	s.calls++
	if s.calls == 1 {
		panic(errors.New("boom"))
	}
	return domain.Order{ID: "order-1"}, nil
}

func TestCreateOrder_PanicReleasesIdempotencyKey(t *testing.T) {
	service := &panicOnceService{}
	handler := httptransport.NewRouter(service, httptransport.Config{},
		httptransport.WithLogger(loggerForTests()),
		httptransport.WithIdempotency(memory.NewIdempotencyRepository()),
	)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(cartBody))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(httptransport.IdempotencyKeyHeader, "k1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	require.Equal(t, http.StatusInternalServerError, first.Code)

	second := send()
	require.NotEqual(t, http.StatusConflict, second.Code)
	require.Equal(t, http.StatusInternalServerError, second.Code)
	require.Equal(t, "true", second.Header().Get(httptransport.IdempotentReplayHeader))
	require.JSONEq(t, `{"success":false,"error":"internal server error"}`, second.Body.String())
	require.Equal(t, 1, service.calls)
}
