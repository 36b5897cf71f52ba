// Package httptransport публикует сценарии заказов по HTTP/JSON.
package httptransport

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
	"github.com/vladislavdragonenkov/eshop/internal/metrics"
	"github.com/vladislavdragonenkov/eshop/internal/service/orders"
)

const (
	defaultAPIPrefix      = "/api/v1"
	defaultIdempotencyTTL = 24 * time.Hour
)

// OrderService — сценарии заказов, которые обслуживает роутер.
type OrderService interface {
	CreateOrder(ctx context.Context, in orders.CreateOrderInput) (domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.OrderView, error)
	GetOrder(ctx context.Context, id string) (domain.OrderView, error)
	UpdateOrderStatus(ctx context.Context, id, status string) (domain.Order, error)
	DeleteOrder(ctx context.Context, id string) (domain.CascadeResult, error)
	TotalSales(ctx context.Context) (decimal.Decimal, error)
	OrderCount(ctx context.Context) (int, error)
	ListOrdersForUser(ctx context.Context, userID string) ([]domain.OrderView, error)
}

// Config задаёт параметры роутера.
type Config struct {
	// APIPrefix — префикс, под которым монтируется /orders.
	APIPrefix          string
	CORSAllowedOrigins []string
	IdempotencyTTL     time.Duration
}

// Option настраивает роутер.
type Option func(*handler)

// WithLogger задаёт logger для access log и ошибок обработчиков.
func WithLogger(logger *log.Entry) Option {
	return func(h *handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics включает метрики HTTP-запросов.
func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(h *handler) {
		h.metrics = m
	}
}

// WithIdempotency включает обработку заголовка Idempotency-Key для POST.
func WithIdempotency(repo domain.IdempotencyRepository) Option {
	return func(h *handler) {
		h.idem = repo
	}
}

// WithClock подменяет время для TTL ключей идемпотентности.
func WithClock(now func() time.Time) Option {
	return func(h *handler) {
		if now != nil {
			h.now = now
		}
	}
}

type handler struct {
	service  OrderService
	validate *validator.Validate
	logger   *log.Entry
	metrics  *metrics.HTTPMetrics
	idem     domain.IdempotencyRepository
	idemTTL  time.Duration
	now      func() time.Time
}

// NewRouter собирает chi-роутер с middleware и маршрутами заказов.
func NewRouter(service OrderService, cfg Config, opts ...Option) http.Handler {
	h := &handler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   log.New().WithField("component", "http"),
		idemTTL:  cfg.IdempotencyTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if h.idemTTL <= 0 {
		h.idemTTL = defaultIdempotencyTTL
	}
	for _, opt := range opts {
		opt(h)
	}

	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(h.recoverer)
	router.Use(traceRequests)
	router.Use(h.observe)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", IdempotencyKeyHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, IdempotentReplayHeader},
		MaxAge:         300,
	}))

	router.Route(apiPrefix(cfg.APIPrefix)+"/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.With(h.idempotent).Post("/", h.createOrder)
		r.Get("/get/totalsales", h.totalSales)
		r.Get("/get/count", h.orderCount)
		r.Get("/get/userorders/{userid}", h.userOrders)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}", h.updateStatus)
		r.Delete("/{id}", h.deleteOrder)
	})
	return router
}

func apiPrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return defaultAPIPrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return strings.TrimRight(prefix, "/")
}
