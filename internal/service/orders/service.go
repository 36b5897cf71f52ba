// Package orders реализует сценарии работы с заказами: создание из корзины,
// чтение с раскрытием ссылок, смену статуса, каскадное удаление и отчёты.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
	"github.com/vladislavdragonenkov/eshop/internal/metrics"
)

const (
	defaultConcurrency = 8
	tracerName         = "github.com/vladislavdragonenkov/eshop/internal/service/orders"
)

// Dependencies — обязательные порты сервиса.
type Dependencies struct {
	LineItems domain.LineItemRepository
	Orders    domain.OrderRepository
	Catalog   domain.ProductCatalog
	Users     domain.UserDirectory
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTransactor включает транзакционное создание заказа. Без него при сбое
// сервис удаляет уже созданные позиции компенсирующими удалениями.
func WithTransactor(tx domain.Transactor) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// WithOutbox включает запись событий заказа в outbox.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(s *Service) {
		s.outbox = outbox
	}
}

// WithMetrics задаёт метрики сценариев.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock подменяет источник времени для DateOrdered и CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator подменяет генератор идентификаторов заказов и позиций.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithConcurrency ограничивает число параллельных обращений к хранилищу в рамках одного запроса.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// Service — сценарии работы с заказами поверх доменных портов.
type Service struct {
	lineItems domain.LineItemRepository
	orders    domain.OrderRepository
	catalog   domain.ProductCatalog
	users     domain.UserDirectory

	tx      domain.Transactor
	outbox  domain.OutboxRepository
	metrics *metrics.OrderMetrics
	logger  *log.Entry
	tracer  trace.Tracer

	now         func() time.Time
	newID       func() string
	concurrency int
}

// NewService конструирует сервис с зависимостями.
func NewService(deps Dependencies, opts ...Option) (*Service, error) {
	switch {
	case deps.LineItems == nil:
		return nil, errors.New("line item repository is required")
	case deps.Orders == nil:
		return nil, errors.New("order repository is required")
	case deps.Catalog == nil:
		return nil, errors.New("product catalog is required")
	case deps.Users == nil:
		return nil, errors.New("user directory is required")
	}

	s := &Service{
		lineItems:   deps.LineItems,
		orders:      deps.Orders,
		catalog:     deps.Catalog,
		users:       deps.Users,
		logger:      log.New().WithField("component", "orders"),
		tracer:      otel.Tracer(tracerName),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// inTx выполняет fn в транзакции, если она поддерживается хранилищем.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.WithinTx(ctx, fn)
}

// observe замеряет длительность операции.
func (s *Service) observe(operation string) func() {
	started := time.Now()
	return func() {
		s.metrics.ObserveOperation(operation, time.Since(started))
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// storeError помечает ошибку хранилища как ErrStore, не трогая доменные и контекстные ошибки.
func storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case domain.IsNotFound(err),
		errors.Is(err, domain.ErrStore),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStore, err)
	}
}
