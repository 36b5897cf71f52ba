package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
	"github.com/vladislavdragonenkov/eshop/internal/metrics"
)

var errLineItemPersist = errors.New("line item persist failed")

// CreateOrderInput — корзина и реквизиты нового заказа.
type CreateOrderInput struct {
	CartLines []domain.CartLine
	Shipping  domain.ShippingAddress
	Status    string
	UserID    string
}

// Validate проверяет форму входа до обращения к хранилищу.
func (in CreateOrderInput) Validate() error {
	if in.UserID == "" {
		return domain.ErrUserRequired
	}
	for i, line := range in.CartLines {
		if err := line.Validate(); err != nil {
			return fmt.Errorf("cart line %d: %w", i, err)
		}
	}
	return nil
}

// CreateOrder сохраняет позиции корзины, считает сумму по текущим ценам каталога
// и сохраняет заказ, ссылающийся на позиции в порядке корзины.
// При сбое любого шага заказ не создаётся, а созданные позиции откатываются:
// транзакцией, если она доступна, иначе компенсирующими удалениями.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (order domain.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.CreateOrder",
		trace.WithAttributes(
			attribute.Int("order.cart_lines", len(in.CartLines)),
			attribute.String("order.user_id", in.UserID),
		))
	defer func() { endSpan(span, err) }()
	defer s.observe("create")()

	if err = in.Validate(); err != nil {
		return domain.Order{}, err
	}

	if s.tx != nil {
		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			var txErr error
			order, _, txErr = s.createOrder(ctx, in)
			return txErr
		})
	} else {
		var created []string
		order, created, err = s.createOrder(ctx, in)
		if err != nil {
			err = s.compensate(ctx, created, err)
		}
	}
	if err != nil {
		s.metrics.RecordCreateFailure(failureReason(err))
		s.logger.WithError(err).WithField("user_id", in.UserID).Warn("order creation failed")
		return domain.Order{}, err
	}

	s.metrics.RecordOrderCreated(len(order.LineItemIDs))
	span.SetAttributes(attribute.String("order.id", order.ID))
	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"user_id":     order.UserID,
		"line_items":  len(order.LineItemIDs),
		"total_price": order.TotalPrice.String(),
	}).Info("order created")
	return order, nil
}

// createOrder выполняет шаги создания и возвращает ID уже сохранённых позиций,
// даже если один из шагов завершился ошибкой.
func (s *Service) createOrder(ctx context.Context, in CreateOrderInput) (domain.Order, []string, error) {
	now := s.now()

	items := make([]domain.LineItem, len(in.CartLines))
	for i, line := range in.CartLines {
		items[i] = domain.LineItem{
			ID:        s.newID(),
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			CreatedAt: now,
		}
	}

	created, err := s.persistLineItems(ctx, items)
	if err != nil {
		return domain.Order{}, created, err
	}

	total, err := s.totalPrice(ctx, items)
	if err != nil {
		return domain.Order{}, created, err
	}

	order := domain.Order{
		ID:          s.newID(),
		LineItemIDs: make([]string, len(items)),
		Shipping:    in.Shipping,
		Status:      in.Status,
		TotalPrice:  total,
		UserID:      in.UserID,
		DateOrdered: now,
	}
	for i, item := range items {
		order.LineItemIDs[i] = item.ID
	}

	ctx, span := s.tracer.Start(ctx, "orders.persist_order")
	err = s.orders.Create(ctx, order)
	endSpan(span, err)
	if err != nil {
		return domain.Order{}, created, fmt.Errorf("%w: %w", domain.ErrOrderPersist, err)
	}

	if err := s.emit(ctx, domain.EventTypeOrderCreated, order); err != nil {
		return domain.Order{}, created, err
	}
	return order, created, nil
}

// persistLineItems сохраняет позиции параллельно и возвращает ID успешно сохранённых.
func (s *Service) persistLineItems(ctx context.Context, items []domain.LineItem) (created []string, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.persist_line_items",
		trace.WithAttributes(attribute.Int("line_items", len(items))))
	defer func() { endSpan(span, err) }()

	persisted := make([]bool, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, item := range items {
		g.Go(func() error {
			if err := s.lineItems.Create(gctx, item); err != nil {
				return fmt.Errorf("%w: %w: line item %s: %w", domain.ErrStore, errLineItemPersist, item.ID, err)
			}
			persisted[i] = true
			return nil
		})
	}
	err = g.Wait()

	for i, ok := range persisted {
		if ok {
			created = append(created, items[i].ID)
		}
	}
	return created, err
}

// totalPrice запрашивает цены товаров параллельно и суммирует price × quantity.
// Отсутствующий товар даёт *domain.ProductNotFoundError с ID позиции.
func (s *Service) totalPrice(ctx context.Context, items []domain.LineItem) (total decimal.Decimal, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.resolve_prices")
	defer func() { endSpan(span, err) }()

	subtotals := make([]decimal.Decimal, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, item := range items {
		g.Go(func() error {
			product, err := s.catalog.Product(gctx, item.ProductID)
			switch {
			case errors.Is(err, domain.ErrProductNotFound):
				return &domain.ProductNotFoundError{LineItemID: item.ID, ProductID: item.ProductID}
			case err != nil:
				return storeError("resolve product "+item.ProductID, err)
			}
			subtotals[i] = item.Subtotal(product.Price)
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, subtotals...), nil
}

// compensate удаляет позиции, созданные неудавшимся заказом.
// Сбой компенсации присоединяется к исходной ошибке.
func (s *Service) compensate(ctx context.Context, created []string, cause error) error {
	if len(created) == 0 {
		return cause
	}

	result := s.deleteLineItems(context.WithoutCancel(ctx), "", created)
	cascadeErr := result.Err()
	s.metrics.RecordCompensation(cascadeErr == nil)
	if cascadeErr != nil {
		s.logger.WithError(cascadeErr).Error("line item compensation failed")
		return errors.Join(cause, cascadeErr)
	}
	s.logger.WithField("line_items", len(created)).Info("line items compensated after failed order creation")
	return cause
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return metrics.FailureProductNotFound
	case errors.Is(err, errLineItemPersist):
		return metrics.FailureLineItemPersist
	case errors.Is(err, domain.ErrOrderPersist):
		return metrics.FailureOrderPersist
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.FailureCanceled
	default:
		return metrics.FailureStore
	}
}
