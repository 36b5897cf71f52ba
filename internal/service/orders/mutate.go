package orders

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
)

// UpdateOrderStatus меняет только статус заказа и возвращает его новое состояние.
func (s *Service) UpdateOrderStatus(ctx context.Context, id, status string) (order domain.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.UpdateOrderStatus",
		trace.WithAttributes(attribute.String("order.id", id), attribute.String("order.status", status)))
	defer func() { endSpan(span, err) }()
	defer s.observe("update_status")()

	err = s.inTx(ctx, func(ctx context.Context) error {
		var txErr error
		order, txErr = s.orders.UpdateStatus(ctx, id, status)
		if txErr != nil {
			return txErr
		}
		return s.emit(ctx, domain.EventTypeOrderStatusChanged, order)
	})
	if err != nil {
		return domain.Order{}, storeError("update order status", err)
	}

	s.logger.WithField("order_id", id).WithField("status", status).Info("order status updated")
	return order, nil
}

// DeleteOrder удаляет заказ, затем каждую его позицию.
// Позиция, которой уже нет, считается удалённой. Если часть позиций удалить
// не удалось, заказ всё равно удалён, а ошибка — *domain.CascadeError.
func (s *Service) DeleteOrder(ctx context.Context, id string) (result domain.CascadeResult, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.DeleteOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer func() { endSpan(span, err) }()
	defer s.observe("delete")()

	var order domain.Order
	err = s.inTx(ctx, func(ctx context.Context) error {
		var txErr error
		order, txErr = s.orders.Delete(ctx, id)
		if txErr != nil {
			return txErr
		}
		return s.emit(ctx, domain.EventTypeOrderDeleted, order)
	})
	if err != nil {
		return domain.CascadeResult{OrderID: id}, storeError("delete order", err)
	}

	result = s.deleteLineItems(ctx, order.ID, order.LineItemIDs)
	cascadeErr := result.Err()
	s.metrics.RecordOrderDeleted(cascadeErr == nil)
	if cascadeErr != nil {
		s.logger.WithError(cascadeErr).WithField("order_id", id).Error("order deleted with orphaned line items")
		return result, cascadeErr
	}

	s.logger.WithField("order_id", id).WithField("line_items", len(result.Items)).Info("order deleted")
	return result, nil
}

// deleteLineItems удаляет позиции параллельно и собирает результат по каждой.
// Сбой одной позиции не прерывает удаление остальных.
func (s *Service) deleteLineItems(ctx context.Context, orderID string, ids []string) domain.CascadeResult {
	result := domain.CascadeResult{
		OrderID: orderID,
		Items:   make([]domain.LineItemDeleteResult, len(ids)),
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			item := domain.LineItemDeleteResult{LineItemID: id}
			err := s.lineItems.Delete(ctx, id)
			switch {
			case errors.Is(err, domain.ErrLineItemNotFound):
				item.Missing = true
			case err != nil:
				item.Err = err
			}
			result.Items[i] = item
			return nil
		})
	}
	_ = g.Wait()
	return result
}
