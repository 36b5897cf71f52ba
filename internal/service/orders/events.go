package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
)

// OrderEvent — полезная нагрузка событий заказа в outbox.
type OrderEvent struct {
	EventType   string    `json:"event_type"`
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	TotalPrice  string    `json:"total_price"`
	LineItemIDs []string  `json:"line_item_ids"`
	DateOrdered time.Time `json:"date_ordered"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// emit кладёт событие заказа в outbox. Внутри транзакции ошибка откатывает операцию,
// без транзакции только логируется: заказ уже сохранён.
func (s *Service) emit(ctx context.Context, eventType string, order domain.Order) error {
	if s.outbox == nil {
		return nil
	}

	err := s.enqueue(ctx, eventType, order)
	if err == nil {
		s.metrics.RecordOutboxEnqueued()
		return nil
	}
	if s.tx != nil {
		return err
	}
	s.logger.WithError(err).WithField("order_id", order.ID).WithField("event_type", eventType).
		Error("failed to enqueue order event")
	return nil
}

func (s *Service) enqueue(ctx context.Context, eventType string, order domain.Order) error {
	payload, err := json.Marshal(OrderEvent{
		EventType:   eventType,
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalPrice:  order.TotalPrice.String(),
		LineItemIDs: order.LineItemIDs,
		DateOrdered: order.DateOrdered,
		OccurredAt:  s.now(),
	})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	_, err = s.outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       payload,
	})
	if err != nil {
		return storeError("enqueue "+eventType, err)
	}
	return nil
}
