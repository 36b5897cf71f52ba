package kafka

import (
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
)

// Топики событий заказов.
const (
	TopicOrderEvents = "eshop.orders"
	// TopicDeadLetter получает события, которые не удалось опубликовать.
	TopicDeadLetter = "eshop.orders.dlq"
)

// Заголовки сообщений Kafka.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
)

// Envelope — значение сообщения Kafka с событием из outbox.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope оборачивает outbox-событие. Пустой payload кодируется как null.
func NewEnvelope(event domain.OutboxMessage, publishedAt time.Time) Envelope {
	payload := json.RawMessage(event.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Envelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       payload,
		PublishedAt:   publishedAt,
	}
}

// messageKey — ключ партиционирования: события одного заказа идут в одну партицию.
func messageKey(event domain.OutboxMessage) string {
	if event.AggregateID != "" {
		return event.AggregateID
	}
	return event.ID
}
