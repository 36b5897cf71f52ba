package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
)

// ErrNotDeadLetter — сообщение не похоже на запись DLQ outbox worker'а.
var ErrNotDeadLetter = errors.New("message is not an outbox dead letter")

// ReplayEvent восстанавливает исходное outbox-событие из сообщения DLQ.
// Сообщения чужого формата возвращают ErrNotDeadLetter.
func ReplayEvent(value []byte) (domain.OutboxMessage, error) {
	var envelope Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("%w: %w", ErrNotDeadLetter, err)
	}
	if len(envelope.Payload) == 0 || string(envelope.Payload) == "null" {
		return domain.OutboxMessage{}, ErrNotDeadLetter
	}

	var letter domain.DeadLetter
	if err := json.Unmarshal(envelope.Payload, &letter); err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("decode dead letter: %w", err)
	}
	if len(letter.Payload) == 0 || string(letter.Payload) == "null" {
		return domain.OutboxMessage{}, errors.New("dead letter does not carry the original payload")
	}

	event := domain.OutboxMessage{
		ID:            firstNonEmpty(letter.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(letter.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(letter.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(letter.EventType, envelope.EventType),
		Payload:       []byte(letter.Payload),
	}
	if event.ID == "" && event.AggregateID == "" {
		return domain.OutboxMessage{}, ErrNotDeadLetter
	}
	return event, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
