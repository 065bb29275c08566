package kafka

import (
	"encoding/json"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// EncodeEvent упаковывает событие outbox в protobuf Struct:
// event_id, event_type, aggregate_id, created_at и исходный JSON payload.
func EncodeEvent(event *usecase.OutboxEvent) ([]byte, error) {
	var payload map[string]any
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return nil, err
	}

	envelope, err := structpb.NewStruct(map[string]any{
		"event_id":     event.EventID.String(),
		"event_type":   string(event.EventType),
		"aggregate_id": event.AggregateID.String(),
		"created_at":   event.CreatedAt.UTC().Format(time.RFC3339Nano),
		"payload":      payload,
	})
	if err != nil {
		return nil, err
	}

	return proto.Marshal(envelope)
}

// DecodeEvent — обратная операция для потребителей и тестов.
func DecodeEvent(data []byte) (*structpb.Struct, error) {
	var envelope structpb.Struct
	if err := proto.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	return &envelope, nil
}
