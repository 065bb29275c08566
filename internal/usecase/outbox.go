package usecase

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
)

type OutboxEventType string

const (
	OrderCreated       OutboxEventType = "order.created"
	OrderPaid          OutboxEventType = "order.paid"
	OrderCancelled     OutboxEventType = "order.cancelled"
	InventoryShortfall OutboxEventType = "inventory.shortfall"
)

// OutboxEvent — событие, записанное в одной транзакции с изменением состояния
// и отправляемое в Kafka фоновым воркером.
type OutboxEvent struct {
	ID          int64
	EventID     uuid.UUID
	EventType   OutboxEventType
	AggregateID uuid.UUID
	Payload     []byte // JSON
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

func NewOutboxEvent(eventType OutboxEventType, aggregateID uuid.UUID, payload any) (*OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		EventID:     uuid.New(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     data,
		Status:      Pending,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Полезные нагрузки событий

type OrderCreatedPayload struct {
	OrderID     string             `json:"order_id"`
	StoreID     string             `json:"store_id"`
	TotalAmount string             `json:"total_amount"`
	Currency    string             `json:"currency"`
	Items       []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderPaidPayload struct {
	OrderID    string `json:"order_id"`
	Source     string `json:"source"`
	Shortfalls int    `json:"shortfalls"`
}

type OrderCancelledPayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type ShortfallPayload struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}
