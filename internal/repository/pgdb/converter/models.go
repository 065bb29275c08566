package converter

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StoreModel представляет запись таблицы stores в PostgreSQL.
type StoreModel struct {
	ID        uuid.UUID  `db:"id"`
	Name      string     `db:"name"`
	UserID    string     `db:"user_id"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

// OrderModel представляет запись таблицы orders в PostgreSQL.
type OrderModel struct {
	ID                uuid.UUID       `db:"id"`
	StoreID           uuid.UUID       `db:"store_id"`
	Status            string          `db:"status"`
	IsPaid            bool            `db:"is_paid"`
	IsSent            bool            `db:"is_sent"`
	Phone             string          `db:"phone"`
	Address           string          `db:"address"`
	ShippingDetailsID *uuid.UUID      `db:"shipping_details_id"`
	TotalAmount       decimal.Decimal `db:"total_amount"`
	Currency          string          `db:"currency"`
	PaymentReference  string          `db:"payment_reference"`
	CheckoutURL       string          `db:"checkout_url"`
	PaidAt            *time.Time      `db:"paid_at"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         *time.Time      `db:"updated_at"`
}

// OrderItemModel представляет запись таблицы order_items в PostgreSQL.
type OrderItemModel struct {
	ID        uuid.UUID       `db:"id"`
	OrderID   uuid.UUID       `db:"order_id"`
	ProductID uuid.UUID       `db:"product_id"`
	Quantity  int             `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`
}

// ShippingDetailsModel представляет запись таблицы shipping_details в PostgreSQL.
type ShippingDetailsModel struct {
	ID           uuid.UUID `db:"id"`
	FullName     string    `db:"full_name"`
	Email        string    `db:"email"`
	Phone        string    `db:"phone"`
	AddressLine1 string    `db:"address_line1"`
	AddressLine2 string    `db:"address_line2"`
	City         string    `db:"city"`
	State        string    `db:"state"`
	PostalCode   string    `db:"postal_code"`
	Country      string    `db:"country"`
	CreatedAt    time.Time `db:"created_at"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID          int64      `db:"id"`
	EventID     uuid.UUID  `db:"event_id"`
	EventType   string     `db:"event_type"`
	AggregateID uuid.UUID  `db:"aggregate_id"`
	Payload     []byte     `db:"payload"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}
