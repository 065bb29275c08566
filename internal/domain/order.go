package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus — состояние заказа.
//
//	pending_link -> awaiting_payment -> paid
//	pending_link | awaiting_payment -> cancelled
//	cancelled -> paid (поздняя оплата всё равно фиксируется)
type OrderStatus string

const (
	OrderStatusPendingLink     OrderStatus = "pending_link"
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment"
	OrderStatusPaid            OrderStatus = "paid"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingLink:     {OrderStatusAwaitingPayment, OrderStatusPaid, OrderStatusCancelled},
	OrderStatusAwaitingPayment: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusCancelled:       {OrderStatusPaid},
}

// CanTransition сообщает, разрешён ли переход from -> to.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}

	return false
}

// IsOpen сообщает, ожидает ли заказ ещё оплаты.
func (s OrderStatus) IsOpen() bool {
	return s == OrderStatusPendingLink || s == OrderStatusAwaitingPayment
}

// Order — агрегат заказа. IsPaid меняется только false -> true.
type Order struct {
	ID                uuid.UUID
	StoreID           uuid.UUID
	Status            OrderStatus
	IsPaid            bool
	IsSent            bool
	Phone             string
	Address           string
	ShippingDetailsID *uuid.UUID
	TotalAmount       decimal.Decimal
	Currency          string
	PaymentReference  string
	CheckoutURL       string
	PaidAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         *time.Time
	Items             []OrderItem
}

// NewOrder создаёт заказ в состоянии pending_link.
func NewOrder(storeID uuid.UUID, shipping *ShippingDetails, total decimal.Decimal, currency string) *Order {
	o := &Order{
		ID:          uuid.New(),
		StoreID:     storeID,
		Status:      OrderStatusPendingLink,
		TotalAmount: total,
		Currency:    currency,
	}

	if shipping != nil {
		id := shipping.ID
		o.ShippingDetailsID = &id
		o.Phone = shipping.Phone
		o.Address = shipping.Address()
	}

	return o
}

// Reference — токен корреляции, который передаётся платёжному провайдеру.
func (o *Order) Reference() string {
	return o.ID.String()
}
