package domain

import (
	"time"

	"github.com/google/uuid"
)

// StockShortfall фиксирует нехватку остатка при подтверждении оплаченного заказа.
// Оплату не откатывает, используется как операционный алерт.
type StockShortfall struct {
	ID        int64
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Requested int
	Available int
	CreatedAt time.Time
}
