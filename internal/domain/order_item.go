package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem — позиция заказа, неизменяемая после создания.
// UnitPrice фиксирует цену товара на момент оформления.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

func NewOrderItem(orderID, productID uuid.UUID, quantity int, unitPrice decimal.Decimal) OrderItem {
	return OrderItem{
		ID:        uuid.New(),
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
}

// LineTotal возвращает price × quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
