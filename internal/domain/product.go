package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product описывает товар. InStock никогда не бывает отрицательным.
type Product struct {
	ID         uuid.UUID
	StoreID    uuid.UUID
	CategoryID uuid.UUID
	Name       string
	Price      decimal.Decimal // Цена с фиксированной точностью, без привязки к валюте
	InStock    int
	IsFeatured bool
	IsArchived bool
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

// CanReserve сообщает, хватает ли остатка на quantity единиц.
func (p *Product) CanReserve(quantity int) bool {
	return quantity > 0 && p.InStock >= quantity
}
