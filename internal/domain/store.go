package domain

import (
	"time"

	"github.com/google/uuid"
)

// Store описывает магазин, которому принадлежат товары и заказы
type Store struct {
	ID        uuid.UUID
	Name      string
	UserID    string
	CreatedAt time.Time
	UpdatedAt *time.Time
}
