package usecase

import (
	"errors"
	"fmt"

	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/google/uuid"
)

// InsufficientStockError — на складе меньше единиц товара, чем запрошено.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (i *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: product %s requested %d, available %d",
		e.ErrInsufficientStock.Error(), i.ProductID, i.Requested, i.Available)
}

func (i *InsufficientStockError) Unwrap() error {
	return e.ErrInsufficientStock
}

// OrderCreatedError возвращается, когда заказ уже зафиксирован в БД, а ссылку на оплату получить не удалось.
// Позволяет отличить этот случай от "заказ не создан".
type OrderCreatedError struct {
	OrderID uuid.UUID
	Err     error
}

func (o *OrderCreatedError) Error() string {
	return fmt.Sprintf("%s (order %s): %v", e.ErrPaymentLinkFailed.Error(), o.OrderID, o.Err)
}

func (o *OrderCreatedError) Unwrap() []error {
	return []error{e.ErrPaymentLinkFailed, o.Err}
}

// FieldsError перечисляет незаполненные поля запроса.
type FieldsError struct {
	Err    error
	Fields []string
}

func (f *FieldsError) Error() string {
	return fmt.Sprintf("%v: %v", f.Err, f.Fields)
}

func (f *FieldsError) Unwrap() error {
	return f.Err
}

// terminalErrors — бизнес-отказы, повтор которых ничего не изменит.
var terminalErrors = []error{
	e.ErrValidation,
	e.ErrInvalidPayload,
	e.ErrInvalidSignature,
	e.ErrStoreNotFound,
	e.ErrProductNotFound,
	e.ErrOrderNotFound,
	e.ErrAmountMismatch,
}

// IsRetryable сообщает, стоит ли провайдеру повторить доставку уведомления.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	for _, t := range terminalErrors {
		if errors.Is(err, t) {
			return false
		}
	}

	return true
}
