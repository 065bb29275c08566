package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Конфигурация
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")

	// 400 Bad Request
	ErrStatusBadRequest      = fmt.Errorf("bad request")
	ErrValidation            = fmt.Errorf("validation failed")
	ErrEmptyCart             = fmt.Errorf("%w: cart is empty", ErrValidation)
	ErrInvalidQuantity       = fmt.Errorf("%w: quantity must be positive", ErrValidation)
	ErrMissingShippingFields = fmt.Errorf("%w: shipping details are incomplete", ErrValidation)
	ErrInvalidID             = fmt.Errorf("%w: invalid identifier", ErrValidation)
	ErrNoProducts            = fmt.Errorf("%w: no product ids requested", ErrValidation)
	ErrTooManyProducts       = fmt.Errorf("%w: too many product ids requested", ErrValidation)
	ErrInvalidPayload        = fmt.Errorf("invalid payload")
	ErrInvalidSignature      = fmt.Errorf("invalid signature")

	// 404 Not Found
	ErrStoreNotFound   = fmt.Errorf("store not found")
	ErrProductNotFound = fmt.Errorf("product not found")
	ErrOrderNotFound   = fmt.Errorf("order not found")

	// Провайдер не знает такого reference
	ErrPaymentReferenceNotFound = fmt.Errorf("payment reference not found")

	// 409 Conflict
	ErrInsufficientStock = fmt.Errorf("insufficient stock")
	ErrOrderStateChanged = fmt.Errorf("order state changed concurrently")

	// 502 Bad Gateway
	ErrProcessor         = fmt.Errorf("payment processor error")
	ErrPaymentLinkFailed = fmt.Errorf("order created but payment link failed")
	ErrAmountMismatch    = fmt.Errorf("paid amount does not match order total")

	// 500
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
