package usecase

import (
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CHECKOUT USECASE

// CartItem — позиция корзины.
type CartItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderReq — запрос на оформление заказа.
type CreateOrderReq struct {
	StoreID  uuid.UUID
	Items    []CartItem
	Shipping domain.ShippingDetails
}

// CreateOrderRes — результат оформления: ссылка на оплату.
type CreateOrderRes struct {
	OrderID     uuid.UUID
	CheckoutURL string
	TotalAmount decimal.Decimal
	Currency    string
}

// PAYMENT USECASE

// NotificationOutcome — чем закончилась обработка уведомления.
type NotificationOutcome string

const (
	NotificationPaid        NotificationOutcome = "paid"
	NotificationAlreadyPaid NotificationOutcome = "already_paid"
	NotificationIgnored     NotificationOutcome = "ignored"
)

type NotificationRes struct {
	Outcome    NotificationOutcome
	OrderID    uuid.UUID
	Shortfalls []domain.StockShortfall
}

// PaymentEvent — тело вебхука провайдера.
type PaymentEvent struct {
	Event string           `json:"event"`
	Data  PaymentEventData `json:"data"`
}

type PaymentEventData struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    int64           `json:"amount"` // В минимальных единицах валюты
	Currency  string          `json:"currency"`
	Metadata  PaymentMetadata `json:"metadata"`
	Customer  struct {
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customer"`
}

// PaymentMetadata передаётся провайдеру при создании ссылки и возвращается в уведомлении.
type PaymentMetadata struct {
	OrderID string `json:"order_id,omitempty"`
	StoreID string `json:"store_id,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// VerifyPaymentRes — результат ручной сверки заказа с провайдером.
type VerifyPaymentRes struct {
	OrderID         uuid.UUID
	OrderStatus     domain.OrderStatus
	ProcessorStatus string
	Confirmed       bool
}

// ReconcileRes — итог одного прохода сверки зависших заказов.
type ReconcileRes struct {
	Checked   int
	Confirmed int
	Cancelled int
	Skipped   int
}

// PRODUCT USECASE

// GetProductsReq запрос информации о продуктах магазина по их идентификаторам.
type GetProductsReq struct {
	StoreID uuid.UUID
	IDs     []uuid.UUID
}

// GetProductsRes — ответ с данными запрошенных продуктов.
type GetProductsRes struct {
	Products         []ProductInfo
	NotFoundProducts []uuid.UUID
}

// ProductInfo — DTO с информацией о продукте для витрины.
type ProductInfo struct {
	ID           uuid.UUID
	StoreID      uuid.UUID
	Name         string
	CategoryName string
	Price        decimal.Decimal
	InStock      int
	ImageURL     string
}

// INFRASTRUCTURE

// PaymentLinkReq — запрос ссылки на оплату у провайдера.
type PaymentLinkReq struct {
	Reference string
	Amount    decimal.Decimal
	Currency  string
	Email     string
	Metadata  PaymentMetadata
}

type PaymentLinkRes struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyTransactionRes — состояние транзакции у провайдера.
type VerifyTransactionRes struct {
	Reference string
	Status    string
	Amount    int64 // В минимальных единицах валюты
	Currency  string
	PaidAt    *time.Time
	Metadata  PaymentMetadata
}

// Succeeded сообщает, списаны ли деньги.
func (v *VerifyTransactionRes) Succeeded() bool {
	return v.Status == "success"
}

// InProgress сообщает, что покупатель ещё может завершить оплату.
func (v *VerifyTransactionRes) InProgress() bool {
	switch v.Status {
	case "ongoing", "pending", "processing", "queued":
		return true
	}

	return false
}

type WriteRawMessageReq struct {
	Key       string
	EventType string
	Payload   []byte
}

// MAPPERS

func NewGetProductsRes(pr []ProductInfo, notFoundProducts []uuid.UUID) *GetProductsRes {
	return &GetProductsRes{
		Products:         pr,
		NotFoundProducts: notFoundProducts,
	}
}

func NewWriteRawMessageReq(key, eventType string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:       key,
		EventType: eventType,
		Payload:   payload,
	}
}

// ToMinorUnits переводит сумму в минимальные единицы валюты (kobo, cents).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
