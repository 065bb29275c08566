package usecase

import (
	"context"
	"time"
)

// Transactor выполняет fn в одной транзакции; транзакция передаётся через ctx.
type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type PaymentProcessor interface {
	InitializeTransaction(ctx context.Context, req *PaymentLinkReq) (*PaymentLinkRes, error)
	VerifyTransaction(ctx context.Context, reference string) (*VerifyTransactionRes, error)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}

// NotificationArchive хранит сырые тела проверенных уведомлений.
type NotificationArchive interface {
	Save(ctx context.Context, reference string, body []byte) error
}

type Metrics interface {
	CheckoutResult(outcome string, d time.Duration)
	NotificationResult(outcome string)
	StockShortfall()
	ReconcileResult(outcome string)
}
