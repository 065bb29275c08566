// Package payment реализует клиент платёжного провайдера с Paystack-совместимым API.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/cfg"
	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/jitter"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/jimlawless/whereami"
)

const maxResponseBody = 1 << 20

// statusError — неуспешный HTTP-ответ провайдера.
type statusError struct {
	Code    int
	Message string
}

func (s *statusError) Error() string {
	return fmt.Sprintf("processor responded %d: %s", s.Code, s.Message)
}

func (s *statusError) temporary() bool {
	return s.Code >= http.StatusInternalServerError || s.Code == http.StatusTooManyRequests
}

// Client вызывает initialize и verify. Каждый запрос ограничен таймаутом,
// временные сбои повторяются с экспоненциальной задержкой.
type Client struct {
	http    *http.Client
	cfg     *cfg.PaymentCfg
	backoff jitter.Backoff
	logger  logger.Logger
}

func NewClient(cfg *cfg.PaymentCfg, logger logger.Logger) *Client {
	return &Client{
		http: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:  cfg,
		backoff: jitter.Backoff{
			Base:        200 * time.Millisecond,
			Max:         2 * time.Second,
			MaxAttempts: cfg.MaxRetries + 1,
			Factor:      jitter.DefaultJitter,
		},
		logger: logger,
	}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeRequest struct {
	Email       string                  `json:"email"`
	Amount      int64                   `json:"amount"`
	Currency    string                  `json:"currency,omitempty"`
	Reference   string                  `json:"reference"`
	CallbackURL string                  `json:"callback_url,omitempty"`
	Metadata    usecase.PaymentMetadata `json:"metadata"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	PaidAt    *time.Time      `json:"paid_at"`
	Metadata  json.RawMessage `json:"metadata"`
}

// InitializeTransaction создаёт ссылку на оплату. Reference совпадает с id заказа,
// поэтому повторный запрос не создаёт второй платёж.
func (c *Client) InitializeTransaction(ctx context.Context, req *usecase.PaymentLinkReq) (*usecase.PaymentLinkRes, error) {
	const op = "payment.Client.InitializeTransaction"

	body := initializeRequest{
		Email:       req.Email,
		Amount:      usecase.ToMinorUnits(req.Amount),
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: c.cfg.CallbackURL,
		Metadata:    req.Metadata,
	}

	var data initializeData
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, e.Wrap(op, err)
	}

	if data.AuthorizationURL == "" {
		return nil, e.Wrap(op, fmt.Errorf("%w: empty authorization_url", e.ErrProcessor))
	}

	if data.Reference == "" {
		data.Reference = req.Reference
	}

	return &usecase.PaymentLinkRes{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// VerifyTransaction запрашивает состояние транзакции.
// Неизвестная провайдеру ссылка возвращает e.ErrPaymentReferenceNotFound.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*usecase.VerifyTransactionRes, error) {
	const op = "payment.Client.VerifyTransaction"

	var data verifyData
	err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.Code == http.StatusNotFound || se.Code == http.StatusBadRequest) {
			return nil, e.Wrap(op, fmt.Errorf("%w: %s", e.ErrPaymentReferenceNotFound, se.Message))
		}

		return nil, e.Wrap(op, err)
	}

	res := &usecase.VerifyTransactionRes{
		Reference: data.Reference,
		Status:    data.Status,
		Amount:    data.Amount,
		Currency:  data.Currency,
		PaidAt:    data.PaidAt,
	}

	// metadata приходит объектом или пустой строкой
	if len(data.Metadata) > 0 && data.Metadata[0] == '{' {
		if err := json.Unmarshal(data.Metadata, &res.Metadata); err != nil {
			c.logger.Warnf("verify %s: unreadable metadata: %v", reference, err)
		}
	}

	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path

	err := c.backoff.Retry(ctx, func(attempt int) error {
		if attempt > 0 {
			c.logger.Debugf("retrying %s %s, attempt %d", method, path, attempt+1)
		}
		return c.once(ctx, method, endpoint, payload, out)
	}, retryable)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}

		return fmt.Errorf("%w: %w", e.ErrProcessor, err)
	}

	return nil
}

func (c *Client) once(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return err
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &statusError{Code: resp.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if !env.Status {
		return &statusError{Code: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}

	return nil
}

// retryable: сетевые ошибки, 5xx и 429. Отмену контекста не повторяем.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var se *statusError
	if errors.As(err, &se) {
		return se.temporary()
	}

	return true
}
