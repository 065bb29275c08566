package http

import (
	"io"
	"net/http"

	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
)

const (
	signatureHeader = "X-Paystack-Signature"
	maxWebhookBody  = 1 << 20
)

type WebhookHandler struct {
	paymentUC usecase.PaymentUC
	logger    logger.Logger
}

func NewWebhookHandler(paymentUC usecase.PaymentUC, logger logger.Logger) *WebhookHandler {
	return &WebhookHandler{paymentUC: paymentUC, logger: logger}
}

// handleNotification
//
//	@Summary		Уведомление платёжного провайдера
//	@Description	Проверяет подпись и подтверждает оплату заказа. 2xx и 4xx провайдер не повторяет, 5xx повторяет.
//	@Tags			webhook
//	@Accept			json
//	@Produce		json
//	@Param			X-Paystack-Signature	header		string	true	"HMAC-SHA512 тела запроса"
//	@Success		200						{object}	WebhookResponse
//	@Failure		400						{object}	ErrorResponse	"Неверная подпись или некорректное тело"
//	@Failure		404						{object}	ErrorResponse	"Заказ не найден"
//	@Failure		500						{object}	ErrorResponse	"Временная ошибка, провайдер повторит доставку"
//	@Router			/webhook [post]
func (h *WebhookHandler) handleNotification(w http.ResponseWriter, r *http.Request) {
	// Подпись считается по сырым байтам, поэтому тело не декодируется до проверки
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warnf("webhook body read failed: %v", err)
		WriteError(w, e.Wrap("read webhook body", e.ErrInvalidPayload))
		return
	}

	res, err := h.paymentUC.HandleNotification(r.Context(), body, r.Header.Get(signatureHeader))
	if err != nil {
		WriteError(w, webhookError(err))
		if usecase.IsRetryable(err) {
			h.logger.Errorf(err, "webhook processing failed, processor will retry")
		}
		return
	}

	WriteSuccess(w, http.StatusOK, WebhookResponse{Status: "ok", Outcome: string(res.Outcome)})
}

// webhookError гарантирует, что терминальные ошибки не дают 5xx, а временные дают.
func webhookError(err error) error {
	code, _ := ToHTTPResponse(err)
	retryable := usecase.IsRetryable(err)

	switch {
	case retryable && code < http.StatusInternalServerError:
		return e.Wrap(err.Error(), e.ErrInternalServerError)
	case !retryable && code >= http.StatusInternalServerError:
		return e.Wrap(err.Error(), e.ErrStatusBadRequest)
	default:
		return err
	}
}
