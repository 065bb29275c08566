package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/go-playground/validator/v10"
)

const maxCheckoutBody = 64 << 10

type CheckoutHandler struct {
	checkoutUC usecase.CheckoutUC
	validate   *validator.Validate
	logger     logger.Logger
}

func NewCheckoutHandler(checkoutUC usecase.CheckoutUC, logger logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkoutUC: checkoutUC, validate: newValidator(), logger: logger}
}

// createOrder
//
//	@Summary		Оформление заказа
//	@Description	Резервирует товары, создаёт заказ и возвращает ссылку на оплату
//	@Tags			checkout
//	@Accept			json
//	@Produce		json
//	@Param			storeID	path		string				true	"ID магазина"
//	@Param			request	body		CheckoutRequest		true	"Корзина и адрес доставки"
//	@Success		201		{object}	CheckoutResponse
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		404		{object}	ErrorResponse	"Магазин или товар не найден"
//	@Failure		409		{object}	ErrorResponse	"Недостаточно товара, productId в ответе"
//	@Failure		502		{object}	ErrorResponse	"Заказ создан, ссылка на оплату не получена, orderId в ответе"
//	@Router			/{storeID}/checkout [post]
func (h *CheckoutHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuidParam(r, "storeID")
	if err != nil {
		WriteError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCheckoutBody)

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warnf("%d %s: %v", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err)
		WriteError(w, e.Wrap("decode checkout request", e.ErrStatusBadRequest))
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		err = translateValidation(err)
		h.logger.Warnf("%d checkout rejected: %v", http.StatusBadRequest, err)
		WriteError(w, err)
		return
	}

	res, err := h.checkoutUC.CreateOrder(r.Context(), req.toUseCase(storeID))
	if err != nil {
		var createdErr *usecase.OrderCreatedError
		switch {
		case errors.As(err, &createdErr):
			// Уже залогировано в usecase
		case errors.Is(err, e.ErrValidation), errors.Is(err, e.ErrInsufficientStock),
			errors.Is(err, e.ErrStoreNotFound), errors.Is(err, e.ErrProductNotFound):
			h.logger.Warnf("checkout rejected: %v", err)
		default:
			h.logger.Errorf(err, "checkout failed")
		}

		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, CheckoutResponse{
		URL:     res.CheckoutURL,
		OrderID: res.OrderID.String(),
	})
}
