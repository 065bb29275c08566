package http

import (
	"net/http"

	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
)

type OrderHandler struct {
	orderUC   usecase.OrderUC
	paymentUC usecase.PaymentUC
	logger    logger.Logger
}

func NewOrderHandler(orderUC usecase.OrderUC, paymentUC usecase.PaymentUC, logger logger.Logger) *OrderHandler {
	return &OrderHandler{orderUC: orderUC, paymentUC: paymentUC, logger: logger}
}

// getOrder
//
//	@Summary	Состояние заказа
//	@Tags		orders
//	@Produce	json
//	@Param		storeID	path		string	true	"ID магазина"
//	@Param		orderID	path		string	true	"ID заказа"
//	@Success	200		{object}	OrderResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/{storeID}/orders/{orderID} [get]
func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuidParam(r, "storeID")
	if err != nil {
		WriteError(w, err)
		return
	}
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		WriteError(w, err)
		return
	}

	order, err := h.orderUC.GetOrder(r.Context(), storeID, orderID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toOrderResponse(order))
}

// verifyPayment
//
//	@Summary		Ручная сверка оплаты
//	@Description	Запрашивает статус транзакции у провайдера и подтверждает заказ, если оплата прошла
//	@Tags			orders
//	@Produce		json
//	@Param			storeID	path		string	true	"ID магазина"
//	@Param			orderID	path		string	true	"ID заказа"
//	@Success		200		{object}	VerifyPaymentResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse	"Сумма оплаты не совпадает с заказом"
//	@Failure		502		{object}	ErrorResponse
//	@Router			/{storeID}/orders/{orderID}/verify [post]
func (h *OrderHandler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuidParam(r, "storeID")
	if err != nil {
		WriteError(w, err)
		return
	}
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.paymentUC.VerifyPayment(r.Context(), storeID, orderID)
	if err != nil {
		h.logger.Warnf("verify payment for order %s: %v", orderID, err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, VerifyPaymentResponse{
		OrderID:         res.OrderID.String(),
		OrderStatus:     string(res.OrderStatus),
		ProcessorStatus: res.ProcessorStatus,
		Confirmed:       res.Confirmed,
	})
}
