package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	Code      int      `json:"code"`
	Message   string   `json:"message"`
	ProductID string   `json:"productId,omitempty"`
	OrderID   string   `json:"orderId,omitempty"`
	Fields    []string `json:"fields,omitempty"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// Конкретные ошибки валидации отдаются клиенту как есть, остальные 400 обобщаются.
var validationErrors = []error{
	e.ErrEmptyCart,
	e.ErrInvalidQuantity,
	e.ErrMissingShippingFields,
	e.ErrInvalidID,
	e.ErrNoProducts,
	e.ErrTooManyProducts,
}

func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrValidation):
		for _, v := range validationErrors {
			if errors.Is(err, v) {
				return http.StatusBadRequest, v.Error()
			}
		}
		return http.StatusBadRequest, e.ErrValidation.Error()
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, e.ErrStatusBadRequest.Error()
	case errors.Is(err, e.ErrInvalidPayload):
		return http.StatusBadRequest, e.ErrInvalidPayload.Error()
	case errors.Is(err, e.ErrInvalidSignature):
		return http.StatusBadRequest, e.ErrInvalidSignature.Error()
	case errors.Is(err, e.ErrStoreNotFound):
		return http.StatusNotFound, e.ErrStoreNotFound.Error()
	case errors.Is(err, e.ErrProductNotFound):
		return http.StatusNotFound, e.ErrProductNotFound.Error()
	case errors.Is(err, e.ErrOrderNotFound):
		return http.StatusNotFound, e.ErrOrderNotFound.Error()
	case errors.Is(err, e.ErrInsufficientStock):
		return http.StatusConflict, e.ErrInsufficientStock.Error()
	case errors.Is(err, e.ErrAmountMismatch):
		return http.StatusConflict, e.ErrAmountMismatch.Error()
	case errors.Is(err, e.ErrOrderStateChanged):
		return http.StatusConflict, e.ErrOrderStateChanged.Error()
	case errors.Is(err, e.ErrPaymentLinkFailed):
		return http.StatusBadGateway, e.ErrPaymentLinkFailed.Error()
	case errors.Is(err, e.ErrProcessor):
		return http.StatusBadGateway, e.ErrProcessor.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

// errorResponse дополняет ответ деталями типизированных ошибок.
func errorResponse(err error) *ErrorResponse {
	code, msg := ToHTTPResponse(err)
	res := NewErrorResponse(code, msg)

	var stockErr *usecase.InsufficientStockError
	if errors.As(err, &stockErr) {
		res.ProductID = stockErr.ProductID.String()
	}

	var createdErr *usecase.OrderCreatedError
	if errors.As(err, &createdErr) {
		res.OrderID = createdErr.OrderID.String()
	}

	var fieldsErr *usecase.FieldsError
	if errors.As(err, &fieldsErr) {
		res.Fields = fieldsErr.Fields
	}

	return res
}

func WriteError(w http.ResponseWriter, err error) {
	writeErrorResponse(w, errorResponse(err))
}

func writeErrorResponse(w http.ResponseWriter, res *ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.Code)
	_ = json.NewEncoder(w).Encode(res)
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, e.Wrap(name, e.ErrInvalidID)
	}

	return id, nil
}
