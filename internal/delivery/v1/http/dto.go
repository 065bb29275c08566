package http

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CheckoutRequest — тело POST /{storeID}/checkout.
type CheckoutRequest struct {
	Items    []CartItemDTO `json:"items" validate:"required,min=1,dive"`
	Shipping ShippingDTO   `json:"shipping"`
}

type CartItemDTO struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0,lte=2147483647"`
}

type ShippingDTO struct {
	FullName     string `json:"fullName" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country" validate:"required"`
}

type CheckoutResponse struct {
	URL     string `json:"url"`
	OrderID string `json:"orderId"`
}

type OrderItemResponse struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

type OrderResponse struct {
	ID          string              `json:"id"`
	StoreID     string              `json:"storeId"`
	Status      string              `json:"status"`
	IsPaid      bool                `json:"isPaid"`
	TotalAmount string              `json:"totalAmount"`
	Currency    string              `json:"currency"`
	CheckoutURL string              `json:"checkoutUrl,omitempty"`
	Phone       string              `json:"phone"`
	Address     string              `json:"address"`
	Items       []OrderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"createdAt"`
	PaidAt      *time.Time          `json:"paidAt,omitempty"`
}

type VerifyPaymentResponse struct {
	OrderID         string `json:"orderId"`
	OrderStatus     string `json:"orderStatus"`
	ProcessorStatus string `json:"processorStatus"`
	Confirmed       bool   `json:"confirmed"`
}

type WebhookResponse struct {
	Status  string `json:"status"`
	Outcome string `json:"outcome,omitempty"`
}

type ProductResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CategoryName string `json:"categoryName"`
	Price        string `json:"price"`
	InStock      int    `json:"inStock"`
	ImageURL     string `json:"imageUrl,omitempty"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
	NotFound []string          `json:"notFound"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// translateValidation сводит ошибки validator к ошибкам предметной области,
// чтобы клиент получал одинаковые ответы независимо от того, где поймана ошибка.
func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return e.Wrap(err.Error(), e.ErrStatusBadRequest)
	}

	var missing []string
	for _, fe := range verrs {
		if strings.Contains(fe.Namespace(), ".shipping.") {
			missing = append(missing, fe.Field())
			continue
		}

		switch fe.Field() {
		case "items":
			return e.ErrEmptyCart
		case "quantity":
			return e.ErrInvalidQuantity
		case "productId":
			return e.ErrInvalidID
		}
	}

	if len(missing) > 0 {
		return &usecase.FieldsError{Err: e.ErrMissingShippingFields, Fields: missing}
	}

	return e.ErrValidation
}

func (c *CheckoutRequest) toUseCase(storeID uuid.UUID) *usecase.CreateOrderReq {
	items := make([]usecase.CartItem, 0, len(c.Items))
	for _, it := range c.Items {
		// Формат уже проверен тегом uuid
		id, _ := uuid.Parse(it.ProductID)
		items = append(items, usecase.CartItem{ProductID: id, Quantity: it.Quantity})
	}

	s := c.Shipping
	return &usecase.CreateOrderReq{
		StoreID: storeID,
		Items:   items,
		Shipping: domain.ShippingDetails{
			FullName:     strings.TrimSpace(s.FullName),
			Email:        strings.TrimSpace(s.Email),
			Phone:        strings.TrimSpace(s.Phone),
			AddressLine1: strings.TrimSpace(s.AddressLine1),
			AddressLine2: strings.TrimSpace(s.AddressLine2),
			City:         strings.TrimSpace(s.City),
			State:        strings.TrimSpace(s.State),
			PostalCode:   strings.TrimSpace(s.PostalCode),
			Country:      strings.TrimSpace(s.Country),
		},
	}
}

func toOrderResponse(o *domain.Order) *OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID: it.ProductID.String(),
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
		})
	}

	return &OrderResponse{
		ID:          o.ID.String(),
		StoreID:     o.StoreID.String(),
		Status:      string(o.Status),
		IsPaid:      o.IsPaid,
		TotalAmount: o.TotalAmount.StringFixed(2),
		Currency:    o.Currency,
		CheckoutURL: o.CheckoutURL,
		Phone:       o.Phone,
		Address:     o.Address,
		Items:       items,
		CreatedAt:   o.CreatedAt,
		PaidAt:      o.PaidAt,
	}
}

func toProductsResponse(res *usecase.GetProductsRes) *ProductsResponse {
	out := &ProductsResponse{
		Products: make([]ProductResponse, 0, len(res.Products)),
		NotFound: make([]string, 0, len(res.NotFoundProducts)),
	}

	for _, p := range res.Products {
		out.Products = append(out.Products, ProductResponse{
			ID:           p.ID.String(),
			Name:         p.Name,
			CategoryName: p.CategoryName,
			Price:        p.Price.StringFixed(2),
			InStock:      p.InStock,
			ImageURL:     p.ImageURL,
		})
	}

	for _, id := range res.NotFoundProducts {
		out.NotFound = append(out.NotFound, id.String())
	}

	return out
}
