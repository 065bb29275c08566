package converter

import (
	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/DRSN-tech/storefront-backend/internal/usecase"
)

// StoreConverter преобразует сущности Store между domain и моделью PostgreSQL.
type StoreConverter interface {
	ToEntity(model *StoreModel) *domain.Store
}

// OrderConverter преобразует заказ и его позиции между domain и моделями PostgreSQL.
type OrderConverter interface {
	ToModel(entity *domain.Order) *OrderModel
	ToEntity(model *OrderModel) *domain.Order
	ItemToModel(entity domain.OrderItem) *OrderItemModel
	ItemsToEntity(models []OrderItemModel) []domain.OrderItem
}

// ShippingDetailsConverter преобразует адрес доставки между domain и моделью PostgreSQL.
type ShippingDetailsConverter interface {
	ToModel(entity *domain.ShippingDetails) *ShippingDetailsModel
}

// OutboxEventConverter преобразует сущности OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter interface {
	ToModel(entity *usecase.OutboxEvent) *OutboxEventModel
	ToEntity(model *OutboxEventModel) *usecase.OutboxEvent
	ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent
}

type storeConverter struct{}

func NewStoreConverter() StoreConverter {
	return storeConverter{}
}

func (storeConverter) ToEntity(model *StoreModel) *domain.Store {
	if model == nil {
		return nil
	}

	return &domain.Store{
		ID:        model.ID,
		Name:      model.Name,
		UserID:    model.UserID,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

type orderConverter struct{}

func NewOrderConverter() OrderConverter {
	return orderConverter{}
}

func (orderConverter) ToModel(entity *domain.Order) *OrderModel {
	if entity == nil {
		return nil
	}

	return &OrderModel{
		ID:                entity.ID,
		StoreID:           entity.StoreID,
		Status:            string(entity.Status),
		IsPaid:            entity.IsPaid,
		IsSent:            entity.IsSent,
		Phone:             entity.Phone,
		Address:           entity.Address,
		ShippingDetailsID: entity.ShippingDetailsID,
		TotalAmount:       entity.TotalAmount,
		Currency:          entity.Currency,
		PaymentReference:  entity.PaymentReference,
		CheckoutURL:       entity.CheckoutURL,
		PaidAt:            entity.PaidAt,
		CreatedAt:         entity.CreatedAt,
		UpdatedAt:         entity.UpdatedAt,
	}
}

func (orderConverter) ToEntity(model *OrderModel) *domain.Order {
	if model == nil {
		return nil
	}

	return &domain.Order{
		ID:                model.ID,
		StoreID:           model.StoreID,
		Status:            domain.OrderStatus(model.Status),
		IsPaid:            model.IsPaid,
		IsSent:            model.IsSent,
		Phone:             model.Phone,
		Address:           model.Address,
		ShippingDetailsID: model.ShippingDetailsID,
		TotalAmount:       model.TotalAmount,
		Currency:          model.Currency,
		PaymentReference:  model.PaymentReference,
		CheckoutURL:       model.CheckoutURL,
		PaidAt:            model.PaidAt,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}

func (orderConverter) ItemToModel(entity domain.OrderItem) *OrderItemModel {
	return &OrderItemModel{
		ID:        entity.ID,
		OrderID:   entity.OrderID,
		ProductID: entity.ProductID,
		Quantity:  entity.Quantity,
		UnitPrice: entity.UnitPrice,
	}
}

func (orderConverter) ItemsToEntity(models []OrderItemModel) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(models))
	for _, m := range models {
		items = append(items, domain.OrderItem{
			ID:        m.ID,
			OrderID:   m.OrderID,
			ProductID: m.ProductID,
			Quantity:  m.Quantity,
			UnitPrice: m.UnitPrice,
		})
	}

	return items
}

type shippingDetailsConverter struct{}

func NewShippingDetailsConverter() ShippingDetailsConverter {
	return shippingDetailsConverter{}
}

func (shippingDetailsConverter) ToModel(entity *domain.ShippingDetails) *ShippingDetailsModel {
	if entity == nil {
		return nil
	}

	return &ShippingDetailsModel{
		ID:           entity.ID,
		FullName:     entity.FullName,
		Email:        entity.Email,
		Phone:        entity.Phone,
		AddressLine1: entity.AddressLine1,
		AddressLine2: entity.AddressLine2,
		City:         entity.City,
		State:        entity.State,
		PostalCode:   entity.PostalCode,
		Country:      entity.Country,
		CreatedAt:    entity.CreatedAt,
	}
}

type outboxEventConverter struct{}

func NewOutboxEventConverter() OutboxEventConverter {
	return outboxEventConverter{}
}

func (outboxEventConverter) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	if entity == nil {
		return nil
	}

	return &OutboxEventModel{
		ID:          entity.ID,
		EventID:     entity.EventID,
		EventType:   string(entity.EventType),
		AggregateID: entity.AggregateID,
		Payload:     entity.Payload,
		Status:      string(entity.Status),
		CreatedAt:   entity.CreatedAt,
		ProcessedAt: entity.ProcessedAt,
	}
}

func (outboxEventConverter) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	if model == nil {
		return nil
	}

	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     model.EventID,
		EventType:   usecase.OutboxEventType(model.EventType),
		AggregateID: model.AggregateID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
	}
}

func (c outboxEventConverter) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	events := make([]*usecase.OutboxEvent, 0, len(models))
	for _, m := range models {
		events = append(events, c.ToEntity(m))
	}

	return events
}
