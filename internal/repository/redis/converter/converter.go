package converter

import (
	"fmt"

	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductInfoConverter interface {
	ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel
	ToUseCase(model *ProductInfoRedisModel) (*usecase.ProductInfo, error)
	ToArrRedisModel(entities []usecase.ProductInfo) []ProductInfoRedisModel
}

type productInfoConverter struct{}

func NewProductInfoConverter() ProductInfoConverter {
	return productInfoConverter{}
}

func (productInfoConverter) ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel {
	if entity == nil {
		return nil
	}

	return &ProductInfoRedisModel{
		ID:           entity.ID.String(),
		StoreID:      entity.StoreID.String(),
		Name:         entity.Name,
		CategoryName: entity.CategoryName,
		Price:        entity.Price.String(),
		InStock:      entity.InStock,
		ImageURL:     entity.ImageURL,
	}
}

// ToUseCase возвращает ошибку для повреждённых записей, их следует считать промахом.
func (productInfoConverter) ToUseCase(model *ProductInfoRedisModel) (*usecase.ProductInfo, error) {
	if model == nil {
		return nil, nil
	}

	id, err := uuid.Parse(model.ID)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}

	storeID, err := uuid.Parse(model.StoreID)
	if err != nil {
		return nil, fmt.Errorf("parse store id: %w", err)
	}

	price, err := decimal.NewFromString(model.Price)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}

	return &usecase.ProductInfo{
		ID:           id,
		StoreID:      storeID,
		Name:         model.Name,
		CategoryName: model.CategoryName,
		Price:        price,
		InStock:      model.InStock,
		ImageURL:     model.ImageURL,
	}, nil
}

func (c productInfoConverter) ToArrRedisModel(entities []usecase.ProductInfo) []ProductInfoRedisModel {
	models := make([]ProductInfoRedisModel, 0, len(entities))
	for i := range entities {
		models = append(models, *c.ToRedisModel(&entities[i]))
	}

	return models
}
