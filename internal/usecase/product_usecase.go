package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/google/uuid"
)

const (
	maxProductsPerRequest = 100
	cacheFillTimeout      = 500 * time.Millisecond
)

// ProductUseCase отдаёт витрине цены и остатки товаров, кэшируя их в Redis.
type ProductUseCase struct {
	productRepo ProductRepository
	cacheRepo   CacheRepository
	logger      logger.Logger
}

func NewProductUC(productRepo ProductRepository, cacheRepo CacheRepository, logger logger.Logger) *ProductUseCase {
	return &ProductUseCase{
		productRepo: productRepo,
		cacheRepo:   cacheRepo,
		logger:      logger,
	}
}

// GetProductsInfo возвращает информацию о продуктах магазина по их идентификаторам.
func (p *ProductUseCase) GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error) {
	const op = "ProductUseCase.GetProductsInfo"

	// Валидация
	if len(req.IDs) == 0 {
		return nil, e.Wrap(op, e.ErrNoProducts)
	}
	if len(req.IDs) > maxProductsPerRequest {
		return nil, e.Wrap(op, e.ErrTooManyProducts)
	}

	// Поиск продуктов в кэше
	cacheProductsMap, err := p.cacheRepo.GetProducts(ctx, req.IDs)
	cacheAvailable := err == nil
	if err != nil {
		cacheProductsMap = nil
	}

	var nonCacheable []uuid.UUID
	for _, productID := range req.IDs {
		if product, ok := cacheProductsMap[productID]; !ok || product.StoreID != req.StoreID {
			nonCacheable = append(nonCacheable, productID)
		}
	}

	// Получение продуктов из БД
	var productsInfoFromDB []ProductInfo
	if len(nonCacheable) > 0 {
		// Версии читаются до БД: инвалидация между чтением и записью отменит запись
		var versions map[uuid.UUID]int64
		if cacheAvailable {
			if versions, err = p.cacheRepo.ProductVersions(ctx, nonCacheable); err != nil {
				p.logger.Warnf("Failed to read product cache versions: %v", e.Wrap(op, err))
				versions = nil
			}
		}

		productsInfoFromDB, err = p.productRepo.GetProductsInfo(ctx, req.StoreID, nonCacheable)
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		if len(productsInfoFromDB) > 0 && versions != nil {
			toCache := productsInfoFromDB
			// Фоновое добавление продуктов в кэш
			go func() {
				bgCtx, cancel := context.WithTimeout(context.Background(), cacheFillTimeout)
				defer cancel()

				if err := p.cacheRepo.SetProducts(bgCtx, toCache, versions); err != nil {
					p.logger.Warnf("Failed to cache products in background: %v", e.Wrap(op, err))
				}
			}()
		}
	}

	dbProductsMap := make(map[uuid.UUID]ProductInfo, len(productsInfoFromDB))
	for _, productInfo := range productsInfoFromDB {
		dbProductsMap[productInfo.ID] = productInfo
	}

	// Формирование результата в порядке запроса
	result := make([]ProductInfo, 0, len(req.IDs))
	notFoundProducts := make([]uuid.UUID, 0)
	for _, id := range req.IDs {
		if pr, ok := dbProductsMap[id]; ok {
			result = append(result, pr)
		} else if pr, ok := cacheProductsMap[id]; ok && pr.StoreID == req.StoreID {
			result = append(result, pr)
		} else {
			notFoundProducts = append(notFoundProducts, id)
		}
	}

	return NewGetProductsRes(result, notFoundProducts), nil
}
