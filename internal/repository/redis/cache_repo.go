package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/cfg"
	"github.com/DRSN-tech/storefront-backend/internal/repository/redis/converter"
	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/clients"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
)

// productVersionTTL больше любого окна между чтением версии и записью в кэш.
const productVersionTTL = time.Hour

// setIfVersionScript пишет товар, только если его версия не менялась с момента чтения.
// Отсутствующая версия считается нулевой.
const setIfVersionScript = `
local v = redis.call('GET', KEYS[2]) or '0'
if v ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`

type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.ProductInfoConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.ProductInfoConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// GetProducts возвращает закэшированные товары по ID, игнорируя промахи и логируя их
func (r *CacheRepo) GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]usecase.ProductInfo, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]usecase.ProductInfo{}, nil
	}

	keys := r.buildProductCacheKeys(ids)

	values, err := r.client.Client.MGet(ctx, keys...).Result()
	if err != nil {
		r.logger.Warnf("Redis MGET failed: %v", e.Wrap(whereami.WhereAmI(), err))
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	result := make(map[uuid.UUID]usecase.ProductInfo, len(values))
	for i, val := range values {
		data, err := redisValueToBytes(val, keys[i])
		if err != nil {
			r.logger.Warnf("%v", e.Wrap(whereami.WhereAmI(), err))
		}

		if data == nil {
			continue // cache miss
		}

		info, err := r.unmarshalProductFromCache(data)
		if err != nil {
			r.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
			r.evict(ctx, keys[i])
			continue
		}

		if info.ID != ids[i] {
			r.logger.Warnf("Cache ID mismatch: key_id: %s, model_id: %s", ids[i], info.ID)
			r.evict(ctx, keys[i])
			continue // cache miss
		}
		result[ids[i]] = *info
	}

	return result, nil
}

// ProductVersions возвращает счётчики инвалидаций товаров. Их читают до запроса в БД
// и передают в SetProducts.
func (r *CacheRepo) ProductVersions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	versions := make(map[uuid.UUID]int64, len(ids))
	if len(ids) == 0 {
		return versions, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = versionKey(id.String())
	}

	values, err := r.client.Client.MGet(ctx, keys...).Result()
	if err != nil {
		r.logger.Warnf("Redis MGET versions failed: %v", e.Wrap(whereami.WhereAmI(), err))
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	for i, val := range values {
		data, err := redisValueToBytes(val, keys[i])
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		if data == nil {
			versions[ids[i]] = 0
			continue
		}

		v, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		versions[ids[i]] = v
	}

	return versions, nil
}

// SetProducts одним пайплайном кэширует несколько товаров с заданным TTL.
// Товар без версии или с изменившейся версией пропускается: его остаток мог устареть.
// Игнорирует ошибки сериализации/записи, логируя их.
func (r *CacheRepo) SetProducts(ctx context.Context, products []usecase.ProductInfo, versions map[uuid.UUID]int64) error {
	if len(products) == 0 {
		return nil
	}

	models := r.conv.ToArrRedisModel(products)
	ttl := strconv.FormatInt(r.cfg.ProductTTL.Milliseconds(), 10)

	pipeline := r.client.Client.Pipeline()
	queued := 0
	for i, model := range models {
		version, ok := versions[products[i].ID]
		if !ok {
			continue
		}

		data, err := json.Marshal(model)
		if err != nil {
			r.logger.Warnf("Failed to marshal product for caching (Product ID: %s): %v", model.ID, e.Wrap(whereami.WhereAmI(), err))
			continue
		}

		pipeline.Eval(ctx, setIfVersionScript,
			[]string{productKey(model.ID), versionKey(model.ID)},
			strconv.FormatInt(version, 10), data, ttl)
		queued++
	}

	if queued == 0 {
		return nil
	}

	if _, err := pipeline.Exec(ctx); err != nil {
		r.logger.Warnf("Cache pipeline failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}

	return nil
}

// DeleteProducts удаляет товары из кэша по ID и увеличивает их версии,
// чтобы уже начатое фоновое заполнение не вернуло старый остаток.
// Вызывается после любого изменения остатков.
func (r *CacheRepo) DeleteProducts(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	pipeline := r.client.Client.TxPipeline()
	for _, id := range ids {
		key := versionKey(id.String())
		pipeline.Incr(ctx, key)
		pipeline.Expire(ctx, key, productVersionTTL)
	}
	pipeline.Del(ctx, r.buildProductCacheKeys(ids)...)

	if _, err := pipeline.Exec(ctx); err != nil {
		r.logger.Warnf("Redis invalidation failed: %v", e.Wrap(whereami.WhereAmI(), err))
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (r *CacheRepo) evict(ctx context.Context, key string) {
	if err := r.client.Client.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
		r.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}
}

// unmarshalProductFromCache десериализует JSON из кэша
func (r *CacheRepo) unmarshalProductFromCache(data []byte) (*usecase.ProductInfo, error) {
	var model converter.ProductInfoRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, err
	}

	return r.conv.ToUseCase(&model)
}

func (r *CacheRepo) buildProductCacheKeys(ids []uuid.UUID) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id.String())
	}

	return keys
}

func productKey(id string) string {
	return "product:" + id
}

func versionKey(id string) string {
	return "product:ver:" + id
}

// redisValueToBytes конвертирует значение из Redis в []byte.
// Поддерживает string и []byte, возвращает ошибку для неизвестных типов.
func redisValueToBytes(val any, key string) ([]byte, error) {
	switch v := val.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case nil:
		return nil, nil // cache miss
	default:
		return nil, fmt.Errorf("unexpected Redis value type for key %s: %T", key, val)
	}
}
