package redis

import (
	"context"
	"testing"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/cfg"
	"github.com/DRSN-tech/storefront-backend/internal/repository/redis/converter"
	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/clients"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*CacheRepo, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	redisCfg := &cfg.RedisCfg{Addr: srv.Addr(), MaxRetries: -1, ProductTTL: 30 * time.Second}
	client := clients.NewRedisClient(redisCfg)
	t.Cleanup(func() { _ = client.Close() })

	return NewCacheRepo(client, converter.NewProductInfoConverter(), redisCfg, logger.NewNop()), srv
}

func sampleProduct() usecase.ProductInfo {
	return usecase.ProductInfo{
		ID:           uuid.New(),
		StoreID:      uuid.New(),
		Name:         "Linen shirt",
		CategoryName: "Shirts",
		Price:        decimal.RequireFromString("19.99"),
		InStock:      4,
	}
}

func versionsOf(t *testing.T, repo *CacheRepo, ids ...uuid.UUID) map[uuid.UUID]int64 {
	t.Helper()

	versions, err := repo.ProductVersions(context.Background(), ids)
	require.NoError(t, err)
	return versions
}

func TestCacheRepo_SetGetDelete(t *testing.T) {
	repo, srv := newTestCache(t)
	ctx := context.Background()
	p := sampleProduct()
	missing := uuid.New()

	require.NoError(t, repo.SetProducts(ctx, []usecase.ProductInfo{p}, versionsOf(t, repo, p.ID)))
	assert.Equal(t, 30*time.Second, srv.TTL("product:"+p.ID.String()))

	got, err := repo.GetProducts(ctx, []uuid.UUID{p.ID, missing})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[p.ID].Price.Equal(p.Price))
	assert.Equal(t, p.StoreID, got[p.ID].StoreID)
	assert.Equal(t, 4, got[p.ID].InStock)

	require.NoError(t, repo.DeleteProducts(ctx, []uuid.UUID{p.ID}))
	got, err = repo.GetProducts(ctx, []uuid.UUID{p.ID})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCacheRepo_InvalidatedProductIsNotRefilled(t *testing.T) {
	repo, srv := newTestCache(t)
	ctx := context.Background()
	p := sampleProduct()
	key := "product:" + p.ID.String()

	stale := versionsOf(t, repo, p.ID)
	assert.Equal(t, int64(0), stale[p.ID])

	// Остаток изменился после чтения из БД, но до записи в кэш
	require.NoError(t, repo.DeleteProducts(ctx, []uuid.UUID{p.ID}))
	require.NoError(t, repo.SetProducts(ctx, []usecase.ProductInfo{p}, stale))
	assert.False(t, srv.Exists(key))

	fresh := versionsOf(t, repo, p.ID)
	assert.Equal(t, int64(1), fresh[p.ID])
	require.NoError(t, repo.SetProducts(ctx, []usecase.ProductInfo{p}, fresh))
	assert.True(t, srv.Exists(key))
}

func TestCacheRepo_SetWithoutVersionIsSkipped(t *testing.T) {
	repo, srv := newTestCache(t)
	p := sampleProduct()

	require.NoError(t, repo.SetProducts(context.Background(), []usecase.ProductInfo{p}, nil))
	assert.False(t, srv.Exists("product:"+p.ID.String()))
}

func TestCacheRepo_ExpiredEntryIsMiss(t *testing.T) {
	repo, srv := newTestCache(t)
	ctx := context.Background()
	p := sampleProduct()

	require.NoError(t, repo.SetProducts(ctx, []usecase.ProductInfo{p}, versionsOf(t, repo, p.ID)))
	srv.FastForward(31 * time.Second)

	got, err := repo.GetProducts(ctx, []uuid.UUID{p.ID})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCacheRepo_CorruptedEntryIsEvicted(t *testing.T) {
	repo, srv := newTestCache(t)
	id := uuid.New()
	key := "product:" + id.String()
	require.NoError(t, srv.Set(key, "{not json"))

	got, err := repo.GetProducts(context.Background(), []uuid.UUID{id})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.False(t, srv.Exists(key))
}

func TestCacheRepo_RedisDown(t *testing.T) {
	repo, srv := newTestCache(t)
	srv.Close()

	_, err := repo.GetProducts(context.Background(), []uuid.UUID{uuid.New()})
	assert.Error(t, err)
}
