// 文件: pkg/marketdata/cache_repo.go
// 行情快照 Redis 缓存层
//
// 装饰底层 SnapshotRepository:
// - Latest: 先查 Redis，miss 则查底层并回填
// - Save:   先写底层，成功后删除该标的的缓存 (Cache Aside)
// - History 不缓存

package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ SnapshotRepository = (*CachedSnapshotRepository)(nil)

const (
	// 最新快照: marketdata:latest:{symbol}
	cacheKeyLatest = "marketdata:latest:%s"

	// 快照刷新频率在秒级到分钟级，TTL 只兜底
	DefaultCacheTTL = 30 * time.Second
)

// CachedSnapshotRepository Redis 缓存装饰器
type CachedSnapshotRepository struct {
	repo  SnapshotRepository
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedSnapshotRepository ttl <= 0 时使用 DefaultCacheTTL
func NewCachedSnapshotRepository(repo SnapshotRepository, rds *redis.Client, ttl time.Duration) *CachedSnapshotRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSnapshotRepository{
		repo:  repo,
		redis: rds,
		ttl:   ttl,
	}
}

func latestKey(symbol string) string {
	return fmt.Sprintf(cacheKeyLatest, symbol)
}

// =============================================================================
// 读
// =============================================================================

func (r *CachedSnapshotRepository) Latest(ctx context.Context, symbol string) (*Snapshot, error) {
	key := latestKey(symbol)

	// 1. 查缓存
	data, err := r.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var snap Snapshot
		if json.Unmarshal(data, &snap) == nil {
			return &snap, nil
		}
	case !errors.Is(err, redis.Nil):
		// Redis 故障不影响定价，降级查底层
		log.Printf("[MarketData] cache get failed: symbol=%s, err=%v", symbol, err)
	}

	// 2. 查底层
	snap, err := r.repo.Latest(ctx, symbol)
	if err != nil {
		return nil, err
	}

	// 3. 回填
	r.setCache(ctx, key, snap)
	return snap, nil
}

func (r *CachedSnapshotRepository) History(ctx context.Context, symbol string, limit int) ([]*Snapshot, error) {
	return r.repo.History(ctx, symbol, limit)
}

// =============================================================================
// 写
// =============================================================================

func (r *CachedSnapshotRepository) Save(ctx context.Context, snap *Snapshot) error {
	if err := r.repo.Save(ctx, snap); err != nil {
		return err
	}
	r.Invalidate(ctx, snap.Symbol)
	return nil
}

// Invalidate 删除某标的的缓存
func (r *CachedSnapshotRepository) Invalidate(ctx context.Context, symbol string) {
	if err := r.redis.Del(ctx, latestKey(symbol)).Err(); err != nil {
		log.Printf("[MarketData] cache invalidate failed: symbol=%s, err=%v", symbol, err)
	}
}

func (r *CachedSnapshotRepository) setCache(ctx context.Context, key string, snap *Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, key, data, r.ttl).Err(); err != nil {
		log.Printf("[MarketData] cache set failed: key=%s, err=%v", key, err)
	}
}
