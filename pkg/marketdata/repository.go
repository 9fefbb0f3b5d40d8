// 文件: pkg/marketdata/repository.go
// 行情快照存储接口

package marketdata

import "context"

// SnapshotRepository 行情快照存储
//
// 实现:
//   - MySQLSnapshotRepository  落库
//   - CachedSnapshotRepository Redis 缓存装饰器
type SnapshotRepository interface {
	// Save 写入一条快照
	Save(ctx context.Context, snap *Snapshot) error

	// Latest 某标的最新快照，不存在返回 ErrSnapshotNotFound
	Latest(ctx context.Context, symbol string) (*Snapshot, error)

	// History 某标的最近 limit 条快照 (按时间倒序)
	History(ctx context.Context, symbol string, limit int) ([]*Snapshot, error)
}
