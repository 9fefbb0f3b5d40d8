// 文件: pkg/marketdata/mysql_repo.go
// 行情快照 MySQL 存储 (GORM)

package marketdata

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var _ SnapshotRepository = (*MySQLSnapshotRepository)(nil)

type MySQLSnapshotRepository struct {
	db *gorm.DB
}

func NewMySQLSnapshotRepository(db *gorm.DB) *MySQLSnapshotRepository {
	return &MySQLSnapshotRepository{db: db}
}

// AutoMigrate 建表
func (r *MySQLSnapshotRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&Snapshot{})
}

func (r *MySQLSnapshotRepository) Save(ctx context.Context, snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if snap.AsOf.IsZero() {
		snap.AsOf = time.Now()
	}
	snap.CreatedAt = time.Now().UnixMilli()
	return r.db.WithContext(ctx).Create(snap).Error
}

func (r *MySQLSnapshotRepository) Latest(ctx context.Context, symbol string) (*Snapshot, error) {
	var snap Snapshot
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("as_of DESC, id DESC").
		First(&snap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	return &snap, nil
}

func (r *MySQLSnapshotRepository) History(ctx context.Context, symbol string, limit int) ([]*Snapshot, error) {
	var snaps []*Snapshot
	query := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("as_of DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&snaps).Error
	return snaps, err
}
