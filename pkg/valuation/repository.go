// 文件: pkg/valuation/repository.go
// 估值记录存储

package valuation

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrValuationNotFound = errors.New("valuation not found")

type Repository interface {
	Create(ctx context.Context, v *Valuation) error
	GetByValuationID(ctx context.Context, valuationID int64) (*Valuation, error)
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]*Valuation, error)
}

// =============================================================================
// MySQLRepository
// =============================================================================

var _ Repository = (*MySQLRepository)(nil)

type MySQLRepository struct {
	db *gorm.DB
}

func NewMySQLRepository(db *gorm.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

func (r *MySQLRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&Valuation{})
}

func (r *MySQLRepository) Create(ctx context.Context, v *Valuation) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *MySQLRepository) GetByValuationID(ctx context.Context, valuationID int64) (*Valuation, error) {
	var v Valuation
	err := r.db.WithContext(ctx).Where("valuation_id = ?", valuationID).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrValuationNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *MySQLRepository) ListBySymbol(ctx context.Context, symbol string, limit int) ([]*Valuation, error) {
	var list []*Valuation
	query := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&list).Error
	return list, err
}
