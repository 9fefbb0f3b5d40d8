// 文件: pkg/marketdata/snapshot.go
// 行情快照
//
// 定价引擎只需要三个数: 现货价、波动率、股息率。
// 这里负责保存由外部行情抓取程序写入的快照，并转换成 options.Underlying。

package marketdata

import (
	"errors"
	"time"

	"max.com/optpricing/pkg/options"
)

var (
	ErrSnapshotNotFound = errors.New("market snapshot not found")
	ErrInvalidSnapshot  = errors.New("invalid market snapshot")
)

// Snapshot 某标的在某一时刻的行情
type Snapshot struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	Symbol        string    `gorm:"column:symbol;type:varchar(32);index:idx_symbol_asof,priority:1;not null" json:"symbol"`
	SpotPrice     float64   `gorm:"column:spot_price;not null" json:"spot_price"`
	Sigma         float64   `gorm:"column:sigma;not null" json:"sigma"`
	DividendYield float64   `gorm:"column:dividend_yield;not null;default:0" json:"dividend_yield"`
	Source        string    `gorm:"column:source;type:varchar(32)" json:"source,omitempty"`
	AsOf          time.Time `gorm:"column:as_of;index:idx_symbol_asof,priority:2" json:"as_of"`
	CreatedAt     int64     `gorm:"column:created_at" json:"created_at"`
}

func (Snapshot) TableName() string {
	return "market_snapshots"
}

// Validate 写库前校验，规则与 options.NewUnderlying 一致
// 例外: Sigma 为 0 表示快照未带波动率，定价时由历史收盘价估计
func (s *Snapshot) Validate() error {
	if s.Symbol == "" {
		return errors.Join(ErrInvalidSnapshot, errors.New("symbol is required"))
	}
	sigma := s.Sigma
	if sigma == 0 {
		sigma = 1
	}
	if _, err := options.NewSymbolUnderlying(s.Symbol, s.SpotPrice, sigma, s.DividendYield); err != nil {
		return errors.Join(ErrInvalidSnapshot, err)
	}
	return nil
}

// HasSigma 快照是否带有可用的波动率
func (s *Snapshot) HasSigma() bool {
	return s.Sigma > 0
}

// Underlying 转换为定价引擎的标的快照
func (s *Snapshot) Underlying() (options.Underlying, error) {
	return options.NewSymbolUnderlying(s.Symbol, s.SpotPrice, s.Sigma, s.DividendYield)
}
