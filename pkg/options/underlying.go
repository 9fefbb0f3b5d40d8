// 文件: pkg/options/underlying.go
// 标的资产行情快照

package options

import (
	"fmt"
	"math"
)

// Underlying 标的资产在某一时刻的行情快照
//
// 创建后不可变 (字段全部私有)，可以被多个 FinancialOption 按值共享，
// 也可以在多个 goroutine 之间安全传递。
type Underlying struct {
	symbol        string
	spotPrice     float64 // 现货价格
	sigma         float64 // 年化波动率 (对数收益率标准差)
	dividendYield float64 // 连续复利年化股息率
}

// NewUnderlying 创建标的快照
// spot<=0、sigma<=0、q<0 (以及 NaN) 返回 ErrInvalidMarketData
func NewUnderlying(spotPrice, sigma, dividendYield float64) (Underlying, error) {
	return NewSymbolUnderlying("", spotPrice, sigma, dividendYield)
}

// NewSymbolUnderlying 同 NewUnderlying，额外携带标的代码 (如 "AAPL")
func NewSymbolUnderlying(symbol string, spotPrice, sigma, dividendYield float64) (Underlying, error) {
	if err := validateMarketData(spotPrice, sigma, dividendYield); err != nil {
		return Underlying{}, err
	}
	return Underlying{
		symbol:        symbol,
		spotPrice:     spotPrice,
		sigma:         sigma,
		dividendYield: dividendYield,
	}, nil
}

func (u Underlying) Symbol() string         { return u.symbol }
func (u Underlying) SpotPrice() float64     { return u.spotPrice }
func (u Underlying) Sigma() float64         { return u.sigma }
func (u Underlying) DividendYield() float64 { return u.dividendYield }

// validateMarketData 注意写成 !(x > 0) 的形式，NaN 也会被拒绝
func validateMarketData(spotPrice, sigma, dividendYield float64) error {
	if !(spotPrice > 0) || math.IsInf(spotPrice, 0) {
		return fmt.Errorf("%w: spot price must be positive, got %v", ErrInvalidMarketData, spotPrice)
	}
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return fmt.Errorf("%w: sigma must be positive, got %v", ErrInvalidMarketData, sigma)
	}
	if !(dividendYield >= 0) || math.IsInf(dividendYield, 0) {
		return fmt.Errorf("%w: dividend yield must be non-negative, got %v", ErrInvalidMarketData, dividendYield)
	}
	return nil
}
