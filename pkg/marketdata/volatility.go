// 文件: pkg/marketdata/volatility.go
// 历史波动率
//
// 简单收益率 r_i = (P_i - P_{i-1}) / P_{i-1}
// σ_annual = stddev(r) × sqrt(periodsPerYear)

package marketdata

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// 日线一年的交易日数
const TradingDaysPerYear = 252

var (
	ErrNotEnoughPrices = errors.New("not enough prices to estimate volatility")
	ErrInvalidPrice    = errors.New("invalid price in series")
)

// SimpleReturns 按收盘价序列 (时间正序) 计算简单收益率
func SimpleReturns(closes []float64) ([]float64, error) {
	if len(closes) < 2 {
		return nil, ErrNotEnoughPrices
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if !(prev > 0) || !(cur > 0) || math.IsInf(prev, 0) || math.IsInf(cur, 0) {
			return nil, fmt.Errorf("%w: index %d (%v -> %v)", ErrInvalidPrice, i, prev, cur)
		}
		returns = append(returns, (cur-prev)/prev)
	}
	return returns, nil
}

// HistoricalVolatility 年化历史波动率
// 至少需要 3 个价格 (2 个收益率) 才能算样本标准差
func HistoricalVolatility(closes []float64, periodsPerYear float64) (float64, error) {
	if len(closes) < 3 {
		return 0, ErrNotEnoughPrices
	}
	if !(periodsPerYear > 0) {
		return 0, fmt.Errorf("periods per year must be positive, got %v", periodsPerYear)
	}
	returns, err := SimpleReturns(closes)
	if err != nil {
		return 0, err
	}
	return stat.StdDev(returns, nil) * math.Sqrt(periodsPerYear), nil
}

// HistoryVolatility 用快照历史 (Latest 在前) 估计年化波动率
func HistoryVolatility(history []*Snapshot, periodsPerYear float64) (float64, error) {
	closes := make([]float64, len(history))
	for i, snap := range history {
		closes[len(history)-1-i] = snap.SpotPrice
	}
	return HistoricalVolatility(closes, periodsPerYear)
}
