package marketdata

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"max.com/optpricing/pkg/options"
)

func TestSimpleReturns(t *testing.T) {
	returns, err := SimpleReturns([]float64{100, 110, 99})
	require.NoError(t, err)
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.1, returns[0], 1e-12)
	assert.InDelta(t, -0.1, returns[1], 1e-12)

	_, err = SimpleReturns([]float64{100})
	assert.ErrorIs(t, err, ErrNotEnoughPrices)

	_, err = SimpleReturns([]float64{100, 0, 101})
	assert.ErrorIs(t, err, ErrInvalidPrice)
	assert.NotErrorIs(t, err, ErrNotEnoughPrices)

	_, err = SimpleReturns([]float64{100, math.Inf(1)})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestHistoricalVolatility(t *testing.T) {
	// r = {0.1, -0.1}, 样本方差 0.02
	vol, err := HistoricalVolatility([]float64{100, 110, 99}, TradingDaysPerYear)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(0.02*252), vol, 1e-12)

	// 价格不变，波动率为 0
	vol, err = HistoricalVolatility([]float64{50, 50, 50, 50}, TradingDaysPerYear)
	require.NoError(t, err)
	assert.InDelta(t, 0, vol, 1e-15)

	t.Run("too few prices", func(t *testing.T) {
		_, err := HistoricalVolatility([]float64{100, 101}, TradingDaysPerYear)
		assert.ErrorIs(t, err, ErrNotEnoughPrices)
	})

	t.Run("bad periods", func(t *testing.T) {
		_, err := HistoricalVolatility([]float64{100, 101, 102}, 0)
		assert.Error(t, err)
	})

	t.Run("nan price", func(t *testing.T) {
		_, err := HistoricalVolatility([]float64{100, math.NaN(), 102}, TradingDaysPerYear)
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})
}

func TestHistoryVolatility_NewestFirst(t *testing.T) {
	// History 返回的是倒序，结果应与正序收盘价一致
	history := []*Snapshot{{SpotPrice: 99}, {SpotPrice: 110}, {SpotPrice: 100}}
	vol, err := HistoryVolatility(history, TradingDaysPerYear)
	require.NoError(t, err)

	want, err := HistoricalVolatility([]float64{100, 110, 99}, TradingDaysPerYear)
	require.NoError(t, err)
	assert.Equal(t, want, vol)
}

func TestSnapshot_Underlying(t *testing.T) {
	snap := &Snapshot{Symbol: "MSFT", SpotPrice: 100, Sigma: 0.2, DividendYield: 0.01}
	u, err := snap.Underlying()
	require.NoError(t, err)
	assert.Equal(t, "MSFT", u.Symbol())
	assert.Equal(t, 100.0, u.SpotPrice())
	assert.Equal(t, 0.2, u.Sigma())
	assert.Equal(t, 0.01, u.DividendYield())

	require.NoError(t, snap.Validate())
}

func TestSnapshot_Validate(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
	}{
		{"no symbol", Snapshot{SpotPrice: 100, Sigma: 0.2}},
		{"zero spot", Snapshot{Symbol: "X", Sigma: 0.2}},
		{"negative sigma", Snapshot{Symbol: "X", SpotPrice: 100, Sigma: -0.2}},
		{"negative yield", Snapshot{Symbol: "X", SpotPrice: 100, Sigma: 0.2, DividendYield: -0.01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snap.Validate()
			assert.ErrorIs(t, err, ErrInvalidSnapshot)
		})
	}

	err := (&Snapshot{Symbol: "X", SpotPrice: -1, Sigma: 0.2}).Validate()
	assert.ErrorIs(t, err, options.ErrInvalidMarketData)

	// 不带波动率的快照可以保存，但不能直接转换成 Underlying
	noSigma := &Snapshot{Symbol: "X", SpotPrice: 100}
	assert.NoError(t, noSigma.Validate())
	assert.False(t, noSigma.HasSigma())
	_, err = noSigma.Underlying()
	assert.ErrorIs(t, err, options.ErrInvalidMarketData)
}

func TestMemorySnapshotRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySnapshotRepository()

	_, err := repo.Latest(ctx, "MSFT")
	require.ErrorIs(t, err, ErrSnapshotNotFound)

	base := time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC)
	for i, px := range []float64{100, 101, 102} {
		require.NoError(t, repo.Save(ctx, &Snapshot{
			Symbol:    "MSFT",
			SpotPrice: px,
			Sigma:     0.2,
			AsOf:      base.Add(time.Duration(i) * 24 * time.Hour),
		}))
	}
	// 晚到的旧快照不影响 Latest
	require.NoError(t, repo.Save(ctx, &Snapshot{Symbol: "MSFT", SpotPrice: 90, Sigma: 0.2, AsOf: base.Add(-time.Hour)}))

	latest, err := repo.Latest(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 102.0, latest.SpotPrice)

	history, err := repo.History(ctx, "MSFT", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 102.0, history[0].SpotPrice)
	assert.Equal(t, 101.0, history[1].SpotPrice)

	all, err := repo.History(ctx, "MSFT", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	err = repo.Save(ctx, &Snapshot{Symbol: "MSFT", SpotPrice: 0, Sigma: 0.2})
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}
