// 文件: pkg/valuation/service.go
// 估值服务
//
// 流程: 解析请求 -> 补齐行情 -> 构造合约 -> 定价 + Greeks + 平价 -> 落库 -> 广播
// 落库失败返回错误；广播失败只记日志，不影响调用方拿到结果。

package valuation

import (
	"context"
	"fmt"
	"log"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"max.com/optpricing/pkg/marketdata"
	"max.com/optpricing/pkg/options"
)

// parityTolerance 平价推出的价格与模型价格的允许偏差
const parityTolerance = 1e-8

// SnapshotSource 行情来源，marketdata.SnapshotRepository 满足此接口
type SnapshotSource interface {
	Latest(ctx context.Context, symbol string) (*marketdata.Snapshot, error)
	History(ctx context.Context, symbol string, limit int) ([]*marketdata.Snapshot, error)
}

// =============================================================================
// 配置
// =============================================================================

type ServiceConfig struct {
	RiskFreeRate float64   // 年化连续复利无风险利率
	PricingDate  time.Time // 估值日，零值表示每次请求取当前时间
	NodeID       int64     // 雪花节点号
	Workers      int       // ValueBatch 并发数

	// 快照不带波动率时，用最近 VolatilityWindow 个快照价格估计历史波动率
	VolatilityWindow int
	PeriodsPerYear   float64 // 快照频率对应的年化因子
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		RiskFreeRate:     0.05,
		NodeID:           1,
		Workers:          runtime.NumCPU(),
		VolatilityWindow: 60,
		PeriodsPerYear:   marketdata.TradingDaysPerYear,
	}
}

// =============================================================================
// Service
// =============================================================================

type Service struct {
	cfg       ServiceConfig
	snapshots SnapshotSource // 可为 nil，此时请求必须自带行情
	repo      Repository     // 可为 nil，不落库
	publisher EventPublisher // 可为 nil，不广播
	ids       *IDGenerator
}

func NewService(cfg ServiceConfig, snapshots SnapshotSource, repo Repository, publisher EventPublisher) (*Service, error) {
	if math.IsNaN(cfg.RiskFreeRate) || math.IsInf(cfg.RiskFreeRate, 0) {
		return nil, fmt.Errorf("%w: risk-free rate %v", options.ErrInvalidMarketData, cfg.RiskFreeRate)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.VolatilityWindow < 3 {
		cfg.VolatilityWindow = 3
	}
	if !(cfg.PeriodsPerYear > 0) {
		cfg.PeriodsPerYear = marketdata.TradingDaysPerYear
	}
	ids, err := NewIDGenerator(cfg.NodeID)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:       cfg,
		snapshots: snapshots,
		repo:      repo,
		publisher: publisher,
		ids:       ids,
	}, nil
}

// Model 当前估值日的定价模型
func (s *Service) Model() *options.PricingModel {
	date := s.cfg.PricingDate
	if date.IsZero() {
		date = time.Now()
	}
	return options.NewPricingModel(date, s.cfg.RiskFreeRate)
}

// Value 对单个请求估值
func (s *Service) Value(ctx context.Context, req *Request) (*Valuation, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	model := s.Model()

	opt, err := s.buildOption(ctx, model, req)
	if err != nil {
		return nil, err
	}

	res, err := model.Evaluate(opt)
	if err != nil {
		return nil, err
	}

	parity, err := model.CalcParityPrice(opt, res.Price)
	if err != nil {
		return nil, err
	}
	if twin, err := model.CalcModelPrice(opt.Twin()); err == nil && math.Abs(twin-parity) > parityTolerance {
		log.Printf("[Valuation] parity mismatch: %s, model=%v, parity=%v", opt, twin, parity)
	}

	v := s.newValuation(req, model, opt, res, parity)

	if s.repo != nil {
		if err := s.repo.Create(ctx, v); err != nil {
			return nil, fmt.Errorf("save valuation: %w", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, v); err != nil {
			log.Printf("[Valuation] publish failed: id=%d, symbol=%s, err=%v", v.ValuationID, v.Symbol, err)
		}
	}
	return v, nil
}

// ValueBatch 并发估值，结果与请求一一对应 (顺序相同)
// 单个请求失败只体现在对应的 BatchResult.Err 上
func (s *Service) ValueBatch(ctx context.Context, reqs []*Request) []BatchResult {
	results := make([]BatchResult, len(reqs))
	jobs := make(chan int)

	workers := min(s.cfg.Workers, len(reqs))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i].Request = reqs[i]
				if err := ctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i].Valuation, results[i].Err = s.Value(ctx, reqs[i])
			}
		}()
	}

	for i := range reqs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

// =============================================================================
// 内部
// =============================================================================

func (s *Service) buildOption(ctx context.Context, model *options.PricingModel, req *Request) (*options.FinancialOption, error) {
	typ, err := options.ParseOptionType(req.Type)
	if err != nil {
		return nil, err
	}
	style, err := options.ParseOptionStyle(req.Style)
	if err != nil {
		return nil, err
	}

	u, err := s.resolveUnderlying(ctx, req)
	if err != nil {
		return nil, err
	}

	t := req.TimeToExpiry
	if req.Expiry != nil {
		t = model.TimeToExpiry(*req.Expiry)
	}
	return options.NewFinancialOption(u, req.Strike, t, typ, style)
}

// resolveUnderlying 请求里的行情优先，缺的从最新快照补
func (s *Service) resolveUnderlying(ctx context.Context, req *Request) (options.Underlying, error) {
	var spot, sigma, q float64
	if req.needsSnapshot() {
		if s.snapshots == nil {
			return options.Underlying{}, fmt.Errorf("%w: no snapshot source for %q", ErrMarketDataUnavailable, req.Symbol)
		}
		if req.Symbol == "" {
			return options.Underlying{}, fmt.Errorf("%w: symbol is required to load market data", ErrInvalidRequest)
		}
		snap, err := s.snapshots.Latest(ctx, req.Symbol)
		if err != nil {
			return options.Underlying{}, fmt.Errorf("%w: %s: %w", ErrMarketDataUnavailable, req.Symbol, err)
		}
		spot, sigma, q = snap.SpotPrice, snap.Sigma, snap.DividendYield

		if req.Sigma == nil && !snap.HasSigma() {
			if sigma, err = s.estimateSigma(ctx, req.Symbol); err != nil {
				return options.Underlying{}, fmt.Errorf("%w: %s: %w", ErrMarketDataUnavailable, req.Symbol, err)
			}
		}
	}
	if req.Spot != nil {
		spot = *req.Spot
	}
	if req.Sigma != nil {
		sigma = *req.Sigma
	}
	if req.DividendYield != nil {
		q = *req.DividendYield
	}
	return options.NewSymbolUnderlying(req.Symbol, spot, sigma, q)
}

// estimateSigma 由最近的快照价格估计年化历史波动率
func (s *Service) estimateSigma(ctx context.Context, symbol string) (float64, error) {
	history, err := s.snapshots.History(ctx, symbol, s.cfg.VolatilityWindow)
	if err != nil {
		return 0, err
	}
	sigma, err := marketdata.HistoryVolatility(history, s.cfg.PeriodsPerYear)
	if err != nil {
		return 0, err
	}
	log.Printf("[Valuation] sigma estimated from history: symbol=%s, n=%d, sigma=%.6f", symbol, len(history), sigma)
	return sigma, nil
}

func (s *Service) newValuation(req *Request, model *options.PricingModel, opt *options.FinancialOption, res options.Result, parity float64) *Valuation {
	u := opt.Underlying()
	return &Valuation{
		ValuationID:   s.ids.Next(),
		RequestID:     req.RequestID,
		Symbol:        u.Symbol(),
		OptionType:    opt.Type().String(),
		OptionStyle:   opt.Style().String(),
		Strike:        decimal.NewFromFloat(opt.Strike()),
		TimeToExpiry:  decimal.NewFromFloat(opt.TimeToExpiry()),
		Spot:          decimal.NewFromFloat(u.SpotPrice()),
		Sigma:         decimal.NewFromFloat(u.Sigma()),
		DividendYield: decimal.NewFromFloat(u.DividendYield()),
		RiskFreeRate:  decimal.NewFromFloat(model.RiskFreeRate()),
		PricingDate:   model.PricingDate(),
		Price:         decimal.NewFromFloat(res.Price),
		Delta:         decimal.NewFromFloat(res.Delta),
		Gamma:         decimal.NewFromFloat(res.Gamma),
		Theta:         decimal.NewFromFloat(res.Theta),
		Vega:          decimal.NewFromFloat(res.Vega),
		Rho:           decimal.NewFromFloat(res.Rho),
		ParityPrice:   decimal.NewFromFloat(parity),
		CreatedAt:     time.Now().UnixMilli(),
	}
}
