// 文件: pkg/options/model.go
// Black-Scholes-Merton 定价模型 (连续股息率)
//
// 公式:
//   d1 = [ln(S/K) + (r - q + σ²/2)T] / (σ√T)
//   d2 = d1 - σ√T
//   Call = S·e^{-qT}·N(d1) - K·e^{-rT}·N(d2)
//   Put  = K·e^{-rT}·N(-d2) - S·e^{-qT}·N(-d1)
//
// 所有 Greeks 共用同一次 d1/d2 计算 (见 prepare)，避免价格和各 Greek 之间公式不一致。

package options

import (
	"fmt"
	"math"
	"time"
)

// daysPerYear 剩余期限按 ACT/365 折算
const daysPerYear = 365.0

// PricingModel 定价模型
//
// 只持有估值日和无风险利率，不持有任何合约状态，可以在多个 goroutine 间共享。
type PricingModel struct {
	pricingDate  time.Time
	riskFreeRate float64 // 年化连续复利，可以为负
}

// NewPricingModel 创建定价模型
func NewPricingModel(pricingDate time.Time, riskFreeRate float64) *PricingModel {
	return &PricingModel{
		pricingDate:  pricingDate,
		riskFreeRate: riskFreeRate,
	}
}

func (m *PricingModel) PricingDate() time.Time { return m.pricingDate }
func (m *PricingModel) RiskFreeRate() float64  { return m.riskFreeRate }

// TimeToExpiry 估值日到到期日的年化期限 (ACT/365)
// 到期日不晚于估值日时返回值 <= 0，构造合约时会被拒绝
func (m *PricingModel) TimeToExpiry(expiry time.Time) float64 {
	return expiry.Sub(m.pricingDate).Hours() / 24 / daysPerYear
}

// =============================================================================
// 价格与 Greeks
// =============================================================================

// CalcModelPrice 期权理论价格
func (m *PricingModel) CalcModelPrice(opt *FinancialOption) (float64, error) {
	in, err := m.prepare(opt)
	if err != nil {
		return 0, err
	}
	return in.price(), nil
}

// CalcDelta ∂V/∂S
// Call: e^{-qT}·N(d1) ∈ [0,1]; Put: e^{-qT}·(N(d1)-1) ∈ [-1,0]
func (m *PricingModel) CalcDelta(opt *FinancialOption) (float64, error) {
	in, err := m.prepare(opt)
	if err != nil {
		return 0, err
	}
	return in.delta(), nil
}

// CalcGamma ∂²V/∂S²，Call/Put 相同
func (m *PricingModel) CalcGamma(opt *FinancialOption) (float64, error) {
	in, err := m.prepare(opt)
	if err != nil {
		return 0, err
	}
	return in.gamma(), nil
}

// CalcTheta ∂V/∂t (每年)，即剩余期限缩短带来的价值变化，通常为负
func (m *PricingModel) CalcTheta(opt *FinancialOption) (float64, error) {
	in, err := m.prepare(opt)
	if err != nil {
		return 0, err
	}
	return in.theta(), nil
}

// CalcVega ∂V/∂σ (σ 变动 1.0，不是 1%)，Call/Put 相同
func (m *PricingModel) CalcVega(opt *FinancialOption) (float64, error) {
	in, err := m.prepare(opt)
	if err != nil {
		return 0, err
	}
	return in.vega(), nil
}

// CalcRho ∂V/∂r (r 变动 1.0)
func (m *PricingModel) CalcRho(opt *FinancialOption) (float64, error) {
	in, err := m.prepare(opt)
	if err != nil {
		return 0, err
	}
	return in.rho(), nil
}

// Result 一次估值的全部输出
type Result struct {
	Price float64 `json:"price"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// Evaluate 一次算出价格和全部 Greeks
// 结果与分别调用 CalcModelPrice/CalcDelta/... 完全一致
func (m *PricingModel) Evaluate(opt *FinancialOption) (Result, error) {
	in, err := m.prepare(opt)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Price: in.price(),
		Delta: in.delta(),
		Gamma: in.gamma(),
		Theta: in.theta(),
		Vega:  in.vega(),
		Rho:   in.rho(),
	}, nil
}

// =============================================================================
// Put-Call Parity
// =============================================================================

// CalcParityPrice 由一边的价格按平价关系推出另一边 (同标的/行权价/期限)
//
//	C - P = S·e^{-qT} - K·e^{-rT}
//
// 输入 CALL 价格返回 PUT 价格，反之亦然。q=0 时退化为 P = C + K·e^{-rT} - S。
// 只用作与 CalcModelPrice 的一致性校验，不限制行权方式。
func (m *PricingModel) CalcParityPrice(opt *FinancialOption, optionPrice float64) (float64, error) {
	if opt == nil {
		return 0, fmt.Errorf("%w: nil option", ErrInvalidContractTerms)
	}
	u := opt.underlying
	forward := u.spotPrice * math.Exp(-u.dividendYield*opt.timeToExpiry)
	pvStrike := opt.strike * math.Exp(-m.riskFreeRate*opt.timeToExpiry)

	switch opt.optionType {
	case Call:
		return optionPrice + pvStrike - forward, nil
	case Put:
		return optionPrice - pvStrike + forward, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedType, opt.optionType)
}

// =============================================================================
// 内部计算
// =============================================================================

// bsInputs 一次估值所需的全部中间量，每个操作只计算一次
type bsInputs struct {
	isCall bool

	s, k, t, r, q, sigma float64

	sqrtT float64
	d1    float64
	d2    float64
	discQ float64 // e^{-qT}
	discR float64 // e^{-rT}
}

// prepare 校验前置条件并计算 d1/d2
// 顺序: 行权方式 -> 期权类型 -> 数值范围
func (m *PricingModel) prepare(opt *FinancialOption) (bsInputs, error) {
	if opt == nil {
		return bsInputs{}, fmt.Errorf("%w: nil option", ErrInvalidContractTerms)
	}
	if opt.optionStyle != European {
		return bsInputs{}, fmt.Errorf("%w: style %s", ErrUnsupportedStyle, opt.optionStyle)
	}
	if opt.optionType != Call && opt.optionType != Put {
		return bsInputs{}, fmt.Errorf("%w: %d", ErrUnsupportedType, opt.optionType)
	}

	u := opt.underlying
	// 零值合约 (没走构造函数) 也要拦住，σ√T 是公式里唯一的除数
	if err := validateMarketData(u.spotPrice, u.sigma, u.dividendYield); err != nil {
		return bsInputs{}, err
	}
	if !(opt.strike > 0) || !(opt.timeToExpiry > 0) {
		return bsInputs{}, fmt.Errorf("%w: strike=%v T=%v", ErrInvalidContractTerms, opt.strike, opt.timeToExpiry)
	}
	if math.IsNaN(m.riskFreeRate) || math.IsInf(m.riskFreeRate, 0) {
		return bsInputs{}, fmt.Errorf("%w: risk free rate %v", ErrInvalidMarketData, m.riskFreeRate)
	}

	in := bsInputs{
		isCall: opt.optionType == Call,
		s:      u.spotPrice,
		k:      opt.strike,
		t:      opt.timeToExpiry,
		r:      m.riskFreeRate,
		q:      u.dividendYield,
		sigma:  u.sigma,
	}
	in.sqrtT = math.Sqrt(in.t)
	in.d1 = calcD1(in.s, in.k, in.r, in.q, in.sigma, in.t)
	in.d2 = in.d1 - in.sigma*in.sqrtT
	in.discQ = math.Exp(-in.q * in.t)
	in.discR = math.Exp(-in.r * in.t)
	return in, nil
}

// calcD1 d1 = [ln(S/K) + (r - q + 0.5σ²)T] / (σ√T)
func calcD1(s, k, r, q, sigma, t float64) float64 {
	return (math.Log(s/k) + (r-q+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
}

func (in bsInputs) price() float64 {
	if in.isCall {
		return in.s*in.discQ*NormCDF(in.d1) - in.k*in.discR*NormCDF(in.d2)
	}
	return in.k*in.discR*NormCDF(-in.d2) - in.s*in.discQ*NormCDF(-in.d1)
}

func (in bsInputs) delta() float64 {
	if in.isCall {
		return in.discQ * NormCDF(in.d1)
	}
	return in.discQ * (NormCDF(in.d1) - 1)
}

func (in bsInputs) gamma() float64 {
	return in.discQ * NormPDF(in.d1) / (in.s * in.sigma * in.sqrtT)
}

// theta 对 V(S, T) 中的 T 求偏导再取负号:
//
//	Call: -S·e^{-qT}·n(d1)·σ/(2√T) + q·S·e^{-qT}·N(d1) - r·K·e^{-rT}·N(d2)
//	Put:  -S·e^{-qT}·n(d1)·σ/(2√T) - q·S·e^{-qT}·N(-d1) + r·K·e^{-rT}·N(-d2)
//
// 两者之差 = q·S·e^{-qT} - r·K·e^{-rT}，与对平价关系求导的结果一致
func (in bsInputs) theta() float64 {
	decay := -in.s * in.discQ * NormPDF(in.d1) * in.sigma / (2 * in.sqrtT)
	if in.isCall {
		return decay + in.q*in.s*in.discQ*NormCDF(in.d1) - in.r*in.k*in.discR*NormCDF(in.d2)
	}
	return decay - in.q*in.s*in.discQ*NormCDF(-in.d1) + in.r*in.k*in.discR*NormCDF(-in.d2)
}

func (in bsInputs) vega() float64 {
	return in.s * in.discQ * NormPDF(in.d1) * in.sqrtT
}

func (in bsInputs) rho() float64 {
	if in.isCall {
		return in.k * in.t * in.discR * NormCDF(in.d2)
	}
	return -in.k * in.t * in.discR * NormCDF(-in.d2)
}
