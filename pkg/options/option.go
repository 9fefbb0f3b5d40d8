// 文件: pkg/options/option.go
// 期权合约定义
//
// 期权有两个相互独立的分类维度:
//   - OptionType:  CALL / PUT     (影响公式选择)
//   - OptionStyle: EUROPEAN / AMERICAN (影响能否用闭式解)
//
// 四种组合共用同一组字段，所以用两个枚举标记，而不是每种组合一个类型。

package options

import (
	"fmt"
	"math"
	"strings"
)

// =============================================================================
// 期权类型
// =============================================================================

// OptionType 看涨/看跌
// 零值不是合法类型，未初始化的合约在定价时会返回 ErrUnsupportedType
type OptionType int8

const (
	Call OptionType = iota + 1 // 看涨期权
	Put                        // 看跌期权
)

func (t OptionType) String() string {
	switch t {
	case Call:
		return "CALL"
	case Put:
		return "PUT"
	}
	return "UNKNOWN"
}

// Opposite 返回平价关系中的另一边 (CALL <-> PUT)
func (t OptionType) Opposite() OptionType {
	switch t {
	case Call:
		return Put
	case Put:
		return Call
	}
	return t
}

// ParseOptionType 解析 "CALL"/"PUT" (大小写不敏感，也接受 "C"/"P")
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CALL", "C":
		return Call, nil
	case "PUT", "P":
		return Put, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, s)
}

// =============================================================================
// 行权方式
// =============================================================================

// OptionStyle 行权方式
type OptionStyle int8

const (
	European OptionStyle = iota + 1 // 欧式: 只能在到期日行权
	American                        // 美式: 到期前任意时刻可行权
)

func (s OptionStyle) String() string {
	switch s {
	case European:
		return "EUROPEAN"
	case American:
		return "AMERICAN"
	}
	return "UNKNOWN"
}

// ParseOptionStyle 解析 "EUROPEAN"/"AMERICAN"，空串默认欧式
func ParseOptionStyle(s string) (OptionStyle, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EUROPEAN", "":
		return European, nil
	case "AMERICAN":
		return American, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedStyle, s)
}

// =============================================================================
// FinancialOption - 期权合约
// =============================================================================

// FinancialOption 一张待估值的期权合约
//
// 只读引用标的快照，不管理标的生命周期。创建后不可变。
type FinancialOption struct {
	underlying   Underlying
	strike       float64     // 行权价
	timeToExpiry float64     // 剩余期限 (年)
	optionType   OptionType  // CALL / PUT
	optionStyle  OptionStyle // EUROPEAN / AMERICAN
}

// NewFinancialOption 创建期权合约
// strike<=0 或 timeToExpiry<=0 返回 ErrInvalidContractTerms
func NewFinancialOption(underlying Underlying, strike, timeToExpiry float64, optionType OptionType, optionStyle OptionStyle) (*FinancialOption, error) {
	if !(strike > 0) || math.IsInf(strike, 0) {
		return nil, fmt.Errorf("%w: strike must be positive, got %v", ErrInvalidContractTerms, strike)
	}
	if !(timeToExpiry > 0) || math.IsInf(timeToExpiry, 0) {
		return nil, fmt.Errorf("%w: time to expiry must be positive, got %v", ErrInvalidContractTerms, timeToExpiry)
	}
	return &FinancialOption{
		underlying:   underlying,
		strike:       strike,
		timeToExpiry: timeToExpiry,
		optionType:   optionType,
		optionStyle:  optionStyle,
	}, nil
}

func (o *FinancialOption) Underlying() Underlying { return o.underlying }
func (o *FinancialOption) Strike() float64        { return o.strike }
func (o *FinancialOption) TimeToExpiry() float64  { return o.timeToExpiry }
func (o *FinancialOption) Type() OptionType       { return o.optionType }
func (o *FinancialOption) Style() OptionStyle     { return o.optionStyle }

// Twin 同标的、同行权价、同期限的反向合约 (CALL 的 twin 是 PUT)
func (o *FinancialOption) Twin() *FinancialOption {
	twin := *o
	twin.optionType = o.optionType.Opposite()
	return &twin
}

func (o *FinancialOption) String() string {
	symbol := o.underlying.symbol
	if symbol == "" {
		symbol = "-"
	}
	return fmt.Sprintf("%s %s %s K=%v T=%v", symbol, o.optionStyle, o.optionType, o.strike, o.timeToExpiry)
}
