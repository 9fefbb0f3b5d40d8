// 文件: pkg/options/errors.go
// 定价引擎错误定义
//
// 所有错误都是输入数据的确定性结果，引擎内部不做恢复/重试，
// 原样返回给调用方，由调用方用 errors.Is 判断类别。

package options

import "errors"

var (
	// ErrInvalidMarketData 标的行情数据非法 (spot<=0, sigma<=0, q<0)
	ErrInvalidMarketData = errors.New("invalid market data")

	// ErrInvalidContractTerms 合约条款非法 (strike<=0, T<=0)
	ErrInvalidContractTerms = errors.New("invalid contract terms")

	// ErrUnsupportedStyle 非欧式期权 (美式期权没有闭式解)
	ErrUnsupportedStyle = errors.New("american pricing not implemented")

	// ErrUnsupportedType 期权类型既不是 CALL 也不是 PUT
	ErrUnsupportedType = errors.New("unsupported option type")
)
