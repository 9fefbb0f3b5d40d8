// 文件: pkg/options/normal.go
// 标准正态分布工具函数

package options

import "gonum.org/v1/gonum/stat/distuv"

// NormCDF 标准正态分布累积分布函数 Φ(x)
// gonum 内部基于 math.Erfc 实现，尾部精度优于 0.5*(1+erf(x/√2))
func NormCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormPDF 标准正态分布概率密度函数 φ(x)
func NormPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}
