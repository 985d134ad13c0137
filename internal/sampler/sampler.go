// Package sampler 定义报价来源接口，把外部流动性转换为离散的 (input, output) 报价点。
package sampler

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"swap-router/internal/fill"
	"swap-router/internal/order"
	"swap-router/internal/source"
)

// ErrInvalidDistribution 表示试算数量分布参数非法。
var ErrInvalidDistribution = errors.New("sampler: invalid sample distribution")

// Request 是一次报价请求。卖出时 Amounts 为 taker 数量，买入时为 maker 数量。
type Request struct {
	Pair    order.Pair
	Side    fill.Side
	Sources []source.Source
	Amounts []decimal.Decimal
}

// Provider 为每个来源返回按试算数量递增的报价点。
// 输出为零的报价点表示该来源无法成交该数量及以上。
type Provider interface {
	Sample(ctx context.Context, req Request) (fill.Curves, error)
}

// ProviderFunc 允许使用函数作为报价来源。
type ProviderFunc func(ctx context.Context, req Request) (fill.Curves, error)

// Sample 实现 Provider。
func (f ProviderFunc) Sample(ctx context.Context, req Request) (fill.Curves, error) {
	if f == nil {
		return nil, errors.New("sampler: 报价函数未实现")
	}
	return f(ctx, req)
}

// SampleAmounts 生成 numSamples 个递增的试算数量，步长按 expBase^i 分布，最后一个恰为 maxAmount。
func SampleAmounts(maxAmount decimal.Decimal, numSamples int, expBase float64) ([]decimal.Decimal, error) {
	if numSamples <= 0 {
		return nil, fmt.Errorf("%w: numSamples=%d", ErrInvalidDistribution, numSamples)
	}
	if expBase <= 0 {
		return nil, fmt.Errorf("%w: expBase=%f", ErrInvalidDistribution, expBase)
	}

	base := decimal.NewFromFloat(expBase)
	weights := make([]decimal.Decimal, numSamples)
	sum := decimal.Zero
	for i := range weights {
		weights[i] = base.Pow(decimal.NewFromInt(int64(i)))
		sum = sum.Add(weights[i])
	}

	amounts := make([]decimal.Decimal, numSamples)
	cumulative := decimal.Zero
	for i := range weights {
		if i == numSamples-1 {
			amounts[i] = maxAmount
			break
		}
		cumulative = cumulative.Add(weights[i].Div(sum))
		amounts[i] = maxAmount.Mul(cumulative).Ceil()
	}
	return amounts, nil
}
