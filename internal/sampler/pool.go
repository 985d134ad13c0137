package sampler

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"swap-router/internal/config"
	"swap-router/internal/fill"
	"swap-router/internal/source"
)

var bpsDenominator = decimal.NewFromInt(10000)

// Pool 是恒定乘积池 (x*y=k) 的静态快照。
type Pool struct {
	Source   source.Source
	TokenA   common.Address
	TokenB   common.Address
	ReserveA decimal.Decimal
	ReserveB decimal.Decimal
	FeeBps   int64
}

// reserves 返回 (maker 储备, taker 储备)，池不匹配交易对时返回 false。
func (p Pool) reserves(maker, taker common.Address) (decimal.Decimal, decimal.Decimal, bool) {
	switch {
	case p.TokenA == maker && p.TokenB == taker:
		return p.ReserveA, p.ReserveB, true
	case p.TokenB == maker && p.TokenA == taker:
		return p.ReserveB, p.ReserveA, true
	default:
		return decimal.Zero, decimal.Zero, false
	}
}

func (p Pool) feeFactor() decimal.Decimal {
	return bpsDenominator.Sub(decimal.NewFromInt(p.FeeBps)).Div(bpsDenominator)
}

// sellQuote 返回卖出 takerIn 可获得的 maker 数量（向下取整）。
func (p Pool) sellQuote(makerReserve, takerReserve, takerIn decimal.Decimal) decimal.Decimal {
	effective := takerIn.Mul(p.feeFactor())
	return makerReserve.Mul(effective).Div(takerReserve.Add(effective)).Floor()
}

// buyQuote 返回买入 makerOut 所需的 taker 数量（向上取整），储备不足时返回零。
func (p Pool) buyQuote(makerReserve, takerReserve, makerOut decimal.Decimal) decimal.Decimal {
	if makerOut.GreaterThanOrEqual(makerReserve) {
		return decimal.Zero
	}
	return takerReserve.Mul(makerOut).Div(makerReserve.Sub(makerOut).Mul(p.feeFactor())).Ceil()
}

// PoolProvider 基于静态池快照离线报价。
type PoolProvider struct {
	pools []Pool
}

// NewPoolProvider 根据配置创建离线报价来源。
func NewPoolProvider(cfg config.SamplerConfig) (*PoolProvider, error) {
	pools := make([]Pool, 0, len(cfg.Pools))
	for i, pc := range cfg.Pools {
		src, err := source.Parse(pc.Source)
		if err != nil {
			return nil, fmt.Errorf("sampler: pools[%d]: %w", i, err)
		}
		if src == source.Native {
			return nil, fmt.Errorf("sampler: pools[%d]: Native 不能作为池来源: %w", i, source.ErrUnsupportedVenueMapping)
		}
		if !common.IsHexAddress(pc.TokenA) || !common.IsHexAddress(pc.TokenB) {
			return nil, fmt.Errorf("sampler: pools[%d]: 代币地址非法", i)
		}
		pools = append(pools, Pool{
			Source:   src,
			TokenA:   common.HexToAddress(pc.TokenA),
			TokenB:   common.HexToAddress(pc.TokenB),
			ReserveA: pc.ReserveA,
			ReserveB: pc.ReserveB,
			FeeBps:   pc.FeeBps,
		})
	}
	return &PoolProvider{pools: pools}, nil
}

// NewPoolProviderFromPools 直接使用池快照创建报价来源。
func NewPoolProviderFromPools(pools ...Pool) *PoolProvider {
	return &PoolProvider{pools: pools}
}

// Sources 返回池覆盖的来源。
func (p *PoolProvider) Sources() []source.Source {
	var out []source.Source
	for _, pool := range p.pools {
		if !source.Contains(out, pool.Source) {
			out = append(out, pool.Source)
		}
	}
	return out
}

// Sample 实现 Provider。每个来源只取第一个匹配交易对的池。
func (p *PoolProvider) Sample(ctx context.Context, req Request) (fill.Curves, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	curves := make(fill.Curves)
	for _, pool := range p.pools {
		if !source.Contains(req.Sources, pool.Source) {
			continue
		}
		if _, done := curves[pool.Source]; done {
			continue
		}
		makerReserve, takerReserve, ok := pool.reserves(req.Pair.MakerToken, req.Pair.TakerToken)
		if !ok {
			continue
		}

		samples := make([]fill.Sample, 0, len(req.Amounts))
		for _, amount := range req.Amounts {
			var output decimal.Decimal
			if req.Side == fill.Buy {
				output = pool.buyQuote(makerReserve, takerReserve, amount)
			} else {
				output = pool.sellQuote(makerReserve, takerReserve, amount)
			}
			samples = append(samples, fill.Sample{Input: amount, Output: output})
		}
		curves[pool.Source] = samples
	}
	return curves, nil
}
