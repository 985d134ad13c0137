package sampler

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"swap-router/internal/config"
	"swap-router/internal/fill"
	"swap-router/internal/source"
)

// BookProvider 把交易所订单簿作为一个来源报价。
type BookProvider struct {
	fetcher       BookFetcher
	source        source.Source
	baseToken     common.Address
	quoteToken    common.Address
	baseDecimals  int32
	quoteDecimals int32
	depth         int64
	logger        *zap.Logger
}

// NewBookProvider 创建订单簿报价来源。
func NewBookProvider(cfg config.ExchangeConfig, fetcher BookFetcher, logger *zap.Logger) (*BookProvider, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("sampler: 订单簿客户端不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	src, err := source.Parse(cfg.Source)
	if err != nil {
		return nil, err
	}
	if src == source.Native {
		return nil, fmt.Errorf("sampler: 订单簿不能映射为 Native: %w", source.ErrUnsupportedVenueMapping)
	}
	if !common.IsHexAddress(cfg.BaseToken) || !common.IsHexAddress(cfg.QuoteToken) {
		return nil, fmt.Errorf("sampler: 订单簿代币地址非法")
	}
	return &BookProvider{
		fetcher:       fetcher,
		source:        src,
		baseToken:     common.HexToAddress(cfg.BaseToken),
		quoteToken:    common.HexToAddress(cfg.QuoteToken),
		baseDecimals:  cfg.BaseDecimals,
		quoteDecimals: cfg.QuoteDecimals,
		depth:         int64(cfg.Depth),
		logger:        logger,
	}, nil
}

// Source 返回订单簿映射的来源。
func (p *BookProvider) Source() source.Source {
	return p.source
}

// level 以链上最小单位表示一档深度。
type level struct {
	base  decimal.Decimal
	quote decimal.Decimal
}

// Sample 实现 Provider。taker 为基础资产时吃买盘，否则吃卖盘。
func (p *BookProvider) Sample(ctx context.Context, req Request) (fill.Curves, error) {
	if !source.Contains(req.Sources, p.source) {
		return fill.Curves{}, nil
	}

	var takerIsBase bool
	switch {
	case req.Pair.TakerToken == p.baseToken && req.Pair.MakerToken == p.quoteToken:
		takerIsBase = true
	case req.Pair.TakerToken == p.quoteToken && req.Pair.MakerToken == p.baseToken:
		takerIsBase = false
	default:
		return fill.Curves{}, nil
	}

	book, err := p.fetcher.FetchOrderBook(ctx, p.depth)
	if err != nil {
		return nil, fmt.Errorf("sampler: 获取订单簿失败: %w", err)
	}

	raw := book.Asks
	if takerIsBase {
		raw = book.Bids
	}
	levels := p.toLevels(raw)

	// 卖出时 input 为 taker 资产，买入时 input 为 maker 资产。
	inputIsBase := takerIsBase
	if req.Side == fill.Buy {
		inputIsBase = !takerIsBase
	}

	samples := make([]fill.Sample, 0, len(req.Amounts))
	for _, amount := range req.Amounts {
		samples = append(samples, fill.Sample{Input: amount, Output: walk(levels, amount, inputIsBase, req.Side == fill.Buy)})
	}

	p.logger.Debug("订单簿报价完成",
		zap.String("source", p.source.String()),
		zap.String("symbol", book.Symbol),
		zap.Int("levels", len(levels)),
	)
	return fill.Curves{p.source: samples}, nil
}

func (p *BookProvider) toLevels(raw []BookLevel) []level {
	baseScale := decimal.New(1, p.baseDecimals)
	quoteScale := decimal.New(1, p.quoteDecimals)
	out := make([]level, 0, len(raw))
	for _, l := range raw {
		amount := decimal.NewFromFloat(l.Amount)
		price := decimal.NewFromFloat(l.Price)
		out = append(out, level{
			base:  amount.Mul(baseScale),
			quote: amount.Mul(price).Mul(quoteScale),
		})
	}
	return out
}

// walk 逐档消耗深度，返回 input 对应的输出；深度不足时返回零。买入时花费向上取整。
func walk(levels []level, input decimal.Decimal, inputIsBase, roundUp bool) decimal.Decimal {
	remaining := input
	output := decimal.Zero
	for _, l := range levels {
		if !remaining.IsPositive() {
			break
		}
		have, give := l.quote, l.base
		if inputIsBase {
			have, give = l.base, l.quote
		}
		used := decimal.Min(remaining, have)
		output = output.Add(give.Mul(used).Div(have))
		remaining = remaining.Sub(used)
	}
	if remaining.IsPositive() {
		return decimal.Zero
	}
	if roundUp {
		return output.Ceil()
	}
	return output.Floor()
}
