package router

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swap-router/internal/order"
)

// BatchEntry 是一篮子买入中的一项。
type BatchEntry struct {
	MakerToken common.Address
	Amount     decimal.Decimal
	Orders     []order.Order
}

// BatchRequest 以同一 taker 资产买入多种 maker 资产。
type BatchRequest struct {
	TakerToken common.Address
	Entries    []BatchEntry
	Options    *Options
	// Concurrency 为并发计算的条目数上限，非正时逐项执行。
	Concurrency int
}

// BatchResult 与请求条目一一对应，Quote 与 Err 恰有一个非空。
type BatchResult struct {
	MakerToken common.Address
	Quote      *Quote
	Err        error
}

// GetBatchMarketBuyOrders 对每个条目独立执行买入路由。单个条目失败不影响其他条目。
func (r *Router) GetBatchMarketBuyOrders(ctx context.Context, req BatchRequest) []BatchResult {
	results := make([]BatchResult, len(req.Entries))

	limit := req.Concurrency
	if limit <= 0 {
		limit = 1
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	for i, entry := range req.Entries {
		group.Go(func() error {
			q, err := r.GetMarketBuyOrders(groupCtx, Request{
				MakerToken: entry.MakerToken,
				TakerToken: req.TakerToken,
				Amount:     entry.Amount,
				Orders:     entry.Orders,
				Options:    req.Options,
			})
			results[i] = BatchResult{MakerToken: entry.MakerToken, Quote: q, Err: err}
			return nil
		})
	}
	_ = group.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	r.logger.Info("批量买入完成",
		zap.Int("entries", len(results)),
		zap.Int("failed", failed),
	)
	return results
}
