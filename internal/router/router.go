// Package router 编排一次路由请求：报价采样、构建节点森林、路径搜索、合并与生成成交指令。
package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"swap-router/internal/execution"
	"swap-router/internal/fill"
	"swap-router/internal/metrics"
	"swap-router/internal/optimizer"
	"swap-router/internal/order"
	"swap-router/internal/path"
	"swap-router/internal/sampler"
	"swap-router/internal/source"
)

// ErrEmptyOrderSet 表示请求没有携带任何挂单。
var ErrEmptyOrderSet = errors.New("empty order set")

// Request 是一次卖出或买入请求。卖出时 Amount 为 taker 数量，买入时为 maker 数量。
type Request struct {
	MakerToken common.Address
	TakerToken common.Address
	Amount     decimal.Decimal
	Orders     []order.Order
	// Options 为空时使用路由器默认参数。
	Options *Options
}

// Quote 是一次路由的结果。
type Quote struct {
	ID        uuid.UUID              `json:"id"`
	Side      fill.Side              `json:"side"`
	Pair      order.Pair             `json:"pair"`
	Amount    decimal.Decimal        `json:"amount"`
	Orders    []execution.TradeOrder `json:"orders"`
	Collapsed []path.CollapsedFill   `json:"-"`

	Input          decimal.Decimal `json:"input"`
	Output         decimal.Decimal `json:"output"`
	AdjustedOutput decimal.Decimal `json:"adjustedOutput"`
	Visits         int             `json:"visits"`
	ImprovedOnSeed bool            `json:"improvedOnSeed"`
	Sources        []source.Source `json:"sources"`
}

// Router 无跨请求状态，可被多个 goroutine 并发使用。
type Router struct {
	provider sampler.Provider
	bridges  source.AddressBook
	defaults Options
	metrics  *metrics.Router
	logger   *zap.Logger
}

// New 创建路由器。
func New(provider sampler.Provider, bridges source.AddressBook, defaults Options, m *metrics.Router, logger *zap.Logger) (*Router, error) {
	if provider == nil {
		return nil, errors.New("router: 报价来源不能为空")
	}
	if err := defaults.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		provider: provider,
		bridges:  bridges,
		defaults: defaults,
		metrics:  m,
		logger:   logger,
	}, nil
}

// GetMarketSellOrders 计算卖出 Amount 个 taker 资产的最优成交指令。
func (r *Router) GetMarketSellOrders(ctx context.Context, req Request) (*Quote, error) {
	return r.quote(ctx, fill.Sell, req)
}

// GetMarketBuyOrders 计算买入 Amount 个 maker 资产的最优成交指令。
func (r *Router) GetMarketBuyOrders(ctx context.Context, req Request) (*Quote, error) {
	return r.quote(ctx, fill.Buy, req)
}

func (r *Router) quote(ctx context.Context, side fill.Side, req Request) (*Quote, error) {
	started := time.Now()
	q, err := r.route(ctx, side, req)
	if err != nil {
		r.metrics.ObserveFailure(side.String(), failureReason(err))
		r.logger.Warn("路由失败",
			zap.String("side", side.String()),
			zap.String("amount", req.Amount.String()),
			zap.Error(err),
		)
		return nil, err
	}

	names := make([]string, 0, len(q.Sources))
	for _, s := range q.Sources {
		names = append(names, s.String())
	}
	r.metrics.ObserveQuote(side.String(), q.Visits, len(q.Orders), names, time.Since(started))
	r.logger.Info("路由完成",
		zap.String("quote_id", q.ID.String()),
		zap.String("side", side.String()),
		zap.String("amount", q.Amount.String()),
		zap.String("output", q.Output.String()),
		zap.Int("fills", len(q.Orders)),
		zap.Int("visits", q.Visits),
		zap.Strings("sources", names),
	)
	return q, nil
}

func (r *Router) route(ctx context.Context, side fill.Side, req Request) (*Quote, error) {
	opts := r.defaults
	if req.Options != nil {
		opts = *req.Options
		if err := opts.validate(); err != nil {
			return nil, err
		}
	}

	if len(req.Orders) == 0 {
		return nil, fmt.Errorf("router: %w", ErrEmptyOrderSet)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("router: 请求数量必须为正: %s", req.Amount)
	}
	pair := order.Pair{MakerToken: req.MakerToken, TakerToken: req.TakerToken}
	if err := order.ValidateAll(req.Orders, pair); err != nil {
		return nil, err
	}

	amounts, err := sampler.SampleAmounts(req.Amount, opts.NumSamples, opts.SampleDistributionBase)
	if err != nil {
		return nil, err
	}
	sources := opts.sampledSources()
	r.logger.Debug("开始报价采样",
		zap.String("side", side.String()),
		zap.String("pair", pair.String()),
		zap.Int("samples", len(amounts)),
		zap.Int("sources", len(sources)),
	)

	curves := fill.Curves{}
	if len(sources) > 0 {
		sampled, err := r.provider.Sample(ctx, sampler.Request{Pair: pair, Side: side, Sources: sources, Amounts: amounts})
		if err != nil {
			return nil, fmt.Errorf("router: 报价采样失败: %w", err)
		}
		for src, samples := range sampled {
			if src.Valid() && src != source.Native && source.Contains(sources, src) {
				curves[src] = samples
			}
		}
	}
	if err := r.bridges.Require(curveSources(curves)); err != nil {
		return nil, err
	}

	orders := req.Orders
	if opts.nativeExcluded() {
		orders = nil
	}
	forest, err := fill.Build(fill.Options{
		Side:                  side,
		Target:                req.Amount,
		Fees:                  opts.Fees,
		EthToOutputRate:       opts.EthToOutputRate,
		DustFractionThreshold: opts.DustFractionThreshold,
		Table:                 source.NewTable(opts.EnableMutualExclusion),
	}, curves, orders)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("节点森林已构建", zap.Int("fills", len(forest.Fills)))

	result, err := optimizer.New(side, req.Amount, opts.RunLimit).Optimize(forest)
	if err != nil {
		return nil, err
	}

	collapsed := path.Collapse(result.Path)
	var builder execution.Builder = execution.NewAssembler(execution.Options{
		Side:           side,
		Pair:           pair,
		BridgeSlippage: opts.BridgeSlippage,
		Bridges:        r.bridges,
	}, r.logger)
	trades, err := builder.Build(collapsed)
	if err != nil {
		return nil, err
	}

	input, output := result.Path.Size(req.Amount)
	return &Quote{
		ID:             uuid.New(),
		Side:           side,
		Pair:           pair,
		Amount:         req.Amount,
		Orders:         trades,
		Collapsed:      collapsed,
		Input:          input,
		Output:         output,
		AdjustedOutput: result.AdjustedOutput,
		Visits:         result.Visits,
		ImprovedOnSeed: result.ImprovedOnSeed,
		Sources:        collapsedSources(collapsed),
	}, nil
}

func curveSources(curves fill.Curves) []source.Source {
	out := make([]source.Source, 0, len(curves))
	for src := range curves {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func collapsedSources(collapsed []path.CollapsedFill) []source.Source {
	var out []source.Source
	for _, cf := range collapsed {
		if !source.Contains(out, cf.Source) {
			out = append(out, cf.Source)
		}
	}
	return out
}

// failureReason 将错误归类为指标标签。
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyOrderSet):
		return "empty_order_set"
	case errors.Is(err, optimizer.ErrNoFeasiblePath):
		return "no_feasible_path"
	case errors.Is(err, order.ErrUnrecognizedAssetEncoding):
		return "unrecognized_asset_encoding"
	case errors.Is(err, source.ErrUnsupportedVenueMapping):
		return "unsupported_venue_mapping"
	default:
		return "error"
	}
}
