package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"swap-router/internal/config"
	"swap-router/internal/metrics"
	"swap-router/internal/monitor"
	"swap-router/internal/router"
	"swap-router/internal/sampler"
	"swap-router/internal/source"
	"swap-router/internal/store"
)

// Outcome 是一次请求文件的执行结果。
type Outcome struct {
	Kind  Kind           `json:"kind"`
	Quote *router.Quote  `json:"quote,omitempty"`
	Batch []BatchOutcome `json:"batch,omitempty"`
}

// BatchOutcome 对应批量买入中的一项。
type BatchOutcome struct {
	MakerToken string        `json:"makerToken"`
	Quote      *router.Quote `json:"quote,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type pipeline struct {
	router      *router.Router
	defaults    router.Options
	concurrency int
	monitor     *monitor.Service
	metrics     *metrics.Router
	logger      *zap.Logger
}

// newProvider 按配置组合离线池与交易所订单簿报价来源。
func newProvider(cfg *config.Config, fetcher sampler.BookFetcher, logger *zap.Logger) (sampler.Provider, error) {
	pools, err := sampler.NewPoolProvider(cfg.Sampler)
	if err != nil {
		return nil, err
	}
	providers := []sampler.Provider{pools}

	if cfg.Exchange.Enabled {
		if fetcher == nil {
			client, err := sampler.NewExchangeClient(cfg.Exchange, logger)
			if err != nil {
				return nil, fmt.Errorf("初始化交易所客户端失败: %w", err)
			}
			fetcher = client
		}
		book, err := sampler.NewBookProvider(cfg.Exchange, fetcher, logger)
		if err != nil {
			return nil, fmt.Errorf("初始化订单簿报价失败: %w", err)
		}
		providers = append(providers, book)
		logger.Info("订单簿报价来源已启用",
			zap.String("exchange", cfg.Exchange.Name),
			zap.String("market", cfg.Exchange.Market),
			zap.String("source", book.Source().String()),
		)
	}
	return sampler.NewComposite(logger, providers...), nil
}

func newPipeline(ctx context.Context, cfg *config.Config, provider sampler.Provider, st *store.Store, m *metrics.Router, logger *zap.Logger) (*pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	bridges, err := source.NewAddressBook(cfg.Router.BridgeAddresses)
	if err != nil {
		return nil, fmt.Errorf("解析桥地址失败: %w", err)
	}
	defaults, err := router.OptionsFromConfig(cfg.Router)
	if err != nil {
		return nil, err
	}
	r, err := router.New(provider, bridges, defaults, m, logger)
	if err != nil {
		return nil, err
	}

	var svc *monitor.Service
	if st != nil {
		svc, err = monitor.NewService(ctx, st, logger)
		if err != nil {
			return nil, fmt.Errorf("初始化监控服务失败: %w", err)
		}
	}

	return &pipeline{
		router:      r,
		defaults:    defaults,
		concurrency: cfg.Router.BatchConcurrency,
		monitor:     svc,
		metrics:     m,
		logger:      logger,
	}, nil
}

// Execute 按请求类型调用路由器并写入事件日志。
func (p *pipeline) Execute(ctx context.Context, req *RequestFile) (*Outcome, error) {
	opts, err := req.Options.apply(p.defaults)
	if err != nil {
		return nil, err
	}

	switch req.Kind {
	case KindBatchBuy:
		return p.executeBatch(ctx, req, opts), nil
	case KindBuy, KindSell:
		rr := router.Request{
			MakerToken: req.MakerToken,
			TakerToken: req.TakerToken,
			Amount:     req.Amount,
			Orders:     req.Orders,
			Options:    opts,
		}
		side := string(req.Kind)
		p.recordRequest(ctx, side, rr)

		var q *router.Quote
		if req.Kind == KindBuy {
			q, err = p.router.GetMarketBuyOrders(ctx, rr)
		} else {
			q, err = p.router.GetMarketSellOrders(ctx, rr)
		}
		if err != nil {
			p.recordError(ctx, side, rr, err)
			return nil, err
		}
		p.recordQuote(ctx, q)
		return &Outcome{Kind: req.Kind, Quote: q}, nil
	default:
		return nil, fmt.Errorf("app: 未知请求类型 %q", req.Kind)
	}
}

func (p *pipeline) executeBatch(ctx context.Context, req *RequestFile, opts *router.Options) *Outcome {
	entries := make([]router.BatchEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, router.BatchEntry{MakerToken: e.MakerToken, Amount: e.Amount, Orders: e.Orders})
		p.recordRequest(ctx, string(KindBuy), router.Request{
			MakerToken: e.MakerToken,
			TakerToken: req.TakerToken,
			Amount:     e.Amount,
			Orders:     e.Orders,
		})
	}

	results := p.router.GetBatchMarketBuyOrders(ctx, router.BatchRequest{
		TakerToken:  req.TakerToken,
		Entries:     entries,
		Options:     opts,
		Concurrency: p.concurrency,
	})

	out := &Outcome{Kind: KindBatchBuy, Batch: make([]BatchOutcome, 0, len(results))}
	for i, res := range results {
		item := BatchOutcome{MakerToken: res.MakerToken.Hex(), Quote: res.Quote}
		if res.Err != nil {
			item.Error = res.Err.Error()
			p.recordError(ctx, string(KindBuy), router.Request{
				MakerToken: entries[i].MakerToken,
				TakerToken: req.TakerToken,
				Amount:     entries[i].Amount,
			}, res.Err)
		} else {
			p.recordQuote(ctx, res.Quote)
		}
		out.Batch = append(out.Batch, item)
	}
	return out
}

func (p *pipeline) recordRequest(ctx context.Context, side string, req router.Request) {
	if p.monitor != nil {
		p.monitor.RecordRequest(ctx, side, req)
	}
}

func (p *pipeline) recordQuote(ctx context.Context, q *router.Quote) {
	if p.monitor != nil {
		p.monitor.RecordQuote(ctx, q)
	}
}

func (p *pipeline) recordError(ctx context.Context, side string, req router.Request, err error) {
	if p.monitor != nil {
		p.monitor.RecordError(ctx, side, "路由失败", err, map[string]interface{}{
			"maker_token": req.MakerToken.Hex(),
			"taker_token": req.TakerToken.Hex(),
			"amount":      req.Amount.String(),
		})
	}
}
