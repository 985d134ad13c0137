package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"swap-router/internal/config"
	"swap-router/internal/metrics"
	"swap-router/internal/sampler"
	"swap-router/internal/store"
)

// App 聚合核心依赖并驱动一次路由请求的生命周期。
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *store.Store
	metrics *metrics.Router
	fetcher sampler.BookFetcher
	out     io.Writer
}

// Option 定制 App。
type Option func(*App)

// WithBookFetcher 替换订单簿客户端，默认按配置创建 ccxt 客户端。
func WithBookFetcher(f sampler.BookFetcher) Option {
	return func(a *App) { a.fetcher = f }
}

// WithOutput 指定结果输出位置，默认为标准输出。
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store, opts ...Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		metrics: metrics.NewRouter(),
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run 执行请求文件中的路由请求并输出结果；启用监控时继续提供查询接口直到收到退出信号。
func (a *App) Run(ctx context.Context, requestPath string) error {
	if requestPath == "" {
		requestPath = a.cfg.App.RequestPath
	}
	a.logger.Info("路由服务已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("request", requestPath),
		zap.Int("pools", len(a.cfg.Sampler.Pools)),
		zap.Bool("exchange", a.cfg.Exchange.Enabled),
	)

	provider, err := newProvider(a.cfg, a.fetcher, a.logger)
	if err != nil {
		return err
	}
	p, err := newPipeline(ctx, a.cfg, provider, a.store, a.metrics, a.logger)
	if err != nil {
		return err
	}

	if a.cfg.Monitor.Enabled {
		if err := startMonitorServer(ctx, p.monitor, a.metrics, a.cfg.Monitor.Port, a.logger); err != nil {
			return err
		}
	}

	if requestPath != "" {
		req, err := LoadRequest(requestPath)
		if err != nil {
			return err
		}
		outcome, err := p.Execute(ctx, req)
		if err != nil {
			return fmt.Errorf("路由请求失败: %w", err)
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcome); err != nil {
			return fmt.Errorf("输出路由结果失败: %w", err)
		}
	}

	if !a.cfg.Monitor.Enabled {
		return nil
	}
	<-ctx.Done()
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("系统异常退出: %w", err)
	}
	a.logger.Info("系统收到退出信号，正在停止")
	return nil
}
