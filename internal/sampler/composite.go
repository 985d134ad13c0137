package sampler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swap-router/internal/fill"
)

// Composite 并发查询多个报价来源并合并结果。先注册者在来源冲突时优先。
type Composite struct {
	providers []Provider
	logger    *zap.Logger
}

// NewComposite 创建组合报价来源。
func NewComposite(logger *zap.Logger, providers ...Provider) *Composite {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composite{providers: providers, logger: logger}
}

// Sample 实现 Provider。处于维护状态的来源被跳过，其余错误终止本次报价。
func (c *Composite) Sample(ctx context.Context, req Request) (fill.Curves, error) {
	results := make([]fill.Curves, len(c.providers))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, provider := range c.providers {
		group.Go(func() error {
			curves, err := provider.Sample(groupCtx, req)
			if errors.Is(err, ErrMaintenance) {
				c.logger.Warn("报价来源维护中，跳过", zap.Error(err))
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = curves
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	merged := make(fill.Curves)
	for _, curves := range results {
		for src, samples := range curves {
			if _, exists := merged[src]; !exists {
				merged[src] = samples
			}
		}
	}
	return merged, nil
}
