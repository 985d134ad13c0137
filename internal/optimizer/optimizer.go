// Package optimizer 在节点森林上做有预算的分支定界搜索，选出调整后输出最优的完整路径。
package optimizer

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"swap-router/internal/fill"
	"swap-router/internal/path"
	"swap-router/internal/source"
)

// ErrNoFeasiblePath 表示没有任何路径能覆盖目标数量。
var ErrNoFeasiblePath = errors.New("no feasible path")

// DefaultRunLimit 是默认的节点访问预算。
const DefaultRunLimit = 1 << 15

// Result 为一次搜索的结果。
type Result struct {
	Path           path.Path
	AdjustedOutput decimal.Decimal
	// Visits 为实际消耗的预算。
	Visits int
	// Seed 为单一来源的上界种子路径，可能为空。
	Seed           path.Path
	SeedOutput     decimal.Decimal
	ImprovedOnSeed bool
}

// Optimizer 对单次请求执行路径搜索，不保存跨请求状态。
type Optimizer struct {
	side     fill.Side
	target   decimal.Decimal
	runLimit int
}

// New 创建搜索器。runLimit 为 0 时只评估单一来源路径。
func New(side fill.Side, target decimal.Decimal, runLimit int) *Optimizer {
	if runLimit < 0 {
		runLimit = 0
	}
	return &Optimizer{side: side, target: target, runLimit: runLimit}
}

// Optimize 返回森林中最优的完整路径。
func (o *Optimizer) Optimize(forest *fill.Forest) (Result, error) {
	if forest == nil || len(forest.Fills) == 0 {
		return Result{}, fmt.Errorf("optimizer: 没有可用节点: %w", ErrNoFeasiblePath)
	}
	if forest.TotalInput().LessThan(o.target) {
		return Result{}, fmt.Errorf("optimizer: 可用流动性 %s 小于目标 %s: %w", forest.TotalInput(), o.target, ErrNoFeasiblePath)
	}

	seed, seedOutput, seeded := BestSingleSource(o.side, forest, o.target)
	result := Result{Seed: seed, SeedOutput: seedOutput}

	if o.runLimit == 0 {
		if !seeded {
			return Result{}, fmt.Errorf("optimizer: 没有单一来源可覆盖目标: %w", ErrNoFeasiblePath)
		}
		result.Path = seed
		result.AdjustedOutput = seedOutput
		return result, nil
	}

	s := newSearch(o.side, o.target, o.runLimit, fill.SortByAdjustedRate(o.side, forest.Pointers()))
	if seeded {
		s.best = seed
		s.bestOutput = seedOutput
		s.hasBest = true
	}
	s.run()

	result.Visits = s.visits
	if !s.hasBest {
		return result, fmt.Errorf("optimizer: 预算 %d 耗尽前未找到完整路径: %w", o.runLimit, ErrNoFeasiblePath)
	}
	result.Path = s.best
	result.AdjustedOutput = s.bestOutput
	result.ImprovedOnSeed = seeded && s.improved
	return result, nil
}

// BestSingleSource 在每个来源独立可覆盖目标的路径中选出调整后输出最优者。
// 桥接来源取链的前缀；挂单按调整后兑换率依次取用。
func BestSingleSource(side fill.Side, forest *fill.Forest, target decimal.Decimal) (path.Path, decimal.Decimal, bool) {
	var (
		best       path.Path
		bestOutput decimal.Decimal
		found      bool
	)
	for _, src := range forest.Sources() {
		chain := forest.Chain(src)
		if src == source.Native {
			chain = fill.SortByAdjustedRate(side, chain)
		}
		candidate := path.Path(chain).Clip(target)
		if !candidate.IsComplete(target) {
			continue
		}
		output := candidate.AdjustedOutput(target)
		if !found || side.Better(output, bestOutput) {
			best, bestOutput, found = candidate, output, true
		}
	}
	return best, bestOutput, found
}
