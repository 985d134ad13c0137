package fill

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"swap-router/internal/order"
	"swap-router/internal/source"
)

// Options 控制森林构建。
type Options struct {
	Side   Side
	Target decimal.Decimal
	// Fees 为各来源的 gas 等价成本，乘以 EthToOutputRate 得到输出资产计价的固定成本。
	Fees                  map[source.Source]decimal.Decimal
	EthToOutputRate       decimal.Decimal
	DustFractionThreshold decimal.Decimal
	Table                 source.Table
}

// Penalty 返回来源对应的带符号固定成本。
func (o Options) Penalty(src source.Source) decimal.Decimal {
	fee, ok := o.Fees[src]
	if !ok || fee.IsZero() {
		return decimal.Zero
	}
	cost := fee.Mul(o.EthToOutputRate)
	if o.Side == Buy {
		return cost.Neg()
	}
	return cost
}

// Build 将报价曲线与挂单转换为待搜索的节点森林。挂单节点在前，随后按来源枚举顺序排列各来源链。
func Build(opts Options, curves Curves, orders []order.Order) (*Forest, error) {
	if !opts.Target.IsPositive() {
		return nil, fmt.Errorf("fill: 目标数量必须为正: %s", opts.Target)
	}

	forest := &Forest{Side: opts.Side, Target: opts.Target}

	natives, err := nativeFills(opts, orders)
	if err != nil {
		return nil, err
	}
	for _, f := range PruneNative(opts.Side, natives, opts.Target, opts.DustFractionThreshold) {
		f.ID = len(forest.Fills)
		forest.Fills = append(forest.Fills, f)
	}

	for _, src := range source.Bridged() {
		samples, ok := curves[src]
		if !ok {
			continue
		}
		appendChain(forest, opts, src, samples)
	}

	return forest, nil
}

// appendChain 把一个来源的累计报价拆成边际节点，遇到零边际输出即停止。
func appendChain(forest *Forest, opts Options, src source.Source, samples []Sample) {
	category := opts.Table.Lookup(src)
	parent := NoParent
	prev := Sample{Input: decimal.Zero, Output: decimal.Zero}

	for _, sample := range samples {
		input := sample.Input.Sub(prev.Input)
		output := sample.Output.Sub(prev.Output)
		if !output.IsPositive() || !input.IsPositive() {
			break
		}

		penalty := decimal.Zero
		index := 0
		if parent != NoParent {
			index = forest.Fills[parent].Index + 1
		} else {
			penalty = opts.Penalty(src)
		}

		id := len(forest.Fills)
		forest.Fills = append(forest.Fills, Fill{
			ID:        id,
			Parent:    parent,
			Index:     index,
			Source:    src,
			Input:     input,
			Output:    output,
			Penalty:   penalty,
			Flags:     category.Flags,
			Exclusion: category.ExcludedWith,
		})
		parent = id
		prev = sample
	}
}

// nativeFills 为每笔挂单生成独立的根节点，每个节点都计入固定成本。
func nativeFills(opts Options, orders []order.Order) ([]Fill, error) {
	category := opts.Table.Lookup(source.Native)
	penalty := opts.Penalty(source.Native)

	fills := make([]Fill, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		makerAmount, err := o.MakerAmountSwappable()
		if err != nil {
			return nil, err
		}
		takerAmount, err := o.TakerAmountSwappable()
		if err != nil {
			return nil, err
		}

		input, output := takerAmount, makerAmount
		if opts.Side == Buy {
			input, output = makerAmount, takerAmount
		}
		if !input.IsPositive() || !output.IsPositive() {
			continue
		}

		// 目标小于挂单时只按目标计入，固定成本不随挂单大小变化。
		clippedInput := decimal.Min(opts.Target, input)
		clippedOutput := output.Mul(clippedInput).Div(input)

		f := Fill{
			Parent:    NoParent,
			Source:    source.Native,
			Input:     clippedInput,
			Output:    clippedOutput,
			Penalty:   penalty,
			Flags:     category.Flags,
			Exclusion: category.ExcludedWith,
			Order:     o,
		}
		if !f.AdjustedRate(opts.Side).IsPositive() {
			continue
		}
		fills = append(fills, f)
	}
	return fills, nil
}

// PruneNative 按调整后兑换率降序排列挂单节点，剔除粉尘后累加直至覆盖目标数量。
func PruneNative(side Side, fills []Fill, target, dustFraction decimal.Decimal) []Fill {
	sorted := make([]Fill, len(fills))
	copy(sorted, fills)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AdjustedRate(side).GreaterThan(sorted[j].AdjustedRate(side))
	})

	minInput := target.Mul(dustFraction)
	pruned := make([]Fill, 0, len(sorted))
	total := decimal.Zero
	for _, f := range sorted {
		if total.GreaterThanOrEqual(target) {
			break
		}
		if f.Input.LessThan(minInput) {
			continue
		}
		total = total.Add(f.Input)
		pruned = append(pruned, f)
	}
	return pruned
}

// SortByAdjustedRate 返回按调整后兑换率降序排列的节点，子节点总排在其前驱之后。
func SortByAdjustedRate(side Side, fills []*Fill) []*Fill {
	byID := make(map[int]*Fill, len(fills))
	for _, f := range fills {
		byID[f.ID] = f
	}

	// 子节点的排序键不超过前驱的排序键，保证前驱先于子节点出现；键相同时浅层在前。
	type rank struct {
		key   decimal.Decimal
		depth int
	}
	ranks := make(map[int]rank, len(fills))
	var rankOf func(f *Fill) rank
	rankOf = func(f *Fill) rank {
		if r, ok := ranks[f.ID]; ok {
			return r
		}
		r := rank{key: f.AdjustedRate(side)}
		if parent, ok := byID[f.Parent]; ok && f.Parent != NoParent {
			pr := rankOf(parent)
			r.key = decimal.Min(r.key, pr.key)
			r.depth = pr.depth + 1
		}
		ranks[f.ID] = r
		return r
	}
	for _, f := range fills {
		rankOf(f)
	}

	sorted := make([]*Fill, len(fills))
	copy(sorted, fills)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := ranks[sorted[i].ID], ranks[sorted[j].ID]
		if ri.key.Equal(rj.key) {
			return ri.depth < rj.depth
		}
		return ri.key.GreaterThan(rj.key)
	})
	return sorted
}
