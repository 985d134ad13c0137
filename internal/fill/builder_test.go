package fill

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"swap-router/internal/order"
	"swap-router/internal/source"
)

var (
	makerToken = common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f")
	takerToken = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func samples(pairs ...int64) []Sample {
	out := make([]Sample, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Sample{Input: d(pairs[i]), Output: d(pairs[i+1])})
	}
	return out
}

func nativeOrder(makerAmount, takerAmount int64) order.Order {
	return order.Order{
		MakerAssetData:           order.EncodeERC20AssetData(makerToken),
		TakerAssetData:           order.EncodeERC20AssetData(takerToken),
		MakerAssetAmount:         d(makerAmount),
		TakerAssetAmount:         d(takerAmount),
		FillableMakerAssetAmount: d(makerAmount),
		FillableTakerAssetAmount: d(takerAmount),
	}
}

func baseOptions(side Side, target int64) Options {
	return Options{
		Side:                  side,
		Target:                d(target),
		Fees:                  map[source.Source]decimal.Decimal{},
		EthToOutputRate:       d(1),
		DustFractionThreshold: decimal.Zero,
		Table:                 source.NewTable(true),
	}
}

func TestBuildChainsMarginalFills(t *testing.T) {
	opts := baseOptions(Sell, 30)
	opts.Fees[source.Uniswap] = d(2)

	forest, err := Build(opts, Curves{source.Uniswap: samples(10, 20, 20, 35, 30, 45)}, nil)
	if err != nil {
		t.Fatalf("Build 返回错误: %v", err)
	}
	if len(forest.Fills) != 3 {
		t.Fatalf("节点数 = %d, want 3", len(forest.Fills))
	}

	wantOutputs := []int64{20, 15, 10}
	for i, f := range forest.Fills {
		if !f.Input.Equal(d(10)) || !f.Output.Equal(d(wantOutputs[i])) {
			t.Fatalf("节点 %d = (%s, %s)", i, f.Input, f.Output)
		}
		if f.Index != i {
			t.Fatalf("节点 %d 的链内序号 = %d", i, f.Index)
		}
		wantParent := i - 1
		if i == 0 {
			wantParent = NoParent
		}
		if f.Parent != wantParent {
			t.Fatalf("节点 %d 的前驱 = %d, want %d", i, f.Parent, wantParent)
		}
		if i == 0 && !f.Penalty.Equal(d(2)) {
			t.Fatalf("链首节点应计入固定成本，实际 %s", f.Penalty)
		}
		if i > 0 && !f.Penalty.IsZero() {
			t.Fatalf("非链首节点不应计入固定成本，实际 %s", f.Penalty)
		}
		if !f.Exclusion.Has(source.Kyber.Flag()) {
			t.Fatalf("Uniswap 节点应排斥 Kyber")
		}
	}
}

func TestBuildStopsAtZeroMarginalOutput(t *testing.T) {
	opts := baseOptions(Sell, 40)
	forest, err := Build(opts, Curves{
		source.Curve: samples(10, 10, 20, 10, 30, 25, 40, 30),
		source.Kyber: samples(10, 0, 20, 15),
	}, nil)
	if err != nil {
		t.Fatalf("Build 返回错误: %v", err)
	}
	if len(forest.Fills) != 1 || forest.Fills[0].Source != source.Curve {
		t.Fatalf("遇到零边际输出后应停止，节点 = %+v", forest.Fills)
	}
}

func TestBuildNativeFills(t *testing.T) {
	opts := baseOptions(Sell, 50)
	opts.Fees[source.Native] = d(1)
	opts.EthToOutputRate = d(3)

	orders := []order.Order{nativeOrder(200, 100), nativeOrder(60, 20)}
	forest, err := Build(opts, nil, orders)
	if err != nil {
		t.Fatalf("Build 返回错误: %v", err)
	}
	if len(forest.Fills) != 2 {
		t.Fatalf("节点数 = %d", len(forest.Fills))
	}
	// 兑换率 3 的挂单排在前面。
	first, second := forest.Fills[0], forest.Fills[1]
	if !first.Input.Equal(d(20)) || first.Order != &orders[1] {
		t.Fatalf("首个挂单节点错误: %+v", first)
	}
	if !second.Input.Equal(d(50)) || !second.Output.Equal(d(100)) {
		t.Fatalf("挂单应按目标截断: (%s, %s)", second.Input, second.Output)
	}
	for _, f := range forest.Fills {
		if !f.IsRoot() || !f.IsNative() {
			t.Fatalf("挂单节点应为 Native 根节点")
		}
		if !f.Penalty.Equal(d(3)) {
			t.Fatalf("每个挂单都应计入固定成本，实际 %s", f.Penalty)
		}
	}
}

func TestBuildBuyPenaltyIsNegative(t *testing.T) {
	opts := baseOptions(Buy, 10)
	opts.Fees[source.Uniswap] = d(2)
	forest, err := Build(opts, Curves{source.Uniswap: samples(10, 20)}, nil)
	if err != nil {
		t.Fatalf("Build 返回错误: %v", err)
	}
	f := forest.Fills[0]
	if !f.AdjustedOutput().Equal(d(22)) {
		t.Fatalf("买入时固定成本应增加花费，实际 %s", f.AdjustedOutput())
	}
}

func TestPruneNativeDropsDust(t *testing.T) {
	opts := baseOptions(Sell, 100)
	opts.DustFractionThreshold = decimal.RequireFromString("0.02")

	orders := []order.Order{nativeOrder(3, 1), nativeOrder(3, 1), nativeOrder(100, 100)}
	forest, err := Build(opts, nil, orders)
	if err != nil {
		t.Fatalf("Build 返回错误: %v", err)
	}
	if len(forest.Fills) != 1 || !forest.Fills[0].Input.Equal(d(100)) {
		t.Fatalf("粉尘挂单应被剔除，剩余 %d 个节点", len(forest.Fills))
	}
}

func TestPruneNativeStopsOnceCovered(t *testing.T) {
	fills := []Fill{
		{Source: source.Native, Input: d(60), Output: d(120)},
		{Source: source.Native, Input: d(60), Output: d(60)},
		{Source: source.Native, Input: d(60), Output: d(90)},
	}
	pruned := PruneNative(Sell, fills, d(100), decimal.Zero)
	if len(pruned) != 2 {
		t.Fatalf("累计覆盖目标后应停止，实际 %d 个", len(pruned))
	}
	if !pruned[0].Output.Equal(d(120)) || !pruned[1].Output.Equal(d(90)) {
		t.Fatalf("应按兑换率降序保留，实际 %s, %s", pruned[0].Output, pruned[1].Output)
	}
}

func TestSortByAdjustedRateKeepsParentFirst(t *testing.T) {
	opts := baseOptions(Sell, 40)
	// 第二个边际节点的兑换率高于链首。
	forest, err := Build(opts, Curves{
		source.Uniswap: samples(10, 10, 20, 40),
		source.Curve:   samples(10, 15),
	}, nil)
	if err != nil {
		t.Fatalf("Build 返回错误: %v", err)
	}

	sorted := SortByAdjustedRate(Sell, forest.Pointers())
	pos := make(map[int]int, len(sorted))
	for i, f := range sorted {
		pos[f.ID] = i
	}
	for _, f := range sorted {
		if f.Parent != NoParent && pos[f.Parent] >= pos[f.ID] {
			t.Fatalf("节点 %d 排在其前驱 %d 之前", f.ID, f.Parent)
		}
	}
	if sorted[0].Source != source.Curve {
		t.Fatalf("兑换率最高的可用节点应排在首位，实际 %s", sorted[0].Source)
	}
}

func TestSortByAdjustedRateOrdersTiedChainByDepth(t *testing.T) {
	opts := baseOptions(Sell, 40)
	// 链上兑换率逐级升高，三个节点的排序键都被钳制为链首的 1。
	forest, err := Build(opts, Curves{
		source.Uniswap: samples(10, 10, 20, 40, 30, 100),
	}, nil)
	if err != nil {
		t.Fatalf("Build 返回错误: %v", err)
	}

	in := forest.Pointers()
	reversed := make([]*Fill, 0, len(in))
	for i := len(in) - 1; i >= 0; i-- {
		reversed = append(reversed, in[i])
	}

	sorted := SortByAdjustedRate(Sell, reversed)
	if len(sorted) != 3 {
		t.Fatalf("期望 3 个节点，实际 %d", len(sorted))
	}
	for i, f := range sorted {
		if i == 0 && f.Parent != NoParent {
			t.Fatalf("链首应排在首位，实际节点 %d", f.ID)
		}
		if i > 0 && f.Parent != sorted[i-1].ID {
			t.Fatalf("第 %d 位节点 %d 的前驱应为 %d，实际 %d", i, f.ID, sorted[i-1].ID, f.Parent)
		}
	}
}

func TestSideBetter(t *testing.T) {
	if !Sell.Better(d(2), d(1)) || Sell.Better(d(1), d(1)) {
		t.Fatalf("卖出时输出越大越优且需严格更优")
	}
	if !Buy.Better(d(1), d(2)) || Buy.Better(d(1), d(1)) {
		t.Fatalf("买入时输出越小越优且需严格更优")
	}
}
