package fill

import (
	"github.com/shopspring/decimal"

	"swap-router/internal/order"
	"swap-router/internal/source"
)

// NoParent 标记链首或挂单产生的根节点。
const NoParent = -1

// Sample 是某个来源在某个试算数量下的报价点。
type Sample struct {
	Input  decimal.Decimal `json:"input"`
	Output decimal.Decimal `json:"output"`
}

// Curves 为每个来源按输入递增排列的报价点。
type Curves map[source.Source][]Sample

// Fill 是路径搜索的最小流动性单元。
type Fill struct {
	ID     int
	Parent int
	// Index 为该节点在所属来源链中的位置。
	Index  int
	Source source.Source

	Input  decimal.Decimal
	Output decimal.Decimal
	// Penalty 为带符号的固定成本：卖出为正，买入为负，AdjustedOutput = Output - Penalty。
	Penalty decimal.Decimal

	Flags     source.Flag
	Exclusion source.Flag

	Order *order.Order
}

// IsRoot 判断节点是否没有前驱。
func (f *Fill) IsRoot() bool {
	return f.Parent == NoParent
}

// IsNative 判断节点是否来自挂单。
func (f *Fill) IsNative() bool {
	return f.Source == source.Native
}

// AdjustedOutput 返回计入固定成本后的输出。
func (f *Fill) AdjustedOutput() decimal.Decimal {
	return f.Output.Sub(f.Penalty)
}

// UnitValue 返回每单位输入对应的调整后输出。
func (f *Fill) UnitValue() decimal.Decimal {
	if !f.Input.IsPositive() {
		return decimal.Zero
	}
	return f.AdjustedOutput().Div(f.Input)
}

// AdjustedRate 返回调整后的兑换率，数值越大越优。
func (f *Fill) AdjustedRate(side Side) decimal.Decimal {
	adjusted := f.AdjustedOutput()
	if !f.Input.IsPositive() {
		return decimal.Zero
	}
	if side == Buy {
		if !adjusted.IsPositive() {
			return decimal.Zero
		}
		return f.Input.Div(adjusted)
	}
	return adjusted.Div(f.Input)
}

// Admissible 判断节点能否接在当前路径之后。
func (f *Fill) Admissible(inPath func(id int) bool, pathFlags, pathExclusion source.Flag) bool {
	if f.Parent != NoParent && !inPath(f.Parent) {
		return false
	}
	if f.Flags.Has(pathExclusion) {
		return false
	}
	return !pathFlags.Has(f.Exclusion)
}

// Forest 是一次请求构建出的全部节点。
type Forest struct {
	Side   Side
	Target decimal.Decimal
	Fills  []Fill
}

// Get 按编号返回节点。
func (fr *Forest) Get(id int) *Fill {
	if id < 0 || id >= len(fr.Fills) {
		return nil
	}
	return &fr.Fills[id]
}

// TotalInput 返回全部节点的输入总和。
func (fr *Forest) TotalInput() decimal.Decimal {
	total := decimal.Zero
	for i := range fr.Fills {
		total = total.Add(fr.Fills[i].Input)
	}
	return total
}

// Pointers 返回按编号排列的节点指针。
func (fr *Forest) Pointers() []*Fill {
	out := make([]*Fill, len(fr.Fills))
	for i := range fr.Fills {
		out[i] = &fr.Fills[i]
	}
	return out
}

// Chain 返回某个来源的全部节点，按链内顺序排列。挂单之间没有链关系，按编号排列。
func (fr *Forest) Chain(src source.Source) []*Fill {
	var out []*Fill
	for i := range fr.Fills {
		if fr.Fills[i].Source == src {
			out = append(out, &fr.Fills[i])
		}
	}
	return out
}

// Sources 返回森林中出现的来源，按首次出现顺序排列。
func (fr *Forest) Sources() []source.Source {
	var out []source.Source
	for i := range fr.Fills {
		if !source.Contains(out, fr.Fills[i].Source) {
			out = append(out, fr.Fills[i].Source)
		}
	}
	return out
}
