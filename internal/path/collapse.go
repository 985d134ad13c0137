package path

import (
	"github.com/shopspring/decimal"

	"swap-router/internal/order"
	"swap-router/internal/source"
)

// SubFill 是合并前的单个节点数量。
type SubFill struct {
	Input  decimal.Decimal `json:"input"`
	Output decimal.Decimal `json:"output"`
}

// CollapsedFill 是面向结算的合并单元。
type CollapsedFill struct {
	Source   source.Source   `json:"source"`
	Input    decimal.Decimal `json:"input"`
	Output   decimal.Decimal `json:"output"`
	SubFills []SubFill       `json:"subFills"`
	// Order 仅在 Native 来源时非空。
	Order *order.Order `json:"order,omitempty"`
}

// IsNative 判断合并单元是否来自挂单。
func (c CollapsedFill) IsNative() bool {
	return c.Source == source.Native
}

// Collapse 合并路径中相邻且同来源的非 Native 节点；每笔挂单始终独立成一个单元。
func Collapse(p Path) []CollapsedFill {
	collapsed := make([]CollapsedFill, 0, len(p))
	for _, f := range p {
		sub := SubFill{Input: f.Input, Output: f.Output}
		if n := len(collapsed); n > 0 && !f.IsNative() {
			prev := &collapsed[n-1]
			if prev.Source == f.Source {
				prev.Input = prev.Input.Add(f.Input)
				prev.Output = prev.Output.Add(f.Output)
				prev.SubFills = append(prev.SubFills, sub)
				continue
			}
		}
		collapsed = append(collapsed, CollapsedFill{
			Source:   f.Source,
			Input:    f.Input,
			Output:   f.Output,
			SubFills: []SubFill{sub},
			Order:    f.Order,
		})
	}
	return collapsed
}
