package path

import (
	"github.com/shopspring/decimal"

	"swap-router/internal/fill"
	"swap-router/internal/source"
)

// Path 是一组有序节点，代表一种候选成交方案。
type Path []*fill.Fill

// Size 返回路径在 target 处截断后的输入与原始输出，最后一个节点按比例截断。
func (p Path) Size(target decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return p.size(target, func(f *fill.Fill) decimal.Decimal { return f.Output })
}

// AdjustedSize 与 Size 相同，但输出计入固定成本。
func (p Path) AdjustedSize(target decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return p.size(target, func(f *fill.Fill) decimal.Decimal { return f.AdjustedOutput() })
}

// AdjustedOutput 返回截断到 target 后的调整后输出。
func (p Path) AdjustedOutput(target decimal.Decimal) decimal.Decimal {
	_, out := p.AdjustedSize(target)
	return out
}

func (p Path) size(target decimal.Decimal, output func(f *fill.Fill) decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	input, total := decimal.Zero, decimal.Zero
	for _, f := range p {
		if input.Add(f.Input).GreaterThanOrEqual(target) {
			remaining := target.Sub(input)
			input = input.Add(remaining)
			total = total.Add(output(f).Mul(remaining).Div(f.Input))
			break
		}
		input = input.Add(f.Input)
		total = total.Add(output(f))
	}
	return input, total
}

// Input 返回路径未截断的输入总和。
func (p Path) Input() decimal.Decimal {
	total := decimal.Zero
	for _, f := range p {
		total = total.Add(f.Input)
	}
	return total
}

// IsComplete 判断路径输入是否覆盖 target。
func (p Path) IsComplete(target decimal.Decimal) bool {
	return p.Input().GreaterThanOrEqual(target)
}

// Clip 丢弃覆盖 target 之后多余的节点。
func (p Path) Clip(target decimal.Decimal) Path {
	clipped := make(Path, 0, len(p))
	input := decimal.Zero
	for _, f := range p {
		if input.GreaterThanOrEqual(target) {
			break
		}
		input = input.Add(f.Input)
		clipped = append(clipped, f)
	}
	return clipped
}

// Flags 返回路径内全部节点的类别位。
func (p Path) Flags() source.Flag {
	var flags source.Flag
	for _, f := range p {
		flags |= f.Flags
	}
	return flags
}

// Valid 校验前驱先行、无重复节点且不违反互斥约束。
func (p Path) Valid() bool {
	seen := make(map[int]struct{}, len(p))
	var flags, exclusion source.Flag
	for _, f := range p {
		if _, dup := seen[f.ID]; dup {
			return false
		}
		if f.Parent != fill.NoParent {
			if _, ok := seen[f.Parent]; !ok {
				return false
			}
		}
		if f.Flags.Has(exclusion) || flags.Has(f.Exclusion) {
			return false
		}
		seen[f.ID] = struct{}{}
		flags |= f.Flags
		exclusion |= f.Exclusion
	}
	return true
}

// CompleteRate 返回按目标数量折算的完成率，未覆盖目标的路径按 input/target 受罚。
func CompleteRate(side fill.Side, input, output, target decimal.Decimal) decimal.Decimal {
	if input.IsZero() || output.IsZero() || target.IsZero() {
		return decimal.Zero
	}
	if side == fill.Sell {
		return output.Div(target)
	}
	return input.Div(output).Mul(input.Div(target))
}

// AdjustedCompleteRate 返回路径的调整后完成率。
func (p Path) AdjustedCompleteRate(side fill.Side, target decimal.Decimal) decimal.Decimal {
	input, output := p.AdjustedSize(target)
	return CompleteRate(side, input, output, target)
}
