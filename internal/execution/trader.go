package execution

import "swap-router/internal/path"

// Builder 抽象成交指令生成，便于替换不同的结算编码。
type Builder interface {
	Build(collapsed []path.CollapsedFill) ([]TradeOrder, error)
}

var _ Builder = (*Assembler)(nil)
