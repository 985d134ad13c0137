package execution

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"swap-router/internal/fill"
	"swap-router/internal/order"
	"swap-router/internal/source"
)

// Options 控制成交指令的生成。
type Options struct {
	Side fill.Side
	Pair order.Pair
	// BridgeSlippage 为桥接来源的滑点保护比例。
	BridgeSlippage decimal.Decimal
	Bridges        source.AddressBook
}

// OrderFill 是成交指令内的一个子成交。
type OrderFill struct {
	MakerAssetAmount decimal.Decimal `json:"makerAssetAmount"`
	TakerAssetAmount decimal.Decimal `json:"takerAssetAmount"`
}

// TradeOrder 是面向结算的成交指令。
type TradeOrder struct {
	Source           source.Source   `json:"source"`
	MakerAddress     common.Address  `json:"makerAddress"`
	MakerToken       common.Address  `json:"makerToken"`
	TakerToken       common.Address  `json:"takerToken"`
	MakerAssetData   string          `json:"makerAssetData"`
	TakerAssetData   string          `json:"takerAssetData"`
	MakerAssetAmount decimal.Decimal `json:"makerAssetAmount"`
	TakerAssetAmount decimal.Decimal `json:"takerAssetAmount"`

	FillableMakerAssetAmount decimal.Decimal `json:"fillableMakerAssetAmount"`
	FillableTakerAssetAmount decimal.Decimal `json:"fillableTakerAssetAmount"`
	FillableTakerFeeAmount   decimal.Decimal `json:"fillableTakerFeeAmount"`

	Fills []OrderFill `json:"fills"`
	// Native 仅在挂单来源时非空。
	Native *order.Order `json:"native,omitempty"`
}

// IsNative 判断指令是否直接成交挂单。
func (t TradeOrder) IsNative() bool {
	return t.Native != nil
}
