package execution

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"swap-router/internal/fill"
	"swap-router/internal/order"
	"swap-router/internal/path"
)

var one = decimal.NewFromInt(1)

// Assembler 将合并后的路径转化为成交指令。
type Assembler struct {
	opts   Options
	logger *zap.Logger
}

// NewAssembler 创建指令生成器。
func NewAssembler(opts Options, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		opts:   opts,
		logger: logger,
	}
}

// Build 逐个转换合并单元，保持路径顺序。
func (a *Assembler) Build(collapsed []path.CollapsedFill) ([]TradeOrder, error) {
	return buildTradeOrders(collapsed, a.opts)
}

func buildTradeOrders(collapsed []path.CollapsedFill, opts Options) ([]TradeOrder, error) {
	if len(collapsed) == 0 {
		return nil, errors.New("execution: 路径为空")
	}

	orders := make([]TradeOrder, 0, len(collapsed))
	for _, cf := range collapsed {
		var (
			trade TradeOrder
			err   error
		)
		if cf.IsNative() {
			trade, err = nativeTradeOrder(cf, opts)
		} else {
			trade, err = bridgeTradeOrder(cf, opts)
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, trade)
	}
	return orders, nil
}

func bridgeTradeOrder(cf path.CollapsedFill, opts Options) (TradeOrder, error) {
	bridge, err := opts.Bridges.Lookup(cf.Source)
	if err != nil {
		return TradeOrder{}, err
	}

	makerAmount, takerAmount := sideAmounts(opts.Side, cf.Input, cf.Output)
	if opts.Side == fill.Sell {
		makerAmount = makerAmount.Mul(one.Sub(opts.BridgeSlippage)).Floor()
	} else {
		takerAmount = takerAmount.Mul(one.Add(opts.BridgeSlippage)).Ceil()
	}

	return TradeOrder{
		Source:                   cf.Source,
		MakerAddress:             bridge,
		MakerToken:               opts.Pair.MakerToken,
		TakerToken:               opts.Pair.TakerToken,
		MakerAssetData:           order.EncodeERC20BridgeAssetData(opts.Pair.MakerToken, bridge),
		TakerAssetData:           order.EncodeERC20AssetData(opts.Pair.TakerToken),
		MakerAssetAmount:         makerAmount,
		TakerAssetAmount:         takerAmount,
		FillableMakerAssetAmount: makerAmount,
		FillableTakerAssetAmount: takerAmount,
		FillableTakerFeeAmount:   decimal.Zero,
		Fills:                    orderFills(opts.Side, cf.SubFills),
	}, nil
}

func nativeTradeOrder(cf path.CollapsedFill, opts Options) (TradeOrder, error) {
	if cf.Order == nil {
		return TradeOrder{}, fmt.Errorf("execution: Native 单元缺少挂单")
	}
	o := cf.Order
	return TradeOrder{
		Source:                   cf.Source,
		MakerAddress:             o.MakerAddress,
		MakerToken:               opts.Pair.MakerToken,
		TakerToken:               opts.Pair.TakerToken,
		MakerAssetData:           o.MakerAssetData,
		TakerAssetData:           o.TakerAssetData,
		MakerAssetAmount:         o.MakerAssetAmount,
		TakerAssetAmount:         o.TakerAssetAmount,
		FillableMakerAssetAmount: o.FillableMakerAssetAmount,
		FillableTakerAssetAmount: o.FillableTakerAssetAmount,
		FillableTakerFeeAmount:   o.FillableTakerFeeAmount,
		Fills:                    orderFills(opts.Side, cf.SubFills),
		Native:                   o,
	}, nil
}

// sideAmounts 把 (input, output) 还原为 (maker, taker)。
func sideAmounts(side fill.Side, input, output decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if side == fill.Buy {
		return input, output
	}
	return output, input
}

func orderFills(side fill.Side, subs []path.SubFill) []OrderFill {
	out := make([]OrderFill, 0, len(subs))
	for _, sub := range subs {
		maker, taker := sideAmounts(side, sub.Input, sub.Output)
		out = append(out, OrderFill{MakerAssetAmount: maker, TakerAssetAmount: taker})
	}
	return out
}
