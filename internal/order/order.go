package order

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Order 描述一笔挂单及其链上可成交余量。
type Order struct {
	Hash              string          `mapstructure:"hash" json:"hash"`
	MakerAddress      common.Address  `mapstructure:"maker_address" json:"makerAddress"`
	MakerAssetData    string          `mapstructure:"maker_asset_data" json:"makerAssetData"`
	TakerAssetData    string          `mapstructure:"taker_asset_data" json:"takerAssetData"`
	TakerFeeAssetData string          `mapstructure:"taker_fee_asset_data" json:"takerFeeAssetData"`
	MakerAssetAmount  decimal.Decimal `mapstructure:"maker_asset_amount" json:"makerAssetAmount"`
	TakerAssetAmount  decimal.Decimal `mapstructure:"taker_asset_amount" json:"takerAssetAmount"`
	TakerFee          decimal.Decimal `mapstructure:"taker_fee" json:"takerFee"`

	FillableMakerAssetAmount decimal.Decimal `mapstructure:"fillable_maker_asset_amount" json:"fillableMakerAssetAmount"`
	FillableTakerAssetAmount decimal.Decimal `mapstructure:"fillable_taker_asset_amount" json:"fillableTakerAssetAmount"`
	FillableTakerFeeAmount   decimal.Decimal `mapstructure:"fillable_taker_fee_amount" json:"fillableTakerFeeAmount"`
}

// FeeAsset 表示吃单手续费以何种资产支付。
type FeeAsset int

const (
	FeeNone FeeAsset = iota
	FeeInTakerAsset
	FeeInMakerAsset
)

// Pair 是一次路由请求的交易对。
type Pair struct {
	MakerToken common.Address
	TakerToken common.Address
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.MakerToken.Hex(), p.TakerToken.Hex())
}

// FeeAsset 判断吃单手续费资产。
func (o Order) FeeAsset() (FeeAsset, error) {
	if o.TakerFee.IsZero() && o.FillableTakerFeeAmount.IsZero() {
		return FeeNone, nil
	}
	if o.TakerFeeAssetData == "" {
		return FeeNone, fmt.Errorf("order: 存在手续费但缺少手续费资产数据: %w", ErrUnrecognizedAssetEncoding)
	}
	feeToken, err := DecodeERC20AssetData(o.TakerFeeAssetData)
	if err != nil {
		return FeeNone, err
	}
	takerToken, err := DecodeERC20AssetData(o.TakerAssetData)
	if err != nil {
		return FeeNone, err
	}
	if feeToken == takerToken {
		return FeeInTakerAsset, nil
	}
	makerToken, err := DecodeERC20AssetData(o.MakerAssetData)
	if err != nil {
		return FeeNone, err
	}
	if feeToken == makerToken {
		return FeeInMakerAsset, nil
	}
	return FeeNone, fmt.Errorf("order: 手续费资产 %s 既非 maker 也非 taker 资产: %w", feeToken.Hex(), ErrUnrecognizedAssetEncoding)
}

// TakerAmountSwappable 返回吃单方实际需要支付的数量（含 taker 资产计价的手续费）。
func (o Order) TakerAmountSwappable() (decimal.Decimal, error) {
	fee, err := o.FeeAsset()
	if err != nil {
		return decimal.Zero, err
	}
	if fee == FeeInTakerAsset {
		return o.FillableTakerAssetAmount.Add(o.FillableTakerFeeAmount), nil
	}
	return o.FillableTakerAssetAmount, nil
}

// MakerAmountSwappable 返回吃单方实际获得的数量（扣除 maker 资产计价的手续费）。
func (o Order) MakerAmountSwappable() (decimal.Decimal, error) {
	fee, err := o.FeeAsset()
	if err != nil {
		return decimal.Zero, err
	}
	if fee == FeeInMakerAsset {
		amount := o.FillableMakerAssetAmount.Sub(o.FillableTakerFeeAmount)
		if amount.IsNegative() {
			return decimal.Zero, nil
		}
		return amount, nil
	}
	return o.FillableMakerAssetAmount, nil
}

// Validate 校验订单资产与交易对匹配、数量合法。
func (o Order) Validate(pair Pair) error {
	maker, err := DecodeERC20AssetData(o.MakerAssetData)
	if err != nil {
		return fmt.Errorf("order %s: maker 资产: %w", o.Hash, err)
	}
	taker, err := DecodeERC20AssetData(o.TakerAssetData)
	if err != nil {
		return fmt.Errorf("order %s: taker 资产: %w", o.Hash, err)
	}
	if maker != pair.MakerToken || taker != pair.TakerToken {
		return fmt.Errorf("order %s: 资产 %s/%s 与交易对 %s 不一致: %w", o.Hash, maker.Hex(), taker.Hex(), pair, ErrUnrecognizedAssetEncoding)
	}
	if _, err := o.FeeAsset(); err != nil {
		return fmt.Errorf("order %s: %w", o.Hash, err)
	}
	if !o.MakerAssetAmount.IsPositive() || !o.TakerAssetAmount.IsPositive() {
		return fmt.Errorf("order %s: 挂单数量必须为正", o.Hash)
	}
	if o.FillableMakerAssetAmount.IsNegative() || o.FillableTakerAssetAmount.IsNegative() || o.FillableTakerFeeAmount.IsNegative() {
		return fmt.Errorf("order %s: 可成交余量不能为负", o.Hash)
	}
	return nil
}

// ValidateAll 校验整批订单并聚合所有错误。
func ValidateAll(orders []Order, pair Pair) error {
	var err error
	for _, o := range orders {
		err = multierr.Append(err, o.Validate(pair))
	}
	return err
}

// IsUnrecognized 判断错误（含聚合错误）是否源于资产编码。
func IsUnrecognized(err error) bool {
	for _, e := range multierr.Errors(err) {
		if errors.Is(e, ErrUnrecognizedAssetEncoding) {
			return true
		}
	}
	return false
}
