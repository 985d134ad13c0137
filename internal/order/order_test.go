package order

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

var (
	makerToken = common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f")
	takerToken = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	pair       = Pair{MakerToken: makerToken, TakerToken: takerToken}
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newOrder(makerAmount, takerAmount int64) Order {
	return Order{
		Hash:                     "0x01",
		MakerAssetData:           EncodeERC20AssetData(makerToken),
		TakerAssetData:           EncodeERC20AssetData(takerToken),
		MakerAssetAmount:         d(makerAmount),
		TakerAssetAmount:         d(takerAmount),
		FillableMakerAssetAmount: d(makerAmount),
		FillableTakerAssetAmount: d(takerAmount),
	}
}

func TestDecodeERC20AssetData(t *testing.T) {
	encoded := EncodeERC20AssetData(makerToken)
	if !strings.HasPrefix(encoded, "0xf47261b0") {
		t.Fatalf("资产数据前缀错误: %s", encoded)
	}
	got, err := DecodeERC20AssetData(encoded)
	if err != nil || got != makerToken {
		t.Fatalf("DecodeERC20AssetData = %s, %v", got.Hex(), err)
	}

	bad := []string{
		"",
		"0xf47261b0",
		"0x02571792" + strings.Repeat("00", 32),
		"0xf47261b0" + "01" + strings.Repeat("00", 31),
		EncodeERC20BridgeAssetData(makerToken, takerToken),
	}
	for _, data := range bad {
		if _, err := DecodeERC20AssetData(data); !errors.Is(err, ErrUnrecognizedAssetEncoding) {
			t.Fatalf("DecodeERC20AssetData(%q) 应返回 ErrUnrecognizedAssetEncoding，实际 %v", data, err)
		}
	}
}

func TestEncodeERC20BridgeAssetData(t *testing.T) {
	bridge := common.HexToAddress("0x36691c4f426eb8f42f150ebde43069a31cb080ad")
	encoded := EncodeERC20BridgeAssetData(makerToken, bridge)
	if !strings.HasPrefix(encoded, "0xdc1600f3") {
		t.Fatalf("桥资产数据前缀错误: %s", encoded)
	}
	raw := common.FromHex(encoded)
	if len(raw) != 4+4*32 {
		t.Fatalf("桥资产数据长度 = %d", len(raw))
	}
	if common.BytesToAddress(raw[4+32:4+64]) != bridge {
		t.Fatalf("桥地址编码错误")
	}
}

func TestSwappableAmounts(t *testing.T) {
	o := newOrder(200, 100)
	o.TakerFee = d(10)
	o.FillableTakerFeeAmount = d(10)

	o.TakerFeeAssetData = EncodeERC20AssetData(takerToken)
	taker, err := o.TakerAmountSwappable()
	if err != nil || !taker.Equal(d(110)) {
		t.Fatalf("taker 资产手续费: TakerAmountSwappable = %s, %v", taker, err)
	}
	maker, _ := o.MakerAmountSwappable()
	if !maker.Equal(d(200)) {
		t.Fatalf("taker 资产手续费: MakerAmountSwappable = %s", maker)
	}

	o.TakerFeeAssetData = EncodeERC20AssetData(makerToken)
	taker, _ = o.TakerAmountSwappable()
	maker, err = o.MakerAmountSwappable()
	if !taker.Equal(d(100)) || err != nil || !maker.Equal(d(190)) {
		t.Fatalf("maker 资产手续费: taker=%s maker=%s err=%v", taker, maker, err)
	}

	o.TakerFeeAssetData = EncodeERC20AssetData(common.HexToAddress("0x01"))
	if _, err := o.TakerAmountSwappable(); !errors.Is(err, ErrUnrecognizedAssetEncoding) {
		t.Fatalf("第三方手续费资产应失败，实际 %v", err)
	}
}

func TestValidateAllAggregates(t *testing.T) {
	good := newOrder(10, 10)
	wrongPair := newOrder(10, 10)
	wrongPair.MakerAssetData = EncodeERC20AssetData(common.HexToAddress("0x02"))
	badData := newOrder(10, 10)
	badData.TakerAssetData = "0xdeadbeef"
	zero := newOrder(10, 10)
	zero.MakerAssetAmount = decimal.Zero

	if err := ValidateAll([]Order{good}, pair); err != nil {
		t.Fatalf("合法订单校验失败: %v", err)
	}

	err := ValidateAll([]Order{good, wrongPair, badData, zero}, pair)
	if got := len(multierr.Errors(err)); got != 3 {
		t.Fatalf("应聚合 3 个错误，实际 %d: %v", got, err)
	}
	if !IsUnrecognized(err) {
		t.Fatalf("聚合错误应包含资产编码错误")
	}
	if IsUnrecognized(ValidateAll([]Order{zero}, pair)) {
		t.Fatalf("数量错误不应被视为资产编码错误")
	}
}
