package order

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrUnrecognizedAssetEncoding 表示资产数据无法识别。
var ErrUnrecognizedAssetEncoding = errors.New("unrecognized asset encoding")

var (
	erc20Selector       = common.FromHex("0xf47261b0")
	erc20BridgeSelector = common.FromHex("0xdc1600f3")
)

const wordSize = 32

// DecodeERC20AssetData 解析 ERC20 资产数据，返回代币地址。
func DecodeERC20AssetData(assetData string) (common.Address, error) {
	raw := common.FromHex(assetData)
	if len(raw) != len(erc20Selector)+wordSize {
		return common.Address{}, fmt.Errorf("order: 资产数据长度 %d 非法: %w", len(raw), ErrUnrecognizedAssetEncoding)
	}
	if !bytes.Equal(raw[:len(erc20Selector)], erc20Selector) {
		return common.Address{}, fmt.Errorf("order: 资产代理标识 %x 不受支持: %w", raw[:len(erc20Selector)], ErrUnrecognizedAssetEncoding)
	}
	word := raw[len(erc20Selector):]
	if !isZero(word[:wordSize-common.AddressLength]) {
		return common.Address{}, fmt.Errorf("order: 地址字段高位非零: %w", ErrUnrecognizedAssetEncoding)
	}
	return common.BytesToAddress(word[wordSize-common.AddressLength:]), nil
}

// EncodeERC20AssetData 生成 ERC20 资产数据。
func EncodeERC20AssetData(token common.Address) string {
	out := make([]byte, 0, len(erc20Selector)+wordSize)
	out = append(out, erc20Selector...)
	out = append(out, common.LeftPadBytes(token.Bytes(), wordSize)...)
	return hexutil.Encode(out)
}

// EncodeERC20BridgeAssetData 生成指向桥合约的资产数据，桥附加数据为空。
func EncodeERC20BridgeAssetData(token, bridge common.Address) string {
	out := make([]byte, 0, len(erc20BridgeSelector)+4*wordSize)
	out = append(out, erc20BridgeSelector...)
	out = append(out, common.LeftPadBytes(token.Bytes(), wordSize)...)
	out = append(out, common.LeftPadBytes(bridge.Bytes(), wordSize)...)
	out = append(out, common.LeftPadBytes([]byte{3 * wordSize}, wordSize)...)
	out = append(out, make([]byte, wordSize)...)
	return hexutil.Encode(out)
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
