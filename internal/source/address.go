package source

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AddressBook 将非 Native 来源映射到结算桥合约地址。
type AddressBook map[Source]common.Address

// NewAddressBook 从名称到十六进制地址的配置构建地址簿。
func NewAddressBook(raw map[string]string) (AddressBook, error) {
	book := make(AddressBook, len(raw))
	for name, hex := range raw {
		s, err := Parse(name)
		if err != nil {
			return nil, err
		}
		if s == Native {
			return nil, fmt.Errorf("source: Native 不需要桥地址: %w", ErrUnsupportedVenueMapping)
		}
		if !common.IsHexAddress(hex) {
			return nil, fmt.Errorf("source: %s 的桥地址 %q 非法: %w", s, hex, ErrUnsupportedVenueMapping)
		}
		book[s] = common.HexToAddress(hex)
	}
	return book, nil
}

// Lookup 返回来源的桥地址。
func (b AddressBook) Lookup(s Source) (common.Address, error) {
	addr, ok := b[s]
	if !ok || addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("source: %s 未配置桥地址: %w", s, ErrUnsupportedVenueMapping)
	}
	return addr, nil
}

// Require 校验每个非 Native 来源都存在桥地址。
func (b AddressBook) Require(sources []Source) error {
	for _, s := range sources {
		if s == Native {
			continue
		}
		if _, err := b.Lookup(s); err != nil {
			return err
		}
	}
	return nil
}
