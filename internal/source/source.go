package source

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedVenueMapping 表示来源名称或来源映射不受支持。
var ErrUnsupportedVenueMapping = errors.New("unsupported venue mapping")

// Source 表示一个流动性来源。
type Source uint8

const (
	Native Source = iota
	Uniswap
	UniswapV2
	Eth2Dai
	Kyber
	Curve
	Balancer
	Mooniswap
	LiquidityProvider
	MultiBridge

	numSources
)

var names = [numSources]string{
	Native:            "Native",
	Uniswap:           "Uniswap",
	UniswapV2:         "Uniswap_V2",
	Eth2Dai:           "Eth2Dai",
	Kyber:             "Kyber",
	Curve:             "Curve",
	Balancer:          "Balancer",
	Mooniswap:         "Mooniswap",
	LiquidityProvider: "LiquidityProvider",
	MultiBridge:       "MultiBridge",
}

// All 返回全部已知来源，Native 在首位。
func All() []Source {
	out := make([]Source, 0, numSources)
	for s := Native; s < numSources; s++ {
		out = append(out, s)
	}
	return out
}

// Bridged 返回全部非 Native 来源。
func Bridged() []Source {
	return All()[1:]
}

// Valid 判断来源是否属于已知枚举。
func (s Source) Valid() bool {
	return s < numSources
}

func (s Source) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Source(%d)", uint8(s))
	}
	return names[s]
}

// Parse 按名称（忽略大小写）解析来源。
func Parse(name string) (Source, error) {
	key := strings.TrimSpace(name)
	for s := Native; s < numSources; s++ {
		if strings.EqualFold(names[s], key) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("source: 未知来源 %q: %w", name, ErrUnsupportedVenueMapping)
}

// MarshalText 实现 encoding.TextMarshaler。
func (s Source) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("source: 非法来源 %d: %w", uint8(s), ErrUnsupportedVenueMapping)
	}
	return []byte(names[s]), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (s *Source) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseList 解析一组来源名称，任何未知名称都会导致失败。
func ParseList(names []string) ([]Source, error) {
	out := make([]Source, 0, len(names))
	for _, name := range names {
		s, err := Parse(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Without 返回 from 中未被 excluded 包含的来源，保持原有顺序。
func Without(from []Source, excluded []Source) []Source {
	out := make([]Source, 0, len(from))
	for _, s := range from {
		if !Contains(excluded, s) {
			out = append(out, s)
		}
	}
	return out
}

// Contains 判断列表中是否包含指定来源。
func Contains(list []Source, s Source) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
