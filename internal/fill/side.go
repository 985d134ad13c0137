package fill

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side 表示交易方向。卖出时 input 为 taker 资产；买入时 input 为 maker 资产。
type Side uint8

const (
	Sell Side = iota
	Buy
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// MarshalText 实现 encoding.TextMarshaler。
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (s *Side) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "sell":
		*s = Sell
	case "buy":
		*s = Buy
	default:
		return fmt.Errorf("fill: 未知交易方向 %q", string(text))
	}
	return nil
}

// Better 判断 a 是否严格优于 b：卖出取大，买入取小。
func (s Side) Better(a, b decimal.Decimal) bool {
	if s == Buy {
		return a.LessThan(b)
	}
	return a.GreaterThan(b)
}
