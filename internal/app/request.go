package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"swap-router/internal/config"
	"swap-router/internal/order"
	"swap-router/internal/router"
	"swap-router/internal/source"
)

// Kind 为请求类型。
type Kind string

const (
	KindSell     Kind = "sell"
	KindBuy      Kind = "buy"
	KindBatchBuy Kind = "batch_buy"
)

// RequestFile 是请求文件的内容。
type RequestFile struct {
	Kind       Kind            `mapstructure:"kind"`
	MakerToken common.Address  `mapstructure:"maker_token"`
	TakerToken common.Address  `mapstructure:"taker_token"`
	Amount     decimal.Decimal `mapstructure:"amount"`
	Orders     []order.Order   `mapstructure:"orders"`
	Entries    []EntryFile     `mapstructure:"entries"`
	Options    *OptionsFile    `mapstructure:"options"`
}

// EntryFile 是批量买入中的一项。
type EntryFile struct {
	MakerToken common.Address  `mapstructure:"maker_token"`
	Amount     decimal.Decimal `mapstructure:"amount"`
	Orders     []order.Order   `mapstructure:"orders"`
}

// OptionsFile 覆盖默认请求参数，未出现的字段保持默认值。
type OptionsFile struct {
	RunLimit               *int               `mapstructure:"run_limit"`
	NumSamples             *int               `mapstructure:"num_samples"`
	SampleDistributionBase *float64           `mapstructure:"sample_distribution_base"`
	BridgeSlippage         *decimal.Decimal   `mapstructure:"bridge_slippage"`
	DustFractionThreshold  *decimal.Decimal   `mapstructure:"dust_fraction_threshold"`
	EnableMutualExclusion  *bool              `mapstructure:"enable_mutual_exclusion"`
	ExcludedSources        []string           `mapstructure:"excluded_sources"`
	Fees                   map[string]float64 `mapstructure:"fees"`
}

// LoadRequest 读取 YAML/JSON 请求文件。
func LoadRequest(path string) (*RequestFile, error) {
	if path == "" {
		return nil, errors.New("app: 未指定请求文件")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("app: 读取请求文件失败: %w", err)
	}

	var req RequestFile
	if err := v.Unmarshal(&req, config.DecodeHook()); err != nil {
		return nil, fmt.Errorf("app: 解析请求文件失败: %w", err)
	}
	req.Kind = Kind(strings.ToLower(strings.TrimSpace(string(req.Kind))))
	if req.Kind == "" {
		req.Kind = KindSell
	}
	switch req.Kind {
	case KindSell, KindBuy, KindBatchBuy:
	default:
		return nil, fmt.Errorf("app: 未知请求类型 %q", req.Kind)
	}
	return &req, nil
}

// apply 在默认参数上叠加覆盖项。
func (o *OptionsFile) apply(base router.Options) (*router.Options, error) {
	if o == nil {
		return nil, nil
	}
	opts := base
	if o.RunLimit != nil {
		opts.RunLimit = *o.RunLimit
	}
	if o.NumSamples != nil {
		opts.NumSamples = *o.NumSamples
	}
	if o.SampleDistributionBase != nil {
		opts.SampleDistributionBase = *o.SampleDistributionBase
	}
	if o.BridgeSlippage != nil {
		opts.BridgeSlippage = *o.BridgeSlippage
	}
	if o.DustFractionThreshold != nil {
		opts.DustFractionThreshold = *o.DustFractionThreshold
	}
	if o.EnableMutualExclusion != nil {
		opts.EnableMutualExclusion = *o.EnableMutualExclusion
	}
	if o.ExcludedSources != nil {
		excluded, err := source.ParseList(o.ExcludedSources)
		if err != nil {
			return nil, fmt.Errorf("app: 解析排除来源失败: %w", err)
		}
		opts.ExcludedSources = excluded
	}
	if o.Fees != nil {
		fees := make(map[source.Source]decimal.Decimal, len(o.Fees))
		for name, fee := range o.Fees {
			src, err := source.Parse(name)
			if err != nil {
				return nil, fmt.Errorf("app: 解析来源费用失败: %w", err)
			}
			fees[src] = decimal.NewFromFloat(fee)
		}
		opts.Fees = fees
	}
	return &opts, nil
}
