package router

import (
	"fmt"

	"github.com/shopspring/decimal"

	"swap-router/internal/config"
	"swap-router/internal/optimizer"
	"swap-router/internal/source"
)

// Options 是单次路由请求的可调参数，所有字段均有默认值。
type Options struct {
	RunLimit               int
	NumSamples             int
	SampleDistributionBase float64
	BridgeSlippage         decimal.Decimal
	DustFractionThreshold  decimal.Decimal
	EnableMutualExclusion  bool
	ExcludedSources        []source.Source
	// Fees 为各来源的 gas 等价成本。
	Fees            map[source.Source]decimal.Decimal
	EthToOutputRate decimal.Decimal
}

// DefaultOptions 返回默认请求参数。
func DefaultOptions() Options {
	return Options{
		RunLimit:               optimizer.DefaultRunLimit,
		NumSamples:             13,
		SampleDistributionBase: 1.05,
		BridgeSlippage:         decimal.RequireFromString("0.0005"),
		DustFractionThreshold:  decimal.RequireFromString("0.0025"),
		EnableMutualExclusion:  true,
		Fees:                   map[source.Source]decimal.Decimal{},
		EthToOutputRate:        decimal.NewFromInt(1),
	}
}

// OptionsFromConfig 将路由配置转换为请求参数。
func OptionsFromConfig(cfg config.RouterConfig) (Options, error) {
	opts := DefaultOptions()
	opts.RunLimit = cfg.RunLimit
	opts.NumSamples = cfg.NumSamples
	opts.SampleDistributionBase = cfg.SampleDistributionBase
	opts.BridgeSlippage = decimal.NewFromFloat(cfg.BridgeSlippage)
	opts.DustFractionThreshold = decimal.NewFromFloat(cfg.DustFractionThreshold)
	opts.EnableMutualExclusion = cfg.EnableMutualExclusion
	if !cfg.EthToOutputRate.IsZero() {
		opts.EthToOutputRate = cfg.EthToOutputRate
	}

	excluded, err := source.ParseList(cfg.ExcludedSources)
	if err != nil {
		return Options{}, fmt.Errorf("router: 解析排除来源失败: %w", err)
	}
	opts.ExcludedSources = excluded

	for name, fee := range cfg.Fees {
		src, err := source.Parse(name)
		if err != nil {
			return Options{}, fmt.Errorf("router: 解析来源费用失败: %w", err)
		}
		opts.Fees[src] = decimal.NewFromFloat(fee)
	}
	return opts, nil
}

func (o Options) validate() error {
	if o.RunLimit < 0 {
		return fmt.Errorf("router: run_limit 不能为负: %d", o.RunLimit)
	}
	if o.NumSamples <= 0 {
		return fmt.Errorf("router: num_samples 必须为正: %d", o.NumSamples)
	}
	if o.BridgeSlippage.IsNegative() || o.BridgeSlippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("router: bridge_slippage 需在 [0,1) 内: %s", o.BridgeSlippage)
	}
	if o.DustFractionThreshold.IsNegative() {
		return fmt.Errorf("router: dust_fraction_threshold 不能为负: %s", o.DustFractionThreshold)
	}
	return nil
}

// sampledSources 返回需要报价的桥接来源。
func (o Options) sampledSources() []source.Source {
	return source.Without(source.Bridged(), o.ExcludedSources)
}

func (o Options) nativeExcluded() bool {
	return source.Contains(o.ExcludedSources, source.Native)
}
