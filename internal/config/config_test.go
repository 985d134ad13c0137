package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default 返回错误: %v", err)
	}
	if cfg.Router.RunLimit != 32768 || cfg.Router.NumSamples != 13 {
		t.Fatalf("默认 run_limit/num_samples 错误: %d/%d", cfg.Router.RunLimit, cfg.Router.NumSamples)
	}
	if cfg.Router.SampleDistributionBase != 1.05 || cfg.Router.BridgeSlippage != 0.0005 || cfg.Router.DustFractionThreshold != 0.0025 {
		t.Fatalf("默认分布/滑点/粉尘参数错误: %+v", cfg.Router)
	}
	if !cfg.Router.EnableMutualExclusion {
		t.Fatalf("默认应启用互斥约束")
	}
	if cfg.Exchange.Retry.MinDelay != 500*time.Millisecond {
		t.Fatalf("默认重试间隔错误: %s", cfg.Exchange.Retry.MinDelay)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("默认配置应通过校验: %v", err)
	}
}

func TestLoadWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
router:
  run_limit: 1024
  eth_to_output_rate: "1800.5"
  fees:
    Uniswap: 0.0009
  bridge_addresses:
    Uniswap: "0x36691c4f426eb8f42f150ebde43069a31cb080ad"
sampler:
  pools:
    - source: Uniswap
      token_a: "0x6b175474e89094c44da98b954eedeac495271d0f"
      token_b: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
      reserve_a: 1000
      reserve_b: "2000.5"
      fee_bps: 30
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	t.Setenv("ROUTER_ROUTER_NUM_SAMPLES", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Router.RunLimit != 1024 {
		t.Fatalf("run_limit = %d", cfg.Router.RunLimit)
	}
	if cfg.Router.NumSamples != 7 {
		t.Fatalf("环境变量未覆盖 num_samples: %d", cfg.Router.NumSamples)
	}
	if !cfg.Router.EthToOutputRate.Equal(decimal.RequireFromString("1800.5")) {
		t.Fatalf("eth_to_output_rate = %s", cfg.Router.EthToOutputRate)
	}
	if len(cfg.Sampler.Pools) != 1 {
		t.Fatalf("pools = %d", len(cfg.Sampler.Pools))
	}
	pool := cfg.Sampler.Pools[0]
	if !pool.ReserveA.Equal(decimal.NewFromInt(1000)) || !pool.ReserveB.Equal(decimal.RequireFromString("2000.5")) {
		t.Fatalf("储备解析错误: %s/%s", pool.ReserveA, pool.ReserveB)
	}
	if cfg.Router.Fees["uniswap"] != 0.0009 && cfg.Router.Fees["Uniswap"] != 0.0009 {
		t.Fatalf("fees 解析错误: %v", cfg.Router.Fees)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("缺少配置文件时应返回错误")
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default 返回错误: %v", err)
	}
	cfg.Router.NumSamples = 0
	cfg.Router.BridgeSlippage = 1
	cfg.Router.Fees = map[string]float64{"Uniswap": -1}
	cfg.Sampler.Pools = []PoolConfig{{Source: "Uniswap", FeeBps: 10000}}
	cfg.Exchange.Enabled = true
	cfg.Exchange.Market = ""

	err = cfg.Validate()
	if err == nil {
		t.Fatalf("非法配置应校验失败")
	}
	msg := err.Error()
	for _, want := range []string{"num_samples", "bridge_slippage", "fees", "fee_bps", "储备", "exchange.market"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("错误信息缺少 %s: %s", want, msg)
		}
	}
}
