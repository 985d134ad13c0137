package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Config 聚合了路由服务运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Router   RouterConfig   `mapstructure:"router"`
	Sampler  SamplerConfig  `mapstructure:"sampler"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
	RequestPath string `mapstructure:"request_path"`
}

// RouterConfig 为路由请求的默认参数。
type RouterConfig struct {
	RunLimit               int                `mapstructure:"run_limit"`
	NumSamples             int                `mapstructure:"num_samples"`
	SampleDistributionBase float64            `mapstructure:"sample_distribution_base"`
	BridgeSlippage         float64            `mapstructure:"bridge_slippage"`
	DustFractionThreshold  float64            `mapstructure:"dust_fraction_threshold"`
	EnableMutualExclusion  bool               `mapstructure:"enable_mutual_exclusion"`
	ExcludedSources        []string           `mapstructure:"excluded_sources"`
	Fees                   map[string]float64 `mapstructure:"fees"`
	EthToOutputRate        decimal.Decimal    `mapstructure:"eth_to_output_rate"`
	BridgeAddresses        map[string]string  `mapstructure:"bridge_addresses"`
	BatchConcurrency       int                `mapstructure:"batch_concurrency"`
}

// SamplerConfig 描述离线报价池。
type SamplerConfig struct {
	Pools []PoolConfig `mapstructure:"pools"`
}

// PoolConfig 是一个恒定乘积池。
type PoolConfig struct {
	Source   string          `mapstructure:"source"`
	TokenA   string          `mapstructure:"token_a"`
	TokenB   string          `mapstructure:"token_b"`
	ReserveA decimal.Decimal `mapstructure:"reserve_a"`
	ReserveB decimal.Decimal `mapstructure:"reserve_b"`
	FeeBps   int64           `mapstructure:"fee_bps"`
}

// ExchangeConfig 描述以订单簿作为报价来源的交易所。
type ExchangeConfig struct {
	Enabled       bool        `mapstructure:"enabled"`
	Name          string      `mapstructure:"name"`
	Market        string      `mapstructure:"market"`
	Source        string      `mapstructure:"source"`
	BaseToken     string      `mapstructure:"base_token"`
	QuoteToken    string      `mapstructure:"quote_token"`
	BaseDecimals  int32       `mapstructure:"base_decimals"`
	QuoteDecimals int32       `mapstructure:"quote_decimals"`
	Depth         int         `mapstructure:"depth"`
	APIKey        string      `mapstructure:"api_key"`
	APISecret     string      `mapstructure:"api_secret"`
	UseSandbox    bool        `mapstructure:"use_sandbox"`
	Retry         RetryConfig `mapstructure:"retry"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// MonitorConfig 控制监控接口。
type MonitorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Router.RunLimit < 0 {
		err = multierr.Append(err, errors.New("router.run_limit 不能为负"))
	}
	if c.Router.NumSamples <= 0 {
		err = multierr.Append(err, errors.New("router.num_samples 必须大于0"))
	}
	if c.Router.SampleDistributionBase <= 0 {
		err = multierr.Append(err, errors.New("router.sample_distribution_base 必须大于0"))
	}
	if c.Router.BridgeSlippage < 0 || c.Router.BridgeSlippage >= 1 {
		err = multierr.Append(err, errors.New("router.bridge_slippage 应位于[0,1)"))
	}
	if c.Router.DustFractionThreshold < 0 || c.Router.DustFractionThreshold >= 1 {
		err = multierr.Append(err, errors.New("router.dust_fraction_threshold 应位于[0,1)"))
	}
	if c.Router.EthToOutputRate.IsNegative() {
		err = multierr.Append(err, errors.New("router.eth_to_output_rate 不能为负"))
	}
	for name, fee := range c.Router.Fees {
		if fee < 0 {
			err = multierr.Append(err, fmt.Errorf("router.fees.%s 不能为负", name))
		}
	}
	if c.Router.BatchConcurrency <= 0 {
		err = multierr.Append(err, errors.New("router.batch_concurrency 必须大于0"))
	}
	for i, pool := range c.Sampler.Pools {
		if pool.Source == "" {
			err = multierr.Append(err, fmt.Errorf("sampler.pools[%d].source 不能为空", i))
		}
		if !pool.ReserveA.IsPositive() || !pool.ReserveB.IsPositive() {
			err = multierr.Append(err, fmt.Errorf("sampler.pools[%d] 储备必须为正", i))
		}
		if pool.FeeBps < 0 || pool.FeeBps >= 10000 {
			err = multierr.Append(err, fmt.Errorf("sampler.pools[%d].fee_bps 应位于[0,10000)", i))
		}
	}
	if c.Exchange.Enabled {
		if c.Exchange.Name == "" {
			err = multierr.Append(err, errors.New("exchange.name 不能为空"))
		}
		if c.Exchange.Market == "" {
			err = multierr.Append(err, errors.New("exchange.market 不能为空"))
		}
		if c.Exchange.BaseToken == "" || c.Exchange.QuoteToken == "" {
			err = multierr.Append(err, errors.New("exchange.base_token 与 quote_token 不能为空"))
		}
		if c.Exchange.Retry.MaxAttempts <= 0 {
			err = multierr.Append(err, errors.New("exchange.retry.max_attempts 必须大于0"))
		}
		if c.Exchange.Retry.MinDelay > c.Exchange.Retry.MaxDelay {
			err = multierr.Append(err, errors.New("exchange.retry.min_delay 不能大于 max_delay"))
		}
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if c.Monitor.Enabled && (c.Monitor.Port <= 0 || c.Monitor.Port > 65535) {
		err = multierr.Append(err, errors.New("monitor.port 应位于(0,65535]"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
