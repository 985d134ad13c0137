package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "router"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, DecodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default 返回仅包含默认值的配置，主要用于测试与嵌入式调用。
func Default() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, DecodeHook()); err != nil {
		return nil, fmt.Errorf("解析默认配置失败: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.request_path", "configs/request.yaml")

	v.SetDefault("router.run_limit", 1<<15)
	v.SetDefault("router.num_samples", 13)
	v.SetDefault("router.sample_distribution_base", 1.05)
	v.SetDefault("router.bridge_slippage", 0.0005)
	v.SetDefault("router.dust_fraction_threshold", 0.0025)
	v.SetDefault("router.enable_mutual_exclusion", true)
	v.SetDefault("router.excluded_sources", []string{})
	v.SetDefault("router.eth_to_output_rate", "0")
	v.SetDefault("router.batch_concurrency", 4)

	v.SetDefault("exchange.enabled", false)
	v.SetDefault("exchange.name", "binanceusdm")
	v.SetDefault("exchange.source", "LiquidityProvider")
	v.SetDefault("exchange.base_decimals", 18)
	v.SetDefault("exchange.quote_decimals", 6)
	v.SetDefault("exchange.depth", 100)
	v.SetDefault("exchange.use_sandbox", false)
	v.SetDefault("exchange.retry.max_attempts", 5)
	v.SetDefault("exchange.retry.min_delay", "500ms")
	v.SetDefault("exchange.retry.max_delay", "5s")

	v.SetDefault("database.path", "data/router.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})

	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.port", 9464)
}

// DecodeHook 返回统一的解码选项：时长、逗号分隔列表以及实现了 TextUnmarshaler 的类型（decimal、地址、来源）。
func DecodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			numberToDecimalHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		)
	}
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// numberToDecimalHookFunc 允许在 YAML 中直接以数字书写 decimal 字段。
func numberToDecimalHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != decimalType {
			return data, nil
		}
		switch v := data.(type) {
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case float64:
			return decimal.NewFromFloat(v), nil
		default:
			return data, nil
		}
	}
}
