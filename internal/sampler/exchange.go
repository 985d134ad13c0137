package sampler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"swap-router/internal/config"
)

// ErrMaintenance 表示交易所处于维护状态，该来源本次不参与报价。
var ErrMaintenance = errors.New("exchange on maintenance")

// BookLevel 为订单簿的一档。
type BookLevel struct {
	Price  float64
	Amount float64
}

// Book 为订单簿快照。
type Book struct {
	Symbol    string
	Bids      []BookLevel
	Asks      []BookLevel
	Timestamp time.Time
}

// BookFetcher 获取订单簿快照。
type BookFetcher interface {
	FetchOrderBook(ctx context.Context, depth int64) (Book, error)
}

// ExchangeClient 通过 ccxt 获取订单簿并实现重试机制。
type ExchangeClient struct {
	cfg      config.ExchangeConfig
	logger   *zap.Logger
	exchange *ccxt.Binanceusdm
	symbol   string

	marketsMu     sync.Mutex
	marketsLoaded bool
}

// NewExchangeClient 构造交易所客户端。
func NewExchangeClient(cfg config.ExchangeConfig, logger *zap.Logger) (*ExchangeClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !strings.EqualFold(cfg.Name, "binanceusdm") {
		return nil, fmt.Errorf("sampler: 不支持的交易所 %q", cfg.Name)
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
		"options": map[string]interface{}{
			"adjustForTimeDifference": true,
		},
	}
	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}

	ex := ccxt.NewBinanceusdm(userConfig)
	if cfg.UseSandbox {
		ex.SetSandboxMode(true)
	}

	return &ExchangeClient{
		cfg:      cfg,
		logger:   logger,
		exchange: ex,
		symbol:   cfg.Market,
	}, nil
}

// FetchOrderBook 获取订单簿快照。
func (c *ExchangeClient) FetchOrderBook(ctx context.Context, depth int64) (Book, error) {
	if depth <= 0 {
		depth = 50
	}

	var raw ccxt.OrderBook
	err := c.callWithRetry(ctx, "fetch_order_book", func() error {
		if err := c.ensureMarketsLoaded(ctx); err != nil {
			return err
		}
		orderBook, err := c.exchange.FetchOrderBook(
			c.symbol,
			ccxt.WithFetchOrderBookLimit(depth),
		)
		if err != nil {
			return err
		}
		raw = orderBook
		return nil
	})
	if err != nil {
		return Book{}, err
	}

	return convertOrderBook(c.symbol, depth, raw), nil
}

func (c *ExchangeClient) ensureMarketsLoaded(ctx context.Context) error {
	c.marketsMu.Lock()
	defer c.marketsMu.Unlock()

	if c.marketsLoaded {
		return nil
	}

	if _, err := c.exchange.LoadMarkets(); err != nil {
		return err
	}

	c.marketsLoaded = true
	c.logger.Info("已完成市场元数据加载", zap.String("symbol", c.symbol))
	return nil
}

func (c *ExchangeClient) callWithRetry(ctx context.Context, operation string, fn func() error) error {
	attempt := 0
	delay := c.cfg.Retry.MinDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := c.cfg.Retry.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt++
		err := fn()
		if err == nil {
			return nil
		}

		normalizedErr, retry := classifyError(err)
		if errors.Is(normalizedErr, ErrMaintenance) || !retry || attempt >= c.cfg.Retry.MaxAttempts {
			c.logger.Warn("交易所调用失败",
				zap.String("operation", operation),
				zap.Int("attempts", attempt),
				zap.Error(normalizedErr),
			)
			return normalizedErr
		}

		c.logger.Debug("交易所调用失败，等待重试",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", delay),
			zap.Error(normalizedErr),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func classifyError(err error) (error, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err, false
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		switch ccxtErr.Type {
		case ccxt.NetworkErrorErrType,
			ccxt.RequestTimeoutErrType,
			ccxt.ExchangeNotAvailableErrType,
			ccxt.RateLimitExceededErrType,
			ccxt.DDoSProtectionErrType:
			return err, true
		case ccxt.OnMaintenanceErrType:
			return fmt.Errorf("%w: %s", ErrMaintenance, strings.TrimSpace(ccxtErr.Message)), false
		default:
			return err, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return err, true
	}
	return err, false
}

// convertOrderBook 把 ccxt 订单簿转换为按最优价排列的档位：买盘价格降序、卖盘价格升序，
// 每侧最多保留 depth 档。数量或价格非正的档位被丢弃。
func convertOrderBook(symbol string, depth int64, ob ccxt.OrderBook) Book {
	side := func(raw [][]float64, better func(a, b float64) bool) []BookLevel {
		levels := make([]BookLevel, 0, len(raw))
		for _, l := range raw {
			if len(l) < 2 || l[0] <= 0 || l[1] <= 0 {
				continue
			}
			levels = append(levels, BookLevel{Price: l[0], Amount: l[1]})
		}
		sort.SliceStable(levels, func(i, j int) bool {
			return better(levels[i].Price, levels[j].Price)
		})
		if depth > 0 && int64(len(levels)) > depth {
			levels = levels[:depth]
		}
		return levels
	}

	ts := time.Now().UTC()
	if ob.Timestamp != nil {
		ts = time.UnixMilli(*ob.Timestamp).UTC()
	}

	return Book{
		Symbol:    symbol,
		Bids:      side(ob.Bids, func(a, b float64) bool { return a > b }),
		Asks:      side(ob.Asks, func(a, b float64) bool { return a < b }),
		Timestamp: ts,
	}
}
