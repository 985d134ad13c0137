package sampler

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"swap-router/internal/config"
	"swap-router/internal/fill"
	"swap-router/internal/order"
	"swap-router/internal/source"
)

type fakeFetcher struct {
	book  Book
	err   error
	calls int
}

func (f *fakeFetcher) FetchOrderBook(_ context.Context, _ int64) (Book, error) {
	f.calls++
	return f.book, f.err
}

func bookConfig() config.ExchangeConfig {
	return config.ExchangeConfig{
		Source:     "LiquidityProvider",
		BaseToken:  takerToken.Hex(),
		QuoteToken: makerToken.Hex(),
		Depth:      10,
	}
}

func testBook() Book {
	return Book{
		Symbol: "ETH/DAI",
		Bids:   []BookLevel{{Price: 2, Amount: 10}, {Price: 1, Amount: 10}},
		Asks:   []BookLevel{{Price: 4, Amount: 5}},
	}
}

func TestBookProviderSellWalksBids(t *testing.T) {
	fetcher := &fakeFetcher{book: testBook()}
	p, err := NewBookProvider(bookConfig(), fetcher, nil)
	require.NoError(t, err)

	curves, err := p.Sample(context.Background(), Request{
		Pair:    order.Pair{MakerToken: makerToken, TakerToken: takerToken},
		Side:    fill.Sell,
		Sources: []source.Source{source.LiquidityProvider},
		Amounts: amounts(5, 15, 25),
	})
	require.NoError(t, err)
	samples := curves[source.LiquidityProvider]
	require.Len(t, samples, 3)
	require.True(t, samples[0].Output.Equal(d(10)))
	require.True(t, samples[1].Output.Equal(d(25)))
	require.True(t, samples[2].Output.IsZero(), "深度不足应返回零")
}

func TestBookProviderBuyWalksBidsByQuote(t *testing.T) {
	fetcher := &fakeFetcher{book: testBook()}
	p, err := NewBookProvider(bookConfig(), fetcher, nil)
	require.NoError(t, err)

	curves, err := p.Sample(context.Background(), Request{
		Pair:    order.Pair{MakerToken: makerToken, TakerToken: takerToken},
		Side:    fill.Buy,
		Sources: []source.Source{source.LiquidityProvider},
		Amounts: amounts(25),
	})
	require.NoError(t, err)
	require.True(t, curves[source.LiquidityProvider][0].Output.Equal(d(15)))
}

func TestBookProviderSkipsUnrelatedRequests(t *testing.T) {
	fetcher := &fakeFetcher{book: testBook()}
	p, err := NewBookProvider(bookConfig(), fetcher, nil)
	require.NoError(t, err)

	curves, err := p.Sample(context.Background(), Request{
		Pair:    order.Pair{MakerToken: makerToken, TakerToken: takerToken},
		Sources: []source.Source{source.Uniswap},
		Amounts: amounts(1),
	})
	require.NoError(t, err)
	require.Empty(t, curves)
	require.Zero(t, fetcher.calls)
}

func TestBookProviderPropagatesMaintenance(t *testing.T) {
	fetcher := &fakeFetcher{err: ErrMaintenance}
	p, err := NewBookProvider(bookConfig(), fetcher, nil)
	require.NoError(t, err)

	_, err = p.Sample(context.Background(), Request{
		Pair:    order.Pair{MakerToken: makerToken, TakerToken: takerToken},
		Sources: []source.Source{source.LiquidityProvider},
		Amounts: amounts(1),
	})
	require.ErrorIs(t, err, ErrMaintenance)
}

func TestNewBookProviderValidates(t *testing.T) {
	_, err := NewBookProvider(bookConfig(), nil, nil)
	require.Error(t, err)

	cfg := bookConfig()
	cfg.Source = "Native"
	_, err = NewBookProvider(cfg, &fakeFetcher{}, nil)
	require.ErrorIs(t, err, source.ErrUnsupportedVenueMapping)
}

func TestClassifyError(t *testing.T) {
	_, retry := classifyError(&net.DNSError{IsTimeout: true})
	require.True(t, retry)

	_, retry = classifyError(context.Canceled)
	require.False(t, retry)

	err, retry := classifyError(&ccxt.Error{Type: ccxt.OnMaintenanceErrType, Message: " upgrading "})
	require.False(t, retry)
	require.ErrorIs(t, err, ErrMaintenance)

	_, retry = classifyError(&ccxt.Error{Type: ccxt.RateLimitExceededErrType})
	require.True(t, retry)
}

func TestCallWithRetry(t *testing.T) {
	c := &ExchangeClient{
		cfg:    config.ExchangeConfig{Retry: config.RetryConfig{MaxAttempts: 3, MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}},
		logger: zap.NewNop(),
	}

	attempts := 0
	err := c.callWithRetry(context.Background(), "test", func() error {
		attempts++
		if attempts < 3 {
			return &net.DNSError{IsTimeout: true}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)

	attempts = 0
	permanent := errors.New("bad symbol")
	err = c.callWithRetry(context.Background(), "test", func() error {
		attempts++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, attempts)
}

func TestConvertOrderBook(t *testing.T) {
	ts := int64(1_700_000_000_000)
	book := convertOrderBook("ETH/USDT", 2, ccxt.OrderBook{
		Bids:      [][]float64{{98, 3}, {100, 1}, {0, 5}, {99}, {99.5, 2}},
		Asks:      [][]float64{{102, 1}, {101, 2}},
		Timestamp: &ts,
	})
	require.Equal(t, "ETH/USDT", book.Symbol)
	require.Equal(t, []BookLevel{{Price: 100, Amount: 1}, {Price: 99.5, Amount: 2}}, book.Bids)
	require.Equal(t, []BookLevel{{Price: 101, Amount: 2}, {Price: 102, Amount: 1}}, book.Asks)
	require.Equal(t, time.UnixMilli(ts).UTC(), book.Timestamp)
}
