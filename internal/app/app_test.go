package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"swap-router/internal/config"
	"swap-router/internal/metrics"
	"swap-router/internal/monitor"
	"swap-router/internal/order"
	"swap-router/internal/store"
)

var (
	makerToken = common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f")
	takerToken = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	otherToken = common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Sampler.Pools = []config.PoolConfig{
		{
			Source:   "Uniswap",
			TokenA:   makerToken.Hex(),
			TokenB:   takerToken.Hex(),
			ReserveA: decimal.NewFromInt(1_000_000),
			ReserveB: decimal.NewFromInt(1_000_000),
			FeeBps:   30,
		},
		{
			Source:   "Uniswap",
			TokenA:   otherToken.Hex(),
			TokenB:   takerToken.Hex(),
			ReserveA: decimal.NewFromInt(1_000_000),
			ReserveB: decimal.NewFromInt(1_000_000),
			FeeBps:   30,
		},
	}
	cfg.Router.BridgeAddresses = map[string]string{"Uniswap": "0x36691c4f426eb8f42f150ebde43069a31cb080ad"}
	return cfg
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.NewSQLite(config.DatabaseConfig{InMemory: true, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func orderYAML(indent string, maker common.Address, makerAmount, takerAmount int64) string {
	lines := []string{
		"- hash: \"0xabc\"",
		fmt.Sprintf("  maker_asset_data: \"%s\"", order.EncodeERC20AssetData(maker)),
		fmt.Sprintf("  taker_asset_data: \"%s\"", order.EncodeERC20AssetData(takerToken)),
		fmt.Sprintf("  maker_asset_amount: %d", makerAmount),
		fmt.Sprintf("  taker_asset_amount: %d", takerAmount),
		fmt.Sprintf("  fillable_maker_asset_amount: \"%d\"", makerAmount),
		fmt.Sprintf("  fillable_taker_asset_amount: \"%d\"", takerAmount),
	}
	return indent + strings.Join(lines, "\n"+indent) + "\n"
}

func writeRequest(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "request.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestAppRunSell(t *testing.T) {
	body := fmt.Sprintf("kind: sell\nmaker_token: \"%s\"\ntaker_token: \"%s\"\namount: 1000\norders:\n%s",
		makerToken.Hex(), takerToken.Hex(), orderYAML("  ", makerToken, 2000, 1000))
	reqPath := writeRequest(t, body)

	st := testStore(t)
	var out bytes.Buffer
	a := New(testConfig(t), nil, st, WithOutput(&out))
	require.NoError(t, a.Run(context.Background(), reqPath))

	var outcome Outcome
	require.NoError(t, json.Unmarshal(out.Bytes(), &outcome))
	require.Equal(t, KindSell, outcome.Kind)
	require.NotNil(t, outcome.Quote)
	require.Len(t, outcome.Quote.Orders, 1)
	require.True(t, outcome.Quote.Orders[0].IsNative())
	require.True(t, outcome.Quote.Output.Equal(decimal.NewFromInt(2000)), "output=%s", outcome.Quote.Output)

	svc, err := monitor.NewService(context.Background(), st, nil)
	require.NoError(t, err)
	events, err := svc.ListEvents(context.Background(), "", "", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, monitor.EventRouteResult, events[0].Type)
	require.Equal(t, monitor.EventQuoteRequest, events[1].Type)
}

func TestAppRunBatchBuy(t *testing.T) {
	body := fmt.Sprintf(`kind: batch_buy
taker_token: "%s"
options:
  run_limit: 64
  excluded_sources: ["Kyber"]
entries:
  - maker_token: "%s"
    amount: 100
    orders:
%s  - maker_token: "%s"
    amount: 100
`, takerToken.Hex(), makerToken.Hex(), orderYAML("      ", makerToken, 100, 90), otherToken.Hex())
	reqPath := writeRequest(t, body)

	var out bytes.Buffer
	a := New(testConfig(t), nil, testStore(t), WithOutput(&out))
	require.NoError(t, a.Run(context.Background(), reqPath))

	var outcome Outcome
	require.NoError(t, json.Unmarshal(out.Bytes(), &outcome))
	require.Equal(t, KindBatchBuy, outcome.Kind)
	require.Len(t, outcome.Batch, 2)

	require.Empty(t, outcome.Batch[0].Error)
	require.True(t, outcome.Batch[0].Quote.Output.Equal(decimal.NewFromInt(90)))
	require.Contains(t, outcome.Batch[1].Error, "empty order set")
}

func TestAppRunFailsOnMissingBridge(t *testing.T) {
	body := fmt.Sprintf("kind: sell\nmaker_token: \"%s\"\ntaker_token: \"%s\"\namount: 1000\norders:\n%s",
		makerToken.Hex(), takerToken.Hex(), orderYAML("  ", makerToken, 2000, 1000))
	cfg := testConfig(t)
	cfg.Router.BridgeAddresses = nil

	a := New(cfg, nil, testStore(t), WithOutput(&bytes.Buffer{}))
	err := a.Run(context.Background(), writeRequest(t, body))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported venue mapping")
}

func TestLoadRequestRejectsUnknownKind(t *testing.T) {
	_, err := LoadRequest(writeRequest(t, "kind: swap\n"))
	require.Error(t, err)

	_, err = LoadRequest("")
	require.Error(t, err)
}

func TestMonitorMux(t *testing.T) {
	st := testStore(t)
	svc, err := monitor.NewService(context.Background(), st, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Record(context.Background(), monitor.Event{Type: monitor.EventRouteError, Payload: map[string]string{"error": "x"}}))

	m := metrics.NewRouter()
	m.ObserveFailure("sell", "no_feasible_path")
	mux := newMonitorMux(svc, m, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?type=route_error&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var events []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "router_quotes_total")
}
