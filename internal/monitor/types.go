package monitor

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType 表示路由事件类型。
type EventType string

const (
	EventQuoteRequest EventType = "quote_request"
	EventRouteResult  EventType = "route_result"
	EventRouteError   EventType = "route_error"
)

// Event 封装通用路由事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	QuoteID   string      `json:"quoteId,omitempty"`
	Payload   interface{} `json:"payload"`
}

// QuoteRequestPayload 记录请求参数。
type QuoteRequestPayload struct {
	Side       string          `json:"side"`
	MakerToken string          `json:"makerToken"`
	TakerToken string          `json:"takerToken"`
	Amount     decimal.Decimal `json:"amount"`
	Orders     int             `json:"orders"`
}

// RouteResultPayload 记录路由结果摘要。
type RouteResultPayload struct {
	Side           string          `json:"side"`
	Amount         decimal.Decimal `json:"amount"`
	Input          decimal.Decimal `json:"input"`
	Output         decimal.Decimal `json:"output"`
	AdjustedOutput decimal.Decimal `json:"adjustedOutput"`
	Visits         int             `json:"visits"`
	ImprovedOnSeed bool            `json:"improvedOnSeed"`
	Sources        []string        `json:"sources"`
	TradeOrders    int             `json:"tradeOrders"`
}

// RouteErrorPayload 记录失败的路由。
type RouteErrorPayload struct {
	Side    string                 `json:"side"`
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
