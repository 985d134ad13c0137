package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"swap-router/internal/router"
	"swap-router/internal/store"
)

var migrations = []store.Migration{
	{
		Name: "001_route_events",
		SQL: `
CREATE TABLE IF NOT EXISTS route_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	quote_id TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_route_events_type ON route_events(event_type);
CREATE INDEX IF NOT EXISTS idx_route_events_quote ON route_events(quote_id);
`,
	},
}

// Service 负责持久化路由事件。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService 初始化事件日志，执行建表迁移。
func NewService(ctx context.Context, st *store.Store, logger *zap.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := st.Migrate(ctx, migrations...); err != nil {
		return nil, fmt.Errorf("monitor: 初始化表失败: %w", err)
	}
	return &Service{
		db:     st.DB(),
		logger: logger,
	}, nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO route_events (event_type, quote_id, payload, created_at) VALUES (?, ?, ?, ?)`,
		string(event.Type), event.QuoteID, string(payload), event.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}
	return nil
}

// RecordRequest 记录一次路由请求。
func (s *Service) RecordRequest(ctx context.Context, side string, req router.Request) {
	if err := s.Record(ctx, Event{
		Type: EventQuoteRequest,
		Payload: QuoteRequestPayload{
			Side:       side,
			MakerToken: req.MakerToken.Hex(),
			TakerToken: req.TakerToken.Hex(),
			Amount:     req.Amount,
			Orders:     len(req.Orders),
		},
	}); err != nil {
		s.logger.Warn("记录请求事件失败", zap.Error(err))
	}
}

// RecordQuote 记录路由结果。
func (s *Service) RecordQuote(ctx context.Context, q *router.Quote) {
	sources := make([]string, 0, len(q.Sources))
	for _, src := range q.Sources {
		sources = append(sources, src.String())
	}
	if err := s.Record(ctx, Event{
		Type:    EventRouteResult,
		QuoteID: q.ID.String(),
		Payload: RouteResultPayload{
			Side:           q.Side.String(),
			Amount:         q.Amount,
			Input:          q.Input,
			Output:         q.Output,
			AdjustedOutput: q.AdjustedOutput,
			Visits:         q.Visits,
			ImprovedOnSeed: q.ImprovedOnSeed,
			Sources:        sources,
			TradeOrders:    len(q.Orders),
		},
	}); err != nil {
		s.logger.Warn("记录路由结果失败", zap.Error(err))
	}
}

// RecordError 记录失败的路由。
func (s *Service) RecordError(ctx context.Context, side, msg string, err error, ctxMap map[string]interface{}) {
	payload := RouteErrorPayload{
		Side:    side,
		Message: msg,
		Error:   err.Error(),
		Context: ctxMap,
	}
	if recErr := s.Record(ctx, Event{
		Type:    EventRouteError,
		Payload: payload,
	}); recErr != nil {
		s.logger.Warn("记录路由异常失败", zap.Error(recErr))
	}
}

// ListEvents 按类型检索最近事件，quoteID 非空时只返回该报价的事件。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, quoteID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT event_type, quote_id, payload, created_at FROM route_events WHERE 1 = 1`
	args := make([]interface{}, 0, 3)
	if eventType != "" {
		query += ` AND event_type = ?`
		args = append(args, string(eventType))
	}
	if quoteID != "" {
		query += ` AND quote_id = ?`
		args = append(args, quoteID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			typ     string
			quote   string
			payload string
			created string
		)
		if scanErr := rows.Scan(&typ, &quote, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339Nano, created)
		if parseErr != nil {
			ts = time.Now().UTC()
		}

		events = append(events, Event{
			Type:      EventType(typ),
			Timestamp: ts,
			QuoteID:   quote,
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
	}
	return events, nil
}
