package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"swap-router/internal/config"
)

// Store 封装路由日志使用的 SQLite 连接。
type Store struct {
	db *sql.DB
}

// Migration 是一段按名称只执行一次的建表语句。
type Migration struct {
	Name string
	SQL  string
}

// NewSQLite 根据配置初始化 SQLite 存储。
func NewSQLite(cfg config.DatabaseConfig) (*Store, error) {
	dsn := cfg.Path
	maxOpen := cfg.MaxOpenConns
	if cfg.InMemory {
		// 每个连接都有独立的内存库，只能保留一个连接。
		dsn = ":memory:"
		maxOpen = 1
	} else {
		if err := ensureDir(filepath.Dir(cfg.Path)); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", dsn))
	if err != nil {
		return nil, fmt.Errorf("store: 打开 SQLite 数据库失败: %w", err)
	}

	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	if cfg.InMemory {
		conn.SetConnMaxLifetime(0)
	} else {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pragmas := []string{"PRAGMA synchronous=NORMAL;"}
	if !cfg.InMemory {
		pragmas = append([]string{"PRAGMA journal_mode=WAL;"}, pragmas...)
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("store: 执行 %q 失败: %w", pragma, err)
		}
	}

	s := &Store{db: conn}
	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
	name TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL
);`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("store: 初始化迁移表失败: %w", err)
	}
	return s, nil
}

// Migrate 在事务中依次执行尚未执行过的迁移。
func (s *Store) Migrate(ctx context.Context, migrations ...Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: 开启迁移事务失败: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range migrations {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE name = ?`, m.Name).Scan(&exists)
		if err != nil {
			return fmt.Errorf("store: 查询迁移 %s 失败: %w", m.Name, err)
		}
		if exists > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("store: 执行迁移 %s 失败: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`,
			m.Name, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("store: 记录迁移 %s 失败: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: 提交迁移失败: %w", err)
	}
	return nil
}

// Applied 返回已执行的迁移名称。
func (s *Store) Applied(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM schema_migrations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: 查询迁移失败: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: 解析迁移失败: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DB 返回底层 *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("store: 创建目录 %q 失败: %w", path, err)
	}
	return nil
}
