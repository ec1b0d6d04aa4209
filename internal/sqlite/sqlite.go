package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Client 封装 SQLite 数据库句柄
// 备份/恢复需要对底层文件做整体替换，因此句柄支持 Reopen
type Client struct {
	mu   sync.Mutex
	db   *sqlx.DB
	path string
}

// Config 定义 SQLite 连接配置
type Config struct {
	Path string // 数据库文件路径，例如 "data/vault.db"
}

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY,
	username   TEXT,
	first_name TEXT,
	last_name  TEXT,
	last_seen  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id            INTEGER NOT NULL,
	created_at          INTEGER NOT NULL,
	protect             INTEGER NOT NULL DEFAULT 0,
	auto_delete_seconds INTEGER NOT NULL DEFAULT 0,
	title               TEXT,
	revoked             INTEGER NOT NULL DEFAULT 0,
	header_chat_id      INTEGER,
	header_msg_id       INTEGER,
	deep_link           TEXT
);

CREATE TABLE IF NOT EXISTS files (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	file_type    TEXT NOT NULL,
	file_id      TEXT,
	caption      TEXT,
	vault_msg_id INTEGER,
	UNIQUE(session_id, position)
);
CREATE INDEX IF NOT EXISTS idx_files_session ON files(session_id);

CREATE TABLE IF NOT EXISTS delete_jobs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id     INTEGER,
	target_chat_id INTEGER NOT NULL,
	message_ids    TEXT NOT NULL,
	run_at         INTEGER NOT NULL,
	created_at     INTEGER NOT NULL,
	status         TEXT NOT NULL DEFAULT 'scheduled'
);
CREATE INDEX IF NOT EXISTS idx_delete_jobs_status ON delete_jobs(status, run_at);
`

// NewClient 初始化 SQLite 客户端（建目录、连接、建表）
func NewClient(cfg Config) (*Client, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	c := &Client{path: cfg.Path}
	if err := c.open(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) open() error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL 模式提升并发读写；外键开启以保证文件随会话级联删除
	dsn := c.path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// 单写连接：每条语句原子可见，备份换文件时也不会有游离连接
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	c.mu.Lock()
	c.db = db
	c.mu.Unlock()
	return nil
}

// DB 返回当前数据库句柄
// 恢复备份后句柄会被替换，调用方不应长期缓存返回值
func (c *Client) DB() *sqlx.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db
}

// Path 返回数据库文件路径
func (c *Client) Path() string {
	return c.path
}

// Ping 验证数据库连接
func (c *Client) Ping(ctx context.Context) error {
	db := c.DB()
	if db == nil {
		return fmt.Errorf("sqlite client is not initialized")
	}
	return db.PingContext(ctx)
}

// Checkpoint 将 WAL 日志合并进主文件
// 上传备份前调用，保证单个文件就是完整数据库
func (c *Client) Checkpoint(ctx context.Context) error {
	db := c.DB()
	if db == nil {
		return fmt.Errorf("sqlite client is not initialized")
	}
	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint database: %w", err)
	}
	return nil
}

// Close 关闭数据库连接
func (c *Client) Close() error {
	c.mu.Lock()
	db := c.db
	c.db = nil
	c.mu.Unlock()

	if db == nil {
		return nil
	}
	return db.Close()
}

// Reopen 关闭当前句柄并重新打开数据库文件
// 文件被整体替换（恢复备份）后必须调用
func (c *Client) Reopen() error {
	if err := c.Close(); err != nil {
		return fmt.Errorf("failed to close database before reopen: %w", err)
	}
	return c.open()
}
