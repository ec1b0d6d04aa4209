package config

import (
	"fmt"
	"os"
	"strconv"
)

// 默认广播并发上限
const DefaultBroadcastConcurrency = 12

// Config 应用程序配置
type Config struct {
	BotToken             string // Telegram Bot API Token
	OwnerID              int64  // Bot 拥有者的用户 ID
	VaultChannelID       int64  // 内容仓库频道 ID（上传的文件持久保存在这里）
	BackupChannelID      int64  // 快照频道 ID（数据库备份置顶保存在这里）
	DBPath               string // SQLite 数据库文件路径
	Port                 int    // 健康检查 HTTP 端口
	BroadcastConcurrency int    // 广播并发上限
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{
		BotToken: os.Getenv("BOT_TOKEN"),
		DBPath:   os.Getenv("DB_PATH"),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "data/vault.db"
	}

	var err error
	if cfg.OwnerID, err = requireInt64("OWNER_ID"); err != nil {
		return nil, err
	}
	if cfg.VaultChannelID, err = requireInt64("VAULT_CHANNEL_ID"); err != nil {
		return nil, err
	}
	if cfg.BackupChannelID, err = requireInt64("BACKUP_CHANNEL_ID"); err != nil {
		return nil, err
	}

	// 解析 PORT（默认 8080）
	cfg.Port = 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid PORT: %s", portStr)
		}
		cfg.Port = port
	}

	// 解析 BROADCAST_CONCURRENCY（默认 12）
	cfg.BroadcastConcurrency = DefaultBroadcastConcurrency
	if concStr := os.Getenv("BROADCAST_CONCURRENCY"); concStr != "" {
		conc, err := strconv.Atoi(concStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse BROADCAST_CONCURRENCY: %w", err)
		}
		if conc < 1 {
			return nil, fmt.Errorf("BROADCAST_CONCURRENCY must be >= 1, got %d", conc)
		}
		cfg.BroadcastConcurrency = conc
	}

	return cfg, nil
}

// requireInt64 读取必填的 int64 环境变量
func requireInt64(name string) (int64, error) {
	s := os.Getenv(name)
	if s == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return v, nil
}
