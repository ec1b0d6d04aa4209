// Package backup 将 SQLite 数据库快照上传到备份频道置顶，
// 本地数据库缺失时从置顶快照恢复
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"vaultbot/internal/logger"
	"vaultbot/internal/sqlite"
	"vaultbot/internal/telegram/transport"
)

// ErrLocalStoreMissing 本地数据库文件不存在
var ErrLocalStoreMissing = errors.New("local database file missing")

// Manager 数据库快照管理器
type Manager struct {
	gateway   transport.Gateway
	channelID int64
	dbPath    string

	mu    sync.Mutex
	store *sqlite.Client
}

// NewManager 创建快照管理器。
// store 在数据库打开后通过 AttachStore 挂载
func NewManager(gateway transport.Gateway, channelID int64, dbPath string) *Manager {
	return &Manager{
		gateway:   gateway,
		channelID: channelID,
		dbPath:    dbPath,
	}
}

// AttachStore 挂载已打开的数据库句柄，供备份前 checkpoint 和恢复后重开使用
func (m *Manager) AttachStore(store *sqlite.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = store
}

func (m *Manager) attachedStore() *sqlite.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store
}

// Backup 上传当前数据库文件到备份频道并置顶
func (m *Manager) Backup(ctx context.Context) error {
	if m.channelID == 0 {
		return fmt.Errorf("backup channel not configured")
	}
	if _, err := os.Stat(m.dbPath); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrLocalStoreMissing, "path %s", m.dbPath)
		}
		return fmt.Errorf("failed to stat database file: %w", err)
	}

	// 把 WAL 内容并入主文件，保证上传的单文件是完整快照
	if store := m.attachedStore(); store != nil {
		if err := store.Checkpoint(ctx); err != nil {
			logger.L().Warnf("WAL checkpoint before backup failed: %v", err)
		}
	}

	f, err := os.Open(m.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database for backup: %w", err)
	}
	defer f.Close()

	caption := fmt.Sprintf("DB backup %s", time.Now().UTC().Format(time.RFC3339))
	msgID, err := m.gateway.UploadDocument(ctx, m.channelID, filepath.Base(m.dbPath), f, caption)
	if err != nil {
		return fmt.Errorf("failed to upload database snapshot: %w", err)
	}

	if err := m.gateway.Pin(ctx, m.channelID, msgID); err != nil {
		logger.L().Errorf("Failed to pin database snapshot: %v", err)
	}

	logger.L().Infof("Database snapshot uploaded: message_id=%d", msgID)
	return nil
}

// Restore 从备份频道的置顶快照恢复数据库。
// 本地已有非空数据库文件时不做任何事，返回是否执行了恢复
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	if info, err := os.Stat(m.dbPath); err == nil && info.Size() > 0 {
		logger.L().Info("Local database present, skipping restore")
		return false, nil
	}

	fileID, err := m.gateway.PinnedDocumentFileID(ctx, m.channelID)
	if err != nil {
		return false, fmt.Errorf("failed to inspect backup channel: %w", err)
	}
	if fileID == "" {
		logger.L().Warn("No pinned snapshot in backup channel, starting with empty database")
		return false, nil
	}

	body, err := m.gateway.DownloadDocument(ctx, fileID)
	if err != nil {
		return false, fmt.Errorf("failed to download snapshot: %w", err)
	}
	defer body.Close()

	// 临时文件放在同一目录，保证 rename 原子生效
	dir := filepath.Dir(m.dbPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(m.dbPath)+".restore-*")
	if err != nil {
		return false, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return false, fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("failed to finalize snapshot file: %w", err)
	}

	if err := os.Rename(tmpPath, m.dbPath); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	// 旧的 WAL 附属文件属于被替换前的数据库
	os.Remove(m.dbPath + "-wal")
	os.Remove(m.dbPath + "-shm")

	if store := m.attachedStore(); store != nil {
		if err := store.Reopen(); err != nil {
			return true, fmt.Errorf("failed to reopen database after restore: %w", err)
		}
	}

	logger.L().Info("Database restored from pinned snapshot")
	return true, nil
}
