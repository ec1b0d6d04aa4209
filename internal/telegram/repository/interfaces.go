package repository

import (
	"context"

	"github.com/pkg/errors"

	"vaultbot/internal/telegram/models"
)

// ErrNotFound 目标记录不存在
var ErrNotFound = errors.New("record not found")

// UserRepository 用户数据访问接口
type UserRepository interface {
	// CreateOrUpdate 创建或更新用户（刷新最后活跃时间）
	CreateOrUpdate(ctx context.Context, user *models.User) error

	// GetByID 根据 Telegram ID 获取用户
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// ListIDs 列出全部用户 ID（广播目标）
	ListIDs(ctx context.Context) ([]int64, error)

	// CountAll 用户总数
	CountAll(ctx context.Context) (int64, error)

	// CountActiveSince 指定时间之后活跃过的用户数
	CountActiveSince(ctx context.Context, since int64) (int64, error)
}

// SessionRepository 会话数据访问接口
type SessionRepository interface {
	// Create 创建会话，返回新会话 ID
	Create(ctx context.Context, session *models.Session) (int64, error)

	// GetByID 根据 ID 获取会话
	GetByID(ctx context.Context, id int64) (*models.Session, error)

	// SetDeepLink 回填深链接（定稿时一次性写入）
	SetDeepLink(ctx context.Context, id int64, deepLink string) error

	// Revoke 撤销会话
	Revoke(ctx context.Context, id int64) error

	// Delete 物理删除会话（文件随之级联删除）
	Delete(ctx context.Context, id int64) error

	// ListRecent 按创建时间倒序列出会话
	ListRecent(ctx context.Context, limit int) ([]*models.Session, error)

	// CountAll 会话总数
	CountAll(ctx context.Context) (int64, error)
}

// FileRepository 文件数据访问接口
type FileRepository interface {
	// Create 写入一条文件记录
	Create(ctx context.Context, file *models.File) error

	// ListBySession 按 position 顺序列出会话的全部文件
	ListBySession(ctx context.Context, sessionID int64) ([]*models.File, error)

	// CountAll 文件总数
	CountAll(ctx context.Context) (int64, error)
}

// DeleteJobRepository 延迟删除任务数据访问接口
type DeleteJobRepository interface {
	// Create 持久化任务，返回任务 ID
	Create(ctx context.Context, job *models.DeleteJob) (int64, error)

	// GetByID 根据 ID 获取任务
	GetByID(ctx context.Context, id int64) (*models.DeleteJob, error)

	// ListScheduled 列出所有待执行任务（启动恢复用）
	ListScheduled(ctx context.Context) ([]*models.DeleteJob, error)

	// MarkDone 标记任务已执行
	MarkDone(ctx context.Context, id int64) error
}

// SettingRepository 配置数据访问接口
type SettingRepository interface {
	// Get 读取配置值，不存在时返回空串
	Get(ctx context.Context, key string) (string, error)

	// Set 写入配置值（last write wins）
	Set(ctx context.Context, key, value string) error
}
