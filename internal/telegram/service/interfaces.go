package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"vaultbot/internal/telegram/models"
)

// 业务层错误，供 handler 区分用户可见的拒绝和基础设施故障
var (
	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionRevoked 会话已撤销
	ErrSessionRevoked = errors.New("session revoked")
	// ErrInvalidTimerRange 自动删除时长超出 0-168 小时
	ErrInvalidTimerRange = errors.New("auto delete hours out of range")
	// ErrChannelLimit 频道数量超出上限
	ErrChannelLimit = errors.New("channel limit reached")
)

// DeliveryState 投递结果状态
type DeliveryState string

const (
	// DeliveryStateDelivered 内容已投递
	DeliveryStateDelivered DeliveryState = "delivered"
	// DeliveryStateGateBlocked 用户未加入全部强制频道
	DeliveryStateGateBlocked DeliveryState = "gate_blocked"
	// DeliveryStateGateUnverified 存在无法验证的强制频道
	DeliveryStateGateUnverified DeliveryState = "gate_unverified"
)

// UserService 用户业务逻辑接口
type UserService interface {
	// TrackUser 记录或刷新用户信息与活跃时间
	TrackUser(ctx context.Context, info *TelegramUserInfo) error

	// Stats 统计用户、会话与文件数量
	Stats(ctx context.Context) (*VaultStats, error)
}

// SettingsService 面板文案、配图与频道列表配置接口
type SettingsService interface {
	// StartContent 返回 /start 文案与配图
	StartContent(ctx context.Context) (*PanelContent, error)

	// HelpContent 返回 /help 文案与配图
	HelpContent(ctx context.Context) (*PanelContent, error)

	// SetText 设置 start 或 help 文案
	SetText(ctx context.Context, target, text string) error

	// SetImage 设置 start 或 help 配图
	SetImage(ctx context.Context, target, fileID string) error

	// OptionalChannels 返回推荐频道列表
	OptionalChannels(ctx context.Context) ([]models.ChannelRef, error)

	// AddOptionalChannel 追加推荐频道，最多 4 个
	AddOptionalChannel(ctx context.Context, ref models.ChannelRef) error

	// ClearOptionalChannels 清空推荐频道
	ClearOptionalChannels(ctx context.Context) error

	// ForceChannels 返回强制加入频道列表
	ForceChannels(ctx context.Context) ([]models.ChannelRef, error)

	// AddForceChannel 追加强制频道，最多 3 个
	AddForceChannel(ctx context.Context, ref models.ChannelRef) error

	// ClearForceChannels 清空强制频道
	ClearForceChannels(ctx context.Context) error

	// RecordBotUsername 保存机器人用户名
	RecordBotUsername(ctx context.Context, username string) error

	// EnsureDefaults 补齐缺失的默认文案
	EnsureDefaults(ctx context.Context) error
}

// SessionService 会话生命周期管理接口
type SessionService interface {
	// ListRecent 按创建时间倒序列出会话
	ListRecent(ctx context.Context, limit int) ([]*models.Session, error)

	// Revoke 撤销会话，深链接立即失效
	Revoke(ctx context.Context, sessionID int64) error

	// Delete 删除会话及其文件记录
	Delete(ctx context.Context, sessionID int64) error
}

// GateService 强制频道门禁接口
type GateService interface {
	// CheckAccess 校验用户是否已加入全部强制频道
	CheckAccess(ctx context.Context, userID int64) (*GateResult, error)
}

// DeliveryService 会话投递接口
type DeliveryService interface {
	// RequestDelivery 处理深链接请求：门禁通过后按顺序回放会话文件
	RequestDelivery(ctx context.Context, sessionID, requesterID, requesterChatID int64) (*DeliveryResult, error)
}

// UploadService 上传定稿接口
type UploadService interface {
	// FinalizeUpload 把收集的内容写入仓库频道并生成深链接
	FinalizeUpload(ctx context.Context, input *FinalizeInput) (*FinalizeResult, error)
}

// BroadcastService 广播接口
type BroadcastService interface {
	// Broadcast 把指定消息复制给全部用户
	Broadcast(ctx context.Context, srcChatID int64, srcMessageID int) (*BroadcastReport, error)
}

// DeleteScheduler 延时删除注册接口
type DeleteScheduler interface {
	Schedule(ctx context.Context, sessionID, targetChatID int64, messageIDs []int, runAt time.Time) error
}

// SnapshotBackup 数据库快照触发接口
type SnapshotBackup interface {
	Backup(ctx context.Context) error
}

// TelegramUserInfo Telegram 用户信息 DTO
type TelegramUserInfo struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// VaultStats 统计数据
type VaultStats struct {
	TotalUsers    int64
	ActiveUsers   int64 // 近 48 小时活跃
	TotalFiles    int64
	TotalSessions int64
}

// PanelContent 面板内容
type PanelContent struct {
	Text        string
	ImageFileID string
}

// GateResult 门禁检查结果
type GateResult struct {
	Missing    []models.ChannelRef // 用户未加入的强制频道
	Unverified []models.ChannelRef // 无法验证的强制频道
}

// Passed 是否放行
func (r *GateResult) Passed() bool {
	return len(r.Missing) == 0 && len(r.Unverified) == 0
}

// DeliveryResult 投递结果
type DeliveryResult struct {
	State       DeliveryState
	Delivered   int
	Total       int
	DeleteAfter time.Duration // 0 表示未注册自动删除
	Gate        *GateResult   // 门禁未通过时携带
}

// FinalizeInput 上传定稿输入
type FinalizeInput struct {
	OwnerID         int64
	OperatorChatID  int64 // 普通内容回放时的复制来源
	Items           []models.UploadItem
	Protect         bool
	AutoDeleteHours float64
	Title           string
}

// FinalizeResult 上传定稿结果
type FinalizeResult struct {
	SessionID int64
	DeepLink  string
	Stored    int
	Total     int
}

// BroadcastReport 广播结果
type BroadcastReport struct {
	Total  int
	Sent   int
	Failed int
}
