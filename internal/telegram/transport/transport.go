// Package transport 封装 Telegram Bot API 的发送、下载与成员查询能力，
// 业务层通过窄接口调用，便于在测试中替换
package transport

import (
	"context"
	"io"

	"vaultbot/internal/telegram/models"
)

// MemberStatus 频道成员检查结果
type MemberStatus string

const (
	// MemberStatusMember 用户已加入频道
	MemberStatusMember MemberStatus = "member"
	// MemberStatusNotMember 用户未加入频道
	MemberStatusNotMember MemberStatus = "not_member"
	// MemberStatusUnknown 无法确认成员状态（频道解析失败或查询出错）
	MemberStatusUnknown MemberStatus = "unknown"
)

// Gateway Telegram 传输层接口
type Gateway interface {
	// SendText 发送文本消息，返回消息 ID
	SendText(ctx context.Context, chatID int64, text string, protect bool) (int, error)

	// CopyMessage 复制消息到目标会话，返回新消息 ID
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, caption string, protect bool) (int, error)

	// SendByFileID 按已存储的 file_id 重新发送媒体，返回消息 ID
	SendByFileID(ctx context.Context, chatID int64, kind models.FileKind, fileID, caption string, protect bool) (int, error)

	// EditText 编辑已发送消息的文本
	EditText(ctx context.Context, chatID int64, messageID int, text string) error

	// DeleteMessage 删除消息
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error

	// ResolveChat 将频道引用（@name、t.me 链接或数字 ID）解析为 chat ID
	ResolveChat(ctx context.Context, ref string) (int64, error)

	// GetMembership 查询用户在频道中的成员状态
	GetMembership(ctx context.Context, chatRef string, userID int64) MemberStatus

	// Pin 置顶消息
	Pin(ctx context.Context, chatID int64, messageID int) error

	// UploadDocument 以 document 形式上传文件，返回消息 ID
	UploadDocument(ctx context.Context, chatID int64, filename string, data io.Reader, caption string) (int, error)

	// DownloadDocument 按 file_id 下载文件内容，调用方负责关闭 reader
	DownloadDocument(ctx context.Context, fileID string) (io.ReadCloser, error)

	// PinnedDocumentFileID 返回频道置顶消息中 document 的 file_id，没有则返回空串
	PinnedDocumentFileID(ctx context.Context, chatID int64) (string, error)

	// Username 返回机器人用户名
	Username(ctx context.Context) (string, error)
}
