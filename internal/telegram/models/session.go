package models

import "fmt"

// FileKind 文件类型标签（封闭集合）
type FileKind string

const (
	FileKindText     FileKind = "text"
	FileKindPhoto    FileKind = "photo"
	FileKindVideo    FileKind = "video"
	FileKindDocument FileKind = "document"
	FileKindAudio    FileKind = "audio"
	FileKindVoice    FileKind = "voice"
	FileKindSticker  FileKind = "sticker"
	FileKindOther    FileKind = "other"
)

// Session 一次上传定稿后产生的内容会话
// 只在上传定稿时创建一次；之后仅有 revoke 和 deep_link 回填两种修改
type Session struct {
	ID                int64  `db:"id"`                  // 会话 ID，同时是深链接 token
	OwnerID           int64  `db:"owner_id"`            // 上传者用户 ID
	CreatedAt         int64  `db:"created_at"`          // 创建时间（Unix 秒）
	Protect           bool   `db:"protect"`             // 是否禁止非 Owner 转发/下载
	AutoDeleteSeconds int64  `db:"auto_delete_seconds"` // 投递后自动删除延迟（0 = 关闭）
	Title             string `db:"title"`               // 标题
	Revoked           bool   `db:"revoked"`             // 是否已撤销
	HeaderChatID      int64  `db:"header_chat_id"`      // 仓库频道中头部消息所在聊天
	HeaderMsgID       int    `db:"header_msg_id"`       // 仓库频道中头部消息 ID
	DeepLink          string `db:"deep_link"`           // 分发用深链接
}

// File 会话中的一条内容
// 归属唯一会话，随会话级联删除；position 从 0 起连续递增
type File struct {
	ID         int64    `db:"id"`
	SessionID  int64    `db:"session_id"`   // 所属会话
	Position   int      `db:"position"`     // 投递顺序（稠密，0..n-1）
	FileType   FileKind `db:"file_type"`    // 类型标签
	FileID     string   `db:"file_id"`      // Telegram 文件引用
	Caption    string   `db:"caption"`      // 说明文字（text 类型时为正文）
	VaultMsgID int      `db:"vault_msg_id"` // 仓库频道中副本的消息 ID（投递来源）
}

// BuildDeepLink 构造会话的深链接
func BuildDeepLink(botUsername string, sessionID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", botUsername, sessionID)
}
