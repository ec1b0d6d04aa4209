package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"
	"github.com/patrickmn/go-cache"

	"vaultbot/internal/logger"
	"vaultbot/internal/telegram/models"
)

const (
	resolveCacheTTL     = 10 * time.Minute
	resolveCacheCleanup = 20 * time.Minute
)

// BotGateway Gateway 的 go-telegram/bot 实现
type BotGateway struct {
	b          *bot.Bot
	chats      *cache.Cache
	httpClient *http.Client

	mu       sync.Mutex
	username string
}

// New 创建传输层网关
func New(b *bot.Bot) *BotGateway {
	return &BotGateway{
		b:          b,
		chats:      cache.New(resolveCacheTTL, resolveCacheCleanup),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// SendText 发送文本消息
func (g *BotGateway) SendText(ctx context.Context, chatID int64, text string, protect bool) (int, error) {
	msg, err := g.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:         chatID,
		Text:           text,
		ParseMode:      botModels.ParseModeHTML,
		ProtectContent: protect,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return msg.ID, nil
}

// CopyMessage 复制消息到目标会话
func (g *BotGateway) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, caption string, protect bool) (int, error) {
	copied, err := g.b.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:         toChatID,
		FromChatID:     fromChatID,
		MessageID:      messageID,
		Caption:        caption,
		ProtectContent: protect,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to copy message %d to %d: %w", messageID, toChatID, err)
	}
	return copied.ID, nil
}

// SendByFileID 按已存储的 file_id 重新发送媒体
func (g *BotGateway) SendByFileID(ctx context.Context, chatID int64, kind models.FileKind, fileID, caption string, protect bool) (int, error) {
	input := &botModels.InputFileString{Data: fileID}

	var msg *botModels.Message
	var err error
	switch kind {
	case models.FileKindPhoto:
		msg, err = g.b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:         chatID,
			Photo:          input,
			Caption:        caption,
			ProtectContent: protect,
		})
	case models.FileKindVideo:
		msg, err = g.b.SendVideo(ctx, &bot.SendVideoParams{
			ChatID:         chatID,
			Video:          input,
			Caption:        caption,
			ProtectContent: protect,
		})
	case models.FileKindDocument:
		msg, err = g.b.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:         chatID,
			Document:       input,
			Caption:        caption,
			ProtectContent: protect,
		})
	case models.FileKindAudio:
		msg, err = g.b.SendAudio(ctx, &bot.SendAudioParams{
			ChatID:         chatID,
			Audio:          input,
			Caption:        caption,
			ProtectContent: protect,
		})
	case models.FileKindVoice:
		msg, err = g.b.SendVoice(ctx, &bot.SendVoiceParams{
			ChatID:         chatID,
			Voice:          input,
			Caption:        caption,
			ProtectContent: protect,
		})
	case models.FileKindSticker:
		// sticker 不支持 caption
		msg, err = g.b.SendSticker(ctx, &bot.SendStickerParams{
			ChatID:         chatID,
			Sticker:        input,
			ProtectContent: protect,
		})
	default:
		return 0, fmt.Errorf("file kind %q cannot be sent by file_id", kind)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to send %s to %d: %w", kind, chatID, err)
	}
	return msg.ID, nil
}

// EditText 编辑已发送消息的文本
func (g *BotGateway) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	_, err := g.b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: botModels.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("failed to edit message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}

// DeleteMessage 删除消息
func (g *BotGateway) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := g.b.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	if err != nil {
		return fmt.Errorf("failed to delete message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}

// ResolveChat 将频道引用解析为 chat ID，成功结果缓存 10 分钟
func (g *BotGateway) ResolveChat(ctx context.Context, ref string) (int64, error) {
	id, username, err := normalizeChatRef(ref)
	if err != nil {
		return 0, err
	}
	if username == "" {
		return id, nil
	}

	if cached, found := g.chats.Get(username); found {
		return cached.(int64), nil
	}

	chat, err := g.b.GetChat(ctx, &bot.GetChatParams{ChatID: username})
	if err != nil {
		return 0, fmt.Errorf("failed to resolve chat %s: %w", username, err)
	}
	g.chats.Set(username, chat.ID, cache.DefaultExpiration)
	return chat.ID, nil
}

// GetMembership 查询用户在频道中的成员状态
func (g *BotGateway) GetMembership(ctx context.Context, chatRef string, userID int64) MemberStatus {
	chatID, err := g.ResolveChat(ctx, chatRef)
	if err != nil {
		logger.L().Warnf("Cannot resolve channel %s for membership check: %v", chatRef, err)
		return MemberStatusUnknown
	}

	member, err := g.b.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil {
		// Telegram 对不在频道内的用户返回 bad request
		if IsBadRequest(err) {
			return MemberStatusNotMember
		}
		logger.L().Warnf("Membership query failed for user %d in %s: %v", userID, chatRef, err)
		return MemberStatusUnknown
	}

	switch member.Type {
	case botModels.ChatMemberTypeOwner, botModels.ChatMemberTypeAdministrator, botModels.ChatMemberTypeMember:
		return MemberStatusMember
	case botModels.ChatMemberTypeRestricted:
		if member.Restricted != nil && member.Restricted.IsMember {
			return MemberStatusMember
		}
		return MemberStatusNotMember
	case botModels.ChatMemberTypeLeft, botModels.ChatMemberTypeBanned:
		return MemberStatusNotMember
	default:
		return MemberStatusUnknown
	}
}

// Pin 置顶消息
func (g *BotGateway) Pin(ctx context.Context, chatID int64, messageID int) error {
	_, err := g.b.PinChatMessage(ctx, &bot.PinChatMessageParams{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	})
	if err != nil {
		return fmt.Errorf("failed to pin message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}

// UploadDocument 以 document 形式上传文件
func (g *BotGateway) UploadDocument(ctx context.Context, chatID int64, filename string, data io.Reader, caption string) (int, error) {
	msg, err := g.b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &botModels.InputFileUpload{Filename: filename, Data: data},
		Caption:  caption,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload document to %d: %w", chatID, err)
	}
	return msg.ID, nil
}

// DownloadDocument 按 file_id 下载文件内容
func (g *BotGateway) DownloadDocument(ctx context.Context, fileID string) (io.ReadCloser, error) {
	file, err := g.b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", fileID, err)
	}

	link := g.b.FileDownloadLink(file)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download file %s: status %d", fileID, resp.StatusCode)
	}
	return resp.Body, nil
}

// PinnedDocumentFileID 返回频道置顶消息中 document 的 file_id
func (g *BotGateway) PinnedDocumentFileID(ctx context.Context, chatID int64) (string, error) {
	chat, err := g.b.GetChat(ctx, &bot.GetChatParams{ChatID: chatID})
	if err != nil {
		return "", fmt.Errorf("failed to get chat %d: %w", chatID, err)
	}
	if chat.PinnedMessage == nil || chat.PinnedMessage.Document == nil {
		return "", nil
	}
	return chat.PinnedMessage.Document.FileID, nil
}

// Username 返回机器人用户名，首次查询后缓存
func (g *BotGateway) Username(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.username != "" {
		return g.username, nil
	}

	me, err := g.b.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get bot info: %w", err)
	}
	g.username = me.Username
	return g.username, nil
}

// normalizeChatRef 规范化频道引用：数字 ID 直接解析，
// t.me 链接和 @name 统一为 @name 形式交给 API 解析
func normalizeChatRef(ref string) (int64, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, "", fmt.Errorf("empty chat reference")
	}

	if strings.HasPrefix(ref, "-") {
		id, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			return 0, "", fmt.Errorf("invalid numeric chat id %q: %w", ref, err)
		}
		return id, "", nil
	}

	for _, prefix := range []string{"https://t.me/", "http://t.me/", "t.me/"} {
		if strings.HasPrefix(ref, prefix) {
			name := strings.TrimPrefix(ref, prefix)
			name = strings.TrimSuffix(name, "/")
			if name == "" {
				return 0, "", fmt.Errorf("invalid channel link %q", ref)
			}
			return 0, "@" + name, nil
		}
	}

	// @name 或裸字符串都交给 API 原样解析
	return 0, ref, nil
}
