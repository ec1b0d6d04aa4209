package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"
	"github.com/pkg/errors"

	"vaultbot/internal/logger"
	"vaultbot/internal/telegram/models"
	"vaultbot/internal/telegram/service"
)

// registerHandlers 注册所有命令处理器（经工作池异步执行）
func (b *Bot) registerHandlers() {
	// 用户命令
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix,
		b.asyncHandler(b.handleStart))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact,
		b.asyncHandler(b.handleHelp))

	// 操作者命令（仅 Owner）
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/upload", bot.MatchTypePrefix,
		b.asyncHandler(b.RequireOwner(b.handleUploadBegin)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/d", bot.MatchTypeExact,
		b.asyncHandler(b.RequireOwner(b.handleUploadFinalize)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/e", bot.MatchTypeExact,
		b.asyncHandler(b.RequireOwner(b.handleUploadCancel)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/setmessage", bot.MatchTypePrefix,
		b.asyncHandler(b.RequireOwner(b.handleSetMessage)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/setimage", bot.MatchTypePrefix,
		b.asyncHandler(b.RequireOwner(b.handleSetImage)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/setchannel", bot.MatchTypePrefix,
		b.asyncHandler(b.RequireOwner(b.handleSetChannel)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/setforcechannel", bot.MatchTypePrefix,
		b.asyncHandler(b.RequireOwner(b.handleSetForceChannel)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/adminp", bot.MatchTypeExact,
		b.asyncHandler(b.RequireOwner(b.handleAdminPanel)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypeExact,
		b.asyncHandler(b.RequireOwner(b.handleStats)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/list_sessions", bot.MatchTypeExact,
		b.asyncHandler(b.RequireOwner(b.handleListSessions)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/revoke", bot.MatchTypePrefix,
		b.asyncHandler(b.RequireOwner(b.handleRevoke)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/del_session", bot.MatchTypePrefix,
		b.asyncHandler(b.RequireOwner(b.handleDeleteSession)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/broadcast", bot.MatchTypeExact,
		b.asyncHandler(b.RequireOwner(b.handleBroadcast)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/backup_db", bot.MatchTypeExact,
		b.asyncHandler(b.RequireOwner(b.handleBackupDB)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/restore_db", bot.MatchTypeExact,
		b.asyncHandler(b.RequireOwner(b.handleRestoreDB)))

	// 按钮回调统一入口
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix,
		b.asyncHandler(b.handleCallback))

	logger.L().Debug("All handlers registered with async execution")
}

// handleStart 处理 /start 命令
// 带会话 ID 时走领取流程，不带参数时展示欢迎面板
func (b *Bot) handleStart(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	from := update.Message.From
	chatID := update.Message.Chat.ID
	b.trackSender(ctx, from)

	fields := strings.Fields(update.Message.Text)
	if len(fields) >= 2 {
		sessionID, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			b.sendErrorMessage(ctx, chatID, "无效的会话链接")
			return
		}
		b.deliverSession(ctx, chatID, from.ID, sessionID)
		return
	}

	content, err := b.services.Settings.StartContent(ctx)
	if err != nil {
		logger.L().Errorf("Failed to load start content: %v", err)
		b.sendErrorMessage(ctx, chatID, "加载欢迎信息失败，请稍后重试")
		return
	}

	channels, err := b.services.Settings.OptionalChannels(ctx)
	if err != nil {
		logger.L().Errorf("Failed to load optional channels: %v", err)
	}

	b.sendPanel(ctx, chatID, content, from, channelKeyboard(channels, 0))
}

// handleHelp 处理 /help 命令
func (b *Bot) handleHelp(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	b.trackSender(ctx, update.Message.From)

	content, err := b.services.Settings.HelpContent(ctx)
	if err != nil {
		logger.L().Errorf("Failed to load help content: %v", err)
		b.sendErrorMessage(ctx, update.Message.Chat.ID, "加载帮助信息失败，请稍后重试")
		return
	}

	b.sendPanel(ctx, update.Message.Chat.ID, content, update.Message.From, nil)
}

// handleDefault 捕获所有未匹配命令的消息。
// 普通用户的消息只用于刷新资料；操作者私聊消息按上传阶段分流
func (b *Bot) handleDefault(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	b.trackSender(ctx, msg.From)

	if msg.From.ID != b.cfg.OwnerID || msg.Chat.Type != "private" {
		return
	}

	switch b.tracker.Phase() {
	case phaseCollecting:
		item, ok := uploadItemFromMessage(msg)
		if !ok {
			return
		}
		if count, accepted := b.tracker.Append(item); accepted {
			b.sendMessage(ctx, msg.Chat.ID, fmt.Sprintf("已收录第 %d 条内容", count), msg.ID)
		}
	case phaseAwaitingTimer:
		b.finishUploadWithTimer(ctx, msg)
	}
}

// trackSender 刷新消息发送者的资料与活跃时间
func (b *Bot) trackSender(ctx context.Context, from *botModels.User) {
	info := &service.TelegramUserInfo{
		TelegramID: from.ID,
		Username:   from.Username,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
	}
	if err := b.services.Users.TrackUser(ctx, info); err != nil {
		logger.L().Errorf("Failed to track user %d: %v", from.ID, err)
	}
}

// deliverSession 执行领取流程，/start 深链接与重试按钮共用
func (b *Bot) deliverSession(ctx context.Context, chatID, userID, sessionID int64) {
	result, err := b.services.Delivery.RequestDelivery(ctx, sessionID, userID, chatID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			b.sendErrorMessage(ctx, chatID, "会话不存在或链接已失效")
		case errors.Is(err, service.ErrSessionRevoked):
			b.sendErrorMessage(ctx, chatID, "该会话已被撤销")
		default:
			logger.L().Errorf("Delivery failed: session_id=%d, user_id=%d, err=%v", sessionID, userID, err)
			b.sendErrorMessage(ctx, chatID, "领取失败，请稍后重试")
		}
		return
	}

	if result.State != service.DeliveryStateDelivered {
		b.sendGatePrompt(ctx, chatID, sessionID, result.Gate)
		return
	}

	if result.Delivered < result.Total {
		b.sendMessage(ctx, chatID, fmt.Sprintf("⚠️ 部分内容发送失败（%d/%d），请稍后重试或联系管理员",
			result.Delivered, result.Total))
	}
	if result.DeleteAfter > 0 {
		b.sendMessage(ctx, chatID, fmt.Sprintf("⏳ 以上内容将在 %s 后自动删除", formatDuration(result.DeleteAfter)))
	}
	b.sendSuccessMessage(ctx, chatID, "领取完成")
}

// sendGatePrompt 发送门禁提示：要求加入的频道按钮加一个重试按钮
func (b *Bot) sendGatePrompt(ctx context.Context, chatID, sessionID int64, gate *service.GateResult) {
	var sb strings.Builder
	if len(gate.Missing) > 0 {
		sb.WriteString("⚠️ 领取前请先加入以下频道：\n")
		for _, ch := range gate.Missing {
			sb.WriteString("• " + ch.Name + "\n")
		}
	}
	if len(gate.Unverified) > 0 {
		sb.WriteString("以下频道暂时无法验证，请稍后重试：\n")
		for _, ch := range gate.Unverified {
			sb.WriteString("• " + ch.Name + "\n")
		}
	}
	sb.WriteString("\n加入后点击下方按钮重新领取")

	keyboard := channelKeyboard(gate.Missing, sessionID)
	if _, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        sb.String(),
		ParseMode:   botModels.ParseModeHTML,
		ReplyMarkup: keyboard,
	}); err != nil {
		logger.L().Errorf("Failed to send gate prompt to chat %d: %v", chatID, err)
	}
}

// sendPanel 发送文案面板，配图存在时作为图片说明发送
func (b *Bot) sendPanel(ctx context.Context, chatID int64, content *service.PanelContent, user *botModels.User, keyboard *botModels.InlineKeyboardMarkup) {
	text := renderPlaceholders(content.Text, user)

	if content.ImageFileID != "" {
		_, err := b.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      chatID,
			Photo:       &botModels.InputFileString{Data: content.ImageFileID},
			Caption:     text,
			ParseMode:   botModels.ParseModeHTML,
			ReplyMarkup: keyboard,
		})
		if err == nil {
			return
		}
		// 配图失效时退回纯文本
		logger.L().Warnf("Failed to send panel image to chat %d: %v", chatID, err)
	}

	if _, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   botModels.ParseModeHTML,
		ReplyMarkup: keyboard,
	}); err != nil {
		logger.L().Errorf("Failed to send panel to chat %d: %v", chatID, err)
	}
}

// renderPlaceholders 替换文案中的用户占位符
func renderPlaceholders(text string, user *botModels.User) string {
	username := user.Username
	if username == "" {
		username = user.FirstName
	}
	text = strings.ReplaceAll(text, "{username}", username)
	text = strings.ReplaceAll(text, "{first_name}", user.FirstName)
	return text
}

// channelKeyboard 构建频道跳转按钮。
// sessionID 非零时追加重试按钮；没有可点击链接的频道不出按钮
func channelKeyboard(channels []models.ChannelRef, sessionID int64) *botModels.InlineKeyboardMarkup {
	var rows [][]botModels.InlineKeyboardButton
	for _, ch := range channels {
		if ch.Link == "" {
			continue
		}
		rows = append(rows, []botModels.InlineKeyboardButton{
			{Text: "📢 " + ch.Name, URL: ch.Link},
		})
	}

	if sessionID > 0 {
		retry := models.CallbackCommand{Kind: models.CallbackRetry, SessionID: sessionID}
		rows = append(rows, []botModels.InlineKeyboardButton{
			{Text: "✅ 我已加入，重新领取", CallbackData: retry.Encode()},
		})
	}

	if len(rows) == 0 {
		return nil
	}
	return &botModels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// uploadItemFromMessage 从消息中提取待收录内容。
// 相册里每张图片是独立消息，photo 数组取最大尺寸；命令消息不收录
func uploadItemFromMessage(msg *botModels.Message) (models.UploadItem, bool) {
	switch {
	case len(msg.Photo) > 0:
		largest := msg.Photo[len(msg.Photo)-1]
		return models.UploadItem{Kind: models.FileKindPhoto, FileID: largest.FileID, Caption: msg.Caption}, true
	case msg.Video != nil:
		return models.UploadItem{Kind: models.FileKindVideo, FileID: msg.Video.FileID, Caption: msg.Caption}, true
	case msg.Document != nil:
		return models.UploadItem{Kind: models.FileKindDocument, FileID: msg.Document.FileID, Caption: msg.Caption}, true
	case msg.Audio != nil:
		return models.UploadItem{Kind: models.FileKindAudio, FileID: msg.Audio.FileID, Caption: msg.Caption}, true
	case msg.Voice != nil:
		return models.UploadItem{Kind: models.FileKindVoice, FileID: msg.Voice.FileID, Caption: msg.Caption}, true
	case msg.Sticker != nil:
		return models.UploadItem{Kind: models.FileKindSticker, FileID: msg.Sticker.FileID}, true
	case msg.Text != "":
		if strings.HasPrefix(msg.Text, "/") {
			return models.UploadItem{}, false
		}
		return models.UploadItem{Kind: models.FileKindText, Caption: msg.Text}, true
	default:
		return models.UploadItem{
			Kind:         models.FileKindOther,
			SourceChatID: msg.Chat.ID,
			SourceMsgID:  msg.ID,
		}, true
	}
}
