package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"
	"github.com/pkg/errors"

	"vaultbot/internal/logger"
	"vaultbot/internal/telegram/models"
	"vaultbot/internal/telegram/service"
)

// handleUploadBegin 处理 /upload 命令，开始收集内容
func (b *Bot) handleUploadBegin(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if update.Message.Chat.Type != "private" {
		b.sendErrorMessage(ctx, chatID, "上传只能在私聊中进行")
		return
	}

	fields := strings.Fields(update.Message.Text)
	excludeText := len(fields) > 1 && fields[1] == "exclude_text"

	restarted := b.tracker.Begin(excludeText)

	var sb strings.Builder
	if restarted {
		sb.WriteString("之前未完成的上传已丢弃\n")
	}
	sb.WriteString("📦 上传会话开始，直接发送内容即可\n发送 /d 定稿，/e 取消")
	if excludeText {
		sb.WriteString("\n（纯文本消息不会被收录）")
	}
	b.sendMessage(ctx, chatID, sb.String())
}

// handleUploadFinalize 处理 /d 命令，开始定稿流程（先问保护选项）
func (b *Bot) handleUploadFinalize(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	count, err := b.tracker.RequestFinalize()
	switch {
	case errors.Is(err, errNoUpload):
		b.sendErrorMessage(ctx, chatID, "没有进行中的上传会话，先发送 /upload")
		return
	case errors.Is(err, errEmptyUpload):
		b.sendErrorMessage(ctx, chatID, "还没有收录任何内容")
		return
	case err != nil:
		logger.L().Errorf("Failed to start finalize: %v", err)
		return
	}

	keyboard := &botModels.InlineKeyboardMarkup{
		InlineKeyboard: [][]botModels.InlineKeyboardButton{
			{
				{Text: "🔒 保护内容", CallbackData: models.CallbackCommand{Kind: models.CallbackProtect, Confirm: true}.Encode()},
				{Text: "🔓 不保护", CallbackData: models.CallbackCommand{Kind: models.CallbackProtect}.Encode()},
			},
		},
	}

	_, err = botInstance.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        fmt.Sprintf("共 %d 条内容待定稿\n是否禁止转发和保存（领取者无法转发内容）？", count),
		ReplyMarkup: keyboard,
	})
	if err != nil {
		logger.L().Errorf("Failed to send protect prompt: %v", err)
	}
}

// handleUploadCancel 处理 /e 命令，丢弃当前上传会话
func (b *Bot) handleUploadCancel(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}

	if b.tracker.Clear() {
		b.sendSuccessMessage(ctx, update.Message.Chat.ID, "上传会话已取消")
	} else {
		b.sendErrorMessage(ctx, update.Message.Chat.ID, "没有进行中的上传会话")
	}
}

// finishUploadWithTimer 用操作者回复的小时数完成定稿
func (b *Bot) finishUploadWithTimer(ctx context.Context, msg *botModels.Message) {
	chatID := msg.Chat.ID

	hours, err := strconv.ParseFloat(strings.TrimSpace(msg.Text), 64)
	if err != nil {
		b.sendErrorMessage(ctx, chatID, "请输入 0 到 168 之间的小时数（0 表示不自动删除）")
		return
	}

	pending, err := b.tracker.Pending()
	if err != nil {
		// 状态在并发操作中改变了，让操作者重新开始
		b.sendErrorMessage(ctx, chatID, "上传状态已变化，请重新发送 /d")
		return
	}

	result, err := b.services.Uploads.FinalizeUpload(ctx, &service.FinalizeInput{
		OwnerID:         b.cfg.OwnerID,
		OperatorChatID:  chatID,
		Items:           pending.Items,
		Protect:         pending.Protect,
		AutoDeleteHours: hours,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidTimerRange) {
			b.sendErrorMessage(ctx, chatID, "小时数超出范围（0-168），请重新输入")
			return
		}
		// 状态保留，操作者可以重发时长重试，或 /e 放弃
		logger.L().Errorf("Finalize failed: %v", err)
		b.sendErrorMessage(ctx, chatID, "定稿失败，请重试或发送 /e 放弃")
		return
	}

	b.tracker.Clear()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("定稿完成（%d/%d 条）\n%s", result.Stored, result.Total, result.DeepLink))
	if result.Stored < result.Total {
		sb.WriteString("\n⚠️ 部分内容写入仓库失败，已跳过")
	}
	b.sendSuccessMessage(ctx, chatID, sb.String())
}

// handleSetMessage 处理 /setmessage 命令：/setmessage start|help <文案>
func (b *Bot) handleSetMessage(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.SplitN(update.Message.Text, " ", 3)
	if len(parts) < 3 {
		b.sendErrorMessage(ctx, chatID, "用法: /setmessage start|help <文案>\n支持 {username} 和 {first_name} 占位符")
		return
	}

	if err := b.services.Settings.SetText(ctx, parts[1], parts[2]); err != nil {
		b.sendErrorMessage(ctx, chatID, "设置失败：目标只能是 start 或 help")
		return
	}
	b.sendSuccessMessage(ctx, chatID, parts[1]+" 文案已更新")
}

// handleSetImage 处理 /setimage 命令。
// 回复一张图片设置配图，"none" 清除配图
func (b *Bot) handleSetImage(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		b.sendErrorMessage(ctx, chatID, "用法: 回复一张图片并发送 /setimage start|help\n清除配图: /setimage start|help none")
		return
	}
	target := parts[1]

	if len(parts) > 2 && parts[2] == "none" {
		if err := b.services.Settings.SetImage(ctx, target, ""); err != nil {
			b.sendErrorMessage(ctx, chatID, "设置失败：目标只能是 start 或 help")
			return
		}
		b.sendSuccessMessage(ctx, chatID, target+" 配图已清除")
		return
	}

	reply := update.Message.ReplyToMessage
	if reply == nil || len(reply.Photo) == 0 {
		b.sendErrorMessage(ctx, chatID, "请回复一张图片再发送 /setimage "+target)
		return
	}

	largest := reply.Photo[len(reply.Photo)-1]
	if err := b.services.Settings.SetImage(ctx, target, largest.FileID); err != nil {
		b.sendErrorMessage(ctx, chatID, "设置失败：目标只能是 start 或 help")
		return
	}
	b.sendSuccessMessage(ctx, chatID, target+" 配图已更新")
}

// handleSetChannel 处理 /setchannel 命令，维护推荐频道列表
func (b *Bot) handleSetChannel(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	b.handleChannelCommand(ctx, update, channelCommand{
		usage:       "用法: /setchannel <@频道|t.me链接|-100开头ID>，或 /setchannel none 清空",
		kindLabel:   "推荐频道",
		maxChannels: models.MaxOptionalChannels,
		list:        b.services.Settings.OptionalChannels,
		add:         b.services.Settings.AddOptionalChannel,
		clear:       b.services.Settings.ClearOptionalChannels,
	})
}

// handleSetForceChannel 处理 /setforcechannel 命令，维护强制加入频道列表
func (b *Bot) handleSetForceChannel(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	b.handleChannelCommand(ctx, update, channelCommand{
		usage:       "用法: /setforcechannel <@频道|t.me链接|-100开头ID>，或 /setforcechannel none 清空",
		kindLabel:   "强制频道",
		maxChannels: models.MaxForceChannels,
		list:        b.services.Settings.ForceChannels,
		add:         b.services.Settings.AddForceChannel,
		clear:       b.services.Settings.ClearForceChannels,
	})
}

// channelCommand 两类频道命令共用的操作集
type channelCommand struct {
	usage       string
	kindLabel   string
	maxChannels int
	list        func(ctx context.Context) ([]models.ChannelRef, error)
	add         func(ctx context.Context, ref models.ChannelRef) error
	clear       func(ctx context.Context) error
}

func (b *Bot) handleChannelCommand(ctx context.Context, update *botModels.Update, cmd channelCommand) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		b.sendErrorMessage(ctx, chatID, cmd.usage)
		return
	}
	arg := parts[1]

	if arg == "none" {
		if err := cmd.clear(ctx); err != nil {
			logger.L().Errorf("Failed to clear channels: %v", err)
			b.sendErrorMessage(ctx, chatID, "清空失败，请稍后重试")
			return
		}
		b.sendSuccessMessage(ctx, chatID, cmd.kindLabel+"已清空")
		return
	}

	ref, err := models.ParseChannelArg(arg)
	if err != nil {
		b.sendErrorMessage(ctx, chatID, cmd.usage)
		return
	}

	// 先确认 Bot 能解析该频道，避免写入一个查不了成员的引用
	if _, err := b.gateway.ResolveChat(ctx, ref.Ref()); err != nil {
		logger.L().Warnf("Channel resolve failed: ref=%s, err=%v", ref.Ref(), err)
		b.sendErrorMessage(ctx, chatID, "无法识别该频道，请确认 Bot 已加入该频道")
		return
	}

	if err := cmd.add(ctx, ref); err != nil {
		if errors.Is(err, service.ErrChannelLimit) {
			b.sendErrorMessage(ctx, chatID, fmt.Sprintf("%s最多 %d 个，请先用 none 清空", cmd.kindLabel, cmd.maxChannels))
			return
		}
		logger.L().Errorf("Failed to add channel: %v", err)
		b.sendErrorMessage(ctx, chatID, "添加失败，请稍后重试")
		return
	}

	channels, err := cmd.list(ctx)
	if err != nil {
		b.sendSuccessMessage(ctx, chatID, cmd.kindLabel+"已添加")
		return
	}
	b.sendSuccessMessage(ctx, chatID, fmt.Sprintf("%s已添加，当前共 %d 个", cmd.kindLabel, len(channels)))
}

// handleAdminPanel 处理 /adminp 命令，列出操作者命令
func (b *Bot) handleAdminPanel(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}

	text := `🛠 <b>操作面板</b>

<b>内容管理</b>
/upload - 开始上传（可加 exclude_text）
/d - 定稿并生成深链接
/e - 取消上传
/list_sessions - 查看会话列表
/revoke &lt;id&gt; - 撤销会话
/del_session &lt;id&gt; - 删除会话记录

<b>面板配置</b>
/setmessage start|help &lt;文案&gt; - 设置文案
/setimage start|help - 设置配图（回复图片）
/setchannel - 推荐频道
/setforcechannel - 强制加入频道

<b>运维</b>
/stats - 使用统计
/broadcast - 广播（回复目标消息）
/backup_db - 备份数据库
/restore_db - 从快照恢复`

	b.sendMessage(ctx, update.Message.Chat.ID, text)
}

// handleStats 处理 /stats 命令
func (b *Bot) handleStats(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	stats, err := b.services.Users.Stats(ctx)
	if err != nil {
		logger.L().Errorf("Failed to collect stats: %v", err)
		b.sendErrorMessage(ctx, chatID, "统计失败，请稍后重试")
		return
	}

	text := fmt.Sprintf(`📊 <b>统计</b>
活跃用户（48 小时）：%d
用户总数：%d
文件总数：%d
会话总数：%d`,
		stats.ActiveUsers, stats.TotalUsers, stats.TotalFiles, stats.TotalSessions)
	b.sendMessage(ctx, chatID, text)
}

// handleListSessions 处理 /list_sessions 命令，按 50 行分块发送
func (b *Bot) handleListSessions(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	sessions, err := b.services.Sessions.ListRecent(ctx, 100)
	if err != nil {
		logger.L().Errorf("Failed to list sessions: %v", err)
		b.sendErrorMessage(ctx, chatID, "查询失败，请稍后重试")
		return
	}
	if len(sessions) == 0 {
		b.sendMessage(ctx, chatID, "还没有任何会话")
		return
	}

	lines := make([]string, 0, len(sessions))
	for _, s := range sessions {
		autoDel := "off"
		if s.AutoDeleteSeconds > 0 {
			autoDel = formatDuration(time.Duration(s.AutoDeleteSeconds) * time.Second)
		}
		lines = append(lines, fmt.Sprintf("ID:%d  创建:%s  保护:%v  自动删除:%s  撤销:%v",
			s.ID, time.Unix(s.CreatedAt, 0).Format("2006-01-02 15:04"), s.Protect, autoDel, s.Revoked))
	}

	b.sendLongList(ctx, chatID, lines, 50)
}

// handleRevoke 处理 /revoke 命令，发出二次确认按钮
func (b *Bot) handleRevoke(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	sessionID, ok := parseSessionArg(update.Message.Text)
	if !ok {
		b.sendErrorMessage(ctx, chatID, "用法: /revoke <会话ID>")
		return
	}

	keyboard := &botModels.InlineKeyboardMarkup{
		InlineKeyboard: [][]botModels.InlineKeyboardButton{
			{
				{Text: "✅ 确认撤销", CallbackData: models.CallbackCommand{Kind: models.CallbackRevoke, SessionID: sessionID, Confirm: true}.Encode()},
				{Text: "❌ 取消", CallbackData: models.CallbackCommand{Kind: models.CallbackRevoke, SessionID: sessionID}.Encode()},
			},
		},
	}

	_, err := botInstance.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        fmt.Sprintf("⚠️ 确认撤销会话 %d？撤销后深链接立即失效", sessionID),
		ReplyMarkup: keyboard,
	})
	if err != nil {
		logger.L().Errorf("Failed to send revoke confirmation: %v", err)
	}
}

// handleDeleteSession 处理 /del_session 命令，直接删除会话记录
func (b *Bot) handleDeleteSession(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	sessionID, ok := parseSessionArg(update.Message.Text)
	if !ok {
		b.sendErrorMessage(ctx, chatID, "用法: /del_session <会话ID>")
		return
	}

	if err := b.services.Sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			b.sendErrorMessage(ctx, chatID, "会话不存在")
			return
		}
		logger.L().Errorf("Failed to delete session %d: %v", sessionID, err)
		b.sendErrorMessage(ctx, chatID, "删除失败，请稍后重试")
		return
	}
	b.sendSuccessMessage(ctx, chatID, fmt.Sprintf("会话 %d 已删除，文件记录一并清除", sessionID))
}

// handleBroadcast 处理 /broadcast 命令，把被回复的消息复制给全部用户
func (b *Bot) handleBroadcast(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	reply := update.Message.ReplyToMessage
	if reply == nil {
		b.sendErrorMessage(ctx, chatID, "请回复要广播的消息再发送 /broadcast")
		return
	}

	b.sendMessage(ctx, chatID, "📣 广播进行中…")

	report, err := b.services.Broadcast.Broadcast(ctx, chatID, reply.ID)
	if err != nil {
		logger.L().Errorf("Broadcast failed: %v", err)
		b.sendErrorMessage(ctx, chatID, "广播失败，请稍后重试")
		return
	}

	b.sendSuccessMessage(ctx, chatID, fmt.Sprintf("广播完成：共 %d 人，成功 %d，失败 %d",
		report.Total, report.Sent, report.Failed))
}

// handleBackupDB 处理 /backup_db 命令
func (b *Bot) handleBackupDB(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if err := b.services.Snapshot.Backup(ctx); err != nil {
		logger.L().Errorf("Manual backup failed: %v", err)
		b.sendErrorMessage(ctx, chatID, "备份失败，请检查快照频道配置")
		return
	}
	b.sendSuccessMessage(ctx, chatID, "快照已上传并置顶")
}

// handleRestoreDB 处理 /restore_db 命令。
// 本地数据库存在时不会覆盖，只在数据文件丢失后使用
func (b *Bot) handleRestoreDB(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	restored, err := b.services.Snapshot.Restore(ctx)
	if err != nil {
		logger.L().Errorf("Manual restore failed: %v", err)
		b.sendErrorMessage(ctx, chatID, "恢复失败，请查看日志")
		return
	}
	if !restored {
		b.sendMessage(ctx, chatID, "本地数据库存在或没有可用快照，已跳过恢复")
		return
	}
	b.sendSuccessMessage(ctx, chatID, "已从置顶快照恢复数据库")
}

// parseSessionArg 解析 "/命令 <id>" 形式的会话 ID 参数
func parseSessionArg(text string) (int64, bool) {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
