package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"
	"github.com/pkg/errors"

	"vaultbot/internal/logger"
	"vaultbot/internal/telegram/models"
	"vaultbot/internal/telegram/service"
)

// handleCallback 所有按钮点击的统一入口。
// 载荷在这里解析一次，按指令类型分发；残缺载荷应答后忽略
func (b *Bot) handleCallback(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}

	cmd, err := models.ParseCallbackData(query.Data)
	if err != nil {
		logger.L().Warnf("Unparseable callback from user %d: %v", query.From.ID, err)
		b.answerCallback(ctx, botInstance, query.ID, "")
		return
	}

	switch cmd.Kind {
	case models.CallbackNoop:
		b.answerCallback(ctx, botInstance, query.ID, "")

	case models.CallbackRetry:
		b.handleRetryCallback(ctx, botInstance, query, cmd)

	case models.CallbackProtect:
		b.handleProtectCallback(ctx, botInstance, query, cmd)

	case models.CallbackRevoke:
		b.handleRevokeCallback(ctx, botInstance, query, cmd)
	}
}

// handleRetryCallback 用户声称已加入频道，重新走领取流程
func (b *Bot) handleRetryCallback(ctx context.Context, botInstance *bot.Bot, query *botModels.CallbackQuery, cmd models.CallbackCommand) {
	b.answerCallback(ctx, botInstance, query.ID, "正在重新检查…")

	if query.Message.Message == nil {
		logger.L().Warn("Retry callback without accessible message")
		return
	}

	b.deliverSession(ctx, query.Message.Message.Chat.ID, query.From.ID, cmd.SessionID)
}

// handleProtectCallback 操作者选择保护选项，推进定稿流程到时长询问
func (b *Bot) handleProtectCallback(ctx context.Context, botInstance *bot.Bot, query *botModels.CallbackQuery, cmd models.CallbackCommand) {
	if query.From.ID != b.cfg.OwnerID {
		b.answerCallback(ctx, botInstance, query.ID, "")
		return
	}

	if err := b.tracker.SetProtect(cmd.Confirm); err != nil {
		b.answerCallback(ctx, botInstance, query.ID, "没有待确认的上传")
		return
	}

	choice := "不保护"
	if cmd.Confirm {
		choice = "保护内容"
	}
	b.answerCallback(ctx, botInstance, query.ID, "已选择："+choice)

	if query.Message.Message == nil {
		return
	}
	_, err := botInstance.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    query.Message.Message.Chat.ID,
		MessageID: query.Message.Message.ID,
		Text: fmt.Sprintf("已选择：%s\n请回复自动删除时长（小时，0-168，0 表示不自动删除）",
			choice),
	})
	if err != nil {
		logger.L().Errorf("Failed to edit protect prompt: %v", err)
	}
}

// handleRevokeCallback 撤销会话的二次确认结果
func (b *Bot) handleRevokeCallback(ctx context.Context, botInstance *bot.Bot, query *botModels.CallbackQuery, cmd models.CallbackCommand) {
	if query.From.ID != b.cfg.OwnerID {
		b.answerCallback(ctx, botInstance, query.ID, "")
		return
	}

	if query.Message.Message == nil {
		b.answerCallback(ctx, botInstance, query.ID, "")
		return
	}
	chatID := query.Message.Message.Chat.ID
	messageID := query.Message.Message.ID

	if !cmd.Confirm {
		b.answerCallback(ctx, botInstance, query.ID, "操作已取消")
		b.editCallbackMessage(ctx, botInstance, chatID, messageID, "撤销操作已取消")
		return
	}

	if err := b.services.Sessions.Revoke(ctx, cmd.SessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			b.answerCallback(ctx, botInstance, query.ID, "会话不存在")
			b.editCallbackMessage(ctx, botInstance, chatID, messageID, fmt.Sprintf("会话 %d 不存在", cmd.SessionID))
			return
		}
		logger.L().Errorf("Failed to revoke session %d: %v", cmd.SessionID, err)
		b.answerCallback(ctx, botInstance, query.ID, "撤销失败，请稍后重试")
		return
	}

	b.answerCallback(ctx, botInstance, query.ID, "已撤销")
	b.editCallbackMessage(ctx, botInstance, chatID, messageID,
		fmt.Sprintf("✅ 会话 %d 已撤销，深链接立即失效\n已注册的自动删除任务仍会按时执行", cmd.SessionID))
}

// editCallbackMessage 把确认消息改写为结果文本（按钮随之消失）
func (b *Bot) editCallbackMessage(ctx context.Context, botInstance *bot.Bot, chatID int64, messageID int, text string) {
	_, err := botInstance.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
	})
	if err != nil {
		logger.L().Errorf("Failed to edit callback message: %v", err)
	}
}
