package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"

	"vaultbot/internal/logger"
)

// sendMessage 发送消息（统一错误处理，使用 HTML 格式）
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string, replyTo ...int) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: botModels.ParseModeHTML,
	}

	if len(replyTo) > 0 && replyTo[0] > 0 {
		params.ReplyParameters = &botModels.ReplyParameters{
			MessageID: replyTo[0],
		}
	}

	if _, err := b.bot.SendMessage(ctx, params); err != nil {
		logger.L().Errorf("Failed to send message to chat %d: %v", chatID, err)
	}
}

// sendErrorMessage 发送错误消息
func (b *Bot) sendErrorMessage(ctx context.Context, chatID int64, message string, replyTo ...int) {
	b.sendMessage(ctx, chatID, "❌ "+message, replyTo...)
}

// sendSuccessMessage 发送成功消息
func (b *Bot) sendSuccessMessage(ctx context.Context, chatID int64, message string, replyTo ...int) {
	b.sendMessage(ctx, chatID, "✅ "+message, replyTo...)
}

// answerCallback 回应 callback query（显示顶部提示）
func (b *Bot) answerCallback(ctx context.Context, botInstance *bot.Bot, callbackQueryID, text string) {
	_, err := botInstance.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackQueryID,
		Text:            text,
		ShowAlert:       false,
	})
	if err != nil {
		logger.L().Errorf("Failed to answer callback query: %v", err)
	}
}

// sendLongList 把多行列表按块发送，避免超出单条消息长度限制
func (b *Bot) sendLongList(ctx context.Context, chatID int64, lines []string, linesPerMessage int) {
	for start := 0; start < len(lines); start += linesPerMessage {
		end := start + linesPerMessage
		if end > len(lines) {
			end = len(lines)
		}
		b.sendMessage(ctx, chatID, strings.Join(lines[start:end], "\n"))
	}
}

// formatDuration 把删除延迟格式化为用户可读的时长
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%d 小时", int(d/time.Hour))
	case d >= time.Minute:
		return fmt.Sprintf("%d 分钟", int(d/time.Minute))
	default:
		return fmt.Sprintf("%d 秒", int(d/time.Second))
	}
}
