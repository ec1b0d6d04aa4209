package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"

	"vaultbot/internal/logger"
)

// RequireOwner 中间件：仅允许操作者执行。
// 非操作者的调用静默忽略，不暴露操作命令的存在
func (b *Bot) RequireOwner(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
		if update.Message == nil || update.Message.From == nil {
			return
		}

		if update.Message.From.ID != b.cfg.OwnerID {
			logger.L().Warnf("Non-owner user %d attempted operator command: %q",
				update.Message.From.ID, update.Message.Text)
			return
		}

		next(ctx, botInstance, update)
	}
}
