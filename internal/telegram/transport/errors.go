package transport

import (
	"errors"
	"strings"
	"time"

	"github.com/go-telegram/bot"
)

// RetryDelay 从限流错误中提取建议等待时长
func RetryDelay(err error) (time.Duration, bool) {
	var tooMany *bot.TooManyRequestsError
	if errors.As(err, &tooMany) {
		return time.Duration(tooMany.RetryAfter) * time.Second, true
	}
	return 0, false
}

// IsBlocked 用户已屏蔽机器人或机器人无权限
func IsBlocked(err error) bool {
	return errors.Is(err, bot.ErrorForbidden)
}

// IsBadRequest Telegram 返回 bad request
func IsBadRequest(err error) bool {
	return errors.Is(err, bot.ErrorBadRequest)
}

// IsMessageGone 目标消息已不存在或不可操作
func IsMessageGone(err error) bool {
	if !errors.Is(err, bot.ErrorBadRequest) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "message to delete not found") ||
		strings.Contains(msg, "message can't be deleted") ||
		strings.Contains(msg, "message to edit not found") ||
		strings.Contains(msg, "message to copy not found")
}

// IsChatGone 目标会话已不存在或机器人被移出
func IsChatGone(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if errors.Is(err, bot.ErrorForbidden) {
		return strings.Contains(msg, "kicked") || strings.Contains(msg, "chat was deleted")
	}
	if errors.Is(err, bot.ErrorBadRequest) {
		return strings.Contains(msg, "chat not found") || strings.Contains(msg, "chat was deactivated")
	}
	return false
}
