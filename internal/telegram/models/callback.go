package models

import (
	"fmt"
	"strconv"
	"strings"
)

// CallbackKind 按钮指令类型（封闭集合）
type CallbackKind string

const (
	CallbackProtect CallbackKind = "protect" // 上传定稿：选择是否保护内容
	CallbackRetry   CallbackKind = "retry"   // 加入频道后重试领取
	CallbackRevoke  CallbackKind = "revoke"  // 撤销会话的二次确认
	CallbackNoop    CallbackKind = "noop"    // 占位按钮，无动作
)

// CallbackCommand 解析后的按钮指令
// 所有按钮载荷在回调入口处解析一次，handler 不再各自拆字符串
type CallbackCommand struct {
	Kind      CallbackKind
	SessionID int64 // retry / revoke 指向的会话
	Confirm   bool  // protect 的选择，或 revoke 的确认结果
}

// Encode 生成按钮载荷字符串
func (c CallbackCommand) Encode() string {
	switch c.Kind {
	case CallbackProtect:
		if c.Confirm {
			return "protect:1"
		}
		return "protect:0"
	case CallbackRetry:
		return fmt.Sprintf("retry:%d", c.SessionID)
	case CallbackRevoke:
		decision := "no"
		if c.Confirm {
			decision = "yes"
		}
		return fmt.Sprintf("revoke:%d:%s", c.SessionID, decision)
	default:
		return "noop"
	}
}

// ParseCallbackData 解析按钮载荷
// 未知或残缺的载荷返回错误，由入口统一记录并忽略
func ParseCallbackData(data string) (CallbackCommand, error) {
	parts := strings.Split(data, ":")

	switch CallbackKind(parts[0]) {
	case CallbackNoop:
		return CallbackCommand{Kind: CallbackNoop}, nil

	case CallbackProtect:
		if len(parts) != 2 || (parts[1] != "0" && parts[1] != "1") {
			return CallbackCommand{}, fmt.Errorf("invalid protect payload: %q", data)
		}
		return CallbackCommand{Kind: CallbackProtect, Confirm: parts[1] == "1"}, nil

	case CallbackRetry:
		if len(parts) != 2 {
			return CallbackCommand{}, fmt.Errorf("invalid retry payload: %q", data)
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return CallbackCommand{}, fmt.Errorf("invalid retry session id: %q", data)
		}
		return CallbackCommand{Kind: CallbackRetry, SessionID: id}, nil

	case CallbackRevoke:
		if len(parts) != 3 || (parts[2] != "yes" && parts[2] != "no") {
			return CallbackCommand{}, fmt.Errorf("invalid revoke payload: %q", data)
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return CallbackCommand{}, fmt.Errorf("invalid revoke session id: %q", data)
		}
		return CallbackCommand{Kind: CallbackRevoke, SessionID: id, Confirm: parts[2] == "yes"}, nil

	default:
		return CallbackCommand{}, fmt.Errorf("unknown callback payload: %q", data)
	}
}
