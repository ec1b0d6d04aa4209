package models

import (
	"encoding/json"
	"fmt"
)

// DeleteJob 状态常量
const (
	DeleteJobStatusScheduled = "scheduled" // 等待执行
	DeleteJobStatusDone      = "done"      // 已执行（无论单条删除成败）
)

// DeleteJob 延迟删除任务
// 数据库行是恢复的唯一依据，进程内定时器只是它的影子
type DeleteJob struct {
	ID           int64  `db:"id"`
	SessionID    int64  `db:"session_id"`     // 来源会话（仅用于追溯）
	TargetChatID int64  `db:"target_chat_id"` // 待删除消息所在聊天
	MessageIDs   string `db:"message_ids"`    // 有序消息 ID 列表（JSON 数组）
	RunAt        int64  `db:"run_at"`         // 计划执行时间（Unix 秒）
	CreatedAt    int64  `db:"created_at"`     // 创建时间（Unix 秒）
	Status       string `db:"status"`         // scheduled / done
}

// DecodeMessageIDs 解析消息 ID 列表
func (j *DeleteJob) DecodeMessageIDs() ([]int, error) {
	var ids []int
	if err := json.Unmarshal([]byte(j.MessageIDs), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode message ids of job %d: %w", j.ID, err)
	}
	return ids, nil
}

// EncodeMessageIDs 序列化消息 ID 列表
func EncodeMessageIDs(ids []int) (string, error) {
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode message ids: %w", err)
	}
	return string(data), nil
}
