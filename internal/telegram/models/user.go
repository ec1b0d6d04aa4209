package models

import "strings"

// User Telegram 用户
// 每次收到用户消息时创建或刷新，用于活跃统计和广播目标
type User struct {
	ID        int64  `db:"id"`         // Telegram 用户 ID（唯一）
	Username  string `db:"username"`   // @username
	FirstName string `db:"first_name"` // 名字
	LastName  string `db:"last_name"`  // 姓氏
	LastSeen  int64  `db:"last_seen"`  // 最后活跃时间（Unix 秒）
}

// DisplayName 返回用户展示名
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "unknown"
}
