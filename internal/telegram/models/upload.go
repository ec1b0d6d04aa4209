package models

// UploadItem 上传会话中收集到的一条待定稿内容
// 定稿时按收集顺序回放进仓库频道
type UploadItem struct {
	Kind         FileKind // 类型标签
	FileID       string   // Telegram 文件引用（text 为空）
	Caption      string   // 说明文字（text 时为正文）
	SourceChatID int64    // 原消息所在聊天（other 类型回放用）
	SourceMsgID  int      // 原消息 ID（other 类型回放用）
}
