package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"vaultbot/internal/logger"
	"vaultbot/internal/telegram/models"
	"vaultbot/internal/telegram/repository"
	"vaultbot/internal/telegram/transport"
)

// 自动删除时长约束
const (
	maxAutoDeleteHours    = 168
	minAutoDeleteSeconds  = 60
	defaultSessionTitle   = "Untitled"
	sessionHeaderTemplate = "会话 %d\n%s"
)

// UploadServiceImpl 上传定稿实现
type UploadServiceImpl struct {
	sessionRepo    repository.SessionRepository
	fileRepo       repository.FileRepository
	gateway        transport.Gateway
	snapshot       SnapshotBackup
	vaultChannelID int64
}

// NewUploadService 创建上传服务
func NewUploadService(
	sessionRepo repository.SessionRepository,
	fileRepo repository.FileRepository,
	gateway transport.Gateway,
	snapshot SnapshotBackup,
	vaultChannelID int64,
) UploadService {
	return &UploadServiceImpl{
		sessionRepo:    sessionRepo,
		fileRepo:       fileRepo,
		gateway:        gateway,
		snapshot:       snapshot,
		vaultChannelID: vaultChannelID,
	}
}

// FinalizeUpload 把收集的内容写入仓库频道并生成深链接。
// 头部消息写入失败整个定稿终止；单条内容回放失败跳过，position 保持连续
func (s *UploadServiceImpl) FinalizeUpload(ctx context.Context, input *FinalizeInput) (*FinalizeResult, error) {
	seconds, err := autoDeleteSeconds(input.AutoDeleteHours)
	if err != nil {
		return nil, err
	}

	username, err := s.gateway.Username(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bot username: %w", err)
	}

	// 头部消息先落仓库频道，失败说明频道不可用，不建会话
	headerID, err := s.gateway.SendText(ctx, s.vaultChannelID, "会话上传中...", false)
	if err != nil {
		return nil, fmt.Errorf("failed to write session header: %w", err)
	}

	title := input.Title
	if title == "" {
		title = defaultSessionTitle
	}
	session := &models.Session{
		OwnerID:           input.OwnerID,
		CreatedAt:         time.Now().Unix(),
		Protect:           input.Protect,
		AutoDeleteSeconds: seconds,
		Title:             title,
		HeaderChatID:      s.vaultChannelID,
		HeaderMsgID:       headerID,
	}
	sessionID, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	deepLink := models.BuildDeepLink(username, sessionID)
	if err := s.gateway.EditText(ctx, s.vaultChannelID, headerID, fmt.Sprintf(sessionHeaderTemplate, sessionID, deepLink)); err != nil {
		logger.L().Warnf("Failed to edit session header: session_id=%d, err=%v", sessionID, err)
	}

	stored := 0
	for _, item := range input.Items {
		vaultMsgID, err := s.replayItem(ctx, input.OperatorChatID, item)
		if err != nil {
			logger.L().Errorf("Failed to replay item: session_id=%d, kind=%s, err=%v", sessionID, item.Kind, err)
			continue
		}

		file := &models.File{
			SessionID:  sessionID,
			Position:   stored,
			FileType:   item.Kind,
			FileID:     item.FileID,
			Caption:    item.Caption,
			VaultMsgID: vaultMsgID,
		}
		if err := s.fileRepo.Create(ctx, file); err != nil {
			return nil, fmt.Errorf("failed to record file at position %d: %w", stored, err)
		}
		stored++
	}

	if err := s.sessionRepo.SetDeepLink(ctx, sessionID, deepLink); err != nil {
		return nil, fmt.Errorf("failed to save deep link: %w", err)
	}

	if err := s.snapshot.Backup(ctx); err != nil {
		logger.L().Errorf("Post-finalize backup failed: session_id=%d, err=%v", sessionID, err)
	}

	logger.L().Infof("Session finalized: session_id=%d, stored=%d/%d, protect=%v, auto_delete_seconds=%d",
		sessionID, stored, len(input.Items), input.Protect, seconds)
	return &FinalizeResult{
		SessionID: sessionID,
		DeepLink:  deepLink,
		Stored:    stored,
		Total:     len(input.Items),
	}, nil
}

// replayItem 把单条内容写入仓库频道，返回仓库消息 ID
func (s *UploadServiceImpl) replayItem(ctx context.Context, operatorChatID int64, item models.UploadItem) (int, error) {
	switch item.Kind {
	case models.FileKindText:
		return s.gateway.SendText(ctx, s.vaultChannelID, item.Caption, false)
	case models.FileKindPhoto, models.FileKindVideo, models.FileKindDocument,
		models.FileKindAudio, models.FileKindVoice, models.FileKindSticker:
		return s.gateway.SendByFileID(ctx, s.vaultChannelID, item.Kind, item.FileID, item.Caption, false)
	default:
		// 无法按 file_id 重发的类型从原消息复制
		fromChatID := item.SourceChatID
		if fromChatID == 0 {
			fromChatID = operatorChatID
		}
		return s.gateway.CopyMessage(ctx, s.vaultChannelID, fromChatID, item.SourceMsgID, "", false)
	}
}

// autoDeleteSeconds 校验小时数并换算为秒，正值最少 60 秒
func autoDeleteSeconds(hours float64) (int64, error) {
	if hours < 0 || hours > maxAutoDeleteHours {
		return 0, errors.Wrapf(ErrInvalidTimerRange, "%.2f hours", hours)
	}
	if hours == 0 {
		return 0, nil
	}
	seconds := int64(hours * 3600)
	if seconds < minAutoDeleteSeconds {
		seconds = minAutoDeleteSeconds
	}
	return seconds, nil
}
