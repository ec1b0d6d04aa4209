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

// DeliveryServiceImpl 会话投递实现
type DeliveryServiceImpl struct {
	sessionRepo    repository.SessionRepository
	fileRepo       repository.FileRepository
	gateway        transport.Gateway
	gate           GateService
	scheduler      DeleteScheduler
	vaultChannelID int64
}

// NewDeliveryService 创建投递服务
func NewDeliveryService(
	sessionRepo repository.SessionRepository,
	fileRepo repository.FileRepository,
	gateway transport.Gateway,
	gate GateService,
	scheduler DeleteScheduler,
	vaultChannelID int64,
) DeliveryService {
	return &DeliveryServiceImpl{
		sessionRepo:    sessionRepo,
		fileRepo:       fileRepo,
		gateway:        gateway,
		gate:           gate,
		scheduler:      scheduler,
		vaultChannelID: vaultChannelID,
	}
}

// RequestDelivery 处理深链接请求：门禁通过后按 position 顺序回放会话文件。
// 单个文件失败跳过不回滚，结果里报告实际投递数量
func (s *DeliveryServiceImpl) RequestDelivery(ctx context.Context, sessionID, requesterID, requesterChatID int64) (*DeliveryResult, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errors.Wrapf(ErrSessionNotFound, "session %d", sessionID)
		}
		return nil, fmt.Errorf("failed to load session %d: %w", sessionID, err)
	}
	if session.Revoked {
		return nil, errors.Wrapf(ErrSessionRevoked, "session %d", sessionID)
	}

	gate, err := s.gate.CheckAccess(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to check channel gate: %w", err)
	}
	if len(gate.Missing) > 0 {
		return &DeliveryResult{State: DeliveryStateGateBlocked, Gate: gate}, nil
	}
	if len(gate.Unverified) > 0 {
		return &DeliveryResult{State: DeliveryStateGateUnverified, Gate: gate}, nil
	}

	files, err := s.fileRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session files: %w", err)
	}

	protect := session.Protect && requesterID != session.OwnerID
	delivered := make([]int, 0, len(files))
	for _, f := range files {
		msgID, err := s.deliverFile(ctx, requesterChatID, f, protect)
		if err != nil {
			logger.L().Errorf("Failed to deliver file: session_id=%d, position=%d, err=%v", sessionID, f.Position, err)
			continue
		}
		delivered = append(delivered, msgID)
	}

	result := &DeliveryResult{
		State:     DeliveryStateDelivered,
		Delivered: len(delivered),
		Total:     len(files),
	}

	if session.AutoDeleteSeconds > 0 && len(delivered) > 0 {
		delay := time.Duration(session.AutoDeleteSeconds) * time.Second
		runAt := time.Now().Add(delay)
		if err := s.scheduler.Schedule(ctx, sessionID, requesterChatID, delivered, runAt); err != nil {
			// 内容已送达，无法回滚，只能把失败暴露给运维
			logger.L().Errorf("Failed to schedule auto delete: session_id=%d, chat_id=%d, err=%v", sessionID, requesterChatID, err)
		} else {
			result.DeleteAfter = delay
		}
	}

	logger.L().Infof("Session delivered: session_id=%d, user_id=%d, delivered=%d/%d, auto_delete=%v",
		sessionID, requesterID, result.Delivered, result.Total, result.DeleteAfter > 0)
	return result, nil
}

// deliverFile 回放单个文件：文本直接发送，媒体从仓库频道复制，
// 复制失败时回退到按 file_id 重发
func (s *DeliveryServiceImpl) deliverFile(ctx context.Context, chatID int64, f *models.File, protect bool) (int, error) {
	if f.FileType == models.FileKindText {
		return s.gateway.SendText(ctx, chatID, f.Caption, protect)
	}

	msgID, err := s.gateway.CopyMessage(ctx, chatID, s.vaultChannelID, f.VaultMsgID, f.Caption, protect)
	if err == nil {
		return msgID, nil
	}

	logger.L().Warnf("Vault copy failed, falling back to file_id: vault_msg_id=%d, err=%v", f.VaultMsgID, err)
	return s.gateway.SendByFileID(ctx, chatID, f.FileType, f.FileID, f.Caption, protect)
}
