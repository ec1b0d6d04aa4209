package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"vaultbot/internal/logger"
	"vaultbot/internal/telegram/models"
	"vaultbot/internal/telegram/repository"
)

// SessionServiceImpl 会话生命周期服务实现
type SessionServiceImpl struct {
	sessionRepo repository.SessionRepository
}

// NewSessionService 创建会话服务
func NewSessionService(sessionRepo repository.SessionRepository) SessionService {
	return &SessionServiceImpl{sessionRepo: sessionRepo}
}

// ListRecent 按创建时间倒序列出会话
func (s *SessionServiceImpl) ListRecent(ctx context.Context, limit int) ([]*models.Session, error) {
	sessions, err := s.sessionRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Revoke 撤销会话。已注册的删除任务不受影响，仍按原时间执行
func (s *SessionServiceImpl) Revoke(ctx context.Context, sessionID int64) error {
	if err := s.sessionRepo.Revoke(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errors.Wrapf(ErrSessionNotFound, "session %d", sessionID)
		}
		return fmt.Errorf("failed to revoke session %d: %w", sessionID, err)
	}
	logger.L().Infof("Session revoked: session_id=%d", sessionID)
	return nil
}

// Delete 删除会话，文件记录随外键级联删除
func (s *SessionServiceImpl) Delete(ctx context.Context, sessionID int64) error {
	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errors.Wrapf(ErrSessionNotFound, "session %d", sessionID)
		}
		return fmt.Errorf("failed to delete session %d: %w", sessionID, err)
	}
	logger.L().Infof("Session deleted: session_id=%d", sessionID)
	return nil
}
