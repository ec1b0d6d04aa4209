package service

import (
	"context"
	"fmt"
	"time"

	"vaultbot/internal/logger"
	"vaultbot/internal/telegram/models"
	"vaultbot/internal/telegram/repository"
)

// 活跃用户统计窗口
const activeWindow = 48 * time.Hour

// UserServiceImpl 用户服务实现
type UserServiceImpl struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	fileRepo    repository.FileRepository
}

// NewUserService 创建用户服务
func NewUserService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	fileRepo repository.FileRepository,
) UserService {
	return &UserServiceImpl{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		fileRepo:    fileRepo,
	}
}

// TrackUser 记录或刷新用户信息与活跃时间
func (s *UserServiceImpl) TrackUser(ctx context.Context, info *TelegramUserInfo) error {
	user := &models.User{
		ID:        info.TelegramID,
		Username:  info.Username,
		FirstName: info.FirstName,
		LastName:  info.LastName,
		LastSeen:  time.Now().Unix(),
	}

	if err := s.userRepo.CreateOrUpdate(ctx, user); err != nil {
		logger.L().Errorf("Failed to track user %d: %v", info.TelegramID, err)
		return fmt.Errorf("failed to track user: %w", err)
	}
	return nil
}

// Stats 统计用户、会话与文件数量
func (s *UserServiceImpl) Stats(ctx context.Context) (*VaultStats, error) {
	totalUsers, err := s.userRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	since := time.Now().Add(-activeWindow).Unix()
	activeUsers, err := s.userRepo.CountActiveSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}

	totalFiles, err := s.fileRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}

	totalSessions, err := s.sessionRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	return &VaultStats{
		TotalUsers:    totalUsers,
		ActiveUsers:   activeUsers,
		TotalFiles:    totalFiles,
		TotalSessions: totalSessions,
	}, nil
}
