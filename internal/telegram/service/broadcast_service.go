package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"vaultbot/internal/logger"
	"vaultbot/internal/telegram/repository"
	"vaultbot/internal/telegram/transport"
)

// 限流重试上限：首发一次，限流后等待再试一次
const maxSendAttempts = 2

// BroadcastServiceImpl 广播服务实现
type BroadcastServiceImpl struct {
	userRepo    repository.UserRepository
	gateway     transport.Gateway
	concurrency int
}

// NewBroadcastService 创建广播服务
func NewBroadcastService(userRepo repository.UserRepository, gateway transport.Gateway, concurrency int) BroadcastService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BroadcastServiceImpl{
		userRepo:    userRepo,
		gateway:     gateway,
		concurrency: concurrency,
	}
}

// Broadcast 把指定消息复制给全部用户。
// 并发上限固定，单个用户失败不影响其他用户
func (s *BroadcastServiceImpl) Broadcast(ctx context.Context, srcChatID int64, srcMessageID int) (*BroadcastReport, error) {
	runID := uuid.New().String()

	recipients, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}

	logger.L().Infof("Broadcast started: run_id=%s, recipients=%d, concurrency=%d", runID, len(recipients), s.concurrency)
	startTime := time.Now()

	var mu sync.Mutex
	sent := 0
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, userID := range recipients {
		userID := userID
		g.Go(func() error {
			err := s.sendWithRetry(gctx, userID, srcChatID, srcMessageID)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				sent++
				return nil
			}
			failed++
			if transport.IsBlocked(err) || transport.IsChatGone(err) {
				logger.L().Debugf("Broadcast recipient unreachable: run_id=%s, user_id=%d", runID, userID)
			} else {
				logger.L().Warnf("Broadcast send failed: run_id=%s, user_id=%d, err=%v", runID, userID, err)
			}
			return nil
		})
	}
	// worker 不返回错误，Wait 只等待全部完成
	_ = g.Wait()

	logger.L().Infof("Broadcast completed: run_id=%s, sent=%d, failed=%d, duration=%v",
		runID, sent, failed, time.Since(startTime))
	return &BroadcastReport{
		Total:  len(recipients),
		Sent:   sent,
		Failed: failed,
	}, nil
}

// sendWithRetry 单用户发送，被限流时按提示等待后再试一次
func (s *BroadcastServiceImpl) sendWithRetry(ctx context.Context, userID, srcChatID int64, srcMessageID int) error {
	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		_, err := s.gateway.CopyMessage(ctx, userID, srcChatID, srcMessageID, "", false)
		if err == nil {
			return nil
		}
		lastErr = err

		delay, ok := transport.RetryDelay(err)
		if !ok || attempt == maxSendAttempts {
			return err
		}

		logger.L().Warnf("Broadcast rate limited: user_id=%d, wait=%v", userID, delay)
		timer := time.NewTimer(delay + time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
