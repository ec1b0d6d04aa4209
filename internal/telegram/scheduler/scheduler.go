// Package scheduler 管理定时删除任务：任务先落盘再注册定时器，
// 进程重启后从数据库恢复未完成的任务
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"vaultbot/internal/logger"
	"vaultbot/internal/telegram/models"
	"vaultbot/internal/telegram/repository"
	"vaultbot/internal/telegram/transport"
)

const executeTimeout = 2 * time.Minute

// DeleteScheduler 定时删除调度器
type DeleteScheduler struct {
	gateway transport.Gateway
	jobs    repository.DeleteJobRepository

	mu     sync.Mutex
	timers map[int64]*time.Timer
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDeleteScheduler 创建定时删除调度器
func NewDeleteScheduler(gateway transport.Gateway, jobs repository.DeleteJobRepository) *DeleteScheduler {
	return &DeleteScheduler{
		gateway: gateway,
		jobs:    jobs,
		timers:  make(map[int64]*time.Timer),
	}
}

// Start 启动调度器
func (s *DeleteScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	logger.L().Info("Delete scheduler started")
}

// Stop 停止调度器，等待进行中的删除完成
func (s *DeleteScheduler) Stop() {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.cancel = nil
	for id, timer := range s.timers {
		// Stop 返回 true 表示回调未触发，需要补上 wg 计数
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
	logger.L().Info("Delete scheduler stopped")
}

// Schedule 持久化删除任务并注册定时器。
// 任务行先写入数据库，定时器注册失败不影响重启后恢复
func (s *DeleteScheduler) Schedule(ctx context.Context, sessionID, targetChatID int64, messageIDs []int, runAt time.Time) error {
	if len(messageIDs) == 0 {
		return nil
	}

	encoded, err := models.EncodeMessageIDs(messageIDs)
	if err != nil {
		return fmt.Errorf("failed to encode message ids: %w", err)
	}
	job := &models.DeleteJob{
		SessionID:    sessionID,
		TargetChatID: targetChatID,
		MessageIDs:   encoded,
		RunAt:        runAt.Unix(),
		CreatedAt:    time.Now().Unix(),
		Status:       models.DeleteJobStatusScheduled,
	}
	if _, err := s.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("failed to persist delete job: %w", err)
	}

	s.register(job.ID, time.Until(runAt))
	logger.L().Infof("Delete job scheduled: job_id=%d, session_id=%d, chat_id=%d, messages=%d, run_at=%s",
		job.ID, sessionID, targetChatID, len(messageIDs), runAt.UTC().Format(time.RFC3339))
	return nil
}

// RecoverOnStartup 恢复数据库中未完成的删除任务：
// 已到期的立即执行，未到期的重新注册定时器
func (s *DeleteScheduler) RecoverOnStartup(ctx context.Context) error {
	jobs, err := s.jobs.ListScheduled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scheduled delete jobs: %w", err)
	}

	now := time.Now().Unix()
	overdue := 0
	pending := 0
	for _, job := range jobs {
		if job.RunAt <= now {
			overdue++
			s.runOverdue(job.ID)
		} else {
			pending++
			s.register(job.ID, time.Duration(job.RunAt-now)*time.Second)
		}
	}

	if overdue > 0 || pending > 0 {
		logger.L().Infof("Delete jobs recovered: overdue=%d, pending=%d", overdue, pending)
	}
	return nil
}

func (s *DeleteScheduler) register(jobID int64, wait time.Duration) {
	if wait < 0 {
		wait = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		logger.L().Warnf("Delete scheduler not started, job %d deferred to next recovery", jobID)
		return
	}
	if _, exists := s.timers[jobID]; exists {
		return
	}

	run := s.ctx
	s.wg.Add(1)
	s.timers[jobID] = time.AfterFunc(wait, func() {
		s.mu.Lock()
		delete(s.timers, jobID)
		s.mu.Unlock()
		s.runJob(run, jobID)
	})
}

func (s *DeleteScheduler) runOverdue(jobID int64) {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		logger.L().Warnf("Delete scheduler not started, overdue job %d deferred to next recovery", jobID)
		return
	}
	run := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go s.runJob(run, jobID)
}

func (s *DeleteScheduler) runJob(ctx context.Context, jobID int64) {
	defer s.wg.Done()
	if ctx.Err() != nil {
		return
	}

	execCtx, cancel := context.WithTimeout(ctx, executeTimeout)
	defer cancel()
	s.execute(execCtx, jobID)
}

// execute 重新读取任务行后逐条删除消息。
// 无论单条删除是否成功，尝试完所有消息后统一标记完成
func (s *DeleteScheduler) execute(ctx context.Context, jobID int64) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.L().Warnf("Delete job %d vanished before execution", jobID)
			return
		}
		logger.L().Errorf("Failed to load delete job %d: %v", jobID, err)
		return
	}
	if job.Status == models.DeleteJobStatusDone {
		return
	}

	ids, err := job.DecodeMessageIDs()
	if err != nil {
		logger.L().Errorf("Delete job %d has malformed message ids: %v", jobID, err)
		s.markDone(ctx, jobID)
		return
	}

	failed := 0
	for _, msgID := range ids {
		err := s.gateway.DeleteMessage(ctx, job.TargetChatID, msgID)
		if err == nil {
			continue
		}
		// 消息或会话已不存在视为删除成功
		if transport.IsMessageGone(err) || transport.IsChatGone(err) {
			continue
		}
		failed++
		logger.L().Warnf("Failed to delete message: chat_id=%d, msg_id=%d, err=%v", job.TargetChatID, msgID, err)
	}

	s.markDone(ctx, jobID)
	logger.L().Infof("Delete job completed: job_id=%d, messages=%d, failed=%d", jobID, len(ids), failed)
}

func (s *DeleteScheduler) markDone(ctx context.Context, jobID int64) {
	if err := s.jobs.MarkDone(ctx, jobID); err != nil {
		logger.L().Errorf("Failed to mark delete job %d done: %v", jobID, err)
	}
}
