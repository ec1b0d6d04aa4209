package telegram

import (
	"context"
	"sync"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"

	"vaultbot/internal/logger"
)

// 工作池默认规模：投递一个会话可能要发几十条消息，handler 不能占住轮询循环
const (
	defaultWorkers   = 8
	defaultQueueSize = 256
)

// HandlerTask 待执行的 handler 调用
type HandlerTask struct {
	Ctx         context.Context
	BotInstance *bot.Bot
	Update      *botModels.Update
	Handler     bot.HandlerFunc
}

// WorkerPool Handler 工作池
// 轮询循环只负责投递任务，实际处理在固定数量的 worker 里进行
type WorkerPool struct {
	taskQueue chan HandlerTask
	wg        sync.WaitGroup
}

// NewWorkerPool 创建并启动工作池
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers < 1 {
		workers = defaultWorkers
	}
	if queueSize < 1 {
		queueSize = defaultQueueSize
	}

	pool := &WorkerPool{
		taskQueue: make(chan HandlerTask, queueSize),
	}
	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	logger.L().Infof("Worker pool started with %d workers, queue size %d", workers, queueSize)
	return pool
}

// worker 工作协程
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for task := range p.taskQueue {
		p.runTask(id, task)
	}

	logger.L().Debugf("Worker %d stopped", id)
}

// runTask 执行单个任务，panic 不能带垮整个池子
func (p *WorkerPool) runTask(id int, task HandlerTask) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Errorf("Worker %d: handler panic recovered: %v", id, r)
			p.notifyFailure(task)
		}
	}()

	task.Handler(task.Ctx, task.BotInstance, task.Update)
}

// notifyFailure panic 后尽量给用户一个答复，按钮点击要单独应答才会停止转圈
func (p *WorkerPool) notifyFailure(task HandlerTask) {
	if task.Update.CallbackQuery != nil {
		_, _ = task.BotInstance.AnswerCallbackQuery(task.Ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: task.Update.CallbackQuery.ID,
			Text:            "❌ 服务器内部错误，请稍后重试",
		})
		return
	}
	if task.Update.Message != nil {
		_, _ = task.BotInstance.SendMessage(task.Ctx, &bot.SendMessageParams{
			ChatID: task.Update.Message.Chat.ID,
			Text:   "❌ 服务器内部错误，请稍后重试",
		})
	}
}

// Submit 提交任务，队列满时丢弃并记录
func (p *WorkerPool) Submit(task HandlerTask) {
	select {
	case p.taskQueue <- task:
	default:
		logger.L().Warnf("Worker pool queue is full, update %d dropped", task.Update.ID)
	}
}

// Shutdown 关闭队列并等待所有 worker 退出
func (p *WorkerPool) Shutdown() {
	logger.L().Info("Shutting down worker pool...")
	close(p.taskQueue)
	p.wg.Wait()
	logger.L().Info("Worker pool shut down")
}
