package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"

	"vaultbot/internal/logger"
	"vaultbot/internal/telegram/service"
	"vaultbot/internal/telegram/transport"
)

// Config Telegram Bot 配置
type Config struct {
	Token   string // Bot Token
	OwnerID int64  // 操作者用户 ID
}

// SnapshotManager 数据库快照的手动入口
type SnapshotManager interface {
	Backup(ctx context.Context) error
	Restore(ctx context.Context) (bool, error)
}

// Services handler 层依赖的全部业务服务。
// 在 Start 之前通过 Attach 注入；传输层先于数据库就绪，
// 这样启动时才能在打开数据库之前从快照频道恢复
type Services struct {
	Users     service.UserService
	Settings  service.SettingsService
	Sessions  service.SessionService
	Delivery  service.DeliveryService
	Uploads   service.UploadService
	Broadcast service.BroadcastService
	Snapshot  SnapshotManager
}

// Bot Telegram Bot 服务
type Bot struct {
	bot      *bot.Bot
	cfg      Config
	gateway  transport.Gateway
	pool     *WorkerPool
	tracker  *UploadTracker
	services Services
	attached bool
}

// New 创建 Bot 实例并注册全部 handler。
// 业务服务此时尚未注入，轮询开始前必须调用 Attach
func New(cfg Config) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token cannot be empty")
	}
	if cfg.OwnerID == 0 {
		return nil, fmt.Errorf("owner id cannot be empty")
	}

	b := &Bot{
		cfg:     cfg,
		tracker: NewUploadTracker(),
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(b.asyncHandler(b.handleDefault)),
	}
	botInstance, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	// handler 经 b.pool 分发，轮询开始前就绪即可
	b.pool = NewWorkerPool(defaultWorkers, defaultQueueSize)
	b.bot = botInstance
	b.gateway = transport.New(botInstance)
	b.registerHandlers()

	logger.L().Info("Telegram bot initialized successfully")
	return b, nil
}

// Gateway 返回共享的 Telegram 传输层
func (b *Bot) Gateway() transport.Gateway {
	return b.gateway
}

// Attach 注入业务服务，必须在 Start 之前调用
func (b *Bot) Attach(services Services) {
	b.services = services
	b.attached = true
}

// Start 启动长轮询（阻塞，应在 goroutine 中运行）
func (b *Bot) Start(ctx context.Context) error {
	if !b.attached {
		return fmt.Errorf("services not attached")
	}

	logger.L().Info("Starting Telegram bot...")
	b.bot.Start(ctx)
	logger.L().Info("Telegram bot stopped")
	return nil
}

// Shutdown 等待工作池中的任务执行完毕
func (b *Bot) Shutdown() {
	b.pool.Shutdown()
}

// asyncHandler 把 handler 包装为经工作池异步执行
func (b *Bot) asyncHandler(handler bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
		b.pool.Submit(HandlerTask{
			Ctx:         ctx,
			BotInstance: botInstance,
			Update:      update,
			Handler:     handler,
		})
	}
}
