package app

import (
	"context"
	"fmt"

	"vaultbot/internal/config"
	"vaultbot/internal/health"
	"vaultbot/internal/logger"
	"vaultbot/internal/sqlite"
	"vaultbot/internal/telegram"
	"vaultbot/internal/telegram/backup"
	"vaultbot/internal/telegram/repository"
	"vaultbot/internal/telegram/scheduler"
	"vaultbot/internal/telegram/service"
)

// App 应用服务容器
// 负责所有服务的装配与生命周期（初始化、运行、关闭）
type App struct {
	cfg       *config.Config
	store     *sqlite.Client
	bot       *telegram.Bot
	scheduler *scheduler.DeleteScheduler
	snapshot  *backup.Manager
	health    *health.Server
	settings  service.SettingsService
}

// New 按依赖顺序装配全部服务。
// 传输层必须先于数据库就绪：本地数据文件丢失时要先从快照频道恢复，
// 之后才能打开数据库
func New(cfg *config.Config) (*App, error) {
	tgBot, err := telegram.New(telegram.Config{
		Token:   cfg.BotToken,
		OwnerID: cfg.OwnerID,
	})
	if err != nil {
		return nil, fmt.Errorf("init telegram bot failed: %w", err)
	}
	gateway := tgBot.Gateway()

	// 本地数据库缺失时尝试从快照频道恢复，失败就用全新数据库起步
	snapshot := backup.NewManager(gateway, cfg.BackupChannelID, cfg.DBPath)
	restored, err := snapshot.Restore(context.Background())
	if err != nil {
		logger.L().Errorf("Startup restore failed, continuing with a fresh database: %v", err)
	} else if restored {
		logger.L().Info("Database restored from pinned snapshot")
	}

	store, err := sqlite.NewClient(sqlite.Config{Path: cfg.DBPath})
	if err != nil {
		return nil, fmt.Errorf("init SQLite failed: %w", err)
	}
	snapshot.AttachStore(store)

	userRepo := repository.NewUserRepository(store)
	sessionRepo := repository.NewSessionRepository(store)
	fileRepo := repository.NewFileRepository(store)
	jobRepo := repository.NewDeleteJobRepository(store)
	settingRepo := repository.NewSettingRepository(store)

	deleteScheduler := scheduler.NewDeleteScheduler(gateway, jobRepo)

	settings := service.NewSettingsService(settingRepo)
	gate := service.NewGateService(settings, gateway)
	services := telegram.Services{
		Users:     service.NewUserService(userRepo, sessionRepo, fileRepo),
		Settings:  settings,
		Sessions:  service.NewSessionService(sessionRepo),
		Delivery:  service.NewDeliveryService(sessionRepo, fileRepo, gateway, gate, deleteScheduler, cfg.VaultChannelID),
		Uploads:   service.NewUploadService(sessionRepo, fileRepo, gateway, snapshot, cfg.VaultChannelID),
		Broadcast: service.NewBroadcastService(userRepo, gateway, cfg.BroadcastConcurrency),
		Snapshot:  snapshot,
	}
	tgBot.Attach(services)

	return &App{
		cfg:       cfg,
		store:     store,
		bot:       tgBot,
		scheduler: deleteScheduler,
		snapshot:  snapshot,
		health:    health.New(cfg.Port, store),
		settings:  settings,
	}, nil
}

// Run 启动应用并阻塞到 ctx 取消。
// 启动顺序：删除任务恢复 → 默认配置 → 频道自检 → 健康检查 → 轮询
func (a *App) Run(ctx context.Context) error {
	a.scheduler.Start()
	if err := a.scheduler.RecoverOnStartup(ctx); err != nil {
		logger.L().Errorf("Failed to recover delete jobs: %v", err)
	}

	if err := a.settings.EnsureDefaults(ctx); err != nil {
		logger.L().Warnf("Failed to seed default texts: %v", err)
	}
	if username, err := a.bot.Gateway().Username(ctx); err != nil {
		logger.L().Warnf("Failed to resolve bot username: %v", err)
	} else if err := a.settings.RecordBotUsername(ctx, username); err != nil {
		logger.L().Warnf("Failed to record bot username: %v", err)
	}

	a.verifyChannels(ctx)
	a.health.Start()

	return a.bot.Start(ctx)
}

// verifyChannels 确认两个工作频道可达。
// 失败只记录不中断：频道配置错误要等操作者修复，Bot 其他功能照常
func (a *App) verifyChannels(ctx context.Context) {
	checks := map[string]int64{
		"vault":  a.cfg.VaultChannelID,
		"backup": a.cfg.BackupChannelID,
	}
	for name, id := range checks {
		if _, err := a.bot.Gateway().ResolveChat(ctx, fmt.Sprintf("%d", id)); err != nil {
			logger.L().Errorf("Channel check failed: channel=%s, id=%d, err=%v", name, id, err)
		}
	}
}

// Close 优雅关闭所有服务
func (a *App) Close(ctx context.Context) error {
	// 先停轮询侧的任务消费，再停定时器，最后关数据库
	a.bot.Shutdown()
	a.scheduler.Stop()

	if err := a.health.Shutdown(ctx); err != nil {
		logger.L().Warnf("Health server shutdown: %v", err)
	}

	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close SQLite failed: %w", err)
	}
	return nil
}
