package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"vaultbot/internal/app"
	"vaultbot/internal/config"
	"vaultbot/internal/logger"
)

func main() {
	// 先加载 .env，让 LOG_LEVEL / LOG_FILE 在 logger 初始化前生效
	envErr := godotenv.Load()

	// 初始化logger
	logger.Init()
	if envErr != nil {
		logger.L().Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatalf("配置加载失败: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		logger.L().Fatalf("应用初始化失败: %v", err)
	}

	// SIGINT / SIGTERM 触发优雅退出
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.L().Errorf("Bot stopped with error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := application.Close(shutdownCtx); err != nil {
		logger.L().Errorf("Shutdown finished with error: %v", err)
	}
	logger.L().Info("Bot stopped")
}
