package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ForecastDebate/internal/api"
	"ForecastDebate/internal/app"
	"ForecastDebate/internal/config"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 加载配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 2. 初始化日志
	logger := cfg.Log.NewLogger()
	logger.Info("配置文件加载成功")

	// 3. 数据库 + 外部服务 + 辩论服务
	a, err := app.Build(cfg, logger)
	if err != nil {
		logger.Fatalf("初始化失败: %v", err)
	}
	defer a.Close()

	// 4. 配置Gin运行模式（从配置读取：debug/release）
	gin.SetMode(cfg.Server.Mode)
	r := api.NewRouter(a.Service, cfg, a.MarketSource, logger)
	logger.Infof("Gin运行模式: %s", cfg.Server.Mode)

	// 5. 启动服务（从配置读取端口）
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}
	go func() {
		logger.Infof("服务启动成功，端口：%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("启动服务失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("正在关闭服务…")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("服务强制关闭")
	}
	logger.Info("服务已退出")
}
