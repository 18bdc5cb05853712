package app

import (
	"fmt"

	"ForecastDebate/internal/adapter"
	"ForecastDebate/internal/adapter/elevenlabs"
	"ForecastDebate/internal/adapter/gemini"
	"ForecastDebate/internal/adapter/openrouter"
	_ "ForecastDebate/internal/adapter/polymarket" // 注册 polymarket 工厂
	"ForecastDebate/internal/config"
	"ForecastDebate/internal/database"
	"ForecastDebate/internal/interfaces"
	"ForecastDebate/internal/repository"
	"ForecastDebate/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App 服务端与命令行共用的依赖组装结果
type App struct {
	DB           *gorm.DB
	Service      *service.DebateService
	MarketSource string
}

// Build 连接数据库、迁移表结构、按配置实例化外部服务并组装 DebateService
func Build(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("数据库表结构迁移失败: %w", err)
	}
	logger.Info("数据库表结构检查完成（不存在则已创建）")

	registry := adapter.NewProviderRegistry(cfg, logger)
	markets, err := registry.Get(config.ProviderPolymarket)
	if err != nil {
		return nil, err
	}

	llm := openrouter.NewClient(cfg.Provider(config.ProviderOpenRouter), logger)
	summarizer := gemini.NewClient(cfg.Provider(config.ProviderGemini), logger)

	var tts interfaces.SpeechSynthesizer
	if ttsCfg := cfg.Provider(config.ProviderElevenLabs); ttsCfg.AuthToken != "" {
		tts = elevenlabs.NewClient(ttsCfg, cfg.Storage.AudioDir, logger)
	} else {
		logger.Warn("未配置 ELEVENLABS_API_KEY，消息不生成音频")
	}

	repo := repository.NewDebateRepository(db)
	svc := service.NewDebateService(repo, markets, llm, tts, summarizer, cfg.Debate, logger)
	return &App{DB: db, Service: svc, MarketSource: markets.GetName()}, nil
}

// Close 关闭数据库连接
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
