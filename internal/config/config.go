package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（对应 config/config.yaml）
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`    // 服务器配置
	Database  DatabaseConfig            `mapstructure:"database"`  // 数据库配置
	Debate    DebateConfig              `mapstructure:"debate"`    // 辩论调度配置
	Providers map[string]ProviderConfig `mapstructure:"providers"` // 外部服务（模型/摘要/语音/市场）独立配置
	Storage   StorageConfig             `mapstructure:"storage"`   // 本地存储
	Log       LogConfig                 `mapstructure:"log"`       // 日志
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port        int      `mapstructure:"port"`         // 服务端口
	Mode        string   `mapstructure:"mode"`         // Gin运行模式：debug/release/test
	CORSOrigins []string `mapstructure:"cors_origins"` // 允许的前端来源
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`            // postgres / sqlite
	DSN             string        `mapstructure:"dsn"`               // 连接DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogSQL          bool          `mapstructure:"log_sql"`           // 是否打印SQL
}

// DebateConfig 辩论调度相关参数
type DebateConfig struct {
	MaxModels           int           `mapstructure:"max_models"`            // 单场最多参与模型数
	MaxRounds           int           `mapstructure:"max_rounds"`            // 最大轮数
	KeepAliveInterval   time.Duration `mapstructure:"keepalive_interval"`    // 事件流保活间隔
	SummaryPollInterval time.Duration `mapstructure:"summary_poll_interval"` // 摘要锁轮询间隔
	SummaryMaxWait      time.Duration `mapstructure:"summary_max_wait"`      // 摘要锁最长等待，超时强制生成
	ModelTimeout        time.Duration `mapstructure:"model_timeout"`         // 单次模型调用超时
	StrictPredictions   bool          `mapstructure:"strict_predictions"`    // 丢弃无法匹配的预测选项
}

// ProviderConfig 单个外部服务的独立配置
type ProviderConfig struct {
	BaseURL    string `mapstructure:"base_url"`    // API基础地址
	Timeout    int    `mapstructure:"timeout"`     // 请求超时（秒）
	RetryCount int    `mapstructure:"retry_count"` // 429 重试次数
	AuthToken  string `mapstructure:"auth_token"`  // API Key
	Model      string `mapstructure:"model"`       // 默认模型（gemini 摘要 / elevenlabs 语音模型）
	Referer    string `mapstructure:"referer"`     // OpenRouter HTTP-Referer
	Proxy      string `mapstructure:"proxy"`       // 代理地址
}

// StorageConfig 本地文件存储
type StorageConfig struct {
	AudioDir string `mapstructure:"audio_dir"` // mp3 输出目录
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug/info/warn/error
	Format string `mapstructure:"format"` // text/json
}

// 外部服务名称
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderElevenLabs = "elevenlabs"
	ProviderPolymarket = "polymarket"
)

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在）
	_ = godotenv.Load()

	// 2. 读取 config.yaml，文件不存在时全部走默认值
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "storage/forecastdebate.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("debate.max_models", 10)
	v.SetDefault("debate.max_rounds", 10)
	v.SetDefault("debate.keepalive_interval", 5*time.Second)
	v.SetDefault("debate.summary_poll_interval", 500*time.Millisecond)
	v.SetDefault("debate.summary_max_wait", 30*time.Second)
	v.SetDefault("debate.model_timeout", 60*time.Second)

	v.SetDefault("providers.openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("providers.openrouter.timeout", 60)
	v.SetDefault("providers.openrouter.retry_count", 3)
	v.SetDefault("providers.openrouter.referer", "http://localhost:3000")
	v.SetDefault("providers.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("providers.gemini.timeout", 60)
	v.SetDefault("providers.gemini.model", "gemini-2.5-flash")
	v.SetDefault("providers.elevenlabs.base_url", "https://api.elevenlabs.io/v1")
	v.SetDefault("providers.elevenlabs.timeout", 30)
	v.SetDefault("providers.elevenlabs.model", "eleven_turbo_v2")
	v.SetDefault("providers.polymarket.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("providers.polymarket.timeout", 10)

	v.SetDefault("storage.audio_dir", "storage/audio")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	envKeys := map[string]string{
		ProviderOpenRouter: "OPENROUTER_API_KEY",
		ProviderGemini:     "GEMINI_API_KEY",
		ProviderElevenLabs: "ELEVENLABS_API_KEY",
	}
	for name, key := range envKeys {
		p := cfg.Providers[name]
		if v := os.Getenv(key); v != "" {
			p.AuthToken = v
		}
		if v := os.Getenv(strings.ToUpper(name) + "_PROXY"); v != "" {
			p.Proxy = v
		}
		cfg.Providers[name] = p
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		p := cfg.Providers[ProviderGemini]
		p.Model = v
		cfg.Providers[ProviderGemini] = p
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, v)
	}
}

// Validate 校验关键配置
func (c *Config) Validate() error {
	var errs []string
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver 不支持: %q", c.Database.Driver))
	}
	if c.Debate.MaxRounds < 1 {
		errs = append(errs, "debate.max_rounds 必须 >= 1")
	}
	if c.Debate.MaxModels < 1 {
		errs = append(errs, "debate.max_models 必须 >= 1")
	}
	if c.Debate.KeepAliveInterval <= 0 {
		errs = append(errs, "debate.keepalive_interval 必须 > 0")
	}
	if len(errs) > 0 {
		return fmt.Errorf("配置校验失败: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Provider 取外部服务配置，不存在时返回零值
func (c *Config) Provider(name string) ProviderConfig {
	if c == nil || c.Providers == nil {
		return ProviderConfig{}
	}
	return c.Providers[name]
}

// NewLogger 按配置创建 logrus 日志器
func (l LogConfig) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if l.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
