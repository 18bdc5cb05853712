package api

import (
	"net/url"
	"time"

	"ForecastDebate/internal/config"
	"ForecastDebate/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter 注册全部路由；marketSource 为当前市场数据源名称
func NewRouter(svc *service.DebateService, cfg *config.Config, marketSource string, logger *logrus.Logger) *gin.Engine {
	r := gin.Default()

	// 注册pprof 方便调试和监测性能问题
	pprof.Register(r)

	corsCfg := cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))

	debateHandler := NewDebateHandler(svc, cfg.Debate.KeepAliveInterval, originHosts(cfg.Server.CORSOrigins), logger)
	marketHandler := NewMarketHandler(svc, marketSource, logger)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", marketHandler.Health)
		apiGroup.GET("/markets/:market_id", marketHandler.GetMarket)

		apiGroup.GET("/debates", debateHandler.ListDebates)
		apiGroup.POST("/debate/start", debateHandler.StartDebate)
		apiGroup.GET("/debate/:debate_id", debateHandler.GetDebate)
		apiGroup.GET("/debate/:debate_id/stream", debateHandler.StreamDebate)
		apiGroup.GET("/debate/:debate_id/ws", debateHandler.StreamDebateWS)
		apiGroup.POST("/debate/:debate_id/pause", debateHandler.PauseDebate)
		apiGroup.POST("/debate/:debate_id/resume", debateHandler.ResumeDebate)
		apiGroup.POST("/debate/:debate_id/stop", debateHandler.StopDebate)
		apiGroup.GET("/debate/:debate_id/results", debateHandler.GetResults)
	}
	if cfg.Storage.AudioDir != "" {
		r.Static("/api/audio", cfg.Storage.AudioDir)
	}
	return r
}

// originHosts CORS 来源转为 WebSocket OriginPatterns 需要的 host[:port]
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
