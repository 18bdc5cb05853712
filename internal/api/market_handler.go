package api

import (
	"net/http"
	"time"

	"ForecastDebate/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Version 对外展示的服务版本
const Version = "1.0.0"

// MarketHandler 提供给前端的市场预览接口
type MarketHandler struct {
	svc    *service.DebateService
	source string
	logger *logrus.Logger
}

// NewMarketHandler source 为市场数据源名称（健康检查展示用）
func NewMarketHandler(svc *service.DebateService, source string, logger *logrus.Logger) *MarketHandler {
	return &MarketHandler{svc: svc, source: source, logger: logger}
}

// GetMarket 市场详情，占位选项已过滤
// GET /api/markets/:market_id
func (h *MarketHandler) GetMarket(c *gin.Context) {
	market, err := h.svc.PreviewMarket(c.Request.Context(), c.Param("market_id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, market)
}

// Health GET /api/health
func (h *MarketHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"version":       Version,
		"market_source": h.source,
	})
}
