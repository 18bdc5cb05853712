package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ForecastDebate/internal/model"
	"ForecastDebate/internal/repository"
	"ForecastDebate/internal/service"
	"ForecastDebate/internal/stream"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 未传 rounds 时的默认轮数
const defaultRounds = 3

// DebateHandler 辩论创建、查询、事件流与外部控制
type DebateHandler struct {
	svc       *service.DebateService
	keepAlive time.Duration
	wsOrigins []string
	logger    *logrus.Logger
}

// NewDebateHandler wsOrigins 为空时 WebSocket 不校验 Origin
func NewDebateHandler(svc *service.DebateService, keepAlive time.Duration, wsOrigins []string, logger *logrus.Logger) *DebateHandler {
	return &DebateHandler{svc: svc, keepAlive: keepAlive, wsOrigins: wsOrigins, logger: logger}
}

// StartDebate 创建辩论
// POST /api/debate/start {"market_id": "...", "model_ids": ["..."], "rounds": 3}
func (h *DebateHandler) StartDebate(c *gin.Context) {
	req := service.CreateDebateRequest{Rounds: defaultRounds}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Request body is required: "+err.Error())
		return
	}
	res, err := h.svc.CreateDebate(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListDebates 辩论列表
// GET /api/debates?status=completed&market_id=123&page=1&page_size=20
func (h *DebateHandler) ListDebates(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	filter := repository.DebateFilter{
		Status:   c.Query("status"),
		MarketID: c.Query("market_id"),
	}

	debates, total, err := h.svc.ListDebates(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if debates == nil {
		debates = []*model.DebateListItem{}
	}
	c.JSON(http.StatusOK, gin.H{
		"debates":   debates,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetDebate 辩论详情（含全部消息）
// GET /api/debate/:debate_id
func (h *DebateHandler) GetDebate(c *gin.Context) {
	debate, err := h.svc.GetDebate(c.Request.Context(), c.Param("debate_id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, debate)
}

// StreamDebate 运行辩论并以 SSE 推送事件；客户端断开即取消运行
// GET /api/debate/:debate_id/stream
func (h *DebateHandler) StreamDebate(c *gin.Context) {
	debateID := c.Param("debate_id")
	if _, err := h.svc.GetDebate(c.Request.Context(), debateID); err != nil {
		writeError(c, h.logger, err)
		return
	}

	sink := stream.NewSSESink(c.Writer)
	c.Status(http.StatusOK)
	err := stream.Run(c.Request.Context(), sink, h.keepAlive, h.producer(debateID))
	h.logStreamEnd(debateID, "sse", err)
}

// StreamDebateWS 与 StreamDebate 相同的事件流，走 WebSocket
// GET /api/debate/:debate_id/ws
func (h *DebateHandler) StreamDebateWS(c *gin.Context) {
	debateID := c.Param("debate_id")
	if _, err := h.svc.GetDebate(c.Request.Context(), debateID); err != nil {
		writeError(c, h.logger, err)
		return
	}

	opts := &websocket.AcceptOptions{OriginPatterns: h.wsOrigins}
	if len(h.wsOrigins) == 0 {
		opts = &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	conn, err := websocket.Accept(rawWriter(c), c.Request, opts)
	if err != nil {
		h.logger.WithError(err).WithField("debate_id", debateID).Warn("WebSocket握手失败")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	// CloseRead 负责读取 pong / close 帧，对端关闭时 ctx 随之取消
	ctx := conn.CloseRead(c.Request.Context())
	err = stream.Run(ctx, stream.NewWSSink(conn), h.keepAlive, h.producer(debateID))
	h.logStreamEnd(debateID, "ws", err)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "stream error")
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

// rawWriter gin 的 Hijack 在响应被视为已写出后会拒绝，握手需要底层 ResponseWriter
func rawWriter(c *gin.Context) http.ResponseWriter {
	if u, ok := c.Writer.(interface{ Unwrap() http.ResponseWriter }); ok {
		return u.Unwrap()
	}
	return c.Writer
}

func (h *DebateHandler) producer(debateID string) stream.Producer {
	return func(ctx context.Context, emit func(model.StreamEvent)) error {
		return h.svc.Run(ctx, debateID, emit)
	}
}

func (h *DebateHandler) logStreamEnd(debateID, transport string, err error) {
	log := h.logger.WithFields(logrus.Fields{"debate_id": debateID, "transport": transport})
	switch {
	case err == nil:
		log.Info("事件流结束")
	case errors.Is(err, context.Canceled):
		log.Info("客户端断开，辩论运行已取消")
	default:
		log.WithError(err).Warn("事件流异常结束")
	}
}

// PauseDebate POST /api/debate/:debate_id/pause
func (h *DebateHandler) PauseDebate(c *gin.Context) {
	h.control(c, h.svc.Pause)
}

// ResumeDebate POST /api/debate/:debate_id/resume
func (h *DebateHandler) ResumeDebate(c *gin.Context) {
	h.control(c, h.svc.Resume)
}

// StopDebate POST /api/debate/:debate_id/stop
func (h *DebateHandler) StopDebate(c *gin.Context) {
	h.control(c, h.svc.Stop)
}

func (h *DebateHandler) control(c *gin.Context, op func(context.Context, string) (*model.Debate, error)) {
	debate, err := op(c.Request.Context(), c.Param("debate_id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"debate_id":     debate.DebateID,
		"status":        debate.Status,
		"current_round": debate.CurrentRound,
		"completed_at":  debate.CompletedAt,
	})
}

// GetResults 共识摘要、最终预测与统计
// GET /api/debate/:debate_id/results
func (h *DebateHandler) GetResults(c *gin.Context) {
	res, err := h.svc.Results(c.Request.Context(), c.Param("debate_id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
