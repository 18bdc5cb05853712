package api

import (
	"errors"
	"net/http"

	"ForecastDebate/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// apiErrors 业务错误 -> HTTP 状态码与错误码
var apiErrors = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{service.ErrDebateNotFound, http.StatusNotFound, "debate_not_found"},
	{service.ErrMarketNotFound, http.StatusNotFound, "market_not_found"},
	{service.ErrNoValidOutcomes, http.StatusUnprocessableEntity, "no_valid_outcomes"},
	{service.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{service.ErrDebateNotCompleted, http.StatusConflict, "debate_not_completed"},
	{service.ErrDebateRunning, http.StatusConflict, "debate_running"},
	{service.ErrMarketUnavailable, http.StatusServiceUnavailable, "external_api_error"},
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// writeError 未知错误按 500 internal_error 返回并记录日志
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	for _, e := range apiErrors {
		if errors.Is(err, e.err) {
			respondError(c, e.status, e.code, err.Error())
			return
		}
	}
	logger.WithError(err).WithField("path", c.FullPath()).Error("请求处理失败")
	respondError(c, http.StatusInternalServerError, "internal_error", err.Error())
}
