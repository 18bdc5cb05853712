package service

import (
	"errors"

	"ForecastDebate/internal/interfaces"
	"ForecastDebate/internal/repository"
)

var (
	// ErrDebateNotFound 辩论不存在
	ErrDebateNotFound = repository.ErrDebateNotFound
	// ErrMarketNotFound 市场不存在
	ErrMarketNotFound = interfaces.ErrMarketNotFound
	// ErrMarketUnavailable 市场数据源请求失败
	ErrMarketUnavailable = errors.New("market provider unavailable")
	// ErrNoValidOutcomes 过滤后没有任何可用选项
	ErrNoValidOutcomes = errors.New("no valid outcomes after filtering placeholders")
	// ErrNoPredictions 模型没有给出任何可用预测
	ErrNoPredictions = errors.New("no usable predictions in model response")
	// ErrSummaryUnavailable 摘要服务不可用或生成失败
	ErrSummaryUnavailable = errors.New("summary unavailable")
	// ErrDebateRunning 同一场辩论已有调度在执行
	ErrDebateRunning = errors.New("debate is already running")
	// ErrInvalidTransition 当前状态不允许该操作
	ErrInvalidTransition = errors.New("invalid debate status transition")
	// ErrDebateNotCompleted 结果只对已完成的辩论开放
	ErrDebateNotCompleted = errors.New("debate not completed")
	// ErrInvalidRequest 创建参数不合法
	ErrInvalidRequest = errors.New("invalid debate request")
)
