package interfaces

import (
	"context"
	"errors"

	"ForecastDebate/internal/model"
)

// TurnRequest 单个参与者一次发言所需的全部输入
type TurnRequest struct {
	Participant model.DebateParticipant
	Question    string
	Description string
	Outcomes    []model.Outcome // 已过滤占位选项
	Context     []model.Message // 之前的全部发言，按 sequence 升序
	Round       int
	Rounds      int
	IsFinal     bool
}

// TurnResponse 模型返回的论点与原始预测（未归一化）
type TurnResponse struct {
	Argument    string
	Predictions map[string]float64
}

// LanguageModel 辩论参与者背后的语言模型
type LanguageModel interface {
	GenerateTurn(ctx context.Context, req *TurnRequest) (*TurnResponse, error)
}

// SpeechSynthesizer 语音合成，失败不影响发言
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, participant model.DebateParticipant, messageID string) (audioURL string, duration float64, err error)
}

// SummaryRequest 生成共识摘要的输入
type SummaryRequest struct {
	Question     string
	Description  string
	Outcomes     []model.Outcome
	Messages     []model.Message
	Participants []model.DebateParticipant
}

// Summarizer 返回 (nil, nil) 表示摘要服务不可用
type Summarizer interface {
	Summarize(ctx context.Context, req *SummaryRequest) (*model.DebateSummary, error)
}

// ErrMarketNotFound 市场数据源中不存在该市场
var ErrMarketNotFound = errors.New("market not found")

// MarketProvider 预测市场数据源
type MarketProvider interface {
	GetName() string
	FetchMarket(ctx context.Context, marketID string) (*model.Market, error)
}
