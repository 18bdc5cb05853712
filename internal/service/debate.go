package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ForecastDebate/internal/config"
	"ForecastDebate/internal/interfaces"
	"ForecastDebate/internal/model"
	"ForecastDebate/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DebateService 辩论的创建、查询、外部控制与结果
type DebateService struct {
	repo      repository.DebateRepository
	markets   interfaces.MarketProvider
	state     *DebateStateMachine
	runner    *DebateRunner
	summaries *SummaryCoordinator
	cfg       config.DebateConfig
	logger    *logrus.Logger
}

// NewDebateService 组装调度器、摘要协调器；tts / summarizer 可为 nil
func NewDebateService(
	repo repository.DebateRepository,
	markets interfaces.MarketProvider,
	llm interfaces.LanguageModel,
	tts interfaces.SpeechSynthesizer,
	summarizer interfaces.Summarizer,
	cfg config.DebateConfig,
	logger *logrus.Logger,
) *DebateService {
	s := &DebateService{
		repo:      repo,
		markets:   markets,
		state:     NewDebateStateMachine(repo),
		summaries: NewSummaryCoordinator(repo, summarizer, logger, cfg.SummaryPollInterval, cfg.SummaryMaxWait),
		cfg:       cfg,
		logger:    logger,
	}
	turns := NewTurnExecutor(repo, llm, tts, logger, cfg.StrictPredictions, cfg.ModelTimeout)
	s.runner = NewDebateRunner(repo, turns, s.onCompleted, logger)
	return s
}

// CreateDebateRequest 创建辩论参数
type CreateDebateRequest struct {
	MarketID string   `json:"market_id"`
	ModelIDs []string `json:"model_ids"`
	Rounds   int      `json:"rounds"`
}

// MarketInfo 创建结果中的市场信息
type MarketInfo struct {
	ID          string          `json:"id"`
	Question    string          `json:"question"`
	Description string          `json:"description"`
	Outcomes    []model.Outcome `json:"outcomes"`
}

// CreateDebateResult 创建辩论返回
type CreateDebateResult struct {
	DebateID              string                    `json:"debate_id"`
	Status                model.DebateStatus        `json:"status"`
	Market                MarketInfo                `json:"market"`
	Models                []model.DebateParticipant `json:"models"`
	Rounds                int                       `json:"rounds"`
	TotalMessagesExpected int                       `json:"total_messages_expected"`
	CreatedAt             time.Time                 `json:"created_at"`
	StreamURL             string                    `json:"stream_url"`
}

// DebateResults 已完成辩论的结果
type DebateResults struct {
	DebateID         string                           `json:"debate_id"`
	Status           model.DebateStatus               `json:"status"`
	MarketQuestion   string                           `json:"market_question"`
	Outcomes         []model.Outcome                  `json:"outcomes"`
	Summary          *model.DebateSummary             `json:"summary"`
	SummaryError     string                           `json:"summary_error,omitempty"`
	FinalPredictions map[string]model.FinalPrediction `json:"final_predictions"`
	Statistics       DebateStatistics                 `json:"statistics"`
}

// Validate 校验创建参数
func (r *CreateDebateRequest) Validate(cfg config.DebateConfig) error {
	if strings.TrimSpace(r.MarketID) == "" {
		return fmt.Errorf("%w: market_id is required", ErrInvalidRequest)
	}
	if len(r.ModelIDs) == 0 {
		return fmt.Errorf("%w: model_ids must be a non-empty array", ErrInvalidRequest)
	}
	if cfg.MaxModels > 0 && len(r.ModelIDs) > cfg.MaxModels {
		return fmt.Errorf("%w: maximum %d models allowed per debate", ErrInvalidRequest, cfg.MaxModels)
	}
	if r.Rounds < 1 || (cfg.MaxRounds > 0 && r.Rounds > cfg.MaxRounds) {
		return fmt.Errorf("%w: rounds must be between 1 and %d", ErrInvalidRequest, cfg.MaxRounds)
	}
	seen := make(map[string]bool, len(r.ModelIDs))
	for _, id := range r.ModelIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return fmt.Errorf("%w: model id must not be empty", ErrInvalidRequest)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate model id %q", ErrInvalidRequest, id)
		}
		seen[id] = true
	}
	return nil
}

// CreateDebate 拉取市场、过滤选项、写入 initialized 辩论
func (s *DebateService) CreateDebate(ctx context.Context, req CreateDebateRequest) (*CreateDebateResult, error) {
	if err := req.Validate(s.cfg); err != nil {
		return nil, err
	}

	market, err := s.fetchMarket(ctx, req.MarketID)
	if err != nil {
		return nil, err
	}
	outcomes, err := FilterOutcomes(market.Outcomes)
	if err != nil {
		return nil, err
	}

	debate := &model.Debate{
		DebateID:          uuid.NewString(),
		Status:            model.StatusInitialized,
		MarketID:          req.MarketID,
		MarketQuestion:    market.Question,
		MarketDescription: market.Description,
		Rounds:            req.Rounds,
	}
	for _, id := range req.ModelIDs {
		name, provider := ParticipantInfo(strings.TrimSpace(id))
		debate.Participants = append(debate.Participants, model.DebateParticipant{
			ModelID:   strings.TrimSpace(id),
			ModelName: name,
			Provider:  provider,
		})
	}
	for _, o := range outcomes {
		debate.Outcomes = append(debate.Outcomes, model.DebateOutcome{
			Name:           o.Name,
			Price:          o.Price,
			Volume:         o.Volume,
			Shares:         o.Shares,
			PriceChange24h: o.PriceChange24h,
			Liquidity:      o.Liquidity,
		})
	}
	if err := s.repo.Create(ctx, debate); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"debate_id": debate.DebateID,
		"market_id": req.MarketID,
		"models":    len(req.ModelIDs),
		"rounds":    req.Rounds,
	}).Info("辩论已创建")

	return &CreateDebateResult{
		DebateID: debate.DebateID,
		Status:   debate.Status,
		Market: MarketInfo{
			ID:          req.MarketID,
			Question:    market.Question,
			Description: market.Description,
			Outcomes:    outcomes,
		},
		Models:                debate.Participants,
		Rounds:                debate.Rounds,
		TotalMessagesExpected: debate.Rounds * len(debate.Participants),
		CreatedAt:             debate.CreatedAt,
		StreamURL:             fmt.Sprintf("/api/debate/%s/stream", debate.DebateID),
	}, nil
}

// PreviewMarket 拉取市场并过滤占位选项
func (s *DebateService) PreviewMarket(ctx context.Context, marketID string) (*model.Market, error) {
	market, err := s.fetchMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	outcomes, err := FilterOutcomes(market.Outcomes)
	if err != nil {
		return nil, err
	}
	market.Outcomes = outcomes
	return market, nil
}

// fetchMarket 除 ErrMarketNotFound 外的数据源错误统一包装为 ErrMarketUnavailable
func (s *DebateService) fetchMarket(ctx context.Context, marketID string) (*model.Market, error) {
	market, err := s.markets.FetchMarket(ctx, marketID)
	if err != nil {
		if errors.Is(err, ErrMarketNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMarketUnavailable, err)
	}
	return market, nil
}

func (s *DebateService) GetDebate(ctx context.Context, debateID string) (*model.Debate, error) {
	return s.repo.GetByID(ctx, debateID)
}

func (s *DebateService) ListDebates(ctx context.Context, filter repository.DebateFilter, page, pageSize int) ([]*model.DebateListItem, int64, error) {
	return s.repo.List(ctx, filter, page, pageSize)
}

// Run 运行辩论，事件按顺序交给 emit
func (s *DebateService) Run(ctx context.Context, debateID string, emit Emitter) error {
	return s.runner.Run(ctx, debateID, emit)
}

func (s *DebateService) Pause(ctx context.Context, debateID string) (*model.Debate, error) {
	return s.control(ctx, debateID, s.state.Pause)
}

func (s *DebateService) Resume(ctx context.Context, debateID string) (*model.Debate, error) {
	return s.control(ctx, debateID, s.state.Resume)
}

func (s *DebateService) Stop(ctx context.Context, debateID string) (*model.Debate, error) {
	return s.control(ctx, debateID, s.state.Stop)
}

func (s *DebateService) control(ctx context.Context, debateID string, op func(context.Context, string) error) (*model.Debate, error) {
	if err := op(ctx, debateID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, debateID)
}

// Results 摘要、最终预测与统计。摘要不可用时其余结果照常返回
func (s *DebateService) Results(ctx context.Context, debateID string) (*DebateResults, error) {
	debate, err := s.repo.GetByID(ctx, debateID)
	if err != nil {
		return nil, err
	}
	if debate.Status != model.StatusCompleted {
		return nil, fmt.Errorf("%w: status %s", ErrDebateNotCompleted, debate.Status)
	}

	res := &DebateResults{
		DebateID:       debate.DebateID,
		Status:         debate.Status,
		MarketQuestion: debate.MarketQuestion,
		Outcomes:       debate.OutcomeList(),
		Statistics:     ComputeStatistics(debate),
	}

	summary, err := s.summaries.Resolve(ctx, debateID)
	switch {
	case err == nil:
		res.Summary = summary
	case errors.Is(err, ErrSummaryUnavailable):
		res.SummaryError = err.Error()
	default:
		return nil, err
	}

	preds, err := ResolveFinalPredictions(ctx, s.repo, debate)
	if err != nil {
		return nil, err
	}
	res.FinalPredictions = preds
	return res, nil
}

// onCompleted 调度器在发出 debate_complete 之前调用；失败只记日志
func (s *DebateService) onCompleted(ctx context.Context, debate *model.Debate) {
	log := s.logger.WithField("debate_id", debate.DebateID)
	if _, err := s.summaries.Resolve(ctx, debate.DebateID); err != nil {
		log.WithError(err).Warn("生成共识摘要失败")
	}
	if _, err := ResolveFinalPredictions(ctx, s.repo, debate); err != nil {
		log.WithError(err).Warn("计算最终预测失败")
	}
}

// ParticipantInfo 由 "provider/model-name" 推导展示名与提供方
func ParticipantInfo(modelID string) (name, provider string) {
	parts := strings.SplitN(modelID, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return modelID, "Unknown"
	}
	return titleWords(strings.ReplaceAll(parts[1], "-", " ")), titleWords(parts[0])
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
