package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ForecastDebate/internal/interfaces"
	"ForecastDebate/internal/model"
	"ForecastDebate/internal/repository"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// TurnErrorKind 单回合失败的类别（对应 error 事件的 error 字段）
type TurnErrorKind string

const (
	TurnModelError    TurnErrorKind = "model_error"
	TurnEmptyResponse TurnErrorKind = "empty_response"
	TurnNoPredictions TurnErrorKind = "no_predictions"
	TurnPersistError  TurnErrorKind = "persist_error"
	TurnCancelled     TurnErrorKind = "cancelled"
)

// TurnError 单个参与者的回合失败，调度器吸收后继续下一个参与者
type TurnError struct {
	ParticipantID   string
	ParticipantName string
	Round           int
	Kind            TurnErrorKind
	Cause           error
}

func (e *TurnError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s 第 %d 轮发言失败: %s", e.ParticipantID, e.Round, e.Kind)
	}
	return fmt.Sprintf("%s 第 %d 轮发言失败: %s: %v", e.ParticipantID, e.Round, e.Kind, e.Cause)
}

func (e *TurnError) Unwrap() error { return e.Cause }

// Message error 事件里给人看的说明，保证非空
func (e *TurnError) Message() string {
	if e.Cause != nil && strings.TrimSpace(e.Cause.Error()) != "" {
		return e.Cause.Error()
	}
	return strings.ReplaceAll(string(e.Kind), "_", " ")
}

// TurnExecutor 执行单个参与者的一次发言：构建上下文、调用模型、归一化预测、落库、语音合成
type TurnExecutor struct {
	repo         repository.DebateRepository
	llm          interfaces.LanguageModel
	tts          interfaces.SpeechSynthesizer
	logger       *logrus.Logger
	strict       bool
	modelTimeout time.Duration
	now          func() time.Time
}

// NewTurnExecutor tts 可为 nil（不生成语音）
func NewTurnExecutor(repo repository.DebateRepository, llm interfaces.LanguageModel, tts interfaces.SpeechSynthesizer, logger *logrus.Logger, strict bool, modelTimeout time.Duration) *TurnExecutor {
	return &TurnExecutor{
		repo:         repo,
		llm:          llm,
		tts:          tts,
		logger:       logger,
		strict:       strict,
		modelTimeout: modelTimeout,
		now:          time.Now,
	}
}

// Execute 成功时把消息追加到 debate.Messages 并返回；失败一律返回 *TurnError
func (e *TurnExecutor) Execute(ctx context.Context, debate *model.Debate, outcomes []model.Outcome, p model.DebateParticipant, round int) (*model.Message, error) {
	fail := func(kind TurnErrorKind, cause error) (*model.Message, error) {
		if ctx.Err() != nil {
			kind, cause = TurnCancelled, ctx.Err()
		}
		return nil, &TurnError{ParticipantID: p.ModelID, ParticipantName: p.ModelName, Round: round, Kind: kind, Cause: cause}
	}

	history := make([]model.Message, len(debate.Messages))
	copy(history, debate.Messages)

	req := &interfaces.TurnRequest{
		Participant: p,
		Question:    debate.MarketQuestion,
		Description: debate.MarketDescription,
		Outcomes:    outcomes,
		Context:     history,
		Round:       round,
		Rounds:      debate.Rounds,
		IsFinal:     round == debate.Rounds,
	}

	callCtx := ctx
	if e.modelTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.modelTimeout)
		defer cancel()
	}
	resp, err := e.llm.GenerateTurn(callCtx, req)
	if err != nil {
		return fail(TurnModelError, err)
	}
	if resp == nil || strings.TrimSpace(resp.Argument) == "" {
		return fail(TurnEmptyResponse, errors.New("模型返回内容为空"))
	}

	norm := NormalizePredictions(resp.Predictions, model.Names(outcomes), e.strict)
	fields := logrus.Fields{"debate_id": debate.DebateID, "model_id": p.ModelID, "round": round}
	if len(norm.Missing) > 0 {
		e.logger.WithFields(fields).WithField("missing", norm.Missing).Warn("模型预测缺少部分选项")
	}
	if len(norm.Unmatched) > 0 {
		e.logger.WithFields(fields).WithField("unmatched", norm.Unmatched).Warn("模型预测包含无法匹配的选项")
	}
	if len(norm.Predictions) == 0 || norm.Sum() == 0 {
		return fail(TurnNoPredictions, ErrNoPredictions)
	}

	msg := model.Message{
		MessageID:       ulid.Make().String(),
		DebateID:        debate.DebateID,
		Round:           round,
		Sequence:        len(debate.Messages) + 1,
		ParticipantID:   p.ModelID,
		ParticipantName: p.ModelName,
		Kind:            model.KindForRound(round, debate.Rounds),
		Text:            strings.TrimSpace(resp.Argument),
		Predictions:     model.EncodePredictions(norm.Predictions),
		Timestamp:       e.now().UTC(),
	}
	if err := e.repo.AppendMessage(ctx, &msg); err != nil {
		return fail(TurnPersistError, fmt.Errorf("保存消息失败: %w", err))
	}

	e.attachSpeech(ctx, &msg, p, fields)
	debate.Messages = append(debate.Messages, msg)
	return &msg, nil
}

// attachSpeech 语音合成失败只记日志，消息照常发出
func (e *TurnExecutor) attachSpeech(ctx context.Context, msg *model.Message, p model.DebateParticipant, fields logrus.Fields) {
	if e.tts == nil {
		return
	}
	url, duration, err := e.tts.Synthesize(ctx, msg.Text, p, msg.MessageID)
	if err != nil {
		e.logger.WithError(err).WithFields(fields).Warn("语音合成失败，消息不带音频")
		return
	}
	if url == "" {
		return
	}
	if err := e.repo.AttachAudio(ctx, msg.MessageID, url, duration); err != nil {
		e.logger.WithError(err).WithFields(fields).Warn("保存音频信息失败")
		return
	}
	msg.AudioURL = &url
	msg.AudioDuration = &duration
}
