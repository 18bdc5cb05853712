package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"ForecastDebate/internal/model"
	"ForecastDebate/internal/repository"

	"github.com/sirupsen/logrus"
)

// Emitter 接收调度器按生成顺序产出的事件
type Emitter func(ev model.StreamEvent)

type persistOp string

const (
	opStart    persistOp = "start"
	opRound    persistOp = "round"
	opMessage  persistOp = "message"
	opComplete persistOp = "complete"
)

type persistPolicy int

const (
	policyFatal  persistPolicy = iota // 终止运行并发出 error 事件
	policyLog                         // 只记日志，继续
	policyReport                      // 发出 error 事件，继续
)

// persistencePolicy 调度器各持久化步骤失败时的处理方式
var persistencePolicy = map[persistOp]persistPolicy{
	opStart:    policyFatal,
	opRound:    policyLog,
	opMessage:  policyReport,
	opComplete: policyLog,
}

// CompletionHook 辩论完成后、debate_complete 发出前执行（摘要与最终预测）
type CompletionHook func(ctx context.Context, debate *model.Debate)

// DebateRunner 轮次调度器：按轮次、按参与者固定顺序串行执行回合。
// 同一场辩论同一时刻只允许一个 Run，active 记录正在运行的 debate_id
type DebateRunner struct {
	active sync.Map
	repo   repository.DebateRepository
	state  *DebateStateMachine
	turns  *TurnExecutor
	onDone CompletionHook
	logger *logrus.Logger
	now    func() time.Time
}

// NewDebateRunner onDone 可为 nil
func NewDebateRunner(repo repository.DebateRepository, turns *TurnExecutor, onDone CompletionHook, logger *logrus.Logger) *DebateRunner {
	return &DebateRunner{
		repo:   repo,
		state:  NewDebateStateMachine(repo),
		turns:  turns,
		onDone: onDone,
		logger: logger,
		now:    time.Now,
	}
}

// Run 运行（或从最后一条已落库消息之后继续）一场辩论。
// ctx 取消时立即返回 ctx.Err()，库中保留最后一次持久化的状态。
func (r *DebateRunner) Run(ctx context.Context, debateID string, emit Emitter) error {
	log := r.logger.WithField("debate_id", debateID)

	if _, running := r.active.LoadOrStore(debateID, struct{}{}); running {
		log.Warn("辩论已在运行，拒绝重复调度")
		emit(model.NewErrorEvent(nil, "debate_running", ErrDebateRunning.Error(), r.now()))
		return ErrDebateRunning
	}
	defer r.active.Delete(debateID)

	debate, err := r.repo.GetByID(ctx, debateID)
	if err != nil {
		emit(model.NewErrorEvent(nil, "debate_not_found", err.Error(), r.now()))
		return err
	}

	switch debate.Status {
	case model.StatusCompleted, model.StatusStopped, model.StatusPaused:
		emit(model.NewDebateComplete(debateID, debate.Status, len(debate.Messages), r.now()))
		return nil
	}

	outcomes, err := FilterOutcomes(debate.OutcomeList())
	if err != nil {
		emit(model.NewErrorEvent(nil, "no_valid_outcomes", err.Error(), r.now()))
		return err
	}

	if err := r.state.Start(ctx, debateID); err != nil {
		if r.persistFailed(log, opStart, err, nil, emit) == policyFatal {
			return err
		}
	}
	debate.Status = model.StatusInProgress
	emit(model.NewDebateStarted(debateID, r.now()))

	startRound, startIdx := resumePosition(debate)
	if startRound > 1 || startIdx > 0 {
		log.WithFields(logrus.Fields{"round": startRound, "position": startIdx}).Info("从上次中断处继续辩论")
	}

	for round := startRound; round <= debate.Rounds; round++ {
		if err := r.state.EnterRound(ctx, debateID, round); err != nil {
			r.persistFailed(log.WithField("round", round), opRound, err, nil, emit)
		}
		debate.CurrentRound = round

		first := 0
		if round == startRound {
			first = startIdx
		}
		for i := first; i < len(debate.Participants); i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if status, halted := r.halted(ctx, log, debateID); halted {
				emit(model.NewDebateComplete(debateID, status, len(debate.Messages), r.now()))
				return nil
			}

			p := debate.Participants[i]
			emit(model.NewModelThinking(p, round, r.now()))

			msg, err := r.turns.Execute(ctx, debate, outcomes, p, round)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.turnFailed(log, p, err, emit)
				continue
			}
			emit(model.NewMessageEvent(*msg))
		}
	}

	status := model.StatusCompleted
	if err := r.state.Complete(ctx, debateID); err != nil {
		r.persistFailed(log, opComplete, err, nil, emit)
		if errors.Is(err, ErrInvalidTransition) {
			if current, gerr := r.repo.GetStatus(ctx, debateID); gerr == nil {
				status = current
			}
		}
	}
	debate.Status = status

	if status == model.StatusCompleted && r.onDone != nil {
		r.onDone(ctx, debate)
	}
	log.WithField("total_messages", len(debate.Messages)).Info("辩论结束")
	emit(model.NewDebateComplete(debateID, status, len(debate.Messages), r.now()))
	return nil
}

// halted 回合开始前重新读取状态，响应外部 pause / stop
func (r *DebateRunner) halted(ctx context.Context, log *logrus.Entry, debateID string) (model.DebateStatus, bool) {
	status, err := r.state.Status(ctx, debateID)
	if err != nil {
		log.WithError(err).Warn("读取辩论状态失败，继续执行")
		return "", false
	}
	if status == model.StatusPaused || status == model.StatusStopped {
		log.WithField("status", status).Info("辩论被外部暂停或停止")
		return status, true
	}
	return "", false
}

func (r *DebateRunner) turnFailed(log *logrus.Entry, p model.DebateParticipant, err error, emit Emitter) {
	var te *TurnError
	if !errors.As(err, &te) {
		te = &TurnError{ParticipantID: p.ModelID, ParticipantName: p.ModelName, Kind: TurnModelError, Cause: err}
	}
	if te.Kind == TurnPersistError {
		r.persistFailed(log.WithField("model_id", p.ModelID), opMessage, te, &p, emit)
		return
	}
	log.WithError(te.Cause).WithFields(logrus.Fields{"model_id": p.ModelID, "kind": te.Kind}).Warn("参与者回合失败")
	emit(model.NewErrorEvent(&p, string(te.Kind), te.Message(), r.now()))
}

// persistFailed 按策略表处理持久化失败，返回所用策略
func (r *DebateRunner) persistFailed(log *logrus.Entry, op persistOp, err error, p *model.DebateParticipant, emit Emitter) persistPolicy {
	policy := persistencePolicy[op]
	entry := log.WithError(err).WithField("op", op)
	switch policy {
	case policyFatal:
		entry.Error("持久化失败，终止辩论")
		emit(model.NewErrorEvent(p, "persistence_failed", err.Error(), r.now()))
	case policyReport:
		entry.Warn("持久化失败，已上报")
		msg := err.Error()
		var te *TurnError
		if errors.As(err, &te) {
			msg = te.Message()
		}
		emit(model.NewErrorEvent(p, string(TurnPersistError), msg, r.now()))
	default:
		entry.Warn("持久化失败，继续执行")
	}
	return policy
}

// resumePosition 最后一条消息之后的 (轮次, 参与者下标)；没有消息时从 (1, 0) 开始
func resumePosition(d *model.Debate) (int, int) {
	if len(d.Messages) == 0 || len(d.Participants) == 0 {
		return 1, 0
	}
	last := d.Messages[len(d.Messages)-1]
	idx := -1
	for i, p := range d.Participants {
		if p.ModelID == last.ParticipantID {
			idx = i
			break
		}
	}
	if idx < 0 || idx+1 >= len(d.Participants) {
		return last.Round + 1, 0
	}
	return last.Round, idx + 1
}
