package service

import (
	"context"
	"fmt"

	"ForecastDebate/internal/model"
	"ForecastDebate/internal/repository"
)

// allowedTransitions 状态机：in_progress 可自转（中断后重新运行）
var allowedTransitions = map[model.DebateStatus][]model.DebateStatus{
	model.StatusInitialized: {model.StatusInProgress, model.StatusStopped},
	model.StatusInProgress:  {model.StatusInProgress, model.StatusPaused, model.StatusCompleted, model.StatusStopped},
	model.StatusPaused:      {model.StatusInProgress, model.StatusStopped},
}

// CanTransition 判断状态迁移是否合法
func CanTransition(from, to model.DebateStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// sourcesOf 能迁移到 to 的所有状态
func sourcesOf(to model.DebateStatus) []model.DebateStatus {
	var out []model.DebateStatus
	for _, from := range []model.DebateStatus{model.StatusInitialized, model.StatusInProgress, model.StatusPaused} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// DebateStateMachine 持有辩论状态，所有迁移都以比较并设置的方式落库
type DebateStateMachine struct {
	repo repository.DebateRepository
}

func NewDebateStateMachine(repo repository.DebateRepository) *DebateStateMachine {
	return &DebateStateMachine{repo: repo}
}

// Transition 仅当库中当前状态允许迁移到 to 时生效，否则返回 ErrInvalidTransition
func (m *DebateStateMachine) Transition(ctx context.Context, debateID string, to model.DebateStatus) error {
	return m.transitionFrom(ctx, debateID, sourcesOf(to), to)
}

func (m *DebateStateMachine) transitionFrom(ctx context.Context, debateID string, from []model.DebateStatus, to model.DebateStatus) error {
	ok, err := m.repo.TransitionStatus(ctx, debateID, from, to)
	if err != nil {
		return fmt.Errorf("更新辩论状态失败: %w", err)
	}
	if ok {
		return nil
	}
	current, err := m.repo.GetStatus(ctx, debateID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, to)
}

// Start initialized/in_progress -> in_progress；paused 只能经 Resume 恢复
func (m *DebateStateMachine) Start(ctx context.Context, debateID string) error {
	return m.transitionFrom(ctx, debateID, []model.DebateStatus{model.StatusInitialized, model.StatusInProgress}, model.StatusInProgress)
}

// EnterRound 写当前轮次
func (m *DebateStateMachine) EnterRound(ctx context.Context, debateID string, round int) error {
	return m.repo.UpdateCurrentRound(ctx, debateID, round)
}

// Complete in_progress -> completed
func (m *DebateStateMachine) Complete(ctx context.Context, debateID string) error {
	return m.Transition(ctx, debateID, model.StatusCompleted)
}

// Pause in_progress -> paused
func (m *DebateStateMachine) Pause(ctx context.Context, debateID string) error {
	return m.Transition(ctx, debateID, model.StatusPaused)
}

// Resume paused -> in_progress
func (m *DebateStateMachine) Resume(ctx context.Context, debateID string) error {
	return m.transitionFrom(ctx, debateID, []model.DebateStatus{model.StatusPaused}, model.StatusInProgress)
}

// Stop initialized/in_progress/paused -> stopped
func (m *DebateStateMachine) Stop(ctx context.Context, debateID string) error {
	return m.Transition(ctx, debateID, model.StatusStopped)
}

// Status 读取当前状态
func (m *DebateStateMachine) Status(ctx context.Context, debateID string) (model.DebateStatus, error) {
	return m.repo.GetStatus(ctx, debateID)
}
