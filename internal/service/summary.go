package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ForecastDebate/internal/interfaces"
	"ForecastDebate/internal/model"
	"ForecastDebate/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// SummaryCoordinator 保证每场辩论的共识摘要只生成一次。
// 进程内用 singleflight 合并请求；跨进程用库里的 summary_generating 标志做协作锁，
// 等待超过 maxWait 后不再等锁，直接生成（只在 final_summary 为空时落库）。
type SummaryCoordinator struct {
	repo         repository.DebateRepository
	summarizer   interfaces.Summarizer
	logger       *logrus.Logger
	pollInterval time.Duration
	maxWait      time.Duration
	group        singleflight.Group
	now          func() time.Time
}

func NewSummaryCoordinator(repo repository.DebateRepository, summarizer interfaces.Summarizer, logger *logrus.Logger, pollInterval, maxWait time.Duration) *SummaryCoordinator {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &SummaryCoordinator{
		repo:         repo,
		summarizer:   summarizer,
		logger:       logger,
		pollInterval: pollInterval,
		maxWait:      maxWait,
		now:          time.Now,
	}
}

// summaryCallTimeout 一次共享生成调用在等锁之外的最长耗时
const summaryCallTimeout = 2 * time.Minute

// Resolve 返回已缓存的摘要，或在持锁的情况下生成一次。
// 共享调用不继承任何调用方的取消，每个调用方只在自己的 ctx 结束时提前返回
func (c *SummaryCoordinator) Resolve(ctx context.Context, debateID string) (*model.DebateSummary, error) {
	ch := c.group.DoChan(debateID, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.maxWait+summaryCallTimeout)
		defer cancel()
		return c.resolve(flightCtx, debateID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.DebateSummary), nil
	}
}

func (c *SummaryCoordinator) resolve(ctx context.Context, debateID string) (*model.DebateSummary, error) {
	log := c.logger.WithField("debate_id", debateID)
	deadline := c.now().Add(c.maxWait)

	for {
		state, err := c.repo.GetSummaryState(ctx, debateID)
		if err != nil {
			return nil, err
		}
		if state.Summary != nil {
			return decodeSummary(*state.Summary)
		}
		if c.summarizer == nil {
			return nil, ErrSummaryUnavailable
		}

		if !state.Generating {
			acquired, err := c.repo.TryAcquireSummaryLock(ctx, debateID)
			if err != nil {
				return nil, fmt.Errorf("获取摘要锁失败: %w", err)
			}
			if acquired {
				log.Debug("已获取摘要锁")
				return c.generateLocked(ctx, debateID)
			}
			// 被其他调用方抢先，重新读取状态
			continue
		}

		if !c.now().Before(deadline) {
			log.WithField("max_wait", c.maxWait).Warn("等待摘要锁超时，强制生成")
			return c.generate(ctx, debateID)
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// generateLocked 持锁生成，无论成败都释放锁
func (c *SummaryCoordinator) generateLocked(ctx context.Context, debateID string) (*model.DebateSummary, error) {
	defer func() {
		// 调用方 ctx 可能已取消，释放锁使用独立 ctx
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.repo.ReleaseSummaryLock(releaseCtx, debateID); err != nil {
			c.logger.WithError(err).WithField("debate_id", debateID).Error("释放摘要锁失败")
		}
	}()
	return c.generate(ctx, debateID)
}

func (c *SummaryCoordinator) generate(ctx context.Context, debateID string) (*model.DebateSummary, error) {
	debate, err := c.repo.GetByID(ctx, debateID)
	if err != nil {
		return nil, err
	}
	if cached, err := debate.Summary(); err == nil && cached != nil {
		return cached, nil
	}
	outcomes, err := FilterOutcomes(debate.OutcomeList())
	if err != nil {
		return nil, err
	}

	summary, err := c.summarizer.Summarize(ctx, &interfaces.SummaryRequest{
		Question:     debate.MarketQuestion,
		Description:  debate.MarketDescription,
		Outcomes:     outcomes,
		Messages:     debate.Messages,
		Participants: debate.Participants,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSummaryUnavailable, err)
	}
	if summary == nil {
		return nil, ErrSummaryUnavailable
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("序列化摘要失败: %w", err)
	}
	stored, err := c.repo.SaveFinalSummary(ctx, debateID, raw)
	if err != nil {
		return nil, err
	}
	c.logger.WithField("debate_id", debateID).Info("共识摘要已生成")
	return decodeSummary(stored)
}

func decodeSummary(raw []byte) (*model.DebateSummary, error) {
	var s model.DebateSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("解析摘要失败: %w", err)
	}
	return &s, nil
}
