package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ForecastDebate/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrDebateNotFound 辩论不存在
var ErrDebateNotFound = errors.New("debate not found")

// DebateFilter 列表筛选条件
type DebateFilter struct {
	Status   string // 可选：按状态过滤
	MarketID string // 可选：按市场过滤
}

// SummaryState 摘要锁及缓存的当前值
type SummaryState struct {
	Summary    *datatypes.JSON
	Generating bool
}

// DebateRepository 辩论持久化；同时作为摘要生成锁的载体
type DebateRepository interface {
	// Create 在一个事务内写入辩论、参与者与选项
	Create(ctx context.Context, debate *model.Debate) error
	// GetByID 读取辩论及其参与者（按 position）、选项、消息（按 sequence）
	GetByID(ctx context.Context, debateID string) (*model.Debate, error)
	// GetStatus 只读状态，供调度器每个回合前检查外部控制
	GetStatus(ctx context.Context, debateID string) (model.DebateStatus, error)
	// List 分页列出辩论，按创建时间倒序
	List(ctx context.Context, filter DebateFilter, page, pageSize int) ([]*model.DebateListItem, int64, error)
	// UpdateStatus 无条件写状态；completed/stopped 同时写 completed_at
	UpdateStatus(ctx context.Context, debateID string, status model.DebateStatus) error
	// TransitionStatus 仅当当前状态属于 from 时写入 to，返回是否生效
	TransitionStatus(ctx context.Context, debateID string, from []model.DebateStatus, to model.DebateStatus) (bool, error)
	// UpdateCurrentRound 写当前轮次，不允许超过 rounds
	UpdateCurrentRound(ctx context.Context, debateID string, round int) error

	// AppendMessage 追加一条消息，(debate_id, sequence) 唯一
	AppendMessage(ctx context.Context, msg *model.Message) error
	// AttachAudio 只在音频字段为空时补写
	AttachAudio(ctx context.Context, messageID, audioURL string, duration float64) error
	// CountMessages 辩论已持久化的消息数
	CountMessages(ctx context.Context, debateID string) (int64, error)

	// GetSummaryState 读摘要锁与缓存
	GetSummaryState(ctx context.Context, debateID string) (*SummaryState, error)
	// TryAcquireSummaryLock 比较并设置 summary_generating=false→true，摘要已存在时不加锁
	TryAcquireSummaryLock(ctx context.Context, debateID string) (bool, error)
	// ReleaseSummaryLock 释放锁
	ReleaseSummaryLock(ctx context.Context, debateID string) error
	// SaveFinalSummary 仅在 final_summary 为空时写入，返回最终存储的值
	SaveFinalSummary(ctx context.Context, debateID string, summary datatypes.JSON) (datatypes.JSON, error)
	// SaveFinalPredictions 仅在 final_predictions 为空时写入，返回最终存储的值
	SaveFinalPredictions(ctx context.Context, debateID string, predictions datatypes.JSON) (datatypes.JSON, error)
}

type debateRepository struct {
	db *gorm.DB
}

// NewDebateRepository 创建辩论仓储
func NewDebateRepository(db *gorm.DB) DebateRepository {
	return &debateRepository{db: db}
}

func (r *debateRepository) Create(ctx context.Context, debate *model.Debate) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("开启事务失败: %w", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	participants := debate.Participants
	outcomes := debate.Outcomes
	if err := tx.Omit("Participants", "Outcomes", "Messages").Create(debate).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("保存辩论失败: %w", err)
	}
	for i := range participants {
		participants[i].DebateID = debate.DebateID
		participants[i].Position = i
	}
	if len(participants) > 0 {
		if err := tx.Create(&participants).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("保存参与者失败: %w", err)
		}
	}
	for i := range outcomes {
		outcomes[i].DebateID = debate.DebateID
		outcomes[i].Position = i
	}
	if len(outcomes) > 0 {
		if err := tx.Create(&outcomes).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("保存选项失败: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	debate.Participants = participants
	debate.Outcomes = outcomes
	return nil
}

func (r *debateRepository) GetByID(ctx context.Context, debateID string) (*model.Debate, error) {
	var d model.Debate
	err := r.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Outcomes", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Where("debate_id = ?", debateID).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDebateNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *debateRepository) GetStatus(ctx context.Context, debateID string) (model.DebateStatus, error) {
	var d model.Debate
	err := r.db.WithContext(ctx).Select("debate_id", "status").Where("debate_id = ?", debateID).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrDebateNotFound
		}
		return "", err
	}
	return d.Status, nil
}

func (r *debateRepository) List(ctx context.Context, filter DebateFilter, page, pageSize int) ([]*model.DebateListItem, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	db := r.db.WithContext(ctx).Model(&model.Debate{})
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.MarketID != "" {
		db = db.Where("market_id = ?", filter.MarketID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var debates []*model.Debate
	if err := db.
		Preload("Participants").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&debates).Error; err != nil {
		return nil, 0, err
	}

	items := make([]*model.DebateListItem, 0, len(debates))
	for _, d := range debates {
		items = append(items, &model.DebateListItem{
			DebateID:       d.DebateID,
			MarketQuestion: d.MarketQuestion,
			Status:         d.Status,
			ModelsCount:    len(d.Participants),
			Rounds:         d.Rounds,
			CurrentRound:   d.CurrentRound,
			CreatedAt:      d.CreatedAt,
			CompletedAt:    d.CompletedAt,
		})
	}
	return items, total, nil
}

func (r *debateRepository) UpdateStatus(ctx context.Context, debateID string, status model.DebateStatus) error {
	updates := map[string]interface{}{"status": status, "updated_at": time.Now()}
	if status.IsTerminal() {
		updates["completed_at"] = time.Now()
	}
	res := r.db.WithContext(ctx).Model(&model.Debate{}).Where("debate_id = ?", debateID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDebateNotFound
	}
	return nil
}

func (r *debateRepository) TransitionStatus(ctx context.Context, debateID string, from []model.DebateStatus, to model.DebateStatus) (bool, error) {
	updates := map[string]interface{}{"status": to, "updated_at": time.Now()}
	if to.IsTerminal() {
		updates["completed_at"] = time.Now()
	}
	res := r.db.WithContext(ctx).Model(&model.Debate{}).
		Where("debate_id = ? AND status IN ?", debateID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *debateRepository) UpdateCurrentRound(ctx context.Context, debateID string, round int) error {
	res := r.db.WithContext(ctx).Model(&model.Debate{}).
		Where("debate_id = ? AND rounds >= ?", debateID, round).
		Updates(map[string]interface{}{"current_round": round, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("轮次 %d 超出范围或辩论不存在: %s", round, debateID)
	}
	return nil
}

func (r *debateRepository) AppendMessage(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *debateRepository) AttachAudio(ctx context.Context, messageID, audioURL string, duration float64) error {
	return r.db.WithContext(ctx).Model(&model.Message{}).
		Where("message_id = ? AND audio_url IS NULL", messageID).
		Updates(map[string]interface{}{"audio_url": audioURL, "audio_duration": duration}).Error
}

func (r *debateRepository) CountMessages(ctx context.Context, debateID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Message{}).Where("debate_id = ?", debateID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *debateRepository) GetSummaryState(ctx context.Context, debateID string) (*SummaryState, error) {
	var d model.Debate
	err := r.db.WithContext(ctx).
		Select("debate_id", "final_summary", "summary_generating").
		Where("debate_id = ?", debateID).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDebateNotFound
		}
		return nil, err
	}
	return &SummaryState{Summary: d.FinalSummary, Generating: d.SummaryGenerating}, nil
}

func (r *debateRepository) TryAcquireSummaryLock(ctx context.Context, debateID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Debate{}).
		Where("debate_id = ? AND summary_generating = ? AND final_summary IS NULL", debateID, false).
		Update("summary_generating", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *debateRepository) ReleaseSummaryLock(ctx context.Context, debateID string) error {
	return r.db.WithContext(ctx).Model(&model.Debate{}).
		Where("debate_id = ?", debateID).
		Update("summary_generating", false).Error
}

func (r *debateRepository) SaveFinalSummary(ctx context.Context, debateID string, summary datatypes.JSON) (datatypes.JSON, error) {
	return r.saveOnce(ctx, debateID, "final_summary", summary)
}

func (r *debateRepository) SaveFinalPredictions(ctx context.Context, debateID string, predictions datatypes.JSON) (datatypes.JSON, error) {
	return r.saveOnce(ctx, debateID, "final_predictions", predictions)
}

// saveOnce 写入空列并回读；列已有值时保留旧值
func (r *debateRepository) saveOnce(ctx context.Context, debateID, column string, value datatypes.JSON) (datatypes.JSON, error) {
	if err := r.db.WithContext(ctx).Model(&model.Debate{}).
		Where("debate_id = ? AND "+column+" IS NULL", debateID).
		Update(column, value).Error; err != nil {
		return nil, fmt.Errorf("写入 %s 失败: %w", column, err)
	}

	var d model.Debate
	if err := r.db.WithContext(ctx).
		Select("debate_id", column).
		Where("debate_id = ?", debateID).
		First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDebateNotFound
		}
		return nil, fmt.Errorf("回读 %s 失败: %w", column, err)
	}
	stored := d.FinalSummary
	if column == "final_predictions" {
		stored = d.FinalPredictions
	}
	if stored == nil {
		return nil, fmt.Errorf("%s 写入后仍为空: %s", column, debateID)
	}
	return *stored, nil
}
