package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// DebateStatus 辩论生命周期状态
type DebateStatus string

const (
	StatusInitialized DebateStatus = "initialized"
	StatusInProgress  DebateStatus = "in_progress"
	StatusPaused      DebateStatus = "paused"
	StatusCompleted   DebateStatus = "completed"
	StatusStopped     DebateStatus = "stopped"
)

// IsTerminal completed / stopped 之后不再调度
func (s DebateStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusStopped
}

// MessageKind 消息类型：首轮 initial，末轮 final，其余 debate
type MessageKind string

const (
	KindInitial MessageKind = "initial"
	KindDebate  MessageKind = "debate"
	KindFinal   MessageKind = "final"
)

// KindForRound 按轮次判定消息类型（rounds==1 时首轮优先）
func KindForRound(round, rounds int) MessageKind {
	switch {
	case round == 1:
		return KindInitial
	case round == rounds:
		return KindFinal
	default:
		return KindDebate
	}
}

// Debate 辩论主表。final_summary / final_predictions 只写一次，summary_generating 为摘要生成锁
type Debate struct {
	DebateID          string          `gorm:"column:debate_id;primaryKey;type:varchar(36)" json:"debate_id"`
	Status            DebateStatus    `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	MarketID          string          `gorm:"column:market_id;type:varchar(100);index;not null" json:"market_id"`
	MarketQuestion    string          `gorm:"column:market_question;type:text;not null" json:"market_question"`
	MarketDescription string          `gorm:"column:market_description;type:text" json:"market_description"`
	Rounds            int             `gorm:"column:rounds;not null" json:"rounds"`
	CurrentRound      int             `gorm:"column:current_round;default:0" json:"current_round"`
	FinalSummary      *datatypes.JSON `gorm:"column:final_summary;type:jsonb" json:"final_summary,omitempty"`
	FinalPredictions  *datatypes.JSON `gorm:"column:final_predictions;type:jsonb" json:"final_predictions,omitempty"`
	SummaryGenerating bool            `gorm:"column:summary_generating;default:false" json:"summary_generating"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"-"`
	CompletedAt       *time.Time      `gorm:"column:completed_at" json:"completed_at,omitempty"`

	Participants []DebateParticipant `gorm:"foreignKey:DebateID;references:DebateID;constraint:OnDelete:CASCADE" json:"participants"`
	Outcomes     []DebateOutcome     `gorm:"foreignKey:DebateID;references:DebateID;constraint:OnDelete:CASCADE" json:"outcomes"`
	Messages     []Message           `gorm:"foreignKey:DebateID;references:DebateID;constraint:OnDelete:CASCADE" json:"messages"`
}

// DebateParticipant 参与辩论的模型，Position 决定每轮发言顺序
type DebateParticipant struct {
	ID        uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	DebateID  string `gorm:"column:debate_id;type:varchar(36);index;not null" json:"-"`
	Position  int    `gorm:"column:position;not null" json:"position"`
	ModelID   string `gorm:"column:model_id;type:varchar(200);not null" json:"model_id"`
	ModelName string `gorm:"column:model_name;type:varchar(200);not null" json:"model_name"`
	Provider  string `gorm:"column:provider;type:varchar(100);not null" json:"provider"`
}

// DebateOutcome 市场选项快照（创建辩论时已过滤占位选项）
type DebateOutcome struct {
	ID             uint64   `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	DebateID       string   `gorm:"column:debate_id;type:varchar(36);index;not null" json:"-"`
	Position       int      `gorm:"column:position;not null" json:"-"`
	Name           string   `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Price          float64  `gorm:"column:price;not null" json:"price"`
	Volume         *float64 `gorm:"column:volume" json:"volume,omitempty"`
	Shares         *float64 `gorm:"column:shares" json:"shares,omitempty"`
	PriceChange24h *float64 `gorm:"column:price_change_24h" json:"price_change_24h,omitempty"`
	Liquidity      *float64 `gorm:"column:liquidity" json:"liquidity,omitempty"`
}

func (Debate) TableName() string            { return "debates" }
func (DebateParticipant) TableName() string { return "debate_models" }
func (DebateOutcome) TableName() string     { return "debate_outcomes" }

// ToOutcome 转为过滤/提示词使用的轻量结构
func (o DebateOutcome) ToOutcome() Outcome {
	return Outcome{
		Name:           o.Name,
		Price:          o.Price,
		Volume:         o.Volume,
		Shares:         o.Shares,
		PriceChange24h: o.PriceChange24h,
		Liquidity:      o.Liquidity,
	}
}

// OutcomeList 按创建顺序返回选项
func (d *Debate) OutcomeList() []Outcome {
	out := make([]Outcome, 0, len(d.Outcomes))
	for _, o := range d.Outcomes {
		out = append(out, o.ToOutcome())
	}
	return out
}

// Summary 解码已缓存的摘要，未生成时返回 nil
func (d *Debate) Summary() (*DebateSummary, error) {
	if d.FinalSummary == nil || len(*d.FinalSummary) == 0 {
		return nil, nil
	}
	var s DebateSummary
	if err := json.Unmarshal(*d.FinalSummary, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Predictions 解码已缓存的最终预测，未生成时返回 nil
func (d *Debate) Predictions() (map[string]FinalPrediction, error) {
	if d.FinalPredictions == nil || len(*d.FinalPredictions) == 0 {
		return nil, nil
	}
	out := make(map[string]FinalPrediction)
	if err := json.Unmarshal(*d.FinalPredictions, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DebateListItem 列表页轻量结构
type DebateListItem struct {
	DebateID       string       `json:"debate_id"`
	MarketQuestion string       `json:"market_question"`
	Status         DebateStatus `json:"status"`
	ModelsCount    int          `json:"models_count"`
	Rounds         int          `json:"rounds"`
	CurrentRound   int          `json:"current_round"`
	CreatedAt      time.Time    `json:"created_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
}
