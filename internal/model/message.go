package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Message 辩论消息，只追加不修改（音频字段除外，仅允许从空补写一次）
type Message struct {
	MessageID       string         `gorm:"column:message_id;primaryKey;type:varchar(36)" json:"message_id"`
	DebateID        string         `gorm:"column:debate_id;type:varchar(36);not null;uniqueIndex:uq_debate_sequence" json:"debate_id"`
	Round           int            `gorm:"column:round;not null;index" json:"round"`
	Sequence        int            `gorm:"column:sequence;not null;uniqueIndex:uq_debate_sequence" json:"sequence"`
	ParticipantID   string         `gorm:"column:model_id;type:varchar(200);not null" json:"participant_id"`
	ParticipantName string         `gorm:"column:model_name;type:varchar(200);not null" json:"participant_name"`
	Kind            MessageKind    `gorm:"column:message_type;type:varchar(20);not null" json:"message_type"`
	Text            string         `gorm:"column:text;type:text;not null" json:"text"`
	Predictions     datatypes.JSON `gorm:"column:predictions;type:jsonb;not null" json:"predictions"`
	AudioURL        *string        `gorm:"column:audio_url;type:varchar(500)" json:"audio_url"`
	AudioDuration   *float64       `gorm:"column:audio_duration" json:"audio_duration"`
	Timestamp       time.Time      `gorm:"column:timestamp;not null;index" json:"timestamp"`
}

func (Message) TableName() string { return "messages" }

// DecodePredictions 解码预测分布（outcome -> 百分比），列内容损坏时返回错误
func (m *Message) DecodePredictions() (map[string]float64, error) {
	out := make(map[string]float64)
	if len(m.Predictions) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(m.Predictions, &out); err != nil {
		return nil, fmt.Errorf("解析消息 %s 的预测失败: %w", m.MessageID, err)
	}
	return out, nil
}

// PredictionMap 同 DecodePredictions，损坏时记 debug 日志并返回空分布
func (m *Message) PredictionMap() map[string]float64 {
	out, err := m.DecodePredictions()
	if err != nil {
		logrus.WithError(err).WithField("message_id", m.MessageID).Debug("预测列无法解码，按空分布处理")
		return map[string]float64{}
	}
	return out
}

// EncodePredictions 编码预测分布，nil 时写入 {}
func EncodePredictions(p map[string]float64) datatypes.JSON {
	if p == nil {
		p = map[string]float64{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}
