package model

import (
	"strings"
	"time"
)

// EventType 事件流类型
type EventType string

const (
	EventDebateStarted  EventType = "debate_started"
	EventModelThinking  EventType = "model_thinking"
	EventMessage        EventType = "message"
	EventError          EventType = "error"
	EventDebateComplete EventType = "debate_complete"
)

// StreamEvent 事件流中的一条事件
type StreamEvent struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

type DebateStartedData struct {
	DebateID  string       `json:"debate_id"`
	Status    DebateStatus `json:"status"`
	Timestamp string       `json:"timestamp"`
}

type ModelThinkingData struct {
	ParticipantID   string `json:"participant_id"`
	ParticipantName string `json:"participant_name"`
	Round           int    `json:"round"`
	Timestamp       string `json:"timestamp"`
}

// ErrorData error 与 message 不会同时为空
type ErrorData struct {
	ParticipantID   string `json:"participant_id,omitempty"`
	ParticipantName string `json:"participant_name,omitempty"`
	Error           string `json:"error"`
	Message         string `json:"message"`
	Timestamp       string `json:"timestamp"`
}

type DebateCompleteData struct {
	DebateID      string       `json:"debate_id"`
	Status        DebateStatus `json:"status"`
	TotalMessages int          `json:"total_messages"`
	Timestamp     string       `json:"timestamp"`
}

// Timestamp 统一的 UTC 时间格式
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func NewDebateStarted(debateID string, at time.Time) StreamEvent {
	return StreamEvent{Type: EventDebateStarted, Data: DebateStartedData{
		DebateID:  debateID,
		Status:    StatusInProgress,
		Timestamp: Timestamp(at),
	}}
}

func NewModelThinking(p DebateParticipant, round int, at time.Time) StreamEvent {
	return StreamEvent{Type: EventModelThinking, Data: ModelThinkingData{
		ParticipantID:   p.ModelID,
		ParticipantName: p.ModelName,
		Round:           round,
		Timestamp:       Timestamp(at),
	}}
}

func NewMessageEvent(m Message) StreamEvent {
	return StreamEvent{Type: EventMessage, Data: m}
}

// NewErrorEvent 构造错误事件，code 与 message 均为空时补默认值
func NewErrorEvent(p *DebateParticipant, code, message string, at time.Time) StreamEvent {
	code = strings.TrimSpace(code)
	message = strings.TrimSpace(message)
	if code == "" {
		code = "unknown_error"
	}
	if message == "" {
		message = strings.ReplaceAll(code, "_", " ")
	}
	data := ErrorData{Error: code, Message: message, Timestamp: Timestamp(at)}
	if p != nil {
		data.ParticipantID = p.ModelID
		data.ParticipantName = p.ModelName
	}
	return StreamEvent{Type: EventError, Data: data}
}

func NewDebateComplete(debateID string, status DebateStatus, total int, at time.Time) StreamEvent {
	return StreamEvent{Type: EventDebateComplete, Data: DebateCompleteData{
		DebateID:      debateID,
		Status:        status,
		TotalMessages: total,
		Timestamp:     Timestamp(at),
	}}
}
