package stream

import (
	"context"
	"encoding/json"
	"time"

	"ForecastDebate/internal/model"

	"github.com/coder/websocket"
)

const pingTimeout = 10 * time.Second

type wsConn interface {
	Write(ctx context.Context, msgType websocket.MessageType, data []byte) error
	Ping(ctx context.Context) error
}

// WSSink 每个事件一条文本帧 {"type":...,"data":...}，保活用 ping
type WSSink struct {
	conn wsConn
}

func NewWSSink(conn *websocket.Conn) *WSSink {
	return &WSSink{conn: conn}
}

func (s *WSSink) Send(ctx context.Context, ev model.StreamEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.conn.Write(ctx, websocket.MessageText, payload)
}

func (s *WSSink) KeepAlive(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.conn.Ping(ctx)
}
