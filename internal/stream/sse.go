package stream

import (
	"context"
	"io"
	"net/http"

	"ForecastDebate/internal/model"

	"github.com/gin-contrib/sse"
)

// SSESink text/event-stream 输出：event: {type}\ndata: {json}\n\n，保活为注释行
type SSESink struct {
	w io.Writer
}

// NewSSESink 写入响应头；w 实现 http.Flusher 时每个事件都会立即刷新
func NewSSESink(w http.ResponseWriter) *SSESink {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &SSESink{w: w}
}

func (s *SSESink) Send(ctx context.Context, ev model.StreamEvent) error {
	if err := sse.Encode(s.w, sse.Event{Event: string(ev.Type), Data: ev.Data}); err != nil {
		return err
	}
	return s.flush()
}

func (s *SSESink) KeepAlive(ctx context.Context) error {
	if _, err := io.WriteString(s.w, ": keepalive\n\n"); err != nil {
		return err
	}
	return s.flush()
}

func (s *SSESink) flush() error {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
