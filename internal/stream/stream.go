package stream

import (
	"context"
	"time"

	"ForecastDebate/internal/model"
)

// DefaultKeepAlive 空闲多久发送一次保活
const DefaultKeepAlive = 5 * time.Second

// Sink 事件流的输出端（SSE / WebSocket）
type Sink interface {
	Send(ctx context.Context, ev model.StreamEvent) error
	KeepAlive(ctx context.Context) error
}

// Producer 产出事件直到结束；ctx 取消后必须尽快返回
type Producer func(ctx context.Context, emit func(model.StreamEvent)) error

// Run 在独立 goroutine 中运行 producer，事件按产出顺序写入 sink，空闲超过 interval 时写保活。
// sink 写失败（客户端断开）时取消 producer 并返回写入错误；producer 结束时返回其错误
func Run(ctx context.Context, sink Sink, interval time.Duration, produce Producer) error {
	if interval <= 0 {
		interval = DefaultKeepAlive
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan model.StreamEvent, 16)
	done := make(chan error, 1)
	go func() {
		err := produce(ctx, func(ev model.StreamEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
		close(events)
		done <- err
	}()

	idle := time.NewTimer(interval)
	defer idle.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return <-done
			}
			if err := sink.Send(ctx, ev); err != nil {
				cancel()
				<-done
				return err
			}
			resetTimer(idle, interval)
		case <-idle.C:
			if err := sink.KeepAlive(ctx); err != nil {
				cancel()
				<-done
				return err
			}
			idle.Reset(interval)
		case <-ctx.Done():
			<-done
			return ctx.Err()
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
