package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ForecastDebate/internal/interfaces"
	"ForecastDebate/internal/model"
)

// fakeLLM 按 handler 返回；handler 为 nil 时固定返回 Yes 70 / No 30
type fakeLLM struct {
	mu      sync.Mutex
	calls   []interfaces.TurnRequest
	handler func(ctx context.Context, req *interfaces.TurnRequest) (*interfaces.TurnResponse, error)
}

func (f *fakeLLM) GenerateTurn(ctx context.Context, req *interfaces.TurnRequest) (*interfaces.TurnResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, *req)
	f.mu.Unlock()
	if f.handler != nil {
		return f.handler(ctx, req)
	}
	return &interfaces.TurnResponse{
		Argument:    "argument from " + req.Participant.ModelID,
		Predictions: map[string]float64{"yes": 70, "no": 30},
	}, nil
}

type fakeTTS struct {
	err error
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string, p model.DebateParticipant, messageID string) (string, float64, error) {
	if f.err != nil {
		return "", 0, f.err
	}
	return "/api/audio/" + messageID + ".mp3", 1.2, nil
}

type fakeSummarizer struct {
	calls int32
	delay time.Duration
	err   error
	empty bool
}

func (f *fakeSummarizer) Summarize(ctx context.Context, req *interfaces.SummaryRequest) (*model.DebateSummary, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return nil, nil
	}
	return &model.DebateSummary{
		Overall:    "models broadly agree",
		Agreements: []string{"rain is likely"},
		Consensus:  "Yes",
	}, nil
}

func (f *fakeSummarizer) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

type fakeMarkets struct {
	market *model.Market
	err    error
}

func (f *fakeMarkets) GetName() string { return "fake" }

func (f *fakeMarkets) FetchMarket(ctx context.Context, id string) (*model.Market, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.market == nil {
		return nil, fmt.Errorf("%w: %s", ErrMarketNotFound, id)
	}
	m := *f.market
	m.Outcomes = append([]model.Outcome(nil), f.market.Outcomes...)
	return &m, nil
}

// recorder 收集调度器事件
type recorder struct {
	events []model.StreamEvent
}

func (r *recorder) emit(ev model.StreamEvent) { r.events = append(r.events, ev) }

func (r *recorder) ofType(t model.EventType) []model.StreamEvent {
	var out []model.StreamEvent
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
