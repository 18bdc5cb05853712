package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ForecastDebate/internal/config"
	"ForecastDebate/internal/model"
	"ForecastDebate/internal/repository"
	"ForecastDebate/internal/testutil"
)

func testDebateConfig() config.DebateConfig {
	return config.DebateConfig{
		MaxModels:           3,
		MaxRounds:           5,
		KeepAliveInterval:   time.Second,
		SummaryPollInterval: 5 * time.Millisecond,
		SummaryMaxWait:      time.Second,
		ModelTimeout:        time.Second,
	}
}

func testMarket() *model.Market {
	return &model.Market{
		ID:          "12345",
		Question:    "Who wins the election?",
		Description: "Resolves to the certified winner.",
		Outcomes: []model.Outcome{
			{Name: "Alice", Price: 0.55, Shares: f64(1000)},
			{Name: "Bob", Price: 0.4, Shares: f64(800)},
			{Name: "Placeholder 3", Price: 0.05},
		},
	}
}

func newTestService(t *testing.T, summarizer *fakeSummarizer) (*DebateService, repository.DebateRepository) {
	t.Helper()
	repo := repository.NewDebateRepository(testutil.NewDB(t))
	llm := &fakeLLM{}
	svc := NewDebateService(repo, &fakeMarkets{market: testMarket()}, llm, nil, summarizer, testDebateConfig(), testutil.Logger())
	return svc, repo
}

func TestCreateDebateRequest_Validate(t *testing.T) {
	cfg := testDebateConfig()
	cases := []struct {
		name string
		req  CreateDebateRequest
		ok   bool
	}{
		{"valid", CreateDebateRequest{MarketID: "1", ModelIDs: []string{"a/b"}, Rounds: 3}, true},
		{"missing market", CreateDebateRequest{ModelIDs: []string{"a/b"}, Rounds: 3}, false},
		{"no models", CreateDebateRequest{MarketID: "1", Rounds: 3}, false},
		{"too many models", CreateDebateRequest{MarketID: "1", ModelIDs: []string{"a", "b", "c", "d"}, Rounds: 1}, false},
		{"zero rounds", CreateDebateRequest{MarketID: "1", ModelIDs: []string{"a"}, Rounds: 0}, false},
		{"too many rounds", CreateDebateRequest{MarketID: "1", ModelIDs: []string{"a"}, Rounds: 6}, false},
		{"duplicate models", CreateDebateRequest{MarketID: "1", ModelIDs: []string{"a/b", "a/b"}, Rounds: 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate(cfg)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestDebateService_CreateDebate(t *testing.T) {
	svc, repo := newTestService(t, &fakeSummarizer{})
	res, err := svc.CreateDebate(context.Background(), CreateDebateRequest{
		MarketID: "12345",
		ModelIDs: []string{"openai/gpt-4o", "anthropic/claude-sonnet"},
		Rounds:   2,
	})
	if err != nil {
		t.Fatalf("CreateDebate: %v", err)
	}
	if res.Status != model.StatusInitialized || res.TotalMessagesExpected != 4 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Market.Outcomes) != 2 {
		t.Errorf("outcomes = %v, want placeholder filtered", res.Market.Outcomes)
	}
	if res.StreamURL != "/api/debate/"+res.DebateID+"/stream" {
		t.Errorf("stream_url = %s", res.StreamURL)
	}

	d, err := repo.GetByID(context.Background(), res.DebateID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if d.Participants[1].ModelName != "Claude Sonnet" || d.Participants[1].Provider != "Anthropic" {
		t.Errorf("participant = %+v", d.Participants[1])
	}
}

func TestDebateService_CreateDebateNoValidOutcomes(t *testing.T) {
	repo := repository.NewDebateRepository(testutil.NewDB(t))
	market := &model.Market{ID: "9", Question: "?", Outcomes: []model.Outcome{{Name: "placeholder"}}}
	svc := NewDebateService(repo, &fakeMarkets{market: market}, &fakeLLM{}, nil, nil, testDebateConfig(), testutil.Logger())

	_, err := svc.CreateDebate(context.Background(), CreateDebateRequest{MarketID: "9", ModelIDs: []string{"a/b"}, Rounds: 1})
	if !errors.Is(err, ErrNoValidOutcomes) {
		t.Fatalf("err = %v, want ErrNoValidOutcomes", err)
	}
}

func TestDebateService_MarketErrors(t *testing.T) {
	repo := repository.NewDebateRepository(testutil.NewDB(t))
	ctx := context.Background()
	req := CreateDebateRequest{MarketID: "9", ModelIDs: []string{"a/b"}, Rounds: 1}

	missing := NewDebateService(repo, &fakeMarkets{}, &fakeLLM{}, nil, nil, testDebateConfig(), testutil.Logger())
	if _, err := missing.CreateDebate(ctx, req); !errors.Is(err, ErrMarketNotFound) {
		t.Errorf("err = %v, want ErrMarketNotFound", err)
	}

	down := NewDebateService(repo, &fakeMarkets{err: errors.New("dial tcp: refused")}, &fakeLLM{}, nil, nil, testDebateConfig(), testutil.Logger())
	if _, err := down.PreviewMarket(ctx, "9"); !errors.Is(err, ErrMarketUnavailable) {
		t.Errorf("err = %v, want ErrMarketUnavailable", err)
	}
}

func TestDebateService_ControlsAndResults(t *testing.T) {
	summarizer := &fakeSummarizer{}
	svc, _ := newTestService(t, summarizer)
	ctx := context.Background()
	res, err := svc.CreateDebate(ctx, CreateDebateRequest{MarketID: "12345", ModelIDs: []string{"x/one", "y/two"}, Rounds: 2})
	if err != nil {
		t.Fatalf("CreateDebate: %v", err)
	}

	if _, err := svc.Pause(ctx, res.DebateID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pause initialized err = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.Results(ctx, res.DebateID); !errors.Is(err, ErrDebateNotCompleted) {
		t.Errorf("results before run err = %v, want ErrDebateNotCompleted", err)
	}

	rec := &recorder{}
	if err := svc.Run(ctx, res.DebateID, rec.emit); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summarizer.Calls() != 1 {
		t.Errorf("summary not generated on completion, calls=%d", summarizer.Calls())
	}

	results, err := svc.Results(ctx, res.DebateID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if results.Summary == nil || results.Summary.Consensus != "Yes" {
		t.Errorf("summary = %+v", results.Summary)
	}
	if summarizer.Calls() != 1 {
		t.Errorf("results regenerated the summary, calls=%d", summarizer.Calls())
	}
	if len(results.FinalPredictions) != 2 {
		t.Errorf("final predictions = %v", results.FinalPredictions)
	}
	if results.Statistics.FinalMessages != 2 || results.Statistics.TotalMessages != 4 {
		t.Errorf("statistics = %+v", results.Statistics)
	}

	if _, err := svc.Stop(ctx, res.DebateID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("stop completed err = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.GetDebate(ctx, "missing"); !errors.Is(err, ErrDebateNotFound) {
		t.Errorf("missing debate err = %v", err)
	}
}

func TestDebateService_ResultsWithoutSummarizer(t *testing.T) {
	repo := repository.NewDebateRepository(testutil.NewDB(t))
	svc := NewDebateService(repo, &fakeMarkets{market: testMarket()}, &fakeLLM{}, nil, nil, testDebateConfig(), testutil.Logger())
	ctx := context.Background()
	res, err := svc.CreateDebate(ctx, CreateDebateRequest{MarketID: "12345", ModelIDs: []string{"x/one"}, Rounds: 1})
	if err != nil {
		t.Fatalf("CreateDebate: %v", err)
	}
	if err := svc.Run(ctx, res.DebateID, func(model.StreamEvent) {}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	results, err := svc.Results(ctx, res.DebateID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if results.Summary != nil || results.SummaryError == "" {
		t.Errorf("summary=%v error=%q, want unavailable", results.Summary, results.SummaryError)
	}
}

func TestParticipantInfo(t *testing.T) {
	cases := []struct{ id, name, provider string }{
		{"openai/gpt-4o", "Gpt 4o", "Openai"},
		{"meta-llama/llama-3.1-70b-instruct", "Llama 3.1 70b Instruct", "Meta-llama"},
		{"standalone", "standalone", "Unknown"},
	}
	for _, tc := range cases {
		name, provider := ParticipantInfo(tc.id)
		if name != tc.name || provider != tc.provider {
			t.Errorf("ParticipantInfo(%q) = (%q, %q), want (%q, %q)", tc.id, name, provider, tc.name, tc.provider)
		}
	}
}
