package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ForecastDebate/internal/config"
	"ForecastDebate/internal/interfaces"
	"ForecastDebate/internal/model"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func summaryRequest() *interfaces.SummaryRequest {
	return &interfaces.SummaryRequest{
		Question: "Will it rain tomorrow?",
		Outcomes: []model.Outcome{{Name: "Yes", Price: 0.6}, {Name: "No", Price: 0.3}, {Name: "Maybe", Price: 0.1}},
		Participants: []model.DebateParticipant{
			{ModelID: "test/a", ModelName: "Model A"},
			{ModelID: "test/b", ModelName: "Model B"},
		},
		Messages: []model.Message{
			{ParticipantID: "test/a", ParticipantName: "Model A", Round: 1, Text: "Clouds.", Predictions: model.EncodePredictions(map[string]float64{"Yes": 70, "No": 20, "Maybe": 10})},
			{ParticipantID: "test/b", ParticipantName: "Model B", Round: 1, Text: "Dry air."},
			{ParticipantID: "test/a", ParticipantName: "Model A", Round: 2, Text: "Still clouds.", Predictions: model.EncodePredictions(map[string]float64{"Yes": 65, "No": 25, "Maybe": 10})},
		},
	}
}

func TestBuildPrompt_GroupsByParticipant(t *testing.T) {
	prompt := BuildPrompt(summaryRequest())
	a := strings.Index(prompt, "## Model A")
	b := strings.Index(prompt, "## Model B")
	if a < 0 || b < 0 || a > b {
		t.Fatalf("participants not grouped in order of appearance:\n%s", prompt)
	}
	if !strings.Contains(prompt, "*Predictions: Yes: 65%, No: 25%, Maybe: 10%*") {
		t.Errorf("predictions line missing:\n%s", prompt)
	}
	if strings.Count(prompt, "**Round 2:**") != 1 || !strings.Contains(prompt, "Yes (60.0%)") {
		t.Errorf("transcript malformed:\n%s", prompt)
	}
}

func TestParseSummary(t *testing.T) {
	req := summaryRequest()

	t.Run("fenced", func(t *testing.T) {
		s := ParseSummary("```json\n{\"overall\":\"Split.\",\"agreements\":[\"Clouds\"],\"consensus\":\"Lean yes\",\"model_rationales\":[{\"model\":\"Model A\",\"final_prediction\":{\"Yes\":65},\"rationale\":\"r\",\"key_arguments\":[\"k\"]}]}\n```", req)
		if s.Overall != "Split." || len(s.Agreements) != 1 || s.Consensus != "Lean yes" {
			t.Errorf("summary = %+v", s)
		}
		if s.Disagreements == nil || len(s.Disagreements) != 0 {
			t.Errorf("missing disagreements should default to empty, got %#v", s.Disagreements)
		}
		if len(s.ModelRationales) != 1 || s.ModelRationales[0].FinalPrediction["Yes"] != 65 {
			t.Errorf("rationales = %+v", s.ModelRationales)
		}
	})

	t.Run("missing keys", func(t *testing.T) {
		s := ParseSummary(`Analysis: {"agreements": []}`, req)
		if s.Overall != "Debate summary not available." || s.Consensus != "No clear consensus reached." {
			t.Errorf("defaults = %+v", s)
		}
	})

	t.Run("fallback", func(t *testing.T) {
		text := strings.Repeat("x", 600)
		s := ParseSummary(text, req)
		if len(s.Overall) != fallbackOverallChars || s.Consensus != "Unable to determine consensus." {
			t.Errorf("fallback = %q / %q", s.Overall[:10], s.Consensus)
		}
		if len(s.ModelRationales) != 2 {
			t.Fatalf("rationales = %+v", s.ModelRationales)
		}
		if got := s.ModelRationales[0].FinalPrediction; got["Yes"] != 65 {
			t.Errorf("Model A final = %v, want last message predictions", got)
		}
		if got := s.ModelRationales[1].FinalPrediction; got["Yes"] != 34 || got["No"] != 33 || got["Maybe"] != 33 {
			t.Errorf("Model B final = %v, want even split", got)
		}
	})
}

func TestSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-test:generateContent" || r.URL.Query().Get("key") != "g-key" {
			t.Errorf("url = %s", r.URL.String())
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Contents) != 1 {
			t.Errorf("request = %+v, %v", req, err)
		}
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"overall\":\"Done.\",\"agreements\":[],\"disagreements\":[],\"consensus\":\"Yes\",\"model_rationales\":[]}"}]}}]}`)
	}))
	defer srv.Close()

	c := NewClient(config.ProviderConfig{BaseURL: srv.URL, AuthToken: "g-key", Model: "gemini-test"}, testLogger())
	s, err := c.Summarize(context.Background(), summaryRequest())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s == nil || s.Overall != "Done." || s.Consensus != "Yes" {
		t.Errorf("summary = %+v", s)
	}
}

func TestSummarize_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"API key invalid","status":"PERMISSION_DENIED"}}`)
	}))
	defer srv.Close()

	c := NewClient(config.ProviderConfig{BaseURL: srv.URL, AuthToken: "bad"}, testLogger())
	if _, err := c.Summarize(context.Background(), summaryRequest()); err == nil || !strings.Contains(err.Error(), "API key invalid") {
		t.Errorf("err = %v", err)
	}
}

func TestSummarize_NotConfigured(t *testing.T) {
	c := NewClient(config.ProviderConfig{BaseURL: "http://127.0.0.1:1"}, testLogger())
	s, err := c.Summarize(context.Background(), summaryRequest())
	if s != nil || err != nil {
		t.Errorf("Summarize = %+v, %v; want nil, nil", s, err)
	}
}
