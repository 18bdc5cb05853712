package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ForecastDebate/internal/interfaces"
	"ForecastDebate/internal/model"
	"ForecastDebate/internal/repository"
	"ForecastDebate/internal/testutil"
)

func TestTurnExecutor_AttachesSpeech(t *testing.T) {
	repo := repository.NewDebateRepository(testutil.NewDB(t))
	d := testutil.SeedDebate(t, repo, 1, 1)
	exec := NewTurnExecutor(repo, &fakeLLM{}, &fakeTTS{}, testutil.Logger(), false, time.Second)

	msg, err := exec.Execute(context.Background(), d, d.OutcomeList(), d.Participants[0], 1)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if msg.AudioURL == nil || *msg.AudioURL != "/api/audio/"+msg.MessageID+".mp3" {
		t.Errorf("audio_url = %v", msg.AudioURL)
	}
	if msg.Sequence != 1 || msg.Kind != model.KindInitial {
		t.Errorf("message = seq %d kind %s", msg.Sequence, msg.Kind)
	}
	if len(d.Messages) != 1 {
		t.Errorf("debate.Messages = %d, want 1", len(d.Messages))
	}

	stored, _ := repo.GetByID(context.Background(), d.DebateID)
	if stored.Messages[0].AudioURL == nil {
		t.Error("audio reference not persisted")
	}
}

func TestTurnExecutor_SpeechFailureIsDegraded(t *testing.T) {
	repo := repository.NewDebateRepository(testutil.NewDB(t))
	d := testutil.SeedDebate(t, repo, 1, 1)
	exec := NewTurnExecutor(repo, &fakeLLM{}, &fakeTTS{err: errors.New("tts down")}, testutil.Logger(), false, time.Second)

	msg, err := exec.Execute(context.Background(), d, d.OutcomeList(), d.Participants[0], 1)
	if err != nil {
		t.Fatalf("Execute should succeed without audio: %v", err)
	}
	if msg.AudioURL != nil {
		t.Errorf("audio_url = %v, want nil", *msg.AudioURL)
	}
	if n, _ := repo.CountMessages(context.Background(), d.DebateID); n != 1 {
		t.Errorf("persisted messages = %d, want 1", n)
	}
}

func TestTurnExecutor_ModelErrorCarriesParticipant(t *testing.T) {
	repo := repository.NewDebateRepository(testutil.NewDB(t))
	d := testutil.SeedDebate(t, repo, 1, 2)
	llm := &fakeLLM{handler: func(ctx context.Context, req *interfaces.TurnRequest) (*interfaces.TurnResponse, error) {
		return nil, errors.New("rate limited")
	}}
	exec := NewTurnExecutor(repo, llm, nil, testutil.Logger(), false, time.Second)

	_, err := exec.Execute(context.Background(), d, d.OutcomeList(), d.Participants[0], 2)
	var te *TurnError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TurnError", err)
	}
	if te.ParticipantID != d.Participants[0].ModelID || te.Kind != TurnModelError || te.Round != 2 || te.Message() != "rate limited" {
		t.Errorf("turn error = %+v", te)
	}
	if len(d.Messages) != 0 {
		t.Error("failed turn appended a message")
	}
}

func TestTurnError_MessageNeverBlank(t *testing.T) {
	te := &TurnError{Kind: TurnNoPredictions}
	if te.Message() != "no predictions" {
		t.Errorf("Message() = %q", te.Message())
	}
	ev := model.NewErrorEvent(nil, "", "", time.Now())
	data := ev.Data.(model.ErrorData)
	if data.Error == "" || data.Message == "" {
		t.Errorf("error event = %+v, want non-empty fields", data)
	}
}
