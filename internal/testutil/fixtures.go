package testutil

import (
	"context"
	"fmt"
	"io"
	"testing"

	"ForecastDebate/internal/model"
	"ForecastDebate/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Logger 丢弃输出的日志器
func Logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Participants 生成 n 个参与者（model-a, model-b, ...）
func Participants(n int) []model.DebateParticipant {
	out := make([]model.DebateParticipant, 0, n)
	for i := 0; i < n; i++ {
		letter := string(rune('a' + i))
		out = append(out, model.DebateParticipant{
			ModelID:   fmt.Sprintf("test/model-%s", letter),
			ModelName: fmt.Sprintf("Model %s", string(rune('A'+i))),
			Provider:  "Test",
		})
	}
	return out
}

// SeedDebate 写入一个 Yes/No 市场上的 initialized 辩论
func SeedDebate(t testing.TB, repo repository.DebateRepository, participants, rounds int) *model.Debate {
	t.Helper()
	d := &model.Debate{
		DebateID:          uuid.NewString(),
		Status:            model.StatusInitialized,
		MarketID:          "12345",
		MarketQuestion:    "Will it rain tomorrow?",
		MarketDescription: "Resolves Yes if any rain is recorded.",
		Rounds:            rounds,
		Participants:      Participants(participants),
		Outcomes: []model.DebateOutcome{
			{Name: "Yes", Price: 0.6},
			{Name: "No", Price: 0.4},
		},
	}
	if err := repo.Create(context.Background(), d); err != nil {
		t.Fatalf("seed debate: %v", err)
	}
	return d
}
