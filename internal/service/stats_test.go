package service

import (
	"reflect"
	"testing"
	"time"

	"ForecastDebate/internal/model"
)

func statMessage(seq, round int, participant string, p map[string]float64) model.Message {
	return model.Message{
		Sequence:      seq,
		Round:         round,
		ParticipantID: participant,
		Predictions:   model.EncodePredictions(p),
	}
}

func TestComputeStatistics_Empty(t *testing.T) {
	stats := ComputeStatistics(&model.Debate{Rounds: 3})
	if stats.AveragePredictions == nil || len(stats.AveragePredictions) != 0 {
		t.Errorf("averages = %v, want empty map", stats.AveragePredictions)
	}
	if stats.MedianPredictions == nil || len(stats.MedianPredictions) != 0 {
		t.Errorf("medians = %v, want empty map", stats.MedianPredictions)
	}
	if stats.Variance != 0 || stats.DurationSeconds != 0 || stats.MarketDelta != nil {
		t.Errorf("stats = %+v, want zero values", stats)
	}
}

func TestComputeStatistics_FinalRound(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	completed := created.Add(90 * time.Second)
	d := &model.Debate{
		Rounds:      2,
		CreatedAt:   created,
		CompletedAt: &completed,
		Outcomes:    []model.DebateOutcome{{Name: "Yes", Price: 0.6}, {Name: "No", Price: 0.4}},
		Messages: []model.Message{
			statMessage(1, 1, "a", map[string]float64{"Yes": 50, "No": 50}),
			statMessage(2, 1, "b", map[string]float64{"Yes": 50, "No": 50}),
			statMessage(3, 2, "a", map[string]float64{"Yes": 70, "No": 30}),
			statMessage(4, 2, "b", map[string]float64{"Yes": 80, "No": 20}),
		},
	}
	stats := ComputeStatistics(d)

	if want := map[string]float64{"Yes": 75, "No": 25}; !reflect.DeepEqual(stats.AveragePredictions, want) {
		t.Errorf("averages = %v, want %v", stats.AveragePredictions, want)
	}
	if want := map[string]float64{"Yes": 75, "No": 25}; !reflect.DeepEqual(stats.MedianPredictions, want) {
		t.Errorf("medians = %v, want %v", stats.MedianPredictions, want)
	}
	// 70,30,80,20 的总体方差
	if stats.Variance != 650 {
		t.Errorf("variance = %v, want 650", stats.Variance)
	}
	if stats.FinalMessages != 2 || stats.TotalMessages != 4 {
		t.Errorf("final=%d total=%d", stats.FinalMessages, stats.TotalMessages)
	}
	if stats.DurationSeconds != 90 {
		t.Errorf("duration = %v, want 90", stats.DurationSeconds)
	}
	md := stats.MarketDelta
	if md == nil {
		t.Fatal("market delta missing")
	}
	if md.Outcome != "Yes" || md.MarketProbability != 60 || md.Delta != 15 || md.Direction != "bullish" || md.Magnitude != "moderate" {
		t.Errorf("market delta = %+v", md)
	}
}

func TestComputeStatistics_FallbackToLatestMessages(t *testing.T) {
	d := &model.Debate{
		Rounds:   3,
		Outcomes: []model.DebateOutcome{{Name: "Yes", Price: 0.7}, {Name: "No", Price: 0.3}},
		Messages: []model.Message{
			statMessage(1, 1, "a", map[string]float64{"Yes": 10, "No": 90}),
			statMessage(2, 1, "b", map[string]float64{"Yes": 60, "No": 40}),
			statMessage(3, 2, "a", map[string]float64{"Yes": 72, "No": 28}),
		},
	}
	stats := ComputeStatistics(d)
	if stats.FinalMessages != 2 {
		t.Fatalf("final messages = %d, want 2", stats.FinalMessages)
	}
	if stats.AveragePredictions["Yes"] != 66 {
		t.Errorf("Yes average = %v, want 66", stats.AveragePredictions["Yes"])
	}
	if stats.MarketDelta == nil || stats.MarketDelta.Direction != "aligned" {
		t.Errorf("market delta = %+v, want aligned", stats.MarketDelta)
	}
}

func TestComputeStatistics_MedianEvenAndBearish(t *testing.T) {
	d := &model.Debate{
		Rounds:   1,
		Outcomes: []model.DebateOutcome{{Name: "Yes", Price: 0.9}, {Name: "No", Price: 0.1}},
		Messages: []model.Message{
			statMessage(1, 1, "a", map[string]float64{"Yes": 40, "No": 60}),
			statMessage(2, 1, "b", map[string]float64{"Yes": 50, "No": 50}),
			statMessage(3, 1, "c", map[string]float64{"Yes": 70, "No": 30}),
			statMessage(4, 1, "d", map[string]float64{"Yes": 80, "No": 20}),
		},
	}
	stats := ComputeStatistics(d)
	if stats.MedianPredictions["Yes"] != 60 {
		t.Errorf("Yes median = %v, want 60", stats.MedianPredictions["Yes"])
	}
	md := stats.MarketDelta
	if md == nil || md.Outcome != "Yes" || md.Direction != "bearish" || md.Magnitude != "strong" || md.Delta != -30 {
		t.Errorf("market delta = %+v, want strongly bearish -30", md)
	}
}
