package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ForecastDebate/internal/model"
	"ForecastDebate/internal/repository"

	"github.com/shopspring/decimal"
)

// ComputeFinalPredictions 每个参与者首条与末条消息的预测对比，键为 model id
func ComputeFinalPredictions(d *model.Debate) map[string]model.FinalPrediction {
	out := make(map[string]model.FinalPrediction)
	for _, p := range d.Participants {
		var first, last *model.Message
		for i := range d.Messages {
			m := &d.Messages[i]
			if m.ParticipantID != p.ModelID {
				continue
			}
			if first == nil || m.Sequence < first.Sequence {
				first = m
			}
			if last == nil || m.Sequence > last.Sequence {
				last = m
			}
		}
		if last == nil {
			continue
		}
		initial := first.PredictionMap()
		final := last.PredictionMap()
		leading, finalValue := LeadingOutcome(final)
		change := decimal.NewFromFloat(finalValue).Sub(decimal.NewFromFloat(initial[leading])).Round(2)
		out[p.ModelID] = model.FinalPrediction{
			ParticipantID:     p.ModelID,
			ParticipantName:   p.ModelName,
			InitialPrediction: initial,
			FinalPrediction:   final,
			LeadingOutcome:    leading,
			Change:            change.InexactFloat64(),
		}
	}
	return out
}

// ResolveFinalPredictions 先读缓存，否则计算并只在 final_predictions 为空时落库。计算代价小，不加锁。
func ResolveFinalPredictions(ctx context.Context, repo repository.DebateRepository, d *model.Debate) (map[string]model.FinalPrediction, error) {
	cached, err := d.Predictions()
	if err != nil {
		return nil, fmt.Errorf("解析最终预测失败: %w", err)
	}
	if cached != nil {
		return cached, nil
	}

	raw, err := json.Marshal(ComputeFinalPredictions(d))
	if err != nil {
		return nil, fmt.Errorf("序列化最终预测失败: %w", err)
	}
	stored, err := repo.SaveFinalPredictions(ctx, d.DebateID, raw)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.FinalPrediction)
	if err := json.Unmarshal(stored, &out); err != nil {
		return nil, fmt.Errorf("解析最终预测失败: %w", err)
	}
	return out, nil
}
