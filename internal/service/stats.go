package service

import (
	"fmt"
	"sort"

	"ForecastDebate/internal/model"

	"github.com/shopspring/decimal"
)

// 与市场价格的偏离阈值（百分点）
const (
	alignedThreshold  = 5.0
	slightThreshold   = 10.0
	moderateThreshold = 20.0
)

// MarketDelta 辩论领先选项的平均预测与市场隐含概率的对比
type MarketDelta struct {
	Outcome           string  `json:"outcome"`
	DebateAverage     float64 `json:"debate_average"`
	MarketProbability float64 `json:"market_probability"`
	Delta             float64 `json:"delta"`
	Direction         string  `json:"direction"` // bullish / bearish / aligned
	Magnitude         string  `json:"magnitude"` // slight / moderate / strong，aligned 时为空
	Label             string  `json:"label"`
}

// DebateStatistics 辩论结束后的统计
type DebateStatistics struct {
	AveragePredictions map[string]float64 `json:"average_predictions"`
	MedianPredictions  map[string]float64 `json:"median_predictions"`
	Variance           float64            `json:"variance"`
	FinalMessages      int                `json:"final_messages"`
	TotalMessages      int                `json:"total_messages"`
	MarketDelta        *MarketDelta       `json:"market_delta,omitempty"`
	DurationSeconds    float64            `json:"duration_seconds"`
}

// ComputeStatistics 纯函数：只读取 debate，空消息集返回空映射与零值
func ComputeStatistics(d *model.Debate) DebateStatistics {
	stats := DebateStatistics{
		AveragePredictions: map[string]float64{},
		MedianPredictions:  map[string]float64{},
		TotalMessages:      len(d.Messages),
		DurationSeconds:    debateDuration(d),
	}

	finals := finalRoundMessages(d)
	stats.FinalMessages = len(finals)
	if len(finals) == 0 {
		return stats
	}

	values := make(map[string][]decimal.Decimal)
	var pooled []decimal.Decimal
	for _, m := range finals {
		for name, v := range m.PredictionMap() {
			dv := decimal.NewFromFloat(v)
			values[name] = append(values[name], dv)
			pooled = append(pooled, dv)
		}
	}

	for name, vs := range values {
		stats.AveragePredictions[name] = mean(vs).Round(2).InexactFloat64()
		stats.MedianPredictions[name] = median(vs).Round(2).InexactFloat64()
	}
	stats.Variance = variance(pooled).Round(2).InexactFloat64()
	stats.MarketDelta = marketDelta(stats.AveragePredictions, d.Outcomes)
	return stats
}

// finalRoundMessages 末轮消息；末轮没有任何消息时取每个参与者最新的一条
func finalRoundMessages(d *model.Debate) []model.Message {
	var out []model.Message
	for _, m := range d.Messages {
		if m.Round == d.Rounds {
			out = append(out, m)
		}
	}
	if len(out) > 0 {
		return out
	}

	latest := make(map[string]model.Message)
	for _, m := range d.Messages {
		if cur, ok := latest[m.ParticipantID]; !ok || m.Sequence > cur.Sequence {
			latest[m.ParticipantID] = m
		}
	}
	for _, m := range latest {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func debateDuration(d *model.Debate) float64 {
	if d.CreatedAt.IsZero() || d.CompletedAt == nil || d.CompletedAt.IsZero() {
		return 0
	}
	secs := d.CompletedAt.Sub(d.CreatedAt).Seconds()
	if secs < 0 {
		return 0
	}
	return decimal.NewFromFloat(secs).Round(2).InexactFloat64()
}

func marketDelta(averages map[string]float64, outcomes []model.DebateOutcome) *MarketDelta {
	leading, avg := LeadingOutcome(averages)
	if leading == "" {
		return nil
	}
	var (
		price float64
		found bool
	)
	for _, o := range outcomes {
		if o.Name == leading {
			price, found = o.Price, true
			break
		}
	}
	if !found {
		return nil
	}

	marketPct := decimal.NewFromFloat(price).Mul(hundred).Round(2)
	delta := decimal.NewFromFloat(avg).Sub(marketPct).Round(2)
	abs := delta.Abs().InexactFloat64()

	md := &MarketDelta{
		Outcome:           leading,
		DebateAverage:     avg,
		MarketProbability: marketPct.InexactFloat64(),
		Delta:             delta.InexactFloat64(),
	}
	switch {
	case abs < alignedThreshold:
		md.Direction = "aligned"
		md.Label = "aligned with market"
		return md
	case delta.IsPositive():
		md.Direction = "bullish"
	default:
		md.Direction = "bearish"
	}
	switch {
	case abs < slightThreshold:
		md.Magnitude = "slight"
		md.Label = fmt.Sprintf("slightly %s", md.Direction)
	case abs < moderateThreshold:
		md.Magnitude = "moderate"
		md.Label = fmt.Sprintf("moderately %s", md.Direction)
	default:
		md.Magnitude = "strong"
		md.Label = fmt.Sprintf("strongly %s", md.Direction)
	}
	return md
}

func mean(vs []decimal.Decimal) decimal.Decimal {
	if len(vs) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(vs[0], vs[1:]...).Div(decimal.NewFromInt(int64(len(vs))))
}

func median(vs []decimal.Decimal) decimal.Decimal {
	if len(vs) == 0 {
		return decimal.Zero
	}
	sorted := make([]decimal.Decimal, len(vs))
	copy(sorted, vs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
}

// variance 总体方差
func variance(vs []decimal.Decimal) decimal.Decimal {
	if len(vs) == 0 {
		return decimal.Zero
	}
	m := mean(vs)
	acc := decimal.Zero
	for _, v := range vs {
		d := v.Sub(m)
		acc = acc.Add(d.Mul(d))
	}
	return acc.Div(decimal.NewFromInt(int64(len(vs))))
}
