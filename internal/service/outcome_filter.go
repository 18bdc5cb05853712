package service

import (
	"strings"

	"ForecastDebate/internal/model"
)

// IsPlaceholderOutcome 判断选项是否为占位选项（不展示给模型，也不接受其预测）
func IsPlaceholderOutcome(o model.Outcome) bool {
	name := strings.TrimSpace(o.Name)
	if strings.Contains(strings.ToLower(name), "placeholder") {
		return true
	}
	if o.Volume != nil && *o.Volume == 0 {
		return true
	}
	if o.Shares != nil && *o.Shares == 0 {
		return true
	}
	if o.PriceChange24h != nil && *o.PriceChange24h == 0 {
		return true
	}
	// "Other" 兜底选项：价格恰好 0.5 且没有成交
	if strings.EqualFold(name, "Other") && o.Price == 0.5 && (o.Shares == nil || *o.Shares == 0) {
		return true
	}
	return false
}

// FilterOutcomes 过滤占位选项，保持原顺序；全部被过滤时返回 ErrNoValidOutcomes
func FilterOutcomes(outcomes []model.Outcome) ([]model.Outcome, error) {
	out := make([]model.Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if IsPlaceholderOutcome(o) {
			continue
		}
		out = append(out, o)
	}
	if len(out) == 0 {
		return nil, ErrNoValidOutcomes
	}
	return out, nil
}
