package service

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// NormalizeResult 归一化结果。Missing 为没有收到预测的有效选项，Unmatched 为无法对应到有效选项的标签
type NormalizeResult struct {
	Predictions map[string]float64
	Missing     []string
	Unmatched   []string
}

// Sum 预测总和（按两位小数精确累加）
func (r NormalizeResult) Sum() float64 {
	return sumDecimal(r.Predictions).InexactFloat64()
}

// NormalizePredictions 把模型给出的原始分布归一化为合计 100.00 的百分比分布。
// 标签先精确匹配、再忽略大小写匹配到有效选项名；无法匹配的标签默认保留，strict 时丢弃。
// 纯函数：相同输入总是得到相同输出。
func NormalizePredictions(raw map[string]float64, valid []string, strict bool) NormalizeResult {
	res := NormalizeResult{Predictions: map[string]float64{}}

	exact := make(map[string]string, len(valid))
	for _, v := range valid {
		exact[v] = v
	}

	labels := make([]string, 0, len(raw))
	for label := range raw {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	acc := make(map[string]decimal.Decimal)
	for _, label := range labels {
		value := raw[label]
		name := strings.TrimSpace(label)
		if name == "" || strings.Contains(strings.ToLower(name), "placeholder") {
			continue
		}
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			continue
		}
		canonical, ok := matchOutcome(name, exact, valid)
		if !ok {
			res.Unmatched = append(res.Unmatched, name)
			if strict {
				continue
			}
			canonical = name
		}
		acc[canonical] = acc[canonical].Add(decimal.NewFromFloat(value))
	}

	for _, v := range valid {
		if _, ok := acc[v]; !ok {
			res.Missing = append(res.Missing, v)
		}
	}

	if len(acc) == 0 {
		return res
	}

	total := decimal.Zero
	for _, v := range acc {
		total = total.Add(v)
	}
	if total.IsZero() {
		for name := range acc {
			res.Predictions[name] = 0
		}
		return res
	}

	scaled := make(map[string]decimal.Decimal, len(acc))
	roundedSum := decimal.Zero
	for name, v := range acc {
		s := v.Mul(hundred).Div(total).Round(2)
		scaled[name] = s
		roundedSum = roundedSum.Add(s)
	}
	if residual := hundred.Sub(roundedSum); !residual.IsZero() {
		top := largestEntry(scaled)
		scaled[top] = scaled[top].Add(residual)
	}
	for name, v := range scaled {
		res.Predictions[name] = v.InexactFloat64()
	}
	return res
}

func matchOutcome(label string, exact map[string]string, valid []string) (string, bool) {
	if c, ok := exact[label]; ok {
		return c, true
	}
	for _, v := range valid {
		if strings.EqualFold(strings.TrimSpace(v), label) {
			return v, true
		}
	}
	return "", false
}

// largestEntry 最大值对应的名称，同值取名称字典序最小者
func largestEntry(m map[string]decimal.Decimal) string {
	var (
		best    string
		bestVal decimal.Decimal
		found   bool
	)
	for name, v := range m {
		if !found || v.GreaterThan(bestVal) || (v.Equal(bestVal) && name < best) {
			best, bestVal, found = name, v, true
		}
	}
	return best
}

func sumDecimal(m map[string]float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total
}

// LeadingOutcome 预测中概率最高的选项，同值取名称字典序最小者
func LeadingOutcome(p map[string]float64) (string, float64) {
	var (
		best    string
		bestVal float64
		found   bool
	)
	for name, v := range p {
		if !found || v > bestVal || (v == bestVal && name < best) {
			best, bestVal, found = name, v, true
		}
	}
	return best, bestVal
}
