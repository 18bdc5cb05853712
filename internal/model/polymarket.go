package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// GammaEvent Polymarket Gamma /events/{id} 返回结构（仅取辩论需要的字段）
type GammaEvent struct {
	ID          string        `json:"id"`
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Active      bool          `json:"active"`
	Closed      bool          `json:"closed"`
	Volume      FlexFloat     `json:"volume"`
	Liquidity   FlexFloat     `json:"liquidity"`
	Markets     []GammaMarket `json:"markets"`
}

// GammaMarket 事件下的单个市场；多选项事件每个选项对应一个二元市场
type GammaMarket struct {
	ID                string      `json:"id"`
	Question          string      `json:"question"`
	GroupItemTitle    string      `json:"groupItemTitle"`
	Outcomes          StringArray `json:"outcomes"`
	OutcomePrices     StringArray `json:"outcomePrices"`
	Volume            FlexFloat   `json:"volume"`
	VolumeNum         FlexFloat   `json:"volumeNum"`
	LiquidityNum      FlexFloat   `json:"liquidityNum"`
	OneDayPriceChange FlexFloat   `json:"oneDayPriceChange"`
	Active            bool        `json:"active"`
	Closed            bool        `json:"closed"`
}

// StringArray 兼容 Gamma 的伪 JSON 数组字符串（"[\"Yes\",\"No\"]"）和真实数组
type StringArray []string

func (s *StringArray) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		*s = nil
		return nil
	}
	if strings.HasPrefix(raw, "\"") {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return err
		}
		inner = strings.TrimSpace(inner)
		if inner == "" || inner == "null" {
			*s = nil
			return nil
		}
		raw = inner
	}
	var items []interface{}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			out = append(out, "")
		}
	}
	*s = out
	return nil
}

// FlexFloat 兼容数字与数字字符串，解析失败视为缺失
type FlexFloat struct {
	Value float64
	Valid bool
}

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		*f = FlexFloat{}
		return nil
	}
	raw = strings.Trim(raw, "\"")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*f = FlexFloat{}
		return nil
	}
	*f = FlexFloat{Value: v, Valid: true}
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Ptr 缺失时返回 nil
func (f FlexFloat) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}
