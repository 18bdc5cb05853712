package model

// Market 预测市场快照
type Market struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug,omitempty"`
	Question    string    `json:"question"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	Closed      bool      `json:"closed"`
	Volume      *float64  `json:"volume,omitempty"`
	Outcomes    []Outcome `json:"outcomes"`
}

// Outcome 市场选项，Price 为 [0,1] 的隐含概率
type Outcome struct {
	Name           string   `json:"name"`
	Price          float64  `json:"price"`
	Volume         *float64 `json:"volume,omitempty"`
	Shares         *float64 `json:"shares,omitempty"`
	PriceChange24h *float64 `json:"price_change_24h,omitempty"`
	Liquidity      *float64 `json:"liquidity,omitempty"`
}

// Names 选项名列表（保持顺序）
func Names(outcomes []Outcome) []string {
	out := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, o.Name)
	}
	return out
}
