package model

// DebateSummary 辩论共识摘要（一场辩论只生成一次）
type DebateSummary struct {
	Overall         string           `json:"overall"`
	Agreements      []string         `json:"agreements"`
	Disagreements   []Disagreement   `json:"disagreements"`
	Consensus       string           `json:"consensus"`
	ModelRationales []ModelRationale `json:"model_rationales"`
}

// Disagreement 分歧点及各模型立场
type Disagreement struct {
	Topic     string            `json:"topic"`
	Positions map[string]string `json:"positions"`
}

// ModelRationale 单个模型的最终结论
type ModelRationale struct {
	Model           string             `json:"model"`
	FinalPrediction map[string]float64 `json:"final_prediction"`
	Rationale       string             `json:"rationale"`
	KeyArguments    []string           `json:"key_arguments"`
}

// FinalPrediction 单个参与者首轮与末轮预测对比，Change 为领先选项的百分点变化（带符号）
type FinalPrediction struct {
	ParticipantID     string             `json:"participant_id"`
	ParticipantName   string             `json:"participant_name"`
	InitialPrediction map[string]float64 `json:"initial_prediction"`
	FinalPrediction   map[string]float64 `json:"final_prediction"`
	LeadingOutcome    string             `json:"leading_outcome"`
	Change            float64            `json:"change"`
}
