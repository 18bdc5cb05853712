package gemini

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"ForecastDebate/internal/interfaces"
	"ForecastDebate/internal/model"
)

const fallbackOverallChars = 500

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")
	rawJSON    = regexp.MustCompile(`(?s)\{.*\}`)
)

// ParseSummary 解析模型返回的摘要 JSON；缺失字段补默认值，无法解析时退化为兜底摘要
func ParseSummary(text string, req *interfaces.SummaryRequest) *model.DebateSummary {
	raw := text
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		raw = m[1]
	} else if m := rawJSON.FindString(text); m != "" {
		raw = m
	}

	var keys map[string]json.RawMessage
	var summary model.DebateSummary
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return fallbackSummary(text, req)
	}
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return fallbackSummary(text, req)
	}

	if _, ok := keys["overall"]; !ok {
		summary.Overall = "Debate summary not available."
	}
	if _, ok := keys["consensus"]; !ok {
		summary.Consensus = "No clear consensus reached."
	}
	if summary.Agreements == nil {
		summary.Agreements = []string{}
	}
	if summary.Disagreements == nil {
		summary.Disagreements = []model.Disagreement{}
	}
	if summary.ModelRationales == nil {
		summary.ModelRationales = []model.ModelRationale{}
	}
	return &summary
}

func fallbackSummary(text string, req *interfaces.SummaryRequest) *model.DebateSummary {
	overall := truncateRunes(strings.TrimSpace(text), fallbackOverallChars)
	if overall == "" {
		overall = "Summary generation failed."
	}
	rationales := make([]model.ModelRationale, 0, len(req.Participants))
	for _, p := range req.Participants {
		rationales = append(rationales, model.ModelRationale{
			Model:           p.ModelName,
			FinalPrediction: lastPrediction(p.ModelID, req.Messages, req.Outcomes),
			Rationale:       "Analysis not available.",
			KeyArguments:    []string{},
		})
	}
	return &model.DebateSummary{
		Overall:         overall,
		Agreements:      []string{},
		Disagreements:   []model.Disagreement{},
		Consensus:       "Unable to determine consensus.",
		ModelRationales: rationales,
	}
}

// lastPrediction 参与者最后一条消息的预测，没有时均分 100（余数给靠前的选项）
func lastPrediction(modelID string, messages []model.Message, outcomes []model.Outcome) map[string]float64 {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].ParticipantID != modelID {
			continue
		}
		if preds := messages[i].PredictionMap(); len(preds) > 0 {
			return preds
		}
		break
	}
	out := make(map[string]float64, len(outcomes))
	if len(outcomes) == 0 {
		return out
	}
	share, remainder := 100/len(outcomes), 100%len(outcomes)
	for i, o := range outcomes {
		v := share
		if i < remainder {
			v++
		}
		out[o.Name] = float64(v)
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
