package gemini

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ForecastDebate/internal/interfaces"
	"ForecastDebate/internal/model"
)

const summaryTemplate = `You are analyzing an AI debate about a prediction market question.

**Market Question:** %s

**Market Description:** %s

**Outcomes:** %s

**Participating AI Models:** %s

**Full Debate Transcript:**
%s

Please provide a comprehensive analysis in the following JSON format:

{
  "overall": "A 2-3 sentence summary of the entire debate and its key findings",
  "agreements": [
    "List of key points where all models agreed",
    "Each as a separate string"
  ],
  "disagreements": [
    {
      "topic": "Topic of disagreement",
      "positions": {
        "Model Name 1": "Their position description",
        "Model Name 2": "Their position description"
      }
    }
  ],
  "consensus": "Overall consensus statement about the likely outcome and confidence level",
  "model_rationales": [
    {
      "model": "Model Name",
      "final_prediction": {"Outcome1": percentage, "Outcome2": percentage},
      "rationale": "Why this model reached this conclusion",
      "key_arguments": ["Key argument 1", "Key argument 2", "Key argument 3"]
    }
  ]
}

IMPORTANT:
- Return ONLY valid JSON, no additional text
- Base analysis on actual debate content
- Be specific and cite actual arguments from the transcript
- Extract final predictions from the last round of each model
- Identify real agreements and disagreements, not generic ones
`

// BuildPrompt 按参与者分组的完整辩论记录
func BuildPrompt(req *interfaces.SummaryRequest) string {
	odds := make([]string, 0, len(req.Outcomes))
	for _, o := range req.Outcomes {
		odds = append(odds, fmt.Sprintf("%s (%.1f%%)", o.Name, o.Price*100))
	}
	names := make([]string, 0, len(req.Participants))
	for _, p := range req.Participants {
		names = append(names, p.ModelName)
	}
	return fmt.Sprintf(summaryTemplate,
		req.Question,
		req.Description,
		strings.Join(odds, ", "),
		strings.Join(names, ", "),
		transcript(req),
	)
}

func transcript(req *interfaces.SummaryRequest) string {
	var order []string
	grouped := make(map[string][]model.Message)
	for _, m := range req.Messages {
		if _, ok := grouped[m.ParticipantName]; !ok {
			order = append(order, m.ParticipantName)
		}
		grouped[m.ParticipantName] = append(grouped[m.ParticipantName], m)
	}

	var b strings.Builder
	for _, name := range order {
		fmt.Fprintf(&b, "\n## %s\n\n", name)
		for _, m := range grouped[name] {
			fmt.Fprintf(&b, "**Round %d:** %s\n", m.Round, m.Text)
			if preds := formatPredictions(m.PredictionMap(), req.Outcomes); preds != "" {
				fmt.Fprintf(&b, "*Predictions: %s*\n", preds)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// formatPredictions 先按选项顺序输出，其余标签按名称排序
func formatPredictions(preds map[string]float64, outcomes []model.Outcome) string {
	if len(preds) == 0 {
		return ""
	}
	seen := make(map[string]bool, len(preds))
	parts := make([]string, 0, len(preds))
	for _, o := range outcomes {
		if v, ok := preds[o.Name]; ok {
			parts = append(parts, fmt.Sprintf("%s: %s%%", o.Name, strconv.FormatFloat(v, 'f', -1, 64)))
			seen[o.Name] = true
		}
	}
	var rest []string
	for k := range preds {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		parts = append(parts, fmt.Sprintf("%s: %s%%", k, strconv.FormatFloat(preds[k], 'f', -1, 64)))
	}
	return strings.Join(parts, ", ")
}
