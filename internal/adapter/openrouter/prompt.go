package openrouter

import (
	"fmt"
	"strings"

	"ForecastDebate/internal/interfaces"
)

const finalRoundInstructions = `
- THIS IS THE FINAL ROUND - Make your definitive prediction and final decision
- Synthesize all arguments from the debate to make your most confident prediction
- Your predictions should represent your final stance after considering all perspectives`

const systemTemplate = `You are participating in a structured debate about a prediction market.

Market Question: %s

Market Description: %s

Possible Outcomes: %s

Instructions:
- This is round %d of the debate%s
- You MUST respond with VALID JSON in this exact format:
{
  "argument": "Your 1-2 sentence argument here",
  "predictions": {%s}
}

- Your argument should be concise and substantive (1-2 sentences max)
- Predictions must be integers that sum to 100
- Base your predictions on your analysis and the current discussion
- Build upon or respond to previous arguments if applicable
- Return ONLY valid JSON, no additional text`

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildMessages system 提示词 + 之前全部发言（assistant）+ 本轮 user 提示
func BuildMessages(req *interfaces.TurnRequest) []ChatMessage {
	messages := make([]ChatMessage, 0, len(req.Context)+2)
	messages = append(messages, ChatMessage{Role: "system", Content: systemPrompt(req)})
	for _, m := range req.Context {
		messages = append(messages, ChatMessage{
			Role:    "assistant",
			Content: fmt.Sprintf("[%s]: %s", m.ParticipantName, m.Text),
		})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: userPrompt(req)})
	return messages
}

func systemPrompt(req *interfaces.TurnRequest) string {
	odds := make([]string, 0, len(req.Outcomes))
	example := make([]string, 0, len(req.Outcomes))
	for _, o := range req.Outcomes {
		odds = append(odds, fmt.Sprintf("%s (current odds: %.1f%%)", o.Name, o.Price*100))
		example = append(example, fmt.Sprintf("%q: percentage", o.Name))
	}
	final := ""
	if req.IsFinal {
		final = finalRoundInstructions
	}
	return fmt.Sprintf(systemTemplate,
		req.Question,
		req.Description,
		strings.Join(odds, ", "),
		req.Round,
		final,
		strings.Join(example, ", "),
	)
}

func userPrompt(req *interfaces.TurnRequest) string {
	switch {
	case req.Round == 1 && len(req.Context) == 0:
		return "Provide your opening argument on this prediction market."
	case req.IsFinal:
		return "This is the final round. After considering all the arguments presented in this debate, provide your final prediction and conclusive statement on the market outcome."
	default:
		return fmt.Sprintf("Provide your argument for round %d, considering the previous discussion.", req.Round)
	}
}
