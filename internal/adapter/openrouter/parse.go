package openrouter

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"ForecastDebate/internal/interfaces"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// ParseTurnContent 从模型输出中解析 {"argument", "predictions"}。
// 找不到 JSON 时整段文本作为论点，预测为空（由调用方按无预测处理）
func ParseTurnContent(content string) *interfaces.TurnResponse {
	content = strings.TrimSpace(content)
	raw := ExtractJSONObject(content)
	if raw == "" {
		return &interfaces.TurnResponse{Argument: content}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return &interfaces.TurnResponse{Argument: content}
	}

	resp := &interfaces.TurnResponse{}
	for _, key := range []string{"argument", "text", "content"} {
		var s string
		if v, ok := fields[key]; ok && json.Unmarshal(v, &s) == nil && strings.TrimSpace(s) != "" {
			resp.Argument = strings.TrimSpace(s)
			break
		}
	}

	var preds map[string]json.RawMessage
	if v, ok := fields["predictions"]; ok && json.Unmarshal(v, &preds) == nil {
		resp.Predictions = make(map[string]float64, len(preds))
		for label, value := range preds {
			if f, ok := parsePercent(value); ok {
				resp.Predictions[label] = f
			}
		}
	}
	return resp
}

// ExtractJSONObject 优先取代码块里的 JSON，其次取第一个 { 到最后一个 } 之间的内容
func ExtractJSONObject(content string) string {
	if m := fencedJSON.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

// parsePercent 接受数字或 "65" / "65%" 形式的字符串
func parsePercent(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
