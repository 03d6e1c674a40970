package convert

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseGeminiResponse turns a Gemini GenerateContent response into the IR.
// Per spec.md §4.1's "Response Gemini → OpenAI" rule: every
// candidates[].content.parts[].text is concatenated, parts joined by space
// within a candidate, candidates joined by newline.
func ParseGeminiResponse(raw []byte) (UnifiedResponse, error) {
	root := gjson.ParseBytes(raw)
	resp := UnifiedResponse{}

	var candidateTexts []string
	root.Get("candidates").ForEach(func(_, cand gjson.Result) bool {
		var parts []string
		cand.Get("content.parts").ForEach(func(_, p gjson.Result) bool {
			if t := p.Get("text"); t.Exists() {
				parts = append(parts, t.String())
			}
			if p.Get("functionCall").Exists() {
				resp.ToolCalls = append(resp.ToolCalls, ToolCall{
					ID:    p.Get("functionCall.name").String(),
					Name:  p.Get("functionCall.name").String(),
					Input: p.Get("functionCall.args").Value(),
				})
			}
			return true
		})
		candidateTexts = append(candidateTexts, strings.Join(parts, " "))
		return true
	})
	resp.Text = strings.Join(candidateTexts, "\n")

	resp.RawFinishReason = root.Get("candidates.0.finishReason").String()
	resp.FinishReason = FinishStop
	if len(resp.ToolCalls) > 0 {
		resp.FinishReason = FinishToolCalls
	}

	if u := root.Get("usageMetadata"); u.Exists() {
		resp.Usage = UnifiedUsage{
			HasUsage:         true,
			PromptTokens:     int(u.Get("promptTokenCount").Int()),
			CompletionTokens: int(u.Get("candidatesTokenCount").Int()),
			TotalTokens:      int(u.Get("totalTokenCount").Int()),
		}
	}
	return resp, nil
}

// RenderGeminiResponse renders the IR into a Gemini GenerateContent response.
func RenderGeminiResponse(r UnifiedResponse) ([]byte, error) {
	var parts []map[string]any
	if r.Text != "" {
		parts = append(parts, map[string]any{"text": r.Text})
	}
	for _, tc := range r.ToolCalls {
		parts = append(parts, map[string]any{"functionCall": map[string]any{"name": tc.Name, "args": tc.Input}})
	}

	out := map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"parts": parts, "role": "model"},
			"finishReason": renderGeminiFinish(r.FinishReason),
		}},
		"usageMetadata": map[string]any{
			"promptTokenCount":     r.Usage.PromptTokens,
			"candidatesTokenCount": r.Usage.CompletionTokens,
			"totalTokenCount":      r.Usage.TotalTokens,
		},
	}
	return json.Marshal(out)
}
