package convert

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ParseClaudeResponse turns an Anthropic Messages response into the IR.
// content[] blocks of type "text" are joined by newline per spec.md §4.1's
// "Response Claude → OpenAI" rule (the join itself is a property of the
// Claude-shaped source, so it lives here rather than in the OpenAI renderer).
func ParseClaudeResponse(raw []byte) (UnifiedResponse, error) {
	root := gjson.ParseBytes(raw)
	resp := UnifiedResponse{ID: root.Get("id").String(), Model: root.Get("model").String()}

	var texts []string
	root.Get("content").ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").String() {
		case "text":
			texts = append(texts, block.Get("text").String())
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID: block.Get("id").String(), Name: block.Get("name").String(), Input: block.Get("input").Value(),
			})
		}
		return true
	})
	resp.Text = strings.Join(texts, "\n")

	resp.FinishReason, resp.RawFinishReason = normalizeClaudeFinish(root.Get("stop_reason").String())

	if u := root.Get("usage"); u.Exists() {
		in := int(u.Get("input_tokens").Int())
		outTok := int(u.Get("output_tokens").Int())
		resp.Usage = UnifiedUsage{HasUsage: true, PromptTokens: in, CompletionTokens: outTok, TotalTokens: in + outTok}
	}
	return resp, nil
}

// RenderClaudeResponse renders the IR into an Anthropic Messages response.
func RenderClaudeResponse(r UnifiedResponse) ([]byte, error) {
	id := r.ID
	if id == "" {
		id = "msg_" + uuid.NewString()
	}

	var content []map[string]any
	for _, tc := range r.ToolCalls {
		content = append(content, map[string]any{"type": "tool_use", "id": tc.ID, "name": tc.Name, "input": tc.Input})
	}
	if r.Text != "" {
		content = append(content, map[string]any{"type": "text", "text": r.Text})
	}

	out := map[string]any{
		"id":    id,
		"type":  "message",
		"role":  "assistant",
		"model": r.Model,
		"content":    content,
		"stop_reason": renderClaudeFinish(r.FinishReason, r.RawFinishReason),
		"usage": map[string]any{
			"input_tokens":  r.Usage.PromptTokens,
			"output_tokens": r.Usage.CompletionTokens,
		},
	}
	return json.Marshal(out)
}
