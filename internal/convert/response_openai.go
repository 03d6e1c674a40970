package convert

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ParseOpenAIResponse turns a Chat Completions response into the IR.
func ParseOpenAIResponse(raw []byte) (UnifiedResponse, error) {
	root := gjson.ParseBytes(raw)
	resp := UnifiedResponse{
		ID:    root.Get("id").String(),
		Model: root.Get("model").String(),
	}
	choice := root.Get("choices.0")
	resp.Text = choice.Get("message.content").String()

	choice.Get("message.tool_calls").ForEach(func(_, tc gjson.Result) bool {
		var input any
		args := tc.Get("function.arguments").String()
		if err := json.Unmarshal([]byte(args), &input); err != nil {
			input = args
		}
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID: tc.Get("id").String(), Name: tc.Get("function.name").String(), Input: input,
		})
		return true
	})

	resp.FinishReason, resp.RawFinishReason = normalizeOpenAIFinish(choice.Get("finish_reason").String())
	if len(resp.ToolCalls) > 0 && resp.FinishReason == FinishStop {
		resp.FinishReason = FinishToolCalls
	}

	if u := root.Get("usage"); u.Exists() {
		resp.Usage = UnifiedUsage{
			HasUsage:         true,
			PromptTokens:     int(u.Get("prompt_tokens").Int()),
			CompletionTokens: int(u.Get("completion_tokens").Int()),
			TotalTokens:      int(u.Get("total_tokens").Int()),
		}
	}
	return resp, nil
}

// RenderOpenAIResponse renders the IR into a Chat Completions response.
func RenderOpenAIResponse(r UnifiedResponse) ([]byte, error) {
	id := r.ID
	if id == "" {
		id = "chatcmpl-" + uuid.NewString()
	}

	message := map[string]any{"role": "assistant", "content": r.Text}
	if len(r.ToolCalls) > 0 {
		message["content"] = nil
		var calls []map[string]any
		for _, tc := range r.ToolCalls {
			args, _ := json.Marshal(tc.Input)
			calls = append(calls, map[string]any{
				"id": tc.ID, "type": "function",
				"function": map[string]any{"name": tc.Name, "arguments": string(args)},
			})
		}
		message["tool_calls"] = calls
	}

	out := map[string]any{
		"id":      id,
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   r.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       message,
			"finish_reason": renderOpenAIFinish(r.FinishReason, r.RawFinishReason),
		}},
		"usage": map[string]any{
			"prompt_tokens":     r.Usage.PromptTokens,
			"completion_tokens": r.Usage.CompletionTokens,
			"total_tokens":      r.Usage.TotalTokens,
		},
	}
	return json.Marshal(out)
}
