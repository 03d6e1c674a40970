package kiro

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/router-for-me/aigateway/internal/tokencount"
)

// RenderClaudeResponse builds a Claude-schema /v1/messages response from a
// parsed CodeWhisperer event-stream blob, per spec.md §4.4 "Response
// synthesis": tool_use blocks first, then a single text block, stop_reason
// tool_use/end_turn, usage.output_tokens estimated from text+args length.
func RenderClaudeResponse(parsed ParsedResponse, model string) ([]byte, error) {
	var content []map[string]any
	for _, tc := range parsed.ToolCalls {
		content = append(content, map[string]any{
			"type":  "tool_use",
			"id":    tc.ID,
			"name":  tc.Name,
			"input": tc.Input,
		})
	}
	if parsed.FullContent != "" {
		content = append(content, map[string]any{
			"type": "text",
			"text": parsed.FullContent,
		})
	}

	stopReason := "end_turn"
	if len(parsed.ToolCalls) > 0 {
		stopReason = "tool_use"
	}

	outputTokens := estimateOutputTokens(parsed)

	resp := map[string]any{
		"id":         "msg_" + uuid.NewString(),
		"type":       "message",
		"role":       "assistant",
		"model":      model,
		"content":    content,
		"stop_reason": stopReason,
		"usage": map[string]any{
			"input_tokens":  0,
			"output_tokens": outputTokens,
		},
	}
	return json.Marshal(resp)
}

// estimateOutputTokens sums a real cl100k_base token count across the text
// block and each tool call's serialized input, replacing spec.md §4.4's
// textlen/4+json(input).len/4 heuristic now that CodeWhisperer's own usage
// field is unavailable and a real tokenizer is wired in.
func estimateOutputTokens(parsed ParsedResponse) int {
	total := tokencount.Estimate(parsed.FullContent)
	for _, tc := range parsed.ToolCalls {
		switch v := tc.Input.(type) {
		case string:
			total += tokencount.Estimate(v)
		default:
			total += tokencount.EstimateJSON(v)
		}
	}
	return total
}
