package kiro

import (
	"encoding/json"
)

// SynthesizeSSE turns one full Claude-schema response into the sequence of
// SSE event bodies spec.md §4.4 describes for a non-streaming upstream:
// message_start -> per block (content_block_start, one delta,
// content_block_stop) -> message_delta -> message_stop. Each returned
// element is (eventName, jsonBody).
func SynthesizeSSE(claudeResponse []byte) ([]SSEEvent, error) {
	var resp struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Content []struct {
			Type  string `json:"type"`
			Text  string `json:"text"`
			ID    string `json:"id"`
			Name  string `json:"name"`
			Input any    `json:"input"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(claudeResponse, &resp); err != nil {
		return nil, err
	}

	var events []SSEEvent

	messageStart, err := json.Marshal(map[string]any{
		"type": "message_start",
		"message": map[string]any{
			"id":           resp.ID,
			"type":         "message",
			"role":         "assistant",
			"model":        resp.Model,
			"content":      []any{},
			"stop_reason":  nil,
			"stop_sequence": nil,
			"usage": map[string]any{
				"input_tokens":  0,
				"output_tokens": 0,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	events = append(events, SSEEvent{Name: "message_start", Body: messageStart})

	for index, block := range resp.Content {
		startBody, err := json.Marshal(map[string]any{
			"type":  "content_block_start",
			"index": index,
			"content_block": contentBlockSkeleton(block.Type, block.ID, block.Name),
		})
		if err != nil {
			return nil, err
		}
		events = append(events, SSEEvent{Name: "content_block_start", Body: startBody})

		var delta map[string]any
		if block.Type == "tool_use" {
			delta = map[string]any{
				"type":         "input_json_delta",
				"partial_json": rawInputString(block.Input),
			}
		} else {
			delta = map[string]any{
				"type": "text_delta",
				"text": block.Text,
			}
		}
		deltaBody, err := json.Marshal(map[string]any{
			"type":  "content_block_delta",
			"index": index,
			"delta": delta,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, SSEEvent{Name: "content_block_delta", Body: deltaBody})

		stopBody, err := json.Marshal(map[string]any{"type": "content_block_stop", "index": index})
		if err != nil {
			return nil, err
		}
		events = append(events, SSEEvent{Name: "content_block_stop", Body: stopBody})
	}

	messageDelta, err := json.Marshal(map[string]any{
		"type": "message_delta",
		"delta": map[string]any{
			"stop_reason":   resp.StopReason,
			"stop_sequence": nil,
		},
		"usage": map[string]any{"output_tokens": resp.Usage.OutputTokens},
	})
	if err != nil {
		return nil, err
	}
	events = append(events, SSEEvent{Name: "message_delta", Body: messageDelta})

	stopBody, err := json.Marshal(map[string]any{"type": "message_stop"})
	if err != nil {
		return nil, err
	}
	events = append(events, SSEEvent{Name: "message_stop", Body: stopBody})

	return events, nil
}

// SSEEvent is one synthesised server-sent event: its Claude event type name
// and the JSON body to frame as `data: <body>`.
type SSEEvent struct {
	Name string
	Body []byte
}

func contentBlockSkeleton(blockType, id, name string) map[string]any {
	if blockType == "tool_use" {
		return map[string]any{"type": "tool_use", "id": id, "name": name, "input": map[string]any{}}
	}
	return map[string]any{"type": "text", "text": ""}
}

// rawInputString renders a tool_use block's input back to the raw JSON
// string partial_json expects, whether the decoded form is a map (typical)
// or already a string.
func rawInputString(input any) string {
	switch v := input.(type) {
	case string:
		return v
	case nil:
		return "{}"
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "{}"
		}
		return string(raw)
	}
}
