package convert

import (
	"encoding/json"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/tidwall/gjson"
)

// ParseChunkState carries the minimal per-connection bookkeeping a source
// protocol's stream parser needs (e.g. which content-block index a Claude
// tool_use belongs to). One state per inbound stream.
type ParseChunkState struct {
	claudeBlockIsTool map[int]bool
	claudeBlockName   map[int]string
	claudeBlockID     map[int]string
}

func NewParseChunkState() *ParseChunkState {
	return &ParseChunkState{claudeBlockIsTool: map[int]bool{}, claudeBlockName: map[int]string{}, claudeBlockID: map[int]string{}}
}

// ParseOpenAIChunk turns one `data: {...}` line body into the IR.
func ParseOpenAIChunk(raw []byte) (UnifiedChunk, error) {
	root := gjson.ParseBytes(raw)
	choice := root.Get("choices.0")
	delta := choice.Get("delta")

	c := UnifiedChunk{}
	if t := delta.Get("content"); t.Exists() {
		c.Kind = ChunkTextDelta
		c.TextDelta = t.String()
		return c, nil
	}
	if tc := delta.Get("tool_calls.0"); tc.Exists() {
		c.Kind = ChunkToolDelta
		c.ToolCallID = tc.Get("id").String()
		c.ToolName = tc.Get("function.name").String()
		c.ToolArgsJSON = tc.Get("function.arguments").String()
		return c, nil
	}
	if fr := choice.Get("finish_reason"); fr.Exists() && fr.String() != "" {
		c.Kind = ChunkDone
		c.FinishReason, c.RawFinishReason = normalizeOpenAIFinish(fr.String())
		if u := root.Get("usage"); u.Exists() {
			c.Usage = UnifiedUsage{HasUsage: true, PromptTokens: int(u.Get("prompt_tokens").Int()), CompletionTokens: int(u.Get("completion_tokens").Int()), TotalTokens: int(u.Get("total_tokens").Int())}
		}
		return c, nil
	}
	c.Kind = ChunkTextDelta
	return c, nil
}

// ParseClaudeChunk turns one Claude SSE event body into the IR, using state
// to recall which block index is a tool_use and its id/name (set by
// content_block_start, needed later by content_block_delta).
func ParseClaudeChunk(raw []byte, state *ParseChunkState) (UnifiedChunk, error) {
	root := gjson.ParseBytes(raw)
	typ := root.Get("type").String()
	c := UnifiedChunk{}

	switch typ {
	case "content_block_start":
		idx := int(root.Get("index").Int())
		block := root.Get("content_block")
		if block.Get("type").String() == "tool_use" {
			state.claudeBlockIsTool[idx] = true
			state.claudeBlockName[idx] = block.Get("name").String()
			state.claudeBlockID[idx] = block.Get("id").String()
		}
		c.Kind = ChunkTextDelta
		c.TextDelta = ""
		return c, nil
	case "content_block_delta":
		idx := int(root.Get("index").Int())
		delta := root.Get("delta")
		if delta.Get("type").String() == "input_json_delta" {
			c.Kind = ChunkToolDelta
			c.ToolCallID = state.claudeBlockID[idx]
			c.ToolName = state.claudeBlockName[idx]
			c.ToolArgsJSON = delta.Get("partial_json").String()
			return c, nil
		}
		c.Kind = ChunkTextDelta
		c.TextDelta = delta.Get("text").String()
		return c, nil
	case "message_delta":
		c.Kind = ChunkDone
		c.FinishReason, c.RawFinishReason = normalizeClaudeFinish(root.Get("delta.stop_reason").String())
		if u := root.Get("usage"); u.Exists() {
			c.Usage = UnifiedUsage{HasUsage: true, CompletionTokens: int(u.Get("output_tokens").Int())}
		}
		return c, nil
	default:
		c.Kind = ChunkTextDelta
		return c, nil
	}
}

// ParseGeminiChunk turns one Gemini streamGenerateContent chunk into the IR.
func ParseGeminiChunk(raw []byte) (UnifiedChunk, error) {
	resp, err := ParseGeminiResponse(raw)
	if err != nil {
		return UnifiedChunk{}, err
	}
	c := UnifiedChunk{Kind: ChunkTextDelta, TextDelta: resp.Text}
	if len(resp.ToolCalls) > 0 {
		tc := resp.ToolCalls[0]
		args, _ := json.Marshal(tc.Input)
		c.Kind = ChunkToolDelta
		c.ToolCallID = tc.ID
		c.ToolName = tc.Name
		c.ToolArgsJSON = string(args)
	}
	if resp.RawFinishReason != "" {
		c.FinishReason = resp.FinishReason
		c.RawFinishReason = resp.RawFinishReason
		c.Usage = resp.Usage
	}
	return c, nil
}

// RenderChunkState tracks the block bookkeeping a Claude-target renderer
// needs to emit well-formed content_block_start/stop pairs (mirrors the
// Kiro adapter's streaming synthesis state machine, spec.md §4.4).
type RenderChunkState struct {
	openBlock     bool
	blockIsTool   bool
	blockIndex    int
	sentMsgStart  bool
}

func NewRenderChunkState() *RenderChunkState { return &RenderChunkState{blockIndex: -1} }

// RenderClaudeChunks renders one IR chunk into zero or more Claude SSE event
// bodies (each return entry is one JSON object to wrap in a `data:` line).
func RenderClaudeChunks(c UnifiedChunk, state *RenderChunkState) ([]map[string]any, error) {
	var events []map[string]any
	if !state.sentMsgStart {
		state.sentMsgStart = true
		events = append(events, map[string]any{
			"type": "message_start",
			"message": map[string]any{"id": "msg_stream", "type": "message", "role": "assistant", "content": []any{}},
		})
	}

	switch c.Kind {
	case ChunkTextDelta:
		if state.openBlock && state.blockIsTool {
			events = append(events, map[string]any{"type": "content_block_stop", "index": state.blockIndex})
			state.openBlock = false
		}
		if !state.openBlock {
			state.blockIndex++
			state.blockIsTool = false
			state.openBlock = true
			events = append(events, map[string]any{"type": "content_block_start", "index": state.blockIndex, "content_block": map[string]any{"type": "text", "text": ""}})
		}
		events = append(events, map[string]any{"type": "content_block_delta", "index": state.blockIndex, "delta": map[string]any{"type": "text_delta", "text": c.TextDelta}})
	case ChunkToolDelta:
		if state.openBlock && !state.blockIsTool {
			events = append(events, map[string]any{"type": "content_block_stop", "index": state.blockIndex})
			state.openBlock = false
		}
		if !state.openBlock {
			state.blockIndex++
			state.blockIsTool = true
			state.openBlock = true
			events = append(events, map[string]any{"type": "content_block_start", "index": state.blockIndex, "content_block": map[string]any{"type": "tool_use", "id": c.ToolCallID, "name": c.ToolName, "input": map[string]any{}}})
		}
		events = append(events, map[string]any{"type": "content_block_delta", "index": state.blockIndex, "delta": map[string]any{"type": "input_json_delta", "partial_json": c.ToolArgsJSON}})
	case ChunkDone:
		if state.openBlock {
			events = append(events, map[string]any{"type": "content_block_stop", "index": state.blockIndex})
			state.openBlock = false
		}
		events = append(events, map[string]any{
			"type":  "message_delta",
			"delta": map[string]any{"stop_reason": renderClaudeFinish(c.FinishReason, c.RawFinishReason)},
			"usage": map[string]any{"output_tokens": c.Usage.CompletionTokens},
		})
		events = append(events, map[string]any{"type": "message_stop"})
	}
	return events, nil
}

// RenderOpenAIChunk renders one IR chunk into an OpenAI stream-chunk body.
func RenderOpenAIChunk(c UnifiedChunk, model string) (map[string]any, error) {
	delta := map[string]any{}
	finish := any(nil)
	switch c.Kind {
	case ChunkTextDelta:
		delta["content"] = c.TextDelta
	case ChunkToolDelta:
		delta["tool_calls"] = []map[string]any{{
			"index": 0, "id": c.ToolCallID, "type": "function",
			"function": map[string]any{"name": c.ToolName, "arguments": c.ToolArgsJSON},
		}}
	case ChunkDone:
		finish = renderOpenAIFinish(c.FinishReason, c.RawFinishReason)
	}
	return map[string]any{
		"object":  "chat.completion.chunk",
		"model":   model,
		"choices": []map[string]any{{"index": 0, "delta": delta, "finish_reason": finish}},
	}, nil
}

// RenderGeminiChunk renders one IR chunk into a Gemini stream-chunk body.
func RenderGeminiChunk(c UnifiedChunk) (map[string]any, error) {
	resp := UnifiedResponse{Text: c.TextDelta, FinishReason: c.FinishReason, Usage: c.Usage}
	if c.Kind == ChunkToolDelta {
		var input any
		_ = json.Unmarshal([]byte(c.ToolArgsJSON), &input)
		resp.ToolCalls = []ToolCall{{ID: c.ToolCallID, Name: c.ToolName, Input: input}}
	}
	raw, err := RenderGeminiResponse(resp)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ConvertStreamChunk translates a single stream chunk body between
// protocols. Because rendering to Claude may legitimately produce several
// wire events from one source chunk, the result is always a slice of
// already-marshalled JSON bodies.
func ConvertStreamChunk(raw []byte, from, to common.Protocol, parseState *ParseChunkState, renderState *RenderChunkState, model string) ([][]byte, error) {
	if from == to {
		return [][]byte{raw}, nil
	}

	var (
		c   UnifiedChunk
		err error
	)
	switch from {
	case common.ProtocolOpenAI:
		c, err = ParseOpenAIChunk(raw)
	case common.ProtocolClaude:
		c, err = ParseClaudeChunk(raw, parseState)
	case common.ProtocolGemini:
		c, err = ParseGeminiChunk(raw)
	default:
		return nil, common.UnsupportedConversion(from, to, common.ClassStreamChunk)
	}
	if err != nil {
		return nil, err
	}

	switch to {
	case common.ProtocolOpenAI:
		obj, err := RenderOpenAIChunk(c, model)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(obj)
		return [][]byte{body}, err
	case common.ProtocolClaude:
		objs, err := RenderClaudeChunks(c, renderState)
		if err != nil {
			return nil, err
		}
		var out [][]byte
		for _, o := range objs {
			body, err := json.Marshal(o)
			if err != nil {
				return nil, err
			}
			out = append(out, body)
		}
		return out, nil
	case common.ProtocolGemini:
		obj, err := RenderGeminiChunk(c)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(obj)
		return [][]byte{body}, err
	default:
		return nil, common.UnsupportedConversion(from, to, common.ClassStreamChunk)
	}
}
