// Package convert implements the six-directional translation matrix between
// OpenAI Chat Completions, Anthropic Messages, and Google Gemini
// GenerateContent, for all four payload classes (spec.md §4.1). It operates
// on dynamic JSON (tidwall/gjson + tidwall/sjson) rather than full typed
// per-protocol ASTs, per spec.md §9's design note, funnelled through a small
// unified intermediate representation so each protocol only needs one
// parser and one renderer instead of six bespoke pairwise functions.
package convert

import "github.com/router-for-me/aigateway/internal/common"

// ToolDef is a tool/function declaration carried on a request.
type ToolDef struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// GenConfig carries the handful of generation knobs spec.md §4.1(e) maps
// between protocols. Pointers distinguish "absent" from "zero value".
type GenConfig struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
}

// UnifiedRequest is the IR every *_request.go parser produces and every
// *_request.go renderer consumes.
type UnifiedRequest struct {
	// System holds one entry per source system message/part, in order. A
	// Gemini-source request that had systemInstruction.parts == [a,b]
	// round-trips as two entries; a Claude-source request's single system
	// field becomes one entry. Target renderers decide whether to keep them
	// separate (Gemini: one {text} per entry) or flatten (Claude: joined by
	// "\n\n", OpenAI: one role:system message per entry).
	System   []string
	Messages []common.Message
	Tools    []ToolDef
	Gen      GenConfig
	Model    string
	Stream   bool
}

// ToolCall is a model-emitted tool/function invocation recovered from a
// response or stream chunk.
type ToolCall struct {
	ID    string
	Name  string
	Input any
}

// UnifiedUsage is the normalized token-accounting block.
type UnifiedUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	HasUsage         bool
}

// UnifiedResponse is the IR for a full (non-streaming) response.
type UnifiedResponse struct {
	ID           string
	Model        string
	Text         string
	ToolCalls    []ToolCall
	FinishReason string // normalized token, see finish_reason.go
	RawFinishReason string // original source-protocol string, for passthrough
	Usage        UnifiedUsage
}

// UnifiedChunkKind discriminates a streaming delta.
type UnifiedChunkKind string

const (
	ChunkTextDelta  UnifiedChunkKind = "text_delta"
	ChunkToolDelta  UnifiedChunkKind = "tool_delta"
	ChunkDone       UnifiedChunkKind = "done"
)

// UnifiedChunk is the IR for one streaming delta.
type UnifiedChunk struct {
	Kind         UnifiedChunkKind
	TextDelta    string
	ToolCallID   string
	ToolName     string
	ToolArgsJSON string
	FinishReason string
	RawFinishReason string
	Usage        UnifiedUsage
}

// UnifiedModel is one entry of a model list.
type UnifiedModel struct {
	ID      string
	Name    string
	Object  string
	Created int64
	OwnedBy string
}
