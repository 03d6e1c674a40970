package kiro

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestRenderClaudeResponseKeepsEventSourcedInputAsRawString(t *testing.T) {
	parsed := ParsedResponse{
		ToolCalls: []ParsedToolCall{
			{ID: "tool_1", Name: "search", Input: `{"query":"weather"}`},
		},
	}
	out, err := RenderClaudeResponse(parsed, "claude-3-5-sonnet-20241022")
	if err != nil {
		t.Fatalf("RenderClaudeResponse: %v", err)
	}
	input := gjson.GetBytes(out, "content.0.input")
	if input.Type != gjson.String {
		t.Fatalf("content.0.input = %s (type %v), want a raw JSON string per the upstream JS reference", input.Raw, input.Type)
	}
	if input.String() != `{"query":"weather"}` {
		t.Fatalf("content.0.input = %q, want the untouched upstream string", input.String())
	}
}

func TestRenderClaudeResponseKeepsBracketSyntaxInputAsObject(t *testing.T) {
	parsed := ParsedResponse{
		ToolCalls: []ParsedToolCall{
			{ID: "tool_1", Name: "search", Input: map[string]any{"query": "weather"}},
		},
	}
	out, err := RenderClaudeResponse(parsed, "claude-3-5-sonnet-20241022")
	if err != nil {
		t.Fatalf("RenderClaudeResponse: %v", err)
	}
	input := gjson.GetBytes(out, "content.0.input")
	if !input.IsObject() {
		t.Fatalf("content.0.input = %s, want a JSON object for a bracket-syntax call", input.Raw)
	}
	if got := input.Get("query").String(); got != "weather" {
		t.Fatalf("content.0.input.query = %q, want weather", got)
	}
}
