package kiro

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ParsedToolCall is a tool_use block recovered from a CodeWhisperer response,
// before Claude-schema rendering. Input is kept as the raw upstream string
// for structured events (the teacher's "critical compatibility rule"), or a
// decoded object for bracket-syntax calls.
type ParsedToolCall struct {
	ID    string
	Name  string
	Input any
}

// ParsedResponse is the result of scanning one CodeWhisperer response blob.
type ParsedResponse struct {
	FullContent string
	ToolCalls   []ParsedToolCall
}

// ParseEventStream scans a concatenated, framing-free CodeWhisperer response
// for "event{...}" blocks per spec.md §4.4: find every "event{" offset,
// delimit blocks between consecutive occurrences, then within each block
// scan for the smallest JSON-parseable prefix.
func ParseEventStream(raw string) ParsedResponse {
	positions := findAll(raw, "event{")

	var fullContent strings.Builder
	var toolCalls []ParsedToolCall
	var current *ParsedToolCall
	var currentInput strings.Builder

	for i, start := range positions {
		end := len(raw)
		if i+1 < len(positions) {
			end = positions[i+1]
		}
		blockStart := start + len("event")
		if blockStart >= end {
			continue
		}
		block := raw[blockStart:end]

		obj, ok := smallestParseablePrefix(block)
		if !ok {
			continue
		}

		name := obj.Get("name").String()
		toolUseID := obj.Get("toolUseId").String()
		if name != "" && toolUseID != "" {
			if current == nil {
				current = &ParsedToolCall{ID: convertToolID(toolUseID), Name: name}
				currentInput.Reset()
			}
			if input := obj.Get("input"); input.Exists() && input.Type == gjson.String {
				currentInput.WriteString(input.String())
			}
			if obj.Get("stop").Bool() {
				current.Input = currentInput.String()
				toolCalls = append(toolCalls, *current)
				current = nil
				currentInput.Reset()
			}
			continue
		}

		if !obj.Get("followupPrompt").Exists() {
			if content := obj.Get("content"); content.Exists() {
				fullContent.WriteString(strings.ReplaceAll(content.String(), `\n`, "\n"))
			}
		}
	}

	if current != nil {
		current.Input = currentInput.String()
		toolCalls = append(toolCalls, *current)
	}

	content := fullContent.String()
	bracketCalls, strippedContent := ExtractBracketToolCalls(content)
	toolCalls = append(toolCalls, bracketCalls...)
	content = strippedContent

	if content == "" && len(toolCalls) == 0 {
		content = "Unable to parse a response from the upstream model. Please retry or check server logs."
	}

	return ParsedResponse{FullContent: content, ToolCalls: toolCalls}
}

func findAll(s, sub string) []int {
	var positions []int
	start := 0
	for {
		idx := strings.Index(s[start:], sub)
		if idx < 0 {
			break
		}
		positions = append(positions, start+idx)
		start += idx + len(sub)
	}
	return positions
}

// smallestParseablePrefix repeatedly locates '}' in block, trying to parse
// block[:pos+1] until one succeeds, per spec.md §4.4 step 2.
func smallestParseablePrefix(block string) (gjson.Result, bool) {
	searchFrom := 0
	for {
		rel := strings.IndexByte(block[searchFrom:], '}')
		if rel < 0 {
			return gjson.Result{}, false
		}
		bracePos := searchFrom + rel
		candidate := block[:bracePos+1]
		if json.Valid([]byte(candidate)) {
			return gjson.Parse(candidate), true
		}
		searchFrom = bracePos + 1
	}
}

// convertToolID rewrites Kiro's "tooluse_" prefix to the OpenAI-style
// "call_" prefix the rest of the gateway expects.
func convertToolID(id string) string {
	if strings.HasPrefix(id, "tooluse_") {
		return "call_" + strings.TrimPrefix(id, "tooluse_")
	}
	return id
}

// newBracketToolCallID mints an 8-hex-char "call_"-prefixed ID for
// bracket-syntax tool calls, per spec.md §4.4 step 5.
func newBracketToolCallID() string {
	return "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
