// Package kiro implements the hardest adapter in the gateway: a bidirectional
// translator between Claude's message schema and AWS CodeWhisperer's
// conversationState schema, a hand-rolled event-stream parser, and a
// non-streaming-upstream-to-streaming-Claude-SSE synthesiser. Grounded on
// _examples/original_source/rust/src/providers/kiro.rs and the teacher's
// internal/translator_new/{to_ir,from_ir}/kiro.go.
package kiro

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// defaultCodeWhispererModel is used when the requested Claude model has no
// entry in modelIDTable.
const defaultCodeWhispererModel = "CLAUDE_SONNET_4_20250514_V1_0"

var modelIDTable = map[string]string{
	"claude-sonnet-4-20250514":           "CLAUDE_SONNET_4_20250514_V1_0",
	"claude-sonnet-4-5-20250929":         "CLAUDE_SONNET_4_5_20250929_V1_0",
	"claude-3-7-sonnet-20250219":         "CLAUDE_3_7_SONNET_20250219_V1_0",
	"claude-3-5-sonnet-20241022":         "CLAUDE_3_5_SONNET_20241022_V1_0",
	"amazonq-claude-sonnet-4-20250514":   "CLAUDE_SONNET_4_20250514_V1_0",
	"amazonq-claude-sonnet-4-5-20250929": "CLAUDE_SONNET_4_5_20250929_V1_0",
	"amazonq-claude-3-7-sonnet-20250219": "CLAUDE_3_7_SONNET_20250219_V1_0",
}

func codeWhispererModel(claudeModel string) string {
	if id, ok := modelIDTable[claudeModel]; ok {
		return id
	}
	return defaultCodeWhispererModel
}

const (
	chatTriggerTypeManual = "MANUAL"
	originAIEditor        = "AI_EDITOR"
)

// BuildConversationState translates a Claude /v1/messages request body into
// the CodeWhisperer generateAssistantResponse envelope, per spec.md §4.4.
func BuildConversationState(claudeRequest []byte, profileArn string) ([]byte, error) {
	root := gjson.ParseBytes(claudeRequest)
	messages := root.Get("messages").Array()
	model := root.Get("model").String()
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	cwModel := codeWhispererModel(model)

	toolsContext := buildToolsContext(root.Get("tools"))
	systemPrompt := extractContentText(root.Get("system"))

	var history []any
	startIndex := 0

	if systemPrompt != "" {
		if len(messages) > 0 && messages[0].Get("role").String() == "user" {
			firstUserText := extractMessageText(messages[0])
			history = append(history, map[string]any{
				"userInputMessage": map[string]any{
					"content": systemPrompt + "\n\n" + firstUserText,
					"modelId": cwModel,
					"origin":  originAIEditor,
				},
			})
			startIndex = 1
		} else {
			history = append(history, map[string]any{
				"userInputMessage": map[string]any{
					"content": systemPrompt,
					"modelId": cwModel,
					"origin":  originAIEditor,
				},
			})
		}
	}

	for i := startIndex; i < len(messages)-1; i++ {
		msg := messages[i]
		switch msg.Get("role").String() {
		case "user":
			history = append(history, map[string]any{"userInputMessage": buildUserInputMessage(msg, cwModel, toolsContext, false)})
		case "assistant":
			history = append(history, map[string]any{"assistantResponseMessage": buildAssistantResponseMessage(msg)})
		}
	}
	if history == nil {
		history = []any{}
	}

	var currentMessage map[string]any
	if len(messages) > 0 && messages[len(messages)-1].Get("role").String() == "assistant" {
		currentMessage = map[string]any{"assistantResponseMessage": buildAssistantResponseMessage(messages[len(messages)-1])}
	} else if len(messages) > 0 {
		currentMessage = map[string]any{"userInputMessage": buildUserInputMessage(messages[len(messages)-1], cwModel, toolsContext, true)}
	} else {
		currentMessage = map[string]any{
			"userInputMessage": map[string]any{
				"content": "Continue",
				"modelId": cwModel,
				"origin":  originAIEditor,
			},
		}
	}

	envelope := map[string]any{
		"conversationState": map[string]any{
			"chatTriggerType": chatTriggerTypeManual,
			"conversationId":  uuid.NewString(),
			"history":         history,
			"currentMessage":  currentMessage,
		},
		"conversationStateMetadata": map[string]any{"systemPrompt": systemPrompt},
	}

	out, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	if profileArn != "" {
		out, err = sjson.SetBytes(out, "profileArn", profileArn)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func buildToolsContext(tools gjson.Result) []any {
	if !tools.Exists() {
		return nil
	}
	var out []any
	for _, t := range tools.Array() {
		out = append(out, map[string]any{
			"toolSpecification": map[string]any{
				"name":        t.Get("name").String(),
				"description": t.Get("description").String(),
				"inputSchema": map[string]any{"json": jsonValue(t.Get("input_schema"))},
			},
		})
	}
	return out
}

func extractContentText(v gjson.Result) string {
	if !v.Exists() {
		return ""
	}
	if v.IsArray() {
		var parts []string
		for _, block := range v.Array() {
			if block.Get("type").String() == "text" {
				parts = append(parts, block.Get("text").String())
			}
		}
		return strings.Join(parts, "\n")
	}
	return v.String()
}

func extractMessageText(msg gjson.Result) string {
	content := msg.Get("content")
	if content.Type == gjson.String {
		return content.String()
	}
	var parts []string
	for _, block := range content.Array() {
		if block.Get("type").String() == "text" {
			parts = append(parts, block.Get("text").String())
		}
	}
	return strings.Join(parts, "\n")
}

func buildUserInputMessage(msg gjson.Result, cwModel string, toolsContext []any, isCurrent bool) map[string]any {
	content := extractMessageText(msg)
	var images []any
	var toolResults []any

	for _, block := range msg.Get("content").Array() {
		switch block.Get("type").String() {
		case "image":
			mimeType := block.Get("source.media_type").String()
			format := mimeType
			if idx := strings.IndexByte(mimeType, '/'); idx >= 0 {
				format = mimeType[idx+1:]
			}
			images = append(images, map[string]any{
				"format": format,
				"source": map[string]any{"bytes": block.Get("source.data").String()},
			})
		case "tool_result":
			toolResults = append(toolResults, map[string]any{
				"toolUseId": block.Get("tool_use_id").String(),
				"status":    "success",
				"content":   []any{map[string]any{"text": toolResultText(block)}},
			})
		}
	}

	if isCurrent && content == "" && len(toolResults) == 0 {
		content = "Continue"
	}

	out := map[string]any{
		"content": content,
		"modelId": cwModel,
		"origin":  originAIEditor,
	}
	if len(images) > 0 {
		out["images"] = images
	}

	ctx := map[string]any{}
	hasCtx := false
	if isCurrent && len(toolsContext) > 0 {
		ctx["tools"] = toolsContext
		hasCtx = true
	}
	if len(toolResults) > 0 {
		ctx["toolResults"] = toolResults
		hasCtx = true
	}
	if hasCtx {
		out["userInputMessageContext"] = ctx
	}
	return out
}

func toolResultText(block gjson.Result) string {
	content := block.Get("content")
	if content.Type == gjson.String {
		return content.String()
	}
	var parts []string
	for _, part := range content.Array() {
		if part.Get("type").String() == "text" {
			parts = append(parts, part.Get("text").String())
		}
	}
	return strings.Join(parts, "\n")
}

func buildAssistantResponseMessage(msg gjson.Result) map[string]any {
	var toolUses []any
	var textParts []string
	for _, block := range msg.Get("content").Array() {
		switch block.Get("type").String() {
		case "text":
			textParts = append(textParts, block.Get("text").String())
		case "tool_use":
			toolUses = append(toolUses, map[string]any{
				"toolUseId": block.Get("id").String(),
				"name":      block.Get("name").String(),
				"input":     jsonValue(block.Get("input")),
			})
		}
	}
	out := map[string]any{"content": strings.Join(textParts, "\n")}
	if len(toolUses) > 0 {
		out["toolUses"] = toolUses
	}
	return out
}

func jsonValue(r gjson.Result) any {
	return r.Value()
}
