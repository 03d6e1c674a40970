package convert

import (
	"encoding/json"
	"strings"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/tidwall/gjson"
)

// ParseOpenAIRequest turns an OpenAI Chat Completions request body into the
// unified IR. Grounded on spec.md §4.1's OpenAI-source rules and the
// teacher's to_ir/gemini.go style of walking the payload with gjson rather
// than unmarshalling into a struct.
func ParseOpenAIRequest(raw []byte) (UnifiedRequest, error) {
	root := gjson.ParseBytes(raw)
	ir := UnifiedRequest{
		Model:  root.Get("model").String(),
		Stream: root.Get("stream").Bool(),
	}

	// toolCallNames tracks id -> name for assistant-issued tool calls so a
	// later tool-result message can recover the function name a target
	// protocol (Gemini) needs but OpenAI's tool-result schema omits.
	toolCallNames := map[string]string{}

	root.Get("messages").ForEach(func(_, msg gjson.Result) bool {
		role := common.Role(msg.Get("role").String())
		if role == common.RoleSystem {
			ir.System = append(ir.System, msg.Get("content").String())
			return true
		}

		m := common.Message{Role: role}

		if role == common.RoleTool {
			id := msg.Get("tool_call_id").String()
			m.Parts = []common.ContentPart{{
				Kind:            common.PartToolResult,
				ToolResultForID: id,
				ToolResultBody:  msg.Get("content").Value(),
				FunctionName:    toolCallNames[id],
			}}
			ir.Messages = append(ir.Messages, m)
			return true
		}

		content := msg.Get("content")
		if content.IsArray() {
			content.ForEach(func(_, part gjson.Result) bool {
				switch part.Get("type").String() {
				case "text":
					m.Parts = append(m.Parts, common.ContentPart{Kind: common.PartText, Text: part.Get("text").String()})
				case "image_url":
					url := part.Get("image_url.url").String()
					if mime, data, ok := strings.Cut(strings.TrimPrefix(url, "data:"), ";base64,"); ok && strings.Contains(url, "base64,") {
						m.Parts = append(m.Parts, common.ContentPart{Kind: common.PartImageInline, MimeType: mime, Base64: data})
					} else {
						m.Parts = append(m.Parts, common.ContentPart{Kind: common.PartImageURL, URI: url})
					}
				}
				return true
			})
		} else {
			m.Text = content.String()
		}

		if role == common.RoleAssistant {
			msg.Get("tool_calls").ForEach(func(_, tc gjson.Result) bool {
				id := tc.Get("id").String()
				name := tc.Get("function.name").String()
				toolCallNames[id] = name
				var input any
				args := tc.Get("function.arguments").String()
				if err := json.Unmarshal([]byte(args), &input); err != nil {
					input = args
				}
				m.Parts = append(m.Parts, common.ContentPart{
					Kind: common.PartToolUse, ToolUseID: id, ToolName: name, ToolInput: input,
				})
				return true
			})
		}

		ir.Messages = append(ir.Messages, m)
		return true
	})

	root.Get("tools").ForEach(func(_, t gjson.Result) bool {
		schema := map[string]any{}
		if v := t.Get("function.parameters"); v.Exists() {
			schema, _ = v.Value().(map[string]any)
		}
		ir.Tools = append(ir.Tools, ToolDef{
			Name:        t.Get("function.name").String(),
			Description: t.Get("function.description").String(),
			InputSchema: schema,
		})
		return true
	})

	if v := root.Get("temperature"); v.Exists() {
		f := v.Float()
		ir.Gen.Temperature = &f
	}
	if v := root.Get("max_tokens"); v.Exists() {
		n := int(v.Int())
		ir.Gen.MaxTokens = &n
	}
	if v := root.Get("top_p"); v.Exists() {
		f := v.Float()
		ir.Gen.TopP = &f
	}

	return ir, nil
}

// RenderOpenAIRequest renders the IR back into an OpenAI Chat Completions
// request body.
func RenderOpenAIRequest(ir UnifiedRequest) ([]byte, error) {
	var messages []map[string]any
	for _, s := range ir.System {
		messages = append(messages, map[string]any{"role": "system", "content": s})
	}
	for _, m := range ir.Messages {
		messages = append(messages, renderOpenAIMessage(m)...)
	}

	out := map[string]any{
		"model":    ir.Model,
		"messages": messages,
	}
	if ir.Stream {
		out["stream"] = true
	}
	if len(ir.Tools) > 0 {
		var tools []map[string]any
		for _, t := range ir.Tools {
			tools = append(tools, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        t.Name,
					"description": t.Description,
					"parameters":  t.InputSchema,
				},
			})
		}
		out["tools"] = tools
	}
	if ir.Gen.Temperature != nil {
		out["temperature"] = *ir.Gen.Temperature
	}
	if ir.Gen.MaxTokens != nil {
		out["max_tokens"] = *ir.Gen.MaxTokens
	}
	if ir.Gen.TopP != nil {
		out["top_p"] = *ir.Gen.TopP
	}

	return json.Marshal(out)
}

func renderOpenAIMessage(m common.Message) []map[string]any {
	for _, p := range m.Parts {
		if p.Kind == common.PartToolResult {
			body, _ := json.Marshal(p.ToolResultBody)
			return []map[string]any{{
				"role":         "tool",
				"tool_call_id": p.ToolResultForID,
				"content":      string(body),
			}}
		}
	}

	msg := map[string]any{"role": string(m.Role)}
	var toolCalls []map[string]any
	var contentParts []map[string]any
	for _, p := range m.Parts {
		switch p.Kind {
		case common.PartText:
			contentParts = append(contentParts, map[string]any{"type": "text", "text": p.Text})
		case common.PartImageInline:
			contentParts = append(contentParts, map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": "data:" + p.MimeType + ";base64," + p.Base64},
			})
		case common.PartImageURL:
			contentParts = append(contentParts, map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": p.URI},
			})
		case common.PartToolUse:
			args, _ := json.Marshal(p.ToolInput)
			toolCalls = append(toolCalls, map[string]any{
				"id":   p.ToolUseID,
				"type": "function",
				"function": map[string]any{
					"name":      p.ToolName,
					"arguments": string(args),
				},
			})
		}
	}

	if len(contentParts) > 0 {
		msg["content"] = contentParts
	} else {
		msg["content"] = m.Text
	}
	if len(toolCalls) > 0 {
		msg["tool_calls"] = toolCalls
	}
	return []map[string]any{msg}
}
