package convert

import (
	"encoding/json"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/tidwall/gjson"
)

// ParseClaudeRequest turns an Anthropic Messages request into the IR.
func ParseClaudeRequest(raw []byte) (UnifiedRequest, error) {
	root := gjson.ParseBytes(raw)
	ir := UnifiedRequest{
		Model:  root.Get("model").String(),
		Stream: root.Get("stream").Bool(),
	}
	if sys := root.Get("system"); sys.Exists() {
		ir.System = []string{sys.String()}
	}

	toolCallNames := map[string]string{}

	root.Get("messages").ForEach(func(_, msg gjson.Result) bool {
		role := common.Role(msg.Get("role").String())
		m := common.Message{Role: role}

		content := msg.Get("content")
		if !content.IsArray() {
			m.Text = content.String()
			ir.Messages = append(ir.Messages, m)
			return true
		}

		var toolResults []common.ContentPart
		content.ForEach(func(_, block gjson.Result) bool {
			switch block.Get("type").String() {
			case "text":
				m.Parts = append(m.Parts, common.ContentPart{Kind: common.PartText, Text: block.Get("text").String()})
			case "image":
				m.Parts = append(m.Parts, common.ContentPart{
					Kind:     common.PartImageInline,
					MimeType: block.Get("source.media_type").String(),
					Base64:   block.Get("source.data").String(),
				})
			case "tool_use":
				id := block.Get("id").String()
				name := block.Get("name").String()
				toolCallNames[id] = name
				m.Parts = append(m.Parts, common.ContentPart{
					Kind: common.PartToolUse, ToolUseID: id, ToolName: name, ToolInput: block.Get("input").Value(),
				})
			case "tool_result":
				id := block.Get("tool_use_id").String()
				toolResults = append(toolResults, common.ContentPart{
					Kind:            common.PartToolResult,
					ToolResultForID: id,
					ToolResultBody:  block.Get("content").Value(),
					FunctionName:    toolCallNames[id],
				})
			}
			return true
		})

		if len(toolResults) > 0 {
			// A Claude user message carrying tool_result blocks becomes one
			// IR "tool" message per result, matching the OpenAI/Gemini
			// source parsers' one-result-per-message shape.
			for _, tr := range toolResults {
				ir.Messages = append(ir.Messages, common.Message{Role: common.RoleTool, Parts: []common.ContentPart{tr}})
			}
			return true
		}

		ir.Messages = append(ir.Messages, m)
		return true
	})

	root.Get("tools").ForEach(func(_, t gjson.Result) bool {
		schema, _ := t.Get("input_schema").Value().(map[string]any)
		ir.Tools = append(ir.Tools, ToolDef{
			Name:        t.Get("name").String(),
			Description: t.Get("description").String(),
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

// RenderClaudeRequest renders the IR into an Anthropic Messages request.
// System messages flatten into one "system" string; tool role becomes a
// user message with a tool_result block; max_tokens defaults to 8192 when
// absent; empty text parts/messages are dropped (spec.md §4.1).
func RenderClaudeRequest(ir UnifiedRequest) ([]byte, error) {
	out := map[string]any{"model": ir.Model}
	if len(ir.System) > 0 {
		out["system"] = joinNonEmpty(ir.System, "\n\n")
	}
	if ir.Stream {
		out["stream"] = true
	}

	maxTokens := 8192
	if ir.Gen.MaxTokens != nil {
		maxTokens = *ir.Gen.MaxTokens
	}
	out["max_tokens"] = maxTokens
	if ir.Gen.Temperature != nil {
		out["temperature"] = *ir.Gen.Temperature
	}
	if ir.Gen.TopP != nil {
		out["top_p"] = *ir.Gen.TopP
	}

	var messages []map[string]any
	for _, m := range ir.Messages {
		rendered := renderClaudeMessage(m)
		if rendered != nil {
			messages = append(messages, rendered)
		}
	}
	out["messages"] = messages

	if len(ir.Tools) > 0 {
		var tools []map[string]any
		for _, t := range ir.Tools {
			tools = append(tools, map[string]any{
				"name":         t.Name,
				"description":  t.Description,
				"input_schema": t.InputSchema,
			})
		}
		out["tools"] = tools
	}

	return json.Marshal(out)
}

func renderClaudeMessage(m common.Message) map[string]any {
	for _, p := range m.Parts {
		if p.Kind == common.PartToolResult {
			return map[string]any{
				"role": "user",
				"content": []map[string]any{{
					"type":        "tool_result",
					"tool_use_id": p.ToolResultForID,
					"content":     p.ToolResultBody,
				}},
			}
		}
	}

	role := "user"
	if m.Role == common.RoleAssistant {
		role = "assistant"
	}

	if !m.IsStructured() {
		if m.Text == "" {
			return nil
		}
		return map[string]any{"role": role, "content": []map[string]any{{"type": "text", "text": m.Text}}}
	}

	var blocks []map[string]any
	for _, p := range m.Parts {
		switch p.Kind {
		case common.PartText:
			if p.Text == "" {
				continue
			}
			blocks = append(blocks, map[string]any{"type": "text", "text": p.Text})
		case common.PartImageInline:
			blocks = append(blocks, map[string]any{
				"type":   "image",
				"source": map[string]any{"type": "base64", "media_type": p.MimeType, "data": p.Base64},
			})
		case common.PartToolUse:
			blocks = append(blocks, map[string]any{
				"type":  "tool_use",
				"id":    p.ToolUseID,
				"name":  p.ToolName,
				"input": p.ToolInput,
			})
		}
	}
	if len(blocks) == 0 {
		return nil
	}
	return map[string]any{"role": role, "content": blocks}
}

func joinNonEmpty(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
