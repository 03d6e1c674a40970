package convert

import (
	"encoding/json"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/tidwall/gjson"
)

// ParseGeminiRequest turns a Gemini GenerateContent request into the IR.
func ParseGeminiRequest(raw []byte) (UnifiedRequest, error) {
	root := gjson.ParseBytes(raw)
	ir := UnifiedRequest{Model: root.Get("model").String()}

	root.Get("systemInstruction.parts").ForEach(func(_, p gjson.Result) bool {
		ir.System = append(ir.System, p.Get("text").String())
		return true
	})

	toolCallNames := map[string]string{}

	root.Get("contents").ForEach(func(_, content gjson.Result) bool {
		role := common.RoleUser
		if content.Get("role").String() == "model" {
			role = common.RoleAssistant
		}

		content.Get("parts").ForEach(func(_, part gjson.Result) bool {
			switch {
			case part.Get("text").Exists():
				ir.Messages = append(ir.Messages, common.Message{
					Role:  role,
					Parts: []common.ContentPart{{Kind: common.PartText, Text: part.Get("text").String()}},
				})
			case part.Get("inlineData").Exists():
				ir.Messages = append(ir.Messages, common.Message{
					Role: role,
					Parts: []common.ContentPart{{
						Kind:     common.PartImageInline,
						MimeType: part.Get("inlineData.mimeType").String(),
						Base64:   part.Get("inlineData.data").String(),
					}},
				})
			case part.Get("fileData").Exists():
				ir.Messages = append(ir.Messages, common.Message{
					Role:  role,
					Parts: []common.ContentPart{{Kind: common.PartImageURL, URI: part.Get("fileData.fileUri").String()}},
				})
			case part.Get("functionCall").Exists():
				name := part.Get("functionCall.name").String()
				id := name // Gemini function calls have no id; key by name.
				toolCallNames[id] = name
				ir.Messages = append(ir.Messages, common.Message{
					Role: common.RoleAssistant,
					Parts: []common.ContentPart{{
						Kind: common.PartToolUse, ToolUseID: id, ToolName: name,
						ToolInput: part.Get("functionCall.args").Value(),
					}},
				})
			case part.Get("functionResponse").Exists():
				name := part.Get("functionResponse.name").String()
				ir.Messages = append(ir.Messages, common.Message{
					Role: common.RoleTool,
					Parts: []common.ContentPart{{
						Kind: common.PartToolResult, ToolResultForID: name, FunctionName: name,
						ToolResultBody: part.Get("functionResponse.response.content").Value(),
					}},
				})
			}
			return true
		})
		return true
	})

	root.Get("tools.0.functionDeclarations").ForEach(func(_, t gjson.Result) bool {
		schema, _ := t.Get("parameters").Value().(map[string]any)
		ir.Tools = append(ir.Tools, ToolDef{
			Name:        t.Get("name").String(),
			Description: t.Get("description").String(),
			InputSchema: schema,
		})
		return true
	})

	gc := root.Get("generationConfig")
	if v := gc.Get("temperature"); v.Exists() {
		f := v.Float()
		ir.Gen.Temperature = &f
	}
	if v := gc.Get("maxOutputTokens"); v.Exists() {
		n := int(v.Int())
		ir.Gen.MaxTokens = &n
	}
	if v := gc.Get("topP"); v.Exists() {
		f := v.Float()
		ir.Gen.TopP = &f
	}

	return ir, nil
}

// RenderGeminiRequest renders the IR into a Gemini GenerateContent request.
// Consecutive contents entries sharing the same role are coalesced into one
// entry with concatenated parts, satisfying spec.md §4.1(c) and the request
// invariant in §8 that no two consecutive contents[] share a role.
func RenderGeminiRequest(ir UnifiedRequest) ([]byte, error) {
	out := map[string]any{}
	if len(ir.System) > 0 {
		var parts []map[string]any
		for _, s := range ir.System {
			parts = append(parts, map[string]any{"text": s})
		}
		out["systemInstruction"] = map[string]any{"parts": parts}
	}

	toolNameByID := map[string]string{}
	for _, m := range ir.Messages {
		for _, p := range m.Parts {
			if p.Kind == common.PartToolUse {
				toolNameByID[p.ToolUseID] = p.ToolName
			}
		}
	}

	type contentEntry struct {
		role  string
		parts []map[string]any
	}
	var contents []contentEntry

	appendParts := func(role string, parts []map[string]any) {
		if len(contents) > 0 && contents[len(contents)-1].role == role {
			contents[len(contents)-1].parts = append(contents[len(contents)-1].parts, parts...)
			return
		}
		contents = append(contents, contentEntry{role: role, parts: parts})
	}

	for _, m := range ir.Messages {
		role := "user"
		if m.Role == common.RoleAssistant {
			role = "model"
		} else if m.Role == common.RoleTool || m.Role == common.RoleFunction {
			role = "function"
		}

		var parts []map[string]any
		if !m.IsStructured() {
			if m.Text != "" {
				parts = append(parts, map[string]any{"text": m.Text})
			}
		} else {
			for _, p := range m.Parts {
				switch p.Kind {
				case common.PartText:
					parts = append(parts, map[string]any{"text": p.Text})
				case common.PartImageInline:
					parts = append(parts, map[string]any{"inlineData": map[string]any{"mimeType": p.MimeType, "data": p.Base64}})
				case common.PartImageURL:
					parts = append(parts, map[string]any{"fileData": map[string]any{"mimeType": "image/jpeg", "fileUri": p.URI}})
				case common.PartToolUse:
					parts = append(parts, map[string]any{"functionCall": map[string]any{"name": p.ToolName, "args": p.ToolInput}})
				case common.PartToolResult:
					name := p.FunctionName
					if name == "" {
						name = toolNameByID[p.ToolResultForID]
					}
					if name == "" {
						name = p.ToolResultForID
					}
					parts = append(parts, map[string]any{
						"functionResponse": map[string]any{"name": name, "response": map[string]any{"content": p.ToolResultBody}},
					})
				}
			}
		}
		if len(parts) == 0 {
			continue
		}
		appendParts(role, parts)
	}

	var renderedContents []map[string]any
	for _, c := range contents {
		renderedContents = append(renderedContents, map[string]any{"role": c.role, "parts": c.parts})
	}
	out["contents"] = renderedContents

	if len(ir.Tools) > 0 {
		var decls []map[string]any
		for _, t := range ir.Tools {
			decls = append(decls, map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.InputSchema,
			})
		}
		out["tools"] = []map[string]any{{"functionDeclarations": decls}}
	}

	gen := map[string]any{}
	if ir.Gen.Temperature != nil {
		gen["temperature"] = *ir.Gen.Temperature
	}
	if ir.Gen.MaxTokens != nil {
		gen["maxOutputTokens"] = *ir.Gen.MaxTokens
	}
	if ir.Gen.TopP != nil {
		gen["topP"] = *ir.Gen.TopP
	}
	if len(gen) > 0 {
		out["generationConfig"] = gen
	}

	return json.Marshal(out)
}
