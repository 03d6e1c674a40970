package convert

import (
	"encoding/json"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/tidwall/gjson"
)

func ParseOpenAIModelList(raw []byte) ([]UnifiedModel, error) {
	var out []UnifiedModel
	gjson.ParseBytes(raw).Get("data").ForEach(func(_, m gjson.Result) bool {
		out = append(out, UnifiedModel{
			ID: m.Get("id").String(), Name: m.Get("id").String(), Object: "model",
			Created: m.Get("created").Int(), OwnedBy: m.Get("owned_by").String(),
		})
		return true
	})
	return out, nil
}

func RenderOpenAIModelList(models []UnifiedModel) ([]byte, error) {
	var data []map[string]any
	for _, m := range models {
		data = append(data, map[string]any{"id": m.ID, "object": "model", "created": m.Created, "owned_by": m.OwnedBy})
	}
	return json.Marshal(map[string]any{"object": "list", "data": data})
}

func ParseClaudeModelList(raw []byte) ([]UnifiedModel, error) {
	var out []UnifiedModel
	gjson.ParseBytes(raw).Get("data").ForEach(func(_, m gjson.Result) bool {
		out = append(out, UnifiedModel{ID: m.Get("id").String(), Name: m.Get("display_name").String(), Object: "model"})
		return true
	})
	return out, nil
}

func RenderClaudeModelList(models []UnifiedModel) ([]byte, error) {
	var data []map[string]any
	for _, m := range models {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		data = append(data, map[string]any{"id": m.ID, "display_name": name, "type": "model"})
	}
	return json.Marshal(map[string]any{"data": data})
}

func ParseGeminiModelList(raw []byte) ([]UnifiedModel, error) {
	var out []UnifiedModel
	gjson.ParseBytes(raw).Get("models").ForEach(func(_, m gjson.Result) bool {
		out = append(out, UnifiedModel{ID: m.Get("name").String(), Name: m.Get("displayName").String()})
		return true
	})
	return out, nil
}

func RenderGeminiModelList(models []UnifiedModel) ([]byte, error) {
	var list []map[string]any
	for _, m := range models {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		list = append(list, map[string]any{"name": m.ID, "displayName": name})
	}
	return json.Marshal(map[string]any{"models": list})
}

// ConvertModelList translates a model-list body between protocols.
func ConvertModelList(raw []byte, from, to common.Protocol) ([]byte, error) {
	if from == to {
		return raw, nil
	}

	var (
		models []UnifiedModel
		err    error
	)
	switch from {
	case common.ProtocolOpenAI:
		models, err = ParseOpenAIModelList(raw)
	case common.ProtocolClaude:
		models, err = ParseClaudeModelList(raw)
	case common.ProtocolGemini:
		models, err = ParseGeminiModelList(raw)
	default:
		return nil, common.UnsupportedConversion(from, to, common.ClassModelList)
	}
	if err != nil {
		return nil, err
	}

	switch to {
	case common.ProtocolOpenAI:
		return RenderOpenAIModelList(models)
	case common.ProtocolClaude:
		return RenderClaudeModelList(models)
	case common.ProtocolGemini:
		return RenderGeminiModelList(models)
	default:
		return nil, common.UnsupportedConversion(from, to, common.ClassModelList)
	}
}
