package convert

import "github.com/router-for-me/aigateway/internal/common"

// ConvertResponse translates a full (non-streaming) response body between
// protocols via the unified IR.
func ConvertResponse(raw []byte, from, to common.Protocol) ([]byte, error) {
	if from == to {
		return raw, nil
	}

	var (
		ir  UnifiedResponse
		err error
	)
	switch from {
	case common.ProtocolOpenAI:
		ir, err = ParseOpenAIResponse(raw)
	case common.ProtocolClaude:
		ir, err = ParseClaudeResponse(raw)
	case common.ProtocolGemini:
		ir, err = ParseGeminiResponse(raw)
	default:
		return nil, common.UnsupportedConversion(from, to, common.ClassResponse)
	}
	if err != nil {
		return nil, err
	}

	switch to {
	case common.ProtocolOpenAI:
		return RenderOpenAIResponse(ir)
	case common.ProtocolClaude:
		return RenderClaudeResponse(ir)
	case common.ProtocolGemini:
		return RenderGeminiResponse(ir)
	default:
		return nil, common.UnsupportedConversion(from, to, common.ClassResponse)
	}
}
