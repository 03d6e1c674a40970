package convert

import "github.com/router-for-me/aigateway/internal/common"

// ConvertRequest translates a request body between protocols, going through
// the unified IR. If from == to the payload is returned unchanged, satisfying
// the identity property in spec.md §8.
func ConvertRequest(raw []byte, from, to common.Protocol) ([]byte, error) {
	if from == to {
		return raw, nil
	}

	var (
		ir  UnifiedRequest
		err error
	)
	switch from {
	case common.ProtocolOpenAI:
		ir, err = ParseOpenAIRequest(raw)
	case common.ProtocolClaude:
		ir, err = ParseClaudeRequest(raw)
	case common.ProtocolGemini:
		ir, err = ParseGeminiRequest(raw)
	default:
		return nil, common.UnsupportedConversion(from, to, common.ClassRequest)
	}
	if err != nil {
		return nil, err
	}

	switch to {
	case common.ProtocolOpenAI:
		return RenderOpenAIRequest(ir)
	case common.ProtocolClaude:
		return RenderClaudeRequest(ir)
	case common.ProtocolGemini:
		return RenderGeminiRequest(ir)
	default:
		return nil, common.UnsupportedConversion(from, to, common.ClassRequest)
	}
}
