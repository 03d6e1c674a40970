package convert

// Normalized finish-reason tokens shared across all three protocols' response
// and stream-chunk converters.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
	FinishLength    = "length"
	FinishOther     = "other"
)

func normalizeOpenAIFinish(reason string) (normalized, raw string) {
	switch reason {
	case "stop", "length", "tool_calls":
		return reason, reason
	case "":
		return FinishStop, ""
	default:
		return FinishOther, reason
	}
}

func normalizeClaudeFinish(reason string) (normalized, raw string) {
	switch reason {
	case "end_turn":
		return FinishStop, reason
	case "tool_use":
		return FinishToolCalls, reason
	case "max_tokens":
		return FinishLength, reason
	case "":
		return FinishStop, ""
	default:
		return FinishOther, reason
	}
}

// renderOpenAIFinish implements spec.md §4.1's "map stop_reason: end_turn→stop,
// else passthrough" rule generalized across all sources: known tokens map to
// OpenAI's vocabulary, anything else passes the original source string
// through unchanged.
func renderOpenAIFinish(normalized, raw string) string {
	switch normalized {
	case FinishStop, FinishLength, FinishToolCalls:
		return normalized
	case FinishOther:
		if raw != "" {
			return raw
		}
		return FinishStop
	default:
		return FinishStop
	}
}

func renderClaudeFinish(normalized, raw string) string {
	switch normalized {
	case FinishStop:
		return "end_turn"
	case FinishToolCalls:
		return "tool_use"
	case FinishLength:
		return "max_tokens"
	case FinishOther:
		if raw != "" {
			return raw
		}
		return "end_turn"
	default:
		return "end_turn"
	}
}

func renderGeminiFinish(normalized string) string {
	switch normalized {
	case FinishLength:
		return "MAX_TOKENS"
	case FinishOther:
		return "OTHER"
	default:
		return "STOP"
	}
}
