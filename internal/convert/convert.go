package convert

import "github.com/router-for-me/aigateway/internal/common"

// Convert is the single pure-function entry point from spec.md §4.1:
// convert(payload, class, from, to, model) → payload. Stream chunks route
// through ConvertStreamChunk directly since that direction needs per-
// connection state the other three classes don't.
func Convert(payload []byte, class common.PayloadClass, from, to common.Protocol, model string) ([]byte, error) {
	switch class {
	case common.ClassRequest:
		return ConvertRequest(payload, from, to)
	case common.ClassResponse:
		return ConvertResponse(payload, from, to)
	case common.ClassModelList:
		return ConvertModelList(payload, from, to)
	case common.ClassStreamChunk:
		chunks, err := ConvertStreamChunk(payload, from, to, NewParseChunkState(), NewRenderChunkState(), model)
		if err != nil {
			return nil, err
		}
		if len(chunks) == 0 {
			return nil, nil
		}
		return chunks[0], nil
	default:
		return nil, common.UnsupportedConversion(from, to, class)
	}
}
