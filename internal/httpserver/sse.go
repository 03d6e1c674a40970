package httpserver

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/router-for-me/aigateway/internal/convert"
	"github.com/router-for-me/aigateway/internal/provider"
)

// writeSSE drains events from an adapter's native stream, converting each
// chunk to the client's protocol if it differs from the adapter's native
// one, and writes line-framed `data: {json}\n\n` per spec.md §4.6, flushing
// after every chunk. For Claude the SSE `event:` field is the chunk's own
// `type` field; other protocols emit unlabeled events, matching
// server.rs's generate_content_stream handling.
func writeSSE(w http.ResponseWriter, events <-chan provider.StreamEvent, nativeProto, clientProto common.Protocol, model string) {
	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if flusher != nil {
		flusher.Flush()
	}

	parseState := convert.NewParseChunkState()
	renderState := convert.NewRenderChunkState()

	for ev := range events {
		if ev.Err != nil {
			writeErrorEvent(w, flusher, ev.Err)
			return
		}

		chunks := [][]byte{ev.Data}
		if nativeProto != clientProto {
			converted, err := convert.ConvertStreamChunk(ev.Data, nativeProto, clientProto, parseState, renderState, model)
			if err != nil {
				writeErrorEvent(w, flusher, err)
				return
			}
			chunks = converted
		}

		for _, chunk := range chunks {
			writeSSEFrame(w, clientProto, chunk)
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	if clientProto == common.ProtocolOpenAI {
		fmt.Fprint(w, "data: [DONE]\n\n")
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func writeSSEFrame(w http.ResponseWriter, clientProto common.Protocol, chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	if clientProto == common.ProtocolClaude {
		eventType := gjson.GetBytes(chunk, "type").String()
		if eventType == "" {
			eventType = "message"
		}
		fmt.Fprintf(w, "event: %s\n", eventType)
	}
	fmt.Fprintf(w, "data: %s\n\n", chunk)
}

func writeErrorEvent(w http.ResponseWriter, flusher http.Flusher, err error) {
	msg := err.Error()
	fmt.Fprintf(w, "event: error\ndata: {\"type\":\"error\",\"error\":{\"message\":%q}}\n\n", msg)
	if flusher != nil {
		flusher.Flush()
	}
}
