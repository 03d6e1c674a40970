package httpserver

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/router-for-me/aigateway/internal/provider"
)

func TestWriteSSESameProtocolFramesEachChunkAndEmitsDone(t *testing.T) {
	events := make(chan provider.StreamEvent, 2)
	events <- provider.StreamEvent{Data: []byte(`{"choices":[{"delta":{"content":"hi"}}]}`)}
	close(events)

	w := httptest.NewRecorder()
	writeSSE(w, events, common.ProtocolOpenAI, common.ProtocolOpenAI, "gpt-4o")

	body := w.Body.String()
	if !strings.Contains(body, `data: {"choices"`) {
		t.Errorf("expected a data: frame for the chunk, got %q", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Errorf("expected the stream to end with [DONE] for an OpenAI client, got %q", body)
	}
	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", w.Header().Get("Content-Type"))
	}
}

func TestWriteSSEClaudeUsesChunkTypeAsEventName(t *testing.T) {
	events := make(chan provider.StreamEvent, 1)
	events <- provider.StreamEvent{Data: []byte(`{"type":"content_block_delta","delta":{"text":"hi"}}`)}
	close(events)

	w := httptest.NewRecorder()
	writeSSE(w, events, common.ProtocolClaude, common.ProtocolClaude, "claude-3-5-sonnet-20241022")

	body := w.Body.String()
	if !strings.Contains(body, "event: content_block_delta\n") {
		t.Errorf("expected event: content_block_delta, got %q", body)
	}
	if strings.Contains(body, "[DONE]") {
		t.Error("Claude streams should not get an OpenAI-style [DONE] sentinel")
	}
}

func TestWriteSSEStopsOnStreamError(t *testing.T) {
	events := make(chan provider.StreamEvent, 1)
	events <- provider.StreamEvent{Err: errPlain("upstream closed")}
	close(events)

	w := httptest.NewRecorder()
	writeSSE(w, events, common.ProtocolOpenAI, common.ProtocolOpenAI, "gpt-4o")

	if !strings.Contains(w.Body.String(), "event: error") {
		t.Errorf("expected an error event, got %q", w.Body.String())
	}
}
