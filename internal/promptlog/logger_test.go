package promptlog

import (
	"strings"
	"testing"

	"github.com/router-for-me/aigateway/internal/common"
)

func TestExtractPromptFromRequestOpenAI(t *testing.T) {
	req := []byte(`{"messages":[{"role":"system","content":"be nice"},{"role":"user","content":"hi"}]}`)
	got := ExtractPromptFromRequest(req, common.ProtocolOpenAI)
	want := "system: be nice\nuser: hi"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestExtractPromptFromRequestClaude(t *testing.T) {
	req := []byte(`{"system":"be nice","messages":[{"role":"user","content":[{"type":"text","text":"hi"},{"type":"text","text":"there"}]}]}`)
	got := ExtractPromptFromRequest(req, common.ProtocolClaude)
	if !strings.HasPrefix(got, "system: be nice\n") || !strings.Contains(got, "user: hi there") {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestExtractPromptFromRequestGemini(t *testing.T) {
	req := []byte(`{"systemInstruction":{"parts":[{"text":"sys"}]},"contents":[{"role":"user","parts":[{"text":"hi"}]}]}`)
	got := ExtractPromptFromRequest(req, common.ProtocolGemini)
	want := "system: sys\nuser: hi"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestExtractTextFromResponseClaude(t *testing.T) {
	resp := []byte(`{"content":[{"type":"tool_use","name":"x"},{"type":"text","text":"hello"}]}`)
	got := ExtractTextFromResponse(resp, common.ProtocolClaude)
	if got != "hello" {
		t.Fatalf("got %q want hello", got)
	}
}

func TestLoggerNoneModeDropsEntries(t *testing.T) {
	l := New("none", "prompt_log", nil)
	l.LogInput("should be dropped")
	if l.mode != ModeNone {
		t.Fatalf("expected none mode")
	}
}

func TestLoggerEmptyContentSkipped(t *testing.T) {
	l := New("file", t.TempDir()+"/prompt_log", nil)
	defer l.Close()
	l.LogInput("")
}
