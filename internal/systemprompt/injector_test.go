package systemprompt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/router-for-me/aigateway/internal/common"
)

func newTestManager(t *testing.T, mode Mode, content string) *Manager {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := New(path, mode, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestApplyOpenAIOverwriteDropsExistingSystem(t *testing.T) {
	m := newTestManager(t, ModeOverwrite, "be terse")
	req := []byte(`{"messages":[{"role":"system","content":"old"},{"role":"user","content":"hi"}]}`)

	out, err := m.Apply(req, common.ProtocolOpenAI)
	if err != nil {
		t.Fatal(err)
	}
	var parsed struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatal(err)
	}
	if len(parsed.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(parsed.Messages))
	}
	if parsed.Messages[0].Role != "system" || parsed.Messages[0].Content != "be terse" {
		t.Fatalf("expected overwritten system message at index 0, got %+v", parsed.Messages[0])
	}
}

func TestApplyOpenAIAppendMergesExisting(t *testing.T) {
	m := newTestManager(t, ModeAppend, "extra")
	req := []byte(`{"messages":[{"role":"system","content":"base"},{"role":"user","content":"hi"}]}`)

	out, err := m.Apply(req, common.ProtocolOpenAI)
	if err != nil {
		t.Fatal(err)
	}
	var parsed struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Messages[0].Content != "base\n\nextra" {
		t.Fatalf("expected merged system content, got %q", parsed.Messages[0].Content)
	}
}

func TestApplyClaudeOverwriteSetsSystemField(t *testing.T) {
	m := newTestManager(t, ModeOverwrite, "new system")
	out, err := m.Apply([]byte(`{"system":"old","messages":[]}`), common.ProtocolClaude)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(out); !strings.Contains(got, `"system":"new system"`) {
		t.Fatalf("expected overwritten system field, got %s", got)
	}
}

func TestApplyClaudeAppendConcatenates(t *testing.T) {
	m := newTestManager(t, ModeAppend, "addendum")
	out, err := m.Apply([]byte(`{"system":"base","messages":[]}`), common.ProtocolClaude)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(out); !strings.Contains(got, `base\n\naddendum`) {
		t.Fatalf("expected appended system field, got %s", got)
	}
}

func TestApplyGeminiOverwriteSetsSystemInstruction(t *testing.T) {
	m := newTestManager(t, ModeOverwrite, "gemini sys")
	out, err := m.Apply([]byte(`{"contents":[]}`), common.ProtocolGemini)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(out); !strings.Contains(got, `"text":"gemini sys"`) {
		t.Fatalf("expected systemInstruction injected, got %s", got)
	}
}

func TestApplyModeNoneIsNoop(t *testing.T) {
	m := newTestManager(t, ModeNone, "unused")
	req := []byte(`{"messages":[]}`)
	out, err := m.Apply(req, common.ProtocolOpenAI)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != string(req) {
		t.Fatalf("expected passthrough, got %s", out)
	}
}

func TestSaveIncomingSkipsUnchangedWrite(t *testing.T) {
	m := newTestManager(t, ModeOverwrite, "x")
	if err := m.SaveIncoming("hello"); err != nil {
		t.Fatal(err)
	}
	fetchPath := filepath.Join(filepath.Dir(m.path), "fetch_system_prompt.txt")
	info1, err := os.Stat(fetchPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SaveIncoming("hello"); err != nil {
		t.Fatal(err)
	}
	info2, err := os.Stat(fetchPath)
	if err != nil {
		t.Fatal(err)
	}
	if info1.ModTime() != info2.ModTime() {
		t.Fatal("expected no rewrite when content is unchanged")
	}
}
