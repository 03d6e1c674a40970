// Package systemprompt injects an operator-configured system prompt into
// outbound requests, per client protocol, and hot-reloads the prompt file
// on edit. Grounded on
// _examples/original_source/rust/src/system_prompt.rs's SystemPromptManager.
package systemprompt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/router-for-me/aigateway/internal/common"
)

type Mode string

const (
	ModeNone      Mode = "none"
	ModeOverwrite Mode = "overwrite"
	ModeAppend    Mode = "append"
)

// Manager holds the loaded prompt content and mode, refreshed in place by
// a filesystem watcher so a running process never needs restarting to pick
// up an edited prompt file.
type Manager struct {
	mu      sync.RWMutex
	path    string
	mode    Mode
	content string
	watcher *fsnotify.Watcher
	log     *logrus.Entry
}

// New loads the prompt file (if path is non-empty) and starts a watcher on
// it so edits take effect without a restart. A missing or empty file is not
// an error: Apply becomes a no-op, matching the teacher's `.ok()` swallow.
func New(path string, mode Mode, log *logrus.Entry) (*Manager, error) {
	m := &Manager{path: path, mode: mode, log: log}
	m.reload()

	if path == "" {
		return m, nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return m, err
	}
	m.watcher = watcher
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		m.watcher = nil
		return m, err
	}
	go m.watch()
	return m, nil
}

func (m *Manager) watch() {
	target := filepath.Clean(m.path)
	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				m.reload()
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			if m.log != nil {
				m.log.WithError(err).Warn("system prompt watcher error")
			}
		}
	}
}

func (m *Manager) reload() {
	if m.path == "" {
		return
	}
	raw, err := os.ReadFile(m.path)
	if err != nil {
		return
	}
	text := string(raw)
	if strings.TrimSpace(text) == "" {
		return
	}
	m.mu.Lock()
	m.content = text
	m.mu.Unlock()
	if m.log != nil {
		m.log.WithField("path", m.path).Info("loaded system prompt")
	}
}

func (m *Manager) current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.content
}

// Close stops the underlying filesystem watcher, if one was started.
func (m *Manager) Close() error {
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

// Apply injects the configured prompt into a request body written in the
// given client protocol, per spec.md §4.7's per-protocol rules. A ModeNone
// manager, or one with no loaded content, returns payload unchanged.
func (m *Manager) Apply(payload []byte, proto common.Protocol) ([]byte, error) {
	content := m.current()
	if m.mode == ModeNone || m.mode == "" || content == "" {
		return payload, nil
	}
	switch proto {
	case common.ProtocolOpenAI:
		return m.applyOpenAI(payload, content)
	case common.ProtocolClaude:
		return m.applyClaude(payload, content)
	case common.ProtocolGemini:
		return m.applyGemini(payload, content)
	default:
		return payload, nil
	}
}

func (m *Manager) applyOpenAI(payload []byte, content string) ([]byte, error) {
	messages := gjson.GetBytes(payload, "messages").Array()

	switch m.mode {
	case ModeOverwrite:
		kept := make([]map[string]any, 0, len(messages)+1)
		kept = append(kept, map[string]any{"role": "system", "content": content})
		for _, msg := range messages {
			if msg.Get("role").String() == "system" {
				continue
			}
			kept = append(kept, jsonObject(msg))
		}
		return sjson.SetBytes(payload, "messages", kept)

	case ModeAppend:
		found := false
		out := make([]map[string]any, 0, len(messages))
		for _, msg := range messages {
			obj := jsonObject(msg)
			if !found && msg.Get("role").String() == "system" {
				found = true
				obj["content"] = msg.Get("content").String() + "\n\n" + content
			}
			out = append(out, obj)
		}
		if !found {
			out = append([]map[string]any{{"role": "system", "content": content}}, out...)
		}
		return sjson.SetBytes(payload, "messages", out)
	}
	return payload, nil
}

func (m *Manager) applyClaude(payload []byte, content string) ([]byte, error) {
	switch m.mode {
	case ModeOverwrite:
		return sjson.SetBytes(payload, "system", content)
	case ModeAppend:
		existing := gjson.GetBytes(payload, "system").String()
		merged := content
		if existing != "" {
			merged = existing + "\n\n" + content
		}
		return sjson.SetBytes(payload, "system", merged)
	}
	return payload, nil
}

func (m *Manager) applyGemini(payload []byte, content string) ([]byte, error) {
	switch m.mode {
	case ModeOverwrite:
		return sjson.SetBytes(payload, "systemInstruction", map[string]any{
			"parts": []map[string]any{{"text": content}},
		})
	case ModeAppend:
		existing := gjson.GetBytes(payload, "systemInstruction.parts.0.text").String()
		merged := content
		if existing != "" {
			merged = existing + "\n\n" + content
		}
		return sjson.SetBytes(payload, "systemInstruction", map[string]any{
			"parts": []map[string]any{{"text": merged}},
		})
	}
	return payload, nil
}

func jsonObject(v gjson.Result) map[string]any {
	var obj map[string]any
	_ = json.Unmarshal([]byte(v.Raw), &obj)
	if obj == nil {
		obj = map[string]any{}
	}
	return obj
}

// SaveIncoming mirrors the client's own system-prompt text to a sibling
// fetch_system_prompt.txt file, so an operator can diff what clients
// actually send against the configured override. Writes are skipped when
// the text is unchanged, per the teacher's own dedup check.
func (m *Manager) SaveIncoming(promptText string) error {
	if m.path == "" {
		return nil
	}
	fetchPath := filepath.Join(filepath.Dir(m.path), "fetch_system_prompt.txt")

	current, _ := os.ReadFile(fetchPath)
	if string(current) == promptText {
		return nil
	}
	return os.WriteFile(fetchPath, []byte(promptText), 0o644)
}
