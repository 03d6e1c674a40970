package kiro

import (
	"encoding/json"
	"testing"

	"github.com/tidwall/gjson"
)

func TestBuildConversationStateCurrentMessageMatchesLastMessageRole(t *testing.T) {
	cases := []struct {
		name    string
		request []byte
		wantKey string
	}{
		{
			name:    "last message from user wraps as userInputMessage",
			request: []byte(`{"model":"claude-3-5-sonnet-20241022","messages":[{"role":"user","content":"hi"}]}`),
			wantKey: "userInputMessage",
		},
		{
			name: "last message from assistant wraps as assistantResponseMessage",
			request: []byte(`{"model":"claude-3-5-sonnet-20241022","messages":[
				{"role":"user","content":"hi"},
				{"role":"assistant","content":[{"type":"text","text":"hello there"}]}
			]}`),
			wantKey: "assistantResponseMessage",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := BuildConversationState(tc.request, "")
			if err != nil {
				t.Fatalf("BuildConversationState: %v", err)
			}
			current := gjson.GetBytes(out, "conversationState.currentMessage")
			var asMap map[string]json.RawMessage
			if err := json.Unmarshal([]byte(current.Raw), &asMap); err != nil {
				t.Fatalf("currentMessage is not an object: %v", err)
			}
			if _, ok := asMap[tc.wantKey]; !ok {
				t.Fatalf("currentMessage = %s, want a %q key", current.Raw, tc.wantKey)
			}
			if len(asMap) != 1 {
				t.Fatalf("currentMessage = %s, want exactly one key", current.Raw)
			}
		})
	}
}

func TestBuildConversationStateAssistantCurrentMessageKeepsToolUseContent(t *testing.T) {
	request := []byte(`{"model":"claude-3-5-sonnet-20241022","messages":[
		{"role":"user","content":"run the thing"},
		{"role":"assistant","content":[{"type":"tool_use","id":"tool_1","name":"run","input":{"x":1}}]}
	]}`)
	out, err := BuildConversationState(request, "")
	if err != nil {
		t.Fatalf("BuildConversationState: %v", err)
	}
	toolUses := gjson.GetBytes(out, "conversationState.currentMessage.assistantResponseMessage.toolUses")
	if !toolUses.Exists() || len(toolUses.Array()) != 1 {
		t.Fatalf("expected the assistant's tool_use block to survive into currentMessage, got %s",
			gjson.GetBytes(out, "conversationState.currentMessage").Raw)
	}
	if name := toolUses.Array()[0].Get("name").String(); name != "run" {
		t.Fatalf("toolUses[0].name = %q, want run", name)
	}
}
