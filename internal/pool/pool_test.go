package pool

import (
	"testing"

	"github.com/router-for-me/aigateway/internal/common"
)

func TestSelectRoundRobinEvenSpread(t *testing.T) {
	p := common.Provider("gemini-cli-oauth")
	m := New(map[common.Provider][]*Entry{
		p: {
			{UUID: "a", IsHealthy: true},
			{UUID: "b", IsHealthy: true},
			{UUID: "c", IsHealthy: true},
		},
	}, 0)

	counts := map[string]int{}
	for i := 0; i < 9; i++ {
		e, err := m.Select(p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		counts[e.UUID]++
	}
	for _, uuid := range []string{"a", "b", "c"} {
		if counts[uuid] != 3 {
			t.Fatalf("expected %s selected 3 times, got %d", uuid, counts[uuid])
		}
	}
}

func TestSelectSkipsUnhealthy(t *testing.T) {
	p := common.Provider("claude-kiro-oauth")
	m := New(map[common.Provider][]*Entry{
		p: {
			{UUID: "a", IsHealthy: true},
			{UUID: "b", IsHealthy: false},
			{UUID: "c", IsHealthy: true},
		},
	}, 0)

	for i := 0; i < 4; i++ {
		e, err := m.Select(p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.UUID == "b" {
			t.Fatal("unhealthy entry must never be selected")
		}
	}
}

func TestSelectNoHealthyProvider(t *testing.T) {
	p := common.Provider("qwen-oauth")
	m := New(map[common.Provider][]*Entry{
		p: {{UUID: "a", IsHealthy: false}},
	}, 0)

	if _, err := m.Select(p); err == nil {
		t.Fatal("expected error when no healthy entries remain")
	}
}

func TestMarkHealthyReincludesEntry(t *testing.T) {
	p := common.Provider("gemini-cli-oauth")
	m := New(map[common.Provider][]*Entry{
		p: {
			{UUID: "a", IsHealthy: true},
			{UUID: "b", IsHealthy: false},
		},
	}, 0)
	m.MarkHealthy(p, "b")

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		e, err := m.Select(p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen[e.UUID] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("expected both entries selected at least once, got %+v", seen)
	}
}

func TestRecordErrorAutoMarksUnhealthy(t *testing.T) {
	p := common.Provider("claude-kiro-oauth")
	m := New(map[common.Provider][]*Entry{
		p: {{UUID: "a", IsHealthy: true}},
	}, 2)

	m.RecordError(p, "a")
	if !m.Entries(p)[0].IsHealthy {
		t.Fatal("one error below threshold should not flip health")
	}
	m.RecordError(p, "a")
	if m.Entries(p)[0].IsHealthy {
		t.Fatal("crossing MaxErrorCount should mark the entry unhealthy")
	}
}

func TestRecordSuccessResetsErrorCount(t *testing.T) {
	p := common.Provider("gemini-cli-oauth")
	m := New(map[common.Provider][]*Entry{
		p: {{UUID: "a", IsHealthy: true}},
	}, 3)

	m.RecordError(p, "a")
	m.RecordError(p, "a")
	m.RecordSuccess(p, "a")
	if m.Entries(p)[0].ErrorCount != 0 {
		t.Fatalf("expected error count reset after success, got %d", m.Entries(p)[0].ErrorCount)
	}
}
