package help

import (
	"strings"
	"testing"

	"github.com/thomasrohde/piske/pkg/stdlib"
)

func TestQUICKREFNonEmpty(t *testing.T) {
	if len(QUICKREF) == 0 {
		t.Fatal("QUICKREF is empty")
	}
}

func TestQUICKREFContainsVersion(t *testing.T) {
	if !strings.Contains(QUICKREF, Version) {
		t.Errorf("QUICKREF does not contain version string %s", Version)
	}
}

func TestQUICKREFListsTopics(t *testing.T) {
	for _, topic := range TopicList {
		if !strings.Contains(QUICKREF, topic) {
			t.Errorf("QUICKREF does not mention topic %q", topic)
		}
	}
}

func TestTopicListMatchesTopics(t *testing.T) {
	for _, name := range TopicList {
		if _, ok := Topics[name]; !ok {
			t.Errorf("TopicList entry %q not in Topics map", name)
		}
	}
	if len(Topics) != len(TopicList) {
		t.Errorf("expected %d topics, got %d", len(TopicList), len(Topics))
	}
}

func TestTopicsNonEmpty(t *testing.T) {
	for name, content := range Topics {
		if len(content) == 0 {
			t.Errorf("topic %q has empty content", name)
		}
	}
}

func TestMatchTopicExact(t *testing.T) {
	name, content, err := MatchTopic("syntax")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "syntax" {
		t.Errorf("expected name 'syntax', got %q", name)
	}
	if content == "" {
		t.Error("expected non-empty content")
	}
}

func TestMatchTopicPrefix(t *testing.T) {
	name, _, err := MatchTopic("diag")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "diagnostics" {
		t.Errorf("expected 'diagnostics', got %q", name)
	}
}

func TestMatchTopicAmbiguousPrefix(t *testing.T) {
	_, _, err := MatchTopic("s")
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("expected ambiguous topic error, got %v", err)
	}
}

func TestMatchTopicFuzzy(t *testing.T) {
	name, _, err := MatchTopic("fn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "functions" {
		t.Errorf("expected 'functions', got %q", name)
	}
}

func TestMatchTopicUnknown(t *testing.T) {
	_, _, err := MatchTopic("nonexistent")
	if err == nil {
		t.Error("expected error for unknown topic")
	}
	_, _, err = MatchTopic("__proto__")
	if err == nil {
		t.Error("expected error for __proto__")
	}
}

func TestStdlibIndex(t *testing.T) {
	idx := StdlibIndex(stdlib.Defaults())
	if !strings.Contains(idx, "Total: 8 functions") {
		t.Errorf("StdlibIndex should report 8 functions, got:\n%s", idx)
	}
	if !strings.Contains(idx, "project(row: int, col: int, center: complex, size: complex) -> complex") {
		t.Errorf("StdlibIndex missing project signature:\n%s", idx)
	}
	if !strings.Contains(idx, "get_image_width() -> int") {
		t.Errorf("StdlibIndex missing get_image_width:\n%s", idx)
	}
}

func TestMatchTopicAllExact(t *testing.T) {
	for _, topic := range TopicList {
		name, content, err := MatchTopic(topic)
		if err != nil {
			t.Errorf("MatchTopic(%q) error: %v", topic, err)
			continue
		}
		if name != topic {
			t.Errorf("MatchTopic(%q) returned name %q", topic, name)
		}
		if content == "" {
			t.Errorf("MatchTopic(%q) returned empty content", topic)
		}
	}
}
