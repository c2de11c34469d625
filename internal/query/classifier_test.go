package query

import (
	"context"
	"errors"
	"testing"

	"github.com/gbellini/ledgerchat/internal/memory"
)

func TestClassifyLexicalOverride(t *testing.T) {
	client := newScriptedClient()
	client.classify = func() (string, error) {
		// Model claims no context needed at complexity 1.
		return `{"agent":"retrieval","complexity":1,"requires_context":false,"query_type":"data_retrieval","reasoning":"simple"}`, nil
	}
	c := NewClassifier(client, "test-model", nil)

	dec := c.Classify(context.Background(), "What about that category?", memory.NewWindow(0))
	if !dec.RequiresContext {
		t.Fatal("RequiresContext = false, want true after lexical override")
	}
	if dec.Complexity < 2 {
		t.Fatalf("Complexity = %d, want >= 2", dec.Complexity)
	}
	if dec.Agent != AgentRetrieval {
		t.Fatalf("Agent = %q, want %q", dec.Agent, AgentRetrieval)
	}
}

func TestClassifyProviderErrorFallsBack(t *testing.T) {
	client := newScriptedClient()
	client.classify = func() (string, error) { return "", errors.New("provider down") }
	c := NewClassifier(client, "test-model", nil)

	dec := c.Classify(context.Background(), "How much did I spend on Food in March?", memory.NewWindow(0))
	if dec.Reasoning != "fallback" {
		t.Fatalf("Reasoning = %q, want %q", dec.Reasoning, "fallback")
	}
	if dec.Agent != AgentRetrieval {
		t.Fatalf("Agent = %q, want %q", dec.Agent, AgentRetrieval)
	}
	if dec.Complexity != 1 {
		t.Fatalf("Complexity = %d, want 1", dec.Complexity)
	}
	if dec.QueryType != "data_retrieval" {
		t.Fatalf("QueryType = %q, want data_retrieval", dec.QueryType)
	}
}

func TestClassifyMalformedJSONFallsBack(t *testing.T) {
	client := newScriptedClient()
	client.classify = func() (string, error) { return "sure, here's your classification:", nil }
	c := NewClassifier(client, "test-model", nil)

	dec := c.Classify(context.Background(), "Show me that breakdown", memory.NewWindow(0))
	if dec.Reasoning != "fallback" {
		t.Fatalf("Reasoning = %q, want %q", dec.Reasoning, "fallback")
	}
	if !dec.RequiresContext || dec.Complexity != 2 {
		t.Fatalf("fallback decision = %+v, want requires_context with complexity 2", dec)
	}
}

func TestClassifyNormalizesAgent(t *testing.T) {
	cases := []struct {
		raw  string
		want Agent
	}{
		{"sql", AgentRetrieval},
		{"SQL", AgentRetrieval},
		{"analysis", AgentAnalysis},
		{"hybrid", AgentHybrid},
		{"quantum", AgentRetrieval},
	}
	for _, tc := range cases {
		if got := NormalizeAgent(tc.raw); got != tc.want {
			t.Fatalf("NormalizeAgent(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}

	client := newScriptedClient()
	client.classify = func() (string, error) {
		return `{"agent":"something-else","complexity":9,"requires_context":false,"query_type":"","reasoning":"x"}`, nil
	}
	c := NewClassifier(client, "test-model", nil)
	dec := c.Classify(context.Background(), "Hello", memory.NewWindow(0))
	if dec.Agent != AgentRetrieval {
		t.Fatalf("Agent = %q, want normalized %q", dec.Agent, AgentRetrieval)
	}
	if dec.Complexity != 3 {
		t.Fatalf("Complexity = %d, want clamped 3", dec.Complexity)
	}
	if dec.QueryType != "general" {
		t.Fatalf("QueryType = %q, want lexical seed %q", dec.QueryType, "general")
	}
}
