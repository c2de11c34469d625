package query

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/gbellini/ledgerchat/internal/llm"
	"github.com/gbellini/ledgerchat/internal/memory"
	"github.com/gbellini/ledgerchat/internal/observability"
)

const (
	classifyTemperature = 0.1
	classifyMaxTokens   = 200
)

// Classifier routes questions to an agent. It layers a deterministic lexical
// pass over a generative classification and never fails: any provider or
// parse error degrades to a fixed fallback decision.
type Classifier struct {
	client  llm.Client
	model   string
	metrics *observability.Metrics
}

func NewClassifier(client llm.Client, model string, metrics *observability.Metrics) *Classifier {
	return &Classifier{client: client, model: model, metrics: metrics}
}

// Classify produces the routing decision for question given the conversation
// window. Lexical reference detection can only escalate requires_context and
// complexity, never lower them.
func (c *Classifier) Classify(ctx context.Context, question string, win *memory.Window) Decision {
	feats := ExtractFeatures(question)

	raw, err := c.client.Generate(ctx, llm.Request{
		Prompt:      classifyPrompt(question, win.Context()),
		Model:       c.model,
		Temperature: classifyTemperature,
		MaxTokens:   classifyMaxTokens,
		JSONObject:  true,
	})
	if err != nil {
		log.Printf("classifier: generate failed, using fallback: %v", err)
		c.metrics.ObserveProviderError("classifier", "generate")
		return fallbackDecision(feats)
	}

	var parsed struct {
		Agent           string `json:"agent"`
		Complexity      int    `json:"complexity"`
		RequiresContext bool   `json:"requires_context"`
		QueryType       string `json:"query_type"`
		Reasoning       string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Printf("classifier: unparseable decision %q, using fallback: %v", raw, err)
		c.metrics.ObserveProviderError("classifier", "parse")
		return fallbackDecision(feats)
	}

	dec := Decision{
		Agent:           NormalizeAgent(parsed.Agent),
		Complexity:      clampComplexity(parsed.Complexity),
		RequiresContext: parsed.RequiresContext,
		QueryType:       parsed.QueryType,
		Reasoning:       strings.TrimSpace(parsed.Reasoning),
	}
	if dec.QueryType == "" {
		dec.QueryType = feats.QueryType
	}
	if feats.HasReference {
		dec.RequiresContext = true
		if dec.Complexity < 2 {
			dec.Complexity = 2
		}
	}
	return dec
}

func fallbackDecision(feats Features) Decision {
	complexity := 1
	if feats.HasReference {
		complexity = 2
	}
	return Decision{
		Agent:           AgentRetrieval,
		Complexity:      complexity,
		RequiresContext: feats.HasReference,
		QueryType:       feats.QueryType,
		Reasoning:       "fallback",
	}
}

func clampComplexity(n int) int {
	if n < 1 {
		return 1
	}
	if n > 3 {
		return 3
	}
	return n
}
