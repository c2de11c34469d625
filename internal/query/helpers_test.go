package query

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gbellini/ledgerchat/internal/llm"
)

// scriptedClient routes Generate calls to per-stage handlers by sniffing the
// prompt, and counts calls per stage so tests can assert which stages ran.
type scriptedClient struct {
	mu    sync.Mutex
	calls map[string]int

	classify func() (string, error)
	validate func() (string, error)
	sqlgen   func() (string, error)
	explain  func() (string, error)
	analyze  func(prompt string) (string, error)
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{calls: map[string]int{}}
}

func (c *scriptedClient) count(stage string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[stage]
}

func (c *scriptedClient) Generate(_ context.Context, req llm.Request) (string, error) {
	stage := promptStage(req.Prompt)
	c.mu.Lock()
	c.calls[stage]++
	c.mu.Unlock()

	switch stage {
	case "classify":
		if c.classify != nil {
			return c.classify()
		}
		return `{"agent":"retrieval","complexity":1,"requires_context":false,"query_type":"data_retrieval","reasoning":"scripted"}`, nil
	case "validate":
		if c.validate != nil {
			return c.validate()
		}
		return "YES", nil
	case "sqlgen":
		if c.sqlgen != nil {
			return c.sqlgen()
		}
		return "SELECT * FROM receipts WHERE user_id = 'u1'", nil
	case "explain":
		if c.explain != nil {
			return c.explain()
		}
		return "You spent money.", nil
	case "analyze":
		if c.analyze != nil {
			return c.analyze(req.Prompt)
		}
		return "Here is an analysis.", nil
	default:
		return "", fmt.Errorf("unrecognized prompt: %s", req.Prompt)
	}
}

func promptStage(prompt string) string {
	switch {
	case strings.Contains(prompt, "query classifier"):
		return "classify"
	case strings.Contains(prompt, "filter AI"):
		return "validate"
	case strings.Contains(prompt, "### Task"):
		return "sqlgen"
	case strings.Contains(prompt, "Returned rows:"):
		return "explain"
	case strings.Contains(prompt, "financial advisor"):
		return "analyze"
	default:
		return "unknown"
	}
}
