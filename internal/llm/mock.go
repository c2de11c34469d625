package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockClient provides deterministic local replies when no provider is
// configured. Tests can script it with Reply.
type MockClient struct {
	mu    sync.Mutex
	calls int

	// Reply overrides the canned behavior when set.
	Reply func(req Request) (string, error)
}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *MockClient) Generate(ctx context.Context, req Request) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	c.mu.Lock()
	c.calls++
	reply := c.Reply
	c.mu.Unlock()

	if reply != nil {
		return reply(req)
	}
	return buildMockReply(req), nil
}

func buildMockReply(req Request) string {
	if req.JSONObject {
		return `{"agent":"retrieval","complexity":1,"requires_context":false,"query_type":"data_retrieval","reasoning":"mock"}`
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "I have nothing to go on."
	}
	return fmt.Sprintf("(mock %s) I cannot reach a language model right now.", req.Model)
}
