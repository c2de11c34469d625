package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Request is one text-generation call. Temperature and MaxTokens are always
// set by callers; JSONObject constrains the completion to a JSON object when
// the provider supports response formats.
type Request struct {
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
	JSONObject  bool
}

// Client generates text from a prompt. Implementations must signal transient
// provider failures with *TransientError so retry loops can classify them.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Config controls client construction.
type Config struct {
	Mode    string // auto | openai | mock
	APIKey  string
	BaseURL string
}

// NewClient builds a Client for the configured mode. "auto" prefers the real
// provider when an API key is present, with the mock as a local fallback so a
// provider outage degrades instead of failing hard.
func NewClient(cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return NewMockClient(), nil
		}
		return NewFallbackClient(NewOpenAIClient(cfg.APIKey, cfg.BaseURL), NewMockClient()), nil
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("llm API key is required for openai mode")
		}
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported llm client mode %q", cfg.Mode)
	}
}
