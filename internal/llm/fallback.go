package llm

import (
	"context"
	"errors"
	"fmt"
)

// FallbackClient attempts a primary client first and falls back on error.
// Context cancellation is never masked by the fallback.
type FallbackClient struct {
	primary  Client
	fallback Client
}

func NewFallbackClient(primary, fallback Client) *FallbackClient {
	return &FallbackClient{primary: primary, fallback: fallback}
}

// Primary returns the preferred client used before fallback.
func (c *FallbackClient) Primary() Client {
	if c == nil {
		return nil
	}
	return c.primary
}

func (c *FallbackClient) Generate(ctx context.Context, req Request) (string, error) {
	if c == nil || c.primary == nil {
		if c != nil && c.fallback != nil {
			return c.fallback.Generate(ctx, req)
		}
		return "", fmt.Errorf("fallback client misconfigured")
	}

	text, err := c.primary.Generate(ctx, req)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}
	if c.fallback == nil {
		return "", err
	}

	fallbackText, fallbackErr := c.fallback.Generate(ctx, req)
	if fallbackErr != nil {
		return "", fmt.Errorf("primary client error: %w; fallback client error: %v", err, fallbackErr)
	}
	return fallbackText, nil
}
