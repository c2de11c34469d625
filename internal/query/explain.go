package query

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gbellini/ledgerchat/internal/expense"
	"github.com/gbellini/ledgerchat/internal/llm"
	"github.com/gbellini/ledgerchat/internal/observability"
	"github.com/gbellini/ledgerchat/internal/reliability"
)

// FallbackNoRecords is returned verbatim when explanation fails for an empty
// row set. Callers compare against it, so the text must not change.
const FallbackNoRecords = "No records found for your query."

const (
	explainAttempts    = 3
	explainTemperature = 0.2
	explainMaxTokens   = 400
)

// Explainer turns (question, SQL, rows) into prose. It is the most
// failure-hardened step: transient provider failures are retried with
// exponential backoff, and total failure degrades to the raw rows rather
// than an error so the user still sees their data.
type Explainer struct {
	client    llm.Client
	model     string
	baseDelay time.Duration
	maxDelay  time.Duration
	metrics   *observability.Metrics
}

func NewExplainer(client llm.Client, model string, baseDelay, maxDelay time.Duration, metrics *observability.Metrics) *Explainer {
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 8 * time.Second
	}
	return &Explainer{client: client, model: model, baseDelay: baseDelay, maxDelay: maxDelay, metrics: metrics}
}

// Explain narrates the rows. It never returns an error: after at most
// explainAttempts provider calls, or immediately on a permanent failure, it
// falls back to pretty-printed rows (or FallbackNoRecords when empty).
// Backoff sleeps are interruptible through ctx.
func (e *Explainer) Explain(ctx context.Context, question, sql string, rows []expense.Row) string {
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		rowsJSON = []byte("[]")
	}
	prompt := explainPrompt(question, sql, string(rowsJSON))

	for attempt := 1; attempt <= explainAttempts; attempt++ {
		answer, err := e.client.Generate(ctx, llm.Request{
			Prompt:      prompt,
			Model:       e.model,
			Temperature: explainTemperature,
			MaxTokens:   explainMaxTokens,
		})
		if err == nil && answer != "" {
			return answer
		}
		if !llm.IsTransient(err) {
			log.Printf("explain: permanent failure on attempt %d: %v", attempt, err)
			e.metrics.ObserveProviderError("explain", "permanent")
			break
		}
		log.Printf("explain: transient failure on attempt %d: %v", attempt, err)
		e.metrics.ObserveProviderError("explain", "transient")
		if attempt == explainAttempts {
			break
		}
		e.metrics.ObserveExplainRetry()
		if !reliability.SleepContext(ctx, reliability.ExponentialBackoff(attempt-1, e.baseDelay, e.maxDelay)) {
			break
		}
	}

	e.metrics.ObserveExplainFallback()
	if len(rows) == 0 {
		return FallbackNoRecords
	}
	pretty, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return FallbackNoRecords
	}
	return string(pretty)
}
