package query

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gbellini/ledgerchat/internal/conversation"
	"github.com/gbellini/ledgerchat/internal/memory"
	"github.com/gbellini/ledgerchat/internal/observability"
	"github.com/gbellini/ledgerchat/internal/workpool"
)

// DefaultHistoryLimit bounds how many persisted messages are loaded when
// rebuilding the conversation window.
const DefaultHistoryLimit = 50

// Orchestrator is the entry point for one conversational question: it loads
// the conversation window, classifies the question, dispatches to the
// retrieval and/or analysis agent, and merges the result. It holds no
// per-request state and never lets a panic escape to the caller.
type Orchestrator struct {
	store        conversation.Store
	classifier   *Classifier
	retrieval    *RetrievalAgent
	analysis     *AnalysisAgent
	pool         *workpool.Pool
	historyLimit int
	metrics      *observability.Metrics
}

func NewOrchestrator(store conversation.Store, classifier *Classifier, retrieval *RetrievalAgent, analysis *AnalysisAgent, pool *workpool.Pool, historyLimit int, metrics *observability.Metrics) *Orchestrator {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Orchestrator{
		store:        store,
		classifier:   classifier,
		retrieval:    retrieval,
		analysis:     analysis,
		pool:         pool,
		historyLimit: historyLimit,
		metrics:      metrics,
	}
}

// Process answers one question. It always returns a usable Outcome: agent
// failures arrive as Success=false outcomes, and anything unexpected is
// recovered into an AgentError outcome at this boundary.
func (o *Orchestrator) Process(ctx context.Context, question, userID, conversationID string) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("orchestrator: recovered panic: %v", r)
			out = failure(AgentError, fmt.Sprintf("query processing error: %v", r))
		}
		o.metrics.ObserveQuery(string(out.Agent), out.Success, time.Since(start))
	}()

	win := o.loadWindow(ctx, conversationID)
	dec := o.classifier.Classify(ctx, question, win)

	switch dec.Agent {
	case AgentRetrieval:
		out = o.run(ctx, func() Outcome {
			return o.retrieval.Process(ctx, question, userID, win, dec)
		})
	case AgentAnalysis:
		out = o.run(ctx, func() Outcome {
			return o.analysis.Process(ctx, question, userID, win, dec)
		})
	case AgentHybrid:
		out = o.runHybrid(ctx, question, userID, win, dec)
	default:
		out = failure(AgentError, fmt.Sprintf("unknown agent %q", dec.Agent))
	}

	out.Classification = &dec
	return out
}

// loadWindow rebuilds the bounded conversation window from persisted
// messages. Load failures degrade to an empty window so a storage blip does
// not take down question answering.
func (o *Orchestrator) loadWindow(ctx context.Context, conversationID string) *memory.Window {
	win := memory.NewWindow(memory.DefaultCapacity)
	if conversationID == "" {
		return win
	}
	msgs, err := o.store.Messages(ctx, conversationID, o.historyLimit)
	if err != nil {
		log.Printf("orchestrator: loading conversation %s failed: %v", conversationID, err)
		o.metrics.ObserveProviderError("store", "load")
		return win
	}
	for _, m := range msgs {
		win.AppendAt(m.Role, m.Content, m.Metadata, m.CreatedAt)
	}
	return win
}

func recoverInto(out *Outcome, agent Agent) {
	if r := recover(); r != nil {
		log.Printf("orchestrator: recovered %s panic: %v", agent, r)
		*out = failure(agent, fmt.Sprintf("query processing error: %v", r))
	}
}

// run executes fn through the bounded worker pool so upstream calls cannot
// fan out past the configured ceiling.
func (o *Orchestrator) run(ctx context.Context, fn func() Outcome) Outcome {
	var out Outcome
	if err := o.pool.Do(ctx, func() { out = fn() }); err != nil {
		return failure(AgentError, fmt.Sprintf("query processing error: %v", err))
	}
	return out
}

// runHybrid fans out to both agents concurrently and merges the results:
// answers joined with a blank line (retrieval first), metadata nested under
// per-agent keys, and the SQL/row payload taken from retrieval.
func (o *Orchestrator) runHybrid(ctx context.Context, question, userID string, win *memory.Window, dec Decision) Outcome {
	var (
		wg         sync.WaitGroup
		rOut, aOut Outcome
	)
	// Panics in the fan-out goroutines cannot reach the Process recover,
	// so each branch recovers on its own.
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer recoverInto(&rOut, AgentRetrieval)
		rOut = o.run(ctx, func() Outcome {
			return o.retrieval.Process(ctx, question, userID, win, dec)
		})
	}()
	go func() {
		defer wg.Done()
		defer recoverInto(&aOut, AgentAnalysis)
		aOut = o.run(ctx, func() Outcome {
			return o.analysis.Process(ctx, question, userID, win, dec)
		})
	}()
	wg.Wait()

	if !rOut.Success && !aOut.Success {
		return failure(AgentHybrid, fmt.Sprintf("retrieval: %s; analysis: %s", rOut.Error, aOut.Error))
	}

	answer := rOut.Answer
	if aOut.Answer != "" {
		if answer != "" {
			answer += "\n\n"
		}
		answer += aOut.Answer
	}

	return Outcome{
		Success: true,
		Agent:   AgentHybrid,
		Answer:  answer,
		SQL:     rOut.SQL,
		Rows:    rOut.Rows,
		Metadata: map[string]any{
			"retrieval": rOut.Metadata,
			"analysis":  aOut.Metadata,
		},
	}
}
