package query

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/gbellini/ledgerchat/internal/expense"
	"github.com/gbellini/ledgerchat/internal/llm"
	"github.com/gbellini/ledgerchat/internal/memory"
	"github.com/gbellini/ledgerchat/internal/observability"
)

const (
	validateMaxTokens = 5
	sqlMaxTokens      = 400

	// invalidQuestionMsg is the user-correctable validation failure.
	invalidQuestionMsg = "Invalid question. Please ask about your expenses or receipts."
)

// RetrievalAgent answers data-retrieval questions: it gates the question
// through a relevance check, generates SQL scoped to the caller, executes it
// and narrates the rows. Each step depends on the previous one, so the
// pipeline runs strictly in order with no internal retries except inside the
// explanation stage.
type RetrievalAgent struct {
	client         llm.Client
	exec           expense.Executor
	explainer      *Explainer
	validatorModel string
	sqlModel       string
	metrics        *observability.Metrics
}

func NewRetrievalAgent(client llm.Client, exec expense.Executor, explainer *Explainer, validatorModel, sqlModel string, metrics *observability.Metrics) *RetrievalAgent {
	return &RetrievalAgent{
		client:         client,
		exec:           exec,
		explainer:      explainer,
		validatorModel: validatorModel,
		sqlModel:       sqlModel,
		metrics:        metrics,
	}
}

func (a *RetrievalAgent) Process(ctx context.Context, question, userID string, win *memory.Window, dec Decision) Outcome {
	enhanced := question
	usedContext := false
	if dec.RequiresContext && win.Len() > 0 {
		enhanced = enhancedQuestion(win.Context(), question)
		usedContext = true
	}

	ok, err := a.validate(ctx, enhanced)
	if err != nil {
		log.Printf("retrieval: validator failed, rejecting question: %v", err)
		a.metrics.ObserveProviderError("validator", "generate")
	}
	if !ok {
		return failure(AgentRetrieval, invalidQuestionMsg)
	}

	raw, err := a.client.Generate(ctx, llm.Request{
		Prompt:    sqlPrompt(enhanced, userID),
		Model:     a.sqlModel,
		MaxTokens: sqlMaxTokens,
	})
	if err != nil {
		a.metrics.ObserveProviderError("sqlgen", "generate")
		return failure(AgentRetrieval, fmt.Sprintf("SQL generation error: %v", err))
	}
	sql := CleanSQL(raw)
	if !scopedToUser(sql, userID) {
		a.metrics.ObserveProviderError("sqlgen", "unscoped")
		return failure(AgentRetrieval, "generated query was not scoped to your records")
	}

	rows, err := a.exec.Execute(ctx, sql)
	if err != nil {
		return failure(AgentRetrieval, fmt.Sprintf("SQL execution error: %v", err))
	}

	answer := a.explainer.Explain(ctx, enhanced, sql, rows)

	return Outcome{
		Success: true,
		Agent:   AgentRetrieval,
		Answer:  answer,
		SQL:     sql,
		Rows:    rows,
		Metadata: map[string]any{
			"row_count":   len(rows),
			"has_context": usedContext,
		},
	}
}

// validate asks the filter model for a YES/NO relevance verdict. Errors are
// reported to the caller, which treats them as a rejection.
func (a *RetrievalAgent) validate(ctx context.Context, question string) (bool, error) {
	verdict, err := a.client.Generate(ctx, llm.Request{
		Prompt:    validatePrompt(question),
		Model:     a.validatorModel,
		MaxTokens: validateMaxTokens,
	})
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(verdict)), "YES"), nil
}

// scopedToUser checks the single attack-surface invariant: every generated
// statement must carry an equality filter on the caller's user_id.
func scopedToUser(sql, userID string) bool {
	re := regexp.MustCompile(`(?i)user_id\s*=\s*'` + regexp.QuoteMeta(userID) + `'`)
	return re.MatchString(sql)
}
