package query

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gbellini/ledgerchat/internal/expense"
	"github.com/gbellini/ledgerchat/internal/llm"
	"github.com/gbellini/ledgerchat/internal/memory"
	"github.com/gbellini/ledgerchat/internal/observability"
)

const (
	analysisTemperature = 0.3
	analysisMaxTokens   = 800

	// noDataSentinel replaces the data context when both aggregates come
	// back empty. The model is still called and expected to say so.
	noDataSentinel = "No expense data available for analysis."

	topMerchantLines = 5
)

// AnalysisAgent answers higher-level questions. It grounds a single
// generative call in two fixed 90-day aggregates (spend per category, top
// merchants) rather than generating SQL per question.
type AnalysisAgent struct {
	client  llm.Client
	exec    expense.Executor
	model   string
	metrics *observability.Metrics
}

func NewAnalysisAgent(client llm.Client, exec expense.Executor, model string, metrics *observability.Metrics) *AnalysisAgent {
	return &AnalysisAgent{client: client, exec: exec, model: model, metrics: metrics}
}

func (a *AnalysisAgent) Process(ctx context.Context, question, userID string, win *memory.Window, dec Decision) Outcome {
	dataContext := a.dataContext(ctx, userID)

	answer, err := a.client.Generate(ctx, llm.Request{
		Prompt:      analysisPrompt(question, win.Context(), dataContext),
		Model:       a.model,
		Temperature: analysisTemperature,
		MaxTokens:   analysisMaxTokens,
	})
	if err != nil {
		a.metrics.ObserveProviderError("analysis", "generate")
		return failure(AgentAnalysis, fmt.Sprintf("analysis error: %v", err))
	}

	queryType := dec.QueryType
	if queryType == "" {
		queryType = "general"
	}
	return Outcome{
		Success: true,
		Agent:   AgentAnalysis,
		Answer:  answer,
		Metadata: map[string]any{
			"analysis_type": queryType,
			"data_points":   len(strings.Split(dataContext, "\n")),
		},
	}
}

// dataContext renders the aggregate summaries as a compact text block.
// Aggregate failures degrade to the no-data sentinel instead of failing the
// whole analysis.
func (a *AnalysisAgent) dataContext(ctx context.Context, userID string) string {
	categories, err := expense.CategorySummary(ctx, a.exec, userID)
	if err != nil {
		log.Printf("analysis: category summary failed: %v", err)
		return noDataSentinel
	}
	merchants, err := expense.TopMerchants(ctx, a.exec, userID)
	if err != nil {
		log.Printf("analysis: top merchants failed: %v", err)
		return noDataSentinel
	}
	if len(categories) == 0 && len(merchants) == 0 {
		return noDataSentinel
	}

	var lines []string
	if len(categories) > 0 {
		lines = append(lines, "SPENDING BY CATEGORY (Last 90 days):")
		for _, row := range categories {
			lines = append(lines, fmt.Sprintf("- %s: $%.2f (%d transactions)",
				labelOr(row, "expense_category", "Unknown"),
				expense.Float(row, "total_spent"),
				expense.Int(row, "transaction_count")))
		}
	}
	if len(merchants) > 0 {
		lines = append(lines, "TOP MERCHANTS:")
		for i, row := range merchants {
			if i == topMerchantLines {
				break
			}
			lines = append(lines, fmt.Sprintf("- %s: $%.2f (%d visits)",
				labelOr(row, "merchant_name", "Unknown"),
				expense.Float(row, "total_spent"),
				expense.Int(row, "visit_count")))
		}
	}
	return strings.Join(lines, "\n")
}

func labelOr(row expense.Row, key, fallback string) string {
	if s := expense.String(row, key); s != "" {
		return s
	}
	return fallback
}
