package query

import (
	"strings"

	"github.com/gbellini/ledgerchat/internal/expense"
)

// Agent names which processing path answers a question.
type Agent string

const (
	AgentRetrieval Agent = "retrieval"
	AgentAnalysis  Agent = "analysis"
	AgentHybrid    Agent = "hybrid"
	// AgentError marks outcomes produced by the orchestrator's last-line
	// recovery path rather than by an agent.
	AgentError Agent = "error"
)

// NormalizeAgent maps free-text agent names from the model onto the closed
// set. Anything unrecognized falls back to retrieval, the safest path.
func NormalizeAgent(s string) Agent {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "retrieval", "sql", "data_retrieval":
		return AgentRetrieval
	case "analysis":
		return AgentAnalysis
	case "hybrid", "both":
		return AgentHybrid
	default:
		return AgentRetrieval
	}
}

// Decision is the classifier's routing verdict for one question.
type Decision struct {
	Agent           Agent  `json:"agent"`
	Complexity      int    `json:"complexity"`
	RequiresContext bool   `json:"requires_context"`
	QueryType       string `json:"query_type"`
	Reasoning       string `json:"reasoning"`
}

// Outcome is the result of one agent run (or a hybrid merge). A failed
// outcome carries Error instead of a displayable Answer.
type Outcome struct {
	Success        bool           `json:"success"`
	Agent          Agent          `json:"agent"`
	Answer         string         `json:"answer,omitempty"`
	SQL            string         `json:"sql,omitempty"`
	Rows           []expense.Row  `json:"result,omitempty"`
	Error          string         `json:"error,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Classification *Decision      `json:"classification,omitempty"`
}

func failure(agent Agent, msg string) Outcome {
	return Outcome{Success: false, Agent: agent, Error: msg}
}
