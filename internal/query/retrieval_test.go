package query

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gbellini/ledgerchat/internal/expense"
	"github.com/gbellini/ledgerchat/internal/memory"
)

func newRetrievalAgent(client *scriptedClient, exec expense.Executor) *RetrievalAgent {
	explainer := NewExplainer(client, "explain-model", time.Millisecond, 2*time.Millisecond, nil)
	return NewRetrievalAgent(client, exec, explainer, "validator-model", "sql-model", nil)
}

func TestRetrievalSimpleQuestion(t *testing.T) {
	client := newScriptedClient()
	client.sqlgen = func() (string, error) {
		return "```sql\nSELECT SUM(total_amount) FROM receipts WHERE user_id = 'u1' AND expense_category = 'Food';\n```", nil
	}
	client.explain = func() (string, error) { return "You spent $120 on Food last month.", nil }
	exec := expense.NewStaticExecutor([]expense.Row{{"sum": 120.0}})
	agent := newRetrievalAgent(client, exec)

	out := agent.Process(context.Background(), "How much did I spend on Food last month?", "u1",
		memory.NewWindow(0), Decision{Agent: AgentRetrieval, Complexity: 1})

	if !out.Success {
		t.Fatalf("Success = false, error = %q", out.Error)
	}
	if !strings.Contains(out.SQL, "user_id = 'u1'") {
		t.Fatalf("SQL = %q, want user_id scope", out.SQL)
	}
	if strings.Contains(out.SQL, "```") || strings.HasSuffix(out.SQL, ";") {
		t.Fatalf("SQL = %q, want cleaned statement", out.SQL)
	}
	if out.Answer == "" {
		t.Fatal("Answer is empty, want narration")
	}
	if got := out.Metadata["row_count"]; got != 1 {
		t.Fatalf("row_count = %v, want 1", got)
	}
	if got := out.Metadata["has_context"]; got != false {
		t.Fatalf("has_context = %v, want false", got)
	}
}

func TestRetrievalContextEnhancement(t *testing.T) {
	client := newScriptedClient()
	client.sqlgen = func() (string, error) {
		return "SELECT * FROM receipts WHERE user_id = 'u1'", nil
	}

	win := memory.NewWindow(0)
	win.Append("user", "How much did I spend on Food?", nil)
	win.Append("assistant", "You spent $120 on Food.", nil)

	agent := newRetrievalAgent(client, expense.NewStaticExecutor(nil))
	out := agent.Process(context.Background(), "What about Transportation?", "u1",
		win, Decision{Agent: AgentRetrieval, Complexity: 2, RequiresContext: true})

	if !out.Success {
		t.Fatalf("Success = false, error = %q", out.Error)
	}
	if got := out.Metadata["has_context"]; got != true {
		t.Fatalf("has_context = %v, want true", got)
	}
}

func TestRetrievalValidatorRejects(t *testing.T) {
	client := newScriptedClient()
	client.validate = func() (string, error) { return "NO", nil }
	agent := newRetrievalAgent(client, expense.NewStaticExecutor(nil))

	out := agent.Process(context.Background(), "Tell me a joke", "u1",
		memory.NewWindow(0), Decision{Agent: AgentRetrieval, Complexity: 1})

	if out.Success {
		t.Fatal("Success = true, want rejection")
	}
	if out.Error != invalidQuestionMsg {
		t.Fatalf("Error = %q, want %q", out.Error, invalidQuestionMsg)
	}
	if n := client.count("sqlgen"); n != 0 {
		t.Fatalf("sqlgen calls = %d, want 0 after rejection", n)
	}
}

func TestRetrievalValidatorErrorTreatedAsRejection(t *testing.T) {
	client := newScriptedClient()
	client.validate = func() (string, error) { return "", errors.New("provider down") }
	agent := newRetrievalAgent(client, expense.NewStaticExecutor(nil))

	out := agent.Process(context.Background(), "How much did I spend?", "u1",
		memory.NewWindow(0), Decision{Agent: AgentRetrieval})

	if out.Success || out.Error != invalidQuestionMsg {
		t.Fatalf("outcome = %+v, want validation rejection", out)
	}
	if n := client.count("sqlgen"); n != 0 {
		t.Fatalf("sqlgen calls = %d, want 0", n)
	}
}

func TestRetrievalUnscopedSQLRejected(t *testing.T) {
	client := newScriptedClient()
	client.sqlgen = func() (string, error) {
		return "SELECT * FROM receipts", nil
	}
	agent := newRetrievalAgent(client, expense.NewStaticExecutor(nil))

	out := agent.Process(context.Background(), "Show all receipts", "u1",
		memory.NewWindow(0), Decision{Agent: AgentRetrieval})

	if out.Success {
		t.Fatal("Success = true for unscoped SQL, want failure")
	}
	if !strings.Contains(out.Error, "scoped") {
		t.Fatalf("Error = %q, want scoping failure", out.Error)
	}
}

func TestRetrievalExecutionErrorSurfaced(t *testing.T) {
	client := newScriptedClient()
	agent := newRetrievalAgent(client, failingExecutor{})

	out := agent.Process(context.Background(), "Show my receipts", "u1",
		memory.NewWindow(0), Decision{Agent: AgentRetrieval})

	if out.Success {
		t.Fatal("Success = true, want execution failure")
	}
	if !strings.Contains(out.Error, "SQL execution error") {
		t.Fatalf("Error = %q, want execution error", out.Error)
	}
	if n := client.count("explain"); n != 0 {
		t.Fatalf("explain calls = %d, want 0 after execution failure", n)
	}
}

func TestScopedToUser(t *testing.T) {
	cases := []struct {
		sql  string
		want bool
	}{
		{"SELECT * FROM receipts WHERE user_id = 'u1'", true},
		{"SELECT * FROM receipts WHERE USER_ID='u1'", true},
		{"SELECT * FROM receipts WHERE user_id  =  'u1' AND x = 1", true},
		{"SELECT * FROM receipts", false},
		{"SELECT * FROM receipts WHERE user_id = 'other'", false},
	}
	for _, tc := range cases {
		if got := scopedToUser(tc.sql, "u1"); got != tc.want {
			t.Fatalf("scopedToUser(%q) = %v, want %v", tc.sql, got, tc.want)
		}
	}
}

type failingExecutor struct{}

func (failingExecutor) Execute(context.Context, string) ([]expense.Row, error) {
	return nil, errors.New("relation does not exist")
}

func (failingExecutor) Query(context.Context, string, ...any) ([]expense.Row, error) {
	return nil, errors.New("relation does not exist")
}

func (failingExecutor) Close() error { return nil }
