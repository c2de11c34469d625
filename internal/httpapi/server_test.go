package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gbellini/ledgerchat/internal/config"
	"github.com/gbellini/ledgerchat/internal/conversation"
	"github.com/gbellini/ledgerchat/internal/query"
)

type fakeOrchestrator struct {
	out query.Outcome
}

func (f *fakeOrchestrator) Process(_ context.Context, _, _, _ string) query.Outcome {
	return f.out
}

func newTestServer(t *testing.T, store conversation.Store, out query.Outcome) *httptest.Server {
	t.Helper()
	srv := New(config.Config{}, store, &fakeOrchestrator{out: out}, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	res, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return res
}

func decodeBody(t *testing.T, res *http.Response) map[string]any {
	t.Helper()
	defer res.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestQueryCreatesConversationAndPersistsTurns(t *testing.T) {
	store := conversation.NewInMemoryStore()
	ts := newTestServer(t, store, query.Outcome{
		Success: true,
		Agent:   query.AgentRetrieval,
		Answer:  "You spent $120 on Food.",
		SQL:     "SELECT SUM(total_amount) FROM receipts WHERE user_id = 'u1'",
		Metadata: map[string]any{
			"row_count": 1,
		},
		Classification: &query.Decision{Agent: query.AgentRetrieval, Complexity: 1, QueryType: "data_retrieval"},
	})

	res := postJSON(t, ts.URL+"/v1/query", map[string]string{
		"question": "How much did I spend on Food?",
		"user_id":  "u1",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	body := decodeBody(t, res)

	if body["response"] != "You spent $120 on Food." {
		t.Fatalf("response = %v, want orchestrator answer", body["response"])
	}
	if body["agent_used"] != "retrieval" {
		t.Fatalf("agent_used = %v, want retrieval", body["agent_used"])
	}
	convID, _ := body["conversation_id"].(string)
	if convID == "" {
		t.Fatal("conversation_id missing, want auto-created conversation")
	}
	if id, _ := body["message_id"].(string); id == "" {
		t.Fatal("message_id missing")
	}

	conv, err := store.Conversation(context.Background(), convID)
	if err != nil {
		t.Fatalf("Conversation() error = %v", err)
	}
	if conv.Title != "How much did I spend on Food?" {
		t.Fatalf("Title = %q, want question-derived title", conv.Title)
	}
	msgs, err := store.Messages(context.Background(), convID, 10)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("persisted messages = %d, want user + assistant", len(msgs))
	}
	if msgs[0].Role != conversation.RoleUser || msgs[1].Role != conversation.RoleAssistant {
		t.Fatalf("roles = %s,%s, want user,assistant", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].Metadata["classification"] == nil {
		t.Fatal("assistant metadata missing classification")
	}
}

func TestQueryPersistsFailedOutcome(t *testing.T) {
	store := conversation.NewInMemoryStore()
	ts := newTestServer(t, store, query.Outcome{
		Success: false,
		Agent:   query.AgentRetrieval,
		Error:   "Invalid question. Please ask about your expenses or receipts.",
	})

	res := postJSON(t, ts.URL+"/v1/query", map[string]string{
		"question": "Tell me a joke",
		"user_id":  "u1",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d with success=false payload", res.StatusCode, http.StatusOK)
	}
	body := decodeBody(t, res)
	if body["success"] != false {
		t.Fatalf("success = %v, want false", body["success"])
	}
	if !strings.Contains(body["response"].(string), "Invalid question") {
		t.Fatalf("response = %v, want validation guidance", body["response"])
	}

	convID := body["conversation_id"].(string)
	msgs, _ := store.Messages(context.Background(), convID, 10)
	if len(msgs) != 2 {
		t.Fatalf("persisted messages = %d, want history complete on failure", len(msgs))
	}
	if got := msgs[1].Metadata["success"]; got != false {
		t.Fatalf("assistant metadata success = %v, want false", got)
	}
}

func TestQueryRejectsForeignConversation(t *testing.T) {
	store := conversation.NewInMemoryStore()
	conv, err := store.CreateConversation(context.Background(), "owner", "theirs")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	ts := newTestServer(t, store, query.Outcome{Success: true, Agent: query.AgentRetrieval, Answer: "x"})

	res := postJSON(t, ts.URL+"/v1/query", map[string]string{
		"question":        "How much did I spend?",
		"user_id":         "intruder",
		"conversation_id": conv.ID,
	})
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d for foreign conversation", res.StatusCode, http.StatusNotFound)
	}

	msgs, _ := store.Messages(context.Background(), conv.ID, 10)
	if len(msgs) != 0 {
		t.Fatalf("messages appended to foreign conversation = %d, want 0", len(msgs))
	}
}

func TestQueryValidation(t *testing.T) {
	ts := newTestServer(t, conversation.NewInMemoryStore(), query.Outcome{})

	res := postJSON(t, ts.URL+"/v1/query", map[string]string{"user_id": "u1"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d for missing question", res.StatusCode, http.StatusBadRequest)
	}

	res2 := postJSON(t, ts.URL+"/v1/query", map[string]string{"question": "hi"})
	defer res2.Body.Close()
	if res2.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d for missing user_id", res2.StatusCode, http.StatusBadRequest)
	}
}

func TestConversationLifecycle(t *testing.T) {
	store := conversation.NewInMemoryStore()
	ts := newTestServer(t, store, query.Outcome{})

	res := postJSON(t, ts.URL+"/v1/conversations", map[string]string{"user_id": "u1", "title": "groceries"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	created := decodeBody(t, res)
	id := created["id"].(string)

	listRes, err := http.Get(ts.URL + "/v1/conversations?user_id=u1")
	if err != nil {
		t.Fatalf("list request error = %v", err)
	}
	list := decodeBody(t, listRes)
	if n := len(list["conversations"].([]any)); n != 1 {
		t.Fatalf("listed conversations = %d, want 1", n)
	}

	getRes, err := http.Get(ts.URL + "/v1/conversations/" + id + "?user_id=u1")
	if err != nil {
		t.Fatalf("get request error = %v", err)
	}
	got := decodeBody(t, getRes)
	if got["title"] != "groceries" {
		t.Fatalf("title = %v, want groceries", got["title"])
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/conversations/"+id+"?user_id=u1", nil)
	delRes, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete request error = %v", err)
	}
	delRes.Body.Close()
	if delRes.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want %d", delRes.StatusCode, http.StatusOK)
	}

	listRes2, err := http.Get(ts.URL + "/v1/conversations?user_id=u1")
	if err != nil {
		t.Fatalf("second list request error = %v", err)
	}
	list2 := decodeBody(t, listRes2)
	if n := len(list2["conversations"].([]any)); n != 0 {
		t.Fatalf("listed conversations after delete = %d, want 0", n)
	}
}

func TestGetForeignConversationHidden(t *testing.T) {
	store := conversation.NewInMemoryStore()
	conv, _ := store.CreateConversation(context.Background(), "owner", "theirs")
	ts := newTestServer(t, store, query.Outcome{})

	res, err := http.Get(ts.URL + "/v1/conversations/" + conv.ID + "?user_id=other")
	if err != nil {
		t.Fatalf("get request error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, conversation.NewInMemoryStore(), query.Outcome{})
	for _, path := range []string{"/healthz", "/readyz"} {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want %d", path, res.StatusCode, http.StatusOK)
		}
	}
}

func TestTitleFromQuestion(t *testing.T) {
	long := strings.Repeat("spend ", 20)
	title := titleFromQuestion(long)
	if !strings.HasSuffix(title, "...") {
		t.Fatalf("title = %q, want truncated with ellipsis", title)
	}
	if len([]rune(title)) > maxTitleLen+3 {
		t.Fatalf("title length = %d, want <= %d", len([]rune(title)), maxTitleLen+3)
	}
	if got := titleFromQuestion("short"); got != "short" {
		t.Fatalf("titleFromQuestion(short) = %q, want unchanged", got)
	}
}
