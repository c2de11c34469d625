package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gbellini/ledgerchat/internal/config"
	"github.com/gbellini/ledgerchat/internal/conversation"
	"github.com/gbellini/ledgerchat/internal/observability"
	"github.com/gbellini/ledgerchat/internal/query"
)

// maxTitleLen bounds auto-generated conversation titles.
const maxTitleLen = 50

// Orchestrator answers one conversational question.
type Orchestrator interface {
	Process(ctx context.Context, question, userID, conversationID string) query.Outcome
}

type Server struct {
	cfg          config.Config
	store        conversation.Store
	orchestrator Orchestrator
	metrics      *observability.Metrics
}

func New(cfg config.Config, store conversation.Store, orchestrator Orchestrator, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:          cfg,
		store:        store,
		orchestrator: orchestrator,
		metrics:      metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/query", s.handleQuery)
	r.Post("/v1/conversations", s.handleCreateConversation)
	r.Get("/v1/conversations", s.handleListConversations)
	r.Get("/v1/conversations/{id}", s.handleGetConversation)
	r.Get("/v1/conversations/{id}/messages", s.handleListMessages)
	r.Delete("/v1/conversations/{id}", s.handleDeleteConversation)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type queryRequest struct {
	Question       string `json:"question"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
}

type queryResponse struct {
	MessageID      string          `json:"message_id"`
	Response       string          `json:"response"`
	ConversationID string          `json:"conversation_id"`
	AgentUsed      query.Agent     `json:"agent_used"`
	Success        bool            `json:"success"`
	Classification *query.Decision `json:"classification,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
}

// handleQuery runs one conversational question end to end: it resolves or
// creates the conversation, persists the user's message, invokes the
// orchestrator, and persists the assistant's reply. Failed outcomes are
// persisted too so history stays complete, and are reported with
// success=false rather than a transport error.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.Question == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "question is required")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	conv, ok := s.resolveConversation(r.Context(), w, req)
	if !ok {
		return
	}

	if _, err := s.store.AppendMessage(r.Context(), conversation.Message{
		ConversationID: conv.ID,
		Role:           conversation.RoleUser,
		Content:        req.Question,
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	s.metrics.ObserveMessage(conversation.RoleUser)

	out := s.orchestrator.Process(r.Context(), req.Question, req.UserID, conv.ID)

	content := out.Answer
	if !out.Success {
		content = out.Error
	}
	meta := map[string]any{
		"agent":   string(out.Agent),
		"success": out.Success,
	}
	if out.Classification != nil {
		meta["classification"] = out.Classification
	}
	if out.SQL != "" {
		meta["sql"] = out.SQL
	}
	if out.Metadata != nil {
		meta["agent_metadata"] = out.Metadata
	}
	stored, err := s.store.AppendMessage(r.Context(), conversation.Message{
		ConversationID: conv.ID,
		Role:           conversation.RoleAssistant,
		Content:        content,
		Metadata:       meta,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	s.metrics.ObserveMessage(conversation.RoleAssistant)

	respondJSON(w, http.StatusOK, queryResponse{
		MessageID:      stored.ID,
		Response:       content,
		ConversationID: conv.ID,
		AgentUsed:      out.Agent,
		Success:        out.Success,
		Classification: out.Classification,
		Metadata:       out.Metadata,
	})
}

// resolveConversation loads and authorizes the named conversation, or creates
// a fresh one titled after the question when no id was supplied.
func (s *Server) resolveConversation(ctx context.Context, w http.ResponseWriter, req queryRequest) (conversation.Conversation, bool) {
	id := strings.TrimSpace(req.ConversationID)
	if id == "" {
		conv, err := s.store.CreateConversation(ctx, req.UserID, titleFromQuestion(req.Question))
		if err != nil {
			respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
			return conversation.Conversation{}, false
		}
		s.metrics.ObserveConversationActive(1)
		return conv, true
	}

	conv, err := s.store.Conversation(ctx, id)
	if errors.Is(err, conversation.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "conversation not found")
		return conversation.Conversation{}, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return conversation.Conversation{}, false
	}
	if conv.UserID != req.UserID {
		// Do not reveal that the conversation exists for another user.
		respondError(w, http.StatusNotFound, "not_found", "conversation not found")
		return conversation.Conversation{}, false
	}
	return conv, true
}

type createConversationRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}
	conv, err := s.store.CreateConversation(r.Context(), strings.TrimSpace(req.UserID), strings.TrimSpace(req.Title))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	s.metrics.ObserveConversationActive(1)
	respondJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}
	limit := intQueryParam(r, "limit", 20)
	convs, err := s.store.UserConversations(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.authorizedConversation(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, conv)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.authorizedConversation(w, r)
	if !ok {
		return
	}
	limit := intQueryParam(r, "limit", 50)
	msgs, err := s.store.Messages(r.Context(), conv.ID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.authorizedConversation(w, r)
	if !ok {
		return
	}
	if err := s.store.Deactivate(r.Context(), conv.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	s.metrics.ObserveConversationActive(-1)
	respondJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func (s *Server) authorizedConversation(w http.ResponseWriter, r *http.Request) (conversation.Conversation, bool) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return conversation.Conversation{}, false
	}
	conv, err := s.store.Conversation(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, conversation.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "conversation not found")
		return conversation.Conversation{}, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return conversation.Conversation{}, false
	}
	if conv.UserID != userID {
		respondError(w, http.StatusNotFound, "not_found", "conversation not found")
		return conversation.Conversation{}, false
	}
	return conv, true
}

func titleFromQuestion(question string) string {
	title := strings.TrimSpace(question)
	if runes := []rune(title); len(runes) > maxTitleLen {
		title = strings.TrimSpace(string(runes[:maxTitleLen])) + "..."
	}
	return title
}

func intQueryParam(r *http.Request, key string, fallback int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
