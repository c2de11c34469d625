package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gbellini/ledgerchat/internal/config"
	"github.com/gbellini/ledgerchat/internal/conversation"
	"github.com/gbellini/ledgerchat/internal/expense"
	"github.com/gbellini/ledgerchat/internal/httpapi"
	"github.com/gbellini/ledgerchat/internal/llm"
	"github.com/gbellini/ledgerchat/internal/observability"
	"github.com/gbellini/ledgerchat/internal/query"
	"github.com/gbellini/ledgerchat/internal/workpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := conversation.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("conversation store init failed: %v", err)
	}
	defer store.Close()

	executor, err := expense.NewExecutor(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("expense executor init failed: %v", err)
	}
	defer executor.Close()

	client, err := llm.NewClient(llm.Config{
		Mode:    cfg.LLMProvider,
		APIKey:  cfg.GroqAPIKey,
		BaseURL: cfg.GroqBaseURL,
	})
	if err != nil {
		log.Fatalf("llm client init failed: %v", err)
	}
	if cfg.GroqAPIKey == "" {
		log.Printf("llm provider: mock (no GROQ_API_KEY set)")
	} else {
		log.Printf("llm provider: %s via %s", cfg.LLMProvider, cfg.GroqBaseURL)
	}

	pool := workpool.New(cfg.WorkerPoolSize)
	defer pool.Close()

	explainer := query.NewExplainer(client, cfg.ExplainModel, cfg.ExplainBaseDelay, cfg.ExplainMaxDelay, metrics)
	classifier := query.NewClassifier(client, cfg.ClassifierModel, metrics)
	retrieval := query.NewRetrievalAgent(client, executor, explainer, cfg.ValidatorModel, cfg.SQLModel, metrics)
	analysis := query.NewAnalysisAgent(client, executor, cfg.AnalysisModel, metrics)
	orchestrator := query.NewOrchestrator(store, classifier, retrieval, analysis, pool, cfg.HistoryLimit, metrics)

	api := httpapi.New(cfg, store, orchestrator, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
