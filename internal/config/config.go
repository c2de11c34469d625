package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config contains all runtime settings for the expense chat service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	DatabaseURL string

	LLMProvider string
	GroqAPIKey  string
	GroqBaseURL string

	ClassifierModel string
	ValidatorModel  string
	SQLModel        string
	ExplainModel    string
	AnalysisModel   string

	WorkerPoolSize   int
	HistoryLimit     int
	ExplainBaseDelay time.Duration
	ExplainMaxDelay  time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "ledgerchat"),
		DatabaseURL:      envTrimSpace("DATABASE_URL"),
		LLMProvider:      envOrDefault("LLM_PROVIDER", "auto"),
		GroqAPIKey:       envTrimSpace("GROQ_API_KEY"),
		// Groq exposes an OpenAI-compatible surface, so the client only
		// needs the base URL swapped.
		GroqBaseURL:      envOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		ClassifierModel:  envOrDefault("MODEL_CLASSIFIER", "llama-3.1-8b-instant"),
		ValidatorModel:   envOrDefault("MODEL_VALIDATOR", "llama-3.1-8b-instant"),
		SQLModel:         envOrDefault("MODEL_SQL", "llama-3.1-8b-instant"),
		ExplainModel:     envOrDefault("MODEL_EXPLAIN", "llama-3.1-8b-instant"),
		AnalysisModel:    envOrDefault("MODEL_ANALYSIS", "meta-llama/llama-4-maverick-17b-128e-instruct"),
		ShutdownTimeout:  15 * time.Second,
		WorkerPoolSize:   16,
		HistoryLimit:     50,
		ExplainBaseDelay: 500 * time.Millisecond,
		ExplainMaxDelay:  8 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.WorkerPoolSize, err = intFromEnv("APP_WORKER_POOL_SIZE", cfg.WorkerPoolSize)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryLimit, err = intFromEnv("APP_HISTORY_LIMIT", cfg.HistoryLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.ExplainBaseDelay, err = durationFromEnv("APP_EXPLAIN_BASE_DELAY", cfg.ExplainBaseDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.ExplainMaxDelay, err = durationFromEnv("APP_EXPLAIN_MAX_DELAY", cfg.ExplainMaxDelay)
	if err != nil {
		return Config{}, err
	}

	if cfg.WorkerPoolSize <= 0 {
		return Config{}, fmt.Errorf("APP_WORKER_POOL_SIZE must be positive")
	}
	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("APP_HISTORY_LIMIT must be positive")
	}
	if cfg.ExplainBaseDelay <= 0 {
		return Config{}, fmt.Errorf("APP_EXPLAIN_BASE_DELAY must be positive")
	}
	if cfg.ExplainMaxDelay < cfg.ExplainBaseDelay {
		return Config{}, fmt.Errorf("APP_EXPLAIN_MAX_DELAY must be >= APP_EXPLAIN_BASE_DELAY")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimSpace(key string) string {
	return trimSpace(os.Getenv(key))
}

func trimSpace(v string) string {
	for len(v) > 0 && (v[0] == ' ' || v[0] == '\n' || v[0] == '\t' || v[0] == '\r') {
		v = v[1:]
	}
	for len(v) > 0 {
		c := v[len(v)-1]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			v = v[:len(v)-1]
			continue
		}
		break
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
