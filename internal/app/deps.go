package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go/v3"

	"legal-docs/internal/config"
	"legal-docs/internal/document"
	"legal-docs/internal/embeddings"
	"legal-docs/internal/index"
	"legal-docs/internal/llm"
	"legal-docs/internal/logger"
	"legal-docs/internal/session"
	"legal-docs/internal/tasks"
)

// Deps bundles the runtime dependencies of the web service.
type Deps struct {
	Config    config.Config
	Log       *slog.Logger
	Gateway   llm.Gateway
	Tasks     *tasks.Suite
	Processor *document.Processor
	Sessions  session.Store
	Index     *index.Index // nil when INDEX_DIR is unset
}

// Build loads env, config, and shared components.
func Build(ctx context.Context) (Deps, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return Deps{}, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	gw, err := buildGateway(ctx, cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	sessions, err := buildSessions(ctx, cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize sessions: %w", err)
	}
	ix, err := buildIndex(ctx, cfg, log)
	if err != nil {
		_ = sessions.Close()
		return Deps{}, fmt.Errorf("failed to initialize index: %w", err)
	}

	return Deps{
		Config:    cfg,
		Log:       log,
		Gateway:   gw,
		Tasks:     tasks.NewSuite(gw, log),
		Processor: document.NewProcessor(log),
		Sessions:  sessions,
		Index:     ix,
	}, nil
}

// Close releases connections held by Deps.
func (d Deps) Close() error {
	if d.Sessions == nil {
		return nil
	}
	return d.Sessions.Close()
}

func buildGateway(ctx context.Context, cfg config.Config, log *slog.Logger) (llm.Gateway, error) {
	gw, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.APIKey(),
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
	})
	if err != nil {
		return nil, err
	}
	log.Info("using LLM gateway", "provider", cfg.LLMProvider, "model", cfg.LLMModel)
	return gw, nil
}

func buildSessions(ctx context.Context, cfg config.Config, log *slog.Logger) (session.Store, error) {
	ttl := time.Duration(cfg.SessionTTL) * time.Second
	switch cfg.SessionProvider {
	case config.SessionRedis:
		st, err := session.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, ttl)
		if err != nil {
			return nil, err
		}
		log.Info("using Redis session store", "addr", cfg.RedisAddr, "ttl", ttl)
		return st, nil
	case config.SessionMemory:
		log.Info("using in-memory session store", "ttl", ttl)
		return session.NewMemoryStore(ttl), nil
	default:
		return nil, fmt.Errorf("invalid SESSION_PROVIDER: %s (valid options: memory, redis)", cfg.SessionProvider)
	}
}

func buildEmbedder(ctx context.Context, cfg config.Config, log *slog.Logger) (embeddings.Embedder, error) {
	switch cfg.LLMProvider {
	case llm.ProviderOpenAI:
		e, err := embeddings.NewOpenAIEmbedder(cfg.OpenAIKey, openai.EmbeddingModel(cfg.EmbeddingModel), cfg.LLMBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI embedder: %w", err)
		}
		log.Info("using OpenAI embedder", "model", cfg.EmbeddingModel)
		return e, nil
	case llm.ProviderGemini:
		e, err := embeddings.NewGeminiEmbedder(ctx, cfg.GeminiKey, cfg.EmbeddingModel, cfg.LLMBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini embedder: %w", err)
		}
		log.Info("using Gemini embedder", "model", cfg.EmbeddingModel)
		return e, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: gemini, openai)", cfg.LLMProvider)
	}
}

func buildIndex(ctx context.Context, cfg config.Config, log *slog.Logger) (*index.Index, error) {
	if !cfg.IndexEnabled() {
		log.Info("vector index disabled")
		return nil, nil
	}
	embedder, err := buildEmbedder(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return index.Open(cfg.IndexDir, cfg.IndexCollection, embedder, log)
}
