package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/genai"

	"github.com/homewarden/homewarden/db"
	"github.com/homewarden/homewarden/internal/config"
	"github.com/homewarden/homewarden/internal/knowledge"
	"github.com/homewarden/homewarden/internal/log"
	"github.com/homewarden/homewarden/internal/observability"
	"github.com/homewarden/homewarden/internal/profile"
	"github.com/homewarden/homewarden/internal/retrieval"
	"github.com/homewarden/homewarden/internal/risk"
	"github.com/homewarden/homewarden/internal/session"
	"github.com/homewarden/homewarden/internal/workflow"
)

// partsTopK is the retrieval depth for parts lookups. Parts queries
// need more passages than general Q&A because part data is scattered
// across specification tables.
const partsTopK = 8

// embeddingDimensions matches the vector(768) column in the chunks
// schema. Gemini's embedder outputs 3072 dimensions unless truncated.
const embeddingDimensions int32 = 768

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must be wired before genkit.Init so the TracerProvider is
	// ready when flows register.
	if cfg.Tracing.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			AgentHost:   cfg.Tracing.AgentHost,
			ServiceName: cfg.Tracing.ServiceName,
			Environment: cfg.Tracing.Environment,
		})
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.addCleanup(func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return shutdown(shutdownCtx)
		})
	}

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool
	a.addCleanup(func() error {
		pool.Close()
		return nil
	})

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Knowledge = provideKnowledgeStore(pool, embedder, cfg, logger)

	modelName := cfg.FullModelName()

	var retrievalOpts []retrieval.Option
	if cfg.Retrieval.RerankEnabled {
		retrievalOpts = append(retrievalOpts, retrieval.WithReranker(retrieval.NewGenkitReranker(g, modelName)))
	}
	a.Retrieval = retrieval.NewOrchestrator(a.Knowledge, cfg.Retrieval, cfg.FallbackThreshold(), logger, retrievalOpts...)

	// Parts lookups overfetch: same pipeline, deeper top-k.
	partsRetrievalCfg := cfg.Retrieval
	partsRetrievalCfg.TopK = partsTopK
	partsRetrieval := retrieval.NewOrchestrator(a.Knowledge, partsRetrievalCfg, cfg.FallbackThreshold(), logger, retrievalOpts...)

	a.Classifier = risk.NewClassifier(risk.NewGenkitJudge(g, modelName), logger)
	a.Sessions = session.NewStore(cfg.SessionTTL, logger)

	gen := workflow.NewGenkitGenerator(g, modelName)
	a.Asker = workflow.NewAsker(a.Retrieval, gen, logger)
	a.Planner = workflow.NewPlanner(a.Retrieval, gen, logger)
	a.Troubleshooter = workflow.NewTroubleshooter(a.Retrieval, a.Classifier, gen, a.Sessions, logger)
	a.Parts = workflow.NewPartsHelper(partsRetrieval, gen, logger)

	profilePath := cfg.HouseProfilePath
	a.LoadProfile = func(ctx context.Context) (*profile.HouseProfile, error) {
		return profile.Load(ctx, profilePath)
	}

	workflow.DefineFlows(g, a.Asker, a.Planner, a.Troubleshooter, a.Parts, a.LoadProfile)

	return a, nil
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default), ollama, and openai providers.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}

	var g *genkit.Genkit

	switch provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery).
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // gemini
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the AI provider
// plugin. Each provider registers embedders differently:
//   - gemini: GoogleAIEmbedder(g, modelName)
//   - ollama: registered in provideGenkit, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default: // gemini
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideKnowledgeStore creates the pgvector-backed chunk store. Gemini
// embeddings are truncated to the schema's dimensionality.
func provideKnowledgeStore(pool *pgxpool.Pool, embedder ai.Embedder, cfg *config.Config, logger log.Logger) *knowledge.Store {
	querier := knowledge.NewPgxQuerier(pool)

	var opts []knowledge.StoreOption
	if cfg.Provider == "" || cfg.Provider == config.ProviderGemini {
		dim := embeddingDimensions
		opts = append(opts, knowledge.WithEmbedOptions(&genai.EmbedContentConfig{
			OutputDimensionality: &dim,
		}))
	}

	return knowledge.NewStore(querier, embedder, logger, opts...)
}
