package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"leadbot/internal/config"
	"leadbot/internal/handler"
	"leadbot/internal/logging"
	"leadbot/internal/metrics"
	"leadbot/internal/repository"
	"leadbot/internal/service"
)

const shutdownTimeout = 15 * time.Second

func serveCMD() *cobra.Command {
	var addr string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if addr == "" {
				addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			}
			return run(cmd.Context(), cfg, addr)
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (default SERVER_HOST:SERVER_PORT)")

	return serve
}

func run(parent context.Context, cfg *config.Config, addr string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Setup(cfg.Logging)
	gin.SetMode(cfg.Server.GinMode)

	log.Info().Str("version", Version).Str("build_time", BuildTime).Str("git_commit", GitCommit).
		Msg("starting leadbot")

	ai := service.NewOpenAIClient(&cfg.OpenAI)
	if !ai.IsEnabled() {
		return errors.New("OPENAI_API_KEY is required to generate replies")
	}

	var exporter *metrics.Exporter
	if cfg.Metrics.Enabled {
		exporter = metrics.NewExporter(metrics.DefaultConfig())
	}

	// Initialize database connection
	repo, err := repository.NewPostgresRepository(ctx, cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections, cfg.PostgreSQL.MaxIdleConnections)
	if err != nil {
		return err
	}
	defer repo.Close()
	log.Info().Msg("connected to PostgreSQL")

	// Redis backs preferences and caches when configured
	var (
		prefs service.PreferenceStore = service.NewMemoryPreferenceStore()
		cache service.Cache
	)
	if cfg.Redis.Enabled() {
		client, err := repository.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		prefs = repository.NewRedisPreferenceStore(client, cfg.Pipeline.PreferenceTTL)
		cache = repository.NewRedisCache(client)
		log.Info().Msg("connected to Redis")
	} else {
		log.Warn().Msg("Redis not configured, preferences are kept in process memory")
	}

	embedder := service.NewCachedEmbedder(ai, cache, exporter)

	// Search backend
	backend := cfg.Search.Backend
	var executor service.SearchExecutor
	switch backend {
	case "rentcast":
		if cfg.Search.RentCastAPIKey == "" {
			return errors.New("RENTCAST_API_KEY is required for the rentcast search backend")
		}
		executor = service.NewRentCastSearchExecutor(&cfg.Search)
	default:
		backend = "listings"
		executor = service.NewListingSearchExecutor(repo, cfg.Search.CandidateLimit)
	}
	if cache != nil {
		executor = service.NewCachedSearchExecutor(executor, backend, cache, cfg.Search.CacheTTL, exporter)
	}
	searchService := service.NewSearchService(executor, service.NewRanker(0, 0), backend, exporter)

	// Turn pipeline
	persistence := service.NewPersistenceSink(repo, embedder)
	crm := service.NewCRMService(repo)
	orchestrator := service.NewStreamOrchestrator(ai, searchService, persistence, crm, cfg.Pipeline, exporter)
	contexts := service.NewSemanticContextBuilder(embedder, repo, cache, exporter,
		cfg.Pipeline.SimilarityMinScore, cfg.Pipeline.SimilarityLimit)
	chat := service.NewChatService(service.NewAIExtractor(ai, cfg.Pipeline.HistoryWindow), prefs, contexts, orchestrator, cfg.Pipeline)

	handlers := handler.Handlers{
		Chat:     handler.NewChatHandler(chat),
		Leads:    handler.NewLeadHandler(crm),
		Feedback: handler.NewFeedbackHandler(persistence),
		Search:   handler.NewSearchHandler(searchService),
		Build:    handler.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit},
	}
	if exporter != nil {
		handlers.Metrics = exporter
	}
	router := handler.NewRouter(cfg.Server, cfg.Metrics.Path, handlers)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("search_backend", backend).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
