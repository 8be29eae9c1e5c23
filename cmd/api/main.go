package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iago/content-orchestrator-back/internal/ai"
	"github.com/iago/content-orchestrator-back/internal/cache"
	"github.com/iago/content-orchestrator-back/internal/config"
	httpserver "github.com/iago/content-orchestrator-back/internal/http"
	"github.com/iago/content-orchestrator-back/internal/http/handlers"
	"github.com/iago/content-orchestrator-back/internal/orchestrator"
	"github.com/iago/content-orchestrator-back/internal/queue"
	"github.com/iago/content-orchestrator-back/internal/repository"
	"github.com/iago/content-orchestrator-back/internal/service"
	"github.com/iago/content-orchestrator-back/internal/wordpress"
	"github.com/iago/content-orchestrator-back/internal/worker"
)

func main() {
	logger := log.New(os.Stdout, "[content-orchestrator] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	if err := config.LoadYAMLFile(os.Getenv("CONFIG_FILE")); err != nil {
		logger.Printf("failed loading config file: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, storeCloser := setupRepository(ctx, cfg, logger)
	defer storeCloser()

	producer, consumer, queueCloser := setupQueue(ctx, cfg, logger)
	defer queueCloser()

	modelRouter := ai.NewModelRouter(ai.ModelRouterConfig{
		ArticleFallback:  cfg.ModelArticleFallback,
		ResearchPrimary:  cfg.ModelResearchPrimary,
		ResearchFallback: cfg.ModelResearchFallback,
	})
	aiClient := ai.NewChain(
		ai.NewOpenAIClient(ai.OpenAIClientConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Timeout:    time.Duration(cfg.OpenAITimeoutMS) * time.Millisecond,
			MaxRetries: cfg.OpenAIMaxRetries,
		}),
		ai.NewOpenRouterClient(ai.OpenRouterClientConfig{
			APIKey:     cfg.OpenRouterAPIKey,
			BaseURL:    cfg.OpenRouterBaseURL,
			Timeout:    time.Duration(cfg.OpenRouterTimeoutMS) * time.Millisecond,
			MaxRetries: cfg.OpenRouterMaxRetries,
			SiteURL:    cfg.OpenRouterSiteURL,
			AppName:    cfg.OpenRouterAppName,
		}),
	)
	if !aiClient.Available() {
		logger.Printf("no model provider configured, articles and research use local drafts")
	}

	listCache := cache.New(cache.Config{
		TTL:        time.Duration(cfg.ListCacheTTLSeconds) * time.Second,
		MaxEntries: cfg.ListCacheMaxEntries,
	})
	topicsService := service.NewTopicsService(store, listCache, logger)
	instructionsService := service.NewInstructionsService(store)
	jobsService := service.NewGenerationJobsService(store, producer, logger)
	researchService := service.NewResearchService(service.ResearchDependencies{
		Router:     modelRouter,
		Client:     aiClient,
		Topics:     topicsService,
		PromptsDir: cfg.PromptsDir,
		Logger:     logger,
	})

	sealer, err := setupSealer(cfg, logger)
	if err != nil {
		logger.Fatalf("credential sealer: %v", err)
	}
	proxyService := service.NewContentProxyService(
		store,
		sealer,
		wordpress.NewClient(wordpress.ClientConfig{
			Timeout: time.Duration(cfg.WordPressTimeoutMS) * time.Millisecond,
		}),
		logger,
	)

	registry := orchestrator.NewRegistry(orchestrator.RegistryConfig{
		Submitter:       jobsService,
		Sessions:        jobsService,
		Instructions:    instructionsService,
		Lists:           topicsService,
		PollInterval:    time.Duration(cfg.SessionPollMS) * time.Millisecond,
		BillingURL:      cfg.BillingURL,
		NotificationCap: cfg.NotificationCap,
		IdleTTL:         time.Duration(cfg.WorkspaceIdleMin) * time.Minute,
		Logger:          logger,
	})
	defer registry.Close()

	api := handlers.NewAPI(handlers.Dependencies{
		Topics:           topicsService,
		Research:         researchService,
		Instructions:     instructionsService,
		Articles:         service.NewArticlesService(store, listCache),
		Proxy:            proxyService,
		Registry:         registry,
		DefaultBrandName: cfg.DefaultBrandName,
		Logger:           logger,
	})

	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      cfg.AuthToken,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	if cfg.WorkerEnabled {
		writer := service.NewArticleWriter(service.ArticleWriterDependencies{
			Router:     modelRouter,
			Client:     aiClient,
			PromptsDir: cfg.PromptsDir,
			Logger:     logger,
		})
		processor := worker.NewProcessor(worker.ProcessorDependencies{
			Consumer:    consumer,
			Sessions:    store,
			Articles:    store,
			Writer:      writer,
			Topics:      topicsService,
			Concurrency: cfg.WorkerConcurrency,
			Logger:      logger,
		})
		go processor.Start(ctx)
		logger.Printf("worker enabled and started concurrency=%d", cfg.WorkerConcurrency)
	} else {
		logger.Printf("worker disabled by configuration")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Printf("api listening on :%s", cfg.Port)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

func setupRepository(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (repository.Store, func()) {
	if cfg.DatabaseURL == "" {
		logger.Printf("DATABASE_URL not configured, using in-memory repository")
		return repository.NewMemoryStore(), func() {}
	}

	pgStore, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Printf("failed to initialize postgres repository, fallback to memory: %v", err)
		return repository.NewMemoryStore(), func() {}
	}
	if err := pgStore.Migrate(ctx); err != nil {
		logger.Printf("postgres migration failed, fallback to memory: %v", err)
		pgStore.Close()
		return repository.NewMemoryStore(), func() {}
	}
	logger.Printf("postgres repository initialized")
	return pgStore, func() {
		pgStore.Close()
	}
}

// setupSealer loads the age identity for integration credentials. Without
// one an ephemeral identity is generated, so stored credentials only
// survive until restart.
func setupSealer(cfg config.Config, logger *log.Logger) (*wordpress.Sealer, error) {
	identity := cfg.CredentialsIdentity
	if identity == "" {
		generated, err := wordpress.GenerateIdentity()
		if err != nil {
			return nil, err
		}
		identity = generated
		logger.Printf("CREDENTIALS_AGE_IDENTITY not configured, using an ephemeral identity")
	}
	sealer, err := wordpress.NewSealer(identity)
	if err != nil {
		return nil, err
	}
	logger.Printf("credential sealer ready recipient=%s", sealer.Recipient())
	return sealer, nil
}

func setupQueue(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (queue.Producer, queue.Consumer, func()) {
	var (
		producer queue.Producer
		consumer queue.Consumer
		closer   = func() {}
	)

	if cfg.RedisAddr == "" {
		logger.Printf("REDIS_ADDR not configured, using local queue fallback")
		local := queue.NewLocalQueue(512, 3, logger)
		producer = local
		consumer = local
	} else {
		streams, err := queue.NewStreamsQueue(ctx, queue.StreamsConfig{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			Stream:      cfg.RedisStream,
			DLQStream:   cfg.RedisDLQ,
			Group:       cfg.RedisGroup,
			Consumer:    cfg.RedisConsumer,
			MaxAttempts: 3,
			MaxLen:      10000,
			Logger:      logger,
		})
		if err != nil {
			logger.Printf("failed to initialize redis streams queue, fallback to local: %v", err)
			local := queue.NewLocalQueue(512, 3, logger)
			producer = local
			consumer = local
		} else {
			logger.Printf("redis streams queue initialized stream=%s group=%s", cfg.RedisStream, cfg.RedisGroup)
			producer = streams
			consumer = streams
			closer = func() {
				_ = streams.Close()
			}
		}
	}

	return producer, consumer, closer
}
