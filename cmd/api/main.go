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

	"github.com/audioinsight/audioinsight-back/internal/ai"
	"github.com/audioinsight/audioinsight-back/internal/analysis"
	"github.com/audioinsight/audioinsight-back/internal/archive"
	"github.com/audioinsight/audioinsight-back/internal/cache"
	"github.com/audioinsight/audioinsight-back/internal/config"
	httpserver "github.com/audioinsight/audioinsight-back/internal/http"
	"github.com/audioinsight/audioinsight-back/internal/http/handlers"
	"github.com/audioinsight/audioinsight-back/internal/normalize"
	"github.com/audioinsight/audioinsight-back/internal/queue"
	"github.com/audioinsight/audioinsight-back/internal/store"
	"github.com/audioinsight/audioinsight-back/internal/transcribe"
	"github.com/audioinsight/audioinsight-back/internal/worker"
)

func main() {
	logger := log.New(os.Stdout, "[audioinsight] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	meetingStore, err := store.NewFileStore(cfg.ResultsDir, logger)
	if err != nil {
		logger.Fatalf("failed to initialize results store: %v", err)
	}

	resultArchive, archiveCloser := setupArchive(ctx, cfg, logger)
	defer archiveCloser()

	producer, consumer, queueCloser := setupQueue(ctx, cfg, logger)
	defer queueCloser()

	speechGateway := setupTranscription(cfg, logger)

	modelRouter := ai.NewModelRouter(ai.ModelRouterConfig{
		ContentPrimary:      cfg.ModelContentPrimary,
		ContentFallback:     cfg.ModelContentFallback,
		ActionItemsPrimary:  cfg.ModelActionItemsPrimary,
		ActionItemsFallback: cfg.ModelActionItemsFallback,
		InsightsPrimary:     cfg.ModelInsightsPrimary,
		InsightsFallback:    cfg.ModelInsightsFallback,
	})
	aiClient := ai.NewOpenRouterClient(ai.OpenRouterClientConfig{
		APIKey:     cfg.OpenRouterAPIKey,
		BaseURL:    cfg.OpenRouterBaseURL,
		Timeout:    time.Duration(cfg.OpenRouterTimeoutMS) * time.Millisecond,
		MaxRetries: cfg.OpenRouterMaxRetries,
		SiteURL:    cfg.OpenRouterSiteURL,
		AppName:    cfg.OpenRouterAppName,
	})
	analysisCache := cache.NewAnalysisCache(cache.Config{
		TTL:        time.Duration(cfg.AnalysisCacheTTLSeconds) * time.Second,
		MaxEntries: cfg.AnalysisCacheMaxEntries,
	})
	engine := analysis.NewEngine(analysis.EngineDependencies{
		Router: modelRouter,
		Client: aiClient,
		Cache:  analysisCache,
		Logger: logger,
	})
	coordinator := analysis.NewCoordinator(engine, logger)

	api := handlers.NewAPI(handlers.APIDependencies{
		Store:      meetingStore,
		Producer:   producer,
		Normalizer: normalize.New(logger),
		Inspector:  meetingStore,
		UploadsDir: cfg.UploadsDir,
		Logger:     logger,
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
		processor := worker.NewProcessor(worker.ProcessorDependencies{
			Consumer:    consumer,
			Store:       meetingStore,
			Transcriber: speechGateway,
			Analyzer:    coordinator,
			Archive:     resultArchive,
			UploadsDir:  cfg.UploadsDir,
			Concurrency: cfg.WorkerConcurrency,
			Logger:      logger,
		})
		go processor.Start(ctx)
		logger.Printf("worker pool started concurrency=%d", cfg.WorkerConcurrency)
	} else {
		logger.Printf("worker disabled by configuration")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
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

func setupArchive(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (worker.Archiver, func()) {
	if cfg.DatabaseURL == "" {
		logger.Printf("DATABASE_URL not configured, results archive disabled")
		return nil, func() {}
	}

	pgArchive, err := archive.NewPostgresArchive(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Printf("failed to initialize postgres archive, continuing without it: %v", err)
		return nil, func() {}
	}
	logger.Printf("postgres results archive initialized")
	return pgArchive, func() {
		pgArchive.Close()
	}
}

func setupQueue(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (queue.Producer, queue.Consumer, func()) {
	if cfg.RedisAddr == "" {
		logger.Printf("REDIS_ADDR not configured, using local queue fallback")
		local := queue.NewLocalQueue(128, 2, logger)
		return local, local, func() {}
	}

	streams, err := queue.NewStreamsQueue(ctx, queue.StreamsConfig{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		Stream:      cfg.RedisStream,
		DLQStream:   cfg.RedisDLQ,
		Group:       cfg.RedisGroup,
		Consumer:    cfg.RedisConsumer,
		MaxAttempts: 2,
	})
	if err != nil {
		logger.Printf("failed to initialize redis streams queue, fallback to local: %v", err)
		local := queue.NewLocalQueue(128, 2, logger)
		return local, local, func() {}
	}

	logger.Printf("redis streams queue initialized")
	return streams, streams, func() {
		_ = streams.Close()
	}
}

func setupTranscription(cfg config.Config, logger *log.Logger) *transcribe.Gateway {
	if cfg.SpeechAPIKey == "" {
		logger.Printf("SPEECH_API_KEY not configured, transcription will use deterministic fallbacks")
		return transcribe.NewGateway(nil, logger)
	}

	client := transcribe.NewSpeechClient(transcribe.SpeechClientConfig{
		APIKey:   cfg.SpeechAPIKey,
		BaseURL:  cfg.SpeechBaseURL,
		Timeout:  time.Duration(cfg.SpeechTimeoutMS) * time.Millisecond,
		Language: cfg.SpeechLanguage,
	})
	return transcribe.NewGateway(client, logger)
}
