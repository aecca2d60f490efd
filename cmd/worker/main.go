// Package main provides the entry point for the petition-service Temporal worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"

	"github.com/casewright/petition-service/internal/config"
	"github.com/casewright/petition-service/internal/database"
	"github.com/casewright/petition-service/internal/fetcher"
	"github.com/casewright/petition-service/internal/knowledge"
	"github.com/casewright/petition-service/internal/llm"
	"github.com/casewright/petition-service/internal/notify"
	"github.com/casewright/petition-service/internal/observability"
	"github.com/casewright/petition-service/internal/progress"
	"github.com/casewright/petition-service/internal/repository"
	"github.com/casewright/petition-service/internal/research"
	"github.com/casewright/petition-service/internal/temporal"
	"github.com/casewright/petition-service/internal/temporal/activities"
	"github.com/casewright/petition-service/internal/temporal/workflows"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("petition-service worker starting")

	// Shut down cleanly on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	caseRepo := repository.NewPgCaseRepository(db)
	documentRepo := repository.NewPgDocumentRepository(db)

	// Progress tracking with the in-memory fallback store.
	memoryStore := progress.NewMemoryStore(progress.MemoryStoreConfig{
		SweepInterval: cfg.Progress.SweepInterval,
		MaxEntryAge:   cfg.Progress.MaxEntryAge,
	}, logger)
	memoryStore.StartSweeper(ctx)
	tracker := progress.NewTracker(caseRepo, memoryStore, logger)

	metrics := observability.NewMetrics("petition")

	// Text generation gateway: primary provider with retries, secondary failover.
	retry := llm.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.LLM.MaxRetries
	retry.InitialDelay = cfg.LLM.RetryDelay
	generator, err := llm.NewGateway(llm.FactoryConfig{
		PrimaryProvider:   cfg.LLM.PrimaryProvider,
		SecondaryProvider: cfg.LLM.SecondaryProvider,
		Timeout:           cfg.LLM.Timeout,
		Retry:             retry,
		OpenAI: llm.OpenAIConfig{
			APIKey:  cfg.LLM.OpenAI.APIKey,
			Model:   cfg.LLM.OpenAI.Model,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
		},
		Anthropic: llm.AnthropicConfig{
			APIKey:  cfg.LLM.Anthropic.APIKey,
			Model:   cfg.LLM.Anthropic.Model,
			BaseURL: cfg.LLM.Anthropic.BaseURL,
		},
	}, logger, metrics)
	if err != nil {
		return fmt.Errorf("create generation gateway: %w", err)
	}
	logger.Info().
		Str("primary", cfg.LLM.PrimaryProvider).
		Str("secondary", cfg.LLM.SecondaryProvider).
		Msg("text generation gateway created")

	urlFetcher := fetcher.New(fetcher.Config{
		Timeout:              cfg.Fetcher.Timeout,
		MaxBodyBytes:         cfg.Fetcher.MaxBodyBytes,
		MaxChars:             cfg.Fetcher.MaxChars,
		RatePerSecond:        cfg.Fetcher.RatePerSecond,
		Burst:                cfg.Fetcher.Burst,
		UserAgent:            cfg.Fetcher.UserAgent,
		AllowPrivateNetworks: cfg.Fetcher.AllowPrivateNetworks,
	}, logger)

	corpus := knowledge.NewCorpus(knowledge.Config{
		Dir:      cfg.Knowledge.Dir,
		MaxChars: cfg.Knowledge.MaxChars,
	}, logger)

	// URL discovery is off by default; it costs one extra provider call per case.
	var contextOpts []activities.ContextActivitiesOption
	if cfg.Research.Enabled {
		discoverer := research.NewDiscoverer(generator, research.Config{
			MaxURLs: cfg.Research.MaxURLs,
		}, logger)
		contextOpts = append(contextOpts, activities.WithURLDiscoverer(discoverer))
		logger.Info().Int("max_urls", cfg.Research.MaxURLs).Msg("url discovery enabled")
	}

	// Without Kafka the publisher is a no-op.
	var publisher notify.Publisher = notify.NopPublisher{}
	if cfg.Kafka.Enabled {
		kafkaPublisher := notify.NewKafkaPublisher(notify.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, logger, metrics)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close kafka publisher")
			}
		}()
		publisher = kafkaPublisher
		logger.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Msg("kafka publisher created")
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    observability.NewTemporalLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	defer temporalClient.Close()
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	contextActivities := activities.NewContextActivities(urlFetcher, corpus, metrics, contextOpts...)
	generationActivities := activities.NewGenerationActivities(generator, metrics)
	persistenceActivities := activities.NewPersistenceActivities(caseRepo, documentRepo, tracker, metrics)
	deliveryActivities := activities.NewDeliveryActivities(publisher)

	workerConfig := temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue)
	manager, err := temporal.NewWorker(temporalClient, workerConfig, temporal.Registration{
		Workflows: []interface{}{
			workflows.PetitionWorkflow,
		},
		Activities: []interface{}{
			contextActivities,
			generationActivities,
			persistenceActivities,
			deliveryActivities,
		},
	})
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}

	logger.Info().
		Str("task_queue", cfg.Temporal.TaskQueue).
		Msg("starting temporal worker")

	if err := manager.Run(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("worker stopped via signal")
			return nil
		}
		return fmt.Errorf("worker error: %w", err)
	}

	return nil
}
