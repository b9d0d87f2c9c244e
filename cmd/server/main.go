package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"veriflow/internal/platform/config"
	"veriflow/internal/platform/httpserver"
	"veriflow/internal/platform/kafka/admin"
	"veriflow/internal/platform/kafka/consumer"
	"veriflow/internal/platform/kafka/producer"
	"veriflow/internal/platform/logger"
	"veriflow/internal/platform/metrics"
	platformredis "veriflow/internal/platform/redis"
	transporthttp "veriflow/internal/transport/http"
	"veriflow/internal/verify/dedup"
	"veriflow/internal/verify/delivery"
	"veriflow/internal/verify/engine"
	"veriflow/internal/verify/handler"
	"veriflow/internal/verify/providers"
)

// embeddingDims is the scene-embedding vector size shared by the
// embedder and the index schema.
const embeddingDims = 512

// main wires dependencies and owns the process lifecycle. All
// verification logic lives under internal/verify.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Service.LogLevel)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting verification engine",
		"service", cfg.Service.Name,
		"version", cfg.Service.Version,
		"provider_mode", cfg.Providers.Mode,
	)

	if cfg.Kafka.EnsureTopics {
		topics := append(cfg.Kafka.RequestTopics(), cfg.Kafka.TopicDocumentResult, cfg.Kafka.TopicProofResult)
		if err := admin.EnsureTopics(ctx, cfg.Kafka.Brokers, topics, log); err != nil {
			fatal(log, "ensure topics", err)
		}
	}

	// Capability providers. Live mode swaps in the remote reasoning
	// client; the perception providers stay local and deterministic.
	fetcher := providers.NewHTTPImageFetcher(cfg.Providers.FetchTimeout)
	extractor := providers.NewMockExtractor()
	faces := providers.NewMockFaceComparer()
	relevance := providers.NewMockRelevanceAnalyzer()
	embedder := providers.NewMockEmbedder(embeddingDims)
	forensics := providers.NewMockForensicsAnalyzer()

	var invoices providers.InvoiceAnalyzer = providers.NewMockInvoiceAnalyzer()
	if cfg.Providers.Mode == config.ModeLive {
		live, err := providers.NewLLMInvoiceAnalyzer(providers.LLMConfig{
			APIKey:  cfg.Providers.LLMAPIKey,
			BaseURL: cfg.Providers.LLMBaseURL,
			Model:   cfg.Providers.LLMModel,
		})
		if err != nil {
			fatal(log, "initialize llm analyzer", err)
		}
		invoices = live
		log.Info("document reasoning via llm endpoint", "model", cfg.Providers.LLMModel)
	}

	checks := map[string]transporthttp.HealthCheck{}

	// Duplicate index: pgvector-backed when configured, in-memory
	// otherwise.
	var index dedup.Index = dedup.NewMemoryIndex()
	if cfg.Postgres.DSN != "" {
		pg, err := dedup.NewPostgresIndex(ctx, cfg.Postgres.DSN, embeddingDims)
		if err != nil {
			fatal(log, "initialize embedding index", err)
		}
		defer pg.Close()
		index = pg
		checks["postgres"] = pg.Health
		log.Info("embedding index backed by postgres")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		fatal(log, "initialize redis", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = redisClient.Health
		log.Info("exact-duplicate cache enabled")
	}
	deduper := dedup.New(redisClient, index, log)

	prod, err := producer.New(cfg.Kafka.Brokers, log)
	if err != nil {
		fatal(log, "initialize kafka producer", err)
	}
	defer prod.Close(cfg.Kafka.FlushTimeout)

	publisher := delivery.NewResultPublisher(prod, m, log, cfg.Kafka.PublishTimeout)
	callback := delivery.NewCallbackClient(cfg.Callback.URL, cfg.Callback.RetryCount, cfg.Callback.Timeout, m, log)

	documents := handler.NewDocumentHandler(fetcher, extractor, publisher, cfg.Kafka.TopicDocumentResult, log)
	proofs := handler.NewProofHandler(fetcher, forensics, invoices, faces, publisher, cfg.Kafka.TopicProofResult, log)
	hybrid := handler.NewHybridHandler(fetcher, relevance, embedder, deduper, invoices, callback, log)

	router := engine.NewRouter(log)
	router.Register(cfg.Kafka.TopicDocumentRequest, engine.Workflow("document", m, log, documents.Handle))
	router.Register(cfg.Kafka.TopicProofRequest, engine.Workflow("proof", m, log, proofs.Handle))
	router.Register(cfg.Kafka.TopicHybridRequest, engine.Workflow("hybrid", m, log, hybrid.Handle))

	cons, err := consumer.New(consumer.Config{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topics:  cfg.Kafka.RequestTopics(),
	}, log)
	if err != nil {
		fatal(log, "initialize kafka consumer", err)
	}

	eng := engine.New(cons, router, m, log)
	if err := eng.Start(ctx); err != nil {
		fatal(log, "start engine", err)
	}

	srv := httpserver.New(cfg.HTTP.Addr, transporthttp.NewRouter(transporthttp.Info{
		Name:    cfg.Service.Name,
		Version: cfg.Service.Version,
		Mode:    string(cfg.Providers.Mode),
	}, checks))

	go func() {
		log.Info("http listener started", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	if err := eng.Stop(shutdownCtx); err != nil {
		log.Error("engine shutdown failed", "error", err)
	}
	log.Info("shutdown complete")
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
