package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"strings"

	"comet-support/internal/config"
	"comet-support/internal/http"
	"comet-support/internal/indexer"
	"comet-support/internal/ingest"
	"comet-support/internal/llm"
	"comet-support/internal/rag"
	"comet-support/internal/service"
	"comet-support/internal/storage"
	"comet-support/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel, "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	ctx := context.Background()

	// Load the failure corpus and refresh the exact-statistics store
	records, err := ingest.LoadCSV(cfg.CSVPath)
	if err != nil {
		log.Fatalf("Failed to load failure records: %v", err)
	}
	slog.Info("Failure records loaded", "path", cfg.CSVPath, "records", len(records))

	failureRepo := storage.NewFailureRepo(db)
	if err := failureRepo.ReplaceAll(ctx, records); err != nil {
		log.Fatalf("Failed to store failure records: %v", err)
	}

	coverage := indexer.ComputeCoverageStats(records)
	slog.Info("Corpus coverage computed",
		"records", coverage.RecordsTotal,
		"with_failure_code", coverage.WithFailureCode,
		"fingerprint", coverage.CorpusFingerprint)

	// Pick the vector store backend
	var vectorStore vectorstore.VectorStore
	switch cfg.VectorStore {
	case "memory":
		vectorStore = vectorstore.NewMemoryStore()
		slog.Info("Using in-memory vector store")
	default:
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		vectorStore = qdrantStore
		slog.Info("Using Qdrant vector store", "url", cfg.QdrantURL)
	}

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// Verify the generation model is actually loaded (fail-fast)
	checker := llm.NewModelChecker(cfg.LLMBaseURL)
	available, err := checker.IsModelAvailable(ctx, cfg.LLMModelName)
	if err != nil {
		log.Fatalf("Failed to check model availability: %v", err)
	}
	if !available {
		log.Fatalf("Model %q is not available at %s", cfg.LLMModelName, cfg.LLMBaseURL)
	}
	slog.Info("Generation model available", "model", cfg.LLMModelName)

	// Build or load the vector index in the background; queries are gated
	// on readiness until it finishes.
	pipeline := indexer.NewPipeline(embedder, vectorStore, cfg.QdrantCollection, cfg.QdrantVectorSize)
	go func() {
		buildCtx := context.Background()
		slog.Info("Starting vector index build", "collection", cfg.QdrantCollection)
		if err := pipeline.BuildOrLoad(buildCtx, records); err != nil {
			slog.Error("Vector index build failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Vector index ready", "collection", cfg.QdrantCollection)
	}()

	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	engine := rag.NewEngine(embedder, vectorStore, cfg.QdrantCollection, cfg.RetrieveTopN, cfg.TopK)
	chatService := service.NewChatService(engine, failureRepo, llmClient, pipeline.Ready)
	slog.Info("Chat service initialized", "top_n", cfg.RetrieveTopN, "top_k", cfg.TopK)

	deps := &http.Deps{
		ChatService: chatService,
		VectorStore: vectorStore,
		Collection:  cfg.QdrantCollection,
		Ready:       pipeline.Ready,
		Coverage:    coverage,
	}
	router := http.NewRouter(deps)

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
