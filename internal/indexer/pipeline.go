package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"comet-support/internal/contextutil"
	"comet-support/internal/record"
	"comet-support/internal/vectorstore"
)

// EmbedBatchSize is the number of documents embedded per upstream call.
// Batching bounds peak memory and gives the build loop progress checkpoints.
const EmbedBatchSize = 100

// Embedder generates embedding vectors for texts. Defined here from the
// consumer's perspective; satisfied by llm.EmbeddingsClient.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline builds the vector index over the failure corpus and publishes
// readiness. The index is append-only while building and read-only after;
// queries must not be served until Ready reports true.
type Pipeline struct {
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	vectorSize  int
	ready       atomic.Bool
	logger      *slog.Logger
}

// NewPipeline creates a new index pipeline.
func NewPipeline(embedder Embedder, vectorStore vectorstore.VectorStore, collection string, vectorSize int) *Pipeline {
	return &Pipeline{
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		vectorSize:  vectorSize,
		logger:      slog.Default(),
	}
}

// Ready reports whether the index is built and queries may be served.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// BuildOrLoad makes the vector index available. An existing non-empty
// collection is trusted as-is and reused without rebuilding; a count
// mismatch against the current corpus is logged as a warning (a stale index
// is an accepted risk) but does not block serving. Otherwise every record is
// projected to its combined text, embedded in batches, and upserted. Any
// embedding or upsert error aborts the build with nothing marked ready; the
// caller is expected to fail startup rather than serve a partial index.
func (p *Pipeline) BuildOrLoad(ctx context.Context, records []record.Record) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := p.vectorStore.EnsureCollection(ctx, p.collection, p.vectorSize); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	count, err := p.vectorStore.Count(ctx, p.collection)
	if err != nil {
		return fmt.Errorf("failed to count indexed points: %w", err)
	}

	if count > 0 {
		if count != len(records) {
			logger.WarnContext(ctx, "persisted index size differs from corpus, serving it anyway",
				"indexed", count, "corpus", len(records))
		}
		logger.InfoContext(ctx, "reusing persisted index", "collection", p.collection, "points", count)
		p.ready.Store(true)
		return nil
	}

	logger.InfoContext(ctx, "building vector index", "collection", p.collection, "records", len(records))

	for start := 0; start < len(records); start += EmbedBatchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := start + EmbedBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		texts := make([]string, len(batch))
		for i, rec := range batch {
			texts[i] = rec.CombinedText()
		}

		embeddings, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed batch starting at %d: %w", start, err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(embeddings))
		}

		points := make([]vectorstore.Point, len(batch))
		for i, rec := range batch {
			points[i] = vectorstore.Point{
				ID:   uuid.New().String(),
				Vec:  embeddings[i],
				Meta: rec.ToPayload(),
			}
		}

		if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
			return fmt.Errorf("failed to upsert batch starting at %d: %w", start, err)
		}

		logger.InfoContext(ctx, "indexed batch", "done", end, "total", len(records))
	}

	p.ready.Store(true)
	logger.InfoContext(ctx, "vector index built", "collection", p.collection, "records", len(records))
	return nil
}
