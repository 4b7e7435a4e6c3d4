package rag

import (
	"context"
	"fmt"
	"strings"

	"comet-support/internal/classify"
	"comet-support/internal/contextutil"
	"comet-support/internal/record"
	"comet-support/internal/vectorstore"
)

// Embedder generates embedding vectors for texts. Defined here from the
// consumer's perspective; satisfied by llm.EmbeddingsClient.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Engine retrieves candidate failure records by semantic similarity and
// reduces them into an AggregationResult. The vector store and collection
// are read-only shared state; Retrieve is safe for concurrent use.
type Engine struct {
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	topN        int
	topK        int
}

// NewEngine creates a retrieval engine. topN is the candidate budget after
// filtering; topK caps the ranked lists in the aggregation output.
func NewEngine(embedder Embedder, vectorStore vectorstore.VectorStore, collection string, topN, topK int) *Engine {
	return &Engine{
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		topN:        topN,
		topK:        topK,
	}
}

// Retrieve embeds the query, searches the index with an overfetch factor,
// filters by mentioned part numbers when present, and aggregates the
// surviving candidates. Zero k-NN candidates yield an empty result with
// RetrievedCount 0, not an error; only the embedding and search calls can
// fail.
func (e *Engine) Retrieve(ctx context.Context, query string) (*AggregationResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	parts := classify.ExtractPartNumbers(query)

	// Overfetch so the part filter can discard most candidates and still
	// leave a usable set.
	k := 2 * e.topN
	if len(parts) > 0 {
		k = 3 * e.topN
	}

	embeddings, err := e.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}

	results, err := e.vectorStore.Search(ctx, e.collection, embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	logger.InfoContext(ctx, "vector search completed", "k", k, "results", len(results), "mentioned_parts", parts)

	if len(results) == 0 {
		res := Aggregate(nil, e.topK)
		res.QueryContext = query
		res.MentionedParts = mentioned(parts)
		return res, nil
	}

	candidates := make([]record.Record, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, record.FromPayload(r.Meta))
	}

	if len(parts) > 0 {
		filtered := filterByParts(candidates, parts)
		if len(filtered) > 0 {
			candidates = truncate(filtered, e.topN)
		} else {
			// No exact part match in the candidates; fall back to the
			// unfiltered set rather than failing the query.
			logger.InfoContext(ctx, "part filter matched nothing, falling back to unfiltered candidates")
			candidates = truncate(candidates, e.topN)
		}
	} else {
		candidates = truncate(candidates, e.topN)
	}

	res := Aggregate(candidates, e.topK)
	res.QueryContext = query
	res.MentionedParts = mentioned(parts)

	logger.InfoContext(ctx, "retrieval completed", "retrieved_count", res.RetrievedCount)
	return res, nil
}

func filterByParts(candidates []record.Record, parts []string) []record.Record {
	filtered := make([]record.Record, 0, len(candidates))
	for _, c := range candidates {
		for _, p := range parts {
			if strings.Contains(c.PartNumber, p) {
				filtered = append(filtered, c)
				break
			}
		}
	}
	return filtered
}

func truncate(candidates []record.Record, n int) []record.Record {
	if len(candidates) > n {
		return candidates[:n]
	}
	return candidates
}

func mentioned(parts []string) []string {
	if parts == nil {
		return []string{}
	}
	return parts
}
