package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks comet-support/internal/service Generator
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService comet-support/internal/service ChatService

import (
	"context"

	"comet-support/internal/classify"
	"comet-support/internal/contextutil"
	"comet-support/internal/llm"
	"comet-support/internal/rag"
	"comet-support/internal/storage"
)

// Generator produces text completions from chat messages.
// Defined from the service layer's perspective; satisfied by llm.Client.
type Generator interface {
	// Chat returns the full reply for the given messages.
	Chat(ctx context.Context, messages []llm.Message) (string, error)
	// StreamChat streams the reply chunk by chunk via callback.
	StreamChat(ctx context.Context, messages []llm.Message, callback func(chunk string) error) error
}

// Retriever turns a query into aggregated failure-record context.
// Satisfied by rag.Engine.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (*rag.AggregationResult, error)
}

// PartStatsProvider serves exact whole-database statistics for one part.
// Satisfied by storage.FailureRepo.
type PartStatsProvider interface {
	PartStats(ctx context.Context, partNumber string) (*storage.PartStats, error)
}

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	Message string `validate:"required"`
}

// ChatMeta describes how a request was handled, reported before any
// generated text so streaming clients can render it up front.
type ChatMeta struct {
	Classification string   `json:"classification"`
	MentionedParts []string `json:"mentioned_parts"`
	RetrievedCount int      `json:"retrieved_count"`
}

// ChatResponse represents a chat response in the domain layer.
type ChatResponse struct {
	Reply string
	Meta  ChatMeta
}

// ChatService answers support questions over the failure corpus.
type ChatService interface {
	// ProcessChat answers a chat request and returns the full reply.
	ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// StreamChat answers a chat request, reporting metadata through onMeta
	// before the first chunk, then streaming the reply through onChunk.
	StreamChat(ctx context.Context, req ChatRequest, onMeta func(meta ChatMeta) error, onChunk func(chunk string) error) error
}

// chatService implements ChatService.
type chatService struct {
	retriever Retriever
	stats     PartStatsProvider
	generator Generator
	ready     func() bool
}

// NewChatService creates a new ChatService. ready gates requests while the
// vector index is still being built.
func NewChatService(retriever Retriever, stats PartStatsProvider, generator Generator, ready func() bool) ChatService {
	return &chatService{
		retriever: retriever,
		stats:     stats,
		generator: generator,
		ready:     ready,
	}
}

// ProcessChat answers a chat request with a single full reply.
func (s *chatService) ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	messages, meta, err := s.prepare(ctx, req)
	if err != nil {
		return ChatResponse{}, err
	}

	logger := contextutil.LoggerFromContext(ctx)
	reply, err := s.generator.Chat(ctx, messages)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		return ChatResponse{}, WrapError(err, "failed to get LLM response")
	}

	logger.InfoContext(ctx, "chat request processed successfully",
		"classification", meta.Classification, "retrieved_count", meta.RetrievedCount, "reply_length", len(reply))
	return ChatResponse{Reply: reply, Meta: meta}, nil
}

// StreamChat answers a chat request, streaming the reply.
func (s *chatService) StreamChat(ctx context.Context, req ChatRequest, onMeta func(meta ChatMeta) error, onChunk func(chunk string) error) error {
	messages, meta, err := s.prepare(ctx, req)
	if err != nil {
		return err
	}

	if err := onMeta(meta); err != nil {
		return WrapError(err, "meta callback failed")
	}

	logger := contextutil.LoggerFromContext(ctx)
	if err := s.generator.StreamChat(ctx, messages, onChunk); err != nil {
		logger.ErrorContext(ctx, "failed to stream LLM response", "error", err)
		return WrapError(err, "failed to stream LLM response")
	}

	logger.InfoContext(ctx, "streaming chat request processed successfully",
		"classification", meta.Classification, "retrieved_count", meta.RetrievedCount)
	return nil
}

// prepare runs the pre-generation pipeline: validation, readiness gate,
// classification, retrieval, exact statistics lookup, and prompt assembly.
func (s *chatService) prepare(ctx context.Context, req ChatRequest) ([]llm.Message, ChatMeta, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if req.Message == "" {
		logger.WarnContext(ctx, "empty message in chat request")
		return nil, ChatMeta{}, &ValidationError{
			Field:   "message",
			Message: "cannot be empty",
		}
	}

	if !s.ready() {
		logger.WarnContext(ctx, "chat request rejected, index still building")
		return nil, ChatMeta{}, ErrNotReady
	}

	kind := classify.Classify(req.Message)
	if kind == classify.Casual {
		meta := ChatMeta{Classification: kind.String(), MentionedParts: []string{}}
		return rag.CasualPrompt(req.Message), meta, nil
	}

	res, err := s.retriever.Retrieve(ctx, req.Message)
	if err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "error", err)
		return nil, ChatMeta{}, WrapError(err, "failed to retrieve context")
	}

	var dbStats []*storage.PartStats
	for _, part := range res.MentionedParts {
		ps, err := s.stats.PartStats(ctx, part)
		if err != nil {
			// Exact stats are an enrichment; the semantic context still
			// stands on its own.
			logger.WarnContext(ctx, "part stats lookup failed", "part", part, "error", err)
			continue
		}
		if ps.Total > 0 {
			dbStats = append(dbStats, ps)
		}
	}

	meta := ChatMeta{
		Classification: kind.String(),
		MentionedParts: res.MentionedParts,
		RetrievedCount: res.RetrievedCount,
	}

	if res.RetrievedCount == 0 && len(dbStats) == 0 {
		return rag.NoDataPrompt(req.Message), meta, nil
	}

	contextText := rag.FormatContext(res, dbStats)
	return rag.TechnicalPrompt(req.Message, contextText), meta, nil
}
