package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"comet-support/internal/contextutil"
	"comet-support/internal/service"
)

// apologyMessage is streamed when generation fails after the response has
// already started; at that point an HTTP status can no longer be sent.
const apologyMessage = "I apologize, but I ran into a problem answering that. Please try again."

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ChatRequest represents the HTTP request payload for chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse represents the HTTP response payload for chat.
type ChatResponse struct {
	Reply          string   `json:"reply"`
	Classification string   `json:"classification"`
	MentionedParts []string `json:"mentioned_parts"`
	RetrievedCount int      `json:"retrieved_count"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles HTTP requests for chat. Pass ?stream=true for a
// Server-Sent Events response; the default is a single JSON reply.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	svcReq := service.ChatRequest{Message: req.Message}

	if r.URL.Query().Get("stream") == "true" {
		h.handleStreamingChat(w, r, ctx, svcReq)
		return
	}

	svcResp, err := h.chatService.ProcessChat(ctx, svcReq)
	if err != nil {
		h.handleServiceError(w, ctx, err, "Failed to process chat request")
		return
	}

	resp := ChatResponse{
		Reply:          svcResp.Reply,
		Classification: svcResp.Meta.Classification,
		MentionedParts: svcResp.Meta.MentionedParts,
		RetrievedCount: svcResp.Meta.RetrievedCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// handleStreamingChat streams the reply using Server-Sent Events: one
// "meta" event describing the request handling, then plain data events
// carrying text chunks, then a [DONE] marker.
func (h *ChatHandler) handleStreamingChat(w http.ResponseWriter, r *http.Request, ctx context.Context, svcReq service.ChatRequest) {
	logger := contextutil.LoggerFromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		h.writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	// SSE headers go out with the meta event; until then an error can
	// still get a proper status code.
	headersSent := false
	sendHeaders := func() {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		headersSent = true
	}

	err := h.chatService.StreamChat(ctx, svcReq,
		func(meta service.ChatMeta) error {
			sendHeaders()
			payload, err := json.Marshal(meta)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "event: meta\ndata: %s\n\n", payload); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		},
		func(chunk string) error {
			if _, err := fmt.Fprintf(w, "data: %s\n\n", chunk); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		})

	if err != nil {
		logger.ErrorContext(ctx, "error streaming chat", "error", err)
		if !headersSent {
			h.handleServiceError(w, ctx, err, "Failed to process chat request")
			return
		}
		_, _ = fmt.Fprintf(w, "data: %s\n\n", apologyMessage)
		_, _ = fmt.Fprintf(w, "data: [DONE]\n\n")
		flusher.Flush()
		return
	}

	_, _ = fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// handleServiceError maps service errors to HTTP status codes.
func (h *ChatHandler) handleServiceError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "service error", "error", err)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
		return
	}

	if errors.Is(err, service.ErrNotReady) {
		h.writeError(w, http.StatusServiceUnavailable, "Index is still building, try again shortly")
		return
	}

	if errors.Is(err, service.ErrInvalidInput) {
		h.writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	if errors.Is(err, service.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Resource not found")
		return
	}

	if errors.Is(err, service.ErrExternalService) {
		h.writeError(w, http.StatusBadGateway, "External service error")
		return
	}

	h.writeError(w, http.StatusInternalServerError, defaultMsg)
}

// writeError writes an error response.
func (h *ChatHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
