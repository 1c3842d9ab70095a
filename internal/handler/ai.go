// Package handler contains HTTP handlers for the Leading with Heart API.
//
// This file implements the AI endpoints, including the streaming coaching
// chat. The stream is newline-delimited JSON: a sequence of
// {"type":"chunk","content":...} objects, then one
// {"type":"complete",...} (or {"type":"error",...}) object.
//
// Routes handled:
//   - POST /api/coaching-stream       -> StreamCoaching
//   - POST /api/generate-email        -> GenerateEmail
//   - POST /api/analyze-conversation  -> AnalyzeConversation
//   - POST /api/ai/completion         -> Completion
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/leadwithheart/coach/internal/ai"
	"github.com/leadwithheart/coach/internal/auth"
	"github.com/leadwithheart/coach/internal/domain"
	"github.com/leadwithheart/coach/internal/service"
)

// AIHandler handles AI-backed HTTP requests.
type AIHandler struct {
	coach  service.CoachService
	logger *slog.Logger
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(coach service.CoachService, logger *slog.Logger) *AIHandler {
	return &AIHandler{
		coach:  coach,
		logger: logger,
	}
}

// RegisterRoutes registers AI routes on the provided mux.
func (h *AIHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/coaching-stream", requireUser(http.HandlerFunc(h.StreamCoaching)))
	mux.Handle("POST /api/generate-email", requireUser(http.HandlerFunc(h.GenerateEmail)))
	mux.Handle("POST /api/analyze-conversation", requireUser(http.HandlerFunc(h.AnalyzeConversation)))
	mux.Handle("POST /api/ai/completion", requireUser(http.HandlerFunc(h.Completion)))
}

// =============================================================================
// Request Types
// =============================================================================

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamRequest struct {
	Messages     []chatMessage `json:"messages"`
	SystemPrompt string        `json:"systemPrompt"`
}

type generateEmailRequest struct {
	Scenario  string `json:"scenario"`
	Tone      string `json:"tone"`
	Recipient string `json:"recipient"`
}

type analyzeRequest struct {
	RelationshipType   string          `json:"relationship_type"`
	ConversationTopic  string          `json:"conversation_topic"`
	DesiredOutcome     string          `json:"desired_outcome"`
	CommunicationStyle string          `json:"communication_style"`
	AdditionalContext  string          `json:"additional_context"`
	Scenario           string          `json:"scenario"`
	IntensityLevel     string          `json:"intensity_level"`
	Role               string          `json:"role"`
	DialogueHistory    json.RawMessage `json:"dialogue_history"`
}

type completionRequest struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

func toAIMessages(msgs []chatMessage) []ai.Message {
	out := make([]ai.Message, len(msgs))
	for i, m := range msgs {
		out[i] = ai.Message{Role: ai.Role(m.Role), Content: m.Content}
	}
	return out
}

// =============================================================================
// Streaming Chat
// =============================================================================

// streamEnvelope is one line of the NDJSON stream.
type streamEnvelope struct {
	Type         string   `json:"type"`
	Content      string   `json:"content,omitempty"`
	FullResponse string   `json:"fullResponse,omitempty"`
	ResponseType string   `json:"responseType,omitempty"`
	Insights     []string `json:"insights,omitempty"`
	ActionItems  []string `json:"actionItems,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// StreamCoaching streams a coaching reply chunk by chunk.
//
// Quota errors surface as a normal 402 before any bytes stream; errors
// mid-stream arrive as a {"type":"error"} line because the status is already
// written.
func (h *AIHandler) StreamCoaching(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req streamRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	chunks, err := h.coach.StreamChat(r.Context(), user.ID, toAIMessages(req.Messages), req.SystemPrompt)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	// NewResponseController follows Unwrap through middleware wrappers,
	// so flushing works behind the metrics and logging middleware.
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	var full strings.Builder

	for chunk := range chunks {
		if chunk.Err != nil {
			h.logger.Error("coaching stream failed", "error", chunk.Err, "user_id", user.ID)
			_ = enc.Encode(streamEnvelope{Type: "error", Error: "The coaching stream was interrupted. Please try again."})
			_ = rc.Flush()
			return
		}
		if chunk.Done {
			break
		}
		full.WriteString(chunk.Text)
		_ = enc.Encode(streamEnvelope{Type: "chunk", Content: chunk.Text})
		_ = rc.Flush()
	}

	processed, summary := h.coach.FinishChat(r.Context(), user.ID, full.String())
	_ = enc.Encode(streamEnvelope{
		Type:         "complete",
		FullResponse: processed,
		ResponseType: summary.Type,
		Insights:     summary.Insights,
		ActionItems:  summary.ActionItems,
	})
	_ = rc.Flush()
}

// =============================================================================
// Completions
// =============================================================================

// GenerateEmail produces a leadership email for the given scenario.
func (h *AIHandler) GenerateEmail(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req generateEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	text, err := h.coach.GenerateEmail(r.Context(), user.ID, req.Scenario, req.Tone, req.Recipient)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]string{"email": text})
}

// AnalyzeConversation scores a finished practice dialogue and saves the
// resulting history record.
func (h *AIHandler) AnalyzeConversation(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	transcript, err := dialogueTranscript(req.DialogueHistory)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "dialogue_history must be an array of {role, content}"))
		return
	}

	record, err := h.coach.AnalyzeConversation(r.Context(), service.AnalyzeParams{
		UserID:             user.ID,
		RelationshipType:   req.RelationshipType,
		ConversationTopic:  req.ConversationTopic,
		DesiredOutcome:     req.DesiredOutcome,
		CommunicationStyle: req.CommunicationStyle,
		AdditionalContext:  req.AdditionalContext,
		Scenario:           req.Scenario,
		IntensityLevel:     req.IntensityLevel,
		Role:               req.Role,
		DialogueHistory:    req.DialogueHistory,
		Transcript:         transcript,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, record)
}

// Completion proxies a raw chat completion.
func (h *AIHandler) Completion(w http.ResponseWriter, r *http.Request) {
	var req completionRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	text, err := h.coach.Complete(r.Context(), toAIMessages(req.Messages), req.MaxTokens, req.Temperature)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]string{"text": text})
}

// dialogueTranscript flattens a dialogue history document into the
// plain-text transcript the analysis prompt expects.
func dialogueTranscript(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var turns []chatMessage
	if err := json.Unmarshal(raw, &turns); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, turn := range turns {
		role := turn.Role
		if role == "" {
			role = "participant"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	return b.String(), nil
}
