package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/leadwithheart/coach/internal/ai"
	"github.com/leadwithheart/coach/internal/domain"
	"github.com/leadwithheart/coach/internal/metrics"
	"github.com/leadwithheart/coach/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ChatSummary is the post-processed wrap-up sent after a streamed response.
type ChatSummary struct {
	Type        string   `json:"type"` // "question", "reflection", or "advice"
	Insights    []string `json:"insights"`
	ActionItems []string `json:"actionItems"`
}

// CoachService runs the AI-backed features behind the free-tier gateway.
// Every method checks the caller's allowance first and bumps the matching
// usage counter after a successful AI call.
type CoachService interface {
	// StreamChat starts a streaming coaching reply. The extra prompt, if
	// any, is appended to the standing coaching prompt.
	// Returns domain.EPAYMENT when a FREE user is over today's limit.
	StreamChat(ctx context.Context, userID uuid.UUID, messages []ai.Message, extraPrompt string) (<-chan ai.StreamChunk, error)

	// FinishChat records a completed streamed response: post-processes the
	// full text and increments the coaching counter.
	FinishChat(ctx context.Context, userID uuid.UUID, fullResponse string) (string, *ChatSummary)

	// GenerateEmail produces a leadership email for the scenario and tone.
	GenerateEmail(ctx context.Context, userID uuid.UUID, scenario, tone, recipient string) (string, error)

	// AnalyzeConversation scores a practice dialogue and persists the
	// resulting history record.
	AnalyzeConversation(ctx context.Context, params AnalyzeParams) (*domain.DifficultConversation, error)

	// Complete proxies a raw chat completion for authenticated clients.
	// Unmetered; used by the frontend for small utility prompts.
	Complete(ctx context.Context, messages []ai.Message, maxTokens int, temperature float64) (string, error)
}

// AnalyzeParams describes a finished practice run to analyze.
type AnalyzeParams struct {
	UserID             uuid.UUID
	RelationshipType   string
	ConversationTopic  string
	DesiredOutcome     string
	CommunicationStyle string
	AdditionalContext  string
	Scenario           string
	IntensityLevel     string
	Role               string
	DialogueHistory    json.RawMessage
	Transcript         string // Plain-text dialogue for the model
}

// =============================================================================
// Implementation
// =============================================================================

type coachService struct {
	provider ai.Provider
	usage    UsageService
	queries  *repository.Queries
	prompts  Prompts
	logger   *slog.Logger
}

// Prompts holds the standing system prompts, injected so the service stays
// provider-agnostic.
type Prompts struct {
	Coaching string
	Email    string
	Analysis string
}

func NewCoachService(provider ai.Provider, usage UsageService, queries *repository.Queries, prompts Prompts, logger *slog.Logger) CoachService {
	return &coachService{
		provider: provider,
		usage:    usage,
		queries:  queries,
		prompts:  prompts,
		logger:   logger,
	}
}

func (s *coachService) StreamChat(ctx context.Context, userID uuid.UUID, messages []ai.Message, extraPrompt string) (<-chan ai.StreamChunk, error) {
	const op = "CoachService.StreamChat"

	if len(messages) == 0 {
		return nil, domain.Invalid(op, "Messages array is required")
	}
	if err := s.checkAllowance(ctx, userID, domain.ActionCoaching); err != nil {
		return nil, err
	}

	system := s.prompts.Coaching
	if extraPrompt != "" {
		system = system + "\n" + extraPrompt
	}

	// Clients historically label assistant turns "coach".
	normalized := make([]ai.Message, len(messages))
	for i, m := range messages {
		role := m.Role
		if role == "coach" {
			role = ai.RoleAssistant
		}
		normalized[i] = ai.Message{Role: role, Content: m.Content}
	}

	chunks, err := s.provider.Stream(ctx, ai.CompletionParams{
		System:   system,
		Messages: normalized,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to start coaching stream")
	}
	return chunks, nil
}

func (s *coachService) FinishChat(ctx context.Context, userID uuid.UUID, fullResponse string) (string, *ChatSummary) {
	processed := trimToSingleQuestion(fullResponse)
	summary := summarizeResponse(processed)

	if _, err := s.usage.Increment(ctx, userID, domain.ActionCoaching); err != nil {
		// Metering must not break a finished chat.
		s.logger.Warn("failed to record coaching usage", "user_id", userID, "error", err)
	}
	return processed, summary
}

func (s *coachService) GenerateEmail(ctx context.Context, userID uuid.UUID, scenario, tone, recipient string) (string, error) {
	const op = "CoachService.GenerateEmail"

	if strings.TrimSpace(scenario) == "" {
		return "", domain.Invalid(op, "Scenario is required")
	}
	if err := s.checkAllowance(ctx, userID, domain.ActionEmail); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Write an email for this situation: ")
	b.WriteString(scenario)
	if recipient != "" {
		b.WriteString("\nRecipient: " + recipient)
	}
	if tone != "" {
		b.WriteString("\nTone: " + tone)
	}

	result, err := s.provider.Complete(ctx, ai.CompletionParams{
		System:    s.prompts.Email,
		Messages:  []ai.Message{{Role: ai.RoleUser, Content: b.String()}},
		MaxTokens: 1024,
	})
	if err != nil {
		return "", domain.Internal(err, op, "Failed to generate email")
	}

	if _, err := s.usage.Increment(ctx, userID, domain.ActionEmail); err != nil {
		s.logger.Warn("failed to record email usage", "user_id", userID, "error", err)
	}
	return result.Text, nil
}

func (s *coachService) AnalyzeConversation(ctx context.Context, params AnalyzeParams) (*domain.DifficultConversation, error) {
	const op = "CoachService.AnalyzeConversation"

	if strings.TrimSpace(params.Transcript) == "" {
		return nil, domain.Invalid(op, "Transcript is required")
	}
	if err := s.checkAllowance(ctx, params.UserID, domain.ActionDifficultConversation); err != nil {
		return nil, err
	}

	result, err := s.provider.Complete(ctx, ai.CompletionParams{
		System:    s.prompts.Analysis,
		Messages:  []ai.Message{{Role: ai.RoleUser, Content: params.Transcript}},
		MaxTokens: 1024,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to analyze conversation")
	}

	analysis, err := parseAnalysis(result.Text)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to parse analysis")
	}

	detailed, _ := json.Marshal(analysis)
	record, err := s.queries.CreateDifficultConversation(ctx, repository.CreateDifficultConversationParams{
		UserID:             params.UserID,
		RelationshipType:   params.RelationshipType,
		ConversationTopic:  params.ConversationTopic,
		DesiredOutcome:     params.DesiredOutcome,
		CommunicationStyle: params.CommunicationStyle,
		AdditionalContext:  params.AdditionalContext,
		Feedback:           analysis.Summary,
		DetailedFeedback:   detailed,
		KeyStrengths:       analysis.KeyStrengths,
		ImprovementAreas:   analysis.ImprovementAreas,
		Scenario:           params.Scenario,
		IntensityLevel:     params.IntensityLevel,
		Role:               params.Role,
		DialogueHistory:    params.DialogueHistory,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to save conversation analysis")
	}

	if _, err := s.usage.Increment(ctx, params.UserID, domain.ActionDifficultConversation); err != nil {
		s.logger.Warn("failed to record practice usage", "user_id", params.UserID, "error", err)
	}
	return record, nil
}

func (s *coachService) Complete(ctx context.Context, messages []ai.Message, maxTokens int, temperature float64) (string, error) {
	const op = "CoachService.Complete"

	if len(messages) == 0 {
		return "", domain.Invalid(op, "Messages array is required")
	}

	result, err := s.provider.Complete(ctx, ai.CompletionParams{
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", domain.Internal(err, op, "Failed to run completion")
	}
	return result.Text, nil
}

func (s *coachService) checkAllowance(ctx context.Context, userID uuid.UUID, action domain.ActionType) error {
	err := s.usage.CheckAllowance(ctx, userID, action)
	if err != nil && domain.ErrorCode(err) == domain.EPAYMENT {
		metrics.UsageLimitDenialsTotal.WithLabelValues(string(action)).Inc()
	}
	return err
}

// =============================================================================
// Response post-processing
// =============================================================================

// trimToSingleQuestion enforces the one-question rule: when a response asks
// several questions, keep the last question plus one sentence of leading
// context.
func trimToSingleQuestion(text string) string {
	if strings.Count(text, "?") <= 1 {
		return text
	}

	sentences := splitSentences(text)
	lastQuestion := -1
	for i, s := range sentences {
		if strings.Contains(s, "?") {
			lastQuestion = i
		}
	}
	if lastQuestion < 0 {
		return text
	}

	start := lastQuestion - 1
	if start < 0 {
		start = 0
	}
	return strings.TrimSpace(strings.Join(sentences[start:lastQuestion+1], " "))
}

// splitSentences breaks text on sentence-ending punctuation followed by
// whitespace.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// summarizeResponse classifies a coaching reply and pulls out likely action
// items and insights using the same line heuristics the product has always
// used.
func summarizeResponse(text string) *ChatSummary {
	lower := strings.ToLower(text)

	responseType := "question"
	if strings.Contains(lower, "consider") || strings.Contains(lower, "reflect") {
		responseType = "reflection"
	} else if !strings.Contains(text, "?") {
		responseType = "advice"
	}

	return &ChatSummary{
		Type:        responseType,
		Insights:    extractLines(text, []string{"insight", "notice", "observe", "reflection"}),
		ActionItems: extractLines(text, []string{"try", "action", "step", "draft", "create", "schedule"}),
	}
}

func extractLines(text string, keywords []string) []string {
	matches := []string{}
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		hit := false
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		// Strip any leading label ("Next step: ...").
		if idx := strings.Index(line, ":"); idx >= 0 {
			line = line[idx+1:]
		}
		line = strings.TrimSpace(line)
		if len(line) > 10 && len(line) < 100 {
			matches = append(matches, line)
		}
		if len(matches) == 2 {
			break
		}
	}
	return matches
}

// parseAnalysis decodes the model's JSON answer, tolerating surrounding
// prose or markdown fences.
func parseAnalysis(text string) (*domain.ConversationAnalysis, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in analysis response")
	}

	var analysis domain.ConversationAnalysis
	if err := json.Unmarshal([]byte(text[start:end+1]), &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// Interface compliance check
var _ CoachService = (*coachService)(nil)
