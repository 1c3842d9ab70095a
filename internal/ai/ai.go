package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider defines the interface for AI-powered coaching features.
type Provider interface {
	// Complete runs a single-shot chat completion and returns the full
	// response text.
	Complete(ctx context.Context, params CompletionParams) (*CompletionResult, error)

	// Stream runs a chat completion and delivers the response
	// incrementally on the returned channel. The channel is closed after
	// the final chunk; a chunk with Err set terminates the stream.
	Stream(ctx context.Context, params CompletionParams) (<-chan StreamChunk, error)
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionParams contains parameters for a chat completion.
type CompletionParams struct {
	System      string    // System prompt, prepended to the messages
	Messages    []Message // Conversation turns, oldest first
	MaxTokens   int       // Response token cap (0 = provider default)
	Temperature float64   // Sampling temperature
}

// CompletionResult contains a full completion response.
type CompletionResult struct {
	Text  string    // The assistant's response
	Usage UsageInfo // Token usage information
}

// StreamChunk is one increment of a streamed response.
type StreamChunk struct {
	Text string // Text delta; empty on the final chunk
	Done bool   // True on the final chunk
	Err  error  // Non-nil when the stream failed mid-flight
}

// UsageInfo tracks API usage for monitoring.
type UsageInfo struct {
	Model        string        // AI model used
	InputTokens  int           // Tokens in the request
	OutputTokens int           // Tokens in the response
	Duration     time.Duration // Request duration
}

// ProviderConfig contains common configuration for AI providers.
type ProviderConfig struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error codes for AI provider operations
var (
	// EAIRateLimit indicates the API rate limit has been exceeded
	EAIRateLimit = errors.New("ai provider rate limit exceeded")

	// EAITimeout indicates the request timed out
	EAITimeout = errors.New("ai request timed out")

	// EAIUnavailable indicates the AI service is temporarily unavailable
	EAIUnavailable = errors.New("ai service temporarily unavailable")

	// EAIUnauthorized indicates invalid API credentials
	EAIUnauthorized = errors.New("ai provider authentication failed")

	// EAIContentPolicy indicates the request violates content policy
	EAIContentPolicy = errors.New("request violates content policy")
)

// IsRetryable returns true if the error is a transient error that can be retried
func IsRetryable(err error) bool {
	return errors.Is(err, EAIRateLimit) ||
		errors.Is(err, EAITimeout) ||
		errors.Is(err, EAIUnavailable)
}

// WrapError wraps an error with context about the AI operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}
