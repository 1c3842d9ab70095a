package mock

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/leadwithheart/coach/internal/ai"
)

// Provider is a mock AI provider for testing and development
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing
	CompleteResponse *ai.CompletionResult
	CompleteError    error
	StreamChunks     []string
	StreamError      error

	// Call tracking for testing
	CompleteCalls int
	StreamCalls   int
}

// New creates a new mock AI provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// Complete returns a canned coaching-flavored response
func (p *Provider) Complete(ctx context.Context, params ai.CompletionParams) (*ai.CompletionResult, error) {
	p.CompleteCalls++

	// If a custom response or error is set, use it
	if p.CompleteError != nil {
		return nil, p.CompleteError
	}
	if p.CompleteResponse != nil {
		return p.CompleteResponse, nil
	}

	text := "It sounds like this situation has been weighing on you. One small step: write down the single outcome you want from the next conversation. **What would a good outcome look like for you?**"
	if strings.Contains(params.System, "JSON") {
		// Analysis prompts expect machine-readable output.
		text = `{"summary":"You stayed calm and kept the conversation focused on outcomes.","key_strengths":["Acknowledged the other person's perspective","Used specific examples"],"improvement_areas":["Ask more open-ended questions","Pause longer before responding"],"score":78}`
	}

	return &ai.CompletionResult{
		Text: text,
		Usage: ai.UsageInfo{
			Model:        "mock-ai-v1",
			InputTokens:  420,
			OutputTokens: 96,
			Duration:     150 * time.Millisecond,
		},
	}, nil
}

// Stream delivers a canned response in small chunks
func (p *Provider) Stream(ctx context.Context, params ai.CompletionParams) (<-chan ai.StreamChunk, error) {
	p.StreamCalls++

	if p.StreamError != nil {
		return nil, p.StreamError
	}

	chunks := p.StreamChunks
	if chunks == nil {
		chunks = []string{
			"Thanks for sharing that. ",
			"It takes courage to name a challenge out loud. ",
			"**What are you hoping to get out of this chat?**",
		}
	}

	out := make(chan ai.StreamChunk)
	go func() {
		defer close(out)
		for _, c := range chunks {
			select {
			case out <- ai.StreamChunk{Text: c}:
			case <-ctx.Done():
				out <- ai.StreamChunk{Err: ctx.Err()}
				return
			}
		}
		out <- ai.StreamChunk{Done: true}
	}()
	return out, nil
}

// Reset clears call counters and custom responses for testing
func (p *Provider) Reset() {
	p.CompleteCalls = 0
	p.StreamCalls = 0
	p.CompleteResponse = nil
	p.CompleteError = nil
	p.StreamChunks = nil
	p.StreamError = nil
}

// Interface compliance check
var _ ai.Provider = (*Provider)(nil)
