package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leadwithheart/coach/internal/ai"
	"github.com/leadwithheart/coach/internal/ai/mock"
	"github.com/leadwithheart/coach/internal/domain"
)

// =============================================================================
// Helpers
// =============================================================================

// newTestCoachService wires the coach service to a mock provider and the
// in-memory usage store. Queries stays nil: these tests never touch the DB.
func newTestCoachService(now time.Time) (*coachService, *mock.Provider, *fakeUsageStore) {
	provider := mock.New(testLogger())
	usage, store, _ := newTestUsageService(now)
	svc := &coachService{
		provider: provider,
		usage:    usage,
		prompts: Prompts{
			Coaching: "coaching prompt",
			Email:    "email prompt",
			Analysis: "analysis prompt",
		},
		logger: testLogger(),
	}
	return svc, provider, store
}

// =============================================================================
// StreamChat Tests
// =============================================================================

func TestStreamChat_RequiresMessages(t *testing.T) {
	svc, _, _ := newTestCoachService(time.Now())

	_, err := svc.StreamChat(context.Background(), uuid.New(), nil, "")
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("expected EINVALID, got %v", err)
	}
}

func TestStreamChat_DeniedOverDailyLimit(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	svc, provider, store := newTestCoachService(now)
	userID := uuid.New()
	seedUsage(store, userID, domain.UsageRecord{
		CoachingSessionsToday:     domain.FreeTierLimits[domain.ActionCoaching],
		EmailGenerationsLastReset: now,
	})

	_, err := svc.StreamChat(context.Background(), userID, []ai.Message{{Role: ai.RoleUser, Content: "hi"}}, "")
	if domain.ErrorCode(err) != domain.EPAYMENT {
		t.Errorf("expected EPAYMENT, got %v", err)
	}
	if provider.StreamCalls != 0 {
		t.Error("denied request must not reach the provider")
	}
}

func TestStreamChat_NormalizesCoachRole(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	svc, _, store := newTestCoachService(now)
	userID := uuid.New()
	seedUsage(store, userID, domain.UsageRecord{EmailGenerationsLastReset: now})

	chunks, err := svc.StreamChat(context.Background(), userID, []ai.Message{
		{Role: ai.RoleUser, Content: "I need help"},
		{Role: ai.Role("coach"), Content: "Tell me more"},
		{Role: ai.RoleUser, Content: "ok"},
	}, "extra context")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Drain the mock stream to completion.
	var sawDone bool
	for c := range chunks {
		if c.Err != nil {
			t.Fatalf("stream error: %v", c.Err)
		}
		if c.Done {
			sawDone = true
		}
	}
	if !sawDone {
		t.Error("stream should end with a done chunk")
	}
}

// =============================================================================
// FinishChat Tests
// =============================================================================

func TestFinishChat_IncrementsCoachingCounter(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	svc, _, store := newTestCoachService(now)
	userID := uuid.New()
	seedUsage(store, userID, domain.UsageRecord{EmailGenerationsLastReset: now})

	processed, summary := svc.FinishChat(context.Background(), userID, "What outcome do you want?")
	if processed == "" {
		t.Error("processed response should not be empty")
	}
	if summary == nil || summary.Type != "question" {
		t.Errorf("single-question reply should classify as question, got %+v", summary)
	}
	if store.usage[userID].CoachingSessionsToday != 1 {
		t.Errorf("coaching counter = %d, want 1", store.usage[userID].CoachingSessionsToday)
	}
}

func TestFinishChat_MeteringFailureStillReturns(t *testing.T) {
	// No ledger row seeded, so the increment fails with not-found. The
	// finished chat must still come back processed.
	svc, _, _ := newTestCoachService(time.Now())

	processed, summary := svc.FinishChat(context.Background(), uuid.New(), "Consider taking a walk.")
	if processed != "Consider taking a walk." {
		t.Errorf("unexpected processed text: %q", processed)
	}
	if summary == nil {
		t.Fatal("summary should never be nil")
	}
}

// =============================================================================
// GenerateEmail Tests
// =============================================================================

func TestGenerateEmail_RequiresScenario(t *testing.T) {
	svc, _, _ := newTestCoachService(time.Now())

	_, err := svc.GenerateEmail(context.Background(), uuid.New(), "  ", "warm", "my team")
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("expected EINVALID, got %v", err)
	}
}

func TestGenerateEmail_IncrementsAfterSuccess(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	svc, provider, store := newTestCoachService(now)
	userID := uuid.New()
	seedUsage(store, userID, domain.UsageRecord{EmailGenerationsLastReset: now})

	text, err := svc.GenerateEmail(context.Background(), userID, "announcing a reorg", "direct", "the team")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text == "" {
		t.Error("expected generated email text")
	}
	if provider.CompleteCalls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.CompleteCalls)
	}
	if store.usage[userID].EmailGenerationsToday != 1 {
		t.Errorf("email counter = %d, want 1", store.usage[userID].EmailGenerationsToday)
	}
}

func TestGenerateEmail_ProviderFailureDoesNotMeter(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	svc, provider, store := newTestCoachService(now)
	userID := uuid.New()
	seedUsage(store, userID, domain.UsageRecord{EmailGenerationsLastReset: now})
	provider.CompleteError = context.DeadlineExceeded

	_, err := svc.GenerateEmail(context.Background(), userID, "thanking a mentor", "", "")
	if domain.ErrorCode(err) != domain.EINTERNAL {
		t.Errorf("expected EINTERNAL, got %v", err)
	}
	if store.usage[userID].EmailGenerationsToday != 0 {
		t.Error("failed generation must not consume allowance")
	}
}

// =============================================================================
// Post-processing Tests
// =============================================================================

func TestTrimToSingleQuestion(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no question untouched",
			in:   "Take a breath. You handled that well.",
			want: "Take a breath. You handled that well.",
		},
		{
			name: "single question untouched",
			in:   "That sounds hard. What would help most right now?",
			want: "That sounds hard. What would help most right now?",
		},
		{
			name: "multiple questions keep last plus context",
			in:   "Why now? That timing matters. It changes the stakes. What outcome do you want?",
			want: "It changes the stakes. What outcome do you want?",
		},
		{
			name: "two adjacent questions",
			in:   "How did that land? What will you do next?",
			want: "How did that land? What will you do next?",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := trimToSingleQuestion(tc.in)
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second! Third? Trailing fragment")
	want := []string{"First one.", "Second!", "Third?", "Trailing fragment"}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitSentences_DecimalNotSplit(t *testing.T) {
	// A period inside a number has no trailing space, so it must not end a
	// sentence.
	got := splitSentences("Aim for a 1.5 hour block. Then rest.")
	if len(got) != 2 {
		t.Errorf("got %d sentences, want 2: %v", len(got), got)
	}
}

func TestSummarizeResponse(t *testing.T) {
	testCases := []struct {
		name     string
		in       string
		wantType string
	}{
		{"question", "What matters most to you here?", "question"},
		{"reflection", "Consider how your team sees this. What changed?", "reflection"},
		{"advice", "Schedule the meeting for Monday morning.", "advice"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			summary := summarizeResponse(tc.in)
			if summary.Type != tc.wantType {
				t.Errorf("type = %q, want %q", summary.Type, tc.wantType)
			}
		})
	}
}

func TestExtractLines(t *testing.T) {
	text := "Here is my take.\n" +
		"Action: schedule a one-on-one this week\n" +
		"Try writing down what you want to say first\n" +
		"Step: too\n" + // stripped label leaves text under the length floor
		"Another action item that would be a third match and must be dropped\n"

	got := extractLines(text, []string{"action", "try", "step", "schedule"})
	if len(got) != 2 {
		t.Fatalf("got %d lines, want 2: %v", len(got), got)
	}
	if got[0] != "schedule a one-on-one this week" {
		t.Errorf("first line = %q, label should be stripped", got[0])
	}
	if got[1] != "Try writing down what you want to say first" {
		t.Errorf("second line = %q", got[1])
	}
}

func TestParseAnalysis(t *testing.T) {
	text := "Here is your analysis:\n```json\n" +
		`{"summary":"Good pacing.","key_strengths":["Stayed calm"],"improvement_areas":["Ask more"],"score":71}` +
		"\n```\nHope that helps!"

	analysis, err := parseAnalysis(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Summary != "Good pacing." {
		t.Errorf("summary = %q", analysis.Summary)
	}
	if analysis.Score != 71 {
		t.Errorf("score = %d, want 71", analysis.Score)
	}
	if len(analysis.KeyStrengths) != 1 || len(analysis.ImprovementAreas) != 1 {
		t.Errorf("unexpected lists: %+v", analysis)
	}
}

func TestParseAnalysis_NoJSON(t *testing.T) {
	if _, err := parseAnalysis("I could not produce an analysis."); err == nil {
		t.Error("expected an error for a response with no JSON object")
	}
}
