package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"housing-assistant/internal/logger"
	"housing-assistant/internal/model"
	"housing-assistant/internal/repository"
)

// scriptedAI returns queued completions in order and flags any text containing a blocked word
type scriptedAI struct {
	mu          sync.Mutex
	completions []string
	err         error
	blocked     string
	calls       int
	moderated   []string
}

func (s *scriptedAI) queue(completions ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions = append(s.completions, completions...)
}

func (s *scriptedAI) next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.completions) == 0 {
		return "", errors.New("no scripted completion left")
	}
	out := s.completions[0]
	s.completions = s.completions[1:]
	return out, nil
}

func (s *scriptedAI) ChatCompletion(_ context.Context, _ []model.ChatMessage) (string, error) {
	return s.next()
}

func (s *scriptedAI) ChatCompletionJSON(_ context.Context, _ []model.ChatMessage) (string, error) {
	return s.next()
}

func (s *scriptedAI) Moderate(_ context.Context, text string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moderated = append(s.moderated, text)
	return s.blocked != "" && strings.Contains(text, s.blocked), nil
}

func (s *scriptedAI) IsEnabled() bool { return true }

func (s *scriptedAI) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type countingInventory struct {
	records []model.HouseRecord
	reads   int
}

func (c *countingInventory) All(_ context.Context) ([]model.HouseRecord, error) {
	c.reads++
	return c.records, nil
}

type recordingTurnLogger struct {
	entries chan model.TurnLog
}

func (r *recordingTurnLogger) LogTurn(_ context.Context, entry model.TurnLog) error {
	r.entries <- entry
	return nil
}

const (
	profileReply   = "House Type: apartment, Availability: Yes, Location: Whitefield, Bedrooms: 2, Carpet Area: 1500, Budget: 15000000"
	whitefieldJSON = `{"House Type": "apartment", "Availability": "Yes", "Location": "Whitefield", "Bedrooms": 2, "Carpet Area": 1500, "Budget": 15000000}`
)

type harness struct {
	conv      *Conversation
	ai        *scriptedAI
	inventory *countingInventory
	store     *repository.MemorySessionStore
	clock     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ai:        &scriptedAI{blocked: "BADWORD"},
		inventory: &countingInventory{records: sampleRecords()},
		store:     repository.NewMemorySessionStore(),
		clock:     time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	h.conv = NewConversation(h.ai, h.inventory, NewRanker(5), NewValidator(2, 1500000), h.store, nil, 1500000, logger.Nop())
	h.conv.now = func() time.Time {
		h.clock = h.clock.Add(time.Minute)
		return h.clock
	}
	return h
}

func (h *harness) start(t *testing.T) *model.Session {
	t.Helper()
	h.ai.queue("Welcome! What kind of house are you looking for?")
	session, err := h.conv.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return session
}

func (h *harness) stored(t *testing.T, id string) *model.Session {
	t.Helper()
	s, err := h.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("store.Get() error = %v", err)
	}
	return s
}

func TestConversation_Start(t *testing.T) {
	h := newHarness(t)
	session := h.start(t)

	if session.ID == "" {
		t.Fatal("session id should be set")
	}
	if session.Phase != model.PhaseCollecting {
		t.Errorf("Phase = %s, want COLLECTING", session.Phase)
	}
	if len(session.Messages) != 2 || session.Messages[0].Role != model.RoleSystem || session.Messages[1].Role != model.RoleAssistant {
		t.Errorf("unexpected messages: %+v", session.Messages)
	}
	if len(session.Transcript) != 1 || session.Transcript[0].Speaker != model.SpeakerBot {
		t.Errorf("unexpected transcript: %+v", session.Transcript)
	}
	if !strings.Contains(session.Messages[0].Content, "1500000") {
		t.Error("intake prompt should state the minimum budget")
	}
	h.stored(t, session.ID)
}

func TestConversation_StartFlaggedWelcome(t *testing.T) {
	h := newHarness(t)
	h.ai.queue("BADWORD welcome")

	session, err := h.conv.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if session.Phase != model.PhaseEnded {
		t.Errorf("Phase = %s, want ENDED", session.Phase)
	}
	if len(session.Transcript) != 0 {
		t.Errorf("flagged welcome should not reach the transcript: %+v", session.Transcript)
	}
}

func TestConversation_ProfileIncompleteStaysCollecting(t *testing.T) {
	h := newHarness(t)
	session := h.start(t)

	h.ai.queue("Great. How many bedrooms do you need?", "No")
	result, err := h.conv.HandleMessage(context.Background(), session.ID, "I want an apartment in Whitefield")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if result.Phase != model.PhaseCollecting || result.Outcome != model.OutcomeReply {
		t.Errorf("result = %s/%s, want COLLECTING/reply", result.Phase, result.Outcome)
	}
	if len(result.Replies) != 1 || result.Replies[0] != "Great. How many bedrooms do you need?" {
		t.Errorf("Replies = %v", result.Replies)
	}

	stored := h.stored(t, session.ID)
	if len(stored.Messages) != 4 {
		t.Fatalf("stored %d messages, want 4", len(stored.Messages))
	}
	user := stored.Messages[2]
	if user.Role != model.RoleUser || !strings.HasPrefix(user.Content, "I want an apartment in Whitefield") || !strings.HasSuffix(user.Content, scopeReminder) {
		t.Errorf("unexpected user message: %+v", user)
	}
	if len(stored.Transcript) != 3 || stored.Transcript[1].Text != "I want an apartment in Whitefield" {
		t.Errorf("unexpected transcript: %+v", stored.Transcript)
	}
	if h.inventory.reads != 0 {
		t.Error("inventory should not be read before the profile is confirmed")
	}
}

func TestConversation_ConfirmedProfileRecommends(t *testing.T) {
	h := newHarness(t)
	session := h.start(t)

	h.ai.queue(profileReply, "Yes", whitefieldJSON, "1. A: 2 BHK, Rs 14000000\n2. B: 3 BHK, Rs 13000000")
	result, err := h.conv.HandleMessage(context.Background(), session.ID, "My budget is 1.5 crore")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if result.Phase != model.PhaseRecommending || result.Outcome != model.OutcomeRecommendations {
		t.Fatalf("result = %s/%s, want RECOMMENDING/recommendations", result.Phase, result.Outcome)
	}
	if len(result.Candidates) != 2 || result.Candidates[0].ID != 1 || result.Candidates[0].Score != 5 || result.Candidates[1].Score != 2 {
		t.Errorf("unexpected candidates: %+v", result.Candidates)
	}
	if len(result.Replies) != 2 || result.Replies[0] != MessageFetchingMatches {
		t.Errorf("Replies = %v", result.Replies)
	}

	stored := h.stored(t, session.ID)
	if stored.Phase != model.PhaseRecommending {
		t.Errorf("stored Phase = %s", stored.Phase)
	}
	if stored.Profile == nil || stored.Profile.Budget != 15000000 {
		t.Errorf("stored Profile = %+v", stored.Profile)
	}
	if len(stored.Messages) != 3 || stored.Messages[0].Role != model.RoleSystem || !strings.Contains(stored.Messages[0].Content, `"id":1`) {
		t.Errorf("recommendation context not seeded with candidates: %+v", stored.Messages)
	}

	// Turns after the transition are forwarded into the recommendation dialogue
	h.ai.queue("House A is closest to the tech parks.")
	result, err = h.conv.HandleMessage(context.Background(), session.ID, "Which one is closer to work?")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if result.Phase != model.PhaseRecommending || result.Outcome != model.OutcomeReply {
		t.Errorf("result = %s/%s, want RECOMMENDING/reply", result.Phase, result.Outcome)
	}
	stored = h.stored(t, session.ID)
	if len(stored.Messages) != 5 || stored.Messages[3].Content != "Which one is closer to work?" {
		t.Errorf("unexpected forwarded messages: %+v", stored.Messages)
	}
}

func TestConversation_Handoff(t *testing.T) {
	tests := []struct {
		name       string
		extraction string
		wantReads  int
	}{
		{
			name:       "no listing of requested type",
			extraction: `{"House Type": "stand alone house", "Availability": "Yes", "Location": "Whitefield", "Bedrooms": 2, "Carpet Area": 1500, "Budget": 15000000}`,
			wantReads:  1,
		},
		{
			name:       "budget below minimum",
			extraction: `{"House Type": "apartment", "Availability": "Yes", "Location": "Whitefield", "Bedrooms": 2, "Carpet Area": 1500, "Budget": 1000000}`,
			wantReads:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			session := h.start(t)

			h.ai.queue(profileReply, "Yes", tt.extraction)
			result, err := h.conv.HandleMessage(context.Background(), session.ID, "That is everything")
			if err != nil {
				t.Fatalf("HandleMessage() error = %v", err)
			}

			if result.Phase != model.PhaseEnded || result.Outcome != model.OutcomeHandoff {
				t.Errorf("result = %s/%s, want ENDED/handoff", result.Phase, result.Outcome)
			}
			if len(result.Candidates) != 0 {
				t.Errorf("handoff should carry no candidates: %+v", result.Candidates)
			}
			if h.inventory.reads != tt.wantReads {
				t.Errorf("inventory reads = %d, want %d", h.inventory.reads, tt.wantReads)
			}
			if stored := h.stored(t, session.ID); stored.Phase != model.PhaseEnded {
				t.Errorf("stored Phase = %s, want ENDED", stored.Phase)
			}
		})
	}
}

func TestConversation_MalformedExtractionKeepsCollecting(t *testing.T) {
	h := newHarness(t)
	session := h.start(t)

	h.ai.queue(profileReply, "Yes", `{"House Type": "apartment", "Budget": "lots"}`)
	result, err := h.conv.HandleMessage(context.Background(), session.ID, "That is everything")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if result.Phase != model.PhaseCollecting || result.Outcome != model.OutcomeReply {
		t.Errorf("result = %s/%s, want COLLECTING/reply", result.Phase, result.Outcome)
	}
	if h.inventory.reads != 0 {
		t.Error("malformed profile must not be scored")
	}
	if stored := h.stored(t, session.ID); stored.Profile != nil {
		t.Errorf("stored Profile = %+v, want nil", stored.Profile)
	}
}

func TestConversation_FlaggedContentEndsWithoutMutation(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		script    []string
		wantCalls int
	}{
		{"flagged user input", "BADWORD", nil, 0},
		{"flagged reply", "hello", []string{"BADWORD reply"}, 1},
		{"flagged confirmation", "hello", []string{profileReply, "Yes BADWORD"}, 2},
		{"flagged extraction", "hello", []string{profileReply, "Yes", `{"Location": "BADWORD"}`}, 3},
		{"flagged recommendation", "hello", []string{profileReply, "Yes", whitefieldJSON, "BADWORD"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			session := h.start(t)
			before := h.stored(t, session.ID)
			callsBefore := h.ai.callCount()

			h.ai.queue(tt.script...)
			result, err := h.conv.HandleMessage(context.Background(), session.ID, tt.message)
			if err != nil {
				t.Fatalf("HandleMessage() error = %v", err)
			}
			if result.Phase != model.PhaseEnded || result.Outcome != model.OutcomeContentFlagged {
				t.Errorf("result = %s/%s, want ENDED/content_flagged", result.Phase, result.Outcome)
			}
			if got := h.ai.callCount() - callsBefore; got != tt.wantCalls {
				t.Errorf("model calls = %d, want %d", got, tt.wantCalls)
			}

			after := h.stored(t, session.ID)
			if after.Phase != model.PhaseEnded {
				t.Errorf("stored Phase = %s, want ENDED", after.Phase)
			}
			if len(after.Messages) != len(before.Messages) || len(after.Transcript) != len(before.Transcript) {
				t.Errorf("history mutated: %d/%d messages, %d/%d transcript",
					len(after.Messages), len(before.Messages), len(after.Transcript), len(before.Transcript))
			}
			if after.Profile != nil || len(after.Candidates) != 0 || !after.UpdatedAt.Equal(before.UpdatedAt) {
				t.Errorf("session fields mutated: %+v", after)
			}
			if h.inventory.reads != 0 {
				t.Error("flagged turn must not score")
			}

			if _, err := h.conv.HandleMessage(context.Background(), session.ID, "hello again"); !errors.Is(err, model.ErrSessionEnded) {
				t.Errorf("HandleMessage() on ended session error = %v, want ErrSessionEnded", err)
			}
		})
	}
}

func TestConversation_FlaggedWhileRecommending(t *testing.T) {
	h := newHarness(t)
	session := h.start(t)

	h.ai.queue(profileReply, "Yes", whitefieldJSON, "Here are your matches")
	if _, err := h.conv.HandleMessage(context.Background(), session.ID, "done"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	before := h.stored(t, session.ID)

	result, err := h.conv.HandleMessage(context.Background(), session.ID, "BADWORD")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if result.Outcome != model.OutcomeContentFlagged || result.Phase != model.PhaseEnded {
		t.Errorf("result = %s/%s, want ENDED/content_flagged", result.Phase, result.Outcome)
	}
	after := h.stored(t, session.ID)
	if len(after.Candidates) != len(before.Candidates) || len(after.Messages) != len(before.Messages) {
		t.Error("flag while recommending should only change the phase")
	}
}

func TestConversation_ExternalErrorLeavesSessionUntouched(t *testing.T) {
	h := newHarness(t)
	session := h.start(t)
	before := h.stored(t, session.ID)

	h.ai.err = errors.New("upstream unavailable")
	_, err := h.conv.HandleMessage(context.Background(), session.ID, "hello")
	if !errors.Is(err, model.ErrExternalService) {
		t.Fatalf("HandleMessage() error = %v, want ErrExternalService", err)
	}

	after := h.stored(t, session.ID)
	if after.Phase != before.Phase || len(after.Messages) != len(before.Messages) || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("session mutated after failed turn: %+v", after)
	}
}

func TestConversation_DisabledAIStaysDetectable(t *testing.T) {
	h := newHarness(t)
	session := h.start(t)

	h.ai.err = model.ErrAIDisabled
	_, err := h.conv.HandleMessage(context.Background(), session.ID, "hello")
	if !errors.Is(err, model.ErrAIDisabled) || !errors.Is(err, model.ErrExternalService) {
		t.Errorf("HandleMessage() error = %v, want ErrAIDisabled wrapped as ErrExternalService", err)
	}
}

func TestConversation_InputErrors(t *testing.T) {
	h := newHarness(t)
	session := h.start(t)

	if _, err := h.conv.HandleMessage(context.Background(), session.ID, "   "); !errors.Is(err, model.ErrEmptyMessage) {
		t.Errorf("empty message error = %v, want ErrEmptyMessage", err)
	}
	if _, err := h.conv.HandleMessage(context.Background(), "missing", "hi"); !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("unknown session error = %v, want ErrSessionNotFound", err)
	}
}

func TestConversation_Reset(t *testing.T) {
	h := newHarness(t)
	session := h.start(t)

	if _, err := h.conv.HandleMessage(context.Background(), session.ID, "BADWORD"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	h.ai.queue("Welcome back!")
	reset, err := h.conv.Reset(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if reset.ID != session.ID || reset.Phase != model.PhaseCollecting {
		t.Errorf("Reset() = %s/%s, want %s/COLLECTING", reset.ID, reset.Phase, session.ID)
	}
	if len(reset.Transcript) != 1 || reset.Transcript[0].Text != "Welcome back!" || reset.Profile != nil {
		t.Errorf("reset session should be fresh: %+v", reset)
	}
	if !reset.CreatedAt.Equal(session.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", reset.CreatedAt, session.CreatedAt)
	}

	if _, err := h.conv.Reset(context.Background(), "missing"); !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("Reset() unknown session error = %v, want ErrSessionNotFound", err)
	}
}

func TestConversation_End(t *testing.T) {
	h := newHarness(t)
	session := h.start(t)

	if err := h.conv.End(context.Background(), session.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if _, err := h.conv.Get(context.Background(), session.ID); !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("Get() after End error = %v, want ErrSessionNotFound", err)
	}
}

func TestConversation_SessionsAreIsolated(t *testing.T) {
	h := newHarness(t)
	first := h.start(t)
	second := h.start(t)

	h.ai.queue(profileReply, "Yes", whitefieldJSON, "Here are your matches")
	if _, err := h.conv.HandleMessage(context.Background(), first.ID, "done"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if got := h.stored(t, second.ID); got.Phase != model.PhaseCollecting || len(got.Transcript) != 1 {
		t.Errorf("second session changed: %+v", got)
	}
}

func TestConversation_TurnsAreSerialized(t *testing.T) {
	h := newHarness(t)
	session := h.start(t)

	const turns = 10
	for i := 0; i < turns; i++ {
		h.ai.queue(fmt.Sprintf("question %d", i), "No")
	}

	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := h.conv.HandleMessage(context.Background(), session.ID, fmt.Sprintf("answer %d", i)); err != nil {
				t.Errorf("HandleMessage() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := h.stored(t, session.ID); len(got.Transcript) != 1+2*turns {
		t.Errorf("transcript has %d entries, want %d", len(got.Transcript), 1+2*turns)
	}
}

func TestConversation_LogsTurns(t *testing.T) {
	h := newHarness(t)
	turnLog := &recordingTurnLogger{entries: make(chan model.TurnLog, 1)}
	h.conv.turnLog = turnLog
	session := h.start(t)

	h.ai.queue(profileReply, "Yes", whitefieldJSON, "Here are your matches")
	if _, err := h.conv.HandleMessage(context.Background(), session.ID, "done"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	select {
	case entry := <-turnLog.entries:
		if entry.SessionID != session.ID || entry.Outcome != model.OutcomeRecommendations || len(entry.CandidateIDs) != 2 {
			t.Errorf("unexpected turn log: %+v", entry)
		}
	case <-time.After(time.Second):
		t.Fatal("turn was not logged")
	}
}
