package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"housing-assistant/internal/logger"
	"housing-assistant/internal/model"

	"github.com/google/uuid"
)

// SessionStore persists conversation sessions
type SessionStore interface {
	Get(ctx context.Context, id string) (*model.Session, error)
	Save(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, id string) error
}

// InventoryReader exposes the read-only listing inventory
type InventoryReader interface {
	All(ctx context.Context) ([]model.HouseRecord, error)
}

// TurnLogger records processed turns for analytics
type TurnLogger interface {
	LogTurn(ctx context.Context, entry model.TurnLog) error
}

// errContentFlagged aborts a turn as soon as moderation flags any content
var errContentFlagged = errors.New("content flagged by moderation")

// Conversation drives the intake and recommendation dialogue of every session
type Conversation struct {
	aiClient  AIClient
	extractor *ProfileExtractor
	inventory InventoryReader
	ranker    *Ranker
	validator *Validator
	store     SessionStore
	turnLog   TurnLogger
	log       *logger.Logger
	locks     *sessionLocks
	minBudget int64

	now   func() time.Time
	newID func() string
}

// NewConversation creates the conversation controller. turnLog may be nil.
func NewConversation(
	aiClient AIClient,
	inventory InventoryReader,
	ranker *Ranker,
	validator *Validator,
	store SessionStore,
	turnLog TurnLogger,
	minBudget int64,
	log *logger.Logger,
) *Conversation {
	if log == nil {
		log = logger.Nop()
	}
	return &Conversation{
		aiClient:  aiClient,
		extractor: NewProfileExtractor(aiClient),
		inventory: inventory,
		ranker:    ranker,
		validator: validator,
		store:     store,
		turnLog:   turnLog,
		log:       log,
		locks:     newSessionLocks(),
		minBudget: minBudget,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Start opens a new session in COLLECTING with the assistant's welcome message
func (c *Conversation) Start(ctx context.Context) (*model.Session, error) {
	session, err := c.fresh(ctx, c.newID(), time.Time{})
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	c.log.Info("session started", "session_id", session.ID, "phase", session.Phase)
	return session, nil
}

// Get returns the current state of a session
func (c *Conversation) Get(ctx context.Context, id string) (*model.Session, error) {
	return c.store.Get(ctx, id)
}

// Reset discards all accumulated state and returns the session to a fresh COLLECTING phase.
// The session keeps its id.
func (c *Conversation) Reset(ctx context.Context, id string) (*model.Session, error) {
	unlock := c.locks.lock(id)
	defer unlock()

	existing, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	session, err := c.fresh(ctx, id, existing.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	c.log.Info("session reset", "session_id", id, "previous_phase", existing.Phase)
	return session, nil
}

// End deletes a session
func (c *Conversation) End(ctx context.Context, id string) error {
	unlock := c.locks.lock(id)
	defer unlock()

	if err := c.store.Delete(ctx, id); err != nil {
		return err
	}
	c.log.Info("session ended", "session_id", id)
	return nil
}

// fresh builds a COLLECTING session seeded with the intake prompt and a moderated welcome.
// A flagged welcome leaves the session ENDED.
func (c *Conversation) fresh(ctx context.Context, id string, createdAt time.Time) (*model.Session, error) {
	now := c.now()
	if createdAt.IsZero() {
		createdAt = now
	}
	session := &model.Session{
		ID:         id,
		Phase:      model.PhaseCollecting,
		Messages:   []model.ChatMessage{{Role: model.RoleSystem, Content: intakeSystemPrompt(c.minBudget)}},
		Transcript: []model.TranscriptEntry{},
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}

	intro, err := c.aiClient.ChatCompletion(ctx, session.Messages)
	if err != nil {
		return nil, externalError("failed to generate welcome message", err)
	}
	if err := c.moderate(ctx, intro); err != nil {
		if errors.Is(err, errContentFlagged) {
			c.log.Warn("welcome message flagged by moderation", "session_id", id)
			session.Phase = model.PhaseEnded
			return session, nil
		}
		return nil, err
	}

	session.Messages = append(session.Messages, model.ChatMessage{Role: model.RoleAssistant, Content: intro})
	session.Transcript = append(session.Transcript, model.TranscriptEntry{Speaker: model.SpeakerBot, Text: intro})
	return session, nil
}

// HandleMessage processes one user turn.
// Turns of the same session run one at a time. An external failure returns an error
// and leaves the session exactly as it was.
func (c *Conversation) HandleMessage(ctx context.Context, id, text string) (*model.TurnResult, error) {
	startTime := time.Now()

	unlock := c.locks.lock(id)
	defer unlock()

	session, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Phase == model.PhaseEnded {
		return nil, model.ErrSessionEnded
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.ErrEmptyMessage
	}

	log := c.log.With("session_id", id, "phase", session.Phase)

	var result *model.TurnResult
	switch session.Phase {
	case model.PhaseCollecting:
		result, err = c.collect(ctx, session, text, log)
	case model.PhaseRecommending:
		result, err = c.recommend(ctx, session, text)
	default:
		return nil, fmt.Errorf("unknown session phase %q", session.Phase)
	}

	if errors.Is(err, errContentFlagged) {
		result, err = c.endFlagged(ctx, session, log)
	}
	if err != nil {
		log.Error("turn failed", "error", err)
		return nil, err
	}

	result.SessionID = id
	result.Phase = session.Phase
	log.Info("turn processed",
		"outcome", result.Outcome,
		"new_phase", result.Phase,
		"candidates", len(result.Candidates),
		"duration", time.Since(startTime),
	)

	entry := model.TurnLog{
		SessionID:      id,
		Phase:          result.Phase,
		Outcome:        result.Outcome,
		UserMessage:    text,
		CandidateIDs:   candidateIDs(result.Candidates),
		ResponseTimeMs: int(time.Since(startTime).Milliseconds()),
	}
	if result.Outcome == model.OutcomeContentFlagged {
		entry.UserMessage = ""
	}
	c.logTurn(entry)

	return result, nil
}

// collect runs a COLLECTING turn: dialogue, confirmation, extraction, scoring and validation
func (c *Conversation) collect(ctx context.Context, session *model.Session, text string, log *logger.Logger) (*model.TurnResult, error) {
	if err := c.moderate(ctx, text); err != nil {
		return nil, err
	}

	history := cloneMessages(session.Messages)
	history = append(history, model.ChatMessage{Role: model.RoleUser, Content: text + scopeReminder})

	reply, err := c.aiClient.ChatCompletion(ctx, history)
	if err != nil {
		return nil, externalError("failed to generate reply", err)
	}
	if err := c.moderate(ctx, reply); err != nil {
		return nil, err
	}

	answer, err := c.extractor.Confirm(ctx, reply)
	if err != nil {
		return nil, err
	}
	if err := c.moderate(ctx, answer); err != nil {
		return nil, err
	}

	continueCollecting := func() (*model.TurnResult, error) {
		session.Messages = append(history, model.ChatMessage{Role: model.RoleAssistant, Content: reply})
		session.Transcript = append(session.Transcript,
			model.TranscriptEntry{Speaker: model.SpeakerUser, Text: text},
			model.TranscriptEntry{Speaker: model.SpeakerBot, Text: reply},
		)
		if err := c.save(ctx, session); err != nil {
			return nil, err
		}
		return &model.TurnResult{Outcome: model.OutcomeReply, Replies: []string{reply}}, nil
	}

	if !IsConfirmed(answer) {
		return continueCollecting()
	}

	raw, err := c.extractor.Extract(ctx, reply)
	if err != nil {
		return nil, err
	}
	if err := c.moderate(ctx, raw); err != nil {
		return nil, err
	}

	profile, err := DecodeProfile(raw)
	if err != nil {
		log.Warn("profile extraction unusable, continuing intake", "error", err, "raw", raw)
		return continueCollecting()
	}
	log.Info("profile extracted",
		"house_type", profile.HouseType,
		"location", profile.Location,
		"bedrooms", profile.MinBedrooms,
		"budget", profile.Budget,
	)

	handoff := func() (*model.TurnResult, error) {
		session.Phase = model.PhaseEnded
		session.Profile = profile
		session.Transcript = append(session.Transcript,
			model.TranscriptEntry{Speaker: model.SpeakerUser, Text: text},
			model.TranscriptEntry{Speaker: model.SpeakerBot, Text: MessageFetchingMatches},
			model.TranscriptEntry{Speaker: model.SpeakerBot, Text: MessageHandoff},
		)
		if err := c.save(ctx, session); err != nil {
			return nil, err
		}
		return &model.TurnResult{
			Outcome: model.OutcomeHandoff,
			Replies: []string{MessageFetchingMatches, MessageHandoff},
		}, nil
	}

	if !c.validator.Fulfillable(profile) {
		log.Info("budget below the cheapest listing threshold", "budget", profile.Budget, "min_budget", c.minBudget)
		return handoff()
	}

	records, err := c.inventory.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	candidates := c.validator.Validate(c.ranker.Rank(profile, records))
	if len(candidates) == 0 {
		log.Info("no listing passed validation", "inventory_size", len(records))
		return handoff()
	}

	prompt, err := recommendationSystemPrompt(candidates)
	if err != nil {
		return nil, err
	}
	recoMessages := []model.ChatMessage{
		{Role: model.RoleSystem, Content: prompt},
		{Role: model.RoleUser, Content: profileMessage(profile)},
	}
	recommendation, err := c.aiClient.ChatCompletion(ctx, recoMessages)
	if err != nil {
		return nil, externalError("failed to generate recommendations", err)
	}
	if err := c.moderate(ctx, recommendation); err != nil {
		return nil, err
	}

	session.Phase = model.PhaseRecommending
	session.Messages = append(recoMessages, model.ChatMessage{Role: model.RoleAssistant, Content: recommendation})
	session.Profile = profile
	session.Candidates = candidates
	session.Transcript = append(session.Transcript,
		model.TranscriptEntry{Speaker: model.SpeakerUser, Text: text},
		model.TranscriptEntry{Speaker: model.SpeakerBot, Text: MessageFetchingMatches},
		model.TranscriptEntry{Speaker: model.SpeakerBot, Text: recommendation},
	)
	if err := c.save(ctx, session); err != nil {
		return nil, err
	}

	return &model.TurnResult{
		Outcome:    model.OutcomeRecommendations,
		Replies:    []string{MessageFetchingMatches, recommendation},
		Candidates: candidates,
	}, nil
}

// recommend forwards a turn into the recommendation dialogue
func (c *Conversation) recommend(ctx context.Context, session *model.Session, text string) (*model.TurnResult, error) {
	if err := c.moderate(ctx, text); err != nil {
		return nil, err
	}

	history := cloneMessages(session.Messages)
	history = append(history, model.ChatMessage{Role: model.RoleUser, Content: text})

	reply, err := c.aiClient.ChatCompletion(ctx, history)
	if err != nil {
		return nil, externalError("failed to generate reply", err)
	}
	if err := c.moderate(ctx, reply); err != nil {
		return nil, err
	}

	session.Messages = append(history, model.ChatMessage{Role: model.RoleAssistant, Content: reply})
	session.Transcript = append(session.Transcript,
		model.TranscriptEntry{Speaker: model.SpeakerUser, Text: text},
		model.TranscriptEntry{Speaker: model.SpeakerBot, Text: reply},
	)
	if err := c.save(ctx, session); err != nil {
		return nil, err
	}
	return &model.TurnResult{Outcome: model.OutcomeReply, Replies: []string{reply}}, nil
}

// endFlagged moves the session to ENDED and changes nothing else.
// Moderation always runs before any field of the session is touched.
func (c *Conversation) endFlagged(ctx context.Context, session *model.Session, log *logger.Logger) (*model.TurnResult, error) {
	session.Phase = model.PhaseEnded
	if err := c.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	log.Warn("content flagged, session ended")
	return &model.TurnResult{
		Outcome: model.OutcomeContentFlagged,
		Replies: []string{MessageContentFlagged},
	}, nil
}

// moderate returns errContentFlagged when the text must not cross the boundary
func (c *Conversation) moderate(ctx context.Context, text string) error {
	flagged, err := c.aiClient.Moderate(ctx, text)
	if err != nil {
		return externalError("moderation check failed", err)
	}
	if flagged {
		return errContentFlagged
	}
	return nil
}

func (c *Conversation) save(ctx context.Context, session *model.Session) error {
	session.UpdatedAt = c.now()
	if err := c.store.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// logTurn writes the audit record without blocking the turn
func (c *Conversation) logTurn(entry model.TurnLog) {
	if c.turnLog == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.turnLog.LogTurn(ctx, entry); err != nil {
			c.log.Warn("failed to log turn", "session_id", entry.SessionID, "error", err)
		}
	}()
}

// externalError marks a failed model or moderation call
func externalError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrExternalService, err)
}

func cloneMessages(messages []model.ChatMessage) []model.ChatMessage {
	out := make([]model.ChatMessage, len(messages), len(messages)+2)
	copy(out, messages)
	return out
}

func candidateIDs(candidates []model.ScoredCandidate) []int64 {
	if len(candidates) == 0 {
		return nil
	}
	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	return ids
}
