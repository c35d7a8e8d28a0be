package model

import "time"

// Phase is the stage of a conversation
type Phase string

const (
	PhaseCollecting   Phase = "COLLECTING"
	PhaseRecommending Phase = "RECOMMENDING"
	PhaseEnded        Phase = "ENDED"
)

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Transcript speakers
const (
	SpeakerBot  = "bot"
	SpeakerUser = "user"
)

// ChatMessage represents a single message sent to the language model
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TranscriptEntry is one line of the conversation as shown to the user
type TranscriptEntry struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Session holds the state of one conversation.
// Messages is the model context of the active phase only; it is replaced on COLLECTING -> RECOMMENDING.
type Session struct {
	ID         string            `json:"id"`
	Phase      Phase             `json:"phase"`
	Messages   []ChatMessage     `json:"messages"`
	Transcript []TranscriptEntry `json:"transcript"`
	Profile    *UserProfile      `json:"profile,omitempty"`
	Candidates []ScoredCandidate `json:"candidates,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// TurnOutcome tells the caller what a turn resulted in
type TurnOutcome string

const (
	OutcomeReply           TurnOutcome = "reply"
	OutcomeRecommendations TurnOutcome = "recommendations"
	OutcomeContentFlagged  TurnOutcome = "content_flagged"
	OutcomeHandoff         TurnOutcome = "handoff"
)

// TurnResult is the result of processing one user message
type TurnResult struct {
	SessionID  string            `json:"session_id"`
	Phase      Phase             `json:"phase"`
	Outcome    TurnOutcome       `json:"outcome"`
	Replies    []string          `json:"replies"`
	Candidates []ScoredCandidate `json:"candidates,omitempty"`
}

// TurnLog is the audit record of one processed turn
type TurnLog struct {
	SessionID      string
	Phase          Phase
	Outcome        TurnOutcome
	UserMessage    string
	CandidateIDs   []int64
	ResponseTimeMs int
}
