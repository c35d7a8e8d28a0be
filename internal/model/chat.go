package model

// SendMessageRequest represents a user turn submission
type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// SessionResponse represents the visible state of a session
type SessionResponse struct {
	ID         string            `json:"id"`
	Phase      Phase             `json:"phase"`
	Transcript []TranscriptEntry `json:"transcript"`
	Profile    *UserProfile      `json:"profile,omitempty"`
	Candidates []ScoredCandidate `json:"candidates,omitempty"`
}

// NewSessionResponse builds the API view of a session
func NewSessionResponse(s *Session) SessionResponse {
	return SessionResponse{
		ID:         s.ID,
		Phase:      s.Phase,
		Transcript: s.Transcript,
		Profile:    s.Profile,
		Candidates: s.Candidates,
	}
}

// FeedbackRequest represents a user action on a recommended listing
type FeedbackRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	ListingID int64  `json:"listing_id" binding:"required"`
	Action    string `json:"action" binding:"required"` // click, contact, shortlist
}

// FeedbackResponse represents feedback response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
