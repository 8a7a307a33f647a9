package repositories

import (
	"context"

	"github.com/happypartner/voicelink/domain"
)

// ChatRequest carries one user turn to the chat endpoint.
type ChatRequest struct {
	Content   string
	UserID    string
	SessionID string
}

// ChatService dispatches user text and normalizes the reply into one
// stable shape, regardless of which backend agent answered.
//
// Send always returns a usable Reply: on request failure it returns a
// synthesized assistant-visible error reply (agent meta) together with
// the error, so the conversation log still receives a terminating
// message for the turn.
type ChatService interface {
	Send(ctx context.Context, req ChatRequest) (domain.Reply, error)
}
