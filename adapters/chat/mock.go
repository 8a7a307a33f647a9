package chat

import (
	"context"
	"fmt"

	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/domain/repositories"
)

// Mock is a placeholder chat service for local development.
type Mock struct{}

var _ repositories.ChatService = (*Mock)(nil)

// NewMock creates a mock chat service.
func NewMock() *Mock {
	return &Mock{}
}

// Send echoes a canned reply.
func (m *Mock) Send(ctx context.Context, req repositories.ChatRequest) (domain.Reply, error) {
	if req.Content == "" {
		return domain.Reply{Content: DefaultApology, Agent: domain.AgentEdu}, nil
	}
	return domain.Reply{
		Content: fmt.Sprintf("Thanks for telling me %q! What would you like to learn next?", req.Content),
		Agent:   domain.AgentEdu,
	}, nil
}
