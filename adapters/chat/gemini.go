package chat

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/domain/repositories"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"

	geminiSystemPrompt = "You are Happy Partner, a friendly education assistant for children. " +
		"Answer briefly, warmly, and at a level a young child can follow. " +
		"Refuse unsafe topics and gently redirect to learning."
)

// GeminiConfig holds configuration for the direct Gemini chat provider.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Gemini talks to the Gemini API directly, bypassing the backend. Used
// when the chat provider is set to gemini; replies are always labelled
// edu since no agent routing happens.
type Gemini struct {
	client *genai.Client
	model  string
	logger *zap.Logger

	mu      sync.Mutex
	history []*genai.Content
}

var _ repositories.ChatService = (*Gemini)(nil)

// NewGemini creates a direct Gemini chat client.
func NewGemini(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
		logger.Info("using default gemini model", zap.String("model", model))
	}

	return &Gemini{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Send forwards one turn to Gemini, carrying the conversation history.
// On failure it returns the synthesized meta reply with the error, the
// same contract as the backend dispatcher.
func (g *Gemini) Send(ctx context.Context, req repositories.ChatRequest) (domain.Reply, error) {
	failure := domain.Reply{Content: dispatchFailureText, Agent: domain.AgentMeta}

	g.mu.Lock()
	contents := make([]*genai.Content, 0, len(g.history)+2)
	contents = append(contents, genai.NewContentFromText(geminiSystemPrompt, genai.RoleUser))
	contents = append(contents, g.history...)
	userContent := genai.NewContentFromText(req.Content, genai.RoleUser)
	contents = append(contents, userContent)
	g.mu.Unlock()

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		g.logger.Error("gemini request failed", zap.Error(err))
		return failure, fmt.Errorf("gemini request failed: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return domain.Reply{Content: DefaultApology, Agent: domain.AgentEdu}, nil
	}

	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return domain.Reply{Content: DefaultApology, Agent: domain.AgentEdu}, nil
	}

	g.mu.Lock()
	g.history = append(g.history, userContent, genai.NewContentFromText(text, genai.RoleModel))
	g.mu.Unlock()

	return domain.Reply{Content: text, Agent: domain.AgentEdu}, nil
}
