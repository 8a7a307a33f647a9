package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/domain/repositories"
)

const (
	chatPath           = "/api/v1/chat"
	defaultChatTimeout = 30 * time.Second

	// DefaultApology is returned when no extraction rule matches the
	// response envelope.
	DefaultApology = "Sorry, I could not understand your question."

	// dispatchFailureText is the assistant-visible reply synthesized
	// when the request itself fails, so the conversation log always
	// receives a terminating message for the turn.
	dispatchFailureText = "Sorry, your message could not be delivered. Please try again later."
)

// BackendConfig holds configuration for the backend chat client.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
	Token   string
}

// Backend dispatches user text to the agent-routed chat endpoint. The
// backend wraps replies differently per agent, so responses are
// normalized through a fixed extraction precedence before they reach
// the conversation view.
type Backend struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.ChatService = (*Backend)(nil)

type chatRequestBody struct {
	Content   string `json:"content"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// NewBackend creates a backend chat client.
func NewBackend(config BackendConfig, logger *zap.Logger) (*Backend, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultChatTimeout
	}
	return &Backend{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		token:      config.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Send performs one chat request. On failure it returns the
// synthesized meta reply together with the error; it never returns an
// unusable reply.
func (b *Backend) Send(ctx context.Context, req repositories.ChatRequest) (domain.Reply, error) {
	failure := domain.Reply{Content: dispatchFailureText, Agent: domain.AgentMeta}

	payload, err := json.Marshal(chatRequestBody{
		Content:   req.Content,
		UserID:    req.UserID,
		SessionID: req.SessionID,
	})
	if err != nil {
		return failure, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+chatPath, bytes.NewReader(payload))
	if err != nil {
		return failure, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	if b.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		b.logger.Error("chat dispatch failed", zap.Error(err))
		return failure, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure, fmt.Errorf("failed to read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		b.logger.Error("chat service returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", errorDetail(body)))
		return failure, fmt.Errorf("chat service returned %d: %s", resp.StatusCode, errorDetail(body))
	}

	reply := Normalize(body)
	b.logger.Info("chat reply received",
		zap.String("agent", string(reply.Agent)),
		zap.Int("length", len(reply.Content)))
	return reply, nil
}

// Normalize applies the deterministic extraction order to a response
// envelope and returns one stable {content, agent} shape:
//
//	data.data.response > data.response > result.filtered_content >
//	response > answer > message > whole payload as a string >
//	DefaultApology
//
// The agent label follows the same precedence, defaulting to edu; the
// safety wrapper always labels its reply safety.
func Normalize(raw []byte) domain.Reply {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Reply{Content: DefaultApology, Agent: domain.AgentEdu}
	}

	switch v := payload.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return domain.Reply{Content: s, Agent: domain.AgentEdu}
		}
	case map[string]any:
		if reply, ok := normalizeEnvelope(v); ok {
			return reply
		}
	}
	return domain.Reply{Content: DefaultApology, Agent: domain.AgentEdu}
}

func normalizeEnvelope(m map[string]any) (domain.Reply, bool) {
	if data, ok := asMap(m["data"]); ok {
		if inner, ok := asMap(data["data"]); ok {
			if s, ok := asText(inner["response"]); ok {
				return domain.Reply{Content: s, Agent: agentLabel(inner, data, m)}, true
			}
		}
		if s, ok := asText(data["response"]); ok {
			return domain.Reply{Content: s, Agent: agentLabel(data, m)}, true
		}
	}
	if result, ok := asMap(m["result"]); ok {
		if s, ok := asText(result["filtered_content"]); ok {
			return domain.Reply{Content: s, Agent: domain.AgentSafety}, true
		}
	}
	for _, key := range []string{"response", "answer", "message"} {
		if s, ok := asText(m[key]); ok {
			return domain.Reply{Content: s, Agent: agentLabel(m)}, true
		}
	}
	return domain.Reply{}, false
}

// agentLabel searches the given envelopes, innermost first, for an
// agent tag the backend recognizes.
func agentLabel(envelopes ...map[string]any) domain.AgentLabel {
	for _, env := range envelopes {
		for _, key := range []string{"agent_type", "agent"} {
			if s, ok := asText(env[key]); ok {
				if label := domain.AgentLabel(s); domain.KnownAgentLabel(label) {
					return label
				}
			}
		}
	}
	return domain.AgentEdu
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asText(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func errorDetail(body []byte) string {
	var envelope struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Detail != "" {
			return envelope.Detail
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return string(body)
}
