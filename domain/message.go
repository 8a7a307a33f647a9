package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// AgentLabel tags an assistant reply with the backend reasoning agent
// that produced it.
type AgentLabel string

const (
	AgentMeta    AgentLabel = "meta"
	AgentSafety  AgentLabel = "safety"
	AgentEdu     AgentLabel = "edu"
	AgentEmotion AgentLabel = "emotion"
	AgentMemory  AgentLabel = "memory"
)

// KnownAgentLabel reports whether label is one of the agent labels the
// backend is allowed to emit.
func KnownAgentLabel(label AgentLabel) bool {
	switch label {
	case AgentMeta, AgentSafety, AgentEdu, AgentEmotion, AgentMemory:
		return true
	}
	return false
}

// ChatMessage is a single entry in the conversation log. Messages are
// immutable once created.
type ChatMessage struct {
	ID          string     `json:"id"`
	Turn        int        `json:"turn"`
	Content     string     `json:"content"`
	Sender      Sender     `json:"sender"`
	Timestamp   time.Time  `json:"timestamp"`
	AudioOrigin bool       `json:"is_audio_origin,omitempty"`
	Agent       AgentLabel `json:"agent_label,omitempty"`
}

// NewUserMessage builds a user-authored message for the given turn.
func NewUserMessage(turn int, content string, audioOrigin bool) ChatMessage {
	return ChatMessage{
		ID:          uuid.NewString(),
		Turn:        turn,
		Content:     content,
		Sender:      SenderUser,
		Timestamp:   time.Now(),
		AudioOrigin: audioOrigin,
	}
}

// NewAssistantMessage builds an assistant reply for the given turn.
func NewAssistantMessage(turn int, content string, agent AgentLabel) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Turn:      turn,
		Content:   content,
		Sender:    SenderAssistant,
		Timestamp: time.Now(),
		Agent:     agent,
	}
}
