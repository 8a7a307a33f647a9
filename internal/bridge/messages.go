package bridge

import (
	"encoding/json"
	"time"

	"github.com/happypartner/voicelink/domain"
)

// Event types pushed to connected UI clients.
const (
	EventMessage   = "message"
	EventNotice    = "notice"
	EventRecording = "recording"
)

// Command types accepted from UI clients.
const (
	CommandChat        = "chat"
	CommandRecordStart = "record_start"
	CommandRecordStop  = "record_stop"
)

// Event is one outbound frame on the UI socket.
type Event struct {
	Type      string       `json:"type"`
	Message   *MessageBody `json:"message,omitempty"`
	Notice    *NoticeBody  `json:"notice,omitempty"`
	Recording *bool        `json:"recording,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// MessageBody mirrors a conversation entry for the UI.
type MessageBody struct {
	ID          string `json:"id"`
	Turn        int    `json:"turn"`
	Content     string `json:"content"`
	Sender      string `json:"sender"`
	Agent       string `json:"agent,omitempty"`
	AudioOrigin bool   `json:"audio_origin"`
	Timestamp   int64  `json:"timestamp"`
}

// NoticeBody is a transient status banner.
type NoticeBody struct {
	Level string `json:"level"` // info, warning, error
	Text  string `json:"text"`
}

// Command is one inbound frame from a UI client.
type Command struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// ParseCommand decodes an inbound text frame.
func ParseCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// NewMessageEvent wraps a conversation message for broadcast.
func NewMessageEvent(msg domain.ChatMessage) Event {
	return Event{
		Type: EventMessage,
		Message: &MessageBody{
			ID:          msg.ID,
			Turn:        msg.Turn,
			Content:     msg.Content,
			Sender:      string(msg.Sender),
			Agent:       string(msg.Agent),
			AudioOrigin: msg.AudioOrigin,
			Timestamp:   msg.Timestamp.UnixMilli(),
		},
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewNoticeEvent wraps a status banner for broadcast.
func NewNoticeEvent(level, text string) Event {
	return Event{
		Type:      EventNotice,
		Notice:    &NoticeBody{Level: level, Text: text},
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewRecordingEvent reports a recording state change.
func NewRecordingEvent(active bool) Event {
	return Event{
		Type:      EventRecording,
		Recording: &active,
		Timestamp: time.Now().UnixMilli(),
	}
}
