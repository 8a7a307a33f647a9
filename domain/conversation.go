package domain

import (
	"sort"
	"sync"
)

// Conversation is the ordered, append-only message log owned by the
// conversation view. The pipeline only appends; messages are never
// mutated or removed.
//
// Replies across overlapping turns are ordered by turn number, not by
// arrival time: a slow reply to turn N renders in turn N's slot even
// when turn N+1 already resolved.
type Conversation struct {
	mu       sync.Mutex
	messages []ChatMessage
	nextTurn int
	watchers []chan ChatMessage
}

// NewConversation creates an empty conversation. A non-empty greeting
// becomes the opening assistant message (turn 0, agent meta).
func NewConversation(greeting string) *Conversation {
	c := &Conversation{nextTurn: 1}
	if greeting != "" {
		c.messages = append(c.messages, NewAssistantMessage(0, greeting, AgentMeta))
	}
	return c
}

// AppendUser appends a user message and allocates its turn number.
// The append happens synchronously, before any network round trip, so
// the view reflects user intent immediately.
func (c *Conversation) AppendUser(content string, audioOrigin bool) ChatMessage {
	c.mu.Lock()
	turn := c.nextTurn
	c.nextTurn++
	msg := NewUserMessage(turn, content, audioOrigin)
	c.messages = append(c.messages, msg)
	watchers := append([]chan ChatMessage(nil), c.watchers...)
	c.mu.Unlock()

	broadcast(watchers, msg)
	return msg
}

// AppendReply appends the assistant reply for the given turn.
func (c *Conversation) AppendReply(turn int, content string, agent AgentLabel) ChatMessage {
	c.mu.Lock()
	msg := NewAssistantMessage(turn, content, agent)
	c.messages = append(c.messages, msg)
	watchers := append([]chan ChatMessage(nil), c.watchers...)
	c.mu.Unlock()

	broadcast(watchers, msg)
	return msg
}

// Messages returns a copy of the log ordered by (turn, user before
// assistant). Within the same turn and sender, arrival order is kept.
func (c *Conversation) Messages() []ChatMessage {
	c.mu.Lock()
	out := append([]ChatMessage(nil), c.messages...)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Turn != out[j].Turn {
			return out[i].Turn < out[j].Turn
		}
		return out[i].Sender == SenderUser && out[j].Sender == SenderAssistant
	})
	return out
}

// Len returns the number of messages in the log.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Watch registers a listener for appended messages. The returned cancel
// function unregisters it. Slow listeners miss events rather than block
// the pipeline.
func (c *Conversation) Watch(buffer int) (<-chan ChatMessage, func()) {
	ch := make(chan ChatMessage, buffer)

	c.mu.Lock()
	c.watchers = append(c.watchers, ch)
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		for i, w := range c.watchers {
			if w == ch {
				c.watchers = append(c.watchers[:i], c.watchers[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func broadcast(watchers []chan ChatMessage, msg ChatMessage) {
	for _, w := range watchers {
		select {
		case w <- msg:
		default:
		}
	}
}
