// Package common holds the state and tool bookkeeping shared by all LLM
// provider implementations.
package common

import (
	"sync"

	"github.com/fastnlabs/fastn-agent/chat"
)

// State owns a chat's message history and token usage accounting. Providers
// take a History snapshot before each request and append the turn's messages
// after, so the lock is never held across network I/O.
type State struct {
	mu sync.Mutex

	systemPrompt string
	messages     []chat.Message

	lastMessageUsage chat.TokenUsageDetails
	cumulativeUsage  chat.TokenUsageDetails
}

func NewState(systemPrompt string, initialMessages []chat.Message) *State {
	msgs := make([]chat.Message, len(initialMessages))
	copy(msgs, initialMessages)
	return &State{
		systemPrompt: systemPrompt,
		messages:     msgs,
	}
}

// History returns the system prompt and a copy of the message history.
func (s *State) History() (string, []chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]chat.Message, len(s.messages))
	copy(msgs, s.messages)
	return s.systemPrompt, msgs
}

// AppendMessages adds messages to the history. A non-nil usage records the
// API round's token counts against the session totals.
func (s *State) AppendMessages(msgs []chat.Message, usage *chat.TokenUsageDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msgs...)

	if usage != nil && usage.TotalTokens > 0 {
		s.lastMessageUsage = *usage
		s.cumulativeUsage.InputTokens += usage.InputTokens
		s.cumulativeUsage.OutputTokens += usage.OutputTokens
		s.cumulativeUsage.TotalTokens += usage.TotalTokens
	}
}

// TokenUsage returns the token usage statistics.
func (s *State) TokenUsage() (chat.TokenUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return chat.TokenUsage{
		LastMessage: s.lastMessageUsage,
		Cumulative:  s.cumulativeUsage,
	}, nil
}
