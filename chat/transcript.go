package chat

// Transcript is the ordered conversation history for a single session. It is
// append-only during a turn and replaced wholesale when a session is loaded or
// reset. A Transcript is owned by exactly one session and requires no locking.
type Transcript []Message

// Clone returns a shallow copy of the transcript. The backing array is copied
// so appends to the clone never alias the original.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// AddUser appends a user message with the given text.
func (t Transcript) AddUser(text string) Transcript {
	return append(t, UserMessage(text))
}

// LastAssistantText returns the text of the most recent assistant message,
// or "" if the transcript contains none.
func (t Transcript) LastAssistantText() string {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Role == AssistantRole {
			return t[i].GetText()
		}
	}
	return ""
}

// ValidForModel filters the transcript down to the subsequence of messages
// that is valid to replay to an LLM tool-calling API, preserving order.
//
// User messages always pass through. Assistant messages always pass through;
// an assistant message that carries tool calls establishes the set of tool
// call IDs that subsequent tool results may answer, and an assistant message
// without tool calls clears that set. A tool result is retained only if its
// ToolCallID matches the most recent tool-call-bearing assistant message and
// no earlier tool result in this pass already answered the same ID. Everything
// else - orphaned tool results, duplicate responses, tool messages that lost
// all of their results - is dropped rather than failing the whole request, so
// a turn can proceed even when a previous erroring turn left malformed history
// behind.
//
// The duplicate-ID bookkeeping resets each time a new tool-call-bearing
// assistant message is seen; dedup is scoped to a single assistant message's
// calls, not the whole transcript. Running ValidForModel on its own output
// returns an equal transcript.
func (t Transcript) ValidForModel() Transcript {
	valid := make(Transcript, 0, len(t))

	// IDs declared by the most recent tool-call-bearing assistant message,
	// and the subset already answered by an earlier tool result.
	var openCalls map[string]bool
	var answered map[string]bool

	for _, msg := range t {
		switch msg.Role {
		case UserRole:
			valid = append(valid, msg)

		case AssistantRole:
			if calls := msg.GetToolCalls(); len(calls) > 0 {
				openCalls = make(map[string]bool, len(calls))
				for _, tc := range calls {
					openCalls[tc.ID] = true
				}
				answered = make(map[string]bool, len(calls))
			} else {
				openCalls = nil
				answered = nil
			}
			valid = append(valid, msg)

		case ToolRole:
			if openCalls == nil {
				// No assistant message declared a matching call; orphaned.
				continue
			}
			var kept []Content
			for _, c := range msg.Contents {
				tr := c.ToolResult
				if tr == nil {
					continue
				}
				if !openCalls[tr.ToolCallID] || answered[tr.ToolCallID] {
					continue
				}
				answered[tr.ToolCallID] = true
				kept = append(kept, c)
			}
			if len(kept) == 0 {
				continue
			}
			valid = append(valid, Message{Role: ToolRole, Contents: kept})

		default:
			// Unknown roles are not replayable; drop them.
		}
	}

	return valid
}
