package agent

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastnlabs/fastn-agent/chat"
)

// LastDocumentIDKey is the alias under which the most recent document ID is
// stored, so follow-up turns can refer to "the document I just created".
const LastDocumentIDKey = "last_document_id"

// ToolResultRecord captures one completed tool execution.
type ToolResultRecord struct {
	Tool      string          `json:"tool"`
	Input     json.RawMessage `json:"input,omitzero"`
	Output    string          `json:"output"`
	Timestamp time.Time       `json:"timestamp"`
}

// ResultHook runs after a tool's result has been recorded, to pull out data
// later turns will want by name. Hooks are keyed by tool name.
type ResultHook func(record ToolResultRecord, store *ResultStore)

// ResultStore accumulates tool results and named aliases for a session.
type ResultStore struct {
	mu      sync.Mutex
	records map[string]ToolResultRecord
	aliases map[string]string
}

// NewResultStore creates an empty result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		records: make(map[string]ToolResultRecord),
		aliases: make(map[string]string),
	}
}

// Set records a tool result under its tool call ID.
func (s *ResultStore) Set(toolCallID string, record ToolResultRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[toolCallID] = record
}

// Get retrieves a recorded tool result by tool call ID.
func (s *ResultStore) Get(toolCallID string) (ToolResultRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[toolCallID]
	return record, ok
}

// SetAlias stores a named value, like the last created document ID.
func (s *ResultStore) SetAlias(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[name] = value
}

// Alias retrieves a named value.
func (s *ResultStore) Alias(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.aliases[name]
	return value, ok
}

// Snapshot returns copies of all records and aliases.
func (s *ResultStore) Snapshot() (map[string]ToolResultRecord, map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make(map[string]ToolResultRecord, len(s.records))
	for k, v := range s.records {
		records[k] = v
	}
	aliases := make(map[string]string, len(s.aliases))
	for k, v := range s.aliases {
		aliases[k] = v
	}
	return records, aliases
}

// Reset discards all records and aliases.
func (s *ResultStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]ToolResultRecord)
	s.aliases = make(map[string]string)
}

// DocumentIDHook looks for a documentId (or docId) field in a tool's JSON
// output and stores it under the last_document_id alias. Output that isn't
// JSON, or has neither field, is left alone.
func DocumentIDHook(record ToolResultRecord, store *ResultStore) {
	var parsed struct {
		DocumentID string `json:"documentId"`
		DocID      string `json:"docId"`
	}
	if err := json.Unmarshal([]byte(record.Output), &parsed); err != nil {
		logger.Debug("tool output is not JSON, skipping document ID extraction", "tool", record.Tool, "error", err)
		return
	}

	docID := parsed.DocumentID
	if docID == "" {
		docID = parsed.DocID
	}
	if docID == "" {
		return
	}

	store.SetAlias(LastDocumentIDKey, docID)
	logger.Debug("captured document ID", "id", docID)
}

// extractResults pairs the tool_call and tool_result events of a turn's
// trace into records, stores them, and runs any hooks registered for the
// tool. The returned map holds just this turn's records plus any aliases the
// hooks set.
func (a *Agent) extractResults(trace []chat.StreamEvent) map[string]ToolResultRecord {
	extracted := make(map[string]ToolResultRecord)
	_, aliasesBefore := a.results.Snapshot()

	// Calls and results arrive interleaved: each tool_call event is followed
	// by its tool_result. Track the pending call so results missing an ID can
	// still be paired.
	var pending *chat.ToolCall

	for _, event := range trace {
		switch event.Type {
		case chat.StreamEventTypeToolCall:
			for i := range event.ToolCalls {
				pending = &event.ToolCalls[i]
			}

		case chat.StreamEventTypeToolResult:
			for _, tr := range event.ToolResults {
				record := ToolResultRecord{
					Tool:      tr.Name,
					Output:    tr.Content,
					Timestamp: time.Now(),
				}
				if tr.Error != "" {
					record.Output = tr.Error
				}

				id := tr.ToolCallID
				if pending != nil {
					if id == "" {
						id = pending.ID
					}
					if record.Tool == "" {
						record.Tool = pending.Name
					}
					record.Input = pending.Arguments
				}
				if id == "" {
					id = "call_" + uuid.NewString()
				}

				a.results.Set(id, record)
				extracted[id] = record

				for _, hook := range a.hooks[record.Tool] {
					hook(record, a.results)
				}
				pending = nil
			}
		}
	}

	// Aliases the hooks wrote this turn ride along in the returned map so
	// callers see them without consulting the store.
	_, aliasesAfter := a.results.Snapshot()
	for name, value := range aliasesAfter {
		if aliasesBefore[name] != value {
			extracted[name] = ToolResultRecord{Output: value, Timestamp: time.Now()}
		}
	}

	return extracted
}
