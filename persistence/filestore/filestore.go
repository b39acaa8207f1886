// Package filestore persists session transcripts as JSON files, one file per
// session, in a single history directory.
package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fastnlabs/fastn-agent/chat"
	"github.com/fastnlabs/fastn-agent/internal/logging"
	"github.com/fastnlabs/fastn-agent/persistence"
)

var logger = logging.Logger().With("component", "filestore")

const fileExt = ".json"

// FileStore implements persistence.Store with one pretty-printed JSON file
// per session.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

var _ persistence.Store = &FileStore{}

// New creates a file store rooted at dir, creating the directory if needed.
func New(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("history directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the history directory.
func (f *FileStore) Dir() string {
	return f.dir
}

func (f *FileStore) sessionPath(sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session ID is required")
	}
	// Session IDs become filenames, so path separators are not allowed.
	if strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return "", fmt.Errorf("invalid session ID %q", sessionID)
	}
	return filepath.Join(f.dir, sessionID+fileExt), nil
}

// Load reads the session's transcript. A missing file or undecodable
// contents yield an empty transcript so a damaged history never blocks a
// new conversation.
func (f *FileStore) Load(sessionID string) (chat.Transcript, error) {
	path, err := f.sessionPath(sessionID)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return chat.Transcript{}, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var transcript chat.Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		logger.Warn("session file is corrupt, starting fresh", "session", sessionID, "error", err)
		return chat.Transcript{}, nil
	}

	return transcript, nil
}

// Save writes the transcript atomically by renaming a temp file into place.
func (f *FileStore) Save(sessionID string, transcript chat.Transcript) error {
	path, err := f.sessionPath(sessionID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, sessionID+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close session file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace session file: %w", err)
	}

	return nil
}

// Delete removes the session file. Deleting a session that does not exist is
// not an error.
func (f *FileStore) Delete(sessionID string) error {
	path, err := f.sessionPath(sessionID)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session file: %w", err)
	}
	return nil
}

// ListSessions returns the IDs of all stored sessions, sorted.
func (f *FileStore) ListSessions() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read history directory: %w", err)
	}

	var sessions []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, fileExt) {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(sessions)
	return sessions, nil
}

// Close is a no-op for the file store.
func (f *FileStore) Close() error {
	return nil
}
