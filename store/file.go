package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gpagent/gpagent/core"
)

// jsonlStore is the shared append-only JSON Lines backend for the file-backed
// stores. Each session maps to one <id>.jsonl file under root; Append writes
// a single marshalled line and fsyncs before reporting the record committed.
// A per-store mutex serializes appends so concurrent sessions never interleave
// partial lines.
type jsonlStore[T any] struct {
	mu   sync.Mutex
	root string
}

func newJSONLStore[T any](root string) (*jsonlStore[T], error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrStoreIO, root, err)
	}
	return &jsonlStore[T]{root: root}, nil
}

// path maps a session ID to its backing file. Separators are replaced so a
// hostile ID cannot escape the store root.
func (s *jsonlStore[T]) path(sessionID string) string {
	safe := strings.NewReplacer("/", "__", "\\", "__", "..", "_").Replace(sessionID)
	return filepath.Join(s.root, safe+".jsonl")
}

func (s *jsonlStore[T]) append(sessionID string, record T) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: marshal record for %s: %v", ErrStoreIO, sessionID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrStoreIO, sessionID, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStoreIO, sessionID, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %v", ErrStoreIO, sessionID, err)
	}
	return nil
}

func (s *jsonlStore[T]) readAll(sessionID string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrStoreIO, sessionID, err)
	}
	defer f.Close()

	var records []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record T
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrStoreIO, sessionID, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrStoreIO, sessionID, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// FileTranscripts is a durable TranscriptStore writing one JSONL file per
// session under the configured data directory.
type FileTranscripts struct {
	store *jsonlStore[core.Turn]
}

// NewFileTranscripts creates a transcript store rooted at dir, creating the
// directory if needed.
func NewFileTranscripts(dir string) (*FileTranscripts, error) {
	s, err := newJSONLStore[core.Turn](dir)
	if err != nil {
		return nil, err
	}
	return &FileTranscripts{store: s}, nil
}

// Append durably records a turn.
func (s *FileTranscripts) Append(sessionID string, turn core.Turn) error {
	return s.store.append(sessionID, turn)
}

// ReadAll returns the session's full ordered turn sequence.
func (s *FileTranscripts) ReadAll(sessionID string) ([]core.Turn, error) {
	return s.store.readAll(sessionID)
}

// FileLog is a durable ExecutionLog writing one JSONL file per session under
// the configured log directory.
type FileLog struct {
	store *jsonlStore[Record]
}

// NewFileLog creates an execution log rooted at dir, creating the directory
// if needed.
func NewFileLog(dir string) (*FileLog, error) {
	s, err := newJSONLStore[Record](dir)
	if err != nil {
		return nil, err
	}
	return &FileLog{store: s}, nil
}

// Append durably records an execution log entry.
func (s *FileLog) Append(sessionID string, rec Record) error {
	return s.store.append(sessionID, rec)
}

// ReadAll returns the session's full ordered record sequence.
func (s *FileLog) ReadAll(sessionID string) ([]Record, error) {
	return s.store.readAll(sessionID)
}
