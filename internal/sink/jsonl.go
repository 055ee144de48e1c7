package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/galileosky/mercury-gateway/pkg/log"
)

// JSONLines appends one JSON object per line to path, and routes record
// construction failures for packets that carried a Mercury reading to a
// sibling "*_errors.jsonl" file. OS append semantics alone don't
// guarantee line atomicity for large records, so writes are
// mutex-guarded.
type JSONLines struct {
	mu        sync.Mutex
	path      string
	errPath   string
	file      *os.File
	errFile   *os.File
}

// NewJSONLines opens (creating if needed) the sink's output file at
// path, plus its error-file sibling.
func NewJSONLines(path string) (*JSONLines, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("jsonl sink: creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("jsonl sink: opening %s: %w", path, err)
	}

	errPath := errorPath(path)
	ef, err := os.OpenFile(errPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("jsonl sink: opening %s: %w", errPath, err)
	}

	return &JSONLines{path: path, errPath: errPath, file: f, errFile: ef}, nil
}

func errorPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_errors" + ext
}

// Save writes record as one JSON line. Context is accepted for
// interface conformance; the write itself is not cancellable mid-flush.
func (s *JSONLines) Save(_ context.Context, record map[string]any) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("jsonl sink: marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("jsonl sink: write: %w", err)
	}
	return nil
}

// SaveError records a Mercury-bearing packet that failed to become a
// proper record, per the error-handling table's "route to the JSON
// Lines sink's error file" policy.
func (s *JSONLines) SaveError(receivedAt time.Time, cause error, rawData []byte) error {
	entry := map[string]any{
		"_received_at": receivedAt.Format(time.RFC3339),
		"error":        cause.Error(),
		"raw_data":     fmt.Sprintf("%X", rawData),
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.errFile.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("jsonl sink: write error entry: %w", err)
	}
	return nil
}

// Flush reopens the underlying file handles against their paths. Used
// by the maintenance scheduler to guard against an externally-rotated
// log file becoming stale under a long-lived *os.File.
func (s *JSONLines) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.file.Sync(); err != nil {
		log.Warnf("jsonl sink: sync %s: %v", s.path, err)
	}
	newFile, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("jsonl sink: reopening %s: %w", s.path, err)
	}
	s.file.Close()
	s.file = newFile

	newErrFile, err := os.OpenFile(s.errPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("jsonl sink: reopening %s: %w", s.errPath, err)
	}
	s.errFile.Close()
	s.errFile = newErrFile

	return nil
}

// Close flushes and releases both file handles.
func (s *JSONLines) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err1 := s.file.Close()
	err2 := s.errFile.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
