package auditlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Sink is an append-only, line-oriented log for graded submissions. Lines
// are tab-delimited and timestamped; once written they are never rewritten.
type Sink struct {
	mu sync.Mutex
	f  *os.File
}

// Open creates (or opens for append) the audit log at path.
func Open(path string) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Sink{f: f}, nil
}

// Append writes one timestamped line joining the given fields with tabs.
// Embedded newlines in fields are flattened so every entry stays one line.
func (s *Sink) Append(at time.Time, fields ...string) error {
	clean := make([]string, len(fields))
	for i, f := range fields {
		clean[i] = strings.ReplaceAll(f, "\n", " ")
	}
	line := at.UTC().Format(time.RFC3339) + "\t" + strings.Join(clean, "\t") + "\n"

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.f.WriteString(line)
	return err
}

// Close releases the underlying file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
