package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"actionScope/internal/model"
)

// JsonlStore appends action records to a JSONL file. It is an append-only
// sink for file-mode runs: token lookups come back empty and rewrite deletes
// are no-ops.
type JsonlStore struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStore(path string) *JsonlStore {
	return &JsonlStore{path: path}
}

// AppendActions appends a batch of actions as JSON lines.
func (s *JsonlStore) AppendActions(_ context.Context, actions []model.TransactionAction) error {
	if len(actions) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, action := range actions {
		line, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("marshal action: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write action: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

// TokenMetadata has no persistent tier in file mode.
func (s *JsonlStore) TokenMetadata(context.Context, []string) (map[string]model.TokenMeta, error) {
	return map[string]model.TokenMeta{}, nil
}

// DeleteActions is a no-op for an append-only file.
func (s *JsonlStore) DeleteActions(context.Context, []string, []string) error {
	return nil
}
