package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"turbotransfer/models"
)

// FileStore keeps the history as a JSON array on disk.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Append(_ context.Context, rec models.TransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.read()
	if err != nil {
		// A corrupt history is replaced rather than blocking new records.
		history = nil
	}
	history = append(history, rec)
	if len(history) > HistoryLimit {
		history = history[len(history)-HistoryLimit:]
	}
	return s.write(history)
}

func (s *FileStore) List(_ context.Context) ([]models.TransferRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) read() ([]models.TransferRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.TransferRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Analytics: failed to read history: %w", err)
	}
	history := []models.TransferRecord{}
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("Analytics: corrupt history file: %w", err)
	}
	return history, nil
}

// write replaces the file through a rename so readers never see a partial array.
func (s *FileStore) write(history []models.TransferRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("Analytics: failed to create metadata dir: %w", err)
	}
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("Analytics: failed to write history: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("Analytics: failed to replace history: %w", err)
	}
	return nil
}
