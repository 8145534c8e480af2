package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Anant-tripathi/WABulkMessenger/internal/campaign"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

// fileStore is the dependency-free backend: one JSON document per list under
// a directory, written atomically via rename.
type fileStore struct {
	log logx.Logger
	dir string

	mu sync.Mutex
}

type listDoc struct {
	Name       string               `json:"name"`
	SavedAt    time.Time            `json:"saved_at"`
	Recipients []campaign.Recipient `json:"recipients"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("store.path is required for file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, dir: dir}, nil
}

func (s *fileStore) path(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid list name %q", name)
	}
	return filepath.Join(s.dir, name+".json"), nil
}

func (s *fileStore) SaveList(ctx context.Context, name string, recipients []campaign.Recipient) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	doc := listDoc{Name: name, SavedAt: time.Now(), Recipients: recipients}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *fileStore) LoadList(ctx context.Context, name string) ([]campaign.Recipient, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	b, err := os.ReadFile(path)
	s.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	var doc listDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("list %s: %w", name, err)
	}
	return doc.Recipients, nil
}

func (s *fileStore) Lists(ctx context.Context) ([]ListInfo, error) {
	s.mu.Lock()
	entries, err := os.ReadDir(s.dir)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]ListInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.log.Warn("unreadable list file skipped", logx.String("file", e.Name()), logx.Err(err))
			continue
		}
		var doc listDoc
		if err := json.Unmarshal(b, &doc); err != nil {
			s.log.Warn("corrupt list file skipped", logx.String("file", e.Name()), logx.Err(err))
			continue
		}
		out = append(out, ListInfo{Name: doc.Name, Count: len(doc.Recipients), SavedAt: doc.SavedAt})
	}
	return out, nil
}

func (s *fileStore) DeleteList(ctx context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	} else if err != nil {
		return err
	}
	return nil
}

func (s *fileStore) Close() error { return nil }
