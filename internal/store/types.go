package store

import (
	"context"
	"errors"
	"time"

	"github.com/Anant-tripathi/WABulkMessenger/internal/campaign"
)

var (
	ErrDisabled = errors.New("store disabled")
	ErrNotFound = errors.New("recipient list not found")
)

// Config configures persistence of saved recipient lists.
//
// Driver values:
//   - "file": dependency-free backend (one JSON document per list)
//   - "sqlite": SQLite database file (build tag "sqlite")
//
// If Driver is empty or "none", the store is disabled and CSV imports are
// one-shot.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// ListInfo summarizes one saved list.
type ListInfo struct {
	Name    string    `json:"name"`
	Count   int       `json:"count"`
	SavedAt time.Time `json:"saved_at"`
}

// Store persists named recipient lists so a CSV import can be reused across
// runs. Deliberately not a send-history log.
type Store interface {
	SaveList(ctx context.Context, name string, recipients []campaign.Recipient) error
	LoadList(ctx context.Context, name string) ([]campaign.Recipient, error)
	Lists(ctx context.Context) ([]ListInfo, error)
	DeleteList(ctx context.Context, name string) error
	Close() error
}
