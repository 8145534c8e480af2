//go:build sqlite
// +build sqlite

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Anant-tripathi/WABulkMessenger/internal/campaign"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) SaveList(ctx context.Context, name string, recipients []campaign.Recipient) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("list name is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO lists(name, saved_at) VALUES(?,?)
		 ON CONFLICT(name) DO UPDATE SET saved_at=excluded.saved_at`,
		name, time.Now().Format(time.RFC3339Nano),
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recipients WHERE list_name = ?`, name); err != nil {
		return err
	}
	for i, r := range recipients {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recipients(list_name, pos, display_name, contact_id, valid)
			 VALUES(?,?,?,?,?)`,
			name, i, r.DisplayName, r.ContactID, boolInt(r.Valid),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) LoadList(ctx context.Context, name string) ([]campaign.Recipient, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM lists WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT pos, display_name, contact_id, valid
		 FROM recipients WHERE list_name = ? ORDER BY pos`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []campaign.Recipient
	for rows.Next() {
		var pos, valid int
		var r campaign.Recipient
		if err := rows.Scan(&pos, &r.DisplayName, &r.ContactID, &valid); err != nil {
			return nil, err
		}
		r.ID = pos + 1
		r.Valid = valid != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Lists(ctx context.Context) ([]ListInfo, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.name, l.saved_at, COUNT(r.list_name)
		 FROM lists l LEFT JOIN recipients r ON r.list_name = l.name
		 GROUP BY l.name ORDER BY l.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ListInfo
	for rows.Next() {
		var li ListInfo
		var savedAt string
		if err := rows.Scan(&li.Name, &savedAt, &li.Count); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, savedAt); err == nil {
			li.SavedAt = t
		}
		out = append(out, li)
	}
	return out, rows.Err()
}

func (s *sqliteStore) DeleteList(ctx context.Context, name string) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM lists WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM recipients WHERE list_name = ?`, name)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
