package staging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	s, err := New(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestStageAndRelease(t *testing.T) {
	s := newTestStore(t, Config{})

	att, err := s.Stage("run-1", "offer.pdf", strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if att.Name != "offer.pdf" || att.Size != int64(len("pdf bytes")) {
		t.Fatalf("attachment = %+v", att)
	}
	if _, err := os.Stat(att.Path); err != nil {
		t.Fatalf("staged file missing: %v", err)
	}

	s.Release("run-1")
	if _, err := os.Stat(att.Path); !os.IsNotExist(err) {
		t.Fatalf("release must delete the spool dir, stat err = %v", err)
	}
}

func TestStageSizeCap(t *testing.T) {
	s := newTestStore(t, Config{MaxFileSize: 8})

	// Exactly at the cap passes.
	if _, err := s.Stage("run-1", "ok.bin", strings.NewReader("12345678")); err != nil {
		t.Fatalf("at-limit upload rejected: %v", err)
	}
	// One byte over fails and leaves nothing behind.
	_, err := s.Stage("run-1", "big.bin", strings.NewReader("123456789"))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, serr := os.Stat(filepath.Join(s.cfg.Dir, "run-1", "big.bin")); !os.IsNotExist(serr) {
		t.Fatalf("oversized upload must be deleted, stat err = %v", serr)
	}
}

func TestStageSanitizesName(t *testing.T) {
	s := newTestStore(t, Config{})

	att, err := s.Stage("run-1", "../../etc/passwd", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if filepath.Base(att.Path) != "passwd" {
		t.Fatalf("name not reduced to basename: %q", att.Path)
	}
	if !strings.HasPrefix(att.Path, s.cfg.Dir) {
		t.Fatalf("staged file escaped the spool dir: %q", att.Path)
	}

	if _, err := s.Stage("run-1", "  ", strings.NewReader("x")); err == nil {
		t.Fatalf("blank name must be rejected")
	}
}

func TestReleaseUnknownRunIsHarmless(t *testing.T) {
	s := newTestStore(t, Config{})
	s.Release("never-staged")
	s.Release("")
}

func TestSweepRemovesOnlyOldEntries(t *testing.T) {
	s := newTestStore(t, Config{MaxAge: time.Hour})

	if _, err := s.Stage("old-run", "a.bin", strings.NewReader("x")); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := s.Stage("fresh-run", "b.bin", strings.NewReader("x")); err != nil {
		t.Fatalf("stage: %v", err)
	}

	// Backdate one spool dir past MaxAge.
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(filepath.Join(s.cfg.Dir, "old-run"), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	s.sweep(time.Now())

	if _, err := os.Stat(filepath.Join(s.cfg.Dir, "old-run")); !os.IsNotExist(err) {
		t.Fatalf("old run dir must be swept, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.cfg.Dir, "fresh-run")); err != nil {
		t.Fatalf("fresh run dir must survive the sweep: %v", err)
	}
}

func TestSweepScheduleValidation(t *testing.T) {
	s := newTestStore(t, Config{SweepSchedule: "not a cron spec"})
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatalf("invalid sweep schedule must be rejected")
	}

	s2 := newTestStore(t, Config{SweepSchedule: "@every 1h"})
	if err := s2.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Start is idempotent, Stop drains.
	if err := s2.Start(); err != nil {
		t.Fatalf("second start: %v", err)
	}
	s2.Stop()
}
