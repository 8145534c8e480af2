// Package staging spools uploaded attachment bytes to ephemeral storage.
//
// Files are staged per run, read once by the automation session, and
// released when the run finishes regardless of outcome. A periodic sweep
// removes anything a crashed or abandoned run left behind.
package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Anant-tripathi/WABulkMessenger/internal/campaign"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

// ErrTooLarge is returned when an upload exceeds the configured cap.
var ErrTooLarge = errors.New("attachment exceeds size limit")

type Config struct {
	Dir         string
	MaxFileSize int64 // default campaign.MaxAttachmentSize

	// SweepSchedule is a cron spec (robfig/cron, @every accepted) for the
	// orphan sweep; MaxAge is how long an orphaned run dir may linger.
	SweepSchedule string
	MaxAge        time.Duration
}

func (c *Config) setDefaults() {
	if strings.TrimSpace(c.Dir) == "" {
		c.Dir = "./uploads"
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = campaign.MaxAttachmentSize
	}
	if strings.TrimSpace(c.SweepSchedule) == "" {
		c.SweepSchedule = "@every 30m"
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 24 * time.Hour
	}
}

type Store struct {
	cfg Config
	log logx.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

func New(cfg Config, log logx.Logger) (*Store, error) {
	cfg.setDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("staging dir: %w", err)
	}
	return &Store{cfg: cfg, log: log}, nil
}

// Stage writes one upload under the run's spool dir and returns its
// attachment reference. Writes are capped at MaxFileSize; an oversized
// upload is deleted and rejected.
func (s *Store) Stage(runKey, name string, r io.Reader) (campaign.Attachment, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return campaign.Attachment{}, fmt.Errorf("invalid attachment name %q", name)
	}

	dir := filepath.Join(s.cfg.Dir, runKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return campaign.Attachment{}, err
	}
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return campaign.Attachment{}, err
	}

	// Copy one byte past the cap so an at-limit file and an over-limit file
	// are distinguishable.
	n, err := io.Copy(f, io.LimitReader(r, s.cfg.MaxFileSize+1))
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return campaign.Attachment{}, err
	}
	if n > s.cfg.MaxFileSize {
		_ = os.Remove(path)
		return campaign.Attachment{}, fmt.Errorf("%w: %s (max %d bytes)", ErrTooLarge, name, s.cfg.MaxFileSize)
	}

	return campaign.Attachment{Name: name, Path: path, Size: n}, nil
}

// Release deletes the run's spool dir. Cleanup failures are logged, never
// escalated: a leftover temp file must not fail a finished run.
func (s *Store) Release(runKey string) {
	if strings.TrimSpace(runKey) == "" {
		return
	}
	dir := filepath.Join(s.cfg.Dir, runKey)
	if err := os.RemoveAll(dir); err != nil {
		s.log.Warn("failed releasing staged files", logx.String("run", runKey), logx.Err(err))
		return
	}
	s.log.Debug("staged files released", logx.String("run", runKey))
}

// Start begins the periodic orphan sweep.
func (s *Store) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.SweepSchedule, func() { s.sweep(time.Now()) }); err != nil {
		return fmt.Errorf("staging sweep schedule %q: %w", s.cfg.SweepSchedule, err)
	}
	c.Start()
	s.cron = c
	s.log.Debug("staging sweep scheduled", logx.String("spec", s.cfg.SweepSchedule), logx.Duration("max_age", s.cfg.MaxAge))
	return nil
}

func (s *Store) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// sweep removes run dirs whose content is older than MaxAge. Those belong
// to runs that never released their spool (crash, kill -9).
func (s *Store) sweep(now time.Time) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		s.log.Warn("staging sweep failed", logx.Err(err))
		return
	}
	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < s.cfg.MaxAge {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.cfg.Dir, e.Name())); err != nil {
			s.log.Warn("staging sweep: remove failed", logx.String("entry", e.Name()), logx.Err(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.Info("staging sweep removed orphaned uploads", logx.Int("removed", removed))
	}
}
