package app

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Anant-tripathi/WABulkMessenger/internal/automation"
	"github.com/Anant-tripathi/WABulkMessenger/internal/automation/chrome"
	"github.com/Anant-tripathi/WABulkMessenger/internal/campaign"
	"github.com/Anant-tripathi/WABulkMessenger/internal/config"
	"github.com/Anant-tripathi/WABulkMessenger/internal/dispatch"
	"github.com/Anant-tripathi/WABulkMessenger/internal/httpapi"
	"github.com/Anant-tripathi/WABulkMessenger/internal/notify"
	obspprof "github.com/Anant-tripathi/WABulkMessenger/internal/observability/pprof"
	"github.com/Anant-tripathi/WABulkMessenger/internal/staging"
	"github.com/Anant-tripathi/WABulkMessenger/internal/store"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

// Mapping between the on-disk config sections and component configs.
// Durations arrive as strings and are parsed here so a bad value is caught
// at load/validate time, not mid-run.

func mapLogging(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapBrowser(cfg *config.Config) (chrome.Config, automation.Config, error) {
	b := cfg.Browser

	nav, err := config.ParseDurationField("browser.nav_timeout", b.NavTimeout)
	if err != nil {
		return chrome.Config{}, automation.Config{}, err
	}
	inputTimeout, err := config.ParseDurationField("browser.input_timeout", b.InputTimeout)
	if err != nil {
		return chrome.Config{}, automation.Config{}, err
	}
	settle, err := config.ParseDurationField("browser.settle_delay", b.SettleDelay)
	if err != nil {
		return chrome.Config{}, automation.Config{}, err
	}
	composer, err := config.ParseDurationField("browser.composer_timeout", b.ComposerTimeout)
	if err != nil {
		return chrome.Config{}, automation.Config{}, err
	}
	attach, err := config.ParseDurationField("browser.attach_timeout", b.AttachTimeout)
	if err != nil {
		return chrome.Config{}, automation.Config{}, err
	}
	send, err := config.ParseDurationField("browser.send_timeout", b.SendTimeout)
	if err != nil {
		return chrome.Config{}, automation.Config{}, err
	}

	cc := chrome.Config{
		LandingURL:   b.LandingURL,
		SendURL:      b.SendURL,
		ExecPath:     b.ExecPath,
		UserDataDir:  b.UserDataDir,
		Headless:     b.Headless,
		NavTimeout:   nav,
		InputTimeout: inputTimeout,
		SettleDelay:  settle,
		ComposerSel:  b.ComposerSelector,
		AttachSel:    b.AttachSelector,
		FileInputSel: b.FileInputSelector,
		SendIconSel:  b.SendIconSelector,
	}
	ac := automation.Config{
		ComposerTimeout: composer,
		AttachTimeout:   attach,
		SendTimeout:     send,
	}
	return cc, ac, nil
}

func mapDispatch(cfg *config.Config) (dispatch.Config, error) {
	minDelay, err := config.ParseDurationField("pacing.min_delay", cfg.Pacing.MinDelay)
	if err != nil {
		return dispatch.Config{}, err
	}
	maxDelay, err := config.ParseDurationField("pacing.max_delay", cfg.Pacing.MaxDelay)
	if err != nil {
		return dispatch.Config{}, err
	}
	ttl, err := config.ParseDurationField("dispatch.status_ttl", cfg.Dispatch.StatusTTL)
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{
		MinDelay:  minDelay,
		MaxDelay:  maxDelay,
		QueueSize: cfg.Dispatch.QueueSize,
		StatusMax: cfg.Dispatch.StatusMax,
		StatusTTL: ttl,
	}, nil
}

func mapStaging(cfg *config.Config) (staging.Config, error) {
	maxAge, err := config.ParseDurationField("staging.max_age", cfg.Staging.MaxAge)
	if err != nil {
		return staging.Config{}, err
	}
	return staging.Config{
		Dir:           cfg.Staging.Dir,
		MaxFileSize:   cfg.Staging.MaxFileSize,
		SweepSchedule: cfg.Staging.SweepSchedule,
		MaxAge:        maxAge,
	}, nil
}

func mapStore(cfg *config.Config) (store.Config, error) {
	if cfg.Store == nil {
		return store.Config{}, nil
	}
	busy, err := config.ParseDurationField("store.busy_timeout", cfg.Store.BusyTimeout)
	if err != nil {
		return store.Config{}, err
	}
	return store.Config{
		Driver:      cfg.Store.Driver,
		Path:        cfg.Store.Path,
		BusyTimeout: busy,
	}, nil
}

func mapNotify(cfg *config.Config) notify.Config {
	if cfg.Notify == nil {
		return notify.Config{}
	}
	return notify.Config{
		Enabled:    cfg.Notify.Enabled,
		Token:      cfg.Notify.Token,
		ChatID:     cfg.Notify.ChatID,
		RatePerMin: cfg.Notify.RatePerMin,
	}
}

func mapHTTP(cfg *config.Config) (httpapi.Config, error) {
	h := cfg.HTTP
	rt, err := config.ParseDurationField("http.read_timeout", h.ReadTimeout)
	if err != nil {
		return httpapi.Config{}, err
	}
	wt, err := config.ParseDurationField("http.write_timeout", h.WriteTimeout)
	if err != nil {
		return httpapi.Config{}, err
	}
	it, err := config.ParseDurationField("http.idle_timeout", h.IdleTimeout)
	if err != nil {
		return httpapi.Config{}, err
	}
	return httpapi.Config{
		Enabled:      h.Enabled,
		Addr:         h.Addr,
		Token:        h.Token,
		ReadTimeout:  rt,
		WriteTimeout: wt,
		IdleTimeout:  it,
		RatePerMin:   h.RatePerMin,
	}, nil
}

func mapPprof(cfg *config.Config) obspprof.Config {
	return obspprof.Config{
		Enabled: cfg.Pprof.Enabled,
		Addr:    cfg.Pprof.Addr,
		Token:   cfg.Pprof.Token,
	}
}

func compileContactPattern(cfg *config.Config) (*regexp.Regexp, error) {
	raw := strings.TrimSpace(cfg.Recipients.Pattern)
	if raw == "" {
		return regexp.MustCompile(campaign.DefaultContactPattern), nil
	}
	re, err := regexp.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("recipients.pattern: invalid regexp %q: %w", raw, err)
	}
	return re, nil
}

// buildPacing derives the pacing policy from the dispatch config, surfacing
// min/max violations as config errors.
func buildPacing(dc dispatch.Config) (*dispatch.Pacing, error) {
	return dispatch.NewPacing(dc.MinDelay, dc.MaxDelay)
}
