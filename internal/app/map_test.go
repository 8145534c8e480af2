package app

import (
	"testing"
	"time"

	"github.com/Anant-tripathi/WABulkMessenger/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		HTTP:    config.HTTPConfig{Enabled: true, Addr: "127.0.0.1:5000"},
		Logging: config.LoggingConfig{Level: "info", Console: true},
		Pacing:  config.PacingConfig{MinDelay: "30s", MaxDelay: "90s"},
	}
}

func TestValidateConfigAccepts(t *testing.T) {
	if err := validateConfig(baseConfig()); err != nil {
		t.Fatalf("base config rejected: %v", err)
	}
}

func TestValidateConfigRejectsConstantPacing(t *testing.T) {
	cfg := baseConfig()
	cfg.Pacing = config.PacingConfig{MinDelay: "60s", MaxDelay: "60s"}
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("min == max pacing must be rejected")
	}
}

func TestValidateConfigRejectsBadDurations(t *testing.T) {
	cfg := baseConfig()
	cfg.Browser.ComposerTimeout = "15 seconds"
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("bad browser duration must be rejected")
	}

	cfg = baseConfig()
	cfg.HTTP.ReadTimeout = "-3s"
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("negative http timeout must be rejected")
	}
}

func TestValidateConfigRejectsBadPattern(t *testing.T) {
	cfg := baseConfig()
	cfg.Recipients.Pattern = "(["
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("broken regexp must be rejected")
	}
}

func TestValidateConfigNotifyNeedsCredentials(t *testing.T) {
	cfg := baseConfig()
	cfg.Notify = &config.NotifyConfig{Enabled: true}
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("enabled notify without token/chat must be rejected")
	}
	cfg.Notify = &config.NotifyConfig{Enabled: true, Token: "t", ChatID: 1}
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("credentialed notify rejected: %v", err)
	}
}

func TestMapBrowserDurations(t *testing.T) {
	cfg := baseConfig()
	cfg.Browser = config.BrowserConfig{
		NavTimeout:      "45s",
		ComposerTimeout: "15s",
		AttachTimeout:   "20s",
		SendTimeout:     "10s",
		SettleDelay:     "3s",
	}
	cc, ac, err := mapBrowser(cfg)
	if err != nil {
		t.Fatalf("mapBrowser: %v", err)
	}
	if ac.ComposerTimeout != 15*time.Second || ac.AttachTimeout != 20*time.Second || ac.SendTimeout != 10*time.Second {
		t.Fatalf("session config = %+v", ac)
	}
	if cc.NavTimeout != 45*time.Second || cc.SettleDelay != 3*time.Second {
		t.Fatalf("chrome config = %+v", cc)
	}
}

func TestMapDispatchDefaultsEmptyPacing(t *testing.T) {
	cfg := baseConfig()
	cfg.Pacing = config.PacingConfig{}
	dc, err := mapDispatch(cfg)
	if err != nil {
		t.Fatalf("mapDispatch: %v", err)
	}
	p, err := buildPacing(dc)
	if err != nil {
		t.Fatalf("empty pacing must fall back to defaults: %v", err)
	}
	min, max := p.Interval()
	if min >= max {
		t.Fatalf("interval = [%s, %s]", min, max)
	}
}
