package config

// Config is the on-disk configuration (JSON or YAML; strict keys).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	HTTP    HTTPConfig    `json:"http"`
	Logging LoggingConfig `json:"logging"`
	Browser BrowserConfig `json:"browser,omitempty"`
	Pacing  PacingConfig  `json:"pacing,omitempty"`

	Recipients RecipientsConfig `json:"recipients,omitempty"`
	Staging    StagingConfig    `json:"staging,omitempty"`
	Dispatch   DispatchConfig   `json:"dispatch,omitempty"`

	Store  *StoreConfig  `json:"store,omitempty"`
	Notify *NotifyConfig `json:"notify,omitempty"`
	Pprof  PprofConfig   `json:"pprof,omitempty"`
}

type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Token   string `json:"token,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`

	RatePerMin int `json:"rate_per_min,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// BrowserConfig tunes the automated WhatsApp Web session. Selector
// overrides exist because the third-party markup changes without notice.
type BrowserConfig struct {
	LandingURL  string `json:"landing_url,omitempty"`
	SendURL     string `json:"send_url,omitempty"`
	ExecPath    string `json:"exec_path,omitempty"`
	UserDataDir string `json:"user_data_dir,omitempty"`
	Headless    bool   `json:"headless,omitempty"`

	NavTimeout      string `json:"nav_timeout,omitempty"`
	ComposerTimeout string `json:"composer_timeout,omitempty"`
	AttachTimeout   string `json:"attach_timeout,omitempty"`
	InputTimeout    string `json:"input_timeout,omitempty"`
	SendTimeout     string `json:"send_timeout,omitempty"`
	SettleDelay     string `json:"settle_delay,omitempty"`

	ComposerSelector  string `json:"composer_selector,omitempty"`
	AttachSelector    string `json:"attach_selector,omitempty"`
	FileInputSelector string `json:"file_input_selector,omitempty"`
	SendIconSelector  string `json:"send_icon_selector,omitempty"`
}

// PacingConfig is the single pacing source between recipients.
// min_delay must be strictly below max_delay: a constant cadence defeats
// the policy's purpose.
type PacingConfig struct {
	MinDelay string `json:"min_delay,omitempty"`
	MaxDelay string `json:"max_delay,omitempty"`
}

type RecipientsConfig struct {
	// Pattern is the contact-number validation regexp
	// (e.g. `^\+91\s?\d{10}$` for an India-only deployment).
	Pattern string `json:"pattern,omitempty"`
}

type StagingConfig struct {
	Dir           string `json:"dir,omitempty"`
	MaxFileSize   int64  `json:"max_file_size,omitempty"`
	SweepSchedule string `json:"sweep_schedule,omitempty"`
	MaxAge        string `json:"max_age,omitempty"`
}

type DispatchConfig struct {
	QueueSize int    `json:"queue_size,omitempty"`
	StatusMax int    `json:"status_max,omitempty"`
	StatusTTL string `json:"status_ttl,omitempty"`
}

type StoreConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type NotifyConfig struct {
	Enabled    bool   `json:"enabled"`
	Token      string `json:"token,omitempty"`
	ChatID     int64  `json:"chat_id,omitempty"`
	RatePerMin int    `json:"rate_per_min,omitempty"`
}

type PprofConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Token   string `json:"token,omitempty"`
}
