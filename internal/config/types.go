package config

// Config is the full daemon configuration. JSON and YAML are both
// accepted; YAML is coerced to JSON so one strict decoder covers both.
//
// All durations are Go duration strings (e.g. "500ms", "30s", "2m").
type Config struct {
	API     APIConfig     `json:"api"`
	Poller  PollerConfig  `json:"poller"`
	Toast   ToastConfig   `json:"toast"`
	Logging LoggingConfig `json:"logging"`

	// Journal controls the optional activity journal (mutation and toast
	// audit trail). Omit to disable.
	Journal *JournalConfig `json:"journal,omitempty"`

	// Debug controls the optional pprof/health HTTP endpoint.
	Debug *DebugConfig `json:"debug,omitempty"`
}

// APIConfig points the engine at the backend notification API and carries
// the session credentials supplied by the auth collaborator.
//
// Token is hot-reloadable: editing it from empty to non-empty starts the
// session (first forced fetch + polling); clearing it tears the session
// down.
type APIConfig struct {
	// BaseURL is the API root including the base path,
	// e.g. "https://dashboard.example.com/api".
	BaseURL string `json:"base_url"`
	Token   string `json:"token,omitempty"`
	User    string `json:"user,omitempty"`

	// Timeout bounds a single request. Default "10s".
	Timeout string `json:"timeout,omitempty"`
	// RatePerSec caps outbound calls. Default 5.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// PollerConfig controls the periodic unread-count probe and full fetches.
//
// Defaults (when fields are omitted/zero):
//   - spec: "@every 30s"
//   - full_min_interval: "120s"
//   - recency_window: "30m"
//   - page: 1, limit: 20
type PollerConfig struct {
	// Spec is a cron spec or @every interval for the tick.
	Spec string `json:"spec,omitempty"`
	// FullMinInterval throttles unforced full fetches.
	FullMinInterval string `json:"full_min_interval,omitempty"`
	// RecencyWindow bounds how old an unread notification may be and
	// still raise a toast.
	RecencyWindow string `json:"recency_window,omitempty"`
	Page          int    `json:"page,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

// ToastConfig controls the single-slot toast dispatcher.
type ToastConfig struct {
	// Duration is the auto-hide delay. Default "5s".
	Duration string `json:"duration,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level,omitempty"` // debug|info|warn|error
	Console bool       `json:"console"`
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// JournalConfig controls the activity journal.
//
// Example:
//
//	"journal": { "driver": "sqlite", "path": "./notifyd.db" }
type JournalConfig struct {
	// Driver is "sqlite" or "none"/empty (disabled).
	Driver string `json:"driver"`
	Path   string `json:"path,omitempty"`
	// BusyTimeout is the sqlite busy timeout. Default "2s".
	BusyTimeout string `json:"busy_timeout,omitempty"`
	// Retention prunes journal rows older than this. Default "168h".
	Retention string `json:"retention,omitempty"`
}

// DebugConfig controls the optional debug HTTP server.
//
// Bind to loopback; the endpoint is unauthenticated.
type DebugConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:6060"
}
