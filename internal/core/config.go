package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"notifyd/internal/api"
	"notifyd/internal/config"
	"notifyd/internal/notification"
	"notifyd/internal/services/logging"
	"notifyd/internal/services/poller"
	"notifyd/internal/services/toast"
	"notifyd/internal/storage"
	"notifyd/pkg/logx"
)

// pollSpecParser mirrors the poller's parser; the config validator uses
// it to reject bad specs before they reach a running service.
var pollSpecParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func validateConfig(cfg *config.Config) error {
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if _, err := config.ParseDurationField("api.timeout", cfg.API.Timeout); err != nil {
		return err
	}
	if cfg.API.RatePerSec < 0 {
		return fmt.Errorf("api.rate_per_sec must be >= 0")
	}
	if spec := strings.TrimSpace(cfg.Poller.Spec); spec != "" {
		if _, err := pollSpecParser.Parse(spec); err != nil {
			return fmt.Errorf("poller.spec: invalid %q: %w", spec, err)
		}
	}
	for _, f := range []struct{ path, raw string }{
		{"poller.full_min_interval", cfg.Poller.FullMinInterval},
		{"poller.recency_window", cfg.Poller.RecencyWindow},
		{"toast.duration", cfg.Toast.Duration},
	} {
		if _, err := config.ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	if j := cfg.Journal; j != nil {
		if _, err := config.ParseDurationField("journal.busy_timeout", j.BusyTimeout); err != nil {
			return err
		}
		if _, err := config.ParseDurationField("journal.retention", j.Retention); err != nil {
			return err
		}
	}
	return nil
}

func apiConfig(cfg *config.Config) (api.Config, error) {
	timeout, err := config.ParseDurationOrDefault("api.timeout", cfg.API.Timeout, 10*time.Second)
	if err != nil {
		return api.Config{}, err
	}
	return api.Config{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    timeout,
		RatePerSec: cfg.API.RatePerSec,
	}, nil
}

func pollerConfig(cfg *config.Config) (poller.Config, error) {
	minInterval, err := config.ParseDurationOrDefault("poller.full_min_interval", cfg.Poller.FullMinInterval, poller.DefaultMinInterval)
	if err != nil {
		return poller.Config{}, err
	}
	window, err := config.ParseDurationOrDefault("poller.recency_window", cfg.Poller.RecencyWindow, notification.DefaultRecencyWindow)
	if err != nil {
		return poller.Config{}, err
	}
	return poller.Config{
		Spec:            cfg.Poller.Spec,
		FullMinInterval: minInterval,
		RecencyWindow:   window,
		Page:            cfg.Poller.Page,
		Limit:           cfg.Poller.Limit,
	}, nil
}

func toastConfig(cfg *config.Config) (toast.Config, error) {
	dur, err := config.ParseDurationOrDefault("toast.duration", cfg.Toast.Duration, toast.DefaultDuration)
	if err != nil {
		return toast.Config{}, err
	}
	return toast.Config{Duration: dur}, nil
}

func loggingConfig(cfg *config.Config) logging.Config {
	return logging.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logging.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func logxConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
	}
}

func journalConfig(cfg *config.Config) (storage.Config, error) {
	j := cfg.Journal
	if j == nil {
		return storage.Config{}, nil
	}
	busy, err := config.ParseDurationField("journal.busy_timeout", j.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	retention, err := config.ParseDurationField("journal.retention", j.Retention)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      j.Driver,
		Path:        j.Path,
		BusyTimeout: busy,
		Retention:   retention,
	}, nil
}
