package storage

import (
	"fmt"
	"strings"

	"notifyd/pkg/logx"
)

// Open builds a Journal for the configured driver. An empty or "none"
// driver yields the no-op journal.
func Open(cfg Config, log logx.Logger) (Journal, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return Nop{}, nil
	case "sqlite":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("unknown journal driver %q", cfg.Driver)
	}
}
