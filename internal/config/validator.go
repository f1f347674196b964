package config

import (
	"fmt"
	"net"
	"strings"

	"gtp-xact/internal/gtp"
)

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	// Local GTP-C address must be a valid IP
	if net.ParseIP(c.GTP.Address) == nil {
		errs = append(errs, fmt.Sprintf("gtp.address must be a valid IP address, got %q", c.GTP.Address))
	}

	if c.GTP.Port <= 0 || c.GTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("gtp.port must be between 1 and 65535, got %d", c.GTP.Port))
	}

	for i, p := range c.Peers {
		if net.ParseIP(p.Address) == nil {
			errs = append(errs, fmt.Sprintf("peers[%d].address must be a valid IP address, got %q", i, p.Address))
		}
		if p.Port <= 0 || p.Port > 65535 {
			errs = append(errs, fmt.Sprintf("peers[%d].port must be between 1 and 65535, got %d", i, p.Port))
		}
		if p.Version != gtp.Version1 && p.Version != gtp.Version2 {
			errs = append(errs, fmt.Sprintf("peers[%d].version must be 1 or 2, got %d", i, p.Version))
		}
	}

	if c.Xact.PoolSize <= 0 {
		errs = append(errs, "xact.pool_size must be > 0")
	}

	// Zero disables a timer, negative values are meaningless
	if c.Xact.ResponseTimeoutMs < 0 {
		errs = append(errs, "xact.response_timeout_ms must be >= 0")
	}
	if c.Xact.HoldingTimeoutMs < 0 {
		errs = append(errs, "xact.holding_timeout_ms must be >= 0")
	}
	if c.Xact.ResponseRetries < 0 {
		errs = append(errs, "xact.response_retries must be >= 0")
	}
	if c.Xact.HoldingRetries < 0 {
		errs = append(errs, "xact.holding_retries must be >= 0")
	}

	for name, o := range c.Xact.Overrides {
		if len(messageKeys(name)) == 0 {
			errs = append(errs, fmt.Sprintf("xact.overrides: unknown message %q", name))
		}
		if o.ResponseTimeoutMs < 0 || o.HoldingTimeoutMs < 0 || o.ResponseRetries < 0 || o.HoldingRetries < 0 {
			errs = append(errs, fmt.Sprintf("xact.overrides.%s: values must be >= 0", name))
		}
	}

	if c.Echo.IntervalSec < 0 {
		errs = append(errs, "echo.interval_sec must be >= 0")
	}

	if c.Metrics.Address != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Address); err != nil {
			errs = append(errs, fmt.Sprintf("metrics.address must be host:port, got %q", c.Metrics.Address))
		}
	}

	// Log level must be valid
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
