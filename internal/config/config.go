// Package config loads and validates the daemon's HCL configuration.
package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"ferro.is/voxic/internal/brand"
)

// Config is the daemon configuration.
type Config struct {
	Listen string `hcl:"listen,optional" json:"listen"`

	// The managed Asterisk file.
	PJSIPConf  string `hcl:"pjsip_conf,optional" json:"pjsip_conf"`
	BackupDir  string `hcl:"backup_dir,optional" json:"backup_dir,omitempty"`
	MaxBackups int    `hcl:"max_backups,optional" json:"max_backups"`

	// Write pipeline.
	LockWait      string   `hcl:"lock_wait,optional" json:"lock_wait"`
	ReloadTimeout string   `hcl:"reload_timeout,optional" json:"reload_timeout"`
	ReloadCommand []string `hcl:"reload_command,optional" json:"reload_command,omitempty"`

	// Audit trail.
	AuditDB            string `hcl:"audit_db,optional" json:"audit_db"`
	AuditRetentionDays int    `hcl:"audit_retention_days,optional" json:"audit_retention_days"`

	// Logging.
	LogLevel string `hcl:"log_level,optional" json:"log_level"`
	LogJSON  bool   `hcl:"log_json,optional" json:"log_json"`

	// API authentication. No keys means the API only answers health
	// and metrics.
	APIKeys []APIKey `hcl:"api_key,block" json:"api_keys,omitempty"`
}

// APIKey is a named sha256 hash of a bearer key. The plaintext never
// appears in the config.
type APIKey struct {
	Name string `hcl:"name,label" json:"name"`
	Hash string `hcl:"hash" json:"hash"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:             "127.0.0.1:8088",
		PJSIPConf:          "/etc/asterisk/pjsip.conf",
		MaxBackups:         20,
		LockWait:           "5s",
		ReloadTimeout:      "10s",
		AuditDB:            brand.GetStateDir() + "/audit.db",
		AuditRetentionDays: 90,
		LogLevel:           "info",
	}
}

// applyDefaults fills zero-valued fields after decoding.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.PJSIPConf == "" {
		c.PJSIPConf = d.PJSIPConf
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = d.MaxBackups
	}
	if c.LockWait == "" {
		c.LockWait = d.LockWait
	}
	if c.ReloadTimeout == "" {
		c.ReloadTimeout = d.ReloadTimeout
	}
	if c.AuditDB == "" {
		c.AuditDB = d.AuditDB
	}
	if c.AuditRetentionDays == 0 {
		c.AuditRetentionDays = d.AuditRetentionDays
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Validate checks the configuration for problems a reload would trip
// over later.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.LockWait); err != nil {
		return fmt.Errorf("lock_wait: %w", err)
	}
	if _, err := time.ParseDuration(c.ReloadTimeout); err != nil {
		return fmt.Errorf("reload_timeout: %w", err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	}
	if c.MaxBackups < 0 {
		return fmt.Errorf("max_backups: must not be negative")
	}
	for _, k := range c.APIKeys {
		if k.Name == "" {
			return fmt.Errorf("api_key: name must not be empty")
		}
		if raw, err := hex.DecodeString(k.Hash); err != nil || len(raw) != 32 {
			return fmt.Errorf("api_key %q: hash must be 64 hex characters (sha256)", k.Name)
		}
	}
	return nil
}

// LockWaitDuration returns the parsed lock_wait. Validate runs first,
// so a parse failure here falls back to the default.
func (c *Config) LockWaitDuration() time.Duration {
	d, err := time.ParseDuration(c.LockWait)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// ReloadTimeoutDuration returns the parsed reload_timeout.
func (c *Config) ReloadTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ReloadTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}
