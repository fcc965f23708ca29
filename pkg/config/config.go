/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Runtime configuration for tablemend, read through viper from flags,
environment (TABLEMEND_*) and an optional config file.
*/

package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/kleascm/tablemend/pkg/backup"
	"github.com/kleascm/tablemend/pkg/history"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix
const EnvPrefix = "TABLEMEND"

// Keys
const (
	KeyServerURL      = "server_url"
	KeyAPIBase        = "api_base"
	KeyProbeInterval  = "probe.interval"
	KeyProbeTimeout   = "probe.timeout"
	KeyHistoryDepth   = "history.depth"
	KeyBackupDriver   = "backup.driver"
	KeyBackupPath     = "backup.path"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
	KeyLogDir         = "log_dir"
	KeyRequestTimeout = "request_timeout"
)

// Config holds every tunable of the engine
type Config struct {
	ServerURL      string        `json:"server_url"`
	APIBase        string        `json:"api_base"`
	ProbeInterval  time.Duration `json:"probe_interval"`
	ProbeTimeout   time.Duration `json:"probe_timeout"`
	HistoryDepth   int           `json:"history_depth"`
	BackupDriver   string        `json:"backup_driver"`
	BackupPath     string        `json:"backup_path"`
	LogLevel       string        `json:"log_level"`
	LogFormat      string        `json:"log_format"`
	LogDir         string        `json:"log_dir"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ServerURL:      "http://localhost:8080",
		APIBase:        "http://localhost:8080/api",
		ProbeInterval:  30 * time.Second,
		ProbeTimeout:   3 * time.Second,
		HistoryDepth:   history.DefaultDepth,
		BackupDriver:   backup.DriverFile,
		BackupPath:     filepath.Join(".tablemend", "backups"),
		LogLevel:       "info",
		LogFormat:      "custom",
		LogDir:         "",
		RequestTimeout: 15 * time.Second,
	}
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyServerURL, d.ServerURL)
	v.SetDefault(KeyAPIBase, d.APIBase)
	v.SetDefault(KeyProbeInterval, d.ProbeInterval)
	v.SetDefault(KeyProbeTimeout, d.ProbeTimeout)
	v.SetDefault(KeyHistoryDepth, d.HistoryDepth)
	v.SetDefault(KeyBackupDriver, d.BackupDriver)
	v.SetDefault(KeyBackupPath, d.BackupPath)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyLogDir, d.LogDir)
	v.SetDefault(KeyRequestTimeout, d.RequestTimeout)
}

// Load reads the configuration from v, applying defaults, the environment and the
// config file named by the "config" key when set
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	c := &Config{
		ServerURL:      v.GetString(KeyServerURL),
		APIBase:        v.GetString(KeyAPIBase),
		ProbeInterval:  v.GetDuration(KeyProbeInterval),
		ProbeTimeout:   v.GetDuration(KeyProbeTimeout),
		HistoryDepth:   v.GetInt(KeyHistoryDepth),
		BackupDriver:   v.GetString(KeyBackupDriver),
		BackupPath:     v.GetString(KeyBackupPath),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFormat:      v.GetString(KeyLogFormat),
		LogDir:         v.GetString(KeyLogDir),
		RequestTimeout: v.GetDuration(KeyRequestTimeout),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	for key, raw := range map[string]string{KeyServerURL: c.ServerURL, KeyAPIBase: c.APIBase} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute url: %q", key, raw)
		}
	}
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("%s must be positive", KeyProbeInterval)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("%s must be positive", KeyProbeTimeout)
	}
	if c.ProbeTimeout >= c.ProbeInterval {
		return fmt.Errorf("%s must be shorter than %s", KeyProbeTimeout, KeyProbeInterval)
	}
	if c.HistoryDepth <= 0 {
		return fmt.Errorf("%s must be positive", KeyHistoryDepth)
	}
	switch c.BackupDriver {
	case backup.DriverMemory:
	case backup.DriverFile, backup.DriverSQLite:
		if c.BackupPath == "" {
			return fmt.Errorf("%s is required for the %s driver", KeyBackupPath, c.BackupDriver)
		}
	default:
		return fmt.Errorf("unsupported backup driver: %s", c.BackupDriver)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s must be positive", KeyRequestTimeout)
	}
	return nil
}
