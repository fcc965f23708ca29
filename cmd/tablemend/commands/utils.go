/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared helpers for the tablemend commands. Loads configuration, sets up
logging, and builds the backup store, document client and connectivity monitor the
commands work with.
*/

package commands

import (
	"fmt"
	"net/http"
	"os"

	"github.com/kleascm/tablemend/pkg/backup"
	"github.com/kleascm/tablemend/pkg/config"
	"github.com/kleascm/tablemend/pkg/connectivity"
	"github.com/kleascm/tablemend/pkg/logging"
	"github.com/kleascm/tablemend/pkg/remote"
	"github.com/kleascm/tablemend/pkg/tabular"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from flags, environment and the config file
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SetupLogging builds the logger described by cfg
func SetupLogging(cfg *config.Config) (*logging.Logger, error) {
	lc := logging.DefaultLoggerConfig()
	lc.Level = logging.LogLevel(cfg.LogLevel)
	lc.Format = logging.LogFormat(cfg.LogFormat)
	lc.OutputDir = cfg.LogDir
	logger, err := logging.NewLogger(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return logger, nil
}

// environment is what a command needs to talk to the outside world
type environment struct {
	config *config.Config
	log    *logging.Logger
}

func setup() (*environment, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := SetupLogging(cfg)
	if err != nil {
		return nil, err
	}
	return &environment{config: cfg, log: log}, nil
}

func (e *environment) Close() {
	e.log.Close()
}

func (e *environment) openBackups() (backup.Store, error) {
	store, err := backup.Open(e.config.BackupDriver, e.config.BackupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup store: %w", err)
	}
	return store, nil
}

func (e *environment) newRemote() (*remote.HTTPClient, error) {
	return remote.NewHTTPClient(remote.ClientConfig{
		BaseURL: e.config.APIBase,
		Timeout: e.config.RequestTimeout,
	}, nil, e.log.Logrus())
}

// newMonitor builds a monitor probing the configured server url. It is not started.
func (e *environment) newMonitor(url string) *connectivity.Monitor {
	if url == "" {
		url = e.config.ServerURL
	}
	probe := connectivity.HTTPProbe(&http.Client{}, url)
	return connectivity.NewMonitor(connectivity.Config{
		Interval: e.config.ProbeInterval,
		Timeout:  e.config.ProbeTimeout,
	}, probe, connectivity.SystemClock{}, e.log.Logrus())
}

// readDocument reads a file and decodes it to text
func readDocument(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	text, err := tabular.DecodeText(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return text, nil
}

// delimiterFlag parses a delimiter flag value
func delimiterFlag(cmd *cobra.Command, name string) (tabular.Delimiter, error) {
	raw, err := cmd.Flags().GetString(name)
	if err != nil {
		return tabular.Auto, err
	}
	d, err := tabular.ParseDelimiter(raw)
	if err != nil {
		return tabular.Auto, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return d, nil
}
