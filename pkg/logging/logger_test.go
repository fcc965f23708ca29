/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger_test.go
Description: Tests for logger setup, file output, pruning and the custom formatter.
*/

package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerCreation(t *testing.T) {
	logger, err := NewLogger(nil)
	require.NoError(t, err)
	assert.NotNil(t, logger.Logrus())
	assert.Empty(t, logger.FilePath())
	assert.NoError(t, logger.Close())
}

func TestLoggerConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LoggerConfig)
		ok     bool
	}{
		{"default", func(*LoggerConfig) {}, true},
		{"bad format", func(c *LoggerConfig) { c.Format = "xml" }, false},
		{"bad level", func(c *LoggerConfig) { c.Level = "loud" }, false},
		{"dir without max files", func(c *LoggerConfig) { c.OutputDir = "logs"; c.MaxFiles = 0 }, false},
		{"console only ignores max files", func(c *LoggerConfig) { c.MaxFiles = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLoggerConfig()
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}

	_, err := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "xml"})
	assert.Error(t, err)
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&LoggerConfig{
		Level:   LogLevelWarning,
		Format:  LogFormatText,
		Console: &buf,
	})
	require.NoError(t, err)
	defer logger.Close()

	logger.Logrus().Info("hidden")
	logger.Logrus().Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&LoggerConfig{
		Level:   LogLevelInfo,
		Format:  LogFormatJSON,
		Console: &buf,
	})
	require.NoError(t, err)
	defer logger.Close()

	logger.Logrus().WithField("rows", 3).Info("Document parsed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Document parsed", entry["msg"])
	assert.Equal(t, float64(3), entry["rows"])
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	logger, err := NewLogger(&LoggerConfig{
		Level:     LogLevelInfo,
		Format:    LogFormatCustom,
		OutputDir: dir,
		MaxFiles:  5,
		Console:   &console,
	})
	require.NoError(t, err)

	logger.Logrus().Info("Save completed")
	path := logger.FilePath()
	require.NoError(t, logger.Close())

	assert.Equal(t, dir, filepath.Dir(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Save completed")
	assert.Contains(t, console.String(), "Save completed")
}

func TestCleanupKeepsNewestFiles(t *testing.T) {
	dir := t.TempDir()
	old := []string{
		"tablemend_2020-01-01_00-00-00.000.log",
		"tablemend_2020-01-02_00-00-00.000.log",
		"tablemend_2020-01-03_00-00-00.000.log",
	}
	for _, name := range old {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.log"), []byte("x"), 0644))

	logger, err := NewLogger(&LoggerConfig{
		Level:     LogLevelInfo,
		Format:    LogFormatText,
		OutputDir: dir,
		MaxFiles:  2,
		Console:   &bytes.Buffer{},
	})
	require.NoError(t, err)
	current := logger.FilePath()
	require.NoError(t, logger.Close())

	files, err := filepath.Glob(filepath.Join(dir, "tablemend_*.log"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, old[2]), current}, files)
	assert.FileExists(t, filepath.Join(dir, "other.log"))
}

func TestCustomFormatter(t *testing.T) {
	f := &CustomFormatter{}
	entry := &logrus.Entry{
		Level:   logrus.WarnLevel,
		Message: "Remote save failed, falling back to local backup",
		Time:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Data: logrus.Fields{
			"document": "d1",
			"attempt":  2,
			"error":    errors.New("boom"),
		},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t,
		"WARNING [BACKUP] Remote save failed, falling back to local backup attempt=2 document=d1 error=boom\n",
		string(out))
}

func TestCustomFormatterTimestampAndColors(t *testing.T) {
	f := &CustomFormatter{Timestamp: true, Colors: true}
	entry := &logrus.Entry{
		Level:   logrus.InfoLevel,
		Message: "Network state changed",
		Time:    time.Date(2024, 5, 1, 12, 30, 15, 0, time.UTC),
		Data:    logrus.Fields{},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "2024-05-01 12:30:15.000")
	assert.Contains(t, s, "\033[32mINFO\033[0m")
	assert.Contains(t, s, "[NET]")
}

func TestSubsystemTag(t *testing.T) {
	tests := map[string]string{
		"Network state changed":                 "NET",
		"Back online, saving pending changes":   "NET",
		"Local backup found, offering recovery": "BACKUP",
		"Save completed":                        "SAVE",
		"Document submitted":                    "SAVE",
		"Document parsed":                       "PARSE",
		"Parse warning":                         "PARSE",
		"History recorded":                      "HISTORY",
		"Remote request failed":                 "REMOTE",
		"Something else":                        "",
	}
	for msg, want := range tests {
		assert.Equal(t, want, subsystemTag(msg), msg)
	}
}

func TestFormatValueTruncatesLongStrings(t *testing.T) {
	long := string(bytes.Repeat([]byte("a"), maxValueLen+10))
	assert.Equal(t, long[:maxValueLen]+"...", formatValue(long))
	assert.Equal(t, "[4 bytes]", formatValue([]byte("abcd")))
	assert.Equal(t, "1.5s", formatValue(1500*time.Millisecond))
}
