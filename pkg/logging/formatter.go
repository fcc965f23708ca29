/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formatter.go
Description: Custom log formatter for tablemend. Renders one readable line per entry with
optional colors, a subsystem tag derived from the message, and sorted structured fields.
*/

package logging

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// maxValueLen truncates long string field values
const maxValueLen = 60

// CustomFormatter provides structured single-line output
type CustomFormatter struct {
	Timestamp bool
	Caller    bool
	Colors    bool
}

// Format formats a log entry
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var output strings.Builder

	if f.Timestamp {
		f.write(&output, 36, entry.Time.Format("2006-01-02 15:04:05.000"))
		output.WriteByte(' ')
	}

	f.write(&output, f.getLevelColor(entry.Level), strings.ToUpper(entry.Level.String()))
	output.WriteByte(' ')

	if tag := subsystemTag(entry.Message); tag != "" {
		f.write(&output, 35, "["+tag+"]")
		output.WriteByte(' ')
	}

	if f.Caller && entry.HasCaller() {
		f.write(&output, 33, fmt.Sprintf("[%s:%d]", filepath.Base(entry.Caller.File), entry.Caller.Line))
		output.WriteByte(' ')
	}

	output.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		output.WriteByte(' ')
		output.WriteString(f.formatFields(entry.Data))
	}

	output.WriteByte('\n')
	return []byte(output.String()), nil
}

func (f *CustomFormatter) write(b *strings.Builder, color int, s string) {
	if f.Colors {
		fmt.Fprintf(b, "\033[%dm%s\033[0m", color, s)
		return
	}
	b.WriteString(s)
}

// getLevelColor returns the ANSI color code for a log level
func (f *CustomFormatter) getLevelColor(level logrus.Level) int {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return 37 // White
	case logrus.InfoLevel:
		return 32 // Green
	case logrus.WarnLevel:
		return 33 // Yellow
	case logrus.ErrorLevel:
		return 31 // Red
	default:
		return 35 // Magenta
	}
}

// formatFields renders fields as key=value pairs in key order
func (f *CustomFormatter) formatFields(fields logrus.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		value := formatValue(fields[key])
		if f.Colors {
			parts = append(parts, fmt.Sprintf("\033[34m%s\033[0m=\033[32m%s\033[0m", key, value))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%s", key, value))
		}
	}
	return strings.Join(parts, " ")
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format("15:04:05.000")
	case error:
		return v.Error()
	case string:
		if len(v) > maxValueLen {
			return v[:maxValueLen] + "..."
		}
		return v
	case []byte:
		return fmt.Sprintf("[%d bytes]", len(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}

// subsystemTag returns a short tag for the subsystem a message comes from
func subsystemTag(message string) string {
	switch {
	case strings.Contains(message, "Network"), strings.Contains(message, "online"),
		strings.Contains(message, "Offline"):
		return "NET"
	case strings.Contains(message, "ackup"):
		return "BACKUP"
	case strings.Contains(message, "Save"), strings.Contains(message, "save"),
		strings.Contains(message, "submit"), strings.Contains(message, "Submit"):
		return "SAVE"
	case strings.Contains(message, "Pars"), strings.Contains(message, "parsed"):
		return "PARSE"
	case strings.Contains(message, "History"):
		return "HISTORY"
	case strings.Contains(message, "Remote"), strings.Contains(message, "Upload"):
		return "REMOTE"
	default:
		return ""
	}
}
