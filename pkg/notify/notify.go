/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: notify.go
Description: User-facing notices raised by the editing engine. A notice carries a stable
ID so a presenter can replace an earlier notice with the same ID instead of stacking it.
*/

package notify

// Level is the severity of a notice
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice IDs used across the engine
const (
	IDConnectivity    = "connectivity"
	IDLocalBackupSave = "local-backup-save"
	IDRemoteSaveFail  = "remote-save-fail"
	IDSaved           = "saved"
	IDRecovery        = "recovery"
	IDParseWarnings   = "parse-warnings"
	IDSubmit          = "submit"
	IDDelimiter       = "delimiter"
)

// Notice is a message for the user. Persistent notices stay until replaced.
type Notice struct {
	ID         string
	Level      Level
	Message    string
	Persistent bool
}

// Notifier receives notices
type Notifier interface {
	Notify(n Notice)
}

// Func adapts a plain function to Notifier
type Func func(Notice)

// Notify calls f(n)
func (f Func) Notify(n Notice) {
	f(n)
}

// Discard drops every notice
var Discard Notifier = Func(func(Notice) {})
