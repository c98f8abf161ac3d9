package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// sessionStamp is the timestamp layout embedded in log file names.
const sessionStamp = "20060102_150405"

// LogFilePath returns the per-session log file path under logsDir,
// named after the app and the session start time.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	name := fmt.Sprintf("%s.%s.log", appName, sessionStart.Format(sessionStamp))
	return filepath.Join(logsDir, name)
}
