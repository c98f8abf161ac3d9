package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 8, 14, 9, 30, 5, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		appName string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "logs",
			appName: "parceldash",
			want:    filepath.Join("logs", "parceldash.20260814_093005.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./logs",
			appName: "parceldash",
			want:    filepath.Join(".", "logs", "parceldash.20260814_093005.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "parceldash"),
			appName: "parceldash",
			want:    filepath.Join("/var", "log", "parceldash", "parceldash.20260814_093005.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, tt.appName, sessionStart)
			assert.Equal(t, tt.want, got)
		})
	}
}
