// Package config provides configuration helpers for go-depthview commands.
package config

import (
	"os"
	"strconv"
)

// Default viewer configuration.
const (
	DefaultLogLevel  = "info"
	DefaultRecordDir = "."
	DefaultWebAddr   = ""
	DefaultMockCount = 1
)

// LogLevel returns the log level from DEPTHVIEW_LOG_LEVEL env var.
// Falls back to "info" if not set.
func LogLevel() string {
	if lvl := os.Getenv("DEPTHVIEW_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return DefaultLogLevel
}

// RecordDir returns the root directory for recording sessions from
// DEPTHVIEW_RECORD_DIR env var. Falls back to the working directory.
func RecordDir() string {
	if dir := os.Getenv("DEPTHVIEW_RECORD_DIR"); dir != "" {
		return dir
	}
	return DefaultRecordDir
}

// WebAddr returns the status server listen address from DEPTHVIEW_WEB_ADDR
// env var. Empty means the status server is disabled.
func WebAddr() string {
	if addr := os.Getenv("DEPTHVIEW_WEB_ADDR"); addr != "" {
		return addr
	}
	return DefaultWebAddr
}

// MockCount returns the number of simulated devices from
// DEPTHVIEW_MOCK_DEVICES env var. Falls back to one device.
func MockCount() int {
	if s := os.Getenv("DEPTHVIEW_MOCK_DEVICES"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMockCount
}
