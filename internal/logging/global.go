package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	defaultLogger Logger
	defaultOnce   sync.Once
)

// GetLogger returns the process-wide default logger. The level is taken from
// the LOG_LEVEL environment variable on first use.
func GetLogger() Logger {
	defaultOnce.Do(func() {
		level := os.Getenv("LOG_LEVEL")
		if level == "" {
			level = "info"
		}
		defaultLogger = NewLogrusAdapter(strings.ToLower(level), "text")
	})
	return defaultLogger
}

// SetAllLogLevels sets the global logrus level so every adapter created from
// a bare logrus.New() inherits it.
func SetAllLogLevels(level logrus.Level) {
	logrus.SetLevel(level)
}
