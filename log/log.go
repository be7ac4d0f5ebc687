// Package log provides loggers for dsp components.
package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var debug bool

// Logger is a global interface for dsp loggers. Loggers are only ever
// called from control goroutines, never from the audio goroutine.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
}

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv("DSP_DEBUG"))
	if err != nil {
		debug = false
	}
}

// GetLogger returns a new logger instance.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// WithFields returns a logger entry with predefined fields, e.g. the id
// of a node manager.
func WithFields(l *logrus.Logger, fields map[string]interface{}) *logrus.Entry {
	return l.WithFields(logrus.Fields(fields))
}

// Silent is a logger that discards everything. It is used when no logger
// is configured.
var Silent Logger = silentLogger{}

type silentLogger struct{}

func (silentLogger) Debug(args ...interface{}) {}

func (silentLogger) Info(args ...interface{}) {}

func (silentLogger) Warn(args ...interface{}) {}
