package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var _log = logrus.New()

// Init configures the shared logger. Debug switches to human-readable text
// output; otherwise entries are emitted as JSON at info level.
func Init(debug bool, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	_log.SetOutput(out)
	if debug {
		_log.SetLevel(logrus.DebugLevel)
		_log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	_log.SetLevel(logrus.InfoLevel)
	_log.SetFormatter(&logrus.JSONFormatter{})
}

// RotatingWriter returns a writer that tees to stdout and a size-rotated file
// inside dir. When dir cannot be created only stdout is used.
func RotatingWriter(dir, name string) io.Writer {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.Stdout
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, rotator)
}

// Log returns the base entry used across packages.
func Log() *logrus.Entry {
	return logrus.NewEntry(_log)
}

// WithFields returns an entry carrying the provided fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log().WithFields(fields)
}

// Component tags entries with the emitting subsystem.
func Component(name string) *logrus.Entry {
	return Log().WithField("component", name)
}
