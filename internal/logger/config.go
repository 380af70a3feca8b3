package logger

import (
	"io"
	"os"
	"sync"

	"github.com/timmy/panelgate/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	rotating   io.Closer
	rotatingMu sync.Mutex
)

// FromConfig builds a process logger from the log section of the app config.
// A non-empty File adds a size-rotated file sink; with FileOnly set stdout is
// dropped.
func FromConfig(cfg config.LogConfig, service string) *Logger {
	out := io.Writer(os.Stdout)
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		rotatingMu.Lock()
		rotating = file
		rotatingMu.Unlock()

		if cfg.FileOnly {
			out = file
		} else {
			out = io.MultiWriter(os.Stdout, file)
		}
	}

	return New(&Config{
		Level:       cfg.Level,
		Format:      cfg.Format,
		Output:      out,
		ServiceName: service,
	})
}

// Sync closes the rotating log file opened by FromConfig, if any.
func Sync() error {
	rotatingMu.Lock()
	defer rotatingMu.Unlock()
	if rotating == nil {
		return nil
	}
	err := rotating.Close()
	rotating = nil
	return err
}
