package logger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Entry is one log line under construction. Metric fields set here are
// written next to whatever fields the context logger already carries.
//
//	logger.With(logger.Fields{logger.FieldStatus: "complete"}).
//		WithDuration(time.Since(start)).
//		Info(ctx, "Dispatch reconciled")
type Entry struct {
	fields Fields
}

// With starts an Entry with the given metric fields.
func With(fields Fields) *Entry {
	e := &Entry{fields: make(Fields, len(fields)+1)}
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// WithField sets one more field.
func (e *Entry) WithField(key string, value interface{}) *Entry {
	e.fields[key] = value
	return e
}

// WithDuration records d as whole milliseconds under duration_ms.
func (e *Entry) WithDuration(d time.Duration) *Entry {
	return e.WithField(FieldDurationMs, d.Milliseconds())
}

func (e *Entry) log(ctx context.Context, level logrus.Level, format string, args ...interface{}) {
	FromContext(ctx).Entry.WithFields(logrus.Fields(e.fields)).Logf(level, format, args...)
}

func (e *Entry) Debug(ctx context.Context, format string, args ...interface{}) {
	e.log(ctx, logrus.DebugLevel, format, args...)
}

func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	e.log(ctx, logrus.InfoLevel, format, args...)
}

func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	e.log(ctx, logrus.WarnLevel, format, args...)
}
