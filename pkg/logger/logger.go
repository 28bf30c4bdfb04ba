package logger

import (
	"errors"
	"io"
)

// LoggerInstance defines the interface for logging backends.
type LoggerInstance interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Logger holds multiple logging backends and dispatches log calls to all of them.
// A nil *Logger discards everything, so components can log unconditionally.
type Logger struct {
	instances []LoggerInstance
}

// New creates a logger writing to every given backend. It is created once
// per run and closed when the run ends.
func New(instances ...LoggerInstance) *Logger {
	return &Logger{
		instances: instances,
	}
}

// Discard returns a logger without backends.
func Discard() *Logger {
	return &Logger{}
}

// Log writes a message at the default log level to all configured backends.
func (l *Logger) Log(message string, keyvals ...any) {
	if l == nil {
		return
	}

	for _, instance := range l.instances {
		instance.Log(message, keyvals...)
	}
}

// Info writes a message at INFO level to all configured backends.
func (l *Logger) Info(message string, keyvals ...any) {
	if l == nil {
		return
	}

	for _, instance := range l.instances {
		instance.Info(message, keyvals...)
	}
}

// Warn writes a message at WARN level to all configured backends.
func (l *Logger) Warn(message string, keyvals ...any) {
	if l == nil {
		return
	}

	for _, instance := range l.instances {
		instance.Warn(message, keyvals...)
	}
}

// Error writes a message at ERROR level to all configured backends.
func (l *Logger) Error(message string, keyvals ...any) {
	if l == nil {
		return
	}

	for _, instance := range l.instances {
		instance.Error(message, keyvals...)
	}
}

// Debug writes a message at DEBUG level to all configured backends.
func (l *Logger) Debug(message string, keyvals ...any) {
	if l == nil {
		return
	}

	for _, instance := range l.instances {
		instance.Debug(message, keyvals...)
	}
}

// Fatal writes a message at FATAL level and terminates the program.
func (l *Logger) Fatal(message string, keyvals ...any) {
	if l == nil {
		return
	}

	for _, instance := range l.instances {
		instance.Fatal(message, keyvals...)
	}
}

// Close flushes and closes every backend that holds a resource.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	var errs []error
	for _, instance := range l.instances {
		if closer, ok := instance.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}
