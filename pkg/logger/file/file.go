package file

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// FileLogger implements LoggerInstance writing logfmt lines to a file that is
// truncated when the logger is created.
type FileLogger struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	logger *log.Logger
}

// FileLoggerParams contains configuration for creating a FileLogger.
type FileLoggerParams struct {
	Path  string
	Debug bool
}

// NewFileLogger opens params.Path for writing.
func NewFileLogger(params FileLoggerParams) (*FileLogger, error) {
	f, err := os.OpenFile(params.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level := log.InfoLevel
	if params.Debug {
		level = log.DebugLevel
	}

	fl := &FileLogger{file: f, buf: bufio.NewWriter(f)}
	fl.logger = log.NewWithOptions(lockedWriter{fl}, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Formatter:       log.LogfmtFormatter,
	})
	return fl, nil
}

type lockedWriter struct {
	fl *FileLogger
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.fl.mu.Lock()
	defer w.fl.mu.Unlock()
	return w.fl.buf.Write(p)
}

func (f *FileLogger) Log(message string, keyvals ...any) {
	f.logger.Print(message, keyvals...)
}

func (f *FileLogger) Info(message string, keyvals ...any) {
	f.logger.Info(message, keyvals...)
}

func (f *FileLogger) Warn(message string, keyvals ...any) {
	f.logger.Warn(message, keyvals...)
}

func (f *FileLogger) Error(message string, keyvals ...any) {
	f.logger.Error(message, keyvals...)
}

func (f *FileLogger) Debug(message string, keyvals ...any) {
	f.logger.Debug(message, keyvals...)
}

// Fatal flushes the file before the process exits.
func (f *FileLogger) Fatal(message string, keyvals ...any) {
	f.logger.Error(message, keyvals...)
	f.Close()
	os.Exit(1)
}

// Close flushes buffered lines and closes the file.
func (f *FileLogger) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	flushErr := f.buf.Flush()
	closeErr := f.file.Close()
	f.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
