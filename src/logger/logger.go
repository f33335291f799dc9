package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, etc.)
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ConsoleLogger writes human-readable logs to stderr so they never mix with
// the dashboard on stdout. Debug lines are written only when verbose.
type ConsoleLogger struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return NewWriterLogger(os.Stderr, verbose)
}

// NewWriterLogger returns a ConsoleLogger writing to w.
func NewWriterLogger(w io.Writer, verbose bool) *ConsoleLogger {
	return &ConsoleLogger{out: w, verbose: verbose}
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	c.write("[INFO] ", msg, args)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	c.write("[ERROR] ", msg, args)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	if c.verbose {
		c.write("[DEBUG] ", msg, args)
	}
}

func (c *ConsoleLogger) write(prefix, msg string, args []interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, prefix+msg+"\n", args...)
}

// SilentLogger discards all log messages.
// Used when running in TUI mode to prevent log output from interfering with the display.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
