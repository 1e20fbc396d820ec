// Package diag collects human-readable build and validation diagnostics
// and writes them to a zap logger in grouped entries.
package diag

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ConsoleLogger accumulates diagnostic lines and script traces until Flush.
// It satisfies ledger.ScriptLogger.
type ConsoleLogger struct {
	mu       sync.Mutex
	log      *zap.Logger
	pending  []string
	history  []string
	hasError bool
	last     string
}

// NewConsoleLogger creates a logger writing to log (nil discards).
func NewConsoleLogger(log *zap.Logger) *ConsoleLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConsoleLogger{log: log}
}

func (c *ConsoleLogger) add(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		c.pending = append(c.pending, line)
		c.history = append(c.history, line)
		c.last = line
	}
}

// Print queues text, one entry per line.
func (c *ConsoleLogger) Print(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(text)
}

// Logf queues a formatted line.
func (c *ConsoleLogger) Logf(format string, args ...interface{}) {
	c.Print(fmt.Sprintf(format, args...))
}

// LogPrint queues a script trace line.
func (c *ConsoleLogger) LogPrint(line string) {
	c.Print("  | " + line)
}

// Error queues text and marks the pending group as an error.
func (c *ConsoleLogger) Error(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add("ERROR: " + text)
	c.hasError = true
}

// LastMessage returns the most recently queued line.
func (c *ConsoleLogger) LastMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Pending returns the queued, unflushed lines.
func (c *ConsoleLogger) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.pending...)
}

// History returns every line queued since the last Reset.
func (c *ConsoleLogger) History() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.history...)
}

// Flush writes the pending group as one entry, at error level when Error
// was called since the last flush.
func (c *ConsoleLogger) Flush() {
	c.mu.Lock()
	lines, isErr := c.take()
	c.mu.Unlock()

	if len(lines) == 0 {
		return
	}
	text := strings.Join(lines, "\n")
	if isErr {
		c.log.Error("diagnostics", zap.String("text", text))
		return
	}
	c.log.Info("diagnostics", zap.String("text", text))
}

// FlushError writes the pending group at error level under msg.
func (c *ConsoleLogger) FlushError(msg string) {
	c.mu.Lock()
	lines, _ := c.take()
	c.mu.Unlock()

	c.log.Error(msg, zap.String("text", strings.Join(lines, "\n")))
}

func (c *ConsoleLogger) take() ([]string, bool) {
	lines, isErr := c.pending, c.hasError
	c.pending, c.hasError = nil, false
	return lines, isErr
}

// Reset drops pending lines and history.
func (c *ConsoleLogger) Reset(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending, c.history, c.hasError, c.last = nil, nil, false, ""
	c.log.Debug("diagnostics reset", zap.String("reason", reason))
}
