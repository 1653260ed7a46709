package replay

import (
	"fmt"
	"log/slog"
	"sync"
)

// Asserter reports violated invariants. Assertions never panic: the caller
// decides whether to continue or to drop the operation.
type Asserter interface {
	Assert(cond bool, format string, args ...any) bool
}

// LogAsserter logs failed assertions at error level and counts them.
type LogAsserter struct {
	logger *slog.Logger

	mu       sync.Mutex
	failures []string
}

// NewLogAsserter returns a LogAsserter writing to logger (slog.Default if nil).
func NewLogAsserter(logger *slog.Logger) *LogAsserter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogAsserter{logger: logger}
}

// Assert implements Asserter.
func (a *LogAsserter) Assert(cond bool, format string, args ...any) bool {
	if cond {
		return true
	}
	msg := fmt.Sprintf(format, args...)
	a.mu.Lock()
	a.failures = append(a.failures, msg)
	a.mu.Unlock()
	a.logger.Error("[Replay] assertion failed", "detail", msg)
	return false
}

// Failures returns every failed assertion message, oldest first.
func (a *LogAsserter) Failures() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.failures...)
}
