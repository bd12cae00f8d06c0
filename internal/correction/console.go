// Package correction holds what the ledger correction jobs share: the
// operator console and the run summary helpers.
package correction

import (
	"fmt"
	"io"
	"sync"
)

// Console writes human-readable progress lines and keeps a copy of them.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	lines []string
}

// NewConsole returns a console writing to out. A nil writer discards output.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = io.Discard
	}
	return &Console{out: out}
}

// Line prints a formatted line.
func (c *Console) Line(format string, args ...any) {
	if c == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, msg)
	_, _ = fmt.Fprintln(c.out, msg)
}

// Error prints a formatted line flagged as an error.
func (c *Console) Error(format string, args ...any) {
	c.Line("ERROR: "+format, args...)
}

// Lines returns every line printed so far.
func (c *Console) Lines() []string {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}
