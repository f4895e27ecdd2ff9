// Package clipboard copies the corrected text to the system clipboard and
// tracks the short-lived "copied" indicator.
package clipboard

import (
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

// ResetAfter is how long the copied state is shown
const ResetAfter = 2 * time.Second

// State of the copy indicator
type State int

const (
	StateIdle State = iota
	StateCopied
)

// String returns the string representation of a state.
func (s State) String() string {
	if s == StateCopied {
		return "copied"
	}
	return "idle"
}

// WriteFunc writes text to a clipboard
type WriteFunc func(text string) error

// System writes to the OS clipboard
var System WriteFunc = clipboard.WriteAll

// Copier writes text to a clipboard and reports StateCopied until the reset
// timer fires.
type Copier struct {
	write WriteFunc
	after time.Duration

	mu    sync.Mutex
	state State
	timer *time.Timer
}

// NewCopier creates a copier using write, or the system clipboard when nil
func NewCopier(write WriteFunc) *Copier {
	if write == nil {
		write = System
	}
	return &Copier{write: write, after: ResetAfter}
}

// State returns the current indicator state
func (c *Copier) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Copy writes text and starts the reset timer. A second copy while the
// indicator is shown restarts the timer.
func (c *Copier) Copy(text string) error {
	if err := c.write(text); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateCopied
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.after, func() {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
	})

	return nil
}
