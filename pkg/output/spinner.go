package output

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// Spinner shows activity on a terminal while a request is in flight. It is
// a no-op when disabled, so callers need not check.
type Spinner struct {
	mu      sync.Mutex
	enabled bool
	writer  io.Writer
	spinner *spinner.Spinner
}

// NewSpinner creates a spinner writing to w. It only animates when enabled.
func NewSpinner(w io.Writer, enabled bool) *Spinner {
	return &Spinner{enabled: enabled && w != nil, writer: w}
}

// Start shows the spinner with message. A running spinner just updates its text.
func (s *Spinner) Start(message string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return
	}
	if s.spinner == nil {
		s.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(s.writer))
		_ = s.spinner.Color("cyan")
	}
	s.spinner.Suffix = " " + message
	if !s.spinner.Active() {
		s.spinner.Start()
	}
}

// Stop clears the spinner.
func (s *Spinner) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spinner != nil && s.spinner.Active() {
		s.spinner.Stop()
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ColorsEnabled reports whether colored output should be written to w.
func ColorsEnabled(w io.Writer, noColor bool) bool {
	if noColor {
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return IsTerminal(w)
}
