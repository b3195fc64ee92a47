package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// spinner animates a one-line status on a terminal while a long operation
// runs. The message can change while it spins.
type spinner struct {
	w       io.Writer
	frames  []string
	done    chan struct{}
	stopped chan struct{}

	mu      sync.Mutex
	message string
	width   int
	started bool
	once    sync.Once
}

func newSpinner(w io.Writer, message string) *spinner {
	return &spinner{
		w:       w,
		message: message,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins the animation.
func (s *spinner) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.draw(s.frames[i%len(s.frames)])
			}
		}
	}()
}

// SetMessage replaces the status text.
func (s *spinner) SetMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

// Stop ends the animation and clears the line. It is safe to call twice.
func (s *spinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.stopped
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
	})
}

func (s *spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := styleIconSpinner.Render(frame) + " " + StyleDim.Render(s.message)
	pad := ""
	if n := len(s.message) + 2; n < s.width {
		pad = strings.Repeat(" ", s.width-n)
	} else {
		s.width = n
	}
	fmt.Fprintf(s.w, "\r%s%s", line, pad)
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
