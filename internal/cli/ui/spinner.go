package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// spinner animates next to a message on its own goroutine until stopped.
type spinner struct {
	w       io.Writer
	message string
	quit    chan struct{}
	done    chan struct{}
}

func (s *spinner) start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		frame := 0
		for {
			select {
			case <-s.quit:
				return
			case <-ticker.C:
				fmt.Fprintf(s.w, "\r%s %s",
					color.CyanString(string(spinnerFrames[frame%len(spinnerFrames)])), s.message)
				frame++
			}
		}
	}()
}

// stop joins the animation goroutine, clears the line, and prints the final
// status line in its place.
func (s *spinner) stop(final string) {
	close(s.quit)
	<-s.done
	fmt.Fprintf(s.w, "\r\033[K%s\n", final)
}

// WithSpinner runs fn behind an animated spinner and replaces it with a
// check or cross line when fn returns. The error is passed through.
func WithSpinner(w io.Writer, message string, fn func() error) error {
	s := &spinner{
		w:       w,
		message: message,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.start()

	if err := fn(); err != nil {
		s.stop(color.RedString("✗ %s", message))
		return err
	}
	s.stop(color.GreenString("✓ %s", message))
	return nil
}
