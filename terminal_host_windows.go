//go:build windows

package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// TerminalKeyboard reads raw stdin and plays notes from the keys.
// Only instantiated in main.go for interactive use, never in tests.
type TerminalKeyboard struct {
	keys         *noteKeyboard
	stopCh       chan struct{}
	done         chan struct{}
	quit         chan struct{}
	stopped      sync.Once
	fd           int
	oldTermState *term.State
}

func NewTerminalKeyboard(ctrl *MIDIController) *TerminalKeyboard {
	return &TerminalKeyboard{
		keys:   newNoteKeyboard(ctrl),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
		quit:   make(chan struct{}),
	}
}

func (h *TerminalKeyboard) Run(ctx context.Context) error {
	if err := h.start(); err != nil {
		return err
	}
	defer h.stop()

	fmt.Fprint(os.Stderr, "keyboard: a-k play, space releases, z/x octave, q quits\r\n")
	select {
	case <-ctx.Done():
		return nil
	case <-h.quit:
		return errQuit
	case <-h.done:
		// the reader also ends after a quit key
		select {
		case <-h.quit:
			return errQuit
		default:
			return nil
		}
	}
}

func (h *TerminalKeyboard) start() error {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		close(h.done)
		return fmt.Errorf("terminal keyboard: failed to set raw mode: %w", err)
	}
	h.oldTermState = oldState

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)

		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := os.Stdin.Read(buf)
			if n > 0 && h.keys.handleKey(buf[0]) {
				close(h.quit)
				return
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
	return nil
}

// stop restores the terminal. A read blocked on stdin keeps the goroutine
// alive until the next key arrives.
func (h *TerminalKeyboard) stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}
