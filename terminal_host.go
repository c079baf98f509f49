//go:build !windows

package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"syscall"
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
	nonblockSet  bool
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

// Run plays notes until ctx is done or the user quits, in which case it
// returns errQuit. The terminal is restored on return.
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

// start sets stdin to raw, non-blocking mode and begins reading in a
// goroutine.
func (h *TerminalKeyboard) start() error {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		close(h.done)
		return fmt.Errorf("terminal keyboard: failed to set raw mode: %w", err)
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return fmt.Errorf("terminal keyboard: failed to set nonblocking stdin: %w", err)
	}
	h.nonblockSet = true

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)

		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := syscall.Read(h.fd, buf)
			if n > 0 && h.keys.handleKey(buf[0]) {
				close(h.quit)
				return
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
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

// stop terminates the reading goroutine and restores stdin.
func (h *TerminalKeyboard) stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}
