package keys

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/term"
)

// ErrNotTerminal is returned by RunTerminal when stdin is not a terminal.
var ErrNotTerminal = errors.New("stdin is not a terminal")

// RunTerminal puts stdin in raw mode and feeds each byte to k until ctx is
// done or a quit key is pressed. The terminal is restored before it returns.
func RunTerminal(ctx context.Context, k *Keyboard) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return ErrNotTerminal
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, oldState) }()
	if err := syscall.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("set nonblocking stdin: %w", err)
	}
	defer func() { _ = syscall.SetNonblock(fd, false) }()

	buf := make([]byte, 16)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-k.Done():
			return nil
		default:
		}
		n, err := syscall.Read(fd, buf)
		for _, b := range buf[:max(n, 0)] {
			k.Key(b)
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}
}
