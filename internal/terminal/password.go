package terminal

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"
)

// ReadPassword prints prompt on out and reads the password from in, which
// must be a terminal, with echoing disabled. When the context is canceled
// the terminal state is restored and the reading goroutine is leaked, it
// still holds the blocking read on the terminal.
func ReadPassword(ctx context.Context, in *os.File, out *os.File, prompt string) (string, error) {
	infd := int(in.Fd())

	// remember the state so a canceled read does not leave the terminal
	// with echoing disabled
	state, err := term.GetState(infd)
	if err != nil {
		return "", fmt.Errorf("unable to get terminal state: %w", err)
	}

	type result struct {
		password string
		err      error
	}
	ch := make(chan result, 1)

	go func() {
		if _, err := fmt.Fprint(out, prompt); err != nil {
			ch <- result{err: err}
			return
		}
		buf, err := term.ReadPassword(infd)
		if err != nil {
			ch <- result{err: err}
			return
		}
		_, err = fmt.Fprintln(out)
		ch <- result{password: string(buf), err: err}
	}()

	select {
	case <-ctx.Done():
		if err := term.Restore(infd, state); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "unable to restore terminal state: %v\n", err)
		}
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return "", fmt.Errorf("ReadPassword: %w", res.err)
		}
		return res.password, nil
	}
}
