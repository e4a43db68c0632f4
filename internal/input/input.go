// Package input reads interactive answers from the terminal with Ctrl+C support.
package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrInputAborted signals that interactive input was interrupted, either by
// context cancellation or by stdin being closed.
var ErrInputAborted = errors.New("input aborted")

// IsAborted reports whether err means the user aborted the prompt.
func IsAborted(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInputAborted) || errors.Is(err, context.Canceled)
}

// MapInputError normalizes EOF and closed-descriptor errors into ErrInputAborted.
func MapInputError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
		return ErrInputAborted
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"use of closed file", "bad file descriptor", "file already closed"} {
		if strings.Contains(msg, s) {
			return ErrInputAborted
		}
	}
	return err
}

// readWithContext runs read in a goroutine and returns early on ctx.
// Cancellation maps to ErrInputAborted, a deadline to context.DeadlineExceeded.
func readWithContext[T any](ctx context.Context, read func() (T, error)) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := read()
		ch <- result{v: v, err: MapInputError(err)}
	}()

	var zero T
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, context.DeadlineExceeded
		}
		return zero, ErrInputAborted
	case res := <-ch:
		return res.v, res.err
	}
}

// ReadLineWithContext reads a single line (newline included).
func ReadLineWithContext(ctx context.Context, reader *bufio.Reader) (string, error) {
	return readWithContext(ctx, func() (string, error) {
		return reader.ReadString('\n')
	})
}

// ReadPasswordWithContext reads a secret through readPassword (usually
// term.ReadPassword) without echo.
func ReadPasswordWithContext(ctx context.Context, readPassword func(int) ([]byte, error), fd int) ([]byte, error) {
	if readPassword == nil {
		return nil, errors.New("readPassword function is nil")
	}
	return readWithContext(ctx, func() ([]byte, error) {
		return readPassword(fd)
	})
}

// Confirm prints prompt followed by [y/N] (or [Y/n] when defaultYes) and
// waits for an answer. An empty answer picks the default; anything other
// than y/yes/n/no re-asks.
func Confirm(ctx context.Context, reader *bufio.Reader, out io.Writer, prompt string, defaultYes bool) (bool, error) {
	choices := "[y/N]"
	if defaultYes {
		choices = "[Y/n]"
	}
	for {
		fmt.Fprintf(out, "%s %s: ", prompt, choices)
		line, err := ReadLineWithContext(ctx, reader)
		if err != nil {
			// A final answer without trailing newline is still an answer.
			if !(errors.Is(err, ErrInputAborted) && line != "") {
				return false, err
			}
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			if err != nil {
				return false, err
			}
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, "Please answer yes or no.")
	}
}

// ReadPassphrase prompts twice for a secret on fd and fails when the two
// entries differ or are empty.
func ReadPassphrase(ctx context.Context, readPassword func(int) ([]byte, error), fd int, out io.Writer) (string, error) {
	fmt.Fprint(out, "Passphrase: ")
	first, err := ReadPasswordWithContext(ctx, readPassword, fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	fmt.Fprint(out, "Repeat passphrase: ")
	second, err := ReadPasswordWithContext(ctx, readPassword, fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if len(first) == 0 {
		return "", errors.New("passphrase must not be empty")
	}
	if string(first) != string(second) {
		return "", errors.New("passphrases do not match")
	}
	return string(first), nil
}
