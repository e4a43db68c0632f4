package input

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

func TestMapInputError(t *testing.T) {
	if MapInputError(nil) != nil {
		t.Fatalf("expected nil")
	}
	if !errors.Is(MapInputError(io.EOF), ErrInputAborted) {
		t.Fatalf("expected ErrInputAborted for EOF")
	}
	if !errors.Is(MapInputError(os.ErrClosed), ErrInputAborted) {
		t.Fatalf("expected ErrInputAborted for ErrClosed")
	}

	for _, msg := range []string{
		"use of closed file",
		"bad file descriptor",
		"file already closed",
		"Use Of Closed File", // case-insensitive
	} {
		if !errors.Is(MapInputError(errors.New(msg)), ErrInputAborted) {
			t.Fatalf("expected ErrInputAborted for %q", msg)
		}
	}

	sentinel := errors.New("some other error")
	if MapInputError(sentinel) != sentinel {
		t.Fatalf("expected passthrough for non-mapped errors")
	}
}

func TestIsAborted(t *testing.T) {
	if IsAborted(nil) {
		t.Fatalf("expected false for nil")
	}
	if !IsAborted(ErrInputAborted) {
		t.Fatalf("expected true for ErrInputAborted")
	}
	if !IsAborted(context.Canceled) {
		t.Fatalf("expected true for context.Canceled")
	}
	if IsAborted(errors.New("other")) {
		t.Fatalf("expected false for non-abort errors")
	}
}

func TestReadLineWithContext_ReturnsLine(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("hello\n"))
	got, err := ReadLineWithContext(context.Background(), reader)
	if err != nil {
		t.Fatalf("ReadLineWithContext error: %v", err)
	}
	if got != "hello\n" {
		t.Fatalf("got=%q; want %q", got, "hello\n")
	}
}

func TestReadLineWithContext_NilContextWorks(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("hello\n"))
	got, err := ReadLineWithContext(nil, reader)
	if err != nil {
		t.Fatalf("ReadLineWithContext error: %v", err)
	}
	if got != "hello\n" {
		t.Fatalf("got=%q; want %q", got, "hello\n")
	}
}

func TestReadLineWithContext_CancelledReturnsAborted(t *testing.T) {
	pr, pw := io.Pipe()
	defer pr.Close()
	defer pw.Close()

	reader := bufio.NewReader(pr)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = ReadLineWithContext(ctx, reader)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("ReadLineWithContext did not return after cancellation")
	}
	if !errors.Is(err, ErrInputAborted) {
		t.Fatalf("err=%v; want %v", err, ErrInputAborted)
	}

	// Ensure the read goroutine unblocks and exits.
	_ = pw.Close()
}

func TestReadLineWithContext_DeadlineReturnsDeadlineExceeded(t *testing.T) {
	pr, pw := io.Pipe()
	defer pr.Close()
	defer pw.Close()

	reader := bufio.NewReader(pr)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = ReadLineWithContext(ctx, reader)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("ReadLineWithContext did not return after deadline")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v; want %v", err, context.DeadlineExceeded)
	}

	_ = pw.Close()
}

func TestReadPasswordWithContext_NilReadPasswordErrors(t *testing.T) {
	_, err := ReadPasswordWithContext(context.Background(), nil, 0)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestReadPasswordWithContext_ReturnsBytes(t *testing.T) {
	readPassword := func(fd int) ([]byte, error) {
		if fd != 123 {
			t.Fatalf("fd=%d; want 123", fd)
		}
		return []byte("secret"), nil
	}
	got, err := ReadPasswordWithContext(context.Background(), readPassword, 123)
	if err != nil {
		t.Fatalf("ReadPasswordWithContext error: %v", err)
	}
	if string(got) != "secret" {
		t.Fatalf("got=%q; want %q", string(got), "secret")
	}
}

func TestReadPasswordWithContext_NilContextWorks(t *testing.T) {
	readPassword := func(fd int) ([]byte, error) {
		return []byte("secret"), nil
	}
	got, err := ReadPasswordWithContext(nil, readPassword, 0)
	if err != nil {
		t.Fatalf("ReadPasswordWithContext error: %v", err)
	}
	if string(got) != "secret" {
		t.Fatalf("got=%q; want %q", string(got), "secret")
	}
}

func TestReadPasswordWithContext_CancelledReturnsAborted(t *testing.T) {
	unblock := make(chan struct{})
	readPassword := func(fd int) ([]byte, error) {
		<-unblock
		return []byte("secret"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := ReadPasswordWithContext(ctx, readPassword, 0)
	close(unblock) // ensure goroutine can exit
	if got != nil {
		t.Fatalf("expected nil bytes on cancel")
	}
	if !errors.Is(err, ErrInputAborted) {
		t.Fatalf("err=%v; want %v", err, ErrInputAborted)
	}
}

func TestReadPasswordWithContext_DeadlineReturnsDeadlineExceeded(t *testing.T) {
	unblock := make(chan struct{})
	readPassword := func(fd int) ([]byte, error) {
		<-unblock
		return []byte("secret"), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	got, err := ReadPasswordWithContext(ctx, readPassword, 0)
	close(unblock)
	if got != nil {
		t.Fatalf("expected nil bytes on deadline")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v; want %v", err, context.DeadlineExceeded)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		defaultYes bool
		want       bool
		wantErr    error
		reasked    bool
	}{
		{name: "yes", in: "y\n", want: true},
		{name: "full yes uppercase", in: "YES\n", want: true},
		{name: "no", in: "n\n", defaultYes: true, want: false},
		{name: "empty takes default no", in: "\n", want: false},
		{name: "empty takes default yes", in: "\n", defaultYes: true, want: true},
		{name: "answer without newline", in: "yes", want: true},
		{name: "reask on garbage", in: "maybe\ny\n", want: true, reasked: true},
		{name: "eof aborts", in: "", wantErr: ErrInputAborted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			got, err := Confirm(context.Background(), bufio.NewReader(strings.NewReader(tt.in)), &out, "Move backups?", tt.defaultYes)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err=%v; want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got=%v; want %v", got, tt.want)
			}
			if tt.reasked != strings.Contains(out.String(), "Please answer yes or no.") {
				t.Fatalf("unexpected prompt output: %q", out.String())
			}
		})
	}
}

func TestConfirmShowsDefaultInPrompt(t *testing.T) {
	var out strings.Builder
	_, _ = Confirm(context.Background(), bufio.NewReader(strings.NewReader("\n")), &out, "Proceed?", true)
	if !strings.HasPrefix(out.String(), "Proceed? [Y/n]: ") {
		t.Fatalf("prompt=%q", out.String())
	}
}

func TestReadPassphrase(t *testing.T) {
	seq := func(answers ...string) func(int) ([]byte, error) {
		i := 0
		return func(int) ([]byte, error) {
			if i >= len(answers) {
				return nil, io.EOF
			}
			a := answers[i]
			i++
			return []byte(a), nil
		}
	}

	var out strings.Builder
	got, err := ReadPassphrase(context.Background(), seq("hunter2", "hunter2"), 0, &out)
	if err != nil || got != "hunter2" {
		t.Fatalf("got=%q err=%v", got, err)
	}

	if _, err := ReadPassphrase(context.Background(), seq("a", "b"), 0, &out); err == nil || !strings.Contains(err.Error(), "do not match") {
		t.Fatalf("expected mismatch error, got %v", err)
	}
	if _, err := ReadPassphrase(context.Background(), seq("", ""), 0, &out); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty error, got %v", err)
	}
	if _, err := ReadPassphrase(context.Background(), seq("only-once"), 0, &out); !errors.Is(err, ErrInputAborted) {
		t.Fatalf("expected ErrInputAborted, got %v", err)
	}
}
