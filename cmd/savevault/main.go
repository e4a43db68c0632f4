package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"

	"github.com/tis24dev/savevault/internal/logging"
	"github.com/tis24dev/savevault/internal/tui"
	"github.com/tis24dev/savevault/internal/types"
)

const exitCodeInterrupted = 128 + int(syscall.SIGINT)

var closeStdinOnce sync.Once

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	bootstrap := logging.NewBootstrapLogger()

	defer func() {
		if r := recover(); r != nil {
			bootstrap.Error("PANIC: %v", r)
			fmt.Fprintf(stderr, "panic: %v\n%s\n", r, debug.Stack())
			code = types.ExitPanicError.Int()
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			bootstrap.Warning("\nReceived signal %v, stopping...", sig)
			cancel()
			closeStdinOnce.Do(func() {
				if f, ok := stdin.(*os.File); ok && f != nil {
					_ = f.Close()
				}
			})
		case <-ctx.Done():
		}
	}()
	tui.SetAbortContext(ctx)

	env := newAppEnv(bootstrap)
	defer env.close()

	root := newRootCmd(env)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return types.ExitSuccess.Int()
	}
	if env.logger != nil {
		env.logger.Error("%v", err)
	} else {
		fmt.Fprintln(stderr, "Error:", err)
	}
	if errors.Is(ctx.Err(), context.Canceled) && errors.Is(err, context.Canceled) {
		return exitCodeInterrupted
	}
	return exitCodeFor(err)
}
