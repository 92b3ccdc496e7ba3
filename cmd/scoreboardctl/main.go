package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"scoreboard/internal/cli"
	"scoreboard/internal/log"
	"scoreboard/internal/services"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// Exit codes.
const (
	exitFailure  = 1
	exitRejected = 2 // the board refused the command (bad index or argument)
	exitConfig   = 3
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// opener builds the board the commands operate on.
type opener func(ctx context.Context) (*cli.Scoreboard, error)

// app is the shared state of one invocation.
type app struct {
	in   io.Reader
	out  io.Writer
	open opener
}

func main() {
	cli.LoadEnvFile()

	a := &app{in: os.Stdin, out: os.Stdout, open: openFromEnv}
	if err := newRootCmd(a).Execute(); err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}

// reportError prints err once and returns the exit code it carries.
func reportError(w io.Writer, err error) int {
	fmt.Fprintln(w, "Error:", err)
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

// openFromEnv loads the configured backend. Logs go to stderr so command
// output stays clean.
func openFromEnv(ctx context.Context) (*cli.Scoreboard, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, codeError(exitConfig, "%v", err)
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentCLI,
		Output:    os.Stderr,
	})
	log.SetDefault(logger)
	return cli.OpenScoreboard(ctx, cfg, services.NopNotifier{}, logger)
}
