package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/sqlplusctl/internal/channel"
	"github.com/danmuck/sqlplusctl/internal/engine"
	"github.com/danmuck/sqlplusctl/internal/logging"
	"github.com/danmuck/sqlplusctl/internal/metrics"
	"github.com/danmuck/sqlplusctl/internal/settings"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

func main() {
	logging.ConfigureRuntime()
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run returns the process exit code. A failed SQL*Plus run passes its own
// exit code through.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "sqlplusctl: %v\n", err)
		return 2
	}

	if opts.InitConfig != "" {
		if err := settings.WriteTemplate(opts.InitConfig, settings.Default(), opts.Force); err != nil {
			fmt.Fprintf(stderr, "sqlplusctl: %v\n", err)
			return 1
		}
		log.Info().Str("path", opts.InitConfig).Msg("wrote settings template")
		return 0
	}

	g, err := loadSettings(opts)
	if err != nil {
		fmt.Fprintf(stderr, "sqlplusctl: %v\n", err)
		return 1
	}
	env, err := loadJobEnv(opts.EnvFile)
	if err != nil {
		fmt.Fprintf(stderr, "sqlplusctl: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job, err := buildJob(ctx, opts, env, stdin, promptPassword(stderr))
	if err != nil {
		fmt.Fprintf(stderr, "sqlplusctl: %v\n", err)
		return 1
	}
	job.Output = stdout

	ch, closeChannel := openChannel(g)
	defer closeChannel()

	started := time.Now()
	err = engine.New(g, ch).Run(ctx, job)
	code := exitCode(err)
	recordRun(opts.Metrics, g, err, code, time.Since(started))

	var exitErr *engine.ExitError
	switch {
	case errors.As(err, &exitErr):
		fmt.Fprintf(stderr, "sqlplusctl: %v\n", engine.ErrExternalToolFailed)
		if exitErr.Code > 0 && exitErr.Code < 256 {
			return exitErr.Code
		}
		return 1
	case err != nil:
		fmt.Fprintf(stderr, "sqlplusctl: %v\n", err)
		return 1
	}
	return 0
}

// exitCode is the sqlplus exit code of a finished run, or -1 when the run
// failed before a process completed.
func exitCode(err error) int {
	var exitErr *engine.ExitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.Code
	default:
		return -1
	}
}

func recordRun(path string, g settings.Global, err error, code int, elapsed time.Duration) {
	if path == "" {
		return
	}
	target := "local"
	if g.SSH != nil {
		target = "ssh"
	}
	rec := metrics.NewRecorder()
	rec.RecordRun(target, metrics.Outcome(err, code), code, elapsed)
	if werr := rec.WriteTextfile(path); werr != nil {
		log.Warn().Err(werr).Str("path", path).Msg("metrics not written")
	}
}

func openChannel(g settings.Global) (channel.Channel, func()) {
	if g.SSH == nil {
		return channel.NewLocal(), func() {}
	}
	ch := channel.NewSSH(g.SSH.ChannelConfig())
	return ch, func() {
		if err := ch.Close(); err != nil {
			log.Warn().Err(err).Msg("close ssh channel")
		}
	}
}

// promptPassword reads the password from the controlling terminal without
// echo. Non-interactive runs get errPasswordRequired.
func promptPassword(stderr io.Writer) func() (string, error) {
	return func() (string, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", errPasswordRequired
		}
		fmt.Fprint(stderr, "Password: ")
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(password), nil
	}
}
