package engine

import (
	"context"
	"io"

	"github.com/danmuck/sqlplusctl/internal/channel"
	"github.com/danmuck/sqlplusctl/internal/command"
	"github.com/danmuck/sqlplusctl/internal/logging"
	"github.com/danmuck/sqlplusctl/internal/script"
	"github.com/rs/zerolog"
)

// PlanFunc builds the invocation once the script is in place. Failures
// inside it still trigger cleanup of the prepared script.
type PlanFunc func(ctx context.Context) (command.Plan, error)

// Orchestrator launches one process at a time on a channel and owns the
// temporary script handed to it.
type Orchestrator struct {
	ch     channel.Channel
	con    console
	logger zerolog.Logger
}

// NewOrchestrator streams child output and diagnostics to out.
func NewOrchestrator(ch channel.Channel, out io.Writer, debug bool) *Orchestrator {
	return &Orchestrator{
		ch:     ch,
		con:    console{out: out, debug: debug},
		logger: logging.Component("engine.orchestrator"),
	}
}

// Run builds the plan, runs it to completion and returns the exit code. A
// temporary prepared script is removed exactly once before Run returns,
// whatever the outcome.
func (o *Orchestrator) Run(ctx context.Context, prepared script.Prepared, build PlanFunc) (int, error) {
	if prepared.Temporary {
		defer o.cleanup(ctx, prepared.Path)
	}

	plan, err := build(ctx)
	if err != nil {
		return -1, wrapFailure(err)
	}
	return o.launch(ctx, plan)
}

// Execute is Run with a nonzero exit code reported as *ExitError.
func (o *Orchestrator) Execute(ctx context.Context, prepared script.Prepared, build PlanFunc) error {
	code, err := o.Run(ctx, prepared, build)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

func (o *Orchestrator) launch(ctx context.Context, plan command.Plan) (int, error) {
	o.con.statement(plan)

	sink := channel.NewLineWriter(o.con.out)
	proc, err := o.ch.Start(ctx, channel.Command{
		Name:   plan.Executable,
		Args:   plan.Argv()[1:],
		Env:    plan.Env,
		Dir:    plan.Dir,
		Stdout: sink,
		Stderr: sink,
	})
	if err != nil {
		return -1, wrapFailure(err)
	}

	code, err := proc.Wait()
	if flushErr := sink.Flush(); flushErr != nil {
		o.logger.Warn().Err(flushErr).Msg("flush process output")
	}
	if err != nil {
		return -1, wrapFailure(err)
	}

	o.con.logf("Process completed with exit code: %d", code)
	o.logger.Debug().Str("executable", plan.Executable).Msg("process finished")
	return code, nil
}

// cleanup runs after cancellation too, so it detaches from ctx.
func (o *Orchestrator) cleanup(ctx context.Context, path string) {
	if err := o.ch.Remove(context.WithoutCancel(ctx), path); err != nil {
		o.con.logf("WARNING: %v: %s", ErrCleanupFailed, path)
		o.logger.Warn().Err(err).Str("path", path).Msg(ErrCleanupFailed.Error())
	}
}
