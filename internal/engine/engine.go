package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/danmuck/sqlplusctl/internal/channel"
	"github.com/danmuck/sqlplusctl/internal/command"
	"github.com/danmuck/sqlplusctl/internal/locate"
	"github.com/danmuck/sqlplusctl/internal/logging"
	"github.com/danmuck/sqlplusctl/internal/resolve"
	"github.com/danmuck/sqlplusctl/internal/script"
	"github.com/danmuck/sqlplusctl/internal/settings"
	"github.com/danmuck/sqlplusctl/internal/target"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const localInstance = "local"

// Engine runs jobs on one channel with one settings snapshot.
type Engine struct {
	settings settings.Global
	ch       channel.Channel
	fs       afero.Fs
	probe    target.Probe
	hostname func() (string, error)
	logger   zerolog.Logger
}

type Option func(*Engine)

// WithFs sets the controller filesystem used for home, executable and
// tnsnames.ora lookups.
func WithFs(fs afero.Fs) Option {
	return func(e *Engine) { e.fs = fs }
}

func WithProbe(p target.Probe) Option {
	return func(e *Engine) { e.probe = p }
}

func WithHostname(fn func() (string, error)) Option {
	return func(e *Engine) { e.hostname = fn }
}

func New(g settings.Global, ch channel.Channel, opts ...Option) *Engine {
	e := &Engine{
		settings: g,
		ch:       ch,
		fs:       afero.NewOsFs(),
		hostname: os.Hostname,
		logger:   logging.Component("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run carries the per-job state derived at the start of Run.
type run struct {
	job    Job
	target target.ExecutionTarget
	cfg    resolve.Config
	con    console
	orch   *Orchestrator
}

// Run executes job and returns nil only when SQL*Plus exited with code 0.
func (e *Engine) Run(ctx context.Context, job Job) error {
	if err := job.Credentials.Validate(); err != nil {
		return err
	}
	r := e.begin(ctx, job)
	e.logger.Info().
		Bool("remote", r.target.Remote).
		Str("os", r.target.OS.String()).
		Str("script_kind", string(job.Script.Kind)).
		Msg("run started")

	home := r.cfg.OracleHome.Value
	if err := e.checkHome(r); err != nil {
		return r.fail(err)
	}
	if !e.settings.HideVersion {
		if err := e.printVersion(ctx, r); err != nil {
			return r.fail(err)
		}
	}
	e.debugHost(r)

	if r.job.Script.Empty() {
		r.con.warnf("%v in workspace %s", ErrMissingScript, r.job.Workspace)
		e.logger.Warn().Err(ErrMissingScript).Str("workspace", r.job.Workspace).Msg("empty script")
	}

	r.con.line()
	r.con.logf("ORACLE_HOME selected: %s", home)
	r.con.line()

	prepared, err := e.prepareScript(ctx, r)
	if err != nil {
		return r.fail(err)
	}
	r.con.line()

	err = r.orch.Execute(ctx, prepared, func(ctx context.Context) (command.Plan, error) {
		return e.buildRun(r, prepared)
	})
	if err != nil {
		r.con.line()
		r.fail(err)
		r.con.line()
		return err
	}
	r.con.line()
	return nil
}

// fail reports err on the console and returns it. The exit code of a failed
// process was already printed, so it is not repeated.
func (r *run) fail(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		r.con.logf("ERROR: %v", ErrExternalToolFailed)
		return err
	}
	r.con.logf("ERROR: %v", err)
	return err
}

func (e *Engine) begin(ctx context.Context, job Job) *run {
	con := console{out: job.output(), debug: e.settings.Debug}

	base, err := e.ch.Environ(ctx)
	if err != nil {
		// an unreadable environment probes as non-Windows without a detected home
		e.logger.Warn().Err(err).Msg("read target environment")
		base = nil
	}
	env := channel.MergeEnv(base, job.Env)
	t := e.probe.Detect(e.ch, target.EnvMap(env))
	job = job.expand(env)

	detected, _ := target.EnvMap(env).OracleHome()
	con.line()
	con.logf("Resolving ORACLE_HOME")
	cfg := resolve.ResolveAll(resolve.Input{
		Custom:       job.Overrides,
		Global:       e.settings.Defaults(),
		Autodetect:   e.settings.DetectOracleHome,
		DetectedHome: detected,
	}, con.selected)

	return &run{
		job:    job,
		target: t,
		cfg:    cfg,
		con:    con,
		orch:   NewOrchestrator(e.ch, con.out, con.debug),
	}
}

// checkHome rejects an empty home and, on a local target without an
// executable override, a home missing from disk.
func (e *Engine) checkHome(r *run) error {
	home := r.cfg.OracleHome.Value
	if home == "" {
		return ErrMissingHomeDirectory
	}
	if r.target.Remote || r.cfg.SQLPlusHome.Set() {
		return nil
	}
	r.con.debugf("testing directory: %s", home)
	ok, err := afero.Exists(e.fs, home)
	if err != nil {
		return wrapFailure(err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidHomeDirectory, home)
	}
	return nil
}

func (e *Engine) printVersion(ctx context.Context, r *run) error {
	r.con.line()
	r.con.logf("Getting SQL*Plus version")

	home := r.cfg.OracleHome.Value
	exe, err := locate.New(e.fs).Locate(home, r.cfg.SQLPlusHome.Value, r.target)
	if err != nil {
		return err
	}
	r.con.debugf("executable: %s (%s)", exe.Path, exe.Source)
	plan := command.BuildVersion(
		exe.Path,
		channel.MergeEnv(r.job.Env, command.VersionEnv(home, r.target)),
		r.job.Workspace,
	)
	// the probe's exit code is reported but never fails the run
	if _, err := r.orch.Run(ctx, script.Prepared{}, func(context.Context) (command.Plan, error) {
		return plan, nil
	}); err != nil {
		return err
	}
	r.con.line()
	return nil
}

func (e *Engine) debugHost(r *run) {
	if !r.con.debug {
		return
	}
	host, err := e.hostname()
	if err != nil {
		host = "unknown"
	}
	r.con.debugf("detected host: %s", host)
	r.con.debugf("remote worker: %t", r.target.Remote)
	r.con.debugf("work dir: %s", r.job.Workspace)
}

func (e *Engine) prepareScript(ctx context.Context, r *run) (script.Prepared, error) {
	pathing := script.Pathing{
		Workspace:  r.job.Workspace,
		SearchPath: r.cfg.SQLPath.Value,
	}
	if r.target.Remote {
		// remote temp scripts live in the job workspace
		pathing.TempDir = r.job.Workspace
	}

	login := r.job.Credentials.String() + "@" + displayInstance(r.job.Instance)
	if r.job.Script.Kind == script.KindInline {
		r.con.logf("Running defined script on %s", login)
	}

	prepared, err := script.Prepare(ctx, e.ch, r.job.Script, r.target, pathing)
	if err != nil {
		return script.Prepared{}, err
	}

	if prepared.Temporary {
		r.con.logf("Temp script: %s", prepared.Path)
		return prepared, nil
	}
	r.con.logf("Running script %s on %s", prepared.Path, login)
	r.con.debugf("testing script: %s", prepared.Path)
	if prepared.Missing && !r.job.Script.Empty() {
		r.con.warnf("%v: %s", ErrMissingScript, prepared.Path)
		e.logger.Warn().Err(ErrMissingScript).Str("path", prepared.Path).Msg("script file missing")
	}
	return prepared, nil
}

func (e *Engine) buildRun(r *run, prepared script.Prepared) (command.Plan, error) {
	home := r.cfg.OracleHome.Value

	network, err := command.ResolveNetworkConfig(e.fs, home, r.cfg.TNSAdmin.Value, r.target)
	if err != nil {
		return command.Plan{}, err
	}
	r.con.debugf("TNS_ADMIN from %s: %s", network.Source, network.Dir)

	env := command.RunEnv(command.EnvInput{
		Home:              home,
		NLSLang:           r.cfg.NLSLang.Value,
		SQLPath:           r.cfg.SQLPath.Value,
		Network:           network,
		HomeOnLibraryPath: true,
	}, r.target)

	exe, err := locate.New(e.fs).Locate(home, r.cfg.SQLPlusHome.Value, r.target)
	if err != nil {
		return command.Plan{}, err
	}
	if exe.Source == locate.FromAssumed {
		r.con.logf("Assuming executable at %s", exe.Path)
	}
	r.con.debugf("executable: %s (%s)", exe.Path, exe.Source)

	return command.BuildRun(command.RunInput{
		Executable:  exe.Path,
		Credentials: r.job.Credentials,
		Instance:    r.job.Instance,
		Sysdba:      r.job.Sysdba,
		ScriptPath:  prepared.Path,
		Env:         channel.MergeEnv(r.job.Env, env),
		Dir:         r.job.Workspace,
	}), nil
}

func displayInstance(instance string) string {
	if instance == "" {
		return localInstance
	}
	return instance
}
