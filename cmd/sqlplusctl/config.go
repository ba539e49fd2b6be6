package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/sqlplusctl/internal/credentials"
	"github.com/danmuck/sqlplusctl/internal/engine"
	"github.com/danmuck/sqlplusctl/internal/resolve"
	"github.com/danmuck/sqlplusctl/internal/script"
	"github.com/danmuck/sqlplusctl/internal/settings"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

var (
	errPasswordRequired  = errors.New("password required: use --password, --credentials-file or a terminal prompt")
	errWorkspaceRequired = errors.New("--workspace is required with an [ssh] worker")
)

type options struct {
	ConfigPath string
	InitConfig string
	Force      bool
	EnvFile    string
	Metrics    string

	Workspace       string
	User            string
	Password        string
	CredentialsFile string
	CredentialsID   string
	Instance        string
	Sysdba          bool
	ScriptType      string
	Script          string

	Overrides resolve.Values
	Debug     bool
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("sqlplusctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVarP(&opts.ConfigPath, "config", "c", "", "settings file (TOML)")
	fs.StringVar(&opts.InitConfig, "init-config", "", "write a settings template to this path and exit")
	fs.BoolVar(&opts.Force, "force", false, "overwrite an existing file with --init-config")
	fs.StringVar(&opts.EnvFile, "env-file", "", "job environment file (KEY=VALUE lines)")
	fs.StringVar(&opts.Metrics, "metrics-textfile", "", "write run metrics in Prometheus text format to this path")

	fs.StringVarP(&opts.Workspace, "workspace", "w", "", "working directory of sqlplus (default: current directory)")
	fs.StringVarP(&opts.User, "user", "u", "", "database user")
	fs.StringVar(&opts.Password, "password", "", "database password (prompted when omitted)")
	fs.StringVar(&opts.CredentialsFile, "credentials-file", "", "TOML file of [[credential]] entries")
	fs.StringVar(&opts.CredentialsID, "credentials-id", "", "credential id inside --credentials-file")
	fs.StringVarP(&opts.Instance, "instance", "i", "", "database instance or TNS alias")
	fs.BoolVar(&opts.Sysdba, "sysdba", false, "connect AS SYSDBA")
	fs.StringVarP(&opts.ScriptType, "script-type", "t", string(script.KindFile), "script type: file|inline")
	fs.StringVarP(&opts.Script, "script", "s", "", "script path, or SQL text with --script-type inline (- reads stdin)")

	fs.StringVar(&opts.Overrides.OracleHome, "oracle-home", "", "custom ORACLE_HOME")
	fs.StringVar(&opts.Overrides.SQLPlusHome, "sqlplus-home", "", "custom sqlplus executable")
	fs.StringVar(&opts.Overrides.TNSAdmin, "tns-admin", "", "custom TNS_ADMIN")
	fs.StringVar(&opts.Overrides.NLSLang, "nls-lang", "", "custom NLS_LANG")
	fs.StringVar(&opts.Overrides.SQLPath, "sql-path", "", "custom SQLPATH")
	fs.BoolVar(&opts.Debug, "debug", false, "print debug diagnostics (overrides settings)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		if opts.Script != "" || len(rest) > 1 {
			return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(rest, " "))
		}
		opts.Script = rest[0]
	}
	return opts, nil
}

func loadSettings(opts options) (settings.Global, error) {
	g := settings.Default()
	if path := strings.TrimSpace(opts.ConfigPath); path != "" {
		loaded, err := settings.Load(path)
		if err != nil {
			return settings.Global{}, err
		}
		g = loaded
	}
	if opts.Debug {
		g.Debug = true
	}
	// the controller's working directory does not exist on a worker
	if g.SSH != nil && strings.TrimSpace(opts.Workspace) == "" {
		return settings.Global{}, errWorkspaceRequired
	}
	return g, nil
}

func loadJobEnv(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return env, nil
}

// buildJob assembles the job from flags. prompt is asked for a password only
// when a user is given without one and no credentials file is in play.
func buildJob(ctx context.Context, opts options, env map[string]string, stdin io.Reader, prompt func() (string, error)) (engine.Job, error) {
	kind, err := script.ParseKind(opts.ScriptType)
	if err != nil {
		return engine.Job{}, err
	}
	spec := script.Spec{Kind: kind}
	switch {
	case kind == script.KindInline && opts.Script == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return engine.Job{}, fmt.Errorf("read script from stdin: %w", err)
		}
		spec.Content = string(data)
	case kind == script.KindInline:
		spec.Content = opts.Script
	default:
		spec.Path = opts.Script
	}

	creds, err := loadCredentials(ctx, opts, prompt)
	if err != nil {
		return engine.Job{}, err
	}

	workspace := opts.Workspace
	if workspace == "" {
		workspace, err = os.Getwd()
		if err != nil {
			return engine.Job{}, err
		}
	}

	return engine.Job{
		Workspace:   workspace,
		Env:         env,
		Credentials: creds,
		Instance:    opts.Instance,
		Sysdba:      opts.Sysdba,
		Script:      spec,
		Overrides:   opts.Overrides,
	}, nil
}

func loadCredentials(ctx context.Context, opts options, prompt func() (string, error)) (credentials.Credentials, error) {
	direct := credentials.Credentials{Username: strings.TrimSpace(opts.User), Password: opts.Password}

	var store credentials.Store
	if path := strings.TrimSpace(opts.CredentialsFile); path != "" {
		fileStore, err := credentials.LoadFileStore(path)
		if err != nil {
			return credentials.Credentials{}, err
		}
		store = fileStore
	} else if direct.Username != "" && direct.Password == "" {
		if prompt == nil {
			return credentials.Credentials{}, errPasswordRequired
		}
		password, err := prompt()
		if err != nil {
			return credentials.Credentials{}, err
		}
		direct.Password = password
	}

	return credentials.Resolve(ctx, store, opts.CredentialsID, direct)
}
