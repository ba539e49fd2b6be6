package engine

import (
	"io"
	"regexp"

	"github.com/danmuck/sqlplusctl/internal/credentials"
	"github.com/danmuck/sqlplusctl/internal/resolve"
	"github.com/danmuck/sqlplusctl/internal/script"
)

// Job is one invocation. It is plain data so it can be shipped to wherever the
// engine runs.
type Job struct {
	// Workspace is the working directory of the child process on the target.
	Workspace string
	// Env is the job environment, layered over the target environment and
	// passed to the child under the computed Oracle variables.
	Env         map[string]string
	Credentials credentials.Credentials
	Instance    string
	Sysdba      bool
	Script      script.Spec
	// Overrides are the per-job custom values; empty fields fall through to
	// the global settings.
	Overrides resolve.Values
	// Output receives diagnostics and child output line by line.
	Output io.Writer
}

func (j Job) output() io.Writer {
	if j.Output == nil {
		return io.Discard
	}
	return j.Output
}

var envReference = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expand substitutes $VAR and ${VAR} from env into the instance and script.
// Unknown references are left as written, so v$session survives.
func (j Job) expand(env map[string]string) Job {
	j.Instance = expandEnv(j.Instance, env)
	j.Script.Content = expandEnv(j.Script.Content, env)
	j.Script.Path = expandEnv(j.Script.Path, env)
	return j
}

func expandEnv(s string, env map[string]string) string {
	return envReference.ReplaceAllStringFunc(s, func(ref string) string {
		match := envReference.FindStringSubmatch(ref)
		key := match[1]
		if key == "" {
			key = match[2]
		}
		if v, ok := env[key]; ok {
			return v
		}
		return ref
	})
}
