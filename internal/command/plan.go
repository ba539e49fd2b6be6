// Package command builds SQL*Plus invocations: the argument vector, the
// environment block, and a rendering of both that is safe to log.
package command

import (
	"maps"
	"slices"
	"strings"

	"github.com/danmuck/sqlplusctl/internal/credentials"
)

const (
	FlagLoginOnce = "-L"
	FlagVersion   = "-v"
	RoleSysdba    = "AS  SYSDBA"

	MaskedValue = "********"
)

// Plan is a fully built process invocation. Args[0] is the executable.
type Plan struct {
	Executable string
	Args       []string
	Env        map[string]string
	Dir        string
	// Masked holds indices of Args that must never be rendered.
	Masked map[int]struct{}
}

// IsMasked reports whether Args[i] is secret.
func (p Plan) IsMasked(i int) bool {
	_, ok := p.Masked[i]
	return ok
}

// Argv returns a copy of the argument vector.
func (p Plan) Argv() []string {
	return slices.Clone(p.Args)
}

// Render joins the arguments for display with masked entries redacted.
func (p Plan) Render() string {
	parts := make([]string, len(p.Args))
	for i, arg := range p.Args {
		if p.IsMasked(i) {
			parts[i] = MaskedValue
			continue
		}
		parts[i] = arg
	}
	return strings.Join(parts, " ")
}

// EnvKeys returns the environment variable names in sorted order.
func (p Plan) EnvKeys() []string {
	return slices.Sorted(maps.Keys(p.Env))
}

// RunInput collects what the main invocation needs.
type RunInput struct {
	Executable  string
	Credentials credentials.Credentials
	Instance    string
	Sysdba      bool
	ScriptPath  string
	Env         map[string]string
	Dir         string
}

// CredentialToken renders user/"password"[@instance]. The quotes let the
// password carry special characters.
func CredentialToken(creds credentials.Credentials, instance string) string {
	token := creds.Username + `/"` + creds.Password + `"`
	if inst := strings.TrimSpace(instance); inst != "" {
		token += "@" + inst
	}
	return token
}

// BuildRun assembles: executable, -L, masked credentials, optional
// AS SYSDBA, @script.
func BuildRun(in RunInput) Plan {
	args := []string{in.Executable, FlagLoginOnce}
	masked := map[int]struct{}{len(args): {}}
	args = append(args, CredentialToken(in.Credentials, in.Instance))
	if in.Sysdba {
		args = append(args, RoleSysdba)
	}
	args = append(args, "@"+in.ScriptPath)
	return Plan{
		Executable: in.Executable,
		Args:       args,
		Env:        maps.Clone(in.Env),
		Dir:        in.Dir,
		Masked:     masked,
	}
}

// BuildVersion assembles the credential-free version probe.
func BuildVersion(executable string, env map[string]string, dir string) Plan {
	return Plan{
		Executable: executable,
		Args:       []string{executable, FlagVersion},
		Env:        maps.Clone(env),
		Dir:        dir,
		Masked:     map[int]struct{}{},
	}
}
