package engine

import (
	"fmt"
	"io"

	"github.com/danmuck/sqlplusctl/internal/command"
	"github.com/danmuck/sqlplusctl/internal/resolve"
)

const separatorLine = "--------------------------------------------------------------------------"

// console writes operator-facing lines to the job output.
type console struct {
	out   io.Writer
	debug bool
}

func (c console) line() {
	fmt.Fprintln(c.out, separatorLine)
}

func (c console) logf(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c console) debugf(format string, args ...any) {
	if c.debug {
		c.logf("DEBUG: "+format, args...)
	}
}

func (c console) warnf(format string, args ...any) {
	c.line()
	c.logf("WARNING: "+format, args...)
	c.line()
}

// selected reports a parameter taken from settings or detection.
func (c console) selected(p resolve.Param, v resolve.Value) {
	switch v.Provenance {
	case resolve.Global:
		c.logf("Using global %s: %s", p, v.Value)
	case resolve.Detected:
		c.logf("Using detected %s: %s", p, v.Value)
	default:
		c.logf("No %s configured", p)
	}
}

// oracleEnv lists the computed variables shown in debug output. The rest of
// the job environment is not echoed.
var oracleEnv = []string{
	command.EnvOracleHome,
	command.EnvLibraryPath,
	command.EnvTNSAdmin,
	command.EnvNLSLang,
	command.EnvSQLPath,
}

// statement prints the masked command line and the computed environment.
func (c console) statement(plan command.Plan) {
	if !c.debug {
		return
	}
	c.line()
	c.logf("DEBUG: statement: %s", plan.Render())
	for _, key := range oracleEnv {
		if v, ok := plan.Env[key]; ok {
			c.logf("DEBUG: %s=%s", key, v)
		}
	}
	c.line()
}
