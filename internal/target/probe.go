package target

import (
	"runtime"
	"strings"
)

const (
	EnvOS         = "OS"
	EnvOracleHome = "ORACLE_HOME"

	windowsMarker = "win"
)

// Environment is the narrow view of the target environment the engine reads.
type Environment interface {
	// OSName returns the OS marker variable of the target.
	OSName() (string, bool)
	// OracleHome returns the ORACLE_HOME advertised by the target.
	OracleHome() (string, bool)
}

// Locality is implemented by execution channels.
type Locality interface {
	Local() bool
}

// EnvMap adapts a plain variable map to Environment.
type EnvMap map[string]string

func (m EnvMap) OSName() (string, bool)     { return m.lookup(EnvOS) }
func (m EnvMap) OracleHome() (string, bool) { return m.lookup(EnvOracleHome) }

// lookup prefers an exact key and falls back to a case-insensitive match, since
// Windows variable names are case-insensitive.
func (m EnvMap) lookup(key string) (string, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// Probe answers the two environment questions asked at the start of a run.
type Probe struct {
	// ControllerOS reports the controller's own OS name. Defaults to runtime.GOOS.
	ControllerOS func() string
}

// IsRemoteTarget is true unless the channel is the controller-local one.
func IsRemoteTarget(ch Locality) bool {
	if ch == nil {
		return false
	}
	return !ch.Local()
}

// IsWindowsTarget reads the target's OS marker when remote and the
// controller's GOOS when local. Absent values mean non-Windows.
func (p Probe) IsWindowsTarget(remote bool, env Environment) bool {
	if !remote {
		// GOOS is exact; "darwin" contains the marker
		return strings.EqualFold(p.controllerOS(), "windows")
	}
	if env == nil {
		return false
	}
	name, ok := env.OSName()
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(name), windowsMarker)
}

// Detect builds the ExecutionTarget for one run.
func (p Probe) Detect(ch Locality, env Environment) ExecutionTarget {
	remote := IsRemoteTarget(ch)
	t := ExecutionTarget{Remote: remote, OS: OSOther}
	if p.IsWindowsTarget(remote, env) {
		t.OS = OSWindows
	}
	return t
}

func (p Probe) controllerOS() string {
	if p.ControllerOS != nil {
		return p.ControllerOS()
	}
	return runtime.GOOS
}
