package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/sqlplusctl/internal/target"
	"github.com/spf13/afero"
)

const (
	EnvOracleHome     = "ORACLE_HOME"
	EnvLibraryPath    = "LD_LIBRARY_PATH"
	EnvTNSAdmin       = "TNS_ADMIN"
	EnvNLSLang        = "NLS_LANG"
	EnvSQLPath        = "SQLPATH"
	NetworkConfigFile = "tnsnames.ora"

	libDir      = "lib"
	networkDir  = "network"
	netAdminDir = "admin"
)

var ErrNetworkConfigNotFound = errors.New("command: tnsnames.ora not found")

// NetworkSource records how TNS_ADMIN was chosen.
type NetworkSource string

const (
	NetworkOverride       NetworkSource = "override"
	NetworkRemoteOverride NetworkSource = "remote-override"
	NetworkRemoteHome     NetworkSource = "remote-home"
	NetworkAdminDir       NetworkSource = "network-admin"
	NetworkHomeDir        NetworkSource = "home"
)

// NetworkConfig is the resolved TNS_ADMIN directory.
type NetworkConfig struct {
	Dir    string
	Source NetworkSource
}

// ResolveNetworkConfig picks TNS_ADMIN. A local override must contain
// tnsnames.ora. A remote target takes the override or the home without any
// probe. A local target without override searches <home>/network/admin, then
// <home>.
func ResolveNetworkConfig(fs afero.Fs, home, override string, t target.ExecutionTarget) (NetworkConfig, error) {
	if t.Remote {
		if override != "" {
			return NetworkConfig{Dir: override, Source: NetworkRemoteOverride}, nil
		}
		return NetworkConfig{Dir: home, Source: NetworkRemoteHome}, nil
	}
	if override != "" {
		if !containsFile(fs, override, NetworkConfigFile) {
			return NetworkConfig{}, fmt.Errorf("%w: TNS_ADMIN=%q", ErrNetworkConfigNotFound, override)
		}
		return NetworkConfig{Dir: override, Source: NetworkOverride}, nil
	}
	admin := t.Join(home, networkDir, netAdminDir)
	if containsFile(fs, admin, NetworkConfigFile) {
		return NetworkConfig{Dir: admin, Source: NetworkAdminDir}, nil
	}
	if containsFile(fs, home, NetworkConfigFile) {
		return NetworkConfig{Dir: home, Source: NetworkHomeDir}, nil
	}
	return NetworkConfig{}, fmt.Errorf("%w: searched %q and %q", ErrNetworkConfigNotFound, admin, home)
}

func containsFile(fs afero.Fs, dir, name string) bool {
	if dir == "" {
		return false
	}
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(entry.Name(), name) {
			return true
		}
	}
	return false
}

// VersionEnv is the minimal environment for the version probe.
func VersionEnv(home string, t target.ExecutionTarget) map[string]string {
	return map[string]string{
		EnvOracleHome:  home,
		EnvLibraryPath: t.Join(home, libDir),
	}
}

// EnvInput collects the resolved values that feed the run environment.
type EnvInput struct {
	Home    string
	NLSLang string
	SQLPath string
	Network NetworkConfig
	// HomeOnLibraryPath appends the home itself to LD_LIBRARY_PATH, which
	// instant-client layouts need.
	HomeOnLibraryPath bool
}

// RunEnv is the environment block layered over the job environment.
func RunEnv(in EnvInput, t target.ExecutionTarget) map[string]string {
	env := map[string]string{
		EnvOracleHome:  in.Home,
		EnvLibraryPath: t.Join(in.Home, libDir),
	}
	if in.HomeOnLibraryPath {
		env[EnvLibraryPath] += t.OS.ListSeparator() + in.Home
	}
	if in.NLSLang != "" {
		env[EnvNLSLang] = in.NLSLang
	}
	if in.SQLPath != "" {
		env[EnvSQLPath] = in.SQLPath
	}
	if in.Network.Dir != "" {
		env[EnvTNSAdmin] = in.Network.Dir
	}
	return env
}
