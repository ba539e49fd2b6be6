// Package settings holds the operator-wide defaults injected into every run.
//
// A Global value is a snapshot: it is loaded once, passed by value, and never
// read through ambient lookups during resolution.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/sqlplusctl/internal/channel"
	"github.com/danmuck/sqlplusctl/internal/resolve"
)

var ErrInvalidSettings = errors.New("settings: invalid settings")

const defaultSSHTimeout = 10 * time.Second

var userHomeDir = os.UserHomeDir

// Global is the operator configuration for every job.
type Global struct {
	OracleHome  string
	SQLPlusHome string
	TNSAdmin    string
	NLSLang     string
	SQLPath     string

	HideVersion      bool
	DetectOracleHome bool
	Debug            bool

	// SSH selects a remote worker. Nil runs on the controller.
	SSH *SSH
}

// SSH describes the remote worker SQL*Plus runs on.
type SSH struct {
	Host                        string
	Port                        string
	User                        string
	KeyPath                     string
	KnownHostsPath              string
	InsecureSkipHostKeyChecking bool
	Timeout                     time.Duration
}

// Default returns the settings used when no file is given.
func Default() Global {
	return Global{}
}

// Defaults returns the five global parameter defaults.
func (g Global) Defaults() resolve.Values {
	return resolve.Values{
		OracleHome:  g.OracleHome,
		SQLPlusHome: g.SQLPlusHome,
		TNSAdmin:    g.TNSAdmin,
		NLSLang:     g.NLSLang,
		SQLPath:     g.SQLPath,
	}
}

// ChannelConfig converts the worker settings for channel.NewSSH.
func (s SSH) ChannelConfig() channel.SSHConfig {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultSSHTimeout
	}
	return channel.SSHConfig{
		Host:                        s.Host,
		Port:                        s.Port,
		User:                        s.User,
		KeyPath:                     s.KeyPath,
		KnownHostsPath:              s.KnownHostsPath,
		InsecureSkipHostKeyChecking: s.InsecureSkipHostKeyChecking,
		Timeout:                     timeout,
	}
}

type fileConfig struct {
	OracleHome       string   `toml:"oracle_home"`
	SQLPlusHome      string   `toml:"sqlplus_home"`
	TNSAdmin         string   `toml:"tns_admin"`
	NLSLang          string   `toml:"nls_lang"`
	SQLPath          string   `toml:"sql_path"`
	HideVersion      bool     `toml:"hide_version"`
	DetectOracleHome bool     `toml:"detect_oracle_home"`
	Debug            bool     `toml:"debug"`
	SSH              *fileSSH `toml:"ssh"`
}

type fileSSH struct {
	Host                        string `toml:"host"`
	Port                        string `toml:"port"`
	User                        string `toml:"user"`
	KeyPath                     string `toml:"key_path"`
	KnownHostsPath              string `toml:"known_hosts_path"`
	InsecureSkipHostKeyChecking bool   `toml:"insecure_skip_host_key_checking"`
	Timeout                     string `toml:"timeout"`
}

// Load reads a settings file. Keys absent from the file keep their defaults.
func Load(path string) (Global, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Global{}, fmt.Errorf("load settings: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Global{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSettings, undecoded[0].String())
	}

	if meta.IsDefined("oracle_home") {
		cfg.OracleHome = strings.TrimSpace(raw.OracleHome)
	}
	if meta.IsDefined("sqlplus_home") {
		cfg.SQLPlusHome = strings.TrimSpace(raw.SQLPlusHome)
	}
	if meta.IsDefined("tns_admin") {
		cfg.TNSAdmin = strings.TrimSpace(raw.TNSAdmin)
	}
	if meta.IsDefined("nls_lang") {
		cfg.NLSLang = strings.TrimSpace(raw.NLSLang)
	}
	if meta.IsDefined("sql_path") {
		cfg.SQLPath = strings.TrimSpace(raw.SQLPath)
	}
	if meta.IsDefined("hide_version") {
		cfg.HideVersion = raw.HideVersion
	}
	if meta.IsDefined("detect_oracle_home") {
		cfg.DetectOracleHome = raw.DetectOracleHome
	}
	if meta.IsDefined("debug") {
		cfg.Debug = raw.Debug
	}

	if meta.IsDefined("ssh") && raw.SSH != nil {
		worker, err := loadSSH(*raw.SSH)
		if err != nil {
			return Global{}, err
		}
		cfg.SSH = worker
	}

	return cfg, nil
}

func loadSSH(raw fileSSH) (*SSH, error) {
	worker := &SSH{
		Host:                        strings.TrimSpace(raw.Host),
		Port:                        strings.TrimSpace(raw.Port),
		User:                        strings.TrimSpace(raw.User),
		KeyPath:                     strings.TrimSpace(raw.KeyPath),
		KnownHostsPath:              strings.TrimSpace(raw.KnownHostsPath),
		InsecureSkipHostKeyChecking: raw.InsecureSkipHostKeyChecking,
	}
	if worker.Host == "" {
		return nil, fmt.Errorf("%w: ssh.host is required", ErrInvalidSettings)
	}
	if worker.User == "" {
		return nil, fmt.Errorf("%w: ssh.user is required", ErrInvalidSettings)
	}
	for _, path := range []*string{&worker.KeyPath, &worker.KnownHostsPath} {
		expanded, err := expandHome(*path)
		if err != nil {
			return nil, err
		}
		*path = expanded
	}
	if timeout := strings.TrimSpace(raw.Timeout); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: parse ssh.timeout: %w", ErrInvalidSettings, err)
		}
		worker.Timeout = d
	}
	return worker, nil
}

// expandHome resolves a leading "~/" against the operator's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: expand %s: %w", ErrInvalidSettings, path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
