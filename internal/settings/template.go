package settings

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type templateConfig struct {
	OracleHome       string      `toml:"oracle_home" comment:"ORACLE_HOME used when a job sets none"`
	SQLPlusHome      string      `toml:"sqlplus_home" comment:"explicit sqlplus executable, skips the lookup under oracle_home"`
	TNSAdmin         string      `toml:"tns_admin" comment:"directory holding tnsnames.ora"`
	NLSLang          string      `toml:"nls_lang"`
	SQLPath          string      `toml:"sql_path" comment:"SQLPATH, also the base for relative script files"`
	HideVersion      bool        `toml:"hide_version" comment:"skip the sqlplus -v probe before each run"`
	DetectOracleHome bool        `toml:"detect_oracle_home" comment:"take ORACLE_HOME from the target environment when unset above"`
	Debug            bool        `toml:"debug"`
	SSH              templateSSH `toml:"ssh" commented:"true" comment:"remote worker; leave commented to run locally"`
}

type templateSSH struct {
	Host                        string `toml:"host"`
	Port                        string `toml:"port"`
	User                        string `toml:"user"`
	KeyPath                     string `toml:"key_path"`
	KnownHostsPath              string `toml:"known_hosts_path"`
	InsecureSkipHostKeyChecking bool   `toml:"insecure_skip_host_key_checking"`
	Timeout                     string `toml:"timeout"`
}

// Template renders g as a commented settings file.
func Template(g Global) ([]byte, error) {
	worker := SSH{Host: "db-worker", Port: "22", User: "oracle", KeyPath: "~/.ssh/id_ed25519", Timeout: defaultSSHTimeout}
	if g.SSH != nil {
		worker = *g.SSH
	}
	out := templateConfig{
		OracleHome:       g.OracleHome,
		SQLPlusHome:      g.SQLPlusHome,
		TNSAdmin:         g.TNSAdmin,
		NLSLang:          g.NLSLang,
		SQLPath:          g.SQLPath,
		HideVersion:      g.HideVersion,
		DetectOracleHome: g.DetectOracleHome,
		Debug:            g.Debug,
		SSH: templateSSH{
			Host:                        worker.Host,
			Port:                        worker.Port,
			User:                        worker.User,
			KeyPath:                     worker.KeyPath,
			KnownHostsPath:              worker.KnownHostsPath,
			InsecureSkipHostKeyChecking: worker.InsecureSkipHostKeyChecking,
			Timeout:                     worker.Timeout.String(),
		},
	}
	data, err := toml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("render settings template: %w", err)
	}
	return data, nil
}

// WriteTemplate writes Template(g) to path, refusing to replace an existing
// file unless overwrite is set.
func WriteTemplate(path string, g Global, overwrite bool) error {
	data, err := Template(g)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("settings already exist: %s", path)
		}
	}
	return os.WriteFile(path, data, 0o600)
}
