package locate

import (
	"errors"
	"testing"

	"github.com/danmuck/sqlplusctl/internal/target"
	"github.com/spf13/afero"
)

var (
	local  = target.ExecutionTarget{}
	remote = target.ExecutionTarget{Remote: true}
)

func touch(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLocateOverrideIsVerbatim(t *testing.T) {
	l := New(afero.NewMemMapFs())
	got, err := l.Locate("/missing", "/custom/sqlplus", local)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if got.Path != "/custom/sqlplus" || got.Source != FromOverride {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestLocatePrefersBin(t *testing.T) {
	fs := afero.NewMemMapFs()
	touch(t, fs, "/opt/oracle/bin/sqlplus")
	touch(t, fs, "/opt/oracle/sqlplus")

	got, err := New(fs).Locate("/opt/oracle", "", local)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if got.Path != "/opt/oracle/bin/sqlplus" || got.Source != FromBin {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestLocateHomeCaseInsensitive(t *testing.T) {
	fs := afero.NewMemMapFs()
	touch(t, fs, "/opt/instantclient/SQLPLUS")

	got, err := New(fs).Locate("/opt/instantclient", "", local)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if got.Path != "/opt/instantclient/sqlplus" || got.Source != FromHome {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestLocateRecursive(t *testing.T) {
	fs := afero.NewMemMapFs()
	touch(t, fs, "/opt/oracle/product/19c/client/sqlplus")

	got, err := New(fs).Locate("/opt/oracle", "", local)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if got.Source != FromTree || got.Path != "/opt/oracle/product/19c/client/sqlplus" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestLocateWindowsBinaryName(t *testing.T) {
	fs := afero.NewMemMapFs()
	touch(t, fs, "/ora/bin/sqlplus")

	win := target.ExecutionTarget{OS: target.OSWindows}
	if _, err := New(fs).Locate("/ora", "", win); !errors.Is(err, ErrExecutableNotFound) {
		t.Fatalf("expected windows target to require sqlplus.exe, got %v", err)
	}
}

func TestLocateRemoteAssumesBin(t *testing.T) {
	got, err := New(afero.NewMemMapFs()).Locate("/u01/app/oracle", "", remote)
	if err != nil {
		t.Fatalf("remote locate must not fail: %v", err)
	}
	if got.Path != "/u01/app/oracle/bin/sqlplus" || got.Source != FromAssumed {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestLocateLocalNotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/opt/oracle/lib", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	_, err := New(fs).Locate("/opt/oracle", "", local)
	if !errors.Is(err, ErrExecutableNotFound) {
		t.Fatalf("expected ErrExecutableNotFound, got %v", err)
	}
}
