package channel

import (
	"bytes"
	"errors"
	"slices"
	"testing"
)

func TestLineWriterHoldsPartialLine(t *testing.T) {
	var out bytes.Buffer
	w := NewLineWriter(&out)

	if _, err := w.Write([]byte("SQL*Plus: Release 19")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("partial line leaked: %q", out.String())
	}
	if _, err := w.Write([]byte(".0\nConnected.\nSQL> ")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if out.String() != "SQL*Plus: Release 19.0\nConnected.\n" {
		t.Fatalf("unexpected forwarded output: %q", out.String())
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if out.String() != "SQL*Plus: Release 19.0\nConnected.\nSQL> \n" {
		t.Fatalf("flush did not write tail: %q", out.String())
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("second flush: %v", err)
	}
}

func TestMergeEnvLaterWins(t *testing.T) {
	base := map[string]string{"PATH": "/usr/bin", "ORACLE_HOME": "/old"}
	got := MergeEnv(base, map[string]string{"ORACLE_HOME": "/new"}, map[string]string{"NLS_LANG": "AL32UTF8"})

	if got["ORACLE_HOME"] != "/new" || got["PATH"] != "/usr/bin" || got["NLS_LANG"] != "AL32UTF8" {
		t.Fatalf("unexpected merge: %v", got)
	}
	if base["ORACLE_HOME"] != "/old" {
		t.Fatalf("base map mutated")
	}
}

func TestParseAndFormatEnviron(t *testing.T) {
	env := ParseEnviron([]string{"B=2", "A=1=x", "broken", "=skip", ""})
	if len(env) != 2 || env["A"] != "1=x" || env["B"] != "2" {
		t.Fatalf("unexpected parse: %v", env)
	}
	want := []string{"A=1=x", "B=2"}
	if got := FormatEnviron(env); !slices.Equal(got, want) {
		t.Fatalf("unexpected format\nwant: %v\ngot:  %v", want, got)
	}
}

func TestCommandValidate(t *testing.T) {
	if err := (Command{Name: "  "}).validate(); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand, got %v", err)
	}
	if err := (Command{Name: "sqlplus"}).validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}
