// Package script materializes the SQL script handed to SQL*Plus and makes
// sure it ends with the session-terminating exit directive.
package script

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/sqlplusctl/internal/target"
	"github.com/google/uuid"
)

const (
	// ExitDirective terminates the SQL*Plus session.
	ExitDirective = "exit;"

	separator  = "\n;\n"
	tempPrefix = "temp-script-"
	tempSuffix = ".sql"
)

var (
	ErrUnknownKind = errors.New("script: unknown script type")
	ErrScriptIO    = errors.New("script: file i/o failed")
)

// Kind discriminates the two script variants.
type Kind string

const (
	KindFile   Kind = "file"
	KindInline Kind = "inline"
)

// ParseKind accepts the canonical names plus the legacy "userDefined" alias
// for inline scripts.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "file":
		return KindFile, nil
	case "inline", "userdefined", "user_defined":
		return KindInline, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
	}
}

// Spec is the script of one invocation. Kind selects which of Content or
// Path is meaningful.
type Spec struct {
	Kind    Kind
	Content string
	Path    string
}

func Inline(content string) Spec { return Spec{Kind: KindInline, Content: content} }
func File(path string) Spec      { return Spec{Kind: KindFile, Path: path} }

// Empty reports whether the selected variant carries nothing.
func (s Spec) Empty() bool {
	if s.Kind == KindInline {
		return strings.TrimSpace(s.Content) == ""
	}
	return strings.TrimSpace(s.Path) == ""
}

// Prepared is a script file ready to be passed to SQL*Plus. Temporary files
// belong to the orchestrator, which removes them after the process exits.
type Prepared struct {
	Path      string
	Temporary bool
	// Missing is set when a local file reference could not be found; the run
	// continues and lets SQL*Plus report the failure.
	Missing bool
}

// Files is the subset of the execution channel the preparer needs.
type Files interface {
	Local() bool
	TempDir(ctx context.Context) (string, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
}

// Pathing carries the directories a script path is resolved against.
type Pathing struct {
	// Workspace is the job working directory on the target.
	Workspace string
	// SearchPath is the resolved SQLPATH, used instead of Workspace when set.
	SearchPath string
	// TempDir overrides the channel temp directory for inline scripts.
	TempDir string
}

// Prepare materializes spec on the target reachable through files.
func Prepare(ctx context.Context, files Files, spec Spec, t target.ExecutionTarget, pathing Pathing) (Prepared, error) {
	switch spec.Kind {
	case KindInline:
		return prepareInline(ctx, files, spec.Content, t, pathing)
	case KindFile:
		return prepareFile(ctx, files, spec.Path, t, pathing)
	default:
		return Prepared{}, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
}

func prepareInline(ctx context.Context, files Files, content string, t target.ExecutionTarget, pathing Pathing) (Prepared, error) {
	dir := pathing.TempDir
	if dir == "" {
		var err error
		dir, err = files.TempDir(ctx)
		if err != nil {
			return Prepared{}, fmt.Errorf("%w: temp dir: %w", ErrScriptIO, err)
		}
	}
	path := t.Join(dir, tempPrefix+uuid.NewString()+tempSuffix)
	data, _ := EnsureExitDirective([]byte(content))
	if err := files.WriteFile(ctx, path, data); err != nil {
		return Prepared{}, fmt.Errorf("%w: write %s: %w", ErrScriptIO, path, err)
	}
	return Prepared{Path: path, Temporary: true}, nil
}

func prepareFile(ctx context.Context, files Files, ref string, t target.ExecutionTarget, pathing Pathing) (Prepared, error) {
	path := ResolvePath(ref, t, pathing)
	if !files.Local() {
		// the remote filesystem is not probed from the controller
		return Prepared{Path: path}, nil
	}
	if strings.TrimSpace(ref) == "" {
		return Prepared{Path: path, Missing: true}, nil
	}
	ok, err := files.Exists(ctx, path)
	if err != nil {
		return Prepared{}, fmt.Errorf("%w: stat %s: %w", ErrScriptIO, path, err)
	}
	if !ok {
		return Prepared{Path: path, Missing: true}, nil
	}
	data, err := files.ReadFile(ctx, path)
	if err != nil {
		return Prepared{}, fmt.Errorf("%w: read %s: %w", ErrScriptIO, path, err)
	}
	if updated, changed := EnsureExitDirective(data); changed {
		if err := files.WriteFile(ctx, path, updated); err != nil {
			return Prepared{}, fmt.Errorf("%w: write %s: %w", ErrScriptIO, path, err)
		}
	}
	return Prepared{Path: path}, nil
}

// ResolvePath joins a relative script reference onto SQLPATH when set, or the
// workspace otherwise. Absolute references are returned unchanged.
func ResolvePath(ref string, t target.ExecutionTarget, pathing Pathing) string {
	ref = strings.TrimSpace(ref)
	if ref != "" && t.IsAbs(ref) {
		return ref
	}
	base := pathing.Workspace
	if pathing.SearchPath != "" {
		base = pathing.SearchPath
	}
	return t.Join(base, ref)
}

// HasExitDirective reports whether the last non-blank line is the exit
// directive, compared case-insensitively.
func HasExitDirective(content []byte) bool {
	last := ""
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), len(content)+1)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			last = line
		}
	}
	return strings.EqualFold(last, ExitDirective)
}

// EnsureExitDirective appends a statement separator and the exit directive
// when absent. changed is false when content already terminates properly.
func EnsureExitDirective(content []byte) (out []byte, changed bool) {
	if HasExitDirective(content) {
		return content, false
	}
	out = make([]byte, 0, len(content)+len(separator)+len(ExitDirective))
	out = append(out, content...)
	out = append(out, separator...)
	out = append(out, ExitDirective...)
	return out, true
}
