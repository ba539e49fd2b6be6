package locate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/sqlplusctl/internal/target"
	"github.com/spf13/afero"
)

const (
	BinaryName        = "sqlplus"
	WindowsBinaryName = "sqlplus.exe"

	binDir = "bin"
)

var ErrExecutableNotFound = errors.New("locate: sqlplus executable not found")

// Source records where the executable came from.
type Source string

const (
	FromOverride Source = "override"
	FromBin      Source = "bin"
	FromHome     Source = "home"
	FromTree     Source = "tree"
	// FromAssumed is a remote-only guess at <home>/bin that the controller
	// could not verify.
	FromAssumed Source = "assumed"
)

// Result is a located executable.
type Result struct {
	Path   string
	Source Source
}

// Binary returns the executable file name for the target OS.
func Binary(family target.OSFamily) string {
	if family == target.OSWindows {
		return WindowsBinaryName
	}
	return BinaryName
}

// Locator searches the controller filesystem for the SQL*Plus binary.
type Locator struct {
	FS afero.Fs
}

// New returns a Locator over fs, or the OS filesystem when fs is nil.
func New(fs afero.Fs) Locator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return Locator{FS: fs}
}

// Locate returns the override verbatim when set. Otherwise it searches
// <home>/bin, <home>, then the tree under <home>, matching the binary name
// case-insensitively. A remote target that yields no match gets the
// unverified <home>/bin path.
func (l Locator) Locate(home, override string, t target.ExecutionTarget) (Result, error) {
	if override != "" {
		return Result{Path: override, Source: FromOverride}, nil
	}

	name := Binary(t.OS)
	bin := t.Join(home, binDir)
	if l.hasEntry(bin, name) {
		return Result{Path: t.Join(bin, name), Source: FromBin}, nil
	}
	if l.hasEntry(home, name) {
		return Result{Path: t.Join(home, name), Source: FromHome}, nil
	}
	if found, ok := l.walk(home, name); ok {
		return Result{Path: found, Source: FromTree}, nil
	}
	if t.Remote {
		return Result{Path: t.Join(bin, name), Source: FromAssumed}, nil
	}
	return Result{}, fmt.Errorf("%w: %s not found under %q", ErrExecutableNotFound, name, home)
}

func (l Locator) hasEntry(dir, name string) bool {
	if dir == "" {
		return false
	}
	entries, err := afero.ReadDir(l.FS, dir)
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

var errStopWalk = errors.New("stop walk")

func (l Locator) walk(root, name string) (string, bool) {
	if root == "" {
		return "", false
	}
	var found string
	err := afero.Walk(l.FS, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// unreadable subtrees are skipped
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() && strings.EqualFold(info.Name(), name) {
			found = path
			return errStopWalk
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return "", false
	}
	return found, found != ""
}
