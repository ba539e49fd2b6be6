// Package target describes the machine that will run SQL*Plus.
//
// Ownership boundary:
// - local controller vs remote worker detection
// - operating system family of the execution target
// - path joining with the target's separator convention
package target

import (
	"strings"
)

// OSFamily is the operating system family of an execution target.
type OSFamily int

const (
	OSOther OSFamily = iota
	OSWindows
)

func (f OSFamily) String() string {
	if f == OSWindows {
		return "windows"
	}
	return "other"
}

// Separator is the file path separator on the target.
func (f OSFamily) Separator() string {
	if f == OSWindows {
		return `\`
	}
	return "/"
}

// ListSeparator separates entries of path-list variables on the target.
func (f OSFamily) ListSeparator() string {
	if f == OSWindows {
		return ";"
	}
	return ":"
}

// ExecutionTarget is derived once per run and never changes afterwards.
type ExecutionTarget struct {
	Remote bool
	OS     OSFamily
}

// Join appends elements to base using the target separator. Paths are not
// cleaned because a Windows target path must survive on a non-Windows
// controller.
func (t ExecutionTarget) Join(base string, elem ...string) string {
	sep := t.OS.Separator()
	out := strings.TrimRight(base, `/\`)
	for _, e := range elem {
		e = strings.Trim(e, `/\`)
		if e == "" {
			continue
		}
		out += sep + e
	}
	return out
}

// IsAbs reports whether path is absolute under the target's convention.
func (t ExecutionTarget) IsAbs(path string) bool {
	if t.OS == OSWindows {
		if strings.HasPrefix(path, `\\`) {
			return true
		}
		return len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/')
	}
	return strings.HasPrefix(path, "/")
}
