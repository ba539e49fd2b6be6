package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/sqlplusctl/internal/command"
	"github.com/danmuck/sqlplusctl/internal/credentials"
	"github.com/danmuck/sqlplusctl/internal/locate"
	"github.com/danmuck/sqlplusctl/internal/script"
)

var (
	ErrMissingHomeDirectory  = errors.New("engine: ORACLE_HOME is not configured")
	ErrInvalidHomeDirectory  = errors.New("engine: ORACLE_HOME does not exist")
	ErrExecutableNotFound    = locate.ErrExecutableNotFound
	ErrNetworkConfigNotFound = command.ErrNetworkConfigNotFound
	// ErrMissingScript is reported as a warning; the run continues.
	ErrMissingScript      = errors.New("engine: script not found")
	ErrExternalToolFailed = errors.New("engine: sqlplus failed")
	// ErrCleanupFailed is logged, never returned.
	ErrCleanupFailed = errors.New("engine: temp script not removed")
	ErrRunFailed     = errors.New("engine: run failed")
)

// ExitError reports a nonzero SQL*Plus exit code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s with exit code %d", ErrExternalToolFailed, e.Code)
}

func (e *ExitError) Is(target error) bool {
	return target == ErrExternalToolFailed
}

// typed failures propagate unchanged
var typedFailures = []error{
	ErrMissingHomeDirectory,
	ErrInvalidHomeDirectory,
	ErrExecutableNotFound,
	ErrNetworkConfigNotFound,
	ErrExternalToolFailed,
	ErrRunFailed,
	credentials.ErrInvalidCredentials,
	script.ErrScriptIO,
	script.ErrUnknownKind,
}

// wrapFailure returns typed failures as they are and wraps anything else once
// in ErrRunFailed, keeping the original message.
func wrapFailure(err error) error {
	if err == nil {
		return nil
	}
	for _, typed := range typedFailures {
		if errors.Is(err, typed) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: cancelled: %w", ErrRunFailed, err)
	}
	return fmt.Errorf("%w: %w", ErrRunFailed, err)
}
