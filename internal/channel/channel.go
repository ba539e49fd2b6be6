// Package channel provides the execution channels SQL*Plus runs through.
//
// Ownership boundary:
// - process launch on the controller or on a remote worker
// - filesystem access on the execution target
// - target environment discovery
package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
)

var (
	ErrInvalidCommand = errors.New("channel: invalid command")
	ErrNotConnected   = errors.New("channel: not connected")
)

// Command is one process launch.
type Command struct {
	Name string
	Args []string
	// Env entries are layered over the channel's inherited environment.
	Env    map[string]string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

func (c Command) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: missing executable", ErrInvalidCommand)
	}
	return nil
}

// Process is a started command.
type Process interface {
	// Wait blocks until exit. A process that ran to completion reports its
	// exit code with a nil error, whatever the code.
	Wait() (int, error)
}

// Channel is where SQL*Plus runs: the controller itself or a remote worker.
type Channel interface {
	Local() bool
	Environ(ctx context.Context) (map[string]string, error)
	TempDir(ctx context.Context) (string, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
	Remove(ctx context.Context, path string) error
	Start(ctx context.Context, cmd Command) (Process, error)
}

// MergeEnv layers overlays onto base, later maps winning.
func MergeEnv(base map[string]string, overlays ...map[string]string) map[string]string {
	out := make(map[string]string, len(base))
	maps.Copy(out, base)
	for _, overlay := range overlays {
		maps.Copy(out, overlay)
	}
	return out
}

// ParseEnviron turns KEY=VALUE entries into a map; entries without '=' are
// skipped.
func ParseEnviron(entries []string) map[string]string {
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// FormatEnviron renders env as sorted KEY=VALUE entries.
func FormatEnviron(env map[string]string) []string {
	keys := slices.Sorted(maps.Keys(env))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, key+"="+env[key])
	}
	return out
}

// LineWriter forwards complete lines to the underlying writer and holds any
// trailing partial line until the next newline or Flush.
type LineWriter struct {
	mu  sync.Mutex
	out io.Writer
	buf []byte
}

func NewLineWriter(out io.Writer) *LineWriter {
	return &LineWriter{out: out}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	idx := bytes.LastIndexByte(w.buf, '\n')
	if idx < 0 {
		return len(p), nil
	}
	if _, err := w.out.Write(w.buf[:idx+1]); err != nil {
		return 0, err
	}
	w.buf = append(w.buf[:0], w.buf[idx+1:]...)
	return len(p), nil
}

// Flush terminates and writes any pending partial line.
func (w *LineWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) == 0 {
		return nil
	}
	w.buf = append(w.buf, '\n')
	_, err := w.out.Write(w.buf)
	w.buf = w.buf[:0]
	return err
}
